package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Can(t *testing.T) {
	assert.True(t, RoleCustomer.Can(CapCartsWrite))
	assert.True(t, RoleCustomer.Can(CapCheckoutWrite))
	assert.False(t, RoleCustomer.Can(CapSettlementsReconcile))

	assert.True(t, RoleSeller.Can(CapOrdersRead))
	assert.False(t, RoleSeller.Can(CapCartsWrite))

	assert.True(t, RoleAdmin.Can(CapSettlementsReconcile))
	assert.False(t, RoleAdmin.Can(CapCheckoutWrite))

	for _, cap := range []string{CapCartsWrite, CapCheckoutWrite, CapOrdersRead, CapSettlementsRead, CapSettlementsReconcile} {
		assert.True(t, RoleOwner.Can(cap), cap)
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleCustomer.Valid())
	assert.True(t, RoleOwner.Valid())
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestRole_CapabilitiesIsACopy(t *testing.T) {
	caps := RoleAdmin.Capabilities()
	caps[0] = "tampered"
	assert.NotContains(t, RoleAdmin.Capabilities(), "tampered")
}

func TestRole_UnknownHasNoCapabilities(t *testing.T) {
	assert.Empty(t, Role("ghost").Capabilities())
	assert.False(t, Role("ghost").Can(CapOrdersRead))
}
