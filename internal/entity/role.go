package entity

// Role is the closed set of principals. Each role carries the capabilities it
// may invoke; route handlers check capabilities, never role names, so the
// settlement engine itself stays role-agnostic.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

const (
	CapCartsWrite           = "carts.write"
	CapCheckoutWrite        = "checkout.write"
	CapOrdersRead           = "orders.read"
	CapSettlementsRead      = "settlements.read"
	CapSettlementsReconcile = "settlements.reconcile"
)

var roleCaps = map[Role][]string{
	RoleCustomer: {CapCartsWrite, CapCheckoutWrite, CapOrdersRead},
	RoleSeller:   {CapOrdersRead},
	RoleAdmin:    {CapOrdersRead, CapSettlementsRead, CapSettlementsReconcile},
	RoleOwner:    {CapCartsWrite, CapCheckoutWrite, CapOrdersRead, CapSettlementsRead, CapSettlementsReconcile},
}

// Capabilities returns the permissions granted to r. Unknown roles get none.
func (r Role) Capabilities() []string {
	caps := roleCaps[r]
	out := make([]string, len(caps))
	copy(out, caps)
	return out
}

func (r Role) Can(capability string) bool {
	for _, c := range roleCaps[r] {
		if c == capability {
			return true
		}
	}
	return false
}

func (r Role) Valid() bool {
	_, ok := roleCaps[r]
	return ok
}
