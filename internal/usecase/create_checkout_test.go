package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckout(t *testing.T) {
	carts := &mockCarts{
		Cart: &entity.Cart{ID: "cart_1", Status: entity.CartUnpaid},
		Lines: []CheckoutLine{
			{ProductID: "p_1", SellerID: "s_1", Name: "Preset pack", Quantity: 1, UnitPriceCents: 1999, Currency: "USD"},
		},
	}
	gw := &mockGateway{CheckoutURL: "https://processor.test/session/abc"}
	uc := NewCreateCheckout(carts, gw)

	out, err := uc.Execute(context.Background(), CreateCheckoutInput{
		CartID:     "cart_1",
		SuccessURL: "https://shop.test/thanks",
		CancelURL:  "https://shop.test/cart",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://processor.test/session/abc", out.RedirectURL)
}

func TestCreateCheckout_EmptyCart(t *testing.T) {
	carts := &mockCarts{Cart: &entity.Cart{ID: "cart_1", Status: entity.CartUnpaid}}
	uc := NewCreateCheckout(carts, &mockGateway{})

	_, err := uc.Execute(context.Background(), CreateCheckoutInput{CartID: "cart_1"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateCheckout_PaidCart(t *testing.T) {
	carts := &mockCarts{Cart: &entity.Cart{ID: "cart_1", Status: entity.CartPaid}}
	uc := NewCreateCheckout(carts, &mockGateway{})

	_, err := uc.Execute(context.Background(), CreateCheckoutInput{CartID: "cart_1"})
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestCreateCheckout_GatewayFailure(t *testing.T) {
	carts := &mockCarts{
		Cart:  &entity.Cart{ID: "cart_1", Status: entity.CartUnpaid},
		Lines: []CheckoutLine{{ProductID: "p_1", Quantity: 1, UnitPriceCents: 100, Currency: "USD"}},
	}
	gw := &mockGateway{CheckoutErr: errors.New("processor unavailable")}
	uc := NewCreateCheckout(carts, gw)

	_, err := uc.Execute(context.Background(), CreateCheckoutInput{CartID: "cart_1"})
	assert.Error(t, err)
}

func TestCreateCheckout_CartNotFound(t *testing.T) {
	carts := &mockCarts{CartErr: errors.New("not found")}
	uc := NewCreateCheckout(carts, &mockGateway{})

	_, err := uc.Execute(context.Background(), CreateCheckoutInput{CartID: "nope"})
	assert.Error(t, err)
}
