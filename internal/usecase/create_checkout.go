package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/aq2208/settlement-api/internal/entity"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to check out")

// CreateCheckout builds a processor-hosted checkout session from a cart's
// current items. Prices are live at session time; the snapshot happens later,
// at settlement. The cart stays unpaid until the webhook settles it.
type CreateCheckout struct {
	carts   CartStore
	gateway CheckoutGateway
}

func NewCreateCheckout(carts CartStore, gateway CheckoutGateway) *CreateCheckout {
	return &CreateCheckout{carts: carts, gateway: gateway}
}

type CreateCheckoutInput struct {
	CartID     string
	SuccessURL string
	CancelURL  string
}

type CreateCheckoutOutput struct {
	RedirectURL string
}

func (uc *CreateCheckout) Execute(ctx context.Context, in CreateCheckoutInput) (CreateCheckoutOutput, error) {
	cart, err := uc.carts.GetCart(ctx, in.CartID)
	if err != nil {
		return CreateCheckoutOutput{}, fmt.Errorf("load cart: %w", err)
	}
	if cart.Status == entity.CartPaid {
		return CreateCheckoutOutput{}, ErrAlreadySettled
	}

	lines, err := uc.carts.GetCheckoutLines(ctx, in.CartID)
	if err != nil {
		return CreateCheckoutOutput{}, fmt.Errorf("load cart lines: %w", err)
	}
	if len(lines) == 0 {
		return CreateCheckoutOutput{}, ErrEmptyCart
	}

	url, err := uc.gateway.CreateCheckoutSession(ctx, lines, in.SuccessURL, in.CancelURL)
	if err != nil {
		return CreateCheckoutOutput{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CreateCheckoutOutput{RedirectURL: url}, nil
}
