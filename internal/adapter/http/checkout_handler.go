package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aq2208/settlement-api/configs"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	create *usecase.CreateCheckout
	cfg    configs.Config
}

func NewCheckoutHandler(create *usecase.CreateCheckout, cfg configs.Config) *CheckoutHandler {
	return &CheckoutHandler{create: create, cfg: cfg}
}

type createCheckoutReq struct {
	CartID     string `json:"cartId" binding:"required"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// CreateCheckout starts a processor-hosted checkout session for a cart and
// returns the redirect URL.
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var req createCheckoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = h.cfg.Checkout.SuccessURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = h.cfg.Checkout.CancelURL
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	out, err := h.create.Execute(ctx, usecase.CreateCheckoutInput{
		CartID:     req.CartID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, usecase.ErrEmptyCart):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, usecase.ErrAlreadySettled):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirectUrl": out.RedirectURL})
}
