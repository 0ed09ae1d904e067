package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aq2208/settlement-api/internal/adapter/repo"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	carts usecase.CartStore
}

func NewCartHandler(carts usecase.CartStore) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) CreateCart(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cart, err := h.carts.CreateCart(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_cart_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cartId": cart.ID})
}

func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	items := make([]gin.H, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, gin.H{"productId": it.ProductID, "quantity": it.Quantity})
	}
	c.JSON(http.StatusOK, gin.H{
		"cartId":        cart.ID,
		"customerId":    cart.CustomerID,
		"paymentStatus": string(cart.Status),
		"items":         items,
	})
}

type cartItemReq struct {
	ProductID string `json:"productId" binding:"required"`
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.carts.AddItem(ctx, c.Param("id"), req.ProductID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add_item_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.carts.RemoveItem(ctx, c.Param("id"), c.Param("productId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove_item_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type claimCartReq struct {
	CustomerID string `json:"customerId" binding:"required"`
}

// ClaimCart attaches an authenticated customer to an anonymous cart.
func (h *CartHandler) ClaimCart(c *gin.Context) {
	var req claimCartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.carts.AttachCustomer(ctx, c.Param("id"), req.CustomerID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case errors.Is(err, repo.ErrCartClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": "cart_claimed"})
	case errors.Is(err, repo.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "claim_failed"})
	}
}

func reqCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 3*time.Second)
}
