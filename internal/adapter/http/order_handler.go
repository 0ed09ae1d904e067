package http

import (
	"net/http"

	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	ledger usecase.LedgerStore
}

func NewOrderHandler(ledger usecase.LedgerStore) *OrderHandler {
	return &OrderHandler{ledger: ledger}
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	order, err := h.ledger.GetOrderByID(ctx, c.Param("id"))
	if err != nil || order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	lines := make([]gin.H, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, gin.H{
			"productId":         l.ProductID,
			"sellerId":          l.SellerID,
			"quantity":          l.Quantity,
			"unitPriceCents":    l.UnitPrice.Cents,
			"sellerPayoutCents": l.SellerPayout.Cents,
			"platformFeeCents":  l.PlatformFee.Cents,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         order.ID,
		"customerId": order.CustomerID,
		"cartId":     order.CartID,
		"totalCents": order.Total.Cents,
		"currency":   order.Total.Currency,
		"status":     string(order.Status),
		"createdAt":  order.CreatedAt,
		"lines":      lines,
	})
}
