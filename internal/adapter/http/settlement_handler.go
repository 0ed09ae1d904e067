package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aq2208/settlement-api/internal/adapter/repo"
	"github.com/aq2208/settlement-api/internal/logging"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// retryEnqueuer publishes a re-armed settlement to the retry queue.
type retryEnqueuer interface {
	PublishRetry(ctx context.Context, msg usecase.RetryMsg) error
}

// SettlementHandler is the operator audit surface over the idempotency
// registry: inspect a settlement and re-arm a failed one.
type SettlementHandler struct {
	registry usecase.SettlementRegistry
	retries  retryEnqueuer
}

func NewSettlementHandler(registry usecase.SettlementRegistry, retries retryEnqueuer) *SettlementHandler {
	return &SettlementHandler{registry: registry, retries: retries}
}

func (h *SettlementHandler) GetSettlement(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	eventID := c.Param("eventId")
	rec, err := h.registry.GetByEventID(ctx, eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	transfers, err := h.registry.TransfersFor(ctx, eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transfer_lookup_failed"})
		return
	}
	tout := make([]gin.H, 0, len(transfers))
	for _, t := range transfers {
		tout = append(tout, gin.H{
			"sellerId":       t.SellerID,
			"amountCents":    t.Amount.Cents,
			"currency":       t.Amount.Currency,
			"idempotencyKey": t.IdempotencyKey,
			"disposition":    string(t.Disposition),
			"transferId":     t.TransferID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"eventId":       rec.EventID,
		"cartId":        rec.CartID,
		"customerId":    rec.CustomerID,
		"orderId":       rec.OrderID,
		"state":         string(rec.State),
		"failureReason": rec.FailureReason,
		"createdAt":     rec.CreatedAt,
		"processedAt":   rec.ProcessedAt,
		"transfers":     tout,
	})
}

// RearmSettlement flips a FAILED settlement to RETRY_READY and enqueues it
// for the retry consumer. Only an operator with settlements.reconcile can
// reach this.
func (h *SettlementHandler) RearmSettlement(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	eventID := c.Param("eventId")
	if err := h.registry.Rearm(ctx, eventID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.JSON(http.StatusConflict, gin.H{"error": "not_failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rearm_failed"})
		return
	}

	if err := h.retries.PublishRetry(ctx, usecase.RetryMsg{EventID: eventID}); err != nil {
		// The record is RETRY_READY; the next webhook redelivery will also
		// pick it up, so report the enqueue failure without rolling back.
		logging.From(c).Error("enqueue settlement retry", "event_id", eventID, "err", err)
		c.JSON(http.StatusAccepted, gin.H{"rearmed": true, "enqueued": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rearmed": true, "enqueued": true})
}
