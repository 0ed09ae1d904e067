package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aq2208/settlement-api/configs"
	"github.com/aq2208/settlement-api/internal/logging"
	"github.com/aq2208/settlement-api/internal/security"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)

	webhookRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_rejections_total",
			Help: "Webhook deliveries rejected before settlement",
		},
		[]string{"reason"},
	)
)

// paymentSettler is the slice of the orchestrator the handler needs.
type paymentSettler interface {
	Execute(ctx context.Context, ev usecase.PaymentCompletedEvent, rawPayload []byte) (usecase.SettleOutput, error)
}

// WebhookHandler receives the processor's payment-completed deliveries. It
// reads the raw body itself (no body-rewriting middleware upstream) because
// the HMAC covers the exact bytes on the wire.
type WebhookHandler struct {
	verifier *security.Verifier
	settle   paymentSettler
	maxBody  int64
}

func NewWebhookHandler(verifier *security.Verifier, settle paymentSettler, cfg configs.Config) *WebhookHandler {
	maxBody := cfg.Webhook.MaxBody
	if maxBody <= 0 {
		maxBody = 64 * 1024
	}
	return &WebhookHandler{verifier: verifier, settle: settle, maxBody: maxBody}
}

// HandlePaymentCompleted implements the webhook contract: 200 on success and
// on idempotent replay, 400 on authentication failure (the processor will not
// retry those), 409 on an in-flight duplicate, 500 on anything transient so
// the processor redelivers.
func (h *WebhookHandler) HandlePaymentCompleted(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBody))
	if err != nil {
		webhookRejections.WithLabelValues("body_read").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	sig := c.GetHeader("Payment-Signature")
	if err := h.verifier.Verify(raw, sig, time.Now()); err != nil {
		reason := "invalid_signature"
		if errors.Is(err, security.ErrStaleEvent) {
			reason = "stale_event"
		}
		webhookRejections.WithLabelValues(reason).Inc()
		logging.From(c).Warn("webhook rejected", "reason", reason)
		c.JSON(http.StatusBadRequest, gin.H{"error": reason})
		return
	}

	var ev usecase.PaymentCompletedEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		webhookRejections.WithLabelValues("bad_payload").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	ctx = logging.WithCtx(ctx, logging.From(c))

	out, err := h.settle.Execute(ctx, ev, raw)
	switch {
	case err == nil:
		outcome := "settled"
		if out.Replayed {
			outcome = "replayed"
		}
		settlementsTotal.WithLabelValues(outcome).Inc()
		c.JSON(http.StatusOK, gin.H{"received": true, "orderId": out.OrderID})
	case errors.Is(err, usecase.ErrBadEvent):
		webhookRejections.WithLabelValues("bad_payload").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrAlreadyProcessing):
		// A concurrent delivery owns this event. Non-2xx so the processor
		// redelivers once the in-flight attempt resolves.
		settlementsTotal.WithLabelValues("in_flight").Inc()
		c.JSON(http.StatusConflict, gin.H{"received": false, "retry": true})
	case errors.Is(err, usecase.ErrNeedsReconciliation):
		settlementsTotal.WithLabelValues("needs_reconciliation").Inc()
		logging.From(c).Error("settlement requires manual reconciliation", "event_id", ev.EventID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement_failed"})
	default:
		settlementsTotal.WithLabelValues("failed").Inc()
		logging.From(c).Error("settlement failed", "event_id", ev.EventID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement_failed"})
	}
}
