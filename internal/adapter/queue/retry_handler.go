package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aq2208/settlement-api/internal/logging"
	"github.com/aq2208/settlement-api/internal/usecase"
)

// RetryQueueName is where re-armed settlements wait for another run.
const RetryQueueName = retryQueueName

// SettlementRetryHandler re-runs the orchestrator for a re-armed event using
// the payload stored in the registry at first delivery. Intended for use with
// JSONHandler[usecase.RetryMsg].
type SettlementRetryHandler struct {
	registry usecase.SettlementRegistry
	settle   *usecase.SettlePayment
}

func NewSettlementRetryHandler(registry usecase.SettlementRegistry, settle *usecase.SettlePayment) *SettlementRetryHandler {
	return &SettlementRetryHandler{registry: registry, settle: settle}
}

func (h *SettlementRetryHandler) HandleRetry(ctx context.Context, msg usecase.RetryMsg) error {
	rec, err := h.registry.GetByEventID(ctx, msg.EventID)
	if err != nil {
		return fmt.Errorf("load settlement %s: %w", msg.EventID, err)
	}

	var ev usecase.PaymentCompletedEvent
	if err := json.Unmarshal(rec.Payload, &ev); err != nil {
		// Poison payload; requeueing cannot help.
		logging.FromCtx(ctx).Error("retry payload unreadable", "event_id", msg.EventID, "err", err)
		return nil
	}

	out, err := h.settle.Execute(ctx, ev, rec.Payload)
	switch {
	case err == nil:
		logging.FromCtx(ctx).Info("settlement retry complete", "event_id", msg.EventID, "order_id", out.OrderID)
		return nil
	case errors.Is(err, usecase.ErrAlreadyProcessing):
		// Another instance picked it up; nothing to do.
		return nil
	case errors.Is(err, usecase.ErrNeedsReconciliation):
		// The retry itself failed and the record is FAILED again. Dropping
		// the message leaves the next move to the operator.
		logging.FromCtx(ctx).Error("settlement retry failed again", "event_id", msg.EventID)
		return nil
	default:
		return err
	}
}
