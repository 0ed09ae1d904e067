package kafka

import (
	"context"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
)

// TransferStatusHandler resolves UNKNOWN transfer dispositions from the
// gateway's asynchronous acknowledgements, so a later manual retry knows
// which sellers were actually paid.
type TransferStatusHandler struct {
	Registry usecase.SettlementRegistry
}

func NewTransferStatusHandler(registry usecase.SettlementRegistry) *TransferStatusHandler {
	return &TransferStatusHandler{Registry: registry}
}

func (h *TransferStatusHandler) Handle(ctx context.Context, ev usecase.TransferStatusMsg) error {
	var d entity.TransferDisposition
	switch ev.Status {
	case "APPLIED":
		d = entity.TransferIssued
	default:
		d = entity.TransferNotSent
	}
	return h.Registry.ResolveTransfer(ctx, ev.EventID, ev.SellerID, ev.TransferID, d)
}
