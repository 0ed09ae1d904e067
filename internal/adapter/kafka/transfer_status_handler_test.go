package kafka

import (
	"context"
	"testing"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolveCall struct {
	EventID     string
	SellerID    string
	TransferID  string
	Disposition entity.TransferDisposition
}

// resolverStub implements usecase.SettlementRegistry; only ResolveTransfer is
// exercised by the handler.
type resolverStub struct {
	Calls []resolveCall
	Err   error
}

func (s *resolverStub) ResolveTransfer(_ context.Context, eventID, sellerID, transferID string, d entity.TransferDisposition) error {
	s.Calls = append(s.Calls, resolveCall{eventID, sellerID, transferID, d})
	return s.Err
}

func (s *resolverStub) Begin(context.Context, string, string, string, []byte) (usecase.BeginResult, error) {
	return usecase.BeginResult{}, nil
}
func (s *resolverStub) Commit(context.Context, string, string) error     { return nil }
func (s *resolverStub) MarkFailed(context.Context, string, string) error { return nil }
func (s *resolverStub) Rearm(context.Context, string) error              { return nil }
func (s *resolverStub) GetByEventID(context.Context, string) (*entity.SettlementRecord, error) {
	return nil, nil
}
func (s *resolverStub) RecordTransfer(context.Context, entity.TransferAttempt) error { return nil }
func (s *resolverStub) TransfersFor(context.Context, string) ([]entity.TransferAttempt, error) {
	return nil, nil
}

func TestTransferStatusHandler_Applied(t *testing.T) {
	stub := &resolverStub{}
	h := NewTransferStatusHandler(stub)

	err := h.Handle(context.Background(), usecase.TransferStatusMsg{
		EventID: "evt_1", SellerID: "s_1", TransferID: "tr_9", Status: "APPLIED",
	})
	require.NoError(t, err)

	require.Len(t, stub.Calls, 1)
	assert.Equal(t, resolveCall{"evt_1", "s_1", "tr_9", entity.TransferIssued}, stub.Calls[0])
}

func TestTransferStatusHandler_Rejected(t *testing.T) {
	stub := &resolverStub{}
	h := NewTransferStatusHandler(stub)

	err := h.Handle(context.Background(), usecase.TransferStatusMsg{
		EventID: "evt_1", SellerID: "s_1", TransferID: "tr_9", Status: "REJECTED",
	})
	require.NoError(t, err)

	require.Len(t, stub.Calls, 1)
	assert.Equal(t, entity.TransferNotSent, stub.Calls[0].Disposition)
}

func TestTransferStatusHandler_RegistryErrorPropagates(t *testing.T) {
	stub := &resolverStub{Err: assert.AnError}
	h := NewTransferStatusHandler(stub)

	err := h.Handle(context.Background(), usecase.TransferStatusMsg{EventID: "evt_1", SellerID: "s_1"})
	assert.ErrorIs(t, err, assert.AnError)
}
