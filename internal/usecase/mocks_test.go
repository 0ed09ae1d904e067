package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/aq2208/settlement-api/internal/entity"
)

// mockRegistry implements SettlementRegistry for testing.
type mockRegistry struct {
	BeginResult  BeginResult
	BeginErr     error
	BeginCalls   int
	LastPayload  []byte
	CommitErr    error
	Committed    map[string]string // eventID -> orderID
	FailReasons  map[string]string // eventID -> reason
	Transfers    map[string]entity.TransferAttempt
	TransfersErr error
	Rearmed      []string
	Records      map[string]*entity.SettlementRecord
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		Committed:   map[string]string{},
		FailReasons: map[string]string{},
		Transfers:   map[string]entity.TransferAttempt{},
		Records:     map[string]*entity.SettlementRecord{},
	}
}

func (m *mockRegistry) Begin(_ context.Context, eventID, cartID, customerID string, payload []byte) (BeginResult, error) {
	m.BeginCalls++
	m.LastPayload = payload
	return m.BeginResult, m.BeginErr
}

func (m *mockRegistry) Commit(_ context.Context, eventID, orderID string) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.Committed[eventID] = orderID
	return nil
}

func (m *mockRegistry) MarkFailed(_ context.Context, eventID, reason string) error {
	m.FailReasons[eventID] = reason
	return nil
}

func (m *mockRegistry) Rearm(_ context.Context, eventID string) error {
	m.Rearmed = append(m.Rearmed, eventID)
	return nil
}

func (m *mockRegistry) GetByEventID(_ context.Context, eventID string) (*entity.SettlementRecord, error) {
	rec, ok := m.Records[eventID]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func (m *mockRegistry) RecordTransfer(_ context.Context, t entity.TransferAttempt) error {
	m.Transfers[t.IdempotencyKey] = t
	return nil
}

func (m *mockRegistry) ResolveTransfer(_ context.Context, eventID, sellerID, transferID string, d entity.TransferDisposition) error {
	key := eventID + ":" + sellerID
	t, ok := m.Transfers[key]
	if !ok {
		return errors.New("no such transfer")
	}
	t.Disposition = d
	t.TransferID = transferID
	m.Transfers[key] = t
	return nil
}

func (m *mockRegistry) TransfersFor(_ context.Context, eventID string) ([]entity.TransferAttempt, error) {
	if m.TransfersErr != nil {
		return nil, m.TransfersErr
	}
	var out []entity.TransferAttempt
	for _, t := range m.Transfers {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	return out, nil
}

// mockLedger implements LedgerStore for testing.
type mockLedger struct {
	PromoteErr    error
	PromoteCalls  int
	Promoted      *entity.Order
	SettledEvent  []byte
	ExistingOrder *entity.Order // returned by GetOrderByCart
	ByCartErr     error
}

func (m *mockLedger) PromoteCartToOrder(_ context.Context, o *entity.Order, settledEvent []byte) error {
	m.PromoteCalls++
	if m.PromoteErr != nil {
		return m.PromoteErr
	}
	m.Promoted = o
	m.SettledEvent = settledEvent
	return nil
}

func (m *mockLedger) GetOrderByID(_ context.Context, id string) (*entity.Order, error) {
	if m.Promoted != nil && m.Promoted.ID == id {
		return m.Promoted, nil
	}
	return nil, errors.New("not found")
}

func (m *mockLedger) GetOrderByCart(_ context.Context, cartID string) (*entity.Order, error) {
	if m.ByCartErr != nil {
		return nil, m.ByCartErr
	}
	if m.ExistingOrder != nil {
		return m.ExistingOrder, nil
	}
	return nil, errors.New("not found")
}

// mockSellers implements SellerDirectory for testing.
type mockSellers struct {
	Accounts map[string]*entity.SellerAccount
	Calls    int
}

func (m *mockSellers) GetSellerAccount(_ context.Context, sellerID string) (*entity.SellerAccount, error) {
	m.Calls++
	acct, ok := m.Accounts[sellerID]
	if !ok {
		return nil, errors.New("seller not found")
	}
	return acct, nil
}

// transferCall captures one CreateFundTransfer invocation.
type transferCall struct {
	DestinationRef string
	Amount         entity.Money
	GroupingKey    string
	IdemKey        string
}

// mockGateway implements TransferGateway for testing. ErrBySeller keys on the
// destination account ref so individual sellers can be made to fail.
type mockGateway struct {
	Calls       []transferCall
	ErrByRef    map[string]error
	NextID      int
	IssuedIDs   []string
	CheckoutURL string
	CheckoutErr error
}

func (m *mockGateway) CreateFundTransfer(_ context.Context, destinationRef string, amount entity.Money, groupingKey, idemKey string) (string, error) {
	m.Calls = append(m.Calls, transferCall{destinationRef, amount, groupingKey, idemKey})
	if err, ok := m.ErrByRef[destinationRef]; ok {
		return "", err
	}
	m.NextID++
	id := fmt.Sprintf("tr_%d", m.NextID)
	m.IssuedIDs = append(m.IssuedIDs, id)
	return id, nil
}

func (m *mockGateway) CreateCheckoutSession(_ context.Context, _ []CheckoutLine, _, _ string) (string, error) {
	return m.CheckoutURL, m.CheckoutErr
}

// mockOutcomes implements OutcomeCache for testing.
type mockOutcomes struct {
	Stored   map[string]string // eventID -> orderID
	HitID    string
	HitState entity.SettlementState
	Hit      bool
}

func newMockOutcomes() *mockOutcomes { return &mockOutcomes{Stored: map[string]string{}} }

func (m *mockOutcomes) SetOutcome(_ context.Context, eventID, orderID string, _ entity.SettlementState) error {
	m.Stored[eventID] = orderID
	return nil
}

func (m *mockOutcomes) GetOutcome(_ context.Context, _ string) (string, entity.SettlementState, bool, error) {
	return m.HitID, m.HitState, m.Hit, nil
}

// mockCarts implements CartStore for testing.
type mockCarts struct {
	Cart     *entity.Cart
	CartErr  error
	Lines    []CheckoutLine
	LinesErr error
}

func (m *mockCarts) CreateCart(_ context.Context) (*entity.Cart, error) { return m.Cart, m.CartErr }

func (m *mockCarts) GetCart(_ context.Context, _ string) (*entity.Cart, error) {
	return m.Cart, m.CartErr
}

func (m *mockCarts) AddItem(_ context.Context, _, _ string) error    { return nil }
func (m *mockCarts) RemoveItem(_ context.Context, _, _ string) error { return nil }

func (m *mockCarts) AttachCustomer(_ context.Context, _, _ string) error { return nil }

func (m *mockCarts) GetCheckoutLines(_ context.Context, _ string) ([]CheckoutLine, error) {
	return m.Lines, m.LinesErr
}
