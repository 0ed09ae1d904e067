package usecase

import (
	"context"
	"fmt"

	"github.com/aq2208/settlement-api/internal/entity"
)

// BeginStatus is the atomic check-and-insert verdict from the registry.
type BeginStatus int

const (
	BeginFresh BeginStatus = iota
	BeginAlreadyProcessing
	BeginAlreadySucceeded
	BeginAlreadyFailed
)

type BeginResult struct {
	Status  BeginStatus
	OrderID string // populated for BeginAlreadySucceeded
	Retried bool   // true when a RETRY_READY row was re-armed into this run
}

// SettlementRegistry is the idempotency ledger keyed by external event id.
// Begin must be a single atomic check-and-insert backed by a unique
// constraint; it is the only defense against concurrent duplicate deliveries.
type SettlementRegistry interface {
	Begin(ctx context.Context, eventID, cartID, customerID string, payload []byte) (BeginResult, error)
	Commit(ctx context.Context, eventID, orderID string) error
	MarkFailed(ctx context.Context, eventID, reason string) error
	Rearm(ctx context.Context, eventID string) error
	GetByEventID(ctx context.Context, eventID string) (*entity.SettlementRecord, error)
	RecordTransfer(ctx context.Context, t entity.TransferAttempt) error
	ResolveTransfer(ctx context.Context, eventID, sellerID, transferID string, d entity.TransferDisposition) error
	TransfersFor(ctx context.Context, eventID string) ([]entity.TransferAttempt, error)
}

// LedgerStore owns every write to carts, orders and order lines. Promotion is
// one transaction: verify the cart is unpaid, insert the order and its lines,
// mark the cart paid, bump sell counters, stage the settled event in the
// outbox. settledEvent is published by the outbox poller after commit.
type LedgerStore interface {
	PromoteCartToOrder(ctx context.Context, o *entity.Order, settledEvent []byte) error
	GetOrderByID(ctx context.Context, id string) (*entity.Order, error)
	GetOrderByCart(ctx context.Context, cartID string) (*entity.Order, error)
}

type SellerDirectory interface {
	GetSellerAccount(ctx context.Context, sellerID string) (*entity.SellerAccount, error)
}

type CartStore interface {
	CreateCart(ctx context.Context) (*entity.Cart, error)
	GetCart(ctx context.Context, cartID string) (*entity.Cart, error)
	AddItem(ctx context.Context, cartID, productID string) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	AttachCustomer(ctx context.Context, cartID, customerID string) error
	GetCheckoutLines(ctx context.Context, cartID string) ([]CheckoutLine, error)
}

// TransferGateway issues external fund transfers. Calls must be bounded by a
// timeout and must never run inside a database transaction.
type TransferGateway interface {
	CreateFundTransfer(ctx context.Context, destinationRef string, amount entity.Money, groupingKey, idemKey string) (transferID string, err error)
}

type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, lines []CheckoutLine, successURL, cancelURL string) (redirectURL string, err error)
}

// OutcomeCache is a best-effort replay shortcut; correctness never depends on
// it, only the registry's unique constraint does.
type OutcomeCache interface {
	SetOutcome(ctx context.Context, eventID, orderID string, state entity.SettlementState) error
	GetOutcome(ctx context.Context, eventID string) (orderID string, state entity.SettlementState, ok bool, err error)
}

// TransferError reports a failed or indeterminate gateway call. Unknown means
// the transfer may have been applied (timeout, 5xx after send); such attempts
// must not be blindly resent.
type TransferError struct {
	SellerID string
	Unknown  bool
	Cause    error
}

func (e *TransferError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("transfer to seller %s: outcome unknown: %v", e.SellerID, e.Cause)
	}
	return fmt.Sprintf("transfer to seller %s failed: %v", e.SellerID, e.Cause)
}

func (e *TransferError) Unwrap() error { return e.Cause }
