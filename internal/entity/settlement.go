package entity

import "time"

// SettlementState tracks one webhook event through the orchestrator.
// PROCESSING rows that never reach SUCCEEDED point an operator at exactly
// where the run stopped; RETRY_READY is the manual re-arm of a FAILED row.
type SettlementState string

const (
	SettlementProcessing SettlementState = "PROCESSING"
	SettlementSucceeded  SettlementState = "SUCCEEDED"
	SettlementFailed     SettlementState = "FAILED"
	SettlementRetryReady SettlementState = "RETRY_READY"
)

// SettlementRecord is the idempotency-registry row: exactly one per external
// event id (unique constraint). Payload keeps the verified event so a re-armed
// retry can re-run without the processor redelivering.
type SettlementRecord struct {
	EventID       string
	CartID        string
	CustomerID    string
	OrderID       string // set on success
	State         SettlementState
	FailureReason string
	Payload       []byte
	CreatedAt     time.Time
	ProcessedAt   time.Time
}

// TransferDisposition records what is known about one seller's fund transfer.
// UNKNOWN means the call went out but no definite answer came back; only
// NOT_SENT transfers are safe to resend without an idempotency key.
type TransferDisposition string

const (
	TransferNotSent TransferDisposition = "NOT_SENT"
	TransferIssued  TransferDisposition = "ISSUED"
	TransferUnknown TransferDisposition = "UNKNOWN"
)

// TransferAttempt is one (event, seller) transfer with its idempotency key.
// The key is deterministic per pair, so a retry of an UNKNOWN attempt reuses
// it and the gateway collapses duplicates.
type TransferAttempt struct {
	EventID        string
	SellerID       string
	Amount         Money
	IdempotencyKey string
	Disposition    TransferDisposition
	TransferID     string
}
