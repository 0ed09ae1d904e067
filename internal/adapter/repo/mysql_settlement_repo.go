package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/go-sql-driver/mysql"
)

const mysqlDupEntry = 1062

// MySQLSettlementRepo is the idempotency registry. Begin leans entirely on
// the primary key of settlement_records: the INSERT either wins the event or
// reports the existing row's state. No in-process locking.
type MySQLSettlementRepo struct{ db *sql.DB }

func NewMySQLSettlementRepo(db *sql.DB) *MySQLSettlementRepo { return &MySQLSettlementRepo{db: db} }

func (r *MySQLSettlementRepo) Begin(ctx context.Context, eventID, cartID, customerID string, payload []byte) (usecase.BeginResult, error) {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO settlement_records (event_id,cart_id,customer_id,state,payload,created_at)
VALUES (?,?,?,?,?,NOW())
`, eventID, cartID, customerID, string(entity.SettlementProcessing), payload)
	if err == nil {
		return usecase.BeginResult{Status: usecase.BeginFresh}, nil
	}

	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDupEntry {
		return usecase.BeginResult{}, err
	}

	// Row exists. A re-armed row is taken over by this run; anything else is
	// reported as-is.
	res, err := r.db.ExecContext(ctx, `
UPDATE settlement_records SET state = ?, failure_reason = NULL
WHERE event_id = ? AND state = ?
`, string(entity.SettlementProcessing), eventID, string(entity.SettlementRetryReady))
	if err != nil {
		return usecase.BeginResult{}, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return usecase.BeginResult{Status: usecase.BeginFresh, Retried: true}, nil
	}

	var state string
	var orderID sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT state, order_id FROM settlement_records WHERE event_id = ?`, eventID).Scan(&state, &orderID)
	if err != nil {
		return usecase.BeginResult{}, err
	}

	switch entity.SettlementState(state) {
	case entity.SettlementSucceeded:
		return usecase.BeginResult{Status: usecase.BeginAlreadySucceeded, OrderID: orderID.String}, nil
	case entity.SettlementFailed:
		return usecase.BeginResult{Status: usecase.BeginAlreadyFailed}, nil
	default:
		// PROCESSING, or RETRY_READY re-armed by a concurrent delivery
		// between our UPDATE and SELECT. Either way someone else owns it.
		return usecase.BeginResult{Status: usecase.BeginAlreadyProcessing}, nil
	}
}

func (r *MySQLSettlementRepo) Commit(ctx context.Context, eventID, orderID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE settlement_records SET state = ?, order_id = ?, processed_at = NOW()
WHERE event_id = ?
`, string(entity.SettlementSucceeded), orderID, eventID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("settlement %s: %w", eventID, ErrNotFound)
	}
	return nil
}

func (r *MySQLSettlementRepo) MarkFailed(ctx context.Context, eventID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE settlement_records SET state = ?, failure_reason = ?, processed_at = NOW()
WHERE event_id = ? AND state = ?
`, string(entity.SettlementFailed), reason, eventID, string(entity.SettlementProcessing))
	return err
}

// Rearm flips a FAILED record back to RETRY_READY so the retry queue can
// re-run it. Operator action only.
func (r *MySQLSettlementRepo) Rearm(ctx context.Context, eventID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE settlement_records SET state = ?
WHERE event_id = ? AND state = ?
`, string(entity.SettlementRetryReady), eventID, string(entity.SettlementFailed))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("settlement %s is not FAILED: %w", eventID, ErrNotFound)
	}
	return nil
}

func (r *MySQLSettlementRepo) GetByEventID(ctx context.Context, eventID string) (*entity.SettlementRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT event_id,cart_id,customer_id,order_id,state,failure_reason,payload,created_at,processed_at
FROM settlement_records WHERE event_id = ?`, eventID)

	var rec entity.SettlementRecord
	var state string
	var orderID, reason sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(&rec.EventID, &rec.CartID, &rec.CustomerID, &orderID, &state, &reason, &rec.Payload, &rec.CreatedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.State = entity.SettlementState(state)
	rec.OrderID = orderID.String
	rec.FailureReason = reason.String
	if processedAt.Valid {
		rec.ProcessedAt = processedAt.Time
	}
	return &rec, nil
}

func (r *MySQLSettlementRepo) RecordTransfer(ctx context.Context, t entity.TransferAttempt) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO settlement_transfers (event_id,seller_id,amount_cents,currency,idempotency_key,disposition,transfer_id,updated_at)
VALUES (?,?,?,?,?,?,?,NOW())
ON DUPLICATE KEY UPDATE
  disposition = VALUES(disposition),
  transfer_id = VALUES(transfer_id),
  updated_at = NOW()
`, t.EventID, t.SellerID, t.Amount.Cents, t.Amount.Currency, t.IdempotencyKey, string(t.Disposition), nullable(t.TransferID))
	return err
}

// ResolveTransfer settles an UNKNOWN disposition once the gateway reports the
// real outcome. Known dispositions are left alone.
func (r *MySQLSettlementRepo) ResolveTransfer(ctx context.Context, eventID, sellerID, transferID string, d entity.TransferDisposition) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE settlement_transfers SET disposition = ?, transfer_id = ?, updated_at = NOW()
WHERE event_id = ? AND seller_id = ? AND disposition = ?
`, string(d), nullable(transferID), eventID, sellerID, string(entity.TransferUnknown))
	return err
}

func (r *MySQLSettlementRepo) TransfersFor(ctx context.Context, eventID string) ([]entity.TransferAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT event_id,seller_id,amount_cents,currency,idempotency_key,disposition,transfer_id
FROM settlement_transfers WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.TransferAttempt
	for rows.Next() {
		var t entity.TransferAttempt
		var disp string
		var transferID sql.NullString
		if err := rows.Scan(&t.EventID, &t.SellerID, &t.Amount.Cents, &t.Amount.Currency, &t.IdempotencyKey, &disp, &transferID); err != nil {
			return nil, err
		}
		t.Disposition = entity.TransferDisposition(disp)
		t.TransferID = transferID.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ usecase.SettlementRegistry = (*MySQLSettlementRepo)(nil)
