package repo

import (
	"context"
	"database/sql"
	"time"
)

// OutboxEvent is one staged message awaiting publication.
type OutboxEvent struct {
	ID      int64
	Channel string
	Payload []byte
}

// MySQLOutboxRepo reads and finalizes outbox rows for the poller. Rows are
// inserted by MySQLLedgerRepo inside the promotion transaction.
type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

func (r *MySQLOutboxRepo) FetchPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,channel,payload FROM outbox
WHERE status = 'PENDING' AND next_attempt_at <= NOW()
ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OutboxEvent
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.Channel, &ev.Payload); err != nil {
			return nil, err
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status = 'PROCESSED' WHERE id = ?`, id)
	return err
}

// Reschedule pushes a failed publish into the future with a linear backoff.
func (r *MySQLOutboxRepo) Reschedule(ctx context.Context, id int64, delay time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET retry_count = retry_count + 1, next_attempt_at = DATE_ADD(NOW(), INTERVAL ? SECOND)
WHERE id = ?`, int(delay.Seconds()), id)
	return err
}
