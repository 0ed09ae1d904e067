package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
)

var ErrNotFound = errors.New("not found")

const settledChannel = "settlement.settled.v1"

// MySQLLedgerRepo owns all writes to carts, orders and order_items. No other
// code path touches payment_status or inserts order rows.
type MySQLLedgerRepo struct{ db *sql.DB }

func NewMySQLLedgerRepo(db *sql.DB) *MySQLLedgerRepo { return &MySQLLedgerRepo{db: db} }

// PromoteCartToOrder runs the whole promotion in one transaction: lock the
// cart row, verify it is still unpaid, insert the order and its snapshotted
// lines, mark the cart paid, bump sell counters, stage the settled event in
// the outbox. A partial write here is the bug class this method exists to
// prevent, so everything commits together or not at all.
func (r *MySQLLedgerRepo) PromoteCartToOrder(ctx context.Context, o *entity.Order, settledEvent []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT payment_status FROM carts WHERE id = ? FOR UPDATE`, o.CartID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("cart %s: %w", o.CartID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if entity.CartStatus(status) == entity.CartPaid {
		return fmt.Errorf("cart %s: %w", o.CartID, usecase.ErrAlreadySettled)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO orders (id,customer_id,cart_id,total_cents,currency,status,created_at)
VALUES (?,?,?,?,?,?,NOW())
`, o.ID, o.CustomerID, o.CartID, o.Total.Cents, o.Total.Currency, string(o.Status)); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, l := range o.Lines {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO order_items (order_id,product_id,seller_id,quantity,unit_price_cents,seller_payout_cents,platform_fee_cents,currency)
VALUES (?,?,?,?,?,?,?,?)
`, o.ID, l.ProductID, l.SellerID, l.Quantity, l.UnitPrice.Cents, l.SellerPayout.Cents, l.PlatformFee.Cents, l.UnitPrice.Currency); err != nil {
			return fmt.Errorf("insert order line %s: %w", l.ProductID, err)
		}

		if _, err := tx.ExecContext(ctx, `
UPDATE products SET sold_count = sold_count + ? WHERE id = ?
`, l.Quantity, l.ProductID); err != nil {
			return fmt.Errorf("bump sell counter %s: %w", l.ProductID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE carts SET payment_status = ?, customer_id = COALESCE(customer_id, ?) WHERE id = ?
`, string(entity.CartPaid), o.CustomerID, o.CartID); err != nil {
		return fmt.Errorf("mark cart paid: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO outbox (channel,payload,status,retry_count,next_attempt_at,created_at)
VALUES (?,?,'PENDING',0,NOW(),NOW())
`, settledChannel, settledEvent); err != nil {
		return fmt.Errorf("stage outbox event: %w", err)
	}

	return tx.Commit()
}

func (r *MySQLLedgerRepo) GetOrderByID(ctx context.Context, id string) (*entity.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,customer_id,cart_id,total_cents,currency,status,created_at
FROM orders WHERE id = ?`, id)

	var o entity.Order
	var status string
	if err := row.Scan(&o.ID, &o.CustomerID, &o.CartID, &o.Total.Cents, &o.Total.Currency, &status, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = entity.OrderStatus(status)

	rows, err := r.db.QueryContext(ctx, `
SELECT product_id,seller_id,quantity,unit_price_cents,seller_payout_cents,platform_fee_cents,currency
FROM order_items WHERE order_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l entity.OrderLine
		var cur string
		if err := rows.Scan(&l.ProductID, &l.SellerID, &l.Quantity, &l.UnitPrice.Cents, &l.SellerPayout.Cents, &l.PlatformFee.Cents, &cur); err != nil {
			return nil, err
		}
		l.UnitPrice.Currency = cur
		l.SellerPayout.Currency = cur
		l.PlatformFee.Currency = cur
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MySQLLedgerRepo) GetOrderByCart(ctx context.Context, cartID string) (*entity.Order, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE cart_id = ?`, cartID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetOrderByID(ctx, id)
}

var _ usecase.LedgerStore = (*MySQLLedgerRepo)(nil)
