package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/usecase"
	"github.com/google/uuid"
)

var ErrCartClaimed = errors.New("cart already belongs to a customer")

type MySQLCartRepo struct{ db *sql.DB }

func NewMySQLCartRepo(db *sql.DB) *MySQLCartRepo { return &MySQLCartRepo{db: db} }

func (r *MySQLCartRepo) CreateCart(ctx context.Context) (*entity.Cart, error) {
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO carts (id,customer_id,payment_status,created_at) VALUES (?,NULL,?,NOW())
`, id, string(entity.CartUnpaid)); err != nil {
		return nil, err
	}
	return &entity.Cart{ID: id, Status: entity.CartUnpaid}, nil
}

func (r *MySQLCartRepo) GetCart(ctx context.Context, cartID string) (*entity.Cart, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,customer_id,payment_status,created_at FROM carts WHERE id = ?`, cartID)

	var c entity.Cart
	var customer sql.NullString
	var status string
	if err := row.Scan(&c.ID, &customer, &status, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.CustomerID = customer.String
	c.Status = entity.CartStatus(status)

	rows, err := r.db.QueryContext(ctx, `
SELECT cart_id,product_id,quantity FROM cart_items WHERE cart_id = ?`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.CartItem
		if err := rows.Scan(&it.CartID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

// AddItem is a no-op if the product is already in the cart; quantity is fixed
// at 1 per product.
func (r *MySQLCartRepo) AddItem(ctx context.Context, cartID, productID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO cart_items (cart_id,product_id,quantity) VALUES (?,?,1)
ON DUPLICATE KEY UPDATE quantity = quantity
`, cartID, productID)
	return err
}

func (r *MySQLCartRepo) RemoveItem(ctx context.Context, cartID, productID string) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID)
	return err
}

// AttachCustomer transfers ownership with a single guarded mutation; the cart
// row is never copied and an already-claimed cart is left untouched.
func (r *MySQLCartRepo) AttachCustomer(ctx context.Context, cartID, customerID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE carts SET customer_id = ? WHERE id = ? AND customer_id IS NULL
`, customerID, cartID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var existing sql.NullString
		err := r.db.QueryRowContext(ctx, `SELECT customer_id FROM carts WHERE id = ?`, cartID).Scan(&existing)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if existing.Valid && existing.String != customerID {
			return fmt.Errorf("cart %s: %w", cartID, ErrCartClaimed)
		}
	}
	return nil
}

// GetCheckoutLines joins cart items with live catalog prices; settlement
// snapshots come later, from the processor event, not from here.
func (r *MySQLCartRepo) GetCheckoutLines(ctx context.Context, cartID string) ([]usecase.CheckoutLine, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT ci.product_id, p.seller_id, p.name, ci.quantity, p.price_cents, p.currency
FROM cart_items ci JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = ?`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.CheckoutLine
	for rows.Next() {
		var l usecase.CheckoutLine
		if err := rows.Scan(&l.ProductID, &l.SellerID, &l.Name, &l.Quantity, &l.UnitPriceCents, &l.Currency); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

var _ usecase.CartStore = (*MySQLCartRepo)(nil)
