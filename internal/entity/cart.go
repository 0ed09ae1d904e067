package entity

import "time"

type CartStatus string

const (
	CartUnpaid CartStatus = "unpaid"
	CartPaid   CartStatus = "paid"
)

// Cart is a pre-checkout basket. CustomerID stays empty until the shopper
// authenticates; claiming is a single mutation on the existing row, never a
// copy. Only the settlement path flips Status to paid.
type Cart struct {
	ID         string
	CustomerID string // empty until claimed
	Status     CartStatus
	CreatedAt  time.Time
	Items      []CartItem
}

// CartItem quantity is fixed at 1 per product in this domain; adding the same
// product twice is a no-op.
type CartItem struct {
	CartID    string
	ProductID string
	Quantity  int
}
