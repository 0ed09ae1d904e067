package entity

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderFailed    OrderStatus = "FAILED"
)

var ErrInvalidOrder = errors.New("invalid order")

// Order is created exactly once per settled cart. Total always equals the sum
// of its line amounts; prices are snapshots taken at settlement time and are
// never recomputed from the live catalog.
type Order struct {
	ID         string
	CustomerID string
	CartID     string
	Total      Money
	Status     OrderStatus
	CreatedAt  time.Time
	Lines      []OrderLine
}

// OrderLine is immutable once written. UnitPrice, SellerPayout and
// PlatformFee are snapshotted amounts, not catalog references.
type OrderLine struct {
	ProductID    string
	SellerID     string
	Quantity     int
	UnitPrice    Money
	SellerPayout Money
	PlatformFee  Money
}

// Amount is quantity times the snapshotted unit price.
func (l OrderLine) Amount() Money {
	return Money{Cents: l.UnitPrice.Cents * int64(l.Quantity), Currency: l.UnitPrice.Currency}
}

func (o *Order) Validate() error {
	if len(o.Lines) == 0 {
		return errors.New("order has no lines")
	}
	sum := Money{Currency: o.Total.Currency}
	for _, l := range o.Lines {
		var err error
		sum, err = sum.Add(l.Amount())
		if err != nil {
			return err
		}
	}
	if sum.Cents != o.Total.Cents {
		return errors.New("order total does not match line amounts")
	}
	return nil
}
