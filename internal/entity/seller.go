package entity

import "github.com/shopspring/decimal"

// SellerAccount is read-only from the settlement engine's point of view: it
// supplies the external account reference that routes a transfer and the
// seller's commission rate, nothing else.
type SellerAccount struct {
	SellerID       string
	AccountRef     string // payment-processor account reference
	Verified       bool
	CommissionRate *decimal.Decimal // nil means use the platform default
}
