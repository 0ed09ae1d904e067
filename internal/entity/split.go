package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidRate = errors.New("commission rate outside [0,1]")

// Split is the division of one line total between seller and platform.
type Split struct {
	SellerPayout Money
	PlatformFee  Money
}

// ComputeSplit divides lineTotal by the commission rate.
// The fee is floored and the payout is the remainder, so
// SellerPayout + PlatformFee == lineTotal holds exactly for every input;
// computing the two sides independently would leak pennies on rounding.
func ComputeSplit(lineTotal Money, rate decimal.Decimal) (Split, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Split{}, fmt.Errorf("%w: %s", ErrInvalidRate, rate)
	}
	if !lineTotal.IsNonNegative() {
		return Split{}, fmt.Errorf("%w: negative line total %s", ErrBadAmount, lineTotal)
	}

	fee := lineTotal.MultiplyByRate(rate)
	payout, err := lineTotal.Sub(fee)
	if err != nil {
		return Split{}, err
	}
	return Split{SellerPayout: payout, PlatformFee: fee}, nil
}
