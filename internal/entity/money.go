package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrBadAmount        = errors.New("bad amount")
)

// Money is an integer amount of minor units (cents) in a single currency.
// Amounts never pass through a binary float; parsing and rate math go
// through decimal, and the stored value is always an int64 of minor units.
type Money struct {
	Cents    int64
	Currency string
}

var minorFactor = decimal.NewFromInt(100)

// FromMajorUnits parses a decimal string like "19.99" into minor units.
// Anything that does not land exactly on a minor unit is rejected.
func FromMajorUnits(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrBadAmount, amount)
	}
	cents := d.Mul(minorFactor)
	if !cents.IsInteger() {
		return Money{}, fmt.Errorf("%w: %q has sub-cent precision", ErrBadAmount, amount)
	}
	if currency == "" {
		return Money{}, fmt.Errorf("%w: empty currency", ErrBadAmount)
	}
	return Money{Cents: cents.IntPart(), Currency: currency}, nil
}

// MultiplyByRate scales the amount by rate, rounding toward zero.
// The floor keeps the derived part from ever exceeding its share; the
// remainder belongs to whichever side is computed by subtraction.
func (m Money) MultiplyByRate(rate decimal.Decimal) Money {
	cents := decimal.NewFromInt(m.Cents).Mul(rate).Floor()
	return Money{Cents: cents.IntPart(), Currency: m.Currency}
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Cents: m.Cents - other.Cents, Currency: m.Currency}, nil
}

func (m Money) IsNonNegative() bool { return m.Cents >= 0 }

func (m Money) IsPositive() bool { return m.Cents > 0 }

func (m Money) String() string {
	return fmt.Sprintf("%s %d.%02d", m.Currency, m.Cents/100, m.Cents%100)
}
