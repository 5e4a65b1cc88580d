package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DiscountKind selects how a discount value is interpreted.
type DiscountKind string

const (
	KindPercent DiscountKind = "percent"
	KindFixed   DiscountKind = "fixed"
)

var (
	ErrUnknownDiscountKind = errors.New("pricing: unknown discount kind")
	ErrInvalidDiscount     = errors.New("pricing: discount value out of range")
)

var hundred = decimal.NewFromInt(100)

// Discount is a resolved discount definition. Only the currency amount it
// produces is ever recorded on an order.
type Discount struct {
	Kind        DiscountKind    `json:"kind"`
	Value       decimal.Decimal `json:"value"`
	SourceCode  string          `json:"sourceCode"`
	Description string          `json:"description"`
}

// Validate checks the kind and bounds of the value.
func (d Discount) Validate() error {
	switch d.Kind {
	case KindPercent:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return ErrInvalidDiscount
		}
	case KindFixed:
		if d.Value.IsNegative() {
			return ErrInvalidDiscount
		}
	default:
		return ErrUnknownDiscountKind
	}
	return nil
}

// Amount returns the currency amount taken off subtotal, clamped to [0, subtotal].
func (d Discount) Amount(subtotal Money) Money {
	if subtotal <= 0 {
		return 0
	}
	var amount Money
	switch d.Kind {
	case KindPercent:
		amount = decimal.NewFromInt(subtotal).Mul(d.Value).Div(hundred).Round(0).IntPart()
	case KindFixed:
		amount = d.Value.Round(0).IntPart()
	}
	if amount < 0 {
		return 0
	}
	if amount > subtotal {
		return subtotal
	}
	return amount
}

// ParseKind maps a stored discount type to a DiscountKind.
func ParseKind(value string) (DiscountKind, error) {
	switch DiscountKind(value) {
	case KindPercent, KindFixed:
		return DiscountKind(value), nil
	}
	return "", ErrUnknownDiscountKind
}
