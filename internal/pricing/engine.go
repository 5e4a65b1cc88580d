package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// DefaultTaxRate is the flat consumption tax applied to every order.
var DefaultTaxRate = decimal.RequireFromString("0.11")

var (
	ErrInvalidQuantity = errors.New("pricing: quantity must be at least 1")
	ErrNegativePrice   = errors.New("pricing: unit price must not be negative")
	ErrInvalidTaxRate  = errors.New("pricing: tax rate must be within [0, 1)")
)

// Line describes a line item used for pricing calculation.
type Line struct {
	Quantity  int
	UnitPrice Money
}

// Summary aggregates computed pricing components. Every field is already
// rounded to whole minor units and Total = Taxable + Tax holds exactly.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discountAmount"`
	Taxable  Money `json:"taxable"`
	Tax      Money `json:"taxAmount"`
	Total    Money `json:"total"`
}

// Compute prices lines with an optional discount and the given tax rate.
func Compute(lines []Line, discount *Discount, taxRate decimal.Decimal) (Summary, error) {
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Summary{}, ErrInvalidTaxRate
	}
	subtotal, err := Subtotal(lines)
	if err != nil {
		return Summary{}, err
	}
	var off Money
	if discount != nil {
		if err := discount.Validate(); err != nil {
			return Summary{}, err
		}
		off = discount.Amount(subtotal)
	}
	taxable := subtotal - off
	if taxable < 0 {
		taxable = 0
	}
	tax := Tax(taxable, taxRate)
	total := taxable + tax
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: off,
		Taxable:  taxable,
		Tax:      tax,
		Total:    total,
	}, nil
}

// Subtotal sums unit price times quantity over lines.
func Subtotal(lines []Line) (Money, error) {
	var subtotal Money
	for _, l := range lines {
		if l.Quantity < 1 {
			return 0, ErrInvalidQuantity
		}
		if l.UnitPrice < 0 {
			return 0, ErrNegativePrice
		}
		subtotal += Money(l.Quantity) * l.UnitPrice
	}
	return subtotal, nil
}

// Tax returns round(taxable * rate) with halves rounded away from zero.
func Tax(taxable Money, rate decimal.Decimal) Money {
	if taxable <= 0 {
		return 0
	}
	return decimal.NewFromInt(taxable).Mul(rate).Round(0).IntPart()
}

// TaxLabel renders the rate for receipts and gateway item lists, e.g. "Tax (11%)".
func TaxLabel(rate decimal.Decimal) string {
	return "Tax (" + rate.Mul(decimal.NewFromInt(100)).String() + "%)"
}
