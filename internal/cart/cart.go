package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/pricing"
)

var (
	// ErrNotFound indicates the requested cart could not be located.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound indicates the product is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrInvalidQuantity is returned for non-positive quantities on add.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Line is a product snapshot held by the cart. UnitPrice is for display only;
// checkout re-reads prices from the catalog.
type Line struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
}

// Cart is the mutable selection prior to checkout. At most one discount is attached.
type Cart struct {
	ID           uuid.UUID         `json:"id"`
	CustomerID   *uuid.UUID        `json:"customerId,omitempty"`
	Lines        []Line            `json:"lines"`
	Discount     *pricing.Discount `json:"discount,omitempty"`
	VoucherCode  string            `json:"voucherCode,omitempty"`
	VoucherError string            `json:"voucherError,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// New returns an empty cart.
func New(customerID *uuid.UUID) *Cart {
	return &Cart{ID: uuid.New(), CustomerID: customerID, Lines: []Line{}}
}

// Add appends a line, merging quantities when the product is already present.
func (c *Cart) Add(line Line) error {
	if line.Quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == line.ProductID {
			c.Lines[i].Quantity += line.Quantity
			return nil
		}
	}
	c.Lines = append(c.Lines, line)
	return nil
}

// Remove drops the product line. It reports whether a line was removed.
func (c *Cart) Remove(productID uuid.UUID) bool {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateQuantity sets the quantity for a product; qty <= 0 removes the line.
func (c *Cart) UpdateQuantity(productID uuid.UUID, qty int) error {
	if qty <= 0 {
		if !c.Remove(productID) {
			return ErrItemNotFound
		}
		return nil
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity = qty
			return nil
		}
	}
	return ErrItemNotFound
}

// SetDiscount replaces any attached discount.
func (c *Cart) SetDiscount(d *pricing.Discount) {
	c.Discount = d
}

// ClearDiscount detaches the discount and the voucher code.
func (c *Cart) ClearDiscount() {
	c.Discount = nil
	c.VoucherCode = ""
	c.VoucherError = ""
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = []Line{}
	c.ClearDiscount()
}

// PricingLines converts the cart lines for the pricing engine.
func (c *Cart) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, pricing.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return lines
}

// Subtotal sums the displayed line prices.
func (c *Cart) Subtotal() (pricing.Money, error) {
	return pricing.Subtotal(c.PricingLines())
}

// Price runs the pricing engine over the cart.
func (c *Cart) Price(taxRate decimal.Decimal) (pricing.Summary, error) {
	return pricing.Compute(c.PricingLines(), c.Discount, taxRate)
}

// ProductIDs lists the distinct products in the cart.
func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}
