package voucher

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/pricing"
)

var (
	// ErrCodeRequired is returned when an empty code is submitted.
	ErrCodeRequired = errors.New("voucher code is required")
	// ErrNotFound is returned when no voucher exists for the code.
	ErrNotFound = errors.New("invalid voucher code")
	// ErrVoucherInactive is returned when the voucher has been switched off.
	ErrVoucherInactive = errors.New("voucher not active")
	// ErrMinimumPurchaseUnmet indicates the cart subtotal is below the voucher requirement.
	ErrMinimumPurchaseUnmet = errors.New("voucher minimum purchase not met")
)

const (
	NewMemberCode        = "NEWMEMBER"
	NewMemberDescription = "New Member Promo"
)

// Rule captures the runtime constraints of a voucher.
type Rule struct {
	Code        string
	Kind        pricing.DiscountKind
	Value       decimal.Decimal
	MinPurchase int64
	Active      bool
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate ensures the rule can be applied to a cart with the given subtotal.
func (r Rule) Validate(subtotal int64) error {
	if !r.Active {
		return ErrVoucherInactive
	}
	if subtotal < r.MinPurchase {
		return &MinimumPurchaseError{MinPurchase: r.MinPurchase}
	}
	return nil
}

// Discount turns the rule into the discount attached to a cart.
func (r Rule) Discount() pricing.Discount {
	return pricing.Discount{
		Kind:        r.Kind,
		Value:       r.Value,
		SourceCode:  r.Code,
		Description: "Voucher " + r.Code,
	}
}

// RuleFromModel converts the stored voucher into a Rule used for evaluation.
func RuleFromModel(v db.Voucher) (Rule, error) {
	kind, err := pricing.ParseKind(v.Type)
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		Code:        NormalizeCode(v.Code),
		Kind:        kind,
		Value:       v.Value,
		MinPurchase: v.MinPurchase,
		Active:      v.IsActive,
	}, nil
}

// NewMemberDiscount returns the automatic promotion for a customer with the
// given number of paid orders, or nil when the customer is not eligible.
func NewMemberDiscount(settings db.StoreSetting, paidOrders int64) (*pricing.Discount, error) {
	if !settings.NewMemberPromoActive || paidOrders > 0 {
		return nil, nil
	}
	kind, err := pricing.ParseKind(settings.NewMemberDiscountType)
	if err != nil {
		return nil, err
	}
	if !settings.NewMemberDiscountValue.IsPositive() {
		return nil, nil
	}
	d := pricing.Discount{
		Kind:        kind,
		Value:       settings.NewMemberDiscountValue,
		SourceCode:  NewMemberCode,
		Description: NewMemberDescription,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
