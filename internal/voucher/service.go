package voucher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/pricing"
)

// Querier captures the database methods required by discount resolution.
type Querier interface {
	GetVoucherByCode(ctx context.Context, code string) (db.Voucher, error)
	CountPaidOrdersByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
}

// SettingsReader provides the store-wide promotion switches.
type SettingsReader interface {
	Get(ctx context.Context) (db.StoreSetting, error)
}

// Input is what discount resolution needs to know about a cart.
type Input struct {
	Subtotal    int64
	CustomerID  *uuid.UUID
	VoucherCode string
}

// Service decides which single discount applies to a cart.
type Service struct {
	Q        Querier
	Settings SettingsReader
}

// Resolve returns the discount for the cart. An explicit voucher code takes
// precedence and its rejection is returned as an error; without a code the
// new member promotion is evaluated and a nil discount means none applies.
func (s *Service) Resolve(ctx context.Context, in Input) (*pricing.Discount, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("voucher service not configured")
	}
	if NormalizeCode(in.VoucherCode) != "" {
		d, err := s.Voucher(ctx, in.VoucherCode, in.Subtotal)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}
	return s.Promotion(ctx, in.CustomerID)
}

// Voucher looks up and validates a voucher code against the cart subtotal.
func (s *Service) Voucher(ctx context.Context, code string, subtotal int64) (pricing.Discount, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return pricing.Discount{}, ErrCodeRequired
	}
	v, err := s.Q.GetVoucherByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Discount{}, ErrNotFound
		}
		return pricing.Discount{}, fmt.Errorf("lookup voucher: %w", err)
	}
	rule, err := RuleFromModel(v)
	if err != nil {
		return pricing.Discount{}, fmt.Errorf("voucher %s: %w", normalized, err)
	}
	if err := rule.Validate(subtotal); err != nil {
		return pricing.Discount{}, err
	}
	d := rule.Discount()
	if err := d.Validate(); err != nil {
		return pricing.Discount{}, fmt.Errorf("voucher %s: %w", normalized, err)
	}
	return d, nil
}

// Promotion evaluates the automatic new member promotion. Anonymous carts
// never qualify because their order history is unknown.
func (s *Service) Promotion(ctx context.Context, customerID *uuid.UUID) (*pricing.Discount, error) {
	if customerID == nil || s.Settings == nil {
		return nil, nil
	}
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store settings: %w", err)
	}
	if !settings.NewMemberPromoActive {
		return nil, nil
	}
	paid, err := s.Q.CountPaidOrdersByCustomer(ctx, *customerID)
	if err != nil {
		return nil, fmt.Errorf("count paid orders: %w", err)
	}
	return NewMemberDiscount(settings, paid)
}
