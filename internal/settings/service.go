package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/cache"
	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/pricing"
)

// Querier reads and writes the single store settings row.
type Querier interface {
	GetStoreSettings(ctx context.Context) (db.StoreSetting, error)
	UpdateStoreSettings(ctx context.Context, arg db.UpdateStoreSettingsParams) (db.StoreSetting, error)
}

// Service serves store settings through a short-lived cache.
type Service struct {
	Q           Querier
	Cache       *cache.JSON
	DefaultRate decimal.Decimal
}

// UpdateInput carries the editable settings.
type UpdateInput struct {
	StoreName              string           `json:"storeName" validate:"required,max=120"`
	StoreAddress           string           `json:"storeAddress" validate:"max=255"`
	NewMemberPromoActive   bool             `json:"newMemberPromoActive"`
	NewMemberDiscountType  string           `json:"newMemberDiscountType" validate:"required,oneof=percent fixed"`
	NewMemberDiscountValue decimal.Decimal  `json:"newMemberDiscountValue"`
	TaxRate                *decimal.Decimal `json:"taxRate"`
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (db.StoreSetting, error) {
	var cached db.StoreSetting
	if ok, err := s.Cache.GetJSON(ctx, cache.KeyStoreSettings, &cached); err == nil && ok {
		return cached, nil
	}
	row, err := s.Q.GetStoreSettings(ctx)
	if err != nil {
		return db.StoreSetting{}, fmt.Errorf("get store settings: %w", err)
	}
	_ = s.Cache.SetJSON(ctx, cache.KeyStoreSettings, row)
	return row, nil
}

// TaxRate returns the store override when set, otherwise the configured default.
func (s *Service) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	row, err := s.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if row.TaxRate != nil {
		return *row.TaxRate, nil
	}
	if s.DefaultRate.IsZero() {
		return pricing.DefaultTaxRate, nil
	}
	return s.DefaultRate, nil
}

// Update validates and persists new settings, then drops the cached copy.
func (s *Service) Update(ctx context.Context, in UpdateInput) (db.StoreSetting, error) {
	in.StoreName = strings.TrimSpace(in.StoreName)
	promo := pricing.Discount{Kind: pricing.DiscountKind(in.NewMemberDiscountType), Value: in.NewMemberDiscountValue}
	if err := promo.Validate(); err != nil {
		return db.StoreSetting{}, common.ValidationError("SETTINGS_INVALID_DISCOUNT", err.Error(), err)
	}
	if in.TaxRate != nil && (in.TaxRate.IsNegative() || in.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1))) {
		return db.StoreSetting{}, common.ValidationError("SETTINGS_INVALID_TAX_RATE", "taxRate must be in [0, 1)", pricing.ErrInvalidTaxRate)
	}
	row, err := s.Q.UpdateStoreSettings(ctx, db.UpdateStoreSettingsParams{
		StoreName:              in.StoreName,
		StoreAddress:           strings.TrimSpace(in.StoreAddress),
		NewMemberPromoActive:   in.NewMemberPromoActive,
		NewMemberDiscountType:  in.NewMemberDiscountType,
		NewMemberDiscountValue: in.NewMemberDiscountValue,
		TaxRate:                in.TaxRate,
	})
	if err != nil {
		return db.StoreSetting{}, fmt.Errorf("update store settings: %w", err)
	}
	_ = s.Cache.Delete(ctx, cache.KeyStoreSettings)
	return row, nil
}
