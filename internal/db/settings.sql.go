package db

import (
	"context"

	"github.com/shopspring/decimal"
)

const getStoreSettings = `-- name: GetStoreSettings :one
SELECT store_name, store_address, new_member_promo_active, new_member_discount_type,
       new_member_discount_value, tax_rate, updated_at
FROM store_settings WHERE id = 1
`

func (q *Queries) GetStoreSettings(ctx context.Context) (StoreSetting, error) {
	var s StoreSetting
	var rate decimal.NullDecimal
	err := q.db.QueryRow(ctx, getStoreSettings).Scan(
		&s.StoreName,
		&s.StoreAddress,
		&s.NewMemberPromoActive,
		&s.NewMemberDiscountType,
		&s.NewMemberDiscountValue,
		&rate,
		&s.UpdatedAt,
	)
	if rate.Valid {
		s.TaxRate = &rate.Decimal
	}
	return s, err
}

const updateStoreSettings = `-- name: UpdateStoreSettings :one
UPDATE store_settings
SET store_name = $1, store_address = $2, new_member_promo_active = $3,
    new_member_discount_type = $4, new_member_discount_value = $5, tax_rate = $6, updated_at = now()
WHERE id = 1
RETURNING updated_at
`

type UpdateStoreSettingsParams struct {
	StoreName              string
	StoreAddress           string
	NewMemberPromoActive   bool
	NewMemberDiscountType  string
	NewMemberDiscountValue decimal.Decimal
	TaxRate                *decimal.Decimal
}

func (q *Queries) UpdateStoreSettings(ctx context.Context, arg UpdateStoreSettingsParams) (StoreSetting, error) {
	rate := decimal.NullDecimal{}
	if arg.TaxRate != nil {
		rate = decimal.NullDecimal{Decimal: *arg.TaxRate, Valid: true}
	}
	s := StoreSetting{
		StoreName:              arg.StoreName,
		StoreAddress:           arg.StoreAddress,
		NewMemberPromoActive:   arg.NewMemberPromoActive,
		NewMemberDiscountType:  arg.NewMemberDiscountType,
		NewMemberDiscountValue: arg.NewMemberDiscountValue,
		TaxRate:                arg.TaxRate,
	}
	err := q.db.QueryRow(ctx, updateStoreSettings,
		arg.StoreName,
		arg.StoreAddress,
		arg.NewMemberPromoActive,
		arg.NewMemberDiscountType,
		arg.NewMemberDiscountValue,
		rate,
	).Scan(&s.UpdatedAt)
	return s, err
}
