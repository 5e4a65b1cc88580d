package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const voucherColumns = `id, code, type, value, min_purchase, is_active, created_at`

func scanVoucher(row interface{ Scan(...any) error }) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.Code, &v.Type, &v.Value, &v.MinPurchase, &v.IsActive, &v.CreatedAt)
	return v, err
}

const getVoucherByCode = `-- name: GetVoucherByCode :one
SELECT ` + voucherColumns + ` FROM vouchers WHERE code = upper($1)
`

// GetVoucherByCode matches case-insensitively; inactive vouchers are returned
// so callers can tell "inactive" apart from "not found".
func (q *Queries) GetVoucherByCode(ctx context.Context, code string) (Voucher, error) {
	return scanVoucher(q.db.QueryRow(ctx, getVoucherByCode, code))
}

const listVouchers = `-- name: ListVouchers :many
SELECT ` + voucherColumns + ` FROM vouchers ORDER BY created_at DESC
`

func (q *Queries) ListVouchers(ctx context.Context) ([]Voucher, error) {
	rows, err := q.db.Query(ctx, listVouchers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const createVoucher = `-- name: CreateVoucher :one
INSERT INTO vouchers (code, type, value, min_purchase, is_active)
VALUES (upper($1), $2, $3, $4, $5)
RETURNING ` + voucherColumns

type CreateVoucherParams struct {
	Code        string
	Type        string
	Value       decimal.Decimal
	MinPurchase int64
	IsActive    bool
}

func (q *Queries) CreateVoucher(ctx context.Context, arg CreateVoucherParams) (Voucher, error) {
	return scanVoucher(q.db.QueryRow(ctx, createVoucher, arg.Code, arg.Type, arg.Value, arg.MinPurchase, arg.IsActive))
}

const setVoucherActive = `-- name: SetVoucherActive :one
UPDATE vouchers SET is_active = $2 WHERE id = $1
RETURNING ` + voucherColumns

func (q *Queries) SetVoucherActive(ctx context.Context, id uuid.UUID, active bool) (Voucher, error) {
	return scanVoucher(q.db.QueryRow(ctx, setVoucherActive, id, active))
}

const deleteVoucher = `-- name: DeleteVoucher :execrows
DELETE FROM vouchers WHERE id = $1
`

func (q *Queries) DeleteVoucher(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteVoucher, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
