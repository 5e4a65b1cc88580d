package db

import (
	"context"

	"github.com/google/uuid"
)

const customerColumns = `id, name, phone, points, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Points, &c.CreatedAt)
	return c, err
}

const getCustomerByPhone = `-- name: GetCustomerByPhone :one
SELECT ` + customerColumns + ` FROM customers WHERE phone = $1
`

func (q *Queries) GetCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByPhone, phone))
}

const getCustomer = `-- name: GetCustomer :one
SELECT ` + customerColumns + ` FROM customers WHERE id = $1
`

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomer, id))
}

const upsertCustomer = `-- name: UpsertCustomer :one
INSERT INTO customers (name, phone) VALUES ($1, $2)
ON CONFLICT (phone) DO UPDATE SET name = CASE WHEN EXCLUDED.name = '' THEN customers.name ELSE EXCLUDED.name END
RETURNING ` + customerColumns

// UpsertCustomer finds a customer by phone or creates one with zero points.
func (q *Queries) UpsertCustomer(ctx context.Context, name, phone string) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, upsertCustomer, name, phone))
}

const countPaidOrdersByCustomer = `-- name: CountPaidOrdersByCustomer :one
SELECT count(*) FROM orders WHERE customer_id = $1 AND payment_status = 'paid'
`

func (q *Queries) CountPaidOrdersByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPaidOrdersByCustomer, customerID).Scan(&n)
	return n, err
}

const awardOrderPoints = `-- name: AwardOrderPoints :one
WITH claimed AS (
    UPDATE orders SET points_awarded = true
    WHERE id = $1 AND payment_status = 'paid' AND customer_id IS NOT NULL AND NOT points_awarded
    RETURNING customer_id, final_amount / $2::bigint AS points
)
UPDATE customers c SET points = c.points + claimed.points
FROM claimed
WHERE c.id = claimed.customer_id
RETURNING c.id, claimed.points, c.points
`

type AwardOrderPointsRow struct {
	CustomerID uuid.UUID
	Awarded    int64
	Balance    int64
}

// AwardOrderPoints credits floor(final_amount / unit) points for a paid order
// exactly once. It returns pgx.ErrNoRows when the order is unpaid, has no
// customer, or was already credited.
func (q *Queries) AwardOrderPoints(ctx context.Context, orderID uuid.UUID, unit int64) (AwardOrderPointsRow, error) {
	var r AwardOrderPointsRow
	err := q.db.QueryRow(ctx, awardOrderPoints, orderID, unit).Scan(&r.CustomerID, &r.Awarded, &r.Balance)
	return r, err
}
