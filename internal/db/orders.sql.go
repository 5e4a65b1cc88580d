package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const orderColumns = `id, customer_id, customer_name, customer_phone, table_number, order_type,
payment_method, payment_status, kitchen_status, subtotal_amount, discount_amount, tax_amount,
final_amount, voucher_code, cash_received, change_amount, gateway_ref, gateway_token,
gateway_redirect_url, paid_at, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.CustomerName,
		&o.CustomerPhone,
		&o.TableNumber,
		&o.OrderType,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.KitchenStatus,
		&o.SubtotalAmount,
		&o.DiscountAmount,
		&o.TaxAmount,
		&o.FinalAmount,
		&o.VoucherCode,
		&o.CashReceived,
		&o.ChangeAmount,
		&o.GatewayRef,
		&o.GatewayToken,
		&o.GatewayRedirectURL,
		&o.PaidAt,
		&o.CreatedBy,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func collectOrders(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
	Close()
}) ([]Order, error) {
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    customer_id, customer_name, customer_phone, table_number, order_type, payment_method,
    payment_status, subtotal_amount, discount_amount, tax_amount, final_amount, voucher_code,
    cash_received, change_amount, paid_at, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	CustomerID     *uuid.UUID
	CustomerName   string
	CustomerPhone  string
	TableNumber    string
	OrderType      OrderType
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	SubtotalAmount int64
	DiscountAmount int64
	TaxAmount      int64
	FinalAmount    int64
	VoucherCode    *string
	CashReceived   *int64
	ChangeAmount   *int64
	PaidAt         *time.Time
	CreatedBy      *uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.CustomerID,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.TableNumber,
		arg.OrderType,
		arg.PaymentMethod,
		arg.PaymentStatus,
		arg.SubtotalAmount,
		arg.DiscountAmount,
		arg.TaxAmount,
		arg.FinalAmount,
		arg.VoucherCode,
		arg.CashReceived,
		arg.ChangeAmount,
		arg.PaidAt,
		arg.CreatedBy,
	))
}

const createOrderLine = `-- name: CreateOrderLine :one
INSERT INTO order_lines (order_id, product_id, name, unit_price, quantity, line_total)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, name, unit_price, quantity, line_total
`

type CreateOrderLineParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	UnitPrice int64
	Quantity  int32
	LineTotal int64
}

func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error) {
	var l OrderLine
	err := q.db.QueryRow(ctx, createOrderLine,
		arg.OrderID,
		arg.ProductID,
		arg.Name,
		arg.UnitPrice,
		arg.Quantity,
		arg.LineTotal,
	).Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Name, &l.UnitPrice, &l.Quantity, &l.LineTotal)
	return l, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrderLines = `-- name: ListOrderLines :many
SELECT id, order_id, product_id, name, unit_price, quantity, line_total
FROM order_lines WHERE order_id = $1 ORDER BY id
`

func (q *Queries) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLines, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Name, &l.UnitPrice, &l.Quantity, &l.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const listOrdersByCustomer = `-- name: ListOrdersByCustomer :many
SELECT ` + orderColumns + ` FROM orders
WHERE customer_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByCustomer, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const countOrdersByCustomer = `-- name: CountOrdersByCustomer :one
SELECT count(*) FROM orders WHERE customer_id = $1
`

func (q *Queries) CountOrdersByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersByCustomer, customerID).Scan(&n)
	return n, err
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text = '' OR payment_status = $1)
  AND created_at >= $2 AND created_at < $3
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	PaymentStatus string
	From          time.Time
	To            time.Time
	Limit         int32
	Offset        int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.PaymentStatus, arg.From, arg.To, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders
WHERE ($1::text = '' OR payment_status = $1)
  AND created_at >= $2 AND created_at < $3
`

func (q *Queries) CountOrders(ctx context.Context, paymentStatus string, from, to time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrders, paymentStatus, from, to).Scan(&n)
	return n, err
}

const listKitchenQueue = `-- name: ListKitchenQueue :many
SELECT ` + orderColumns + ` FROM orders
WHERE payment_status = 'paid' AND kitchen_status IN ('pending', 'cooking')
ORDER BY created_at
LIMIT $1
`

func (q *Queries) ListKitchenQueue(ctx context.Context, limit int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listKitchenQueue, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const updateKitchenStatus = `-- name: UpdateKitchenStatus :one
UPDATE orders SET kitchen_status = $3, updated_at = now()
WHERE id = $1 AND kitchen_status = $2 AND payment_status = 'paid'
RETURNING ` + orderColumns

// UpdateKitchenStatus moves kitchen status from an expected value. It returns
// pgx.ErrNoRows when the row is missing or already moved on.
func (q *Queries) UpdateKitchenStatus(ctx context.Context, id uuid.UUID, from, to KitchenStatus) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateKitchenStatus, id, from, to))
}

const setOrderGateway = `-- name: SetOrderGateway :one
UPDATE orders
SET gateway_ref = $2, gateway_token = $3, gateway_redirect_url = $4, payment_status = 'pending', updated_at = now()
WHERE id = $1 AND payment_status IN ('pending', 'failed')
RETURNING ` + orderColumns

type SetOrderGatewayParams struct {
	ID          uuid.UUID
	Ref         string
	Token       string
	RedirectURL string
}

func (q *Queries) SetOrderGateway(ctx context.Context, arg SetOrderGatewayParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setOrderGateway, arg.ID, arg.Ref, arg.Token, arg.RedirectURL))
}

const markOrderPaymentFailed = `-- name: MarkOrderPaymentFailed :execrows
UPDATE orders SET payment_status = 'failed', updated_at = now()
WHERE id = $1 AND payment_status = 'pending'
`

func (q *Queries) MarkOrderPaymentFailed(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markOrderPaymentFailed, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const applyGatewayStatus = `-- name: ApplyGatewayStatus :one
UPDATE orders
SET payment_status = $2,
    paid_at = CASE WHEN $2 = 'paid' THEN now() ELSE paid_at END,
    updated_at = now()
WHERE id = $1
  AND payment_status NOT IN ('paid', 'cancelled')
  AND payment_status <> $2
RETURNING ` + orderColumns

// ApplyGatewayStatus writes a gateway-driven payment status. Terminal rows and
// rows already holding the status are left untouched and yield pgx.ErrNoRows.
func (q *Queries) ApplyGatewayStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, applyGatewayStatus, id, status))
}

const cancelOrder = `-- name: CancelOrder :one
UPDATE orders SET payment_status = 'cancelled', updated_at = now()
WHERE id = $1 AND payment_status IN ('pending', 'failed')
RETURNING ` + orderColumns

func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, cancelOrder, id))
}

const salesSummary = `-- name: SalesSummary :many
SELECT payment_method, count(*), COALESCE(sum(final_amount), 0)::bigint
FROM orders
WHERE payment_status = 'paid' AND created_at >= $1 AND created_at < $2
GROUP BY payment_method
ORDER BY payment_method
`

type SalesSummaryRow struct {
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Orders        int64         `json:"orders"`
	Revenue       int64         `json:"revenue"`
}

func (q *Queries) SalesSummary(ctx context.Context, from, to time.Time) ([]SalesSummaryRow, error) {
	rows, err := q.db.Query(ctx, salesSummary, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SalesSummaryRow
	for rows.Next() {
		var r SalesSummaryRow
		if err := rows.Scan(&r.PaymentMethod, &r.Orders, &r.Revenue); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
