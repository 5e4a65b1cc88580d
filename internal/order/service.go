// Package order serves order tracking, cancellation, the kitchen queue and the
// admin transaction list.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/events"
	"github.com/noah-isme/kopi-pos/internal/payment"
)

const kitchenQueueLimit = 100

// Querier lists the order queries used here.
type Querier interface {
	GetOrder(ctx context.Context, id uuid.UUID) (db.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]db.OrderLine, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int32) ([]db.Order, error)
	CountOrdersByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
	ListOrders(ctx context.Context, arg db.ListOrdersParams) ([]db.Order, error)
	CountOrders(ctx context.Context, paymentStatus string, from, to time.Time) (int64, error)
	ListKitchenQueue(ctx context.Context, limit int32) ([]db.Order, error)
	UpdateKitchenStatus(ctx context.Context, id uuid.UUID, from, to db.KitchenStatus) (db.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (db.Order, error)
}

// Service implements order reads and state changes outside of payment.
type Service struct {
	Q      Querier
	Events events.Emitter
	Logger zerolog.Logger
}

// Detail is an order with its lines.
type Detail struct {
	db.Order
	Lines []db.OrderLine `json:"lines"`
}

// Filter narrows the admin transaction list. Zero times are open bounds.
type Filter struct {
	PaymentStatus db.PaymentStatus
	From          time.Time
	To            time.Time
	Page          int
	PerPage       int
}

// Page is a slice of orders plus the total matching count.
type Page struct {
	Orders []db.Order `json:"orders"`
	Total  int64      `json:"total"`
}

var kitchenRank = map[db.KitchenStatus]int{
	db.KitchenStatusPending: 0,
	db.KitchenStatusCooking: 1,
	db.KitchenStatusReady:   2,
	db.KitchenStatusServed:  3,
}

// ParseKitchenStatus validates a kitchen status string.
func ParseKitchenStatus(v string) (db.KitchenStatus, bool) {
	s := db.KitchenStatus(v)
	_, ok := kitchenRank[s]
	return s, ok
}

// ParsePaymentStatus validates a payment status filter. Empty means any.
func ParsePaymentStatus(v string) (db.PaymentStatus, bool) {
	switch s := db.PaymentStatus(v); s {
	case "", db.PaymentStatusPending, db.PaymentStatusPaid, db.PaymentStatusCancelled,
		db.PaymentStatusChallenge, db.PaymentStatusFailed:
		return s, true
	}
	return "", false
}

// Get returns an order with lines. A non-nil customerID restricts the lookup
// to that customer's orders; foreign orders look missing.
func (s *Service) Get(ctx context.Context, id uuid.UUID, customerID *uuid.UUID) (Detail, error) {
	o, err := s.load(ctx, id, customerID)
	if err != nil {
		return Detail{}, err
	}
	lines, err := s.Q.ListOrderLines(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("order: list lines: %w", err)
	}
	if lines == nil {
		lines = []db.OrderLine{}
	}
	return Detail{Order: o, Lines: lines}, nil
}

// ListForCustomer returns one page of the customer's orders, newest first,
// with the count across all pages.
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID, page, perPage int) (Page, error) {
	total, err := s.Q.CountOrdersByCustomer(ctx, customerID)
	if err != nil {
		return Page{}, fmt.Errorf("order: count by customer: %w", err)
	}
	orders, err := s.Q.ListOrdersByCustomer(ctx, customerID, int32(perPage), int32(common.Offset(page, perPage)))
	if err != nil {
		return Page{}, fmt.Errorf("order: list by customer: %w", err)
	}
	if orders == nil {
		orders = []db.Order{}
	}
	return Page{Orders: orders, Total: total}, nil
}

// Cancel cancels an unpaid order. Paid, challenged and already cancelled
// orders are rejected with a ConflictError.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, customerID *uuid.UUID) (db.Order, error) {
	current, err := s.load(ctx, id, customerID)
	if err != nil {
		return db.Order{}, err
	}
	if current.PaymentStatus != db.PaymentStatusPending && current.PaymentStatus != db.PaymentStatusFailed {
		return db.Order{}, notCancellable(current.PaymentStatus, nil)
	}
	o, err := s.Q.CancelOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// settled between the read and the write
			return db.Order{}, notCancellable(current.PaymentStatus, err)
		}
		return db.Order{}, fmt.Errorf("order: cancel: %w", err)
	}
	s.Logger.Info().Str("order_id", id.String()).Msg("order_cancelled")
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicOrderCancelled, o.ID, payment.OrderEvent(o)); err != nil {
			s.Logger.Error().Err(err).Str("order_id", id.String()).Msg("order_event_failed")
		}
	}
	return o, nil
}

// KitchenQueue returns paid orders still pending or cooking, oldest first.
func (s *Service) KitchenQueue(ctx context.Context) ([]Detail, error) {
	orders, err := s.Q.ListKitchenQueue(ctx, kitchenQueueLimit)
	if err != nil {
		return nil, fmt.Errorf("order: kitchen queue: %w", err)
	}
	out := make([]Detail, 0, len(orders))
	for _, o := range orders {
		lines, err := s.Q.ListOrderLines(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("order: list lines: %w", err)
		}
		out = append(out, Detail{Order: o, Lines: lines})
	}
	return out, nil
}

// AdvanceKitchen moves the kitchen status forward. Only paid orders reach the
// kitchen, and a status can never move back.
func (s *Service) AdvanceKitchen(ctx context.Context, id uuid.UUID, to db.KitchenStatus) (db.Order, error) {
	target, ok := kitchenRank[to]
	if !ok {
		return db.Order{}, common.ValidationError("INVALID_STATUS", "unsupported kitchen status", nil)
	}
	current, err := s.load(ctx, id, nil)
	if err != nil {
		return db.Order{}, err
	}
	if current.PaymentStatus != db.PaymentStatusPaid {
		return db.Order{}, common.ConflictError("ORDER_NOT_PAID", "only paid orders can be prepared", nil)
	}
	if kitchenRank[current.KitchenStatus] >= target {
		return db.Order{}, common.ConflictError("INVALID_STATE", fmt.Sprintf("order is already %s", current.KitchenStatus), nil)
	}
	o, err := s.Q.UpdateKitchenStatus(ctx, id, current.KitchenStatus, to)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Order{}, common.ConflictError("INVALID_STATE", "order changed, reload the queue", err)
		}
		return db.Order{}, fmt.Errorf("order: update kitchen status: %w", err)
	}
	s.Logger.Info().Str("order_id", id.String()).Str("kitchen_status", string(to)).Msg("kitchen_status_changed")
	return o, nil
}

// List returns the admin transaction list.
func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	from, to := f.From, f.To
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().Add(24 * time.Hour)
	}
	if !to.After(from) {
		return Page{}, common.ValidationError("INVALID_RANGE", "to must be after from", nil)
	}
	status := string(f.PaymentStatus)
	total, err := s.Q.CountOrders(ctx, status, from, to)
	if err != nil {
		return Page{}, fmt.Errorf("order: count: %w", err)
	}
	orders, err := s.Q.ListOrders(ctx, db.ListOrdersParams{
		PaymentStatus: status,
		From:          from,
		To:            to,
		Limit:         int32(f.PerPage),
		Offset:        int32(common.Offset(f.Page, f.PerPage)),
	})
	if err != nil {
		return Page{}, fmt.Errorf("order: list: %w", err)
	}
	if orders == nil {
		orders = []db.Order{}
	}
	return Page{Orders: orders, Total: total}, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID, customerID *uuid.UUID) (db.Order, error) {
	o, err := s.Q.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Order{}, notFound(err)
		}
		return db.Order{}, fmt.Errorf("order: get: %w", err)
	}
	if customerID != nil && (o.CustomerID == nil || *o.CustomerID != *customerID) {
		return db.Order{}, notFound(nil)
	}
	return o, nil
}

func notFound(err error) error {
	return common.NotFoundError("ORDER_NOT_FOUND", "order not found", err)
}

func notCancellable(status db.PaymentStatus, err error) error {
	return common.ConflictError("INVALID_STATE", fmt.Sprintf("order is %s and can no longer be cancelled", status), err)
}
