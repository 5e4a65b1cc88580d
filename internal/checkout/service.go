package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/cart"
	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/events"
	"github.com/noah-isme/kopi-pos/internal/lock"
	"github.com/noah-isme/kopi-pos/internal/obs"
	"github.com/noah-isme/kopi-pos/internal/payment"
	"github.com/noah-isme/kopi-pos/internal/pricing"
	"github.com/noah-isme/kopi-pos/internal/voucher"
)

const maxLineQuantity = 99

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods used inside the submission transaction.
// Satisfied by *db.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, arg db.CreateOrderParams) (db.Order, error)
	CreateOrderLine(ctx context.Context, arg db.CreateOrderLineParams) (db.OrderLine, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db.DBTX) OrderStore

// OrderQuerier covers the writes that happen after the order is committed.
type OrderQuerier interface {
	GetOrder(ctx context.Context, id uuid.UUID) (db.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]db.OrderLine, error)
	SetOrderGateway(ctx context.Context, arg db.SetOrderGatewayParams) (db.Order, error)
	MarkOrderPaymentFailed(ctx context.Context, id uuid.UUID) (int64, error)
}

// PriceList returns authoritative catalog prices for available products.
type PriceList interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]db.Product, error)
}

// DiscountResolver picks the single discount applying to an order.
type DiscountResolver interface {
	Resolve(ctx context.Context, in voucher.Input) (*pricing.Discount, error)
}

// TaxRater reports the active tax rate.
type TaxRater interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// CartSource loads and clears server-held carts.
type CartSource interface {
	Load(ctx context.Context, id uuid.UUID) (*cart.Cart, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Locker serialises submissions for the same cart.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// ItemInput is an inline order line. Any client price is ignored.
type ItemInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1,max=99"`
	Price     *int64    `json:"price,omitempty"`
}

// Input is an order submission. Either CartID or Items must be set.
type Input struct {
	CartID        *uuid.UUID       `json:"cartId"`
	Items         []ItemInput      `json:"items" validate:"omitempty,dive"`
	VoucherCode   string           `json:"voucherCode" validate:"max=40"`
	CustomerID    *uuid.UUID       `json:"customerId"`
	CustomerName  string           `json:"customerName" validate:"max=120"`
	CustomerPhone string           `json:"customerPhone" validate:"max=20"`
	PaymentMethod db.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash qris"`
	OrderType     db.OrderType     `json:"orderType" validate:"omitempty,oneof=dine_in takeaway"`
	TableNumber   string           `json:"tableNumber" validate:"max=10"`
	CashReceived  *int64           `json:"cashReceived" validate:"omitempty,gte=0"`
}

// Actor is who submits the order. Staff submit from the POS; customers from
// the self-order menu and may only pay online.
type Actor struct {
	StaffID    *uuid.UUID
	CustomerID *uuid.UUID
}

// PaymentToken is what the client needs to open the gateway's payment page.
type PaymentToken struct {
	OrderRef    string `json:"orderRef"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
}

// Result is a submitted order.
type Result struct {
	Order   db.Order       `json:"order"`
	Lines   []db.OrderLine `json:"lines"`
	Payment *PaymentToken  `json:"payment,omitempty"`
}

// Service submits orders and mints payment tokens.
type Service struct {
	pool      TxBeginner
	newStore  NewOrderStore
	orders    OrderQuerier
	prices    PriceList
	discounts DiscountResolver
	tax       TaxRater
	carts     CartSource
	gateway   payment.Gateway
	locker    Locker
	lockTTL   time.Duration
	events    events.Emitter
	logger    zerolog.Logger
	now       func() time.Time
}

// Config wires a Service.
type Config struct {
	Pool      TxBeginner
	NewStore  NewOrderStore
	Orders    OrderQuerier
	Prices    PriceList
	Discounts DiscountResolver
	Tax       TaxRater
	Carts     CartSource
	// Gateway may be nil on cash-only deployments.
	Gateway payment.Gateway
	Locker  Locker
	LockTTL time.Duration
	Events  events.Emitter
	Logger  zerolog.Logger
}

// NewService validates the collaborators and builds a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Pool == nil || cfg.NewStore == nil || cfg.Orders == nil {
		return nil, errors.New("checkout: persistence is required")
	}
	if cfg.Prices == nil {
		return nil, errors.New("checkout: price list is required")
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		pool:      cfg.Pool,
		newStore:  cfg.NewStore,
		orders:    cfg.Orders,
		prices:    cfg.Prices,
		discounts: cfg.Discounts,
		tax:       cfg.Tax,
		carts:     cfg.Carts,
		gateway:   cfg.Gateway,
		locker:    cfg.Locker,
		lockTTL:   ttl,
		events:    cfg.Events,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit prices the order from the catalog, persists it and, for online
// payment, mints a gateway token. A gateway failure leaves the order in
// payment status failed and returns an UpstreamError carrying the order id so
// the client can retry payment against the same order.
func (s *Service) Submit(ctx context.Context, actor Actor, in Input) (Result, error) {
	if actor.CustomerID != nil {
		if in.PaymentMethod == db.PaymentMethodCash {
			return Result{}, common.ValidationError("CASH_REQUIRES_CASHIER", "cash payment must be taken at the counter", nil)
		}
		in.CustomerID = actor.CustomerID
	}
	if in.CartID == nil && len(in.Items) == 0 {
		return Result{}, common.ValidationError("EMPTY_ORDER", "order has no items", nil)
	}

	var (
		res Result
		err error
	)
	if s.locker == nil || in.CartID == nil {
		res, err = s.submit(ctx, actor, in)
	} else {
		lockErr := s.locker.WithLock(ctx, "lock:checkout:"+in.CartID.String(), s.lockTTL, func(ctx context.Context) error {
			res, err = s.submit(ctx, actor, in)
			return err
		})
		switch {
		case errors.Is(lockErr, lock.ErrNotAcquired):
			return Result{}, common.ConflictError("CHECKOUT_IN_PROGRESS", "checkout already in progress for this cart", lockErr)
		case lockErr != nil && err == nil:
			// the callback never ran
			return Result{}, common.UpstreamError("CHECKOUT_LOCK_FAILED", "unable to start checkout", http.StatusServiceUnavailable, lockErr)
		}
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.Count(obs.CheckoutTotal, string(in.PaymentMethod), result)
	return res, err
}

type pricedOrder struct {
	lines    []db.CreateOrderLineParams
	summary  pricing.Summary
	discount *pricing.Discount
	rate     decimal.Decimal
}

func (s *Service) submit(ctx context.Context, actor Actor, in Input) (Result, error) {
	var sourceCart *cart.Cart
	if in.CartID != nil {
		if s.carts == nil {
			return Result{}, errors.New("checkout: cart store not configured")
		}
		c, err := s.carts.Load(ctx, *in.CartID)
		if err != nil {
			if errors.Is(err, cart.ErrNotFound) {
				return Result{}, common.NotFoundError("CART_NOT_FOUND", "cart not found", err)
			}
			return Result{}, err
		}
		if len(c.Lines) == 0 {
			return Result{}, common.ValidationError("EMPTY_ORDER", "order has no items", nil)
		}
		sourceCart = c
		in.Items = make([]ItemInput, 0, len(c.Lines))
		for _, l := range c.Lines {
			in.Items = append(in.Items, ItemInput{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		if strings.TrimSpace(in.VoucherCode) == "" {
			in.VoucherCode = c.VoucherCode
		}
		if in.CustomerID == nil {
			in.CustomerID = c.CustomerID
		}
	}

	priced, err := s.price(ctx, in)
	if err != nil {
		return Result{}, err
	}

	params := db.CreateOrderParams{
		CustomerID:     in.CustomerID,
		CustomerName:   strings.TrimSpace(in.CustomerName),
		CustomerPhone:  strings.TrimSpace(in.CustomerPhone),
		TableNumber:    strings.TrimSpace(in.TableNumber),
		OrderType:      orderType(in),
		PaymentMethod:  in.PaymentMethod,
		SubtotalAmount: priced.summary.Subtotal,
		DiscountAmount: priced.summary.Discount,
		TaxAmount:      priced.summary.Tax,
		FinalAmount:    priced.summary.Total,
		CreatedBy:      actor.StaffID,
	}
	if priced.discount != nil && priced.discount.SourceCode != "" && priced.discount.SourceCode != voucher.NewMemberCode {
		code := priced.discount.SourceCode
		params.VoucherCode = &code
	}

	switch in.PaymentMethod {
	case db.PaymentMethodCash:
		if in.CashReceived == nil || *in.CashReceived < priced.summary.Total {
			return Result{}, common.ValidationError("CASH_INSUFFICIENT", "cash received is less than the total", nil).
				WithDetails(map[string]any{"total": priced.summary.Total})
		}
		change := *in.CashReceived - priced.summary.Total
		paidAt := s.now()
		params.PaymentStatus = db.PaymentStatusPaid
		params.CashReceived = in.CashReceived
		params.ChangeAmount = &change
		params.PaidAt = &paidAt
	case db.PaymentMethodQRIS:
		if s.gateway == nil {
			return Result{}, common.ConfigurationError("PAYMENT_NOT_CONFIGURED", "online payment is not available", payment.ErrServerKeyMissing)
		}
		if priced.summary.Total <= 0 {
			return Result{}, common.ValidationError("ZERO_TOTAL", "orders with nothing to pay must be settled at the counter", nil)
		}
		params.PaymentStatus = db.PaymentStatusPending
	default:
		return Result{}, common.ValidationError("INVALID_PAYMENT_METHOD", "unsupported payment method", nil)
	}

	order, lines, err := s.persist(ctx, params, priced.lines)
	if err != nil {
		return Result{}, err
	}
	if sourceCart != nil {
		if err := s.carts.Delete(ctx, sourceCart.ID); err != nil {
			s.logger.Warn().Err(err).Str("cart_id", sourceCart.ID.String()).Msg("cart_cleanup_failed")
		}
	}
	s.emit(ctx, events.TopicOrderCreated, order)
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("payment_method", string(order.PaymentMethod)).
		Int64("final_amount", order.FinalAmount).
		Msg("checkout_submitted")

	res := Result{Order: order, Lines: lines}
	if order.PaymentMethod == db.PaymentMethodCash {
		s.emit(ctx, events.TopicOrderPaid, order)
		return res, nil
	}

	updated, token, err := s.mint(ctx, order, lines, priced.rate)
	if err != nil {
		res.Order.PaymentStatus = db.PaymentStatusFailed
		return res, err
	}
	res.Order = updated
	res.Payment = token
	return res, nil
}

// price re-reads every product from the catalog and resolves the discount
// against the authoritative subtotal.
func (s *Service) price(ctx context.Context, in Input) (pricedOrder, error) {
	quantities := make(map[uuid.UUID]int, len(in.Items))
	order := make([]uuid.UUID, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == uuid.Nil || it.Quantity < 1 {
			return pricedOrder{}, common.ValidationError("INVALID_ITEM", "every item needs a product and a positive quantity", nil)
		}
		if _, seen := quantities[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		quantities[it.ProductID] += it.Quantity
	}

	products, err := s.prices.GetProductsByIDs(ctx, order)
	if err != nil {
		return pricedOrder{}, common.UpstreamError("CATALOG_UNAVAILABLE", "unable to verify product prices", http.StatusInternalServerError, err)
	}
	var missing []string
	lines := make([]db.CreateOrderLineParams, 0, len(order))
	pricingLines := make([]pricing.Line, 0, len(order))
	for _, id := range order {
		p, ok := products[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		qty := quantities[id]
		if qty > maxLineQuantity {
			return pricedOrder{}, common.ValidationError("INVALID_ITEM", fmt.Sprintf("at most %d of %s per order", maxLineQuantity, p.Name), nil)
		}
		lines = append(lines, db.CreateOrderLineParams{
			ProductID: id,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  int32(qty),
			LineTotal: p.Price * int64(qty),
		})
		pricingLines = append(pricingLines, pricing.Line{Quantity: qty, UnitPrice: p.Price})
	}
	if len(missing) > 0 {
		return pricedOrder{}, common.ValidationError("PRODUCT_UNAVAILABLE", "product unavailable", nil).
			WithDetails(map[string]any{"productIds": missing})
	}

	subtotal, err := pricing.Subtotal(pricingLines)
	if err != nil {
		return pricedOrder{}, common.ValidationError("INVALID_ITEM", err.Error(), err)
	}
	var discount *pricing.Discount
	if s.discounts != nil {
		discount, err = s.discounts.Resolve(ctx, voucher.Input{Subtotal: subtotal, CustomerID: in.CustomerID, VoucherCode: in.VoucherCode})
		if err != nil {
			return pricedOrder{}, voucher.AsAppError(err)
		}
	}
	rate, err := s.taxRate(ctx)
	if err != nil {
		return pricedOrder{}, err
	}
	summary, err := pricing.Compute(pricingLines, discount, rate)
	if err != nil {
		return pricedOrder{}, fmt.Errorf("checkout: compute pricing: %w", err)
	}
	return pricedOrder{lines: lines, summary: summary, discount: discount, rate: rate}, nil
}

func (s *Service) persist(ctx context.Context, params db.CreateOrderParams, lines []db.CreateOrderLineParams) (db.Order, []db.OrderLine, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return db.Order{}, nil, persistenceError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	store := s.newStore(tx)
	order, err := store.CreateOrder(ctx, params)
	if err != nil {
		return db.Order{}, nil, persistenceError(err)
	}
	created := make([]db.OrderLine, 0, len(lines))
	for _, l := range lines {
		l.OrderID = order.ID
		line, err := store.CreateOrderLine(ctx, l)
		if err != nil {
			return db.Order{}, nil, persistenceError(err)
		}
		created = append(created, line)
	}
	if err := tx.Commit(ctx); err != nil {
		return db.Order{}, nil, persistenceError(err)
	}
	return order, created, nil
}

// RetryPayment mints a fresh token for a pending or failed online order using
// the persisted amounts. Customers may only retry their own orders.
func (s *Service) RetryPayment(ctx context.Context, actor Actor, orderID uuid.UUID) (Result, error) {
	if s.gateway == nil {
		return Result{}, common.ConfigurationError("PAYMENT_NOT_CONFIGURED", "online payment is not available", payment.ErrServerKeyMissing)
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, orderNotFound(err)
		}
		return Result{}, persistenceError(err)
	}
	if actor.CustomerID != nil && (order.CustomerID == nil || *order.CustomerID != *actor.CustomerID) {
		return Result{}, orderNotFound(nil)
	}
	if order.PaymentMethod != db.PaymentMethodQRIS {
		return Result{}, common.ValidationError("NOT_ONLINE_PAYMENT", "order is not paid online", nil)
	}
	if order.PaymentStatus != db.PaymentStatusPending && order.PaymentStatus != db.PaymentStatusFailed {
		return Result{}, common.ConflictError("ORDER_NOT_PAYABLE", fmt.Sprintf("order is %s", order.PaymentStatus), nil)
	}
	// Refs have second precision and the gateway rejects a reused order_id.
	if order.GatewayRef != nil && *order.GatewayRef == payment.NamespaceOrderRef(order.ID, s.now()) {
		return Result{}, common.ConflictError("PAYMENT_RETRY_TOO_SOON", "payment was just started, retry in a moment", nil)
	}
	lines, err := s.orders.ListOrderLines(ctx, orderID)
	if err != nil {
		return Result{}, persistenceError(err)
	}
	rate, err := s.taxRate(ctx)
	if err != nil {
		return Result{}, err
	}
	updated, token, err := s.mint(ctx, order, lines, rate)
	if err != nil {
		return Result{}, err
	}
	return Result{Order: updated, Lines: lines, Payment: token}, nil
}

// mint requests a token for the persisted order. On failure the order is
// marked failed so it can never be paid against a stale token.
func (s *Service) mint(ctx context.Context, order db.Order, lines []db.OrderLine, rate decimal.Decimal) (db.Order, *PaymentToken, error) {
	ref := payment.NamespaceOrderRef(order.ID, s.now())
	req := payment.TransactionRequest{
		OrderRef:    ref,
		OrderID:     order.ID.String(),
		GrossAmount: order.FinalAmount,
		Items:       GatewayItems(order, lines, pricing.TaxLabel(rate)),
		Customer:    customerDetails(order),
	}
	res, err := s.gateway.CreateTransaction(ctx, req)
	if err != nil {
		obs.Count(obs.PaymentTokenTotal, "error")
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Str("order_ref", ref).Msg("payment_token_failed")
		if _, markErr := s.orders.MarkOrderPaymentFailed(ctx, order.ID); markErr != nil {
			s.logger.Error().Err(markErr).Str("order_id", order.ID.String()).Msg("payment_mark_failed_error")
		}
		order.PaymentStatus = db.PaymentStatusFailed
		s.emit(ctx, events.TopicPaymentFailed, order)
		return order, nil, common.UpstreamError("PAYMENT_GATEWAY_FAILED", "unable to start payment, please retry", http.StatusBadGateway, err).
			WithDetails(map[string]any{"orderId": order.ID.String()})
	}
	obs.Count(obs.PaymentTokenTotal, "ok")

	updated, err := s.orders.SetOrderGateway(ctx, db.SetOrderGatewayParams{
		ID:          order.ID,
		Ref:         ref,
		Token:       res.Token,
		RedirectURL: res.RedirectURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, nil, common.ConflictError("ORDER_NOT_PAYABLE", "order changed while starting payment", err)
		}
		return order, nil, persistenceError(err)
	}
	s.logger.Info().Str("order_id", order.ID.String()).Str("order_ref", ref).Msg("payment_token_minted")
	return updated, &PaymentToken{OrderRef: ref, Token: res.Token, RedirectURL: res.RedirectURL}, nil
}

// GatewayItems builds the gateway item list. A negative discount line and a
// tax line keep the item sum equal to the order's final amount.
func GatewayItems(order db.Order, lines []db.OrderLine, taxLabel string) []payment.Item {
	items := make([]payment.Item, 0, len(lines)+2)
	for _, l := range lines {
		items = append(items, payment.Item{
			ID:       l.ProductID.String(),
			Price:    l.UnitPrice,
			Quantity: int(l.Quantity),
			Name:     l.Name,
		})
	}
	if order.DiscountAmount > 0 {
		items = append(items, payment.Item{ID: "DISCOUNT", Price: -order.DiscountAmount, Quantity: 1, Name: "Discount"})
	}
	if order.TaxAmount > 0 {
		items = append(items, payment.Item{ID: "TAX", Price: order.TaxAmount, Quantity: 1, Name: taxLabel})
	}
	return items
}

func customerDetails(order db.Order) payment.CustomerDetails {
	name := order.CustomerName
	if name == "" {
		name = "Guest"
	}
	if order.OrderType == db.OrderTypeTakeaway {
		name += " (Takeaway)"
	} else if order.TableNumber != "" {
		name += " (Table " + order.TableNumber + ")"
	}
	return payment.CustomerDetails{FirstName: name, Phone: order.CustomerPhone}
}

func orderType(in Input) db.OrderType {
	if in.OrderType != "" {
		return in.OrderType
	}
	if strings.TrimSpace(in.TableNumber) != "" {
		return db.OrderTypeDineIn
	}
	return db.OrderTypeTakeaway
}

func (s *Service) taxRate(ctx context.Context) (decimal.Decimal, error) {
	if s.tax == nil {
		return pricing.DefaultTaxRate, nil
	}
	rate, err := s.tax.TaxRate(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("checkout: tax rate: %w", err)
	}
	return rate, nil
}

func (s *Service) emit(ctx context.Context, topic string, order db.Order) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, topic, order.ID, payment.OrderEvent(order)); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Str("topic", topic).Msg("order_event_failed")
	}
}

func persistenceError(err error) error {
	return common.UpstreamError("ORDER_PERSIST_FAILED", "unable to save order", http.StatusInternalServerError, err)
}

func orderNotFound(err error) error {
	return common.NotFoundError("ORDER_NOT_FOUND", "order not found", err)
}
