package checkout

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kopi-pos/internal/cart"
	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/events"
	"github.com/noah-isme/kopi-pos/internal/lock"
	"github.com/noah-isme/kopi-pos/internal/payment"
	"github.com/noah-isme/kopi-pos/internal/pricing"
	"github.com/noah-isme/kopi-pos/internal/voucher"
)

// mockTx implements pgx.Tx with only the methods we need.
type mockTx struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// memOrders backs both the in-transaction store and the post-commit querier.
// The gateway and failure writes mirror the SQL status guards.
type memOrders struct {
	orders      map[uuid.UUID]db.Order
	lines       map[uuid.UUID][]db.OrderLine
	createCalls int
	createErr   error
	nextLine    int64
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[uuid.UUID]db.Order{}, lines: map[uuid.UUID][]db.OrderLine{}}
}

func (m *memOrders) CreateOrder(_ context.Context, arg db.CreateOrderParams) (db.Order, error) {
	m.createCalls++
	if m.createErr != nil {
		return db.Order{}, m.createErr
	}
	o := db.Order{
		ID:             uuid.New(),
		CustomerID:     arg.CustomerID,
		CustomerName:   arg.CustomerName,
		CustomerPhone:  arg.CustomerPhone,
		TableNumber:    arg.TableNumber,
		OrderType:      arg.OrderType,
		PaymentMethod:  arg.PaymentMethod,
		PaymentStatus:  arg.PaymentStatus,
		KitchenStatus:  db.KitchenStatusPending,
		SubtotalAmount: arg.SubtotalAmount,
		DiscountAmount: arg.DiscountAmount,
		TaxAmount:      arg.TaxAmount,
		FinalAmount:    arg.FinalAmount,
		VoucherCode:    arg.VoucherCode,
		CashReceived:   arg.CashReceived,
		ChangeAmount:   arg.ChangeAmount,
		PaidAt:         arg.PaidAt,
		CreatedBy:      arg.CreatedBy,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memOrders) CreateOrderLine(_ context.Context, arg db.CreateOrderLineParams) (db.OrderLine, error) {
	m.nextLine++
	l := db.OrderLine{
		ID:        m.nextLine,
		OrderID:   arg.OrderID,
		ProductID: arg.ProductID,
		Name:      arg.Name,
		UnitPrice: arg.UnitPrice,
		Quantity:  arg.Quantity,
		LineTotal: arg.LineTotal,
	}
	m.lines[arg.OrderID] = append(m.lines[arg.OrderID], l)
	return l, nil
}

func (m *memOrders) GetOrder(_ context.Context, id uuid.UUID) (db.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memOrders) ListOrderLines(_ context.Context, id uuid.UUID) ([]db.OrderLine, error) {
	return m.lines[id], nil
}

func (m *memOrders) SetOrderGateway(_ context.Context, arg db.SetOrderGatewayParams) (db.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok || (o.PaymentStatus != db.PaymentStatusPending && o.PaymentStatus != db.PaymentStatusFailed) {
		return db.Order{}, pgx.ErrNoRows
	}
	ref, token, redirect := arg.Ref, arg.Token, arg.RedirectURL
	o.GatewayRef, o.GatewayToken, o.GatewayRedirectURL = &ref, &token, &redirect
	o.PaymentStatus = db.PaymentStatusPending
	m.orders[o.ID] = o
	return o, nil
}

func (m *memOrders) MarkOrderPaymentFailed(_ context.Context, id uuid.UUID) (int64, error) {
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != db.PaymentStatusPending {
		return 0, nil
	}
	o.PaymentStatus = db.PaymentStatusFailed
	m.orders[id] = o
	return 1, nil
}

type stubPrices map[uuid.UUID]db.Product

func (s stubPrices) GetProductsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]db.Product, error) {
	out := make(map[uuid.UUID]db.Product, len(ids))
	for _, id := range ids {
		if p, ok := s[id]; ok && p.IsAvailable {
			out[id] = p
		}
	}
	return out, nil
}

type stubDiscounts struct {
	discount *pricing.Discount
	err      error
	got      []voucher.Input
}

func (s *stubDiscounts) Resolve(_ context.Context, in voucher.Input) (*pricing.Discount, error) {
	s.got = append(s.got, in)
	return s.discount, s.err
}

type fixedTax decimal.Decimal

func (f fixedTax) TaxRate(context.Context) (decimal.Decimal, error) { return decimal.Decimal(f), nil }

type stubCarts struct {
	carts   map[uuid.UUID]*cart.Cart
	deleted []uuid.UUID
}

func (s *stubCarts) Load(_ context.Context, id uuid.UUID) (*cart.Cart, error) {
	c, ok := s.carts[id]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (s *stubCarts) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	delete(s.carts, id)
	return nil
}

type stubGateway struct {
	err      error
	requests []payment.TransactionRequest
}

func (g *stubGateway) CreateTransaction(_ context.Context, req payment.TransactionRequest) (payment.TransactionResult, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return payment.TransactionResult{}, g.err
	}
	return payment.TransactionResult{Token: "snap-token", RedirectURL: "https://pay.example/" + req.OrderRef}, nil
}

type stubLocker struct{ keys []string }

func (l *stubLocker) WithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	l.keys = append(l.keys, key)
	return fn(ctx)
}

type stubEmitter struct{ topics []string }

func (e *stubEmitter) Emit(_ context.Context, topic string, _ uuid.UUID, _ any) (db.DomainEvent, error) {
	e.topics = append(e.topics, topic)
	return db.DomainEvent{Topic: topic}, nil
}

var _ events.Emitter = (*stubEmitter)(nil)

type fixture struct {
	svc       *Service
	tx        *mockTx
	orders    *memOrders
	discounts *stubDiscounts
	carts     *stubCarts
	gateway   *stubGateway
	locker    *stubLocker
	events    *stubEmitter
	latte     db.Product
	mocha     db.Product
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tx:        &mockTx{},
		orders:    newMemOrders(),
		discounts: &stubDiscounts{},
		carts:     &stubCarts{carts: map[uuid.UUID]*cart.Cart{}},
		gateway:   &stubGateway{},
		locker:    &stubLocker{},
		events:    &stubEmitter{},
		latte:     db.Product{ID: uuid.New(), Name: "Caffe Latte", Price: 25000, IsAvailable: true},
		mocha:     db.Product{ID: uuid.New(), Name: "Mocha", Price: 30000, IsAvailable: true},
		now:       time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	svc, err := NewService(Config{
		Pool:      &mockTxBeginner{tx: f.tx},
		NewStore:  func(db.DBTX) OrderStore { return f.orders },
		Orders:    f.orders,
		Prices:    stubPrices{f.latte.ID: f.latte, f.mocha.ID: f.mocha},
		Discounts: f.discounts,
		Tax:       fixedTax(decimal.RequireFromString("0.10")),
		Carts:     f.carts,
		Gateway:   f.gateway,
		Locker:    f.locker,
		Events:    f.events,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	f.svc = svc.WithNow(func() time.Time { return f.now })
	return f
}

func staff() Actor {
	id := uuid.New()
	return Actor{StaffID: &id}
}

func int64p(v int64) *int64 { return &v }

func requireCode(t *testing.T, err error, code string) *common.AppError {
	t.Helper()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
	return appErr
}

func TestSubmitCashUsesCatalogPricesAndReturnsChange(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Submit(context.Background(), staff(), Input{
		Items: []ItemInput{
			{ProductID: f.latte.ID, Quantity: 2, Price: int64p(1)},
			{ProductID: f.mocha.ID, Quantity: 1},
		},
		PaymentMethod: db.PaymentMethodCash,
		TableNumber:   "7",
		CashReceived:  int64p(100000),
	})
	require.NoError(t, err)

	o := res.Order
	require.Equal(t, int64(80000), o.SubtotalAmount)
	require.Equal(t, int64(0), o.DiscountAmount)
	require.Equal(t, int64(8000), o.TaxAmount)
	require.Equal(t, int64(88000), o.FinalAmount)
	require.Equal(t, db.PaymentStatusPaid, o.PaymentStatus)
	require.Equal(t, db.OrderTypeDineIn, o.OrderType)
	require.NotNil(t, o.ChangeAmount)
	require.Equal(t, int64(12000), *o.ChangeAmount)
	require.NotNil(t, o.PaidAt)
	require.Len(t, res.Lines, 2)
	require.Equal(t, int64(25000), res.Lines[0].UnitPrice)
	require.Equal(t, int64(50000), res.Lines[0].LineTotal)
	require.Nil(t, res.Payment)
	require.True(t, f.tx.committed)
	require.Empty(t, f.gateway.requests)
	require.Equal(t, []string{events.TopicOrderCreated, events.TopicOrderPaid}, f.events.topics)
}

func TestSubmitMergesDuplicateProducts(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Submit(context.Background(), staff(), Input{
		Items: []ItemInput{
			{ProductID: f.latte.ID, Quantity: 1},
			{ProductID: f.latte.ID, Quantity: 2},
		},
		PaymentMethod: db.PaymentMethodCash,
		CashReceived:  int64p(82500),
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	require.Equal(t, int32(3), res.Lines[0].Quantity)
	require.Equal(t, db.OrderTypeTakeaway, res.Order.OrderType)
}

func TestSubmitCashInsufficient(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), staff(), Input{
		Items:         []ItemInput{{ProductID: f.latte.ID, Quantity: 1}},
		PaymentMethod: db.PaymentMethodCash,
		CashReceived:  int64p(20000),
	})
	appErr := requireCode(t, err, "CASH_INSUFFICIENT")
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Zero(t, f.orders.createCalls)
}

func TestSubmitRejectsUnavailableProduct(t *testing.T) {
	f := newFixture(t)
	gone := uuid.New()
	_, err := f.svc.Submit(context.Background(), staff(), Input{
		Items: []ItemInput{
			{ProductID: f.latte.ID, Quantity: 1},
			{ProductID: gone, Quantity: 1},
		},
		PaymentMethod: db.PaymentMethodQRIS,
	})
	appErr := requireCode(t, err, "PRODUCT_UNAVAILABLE")
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, []string{gone.String()}, details["productIds"])
	require.Zero(t, f.orders.createCalls)
	require.Empty(t, f.gateway.requests)
}

func TestSubmitEmptyOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), staff(), Input{PaymentMethod: db.PaymentMethodCash})
	requireCode(t, err, "EMPTY_ORDER")
}

func TestSubmitCustomerCannotPayCash(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	_, err := f.svc.Submit(context.Background(), Actor{CustomerID: &id}, Input{
		Items:         []ItemInput{{ProductID: f.latte.ID, Quantity: 1}},
		PaymentMethod: db.PaymentMethodCash,
		CashReceived:  int64p(50000),
	})
	requireCode(t, err, "CASH_REQUIRES_CASHIER")
}

func TestSubmitQRISMintsTokenMatchingFinalAmount(t *testing.T) {
	f := newFixture(t)
	f.discounts.discount = &pricing.Discount{Kind: pricing.KindPercent, Value: decimal.NewFromInt(10), SourceCode: "HEMAT10"}

	customer := uuid.New()
	res, err := f.svc.Submit(context.Background(), Actor{CustomerID: &customer}, Input{
		Items: []ItemInput{
			{ProductID: f.latte.ID, Quantity: 2},
			{ProductID: f.mocha.ID, Quantity: 1},
		},
		VoucherCode:   "hemat10",
		CustomerName:  "Sari",
		PaymentMethod: db.PaymentMethodQRIS,
		OrderType:     db.OrderTypeTakeaway,
	})
	require.NoError(t, err)

	o := res.Order
	require.Equal(t, int64(8000), o.DiscountAmount)
	require.Equal(t, int64(7200), o.TaxAmount)
	require.Equal(t, int64(79200), o.FinalAmount)
	require.Equal(t, db.PaymentStatusPending, o.PaymentStatus)
	require.NotNil(t, o.VoucherCode)
	require.Equal(t, "HEMAT10", *o.VoucherCode)
	require.Equal(t, &customer, o.CustomerID)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	require.Equal(t, o.ID.String(), req.OrderID)
	require.Equal(t, o.FinalAmount, req.GrossAmount)
	require.Equal(t, req.GrossAmount, payment.ItemsTotal(req.Items))
	require.True(t, strings.HasPrefix(req.OrderRef, o.ID.String()+"-"))
	require.Equal(t, "Sari (Takeaway)", req.Customer.FirstName)

	recovered, err := payment.RecoverOrderID(req.OrderRef, "")
	require.NoError(t, err)
	require.Equal(t, o.ID, recovered)

	require.NotNil(t, res.Payment)
	require.Equal(t, "snap-token", res.Payment.Token)
	require.NotNil(t, o.GatewayRef)
	require.Equal(t, req.OrderRef, *o.GatewayRef)
	require.Equal(t, []voucher.Input{{Subtotal: 80000, CustomerID: &customer, VoucherCode: "hemat10"}}, f.discounts.got)
}

func TestSubmitGatewayFailureMarksOrderFailed(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("connection reset")

	res, err := f.svc.Submit(context.Background(), staff(), Input{
		Items:         []ItemInput{{ProductID: f.latte.ID, Quantity: 1}},
		PaymentMethod: db.PaymentMethodQRIS,
	})
	appErr := requireCode(t, err, "PAYMENT_GATEWAY_FAILED")
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, res.Order.ID.String(), details["orderId"])

	stored, _ := f.orders.GetOrder(context.Background(), res.Order.ID)
	require.Equal(t, db.PaymentStatusFailed, stored.PaymentStatus)
	require.Equal(t, db.PaymentStatusFailed, res.Order.PaymentStatus)
	require.Equal(t, []string{events.TopicOrderCreated, events.TopicPaymentFailed}, f.events.topics)
}

func TestSubmitQRISWithoutGateway(t *testing.T) {
	f := newFixture(t)
	f.svc.gateway = nil
	_, err := f.svc.Submit(context.Background(), staff(), Input{
		Items:         []ItemInput{{ProductID: f.latte.ID, Quantity: 1}},
		PaymentMethod: db.PaymentMethodQRIS,
	})
	appErr := requireCode(t, err, "PAYMENT_NOT_CONFIGURED")
	require.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	require.Zero(t, f.orders.createCalls)
}

func TestSubmitFromCartUsesVoucherAndDeletesCart(t *testing.T) {
	f := newFixture(t)
	customer := uuid.New()
	c := cart.New(&customer)
	c.VoucherCode = "HEMAT10"
	require.NoError(t, c.Add(cart.Line{ProductID: f.mocha.ID, Name: "Mocha", UnitPrice: 1, Quantity: 2}))
	f.carts.carts[c.ID] = c
	f.discounts.discount = &pricing.Discount{Kind: pricing.KindFixed, Value: decimal.NewFromInt(5000), SourceCode: "HEMAT10"}

	res, err := f.svc.Submit(context.Background(), staff(), Input{
		CartID:        &c.ID,
		PaymentMethod: db.PaymentMethodCash,
		CashReceived:  int64p(100000),
	})
	require.NoError(t, err)
	require.Equal(t, int64(60000), res.Order.SubtotalAmount)
	require.Equal(t, int64(5000), res.Order.DiscountAmount)
	require.Equal(t, int64(5500), res.Order.TaxAmount)
	require.Equal(t, int64(60500), res.Order.FinalAmount)
	require.Equal(t, []uuid.UUID{c.ID}, f.carts.deleted)
	require.Equal(t, []string{"lock:checkout:" + c.ID.String()}, f.locker.keys)
	require.Equal(t, "HEMAT10", f.discounts.got[0].VoucherCode)
	require.Equal(t, &customer, f.discounts.got[0].CustomerID)
}

func TestSubmitUnknownCart(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	_, err := f.svc.Submit(context.Background(), staff(), Input{CartID: &id, PaymentMethod: db.PaymentMethodQRIS})
	requireCode(t, err, "CART_NOT_FOUND")
}

func TestSubmitNewMemberPromoIsNotRecordedAsVoucher(t *testing.T) {
	f := newFixture(t)
	f.discounts.discount = &pricing.Discount{Kind: pricing.KindPercent, Value: decimal.NewFromInt(20), SourceCode: voucher.NewMemberCode}
	customer := uuid.New()
	res, err := f.svc.Submit(context.Background(), staff(), Input{
		Items:         []ItemInput{{ProductID: f.latte.ID, Quantity: 1}},
		CustomerID:    &customer,
		PaymentMethod: db.PaymentMethodCash,
		CashReceived:  int64p(50000),
	})
	require.NoError(t, err)
	require.Equal(t, int64(5000), res.Order.DiscountAmount)
	require.Nil(t, res.Order.VoucherCode)
}

func TestSubmitPersistFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.orders.createErr = errors.New("check constraint")
	_, err := f.svc.Submit(context.Background(), staff(), Input{
		Items:         []ItemInput{{ProductID: f.latte.ID, Quantity: 1}},
		PaymentMethod: db.PaymentMethodCash,
		CashReceived:  int64p(50000),
	})
	requireCode(t, err, "ORDER_PERSIST_FAILED")
	require.True(t, f.tx.rolledBack)
	require.False(t, f.tx.committed)
	require.Empty(t, f.events.topics)
}

func TestRetryPaymentAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("timeout")
	res, err := f.svc.Submit(context.Background(), staff(), Input{
		Items:         []ItemInput{{ProductID: f.latte.ID, Quantity: 1}},
		PaymentMethod: db.PaymentMethodQRIS,
	})
	require.Error(t, err)

	f.gateway.err = nil
	f.now = f.now.Add(time.Minute)
	retried, err := f.svc.RetryPayment(context.Background(), staff(), res.Order.ID)
	require.NoError(t, err)
	require.Equal(t, db.PaymentStatusPending, retried.Order.PaymentStatus)
	require.NotNil(t, retried.Payment)
	require.Len(t, f.gateway.requests, 2)
	require.NotEqual(t, f.gateway.requests[0].OrderRef, f.gateway.requests[1].OrderRef)
	require.Equal(t, retried.Order.FinalAmount, payment.ItemsTotal(f.gateway.requests[1].Items))
}

func TestRetryPaymentWithinSameSecondIsRejected(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Submit(context.Background(), staff(), Input{
		Items:         []ItemInput{{ProductID: f.latte.ID, Quantity: 1}},
		PaymentMethod: db.PaymentMethodQRIS,
	})
	require.NoError(t, err)
	require.Len(t, f.gateway.requests, 1)

	f.now = f.now.Add(400 * time.Millisecond)
	_, err = f.svc.RetryPayment(context.Background(), staff(), res.Order.ID)
	appErr := requireCode(t, err, "PAYMENT_RETRY_TOO_SOON")
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	require.Len(t, f.gateway.requests, 1)
	require.Equal(t, db.PaymentStatusPending, f.orders.orders[res.Order.ID].PaymentStatus)

	f.now = f.now.Add(time.Second)
	retried, err := f.svc.RetryPayment(context.Background(), staff(), res.Order.ID)
	require.NoError(t, err)
	require.Len(t, f.gateway.requests, 2)
	require.NotEqual(t, f.gateway.requests[0].OrderRef, f.gateway.requests[1].OrderRef)
	require.Equal(t, f.gateway.requests[1].OrderRef, *retried.Order.GatewayRef)
}

func TestRetryPaymentRejectsPaidAndForeignOrders(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	paid := db.Order{ID: uuid.New(), CustomerID: &owner, PaymentMethod: db.PaymentMethodQRIS, PaymentStatus: db.PaymentStatusPaid}
	f.orders.orders[paid.ID] = paid

	_, err := f.svc.RetryPayment(context.Background(), staff(), paid.ID)
	appErr := requireCode(t, err, "ORDER_NOT_PAYABLE")
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	stranger := uuid.New()
	_, err = f.svc.RetryPayment(context.Background(), Actor{CustomerID: &stranger}, paid.ID)
	requireCode(t, err, "ORDER_NOT_FOUND")

	cash := db.Order{ID: uuid.New(), PaymentMethod: db.PaymentMethodCash, PaymentStatus: db.PaymentStatusPaid}
	f.orders.orders[cash.ID] = cash
	_, err = f.svc.RetryPayment(context.Background(), staff(), cash.ID)
	requireCode(t, err, "NOT_ONLINE_PAYMENT")

	_, err = f.svc.RetryPayment(context.Background(), staff(), uuid.New())
	requireCode(t, err, "ORDER_NOT_FOUND")
}

func TestGatewayItemsBalanceWithDiscountAndTax(t *testing.T) {
	order := db.Order{DiscountAmount: 3000, TaxAmount: 2970, FinalAmount: 29970}
	lines := []db.OrderLine{{ProductID: uuid.New(), Name: "Americano", UnitPrice: 15000, Quantity: 2}}
	items := GatewayItems(order, lines, pricing.TaxLabel(decimal.RequireFromString("0.11")))
	require.Len(t, items, 3)
	require.Equal(t, "DISCOUNT", items[1].ID)
	require.Equal(t, int64(-3000), items[1].Price)
	require.Equal(t, "Tax (11%)", items[2].Name)
	require.Equal(t, order.FinalAmount, payment.ItemsTotal(items))
}

type busyLocker struct{}

func (busyLocker) WithLock(context.Context, string, time.Duration, func(context.Context) error) error {
	return lock.ErrNotAcquired
}

func TestSubmitConcurrentCartIsRejected(t *testing.T) {
	f := newFixture(t)
	f.svc.locker = busyLocker{}
	c := cart.New(nil)
	require.NoError(t, c.Add(cart.Line{ProductID: f.latte.ID, Quantity: 1}))
	f.carts.carts[c.ID] = c

	_, err := f.svc.Submit(context.Background(), staff(), Input{CartID: &c.ID, PaymentMethod: db.PaymentMethodQRIS})
	appErr := requireCode(t, err, "CHECKOUT_IN_PROGRESS")
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	require.Zero(t, f.orders.createCalls)
}
