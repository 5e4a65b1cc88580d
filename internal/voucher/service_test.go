package voucher

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/pricing"
)

type stubQueries struct {
	vouchers   map[string]db.Voucher
	paidOrders int64
	lookups    int
}

func (s *stubQueries) GetVoucherByCode(ctx context.Context, code string) (db.Voucher, error) {
	s.lookups++
	v, ok := s.vouchers[code]
	if !ok {
		return db.Voucher{}, pgx.ErrNoRows
	}
	return v, nil
}

func (s *stubQueries) CountPaidOrdersByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return s.paidOrders, nil
}

type stubSettings struct {
	settings db.StoreSetting
	err      error
}

func (s stubSettings) Get(ctx context.Context) (db.StoreSetting, error) { return s.settings, s.err }

func promoSettings() stubSettings {
	return stubSettings{settings: db.StoreSetting{
		NewMemberPromoActive:   true,
		NewMemberDiscountType:  "fixed",
		NewMemberDiscountValue: decimal.NewFromInt(5000),
	}}
}

func newStub() *stubQueries {
	return &stubQueries{vouchers: map[string]db.Voucher{
		"HEMAT10": {Code: "HEMAT10", Type: "percent", Value: decimal.NewFromInt(10), MinPurchase: 50000, IsActive: true},
		"FLAT15":  {Code: "FLAT15", Type: "fixed", Value: decimal.NewFromInt(15000), IsActive: true},
		"OLD":     {Code: "OLD", Type: "fixed", Value: decimal.NewFromInt(1000), IsActive: false},
	}}
}

func TestResolveVoucherIsCaseInsensitive(t *testing.T) {
	svc := &Service{Q: newStub()}
	d, err := svc.Resolve(context.Background(), Input{Subtotal: 100000, VoucherCode: " hemat10 "})
	require.NoError(t, err)
	require.Equal(t, "HEMAT10", d.SourceCode)
	require.Equal(t, pricing.KindPercent, d.Kind)
	require.Equal(t, int64(10000), d.Amount(100000))
}

func TestResolveVoucherRejections(t *testing.T) {
	svc := &Service{Q: newStub()}
	ctx := context.Background()

	_, err := svc.Resolve(ctx, Input{Subtotal: 100000, VoucherCode: "missing"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Resolve(ctx, Input{Subtotal: 100000, VoucherCode: "old"})
	require.ErrorIs(t, err, ErrVoucherInactive)

	_, err = svc.Resolve(ctx, Input{Subtotal: 40000, VoucherCode: "HEMAT10"})
	require.ErrorIs(t, err, ErrMinimumPurchaseUnmet)
	require.True(t, common.IsKind(AsAppError(err), common.KindValidation))
}

func TestVoucherReplacesPromotion(t *testing.T) {
	customer := uuid.New()
	svc := &Service{Q: newStub(), Settings: promoSettings()}

	d, err := svc.Resolve(context.Background(), Input{Subtotal: 60000, CustomerID: &customer, VoucherCode: "FLAT15"})
	require.NoError(t, err)
	require.Equal(t, "FLAT15", d.SourceCode)

	d, err = svc.Resolve(context.Background(), Input{Subtotal: 60000, CustomerID: &customer})
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, NewMemberCode, d.SourceCode)
}

func TestPromotionRequiresNoPaidOrders(t *testing.T) {
	customer := uuid.New()
	q := newStub()
	q.paidOrders = 2
	svc := &Service{Q: q, Settings: promoSettings()}

	d, err := svc.Resolve(context.Background(), Input{Subtotal: 60000, CustomerID: &customer})
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestPromotionSkipsAnonymousCarts(t *testing.T) {
	svc := &Service{Q: newStub(), Settings: promoSettings()}
	d, err := svc.Resolve(context.Background(), Input{Subtotal: 60000})
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestPromotionSurfacesSettingsFailure(t *testing.T) {
	customer := uuid.New()
	svc := &Service{Q: newStub(), Settings: stubSettings{err: errors.New("redis down")}}
	_, err := svc.Resolve(context.Background(), Input{Subtotal: 60000, CustomerID: &customer})
	require.Error(t, err)
}
