//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupQueries(t *testing.T) (*Queries, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return New(pool), pool
}

func TestOrderLifecycleAgainstPostgres(t *testing.T) {
	q, pool := setupQueries(t)
	ctx := context.Background()

	product, err := q.CreateProduct(ctx, CreateProductParams{Name: "Kopi Susu", Price: 20000, IsAvailable: true})
	require.NoError(t, err)

	products, err := q.GetProductsByIDs(ctx, []uuid.UUID{product.ID})
	require.NoError(t, err)
	require.Len(t, products, 1)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	qtx := q.WithTx(tx)
	order, err := qtx.CreateOrder(ctx, CreateOrderParams{
		OrderType:      OrderTypeTakeaway,
		PaymentMethod:  PaymentMethodQRIS,
		PaymentStatus:  PaymentStatusPending,
		SubtotalAmount: 40000,
		TaxAmount:      4400,
		FinalAmount:    44400,
	})
	require.NoError(t, err)
	_, err = qtx.CreateOrderLine(ctx, CreateOrderLineParams{
		OrderID: order.ID, ProductID: product.ID, Name: product.Name, UnitPrice: 20000, Quantity: 2, LineTotal: 40000,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	paid, err := q.ApplyGatewayStatus(ctx, order.ID, PaymentStatusPaid)
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPaid, paid.PaymentStatus)
	require.NotNil(t, paid.PaidAt)

	_, err = q.ApplyGatewayStatus(ctx, order.ID, PaymentStatusPaid)
	require.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = q.ApplyGatewayStatus(ctx, order.ID, PaymentStatusCancelled)
	require.ErrorIs(t, err, pgx.ErrNoRows)

	cooking, err := q.UpdateKitchenStatus(ctx, order.ID, KitchenStatusPending, KitchenStatusCooking)
	require.NoError(t, err)
	require.Equal(t, KitchenStatusCooking, cooking.KitchenStatus)

	lines, err := q.ListOrderLines(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestVoucherLookupIsCaseInsensitive(t *testing.T) {
	q, _ := setupQueries(t)
	ctx := context.Background()

	_, err := q.CreateVoucher(ctx, CreateVoucherParams{Code: "hemat10", Type: "percent", Value: decimal.NewFromInt(10), MinPurchase: 50000, IsActive: true})
	require.NoError(t, err)

	v, err := q.GetVoucherByCode(ctx, "Hemat10")
	require.NoError(t, err)
	require.Equal(t, "HEMAT10", v.Code)
	require.True(t, v.Value.Equal(decimal.NewFromInt(10)))

	settings, err := q.GetStoreSettings(ctx)
	require.NoError(t, err)
	require.False(t, settings.NewMemberPromoActive)
	require.Nil(t, settings.TaxRate)
}

func TestAwardOrderPointsCreditsOnce(t *testing.T) {
	q, _ := setupQueries(t)
	ctx := context.Background()

	c, err := q.UpsertCustomer(ctx, "Budi", "081234567890")
	require.NoError(t, err)
	order, err := q.CreateOrder(ctx, CreateOrderParams{
		CustomerID:     &c.ID,
		OrderType:      OrderTypeDineIn,
		PaymentMethod:  PaymentMethodCash,
		PaymentStatus:  PaymentStatusPaid,
		SubtotalAmount: 50000,
		TaxAmount:      5500,
		FinalAmount:    55500,
	})
	require.NoError(t, err)

	award, err := q.AwardOrderPoints(ctx, order.ID, 10000)
	require.NoError(t, err)
	require.Equal(t, c.ID, award.CustomerID)
	require.Equal(t, int64(5), award.Awarded)
	require.Equal(t, int64(5), award.Balance)

	_, err = q.AwardOrderPoints(ctx, order.ID, 10000)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}
