package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kopi-pos/internal/pricing"
)

func TestCartMergesAndRemovesLines(t *testing.T) {
	c := New(nil)
	latte := uuid.New()

	require.NoError(t, c.Add(Line{ProductID: latte, Name: "Latte", UnitPrice: 20000, Quantity: 1}))
	require.NoError(t, c.Add(Line{ProductID: latte, Name: "Latte", UnitPrice: 20000, Quantity: 1}))
	require.Len(t, c.Lines, 1)
	require.Equal(t, 2, c.Lines[0].Quantity)
	require.ErrorIs(t, c.Add(Line{ProductID: uuid.New(), Quantity: 0}), ErrInvalidQuantity)

	summary, err := c.Price(pricing.DefaultTaxRate)
	require.NoError(t, err)
	require.Equal(t, pricing.Summary{Subtotal: 40000, Taxable: 40000, Tax: 4400, Total: 44400}, summary)

	require.NoError(t, c.UpdateQuantity(latte, 0))
	require.Empty(t, c.Lines)
	require.ErrorIs(t, c.UpdateQuantity(latte, 3), ErrItemNotFound)
}

func TestCartKeepsOnlyLatestDiscount(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Add(Line{ProductID: uuid.New(), UnitPrice: 100000, Quantity: 1}))

	c.SetDiscount(&pricing.Discount{Kind: pricing.KindFixed, Value: decimal.NewFromInt(5000), SourceCode: "A"})
	c.SetDiscount(&pricing.Discount{Kind: pricing.KindPercent, Value: decimal.NewFromInt(10), SourceCode: "B"})

	summary, err := c.Price(pricing.DefaultTaxRate)
	require.NoError(t, err)
	require.Equal(t, int64(10000), summary.Discount)
	require.Equal(t, int64(99900), summary.Total)

	c.Clear()
	require.Nil(t, c.Discount)
	require.Empty(t, c.Lines)
}
