package voucher

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/pricing"
)

func TestRuleValidate(t *testing.T) {
	rule := Rule{Code: "HEMAT", Kind: pricing.KindFixed, Value: decimal.NewFromInt(5000), MinPurchase: 50000, Active: true}
	require.NoError(t, rule.Validate(50000))

	err := rule.Validate(49999)
	require.ErrorIs(t, err, ErrMinimumPurchaseUnmet)
	var minErr *MinimumPurchaseError
	require.True(t, errors.As(err, &minErr))
	require.Equal(t, "Min purchase Rp 50.000", minErr.Error())

	rule.Active = false
	require.ErrorIs(t, rule.Validate(100000), ErrVoucherInactive)
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "KOPI10", NormalizeCode("  kopi10 "))
}

func TestNewMemberDiscount(t *testing.T) {
	settings := db.StoreSetting{
		NewMemberPromoActive:   true,
		NewMemberDiscountType:  "percent",
		NewMemberDiscountValue: decimal.NewFromInt(20),
	}

	d, err := NewMemberDiscount(settings, 0)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, NewMemberCode, d.SourceCode)
	require.Equal(t, NewMemberDescription, d.Description)
	require.Equal(t, int64(10000), d.Amount(50000))

	d, err = NewMemberDiscount(settings, 1)
	require.NoError(t, err)
	require.Nil(t, d)

	settings.NewMemberPromoActive = false
	d, err = NewMemberDiscount(settings, 0)
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{0: "0", 999: "999", 1000: "1.000", 1250000: "1.250.000", -5000: "-5.000"}
	for in, want := range cases {
		require.Equal(t, want, FormatRupiah(in))
	}
}
