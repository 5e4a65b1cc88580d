package voucher

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// MinimumPurchaseError carries the threshold that was not met.
type MinimumPurchaseError struct {
	MinPurchase int64
}

func (e *MinimumPurchaseError) Error() string {
	return fmt.Sprintf("Min purchase Rp %s", FormatRupiah(e.MinPurchase))
}

func (e *MinimumPurchaseError) Unwrap() error { return ErrMinimumPurchaseUnmet }

// AsAppError maps voucher errors to user-correctable validation errors. Other
// errors pass through unchanged.
func AsAppError(err error) error {
	var minErr *MinimumPurchaseError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &minErr):
		return common.ValidationError("VOUCHER_MIN_PURCHASE", minErr.Error(), err).
			WithDetails(map[string]any{"minPurchase": minErr.MinPurchase})
	case errors.Is(err, ErrCodeRequired):
		return common.ValidationError("VOUCHER_CODE_REQUIRED", "voucher code is required", err)
	case errors.Is(err, ErrNotFound):
		return common.ValidationError("VOUCHER_INVALID", "Invalid voucher code", err)
	case errors.Is(err, ErrVoucherInactive):
		return common.ValidationError("VOUCHER_INACTIVE", "Voucher is no longer active", err)
	}
	return err
}

// FormatRupiah renders an amount with dot thousand separators, e.g. 50000 -> "50.000".
func FormatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
