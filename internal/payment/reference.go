package payment

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidOrderRef is returned when no order id can be recovered from a gateway reference.
	ErrInvalidOrderRef = errors.New("payment: invalid order reference")
	// ErrOrderRefMismatch is returned when custom_field1 names a different order
	// than the signed reference.
	ErrOrderRefMismatch = errors.New("payment: custom_field1 does not match order reference")
)

// a bare uuid has this many hyphen-delimited segments
const uuidSegments = 5

// NamespaceOrderRef appends the submission time so retried payments for the
// same order get a reference the gateway has not seen before.
func NamespaceOrderRef(orderID uuid.UUID, at time.Time) string {
	return orderID.String() + "-" + strconv.FormatInt(at.Unix(), 10)
}

// RecoverOrderID returns the order id a notification refers to. Only the
// reference is covered by the signature, so the id always comes from it: a
// trailing numeric segment is stripped when the reference has more segments
// than a bare id. custom_field1, when present, must name the same order.
func RecoverOrderID(orderRef, customField string) (uuid.UUID, error) {
	id, err := orderIDFromRef(orderRef)
	if err != nil {
		return uuid.Nil, err
	}
	if custom := strings.TrimSpace(customField); custom != "" {
		claimed, err := uuid.Parse(custom)
		if err != nil || claimed != id {
			return uuid.Nil, ErrOrderRefMismatch
		}
	}
	return id, nil
}

func orderIDFromRef(orderRef string) (uuid.UUID, error) {
	ref := strings.TrimSpace(orderRef)
	if ref == "" {
		return uuid.Nil, ErrInvalidOrderRef
	}
	parts := strings.Split(ref, "-")
	if len(parts) > uuidSegments {
		last := parts[len(parts)-1]
		if _, err := strconv.ParseInt(last, 10, 64); err == nil {
			ref = strings.Join(parts[:len(parts)-1], "-")
		}
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil, ErrInvalidOrderRef
	}
	return id, nil
}
