package payment

import (
	"strings"

	"github.com/noah-isme/kopi-pos/internal/db"
)

// MapStatus converts a gateway transaction status into the order payment
// status. ok is false when the notification must not change anything.
func MapStatus(transactionStatus, fraudStatus string) (status db.PaymentStatus, ok bool) {
	switch strings.ToLower(strings.TrimSpace(transactionStatus)) {
	case "capture":
		switch strings.ToLower(strings.TrimSpace(fraudStatus)) {
		case "accept":
			return db.PaymentStatusPaid, true
		case "challenge":
			return db.PaymentStatusChallenge, true
		}
	case "settlement":
		return db.PaymentStatusPaid, true
	case "cancel", "deny", "expire":
		return db.PaymentStatusCancelled, true
	}
	return db.PaymentStatusPending, false
}
