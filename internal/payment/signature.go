package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrInvalidSignature is returned when the notification signature does not match.
	ErrInvalidSignature = errors.New("payment: invalid signature")
	// ErrServerKeyMissing is returned when notifications cannot be verified at all.
	ErrServerKeyMissing = errors.New("payment: server key not configured")
)

// Signature computes sha512(order_id + status_code + gross_amount + server_key) as lowercase hex.
func Signature(orderRef, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderRef + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks a notification signature in constant time. An empty
// server key never verifies.
func VerifySignature(orderRef, statusCode, grossAmount, serverKey, provided string) error {
	if strings.TrimSpace(serverKey) == "" {
		return ErrServerKeyMissing
	}
	expected := Signature(orderRef, statusCode, grossAmount, serverKey)
	provided = strings.ToLower(strings.TrimSpace(provided))
	if provided == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
