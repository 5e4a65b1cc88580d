package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
)

// ErrInvalidPhone is returned when a phone number has too few digits to be real.
var ErrInvalidPhone = errors.New("customer: invalid phone number")

// Querier lists the customer queries used here.
type Querier interface {
	GetCustomerByPhone(ctx context.Context, phone string) (db.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (db.Customer, error)
	UpsertCustomer(ctx context.Context, name, phone string) (db.Customer, error)
	CountPaidOrdersByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
}

// TokenIssuer signs customer access tokens.
type TokenIssuer interface {
	IssueCustomerToken(customerID string) (string, time.Time, error)
}

// Service identifies walk-in customers by phone number.
type Service struct {
	Q      Querier
	Tokens TokenIssuer
}

// Profile is a customer with their order history summary.
type Profile struct {
	db.Customer
	PaidOrders  int64 `json:"paidOrders"`
	IsNewMember bool  `json:"isNewMember"`
}

// Identity is returned by Identify.
type Identity struct {
	Profile     Profile   `json:"customer"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"access_expires_at"`
}

// NormalizePhone strips formatting and rewrites the +62 country prefix to a leading 0.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if strings.HasPrefix(phone, "62") {
		phone = "0" + phone[2:]
	}
	if len(phone) < 8 || len(phone) > 15 {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// Identify finds the customer by phone or creates one with zero points, then
// issues a customer token.
func (s *Service) Identify(ctx context.Context, name, phone string) (Identity, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return Identity{}, common.ValidationError("INVALID_PHONE", "phone number is invalid", err)
	}
	c, err := s.Q.UpsertCustomer(ctx, strings.TrimSpace(name), normalized)
	if err != nil {
		return Identity{}, fmt.Errorf("upsert customer: %w", err)
	}
	profile, err := s.profile(ctx, c)
	if err != nil {
		return Identity{}, err
	}
	token, expiry, err := s.Tokens.IssueCustomerToken(c.ID.String())
	if err != nil {
		return Identity{}, fmt.Errorf("issue customer token: %w", err)
	}
	return Identity{Profile: profile, AccessToken: token, ExpiresAt: expiry}, nil
}

// LookupByPhone is the staff lookup used at the till.
func (s *Service) LookupByPhone(ctx context.Context, phone string) (Profile, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return Profile{}, common.ValidationError("INVALID_PHONE", "phone number is invalid", err)
	}
	c, err := s.Q.GetCustomerByPhone(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, common.NotFoundError("CUSTOMER_NOT_FOUND", "customer not found", err)
		}
		return Profile{}, fmt.Errorf("get customer by phone: %w", err)
	}
	return s.profile(ctx, c)
}

// Get returns the profile for a customer id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	c, err := s.Q.GetCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, common.NotFoundError("CUSTOMER_NOT_FOUND", "customer not found", err)
		}
		return Profile{}, fmt.Errorf("get customer: %w", err)
	}
	return s.profile(ctx, c)
}

// CountPaidOrders reports how many paid orders the customer has.
func (s *Service) CountPaidOrders(ctx context.Context, id uuid.UUID) (int64, error) {
	n, err := s.Q.CountPaidOrdersByCustomer(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count paid orders: %w", err)
	}
	return n, nil
}

func (s *Service) profile(ctx context.Context, c db.Customer) (Profile, error) {
	n, err := s.CountPaidOrders(ctx, c.ID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Customer: c, PaidOrders: n, IsNewMember: n == 0}, nil
}
