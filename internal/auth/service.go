package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
)

const (
	defaultAccessTTL   = 12 * time.Hour
	defaultCustomerTTL = 24 * time.Hour
	roleClaim          = "role"
)

// StaffQuerier is the subset of queries used for staff login.
type StaffQuerier interface {
	GetStaffUserByEmail(ctx context.Context, email string) (db.StaffUser, error)
	GetStaffUser(ctx context.Context, id uuid.UUID) (db.StaffUser, error)
}

// Service verifies staff credentials and issues role-scoped access tokens.
type Service struct {
	queries     StaffQuerier
	secret      []byte
	accessTTL   time.Duration
	customerTTL time.Duration
	now         func() time.Time
	signer      jwa.SignatureAlgorithm
	validator   TokenValidator
	issuer      string
	audience    string
	clockSkew   time.Duration
}

// Config configures the auth service.
type Config struct {
	Queries          StaffQuerier
	Secret           string
	AccessTokenTTL   time.Duration
	CustomerTokenTTL time.Duration
	Issuer           string
	Audience         string
	ClockSkew        time.Duration
}

// Staff is the safe view of a staff account.
type Staff struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Claims is what a verified access token asserts.
type Claims struct {
	Subject string
	Role    string
}

// LoginResult bundles the token returned after a successful login.
type LoginResult struct {
	Staff        Staff     `json:"staff"`
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_expires_at"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	customerTTL := cfg.CustomerTokenTTL
	if customerTTL <= 0 {
		customerTTL = defaultCustomerTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "kopi-pos"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "kopi-pos-clients"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}

	return &Service{
		queries:     cfg.Queries,
		secret:      []byte(secret),
		accessTTL:   accessTTL,
		customerTTL: customerTTL,
		now:         time.Now,
		signer:      jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Login verifies staff credentials and issues an access token carrying the staff role.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if s.queries == nil {
		return LoginResult{}, errors.New("auth: queries is required")
	}
	normalizedEmail := strings.TrimSpace(strings.ToLower(email))
	if normalizedEmail == "" || password == "" {
		return LoginResult{}, invalidCredentials(nil)
	}

	user, err := s.queries.GetStaffUserByEmail(ctx, normalizedEmail)
	if err != nil {
		return LoginResult{}, invalidCredentials(err)
	}
	if !user.IsActive {
		return LoginResult{}, invalidCredentials(nil)
	}

	ok, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials(err)
	}

	token, expiry, err := s.signAccessToken(user.ID.String(), user.Role, s.accessTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{Staff: convertStaff(user), AccessToken: token, AccessExpiry: expiry}, nil
}

// Me returns the staff account behind subject.
func (s *Service) Me(ctx context.Context, subject string) (Staff, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return Staff{}, common.AuthenticationError("UNAUTHORIZED", "invalid token subject", http.StatusUnauthorized, err)
	}
	user, err := s.queries.GetStaffUser(ctx, id)
	if err != nil {
		return Staff{}, common.NotFoundError("STAFF_NOT_FOUND", "staff account not found", err)
	}
	return convertStaff(user), nil
}

// IssueCustomerToken signs a token for an identified customer.
func (s *Service) IssueCustomerToken(customerID string) (string, time.Time, error) {
	return s.signAccessToken(customerID, common.RoleCustomer, s.customerTTL)
}

// ParseAccessToken validates an access token and returns its subject and role.
func (s *Service) ParseAccessToken(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, unauthorized("missing token", nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Claims{}, unauthorized("invalid token", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}
	role, _ := roleOf(parsed)
	return Claims{Subject: parsed.Subject(), Role: role}, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func (s *Service) signAccessToken(subject, role string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	token, err := jwt.NewBuilder().
		Subject(subject).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim(roleClaim, role).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func convertStaff(u db.StaffUser) Staff {
	return Staff{ID: u.ID.String(), Name: u.Name, Email: u.Email, Role: u.Role}
}

func invalidCredentials(err error) *common.AppError {
	return common.AuthenticationError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, err)
}

func unauthorized(message string, err error) *common.AppError {
	return common.AuthenticationError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}
