package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
)

var testParams = &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type fakeStaff struct {
	users map[string]db.StaffUser
}

func newFakeStaff(t *testing.T) *fakeStaff {
	t.Helper()
	hash, err := argon2id.CreateHash("rahasia123", testParams)
	require.NoError(t, err)
	cashier := db.StaffUser{ID: uuid.New(), Email: "kasir@kopi.test", Name: "Kasir", PasswordHash: hash, Role: common.RoleCashier, IsActive: true}
	inactive := db.StaffUser{ID: uuid.New(), Email: "old@kopi.test", Name: "Old", PasswordHash: hash, Role: common.RoleAdmin}
	return &fakeStaff{users: map[string]db.StaffUser{cashier.Email: cashier, inactive.Email: inactive}}
}

func (f *fakeStaff) GetStaffUserByEmail(_ context.Context, email string) (db.StaffUser, error) {
	u, ok := f.users[email]
	if !ok {
		return db.StaffUser{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeStaff) GetStaffUser(_ context.Context, id uuid.UUID) (db.StaffUser, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return db.StaffUser{}, pgx.ErrNoRows
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{Queries: newFakeStaff(t), Secret: "super-secret-key", AccessTokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLoginIssuesRoleToken(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Login(context.Background(), " KASIR@kopi.test ", "rahasia123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != common.RoleCashier || claims.Subject != result.Staff.ID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"kasir@kopi.test", "salah"},
		{"nobody@kopi.test", "rahasia123"},
		{"old@kopi.test", "rahasia123"},
		{"", ""},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password)
		require.True(t, common.IsKind(err, common.KindAuthentication), "email=%q", tc.email)
	}
}

func TestParseAccessTokenRejectsAlgorithmMismatch(t *testing.T) {
	svc := newTestService(t)
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	built, err := jwt.NewBuilder().
		Subject("user-id").
		Issuer(svc.issuer).
		Audience([]string{svc.audience}).
		IssuedAt(fixed).
		Expiration(fixed.Add(svc.accessTTL)).
		Claim(roleClaim, common.RoleAdmin).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, svc.secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.ParseAccessToken(string(signed)); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}

func TestCustomerTokenExpires(t *testing.T) {
	svc := newTestService(t)
	start := time.Now()
	svc.WithNow(func() time.Time { return start })

	token, _, err := svc.IssueCustomerToken(uuid.NewString())
	require.NoError(t, err)
	claims, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, common.RoleCustomer, claims.Role)

	svc.WithNow(func() time.Time { return start.Add(25 * time.Hour) })
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	svc := newTestService(t)
	mw := Middleware{Service: svc}
	handler := mw.RequireRole(common.RoleKitchen, common.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cashier, err := svc.Login(context.Background(), "kasir@kopi.test", "rahasia123")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + cashier.AccessToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/kitchen/orders", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}

	token, _, err := svc.signAccessToken(uuid.NewString(), common.RoleKitchen, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/kitchen/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLoginHandler(t *testing.T) {
	h := &Handler{Service: newTestService(t), Logger: zerolog.Nop()}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"kasir@kopi.test","password":"rahasia123"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"role":"cashier"`)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"kasir@kopi.test","password":"x"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
