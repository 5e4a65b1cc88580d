package customer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
)

type stubQueries struct {
	byPhone map[string]db.Customer
	paid    map[uuid.UUID]int64
}

func newStub() *stubQueries {
	return &stubQueries{byPhone: map[string]db.Customer{}, paid: map[uuid.UUID]int64{}}
}

func (s *stubQueries) GetCustomerByPhone(_ context.Context, phone string) (db.Customer, error) {
	c, ok := s.byPhone[phone]
	if !ok {
		return db.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (s *stubQueries) GetCustomer(_ context.Context, id uuid.UUID) (db.Customer, error) {
	for _, c := range s.byPhone {
		if c.ID == id {
			return c, nil
		}
	}
	return db.Customer{}, pgx.ErrNoRows
}

func (s *stubQueries) UpsertCustomer(_ context.Context, name, phone string) (db.Customer, error) {
	if c, ok := s.byPhone[phone]; ok {
		return c, nil
	}
	c := db.Customer{ID: uuid.New(), Name: name, Phone: phone}
	s.byPhone[phone] = c
	return c, nil
}

func (s *stubQueries) CountPaidOrdersByCustomer(_ context.Context, id uuid.UUID) (int64, error) {
	return s.paid[id], nil
}

type stubTokens struct{}

func (stubTokens) IssueCustomerToken(id string) (string, time.Time, error) {
	return "token-" + id, time.Now().Add(time.Hour), nil
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"0812-3456-7890":    "081234567890",
		"+62 812 3456 7890": "081234567890",
		"081234567890":      "081234567890",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err := NormalizePhone("123")
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestIdentifyCreatesOnceAndReportsNewMember(t *testing.T) {
	q := newStub()
	svc := &Service{Q: q, Tokens: stubTokens{}}
	ctx := context.Background()

	first, err := svc.Identify(ctx, "Budi", "+62 812 3456 7890")
	require.NoError(t, err)
	require.True(t, first.Profile.IsNewMember)
	require.Equal(t, "token-"+first.Profile.ID.String(), first.AccessToken)

	q.paid[first.Profile.ID] = 2
	second, err := svc.Identify(ctx, "Budi", "0812-3456-7890")
	require.NoError(t, err)
	require.Equal(t, first.Profile.ID, second.Profile.ID)
	require.False(t, second.Profile.IsNewMember)
	require.Equal(t, int64(2), second.Profile.PaidOrders)
}

func TestLookupByPhoneNotFound(t *testing.T) {
	svc := &Service{Q: newStub(), Tokens: stubTokens{}}
	_, err := svc.LookupByPhone(context.Background(), "081234567890")
	require.True(t, common.IsKind(err, common.KindNotFound))
}

func TestIdentifyHandlerRejectsBadPhone(t *testing.T) {
	h := &Handler{Svc: &Service{Q: newStub(), Tokens: stubTokens{}}, Logger: zerolog.Nop()}
	rec := httptest.NewRecorder()
	h.Identify(rec, httptest.NewRequest(http.MethodPost, "/customers/identify", strings.NewReader(`{"name":"A","phone":"12"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_PHONE")
}
