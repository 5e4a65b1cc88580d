package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/events"
	"github.com/noah-isme/kopi-pos/internal/obs"
)

// stubPoints claims each order once, like the SQL flag.
type stubPoints struct {
	final   map[uuid.UUID]int64
	owner   map[uuid.UUID]uuid.UUID
	claimed map[uuid.UUID]bool
	balance int64
	err     error
}

func (s *stubPoints) AwardOrderPoints(_ context.Context, id uuid.UUID, unit int64) (db.AwardOrderPointsRow, error) {
	if s.err != nil {
		return db.AwardOrderPointsRow{}, s.err
	}
	final, ok := s.final[id]
	if !ok || s.claimed[id] {
		return db.AwardOrderPointsRow{}, pgx.ErrNoRows
	}
	s.claimed[id] = true
	pts := final / unit
	s.balance += pts
	return db.AwardOrderPointsRow{CustomerID: s.owner[id], Awarded: pts, Balance: s.balance}, nil
}

func paidTask(t *testing.T, orderID string) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(db.DomainEvent{ID: 7, Topic: events.TopicOrderPaid, AggregateID: orderID, Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	return asynq.NewTask(events.TopicOrderPaid, body)
}

func TestLoyaltyAwardsFloorOfFinalAmountOnce(t *testing.T) {
	obs.MustRegisterDomainMetrics("pos_test", prometheus.NewRegistry())
	before := testutil.ToFloat64(obs.LoyaltyPointsAwarded)

	orderID := uuid.New()
	q := &stubPoints{
		final:   map[uuid.UUID]int64{orderID: 55500},
		owner:   map[uuid.UUID]uuid.UUID{orderID: uuid.New()},
		claimed: map[uuid.UUID]bool{},
	}
	h := &Loyalty{Q: q, Unit: 10000, Logger: zerolog.Nop()}

	require.NoError(t, h.ProcessTask(context.Background(), paidTask(t, orderID.String())))
	require.Equal(t, int64(5), q.balance)

	// redelivery
	require.NoError(t, h.ProcessTask(context.Background(), paidTask(t, orderID.String())))
	require.Equal(t, int64(5), q.balance)
	require.Equal(t, before+5, testutil.ToFloat64(obs.LoyaltyPointsAwarded))
}

func TestLoyaltySkipsRetryOnMalformedTask(t *testing.T) {
	h := &Loyalty{Q: &stubPoints{}, Logger: zerolog.Nop()}

	err := h.ProcessTask(context.Background(), asynq.NewTask(events.TopicOrderPaid, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), paidTask(t, "not-a-uuid"))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestLoyaltyRetriesDatabaseErrors(t *testing.T) {
	h := &Loyalty{Q: &stubPoints{err: errors.New("connection refused")}, Logger: zerolog.Nop()}
	err := h.ProcessTask(context.Background(), paidTask(t, uuid.NewString()))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestMuxAcknowledgesTopicsWithoutConsumer(t *testing.T) {
	mux := NewMux(&Loyalty{Q: &stubPoints{}, Logger: zerolog.Nop()}, zerolog.Nop())
	err := mux.ProcessTask(context.Background(), asynq.NewTask(events.TopicOrderCreated, []byte(`{}`)))
	require.NoError(t, err)
}
