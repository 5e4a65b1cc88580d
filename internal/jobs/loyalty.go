// Package jobs holds the asynq handlers run by the worker.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/events"
	"github.com/noah-isme/kopi-pos/internal/obs"
)

// DefaultPointsUnit is the currency amount that earns one point.
const DefaultPointsUnit int64 = 10000

// PointsQuerier credits loyalty points for a paid order.
type PointsQuerier interface {
	AwardOrderPoints(ctx context.Context, orderID uuid.UUID, unit int64) (db.AwardOrderPointsRow, error)
}

// Loyalty accrues points when an order is paid.
type Loyalty struct {
	Q      PointsQuerier
	Unit   int64
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler for order.paid tasks. Redelivered
// tasks are harmless because the credit is claimed once per order.
func (l *Loyalty) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ev, err := events.DecodeTask(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	orderID, err := uuid.Parse(ev.AggregateID)
	if err != nil {
		return fmt.Errorf("%w: order id %q: %v", asynq.SkipRetry, ev.AggregateID, err)
	}
	unit := l.Unit
	if unit <= 0 {
		unit = DefaultPointsUnit
	}
	award, err := l.Q.AwardOrderPoints(ctx, orderID, unit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.Logger.Debug().Str("order_id", orderID.String()).Msg("loyalty_skipped")
			return nil
		}
		return fmt.Errorf("award points for %s: %w", orderID, err)
	}
	if obs.LoyaltyPointsAwarded != nil && award.Awarded > 0 {
		obs.LoyaltyPointsAwarded.Add(float64(award.Awarded))
	}
	l.Logger.Info().
		Str("order_id", orderID.String()).
		Str("customer_id", award.CustomerID.String()).
		Int64("points", award.Awarded).
		Int64("balance", award.Balance).
		Msg("loyalty_points_awarded")
	return nil
}
