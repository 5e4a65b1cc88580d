package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/events"
)

// NewMux routes event tasks to their handlers. Topics without a consumer are
// acknowledged and logged.
func NewMux(loyalty *Loyalty, logger zerolog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(logTasks(logger))
	mux.Handle(events.TopicOrderPaid, loyalty)
	for _, topic := range []string{events.TopicOrderCreated, events.TopicOrderCancelled, events.TopicPaymentFailed} {
		mux.HandleFunc(topic, ack)
	}
	return mux
}

func ack(context.Context, *asynq.Task) error { return nil }

func logTasks(logger zerolog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, task)
			evt := logger.Debug()
			if err != nil {
				evt = logger.Warn().Err(err)
			}
			id, _ := asynq.GetTaskID(ctx)
			evt.Str("task_type", task.Type()).
				Str("task_id", id).
				Dur("took", time.Since(start)).
				Msg("task_processed")
			return err
		})
	}
}
