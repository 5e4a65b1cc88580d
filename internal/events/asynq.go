package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/kopi-pos/internal/db"
)

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskNotifier forwards stored events to the worker as asynq tasks. The task
// type is the event topic and the payload is the stored event.
type TaskNotifier struct {
	Client   TaskEnqueuer
	Queue    string
	MaxRetry int
	Topics   []string
}

// Notify enqueues the event when its topic is forwarded.
func (n TaskNotifier) Notify(ctx context.Context, event db.DomainEvent) error {
	if n.Client == nil || !n.forwards(event.Topic) {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	opts := []asynq.Option{asynq.Timeout(30 * time.Second)}
	if n.Queue != "" {
		opts = append(opts, asynq.Queue(n.Queue))
	}
	if n.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(n.MaxRetry))
	}
	if event.ID > 0 {
		opts = append(opts, asynq.TaskID(fmt.Sprintf("%s:%d", event.Topic, event.ID)))
	}
	if _, err := n.Client.EnqueueContext(ctx, asynq.NewTask(event.Topic, body), opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", event.Topic, err)
	}
	return nil
}

func (n TaskNotifier) forwards(topic string) bool {
	topics := n.Topics
	if len(topics) == 0 {
		topics = DefaultTopics()
	}
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

// DecodeTask reverses Notify for worker handlers.
func DecodeTask(task *asynq.Task) (db.DomainEvent, error) {
	var ev db.DomainEvent
	if err := json.Unmarshal(task.Payload(), &ev); err != nil {
		return db.DomainEvent{}, fmt.Errorf("decode %s task: %w", task.Type(), err)
	}
	return ev, nil
}
