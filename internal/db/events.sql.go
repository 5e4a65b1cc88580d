package db

import (
	"context"
	"encoding/json"
)

const insertDomainEvent = `-- name: InsertDomainEvent :one
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, created_at
`

type InsertDomainEventParams struct {
	Topic       string
	AggregateID string
	Payload     json.RawMessage
}

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) (DomainEvent, error) {
	var e DomainEvent
	err := q.db.QueryRow(ctx, insertDomainEvent, arg.Topic, arg.AggregateID, []byte(arg.Payload)).Scan(
		&e.ID,
		&e.Topic,
		&e.AggregateID,
		&e.Payload,
		&e.CreatedAt,
	)
	return e, err
}
