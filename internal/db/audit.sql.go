package db

import (
	"context"

	"github.com/google/uuid"
)

const insertAuditLog = `-- name: InsertAuditLog :exec
INSERT INTO audit_logs (actor_role, actor_id, action, resource_type, resource_id, method, path, status, ip, request_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type InsertAuditLogParams struct {
	ActorRole    string
	ActorID      *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *string
	Method       string
	Path         string
	Status       int32
	IP           *string
	RequestID    *string
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog,
		arg.ActorRole,
		arg.ActorID,
		arg.Action,
		arg.ResourceType,
		arg.ResourceID,
		arg.Method,
		arg.Path,
		arg.Status,
		arg.IP,
		arg.RequestID,
	)
	return err
}

const listAuditLogs = `-- name: ListAuditLogs :many
SELECT id, actor_role, actor_id, action, resource_type, resource_id, method, path, status, ip, request_id, created_at
FROM audit_logs
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2
`

func (q *Queries) ListAuditLogs(ctx context.Context, limit, offset int32) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogs, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(
			&a.ID,
			&a.ActorRole,
			&a.ActorID,
			&a.Action,
			&a.ResourceType,
			&a.ResourceID,
			&a.Method,
			&a.Path,
			&a.Status,
			&a.IP,
			&a.RequestID,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
