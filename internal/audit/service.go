package audit

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
)

// Store defines the database operations required for auditing.
type Store interface {
	InsertAuditLog(ctx context.Context, arg db.InsertAuditLogParams) error
	ListAuditLogs(ctx context.Context, limit, offset int32) ([]db.AuditLog, error)
}

// Entry is one staff action.
type Entry struct {
	Action       string
	ResourceType string
	ResourceID   string
	Route        string
	Status       int
}

// Service persists the staff action trail: price edits, voucher changes,
// settings updates, kitchen moves and cancellations.
type Service struct {
	Store   Store
	Enabled bool
}

// Record stores an entry for the principal on req.
func (s Service) Record(ctx context.Context, req *http.Request, e Entry) error {
	if !s.Enabled {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := strings.TrimSpace(e.Route)
	if route == "" {
		route = req.URL.Path
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}

	role := common.Role(req.Context())
	if role == "" {
		role = "anonymous"
	}
	var actorID *uuid.UUID
	if id, ok := common.SubjectUUID(req.Context()); ok {
		actorID = &id
	}

	return s.Store.InsertAuditLog(ctx, db.InsertAuditLogParams{
		ActorRole:    role,
		ActorID:      actorID,
		Action:       buildAction(e.Action, req.Method, route),
		ResourceType: buildResource(e.ResourceType, route),
		ResourceID:   optional(e.ResourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Status:       int32(status),
		IP:           optional(common.ClientIP(req)),
		RequestID:    optional(req.Header.Get("X-Request-ID")),
	})
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + route
}

// buildResource derives "admin.products" from "/admin/products/{id}".
func buildResource(resourceType, route string) string {
	if trimmed := strings.TrimSpace(resourceType); trimmed != "" {
		return trimmed
	}
	var parts []string
	for _, seg := range strings.Split(strings.Trim(route, "/"), "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ".")
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
