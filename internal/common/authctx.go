package common

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	subjectKey ctxKey = "auth/subject"
	roleKey    ctxKey = "auth/role"
)

// Roles carried in access tokens.
const (
	RoleAdmin    = "admin"
	RoleCashier  = "cashier"
	RoleKitchen  = "kitchen"
	RoleCustomer = "customer"
)

// WithPrincipal stores the authenticated subject and role on the provided context.
func WithPrincipal(ctx context.Context, subject, role string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, subject)
	return context.WithValue(ctx, roleKey, role)
}

// Subject extracts the authenticated subject (staff or customer id) from the context if present.
func Subject(ctx context.Context) (string, bool) {
	v := ctx.Value(subjectKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// Role returns the role of the authenticated principal or an empty string.
func Role(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// IsStaff reports whether the principal on ctx is a staff member.
func IsStaff(ctx context.Context) bool {
	switch Role(ctx) {
	case RoleAdmin, RoleCashier, RoleKitchen:
		return true
	}
	return false
}

// SubjectUUID parses the authenticated subject as a uuid.
func SubjectUUID(ctx context.Context) (uuid.UUID, bool) {
	subject, ok := Subject(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
