package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/kopi-pos/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// Middleware turns bearer tokens into a principal on the request context.
// Staff and customer tokens share the format and differ only in role.
type Middleware struct {
	Service *Service
}

// Authenticate is the soft variant used by the cart routes: a walk-in customer
// without a token is still served, an invalid token is simply ignored.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx, err := m.principal(r); err == nil {
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth admits any valid token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.RequireRole()(next)
}

// RequireRole admits a valid token whose role is in roles, or any role when
// roles is empty. Failures answer 401 without a usable token and 403 for a
// role outside the group.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := m.principal(r)
			switch {
			case err == nil:
			case common.IsAppError(err):
				common.WriteError(w, err)
				return
			default:
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			if len(roles) > 0 && !hasRole(roles, common.Role(ctx)) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasRole(roles []string, role string) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

func (m Middleware) principal(r *http.Request) (context.Context, error) {
	if m.Service == nil {
		return nil, errors.New("auth: service not configured")
	}
	token, ok := bearer(r.Header.Get("Authorization"))
	if !ok {
		return nil, errNoToken
	}
	claims, err := m.Service.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}
	return common.WithPrincipal(r.Context(), claims.Subject, claims.Role), nil
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
