package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// Handler exposes HTTP handlers for staff authentication.
type Handler struct {
	Service *Service
	Logger  zerolog.Logger
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if common.IsKind(err, common.KindAuthentication) {
			h.Logger.Warn().Str("email", req.Email).Str("ip", common.ClientIP(r)).Msg("staff login rejected")
		} else {
			h.Logger.Error().Err(err).Msg("staff login")
		}
		common.WriteError(w, err)
		return
	}
	h.Logger.Info().Str("staff_id", result.Staff.ID).Str("role", result.Staff.Role).Msg("staff login")
	common.Data(w, http.StatusOK, result)
}

// Me handles GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := common.Subject(r.Context())
	if !ok || !common.IsStaff(r.Context()) {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	staff, err := h.Service.Me(r.Context(), subject)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, staff)
}
