package customer

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// Handler exposes customer identification endpoints.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

type identifyRequest struct {
	Name  string `json:"name" validate:"max=120"`
	Phone string `json:"phone" validate:"required"`
}

// Identify handles POST /customers/identify.
func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	identity, err := h.Svc.Identify(r.Context(), req.Name, req.Phone)
	if err != nil {
		if !common.IsAppError(err) {
			h.Logger.Error().Err(err).Msg("identify customer")
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, identity)
}

// Me handles GET /customers/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, _ := common.Subject(r.Context())
	id, err := uuid.Parse(subject)
	if err != nil || common.Role(r.Context()) != common.RoleCustomer {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "customer token required", nil)
		return
	}
	profile, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, profile)
}

// Lookup handles GET /pos/customers?phone=.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Svc.LookupByPhone(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, profile)
}
