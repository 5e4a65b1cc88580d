package analytics

import (
	"net/http"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// Handler exposes dashboard read endpoints.
type Handler struct {
	Svc *Service
}

// Dashboard handles GET /admin/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	sum, err := h.Svc.Today(r.Context())
	if err != nil {
		h.Svc.Logger.Error().Err(err).Msg("dashboard")
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", "unable to load dashboard", nil)
		return
	}
	common.Data(w, http.StatusOK, sum)
}
