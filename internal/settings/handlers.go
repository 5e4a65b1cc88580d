package settings

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// Handler exposes the store settings endpoints.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

// Get handles GET /settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	row, err := h.Svc.Get(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("get store settings")
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, row)
}

// Update handles PUT /admin/settings.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	row, err := h.Svc.Update(r.Context(), in)
	if err != nil {
		if !common.IsAppError(err) {
			h.Logger.Error().Err(err).Msg("update store settings")
		}
		common.WriteError(w, err)
		return
	}
	h.Logger.Info().Bool("promo_active", row.NewMemberPromoActive).Msg("store settings updated")
	common.Data(w, http.StatusOK, row)
}
