package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// Handler exposes order submission over HTTP.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

// Submit handles POST /checkout for cashiers and self-ordering customers.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.Svc.Submit(r.Context(), actorFrom(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusCreated, res)
}

// RetryPayment handles POST /orders/{id}/pay.
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ValidationError("BAD_REQUEST", "invalid order id", err))
		return
	}
	res, err := h.Svc.RetryPayment(r.Context(), actorFrom(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

func actorFrom(r *http.Request) Actor {
	id, ok := common.SubjectUUID(r.Context())
	if !ok {
		return Actor{}
	}
	if common.IsStaff(r.Context()) {
		return Actor{StaffID: &id}
	}
	return Actor{CustomerID: &id}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !common.IsAppError(err) {
		h.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("checkout_failed")
	} else if common.IsKind(err, common.KindUpstream) || common.IsKind(err, common.KindConfiguration) {
		h.Logger.Warn().Err(err).Str("path", r.URL.Path).Msg("checkout_failed")
	}
	common.WriteError(w, err)
}
