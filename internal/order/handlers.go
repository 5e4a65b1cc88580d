package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// Handler serves customer order tracking and cancellation.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

type cancelRequest struct {
	Confirm bool `json:"confirm"`
}

// List handles GET /orders for the authenticated customer.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	customerID, ok := common.SubjectUUID(r.Context())
	if !ok || common.Role(r.Context()) != common.RoleCustomer {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "customer token required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	res, err := h.Svc.ListForCustomer(r.Context(), customerID, page, perPage)
	if err != nil {
		h.fail(w, err, "list orders")
		return
	}
	setTotal(w, res.Total)
	common.JSON(w, http.StatusOK, map[string]any{
		"data": res.Orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(res.Total),
		},
	})
}

// Get handles GET /orders/{id}. Clients poll it to track payment and kitchen status.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.Svc.Get(r.Context(), id, customerScope(r))
	if err != nil {
		h.fail(w, err, "get order")
		return
	}
	common.Data(w, http.StatusOK, detail)
}

// Cancel handles POST /orders/{id}/cancel. The body must carry {"confirm": true}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if !req.Confirm {
		common.JSONError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", "cancellation must be confirmed", nil)
		return
	}
	o, err := h.Svc.Cancel(r.Context(), id, customerScope(r))
	if err != nil {
		h.fail(w, err, "cancel order")
		return
	}
	common.Data(w, http.StatusOK, o)
}

// customerScope limits customers to their own orders; staff see all.
func customerScope(r *http.Request) *uuid.UUID {
	if common.IsStaff(r.Context()) {
		return nil
	}
	id, ok := common.SubjectUUID(r.Context())
	if !ok {
		// matches nothing
		id = uuid.Nil
	}
	return &id
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	if !common.IsAppError(err) {
		h.Logger.Error().Err(err).Msg(msg)
	}
	common.WriteError(w, err)
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func setTotal(w http.ResponseWriter, total int64) {
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
}
