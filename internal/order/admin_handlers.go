package order

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/common"
)

const dateLayout = "2006-01-02"

// AdminHandler serves the kitchen queue and the admin transaction list.
type AdminHandler struct {
	Svc    *Service
	Logger zerolog.Logger
	// Location interprets date filters; defaults to UTC.
	Location *time.Location
}

type kitchenStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=cooking ready served"`
}

// KitchenQueue handles GET /kitchen/orders.
func (h *AdminHandler) KitchenQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.Svc.KitchenQueue(r.Context())
	if err != nil {
		h.fail(w, err, "kitchen queue")
		return
	}
	common.Data(w, http.StatusOK, queue)
}

// PatchKitchenStatus handles PATCH /kitchen/orders/{id}.
func (h *AdminHandler) PatchKitchenStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req kitchenStatusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	status, _ := ParseKitchenStatus(req.Status)
	o, err := h.Svc.AdvanceKitchen(r.Context(), id, status)
	if err != nil {
		h.fail(w, err, "advance kitchen status")
		return
	}
	common.Data(w, http.StatusOK, o)
}

// List handles GET /admin/orders?status=&from=&to=&page=&limit=. Dates are
// inclusive calendar days.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, ok := ParsePaymentStatus(q.Get("status"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status filter", nil)
		return
	}
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	var f Filter
	f.PaymentStatus = status
	if v := q.Get("from"); v != "" {
		from, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be YYYY-MM-DD", nil)
			return
		}
		f.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "to must be YYYY-MM-DD", nil)
			return
		}
		f.To = to.AddDate(0, 0, 1)
	}
	f.Page, f.PerPage = common.ParsePagination(r, 20, 100)

	res, err := h.Svc.List(r.Context(), f)
	if err != nil {
		h.fail(w, err, "list orders")
		return
	}
	setTotal(w, res.Total)
	common.JSON(w, http.StatusOK, map[string]any{
		"data": res.Orders,
		"pagination": common.Pagination{
			Page:       f.Page,
			PerPage:    f.PerPage,
			TotalItems: int(res.Total),
		},
	})
}

func (h *AdminHandler) fail(w http.ResponseWriter, err error, msg string) {
	if !common.IsAppError(err) {
		h.Logger.Error().Err(err).Msg(msg)
	}
	common.WriteError(w, err)
}
