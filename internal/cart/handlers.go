package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kopi-pos/internal/common"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
}

type createRequest struct {
	CustomerID *uuid.UUID `json:"customerId"`
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=99"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=99"`
}

type voucherRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// Create handles POST /carts. A customer token binds the cart to that customer;
// staff may attach a customer explicitly.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength > 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	customerID := req.CustomerID
	if common.Role(r.Context()) == common.RoleCustomer {
		customerID = nil
		if subject, ok := common.Subject(r.Context()); ok {
			if id, err := uuid.Parse(subject); err == nil {
				customerID = &id
			}
		}
	} else if !common.IsStaff(r.Context()) {
		customerID = nil
	}
	q, err := h.Svc.Create(r.Context(), customerID)
	if err != nil {
		h.fail(w, err, "create cart")
		return
	}
	common.Data(w, http.StatusCreated, q)
}

// Get handles GET /carts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	q, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get cart")
		return
	}
	common.Data(w, http.StatusOK, q)
}

// AddItem handles POST /carts/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.AddItem(r.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, err, "add cart item")
		return
	}
	common.Data(w, http.StatusOK, q)
}

// UpdateItem handles PATCH /carts/{id}/items/{productID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.UpdateItem(r.Context(), id, productID, *req.Quantity)
	if err != nil {
		h.fail(w, err, "update cart item")
		return
	}
	common.Data(w, http.StatusOK, q)
}

// RemoveItem handles DELETE /carts/{id}/items/{productID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}
	q, err := h.Svc.RemoveItem(r.Context(), id, productID)
	if err != nil {
		h.fail(w, err, "remove cart item")
		return
	}
	common.Data(w, http.StatusOK, q)
}

// ApplyVoucher handles POST /carts/{id}/voucher.
func (h *Handler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req voucherRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.ApplyVoucher(r.Context(), id, req.Code)
	if err != nil {
		h.fail(w, err, "apply voucher")
		return
	}
	common.Data(w, http.StatusOK, q)
}

// RemoveVoucher handles DELETE /carts/{id}/voucher.
func (h *Handler) RemoveVoucher(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	q, err := h.Svc.RemoveVoucher(r.Context(), id)
	if err != nil {
		h.fail(w, err, "remove voucher")
		return
	}
	common.Data(w, http.StatusOK, q)
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	if !common.IsAppError(err) {
		h.Logger.Error().Err(err).Msg(op)
	}
	common.WriteError(w, err)
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}
