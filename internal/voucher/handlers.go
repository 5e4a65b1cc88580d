package voucher

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/pricing"
)

// AdminQuerier lists the voucher management queries.
type AdminQuerier interface {
	ListVouchers(ctx context.Context) ([]db.Voucher, error)
	CreateVoucher(ctx context.Context, arg db.CreateVoucherParams) (db.Voucher, error)
	SetVoucherActive(ctx context.Context, id uuid.UUID, active bool) (db.Voucher, error)
	DeleteVoucher(ctx context.Context, id uuid.UUID) (int64, error)
}

// Handler exposes voucher preview and administrative voucher management endpoints.
type Handler struct {
	Q      AdminQuerier
	Svc    *Service
	Logger zerolog.Logger
}

type createRequest struct {
	Code        string          `json:"code" validate:"required,max=32"`
	Type        string          `json:"type" validate:"required,oneof=percent fixed"`
	Value       decimal.Decimal `json:"value"`
	MinPurchase int64           `json:"minPurchase" validate:"gte=0"`
	IsActive    *bool           `json:"isActive"`
}

type toggleRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type previewRequest struct {
	Code     string `json:"code" validate:"required"`
	Subtotal int64  `json:"subtotal" validate:"gte=0"`
}

// List returns every voucher, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.Q.ListVouchers(r.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("list vouchers")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list vouchers", nil)
		return
	}
	if vouchers == nil {
		vouchers = []db.Voucher{}
	}
	common.Data(w, http.StatusOK, vouchers)
}

// Create inserts a new voucher. Codes are stored upper-cased.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	code := NormalizeCode(req.Code)
	if code == "" || strings.ContainsAny(code, " \t") {
		common.WriteError(w, common.ValidationError("VOUCHER_CODE_INVALID", "code must be a single word", nil))
		return
	}
	candidate := pricing.Discount{Kind: pricing.DiscountKind(req.Type), Value: req.Value}
	if err := candidate.Validate(); err != nil {
		common.WriteError(w, common.ValidationError("VOUCHER_VALUE_INVALID", "percent must be 0-100 and fixed must not be negative", err))
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	v, err := h.Q.CreateVoucher(r.Context(), db.CreateVoucherParams{
		Code:        code,
		Type:        req.Type,
		Value:       req.Value,
		MinPurchase: req.MinPurchase,
		IsActive:    active,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "voucher code already exists", nil)
			return
		}
		h.Logger.Error().Err(err).Str("code", code).Msg("create voucher")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create voucher", nil)
		return
	}
	common.Data(w, http.StatusCreated, v)
}

// SetActive toggles a voucher on or off.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid voucher id", nil)
		return
	}
	var req toggleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Q.SetVoucherActive(r.Context(), id, *req.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "voucher not found", nil)
			return
		}
		h.Logger.Error().Err(err).Str("voucher_id", id.String()).Msg("toggle voucher")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update voucher", nil)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Delete removes a voucher. Orders keep the code they were priced with.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid voucher id", nil)
		return
	}
	n, err := h.Q.DeleteVoucher(r.Context(), id)
	if err != nil {
		h.Logger.Error().Err(err).Str("voucher_id", id.String()).Msg("delete voucher")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete voucher", nil)
		return
	}
	if n == 0 {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "voucher not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview evaluates a code against a subtotal without touching any cart.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher service not configured", nil)
		return
	}
	var req previewRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	d, err := h.Svc.Voucher(r.Context(), req.Code, req.Subtotal)
	if err != nil {
		mapped := AsAppError(err)
		if !common.IsAppError(mapped) {
			h.Logger.Error().Err(err).Msg("preview voucher")
		}
		common.WriteError(w, mapped)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"discount":       d,
		"discountAmount": d.Amount(req.Subtotal),
	})
}
