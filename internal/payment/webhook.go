package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/kopi-pos/internal/common"
	"github.com/noah-isme/kopi-pos/internal/db"
	"github.com/noah-isme/kopi-pos/internal/events"
	"github.com/noah-isme/kopi-pos/internal/obs"
)

const maxNotificationBytes = 64 << 10

// Notification is the gateway's asynchronous status report.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	CustomField1      string `json:"custom_field1"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
}

// OrderQuerier is the persistence the reconciler needs.
type OrderQuerier interface {
	GetOrder(ctx context.Context, id uuid.UUID) (db.Order, error)
	ApplyGatewayStatus(ctx context.Context, id uuid.UUID, status db.PaymentStatus) (db.Order, error)
}

// Outcome describes what a notification did.
type Outcome struct {
	OrderID   uuid.UUID
	Status    db.PaymentStatus
	Applied   bool
	Duplicate bool
	// Superseded is set for a non-paid status about a reference the order no
	// longer pays against, after a payment retry minted a new one.
	Superseded bool
	// Conflict is set when the order was already terminal or already held the status.
	Conflict error
}

// Reconciler applies gateway notifications to orders.
type Reconciler struct {
	ServerKey string
	Q         OrderQuerier
	Replay    *Replay
	Events    events.Emitter
	Logger    zerolog.Logger
}

// Reconcile verifies and applies one notification body. Every returned error is
// an AppError whose status tells the gateway whether to redeliver.
func (r *Reconciler) Reconcile(ctx context.Context, body []byte) (Outcome, error) {
	if r == nil || r.Q == nil || strings.TrimSpace(r.ServerKey) == "" {
		return Outcome{}, common.ConfigurationError("PAYMENT_NOT_CONFIGURED", "payment notifications are not configured", ErrServerKeyMissing)
	}
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return Outcome{}, common.NewAppError("INVALID_PAYLOAD", "invalid notification body", http.StatusBadRequest, err)
	}
	if err := VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, r.ServerKey, n.SignatureKey); err != nil {
		return Outcome{}, common.AuthenticationError("INVALID_SIGNATURE", "signature verification failed", http.StatusForbidden, err)
	}

	seen, err := r.Replay.Seen(ctx, body)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("payment_replay_lookup_failed")
	} else if seen {
		return Outcome{Duplicate: true}, nil
	}

	orderID, err := RecoverOrderID(n.OrderID, n.CustomField1)
	if errors.Is(err, ErrOrderRefMismatch) {
		r.Logger.Warn().
			Str("order_ref", n.OrderID).
			Str("custom_field1", n.CustomField1).
			Msg("payment_order_ref_mismatch")
		return Outcome{}, common.NewAppError("ORDER_REF_MISMATCH", "order reference does not match custom_field1", http.StatusBadRequest, err)
	}
	if err != nil {
		return Outcome{}, common.NewAppError("INVALID_ORDER_ID", "invalid order reference", http.StatusBadRequest, err)
	}
	out := Outcome{OrderID: orderID}

	status, ok := MapStatus(n.TransactionStatus, n.FraudStatus)
	out.Status = status
	if !ok {
		r.remember(ctx, body)
		return out, nil
	}

	order, err := r.Q.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return out, common.NotFoundError("ORDER_NOT_FOUND", "order not found", err)
		}
		return out, common.UpstreamError("ORDER_LOOKUP_FAILED", "unable to load order", http.StatusInternalServerError, err)
	}
	gross, err := parseGrossAmount(n.GrossAmount)
	if err != nil || gross != order.FinalAmount {
		r.Logger.Warn().
			Str("order_id", orderID.String()).
			Str("gross_amount", n.GrossAmount).
			Int64("final_amount", order.FinalAmount).
			Msg("payment_amount_mismatch")
		return out, common.NewAppError("AMOUNT_MISMATCH", "gross amount does not match order", http.StatusBadRequest, err)
	}

	if order.GatewayRef != nil && *order.GatewayRef != strings.TrimSpace(n.OrderID) {
		// An expiring token from before a retry must not cancel the order the
		// customer is still paying. Money that did arrive is still applied.
		if status != db.PaymentStatusPaid {
			out.Superseded = true
			r.remember(ctx, body)
			return out, nil
		}
		r.Logger.Warn().
			Str("order_id", orderID.String()).
			Str("order_ref", n.OrderID).
			Str("gateway_ref", *order.GatewayRef).
			Msg("payment_paid_on_superseded_ref")
	}

	updated, err := r.Q.ApplyGatewayStatus(ctx, orderID, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			out.Conflict = common.ConflictError("ORDER_TERMINAL", fmt.Sprintf("order already %s", order.PaymentStatus), err)
			if status == db.PaymentStatusPaid && order.PaymentStatus == db.PaymentStatusCancelled {
				// The customer paid for an order that is already cancelled:
				// needs a refund or manual reinstatement.
				r.Logger.Error().
					Str("order_id", orderID.String()).
					Str("order_ref", n.OrderID).
					Str("gross_amount", n.GrossAmount).
					Msg("payment_received_for_cancelled_order")
			}
			r.remember(ctx, body)
			return out, nil
		}
		return out, common.UpstreamError("ORDER_UPDATE_FAILED", "unable to update order", http.StatusInternalServerError, err)
	}
	out.Applied = true
	r.emit(ctx, updated)
	r.remember(ctx, body)
	return out, nil
}

func (r *Reconciler) remember(ctx context.Context, body []byte) {
	if err := r.Replay.Remember(ctx, body); err != nil {
		r.Logger.Warn().Err(err).Msg("payment_replay_store_failed")
	}
}

func (r *Reconciler) emit(ctx context.Context, order db.Order) {
	if r.Events == nil {
		return
	}
	var topic string
	switch order.PaymentStatus {
	case db.PaymentStatusPaid:
		topic = events.TopicOrderPaid
	case db.PaymentStatusCancelled:
		topic = events.TopicOrderCancelled
	default:
		return
	}
	if _, err := r.Events.Emit(ctx, topic, order.ID, OrderEvent(order)); err != nil {
		r.Logger.Error().Err(err).Str("order_id", order.ID.String()).Str("topic", topic).Msg("order_event_failed")
	}
}

// OrderEvent is the payload published for order topics.
func OrderEvent(o db.Order) map[string]any {
	payload := map[string]any{
		"orderId":       o.ID.String(),
		"paymentMethod": o.PaymentMethod,
		"paymentStatus": o.PaymentStatus,
		"finalAmount":   o.FinalAmount,
	}
	if o.CustomerID != nil {
		payload["customerId"] = o.CustomerID.String()
	}
	return payload
}

// parseGrossAmount accepts "44400" and "44400.00".
func parseGrossAmount(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("gross amount %q has a fractional part", value)
	}
	return d.IntPart(), nil
}

// WebhookHandler exposes the reconciler over HTTP.
type WebhookHandler struct {
	Reconciler *Reconciler
	Logger     zerolog.Logger
}

// Handle answers {"message":"OK"} for anything the gateway should stop redelivering.
func (h WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
	if err != nil {
		obs.Count(obs.PaymentWebhookTotal, "bad_request")
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}
	out, err := h.Reconciler.Reconcile(r.Context(), body)
	if err != nil {
		h.logFailure(r, body, err)
		obs.Count(obs.PaymentWebhookTotal, resultLabel(err))
		common.WriteError(w, err)
		return
	}
	result := "ignored"
	switch {
	case out.Duplicate:
		result = "duplicate"
	case out.Superseded:
		result = "superseded"
		h.Logger.Info().Str("order_id", out.OrderID.String()).Str("status", string(out.Status)).Msg("payment_webhook_superseded_ref")
	case out.Conflict != nil:
		result = "conflict"
		h.Logger.Info().Str("order_id", out.OrderID.String()).Str("status", string(out.Status)).Err(out.Conflict).Msg("payment_webhook_noop")
	case out.Applied:
		result = "applied"
		h.Logger.Info().Str("order_id", out.OrderID.String()).Str("status", string(out.Status)).Msg("payment_webhook_applied")
	}
	obs.Count(obs.PaymentWebhookTotal, result)
	common.JSON(w, http.StatusOK, map[string]string{"message": "OK"})
}

func (h WebhookHandler) logFailure(r *http.Request, body []byte, err error) {
	var ref struct {
		OrderID string `json:"order_id"`
	}
	_ = json.Unmarshal(body, &ref)
	evt := h.Logger.Warn()
	if common.IsKind(err, common.KindUpstream) || common.IsKind(err, common.KindConfiguration) {
		evt = h.Logger.Error()
	}
	evt.Err(err).Str("order_ref", ref.OrderID).Str("ip", r.RemoteAddr).Msg("payment_webhook_rejected")
}

func resultLabel(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
