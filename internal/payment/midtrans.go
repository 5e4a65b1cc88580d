package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/kopi-pos/internal/resilience"
)

const (
	snapSandboxURL    = "https://app.sandbox.midtrans.com"
	snapProductionURL = "https://app.midtrans.com"
	snapPath          = "/snap/v1/transactions"
	maxItemNameLen    = 50
)

// truncateRunes cuts s to at most n characters without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// MidtransConfig configures the Snap client.
type MidtransConfig struct {
	ServerKey string
	BaseURL   string
	Sandbox   bool
	FinishURL string
	HTTP      resilience.HTTPClient
}

// Midtrans mints Snap tokens over the Snap REST API.
type Midtrans struct {
	serverKey string
	baseURL   string
	finishURL string
	http      resilience.HTTPClient
}

// NewMidtrans builds a Snap client. The server key is required: without it
// no transaction can be authorised.
func NewMidtrans(cfg MidtransConfig) (*Midtrans, error) {
	key := strings.TrimSpace(cfg.ServerKey)
	if key == "" {
		return nil, ErrServerKeyMissing
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = snapProductionURL
		if cfg.Sandbox {
			base = snapSandboxURL
		}
	}
	client := cfg.HTTP
	if client.Client == nil {
		client.Client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if client.Breaker != nil {
		client.Breaker = client.Breaker.WithTarget("midtrans")
	}
	return &Midtrans{serverKey: key, baseURL: base, finishURL: strings.TrimSpace(cfg.FinishURL), http: client}, nil
}

type snapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	ItemDetails     []Item          `json:"item_details,omitempty"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	CreditCard      struct {
		Secure bool `json:"secure"`
	} `json:"credit_card"`
	CustomField1 string         `json:"custom_field1,omitempty"`
	Callbacks    *snapCallbacks `json:"callbacks,omitempty"`
}

type snapCallbacks struct {
	Finish string `json:"finish"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateTransaction implements Gateway.
func (m *Midtrans) CreateTransaction(ctx context.Context, req TransactionRequest) (TransactionResult, error) {
	if strings.TrimSpace(req.OrderRef) == "" {
		return TransactionResult{}, errors.New("payment: order reference is required")
	}
	if req.GrossAmount <= 0 {
		return TransactionResult{}, fmt.Errorf("payment: gross amount must be positive, got %d", req.GrossAmount)
	}
	if len(req.Items) > 0 && ItemsTotal(req.Items) != req.GrossAmount {
		return TransactionResult{}, fmt.Errorf("payment: item total %d does not match gross amount %d", ItemsTotal(req.Items), req.GrossAmount)
	}

	var body snapRequest
	body.TransactionDetails.OrderID = req.OrderRef
	body.TransactionDetails.GrossAmount = req.GrossAmount
	body.CustomerDetails = req.Customer
	body.CreditCard.Secure = true
	body.CustomField1 = req.OrderID
	if m.finishURL != "" {
		body.Callbacks = &snapCallbacks{Finish: m.finishURL}
	}
	body.ItemDetails = make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		it.Name = truncateRunes(it.Name, maxItemNameLen)
		body.ItemDetails = append(body.ItemDetails, it)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return TransactionResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+snapPath, bytes.NewReader(payload))
	if err != nil {
		return TransactionResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(m.serverKey, "")

	resp, err := m.http.Do(ctx, httpReq)
	if err != nil {
		return TransactionResult{}, fmt.Errorf("payment: snap request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TransactionResult{}, fmt.Errorf("payment: read snap response: %w", err)
	}
	var out snapResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return TransactionResult{}, fmt.Errorf("payment: decode snap response (%d): %w", resp.StatusCode, err)
		}
	}
	if resp.StatusCode >= http.StatusBadRequest || out.Token == "" {
		return TransactionResult{}, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, strings.Join(out.ErrorMessages, "; "))
	}
	return TransactionResult{Token: out.Token, RedirectURL: out.RedirectURL}, nil
}
