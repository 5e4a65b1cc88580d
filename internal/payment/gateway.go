package payment

import (
	"context"
	"errors"
)

// ErrGatewayRejected is returned when the gateway answers but refuses to mint a token.
var ErrGatewayRejected = errors.New("payment: gateway rejected transaction")

// Item is one line of the gateway's item list. Price may be negative for the
// synthetic discount line.
type Item struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

// CustomerDetails is forwarded to the gateway for receipts.
type CustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// TransactionRequest asks the gateway for a payment token.
type TransactionRequest struct {
	// OrderRef is the namespaced reference, see NamespaceOrderRef.
	OrderRef    string
	OrderID     string
	GrossAmount int64
	Items       []Item
	Customer    CustomerDetails
}

// TransactionResult carries the minted token.
type TransactionResult struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
}

// Gateway mints payment tokens.
type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (TransactionResult, error)
}

// ItemsTotal sums price times quantity, which the gateway requires to equal the gross amount.
func ItemsTotal(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}
