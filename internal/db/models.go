package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusChallenge PaymentStatus = "challenge"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether gateway notifications may no longer change the status.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusCancelled
}

type KitchenStatus string

const (
	KitchenStatusPending KitchenStatus = "pending"
	KitchenStatusCooking KitchenStatus = "cooking"
	KitchenStatusReady   KitchenStatus = "ready"
	KitchenStatusServed  KitchenStatus = "served"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodQRIS PaymentMethod = "qris"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
)

type StaffUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
}

type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SortOrder int32     `json:"sortOrder"`
}

type Product struct {
	ID          uuid.UUID  `json:"id"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       int64      `json:"price"`
	ImageURL    string     `json:"imageUrl"`
	IsAvailable bool       `json:"isAvailable"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Voucher struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	MinPurchase int64           `json:"minPurchase"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type StoreSetting struct {
	StoreName              string           `json:"storeName"`
	StoreAddress           string           `json:"storeAddress"`
	NewMemberPromoActive   bool             `json:"newMemberPromoActive"`
	NewMemberDiscountType  string           `json:"newMemberDiscountType"`
	NewMemberDiscountValue decimal.Decimal  `json:"newMemberDiscountValue"`
	TaxRate                *decimal.Decimal `json:"taxRate,omitempty"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

type Order struct {
	ID                 uuid.UUID     `json:"id"`
	CustomerID         *uuid.UUID    `json:"customerId,omitempty"`
	CustomerName       string        `json:"customerName"`
	CustomerPhone      string        `json:"customerPhone"`
	TableNumber        string        `json:"tableNumber"`
	OrderType          OrderType     `json:"orderType"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	PaymentStatus      PaymentStatus `json:"paymentStatus"`
	KitchenStatus      KitchenStatus `json:"kitchenStatus"`
	SubtotalAmount     int64         `json:"subtotalAmount"`
	DiscountAmount     int64         `json:"discountAmount"`
	TaxAmount          int64         `json:"taxAmount"`
	FinalAmount        int64         `json:"finalAmount"`
	VoucherCode        *string       `json:"voucherCode,omitempty"`
	CashReceived       *int64        `json:"cashReceived,omitempty"`
	ChangeAmount       *int64        `json:"changeAmount,omitempty"`
	GatewayRef         *string       `json:"gatewayRef,omitempty"`
	GatewayToken       *string       `json:"gatewayToken,omitempty"`
	GatewayRedirectURL *string       `json:"gatewayRedirectUrl,omitempty"`
	PaidAt             *time.Time    `json:"paidAt,omitempty"`
	CreatedBy          *uuid.UUID    `json:"createdBy,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

type OrderLine struct {
	ID        int64     `json:"id"`
	OrderID   uuid.UUID `json:"orderId"`
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unitPrice"`
	Quantity  int32     `json:"quantity"`
	LineTotal int64     `json:"lineTotal"`
}

type DomainEvent struct {
	ID          int64           `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type AuditLog struct {
	ID           int64      `json:"id"`
	ActorRole    string     `json:"actorRole"`
	ActorID      *uuid.UUID `json:"actorId,omitempty"`
	Action       string     `json:"action"`
	ResourceType string     `json:"resourceType"`
	ResourceID   *string    `json:"resourceId,omitempty"`
	Method       string     `json:"method"`
	Path         string     `json:"path"`
	Status       int32      `json:"status"`
	IP           *string    `json:"ip,omitempty"`
	RequestID    *string    `json:"requestId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
