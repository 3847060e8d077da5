package domain

import "github.com/shopspring/decimal"

type IntentStatus string

const (
	IntentPending   IntentStatus = "Pending"
	IntentConfirmed IntentStatus = "Confirmed"
	IntentFailed    IntentStatus = "Failed"
)

// CheckoutItem is one cart line as submitted to POST /api/checkout.
type CheckoutItem struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name,omitempty"`
	Slug       string          `json:"slug,omitempty"`
	VariantKey string          `json:"variantKey"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

type CheckoutRequest struct {
	Items []CheckoutItem `json:"items"`
}

// IntentResponse is the backend answer to checkout creation. Total is authoritative.
type IntentResponse struct {
	OrderID      string           `json:"orderId"`
	ClientSecret string           `json:"clientSecret"`
	Total        *decimal.Decimal `json:"total,omitempty"`
	Message      string           `json:"message,omitempty"`
}

// CheckoutIntent is one attempted checkout. AmountDue is the backend total.
type CheckoutIntent struct {
	OrderID        string
	ClientSecret   string
	IdempotencyKey string
	AmountDue      decimal.Decimal
	ClientTotal    decimal.Decimal
	Status         IntentStatus
}

type PaymentStatus string

const (
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentProcessing PaymentStatus = "processing"
	PaymentDeclined   PaymentStatus = "requires_payment_method"
	PaymentCanceled   PaymentStatus = "canceled"
)

// PaymentResult is what the payment processor reports after confirming an intent.
type PaymentResult struct {
	Reference string
	Status    PaymentStatus
	Reason    string
}

func (r PaymentResult) Succeeded() bool {
	return r.Status == PaymentSucceeded
}

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

type ConfirmPaymentRequest struct {
	OrderID          string `json:"orderId"`
	PaymentReference string `json:"paymentReference"`
	PaymentStatus    string `json:"paymentStatus,omitempty"`
}

type OrderConfirmation struct {
	OrderID string      `json:"orderId"`
	Status  OrderStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// CheckoutOutcome is the observable result of a finished (or abandoned) checkout attempt.
type CheckoutOutcome struct {
	State  CheckoutState
	Intent *CheckoutIntent
	Reason string
	Err    error
}
