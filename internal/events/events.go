// Package events publishes checkout outcomes for anything downstream that
// wants to observe them.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	CheckoutCompleted  Type = "checkout.completed"
	CheckoutFailed     Type = "checkout.failed"
	CheckoutDivergence Type = "checkout.divergence"
)

type Event struct {
	Type           Type            `json:"type"`
	OrderID        string          `json:"order_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	UserID         string          `json:"user_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
