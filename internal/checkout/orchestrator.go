// Package checkout drives one checkout attempt at a time through intent
// creation, payment confirmation and reconciliation with the backend.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Cart interface {
	Lines() []domain.CartLine
	Subtotal() decimal.Decimal
	IsEmpty() bool
	Clear(ctx context.Context) error
}

type Identity interface {
	Token() string
	User() *domain.User
}

// Backend creates intents and records payment outcomes.
type Backend interface {
	CreateCheckout(ctx context.Context, token, idempotencyKey string, req domain.CheckoutRequest) (*domain.IntentResponse, error)
	ConfirmPayment(ctx context.Context, token string, req domain.ConfirmPaymentRequest) (*domain.OrderConfirmation, error)
}

// Processor confirms an intent with the payment gateway.
type Processor interface {
	ConfirmIntent(ctx context.Context, clientSecret string) (*domain.PaymentResult, error)
}

type Orchestrator struct {
	mu         sync.Mutex
	state      domain.CheckoutState
	intent     *domain.CheckoutIntent
	reason     string
	lastErr    error
	generation uint64
	confirming bool
	cancel     context.CancelFunc

	cart      Cart
	identity  Identity
	backend   Backend
	processor Processor
	publisher events.Publisher
	newKey    func() string
	now       func() time.Time
	log       *zap.Logger
}

func NewOrchestrator(cart Cart, identity Identity, backend Backend, processor Processor, publisher events.Publisher, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		state:     domain.CheckoutIdle,
		cart:      cart,
		identity:  identity,
		backend:   backend,
		processor: processor,
		publisher: publisher,
		newKey:    uuid.NewString,
		now:       time.Now,
		log:       log.Named("checkout"),
	}
}

func (o *Orchestrator) State() domain.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Outcome reports the current state with the intent and failure reason, if any.
func (o *Orchestrator) Outcome() domain.CheckoutOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomeLocked()
}

// Checkout runs Start and Confirm back to back.
func (o *Orchestrator) Checkout(ctx context.Context) (domain.CheckoutOutcome, error) {
	if _, err := o.Start(ctx); err != nil {
		return o.Outcome(), err
	}
	return o.Confirm(ctx)
}

// Acknowledge consumes a Completed or Failed state. It is a no-op in Idle.
func (o *Orchestrator) Acknowledge() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case o.state == domain.CheckoutIdle:
		return nil
	case o.state.IsTerminal():
		o.reset()
		return nil
	default:
		return conflictf("checkout is %s", o.state)
	}
}

// Abandon drops the in-flight intent without completing it in the background.
// An intent already handed to the gateway is only cancelled; if the gateway
// captured funds anyway, Confirm still reconciles them.
func (o *Orchestrator) Abandon() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case domain.CheckoutIntentRequested, domain.CheckoutAwaitingConfirmation:
	case domain.CheckoutReconciling:
		return conflictf("payment is being reconciled")
	default:
		return nil
	}

	if o.cancel != nil {
		o.cancel()
	}
	if o.confirming {
		return nil
	}

	o.log.Info("checkout abandoned", o.intentFields()...)
	o.transition(domain.CheckoutIdle)
	o.reset()
	return nil
}

// transition moves the state machine; callers hold o.mu.
func (o *Orchestrator) transition(to domain.CheckoutState) {
	if !domain.CanTransitionTo(o.state, to) {
		o.log.Error("illegal checkout transition",
			zap.Stringer("from", o.state), zap.Stringer("to", to))
		return
	}
	o.log.Debug("checkout transition", zap.Stringer("from", o.state), zap.Stringer("to", to))
	o.state = to
}

func (o *Orchestrator) reset() {
	o.state = domain.CheckoutIdle
	o.intent = nil
	o.reason = ""
	o.lastErr = nil
	o.confirming = false
	o.cancel = nil
	o.generation++
}

func (o *Orchestrator) fail(reason string, err error) {
	o.transition(domain.CheckoutFailed)
	o.reason = reason
	o.lastErr = err
	if o.intent != nil {
		o.intent.Status = domain.IntentFailed
	}
}

func (o *Orchestrator) outcomeLocked() domain.CheckoutOutcome {
	out := domain.CheckoutOutcome{State: o.state, Reason: o.reason, Err: o.lastErr}
	if o.intent != nil {
		in := *o.intent
		out.Intent = &in
	}
	return out
}

func (o *Orchestrator) intentFields() []zap.Field {
	if o.intent == nil {
		return nil
	}
	return []zap.Field{
		zap.String("order_id", o.intent.OrderID),
		zap.String("idempotency_key", o.intent.IdempotencyKey),
	}
}

func (o *Orchestrator) publish(ctx context.Context, typ events.Type, intent domain.CheckoutIntent, reason string) {
	e := events.Event{
		Type:           typ,
		OrderID:        intent.OrderID,
		IdempotencyKey: intent.IdempotencyKey,
		Amount:         intent.AmountDue,
		Reason:         reason,
		OccurredAt:     o.now().UTC(),
	}
	if u := o.identity.User(); u != nil {
		e.UserID = u.ID
	}
	if err := o.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		o.log.Warn("failed to publish checkout event", zap.String("type", string(typ)), zap.Error(err))
	}
}
