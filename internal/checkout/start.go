package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Start creates a payment intent for the current cart. An empty cart or a
// missing session is rejected before any network call; a second Start while
// an attempt is in flight is a StateConflict. A previous Completed or Failed
// attempt is consumed.
func (o *Orchestrator) Start(ctx context.Context) (*domain.CheckoutIntent, error) {
	ctx, span := tracer.Start(ctx, "checkout.Start")
	defer span.End()

	intent, err := o.start(ctx)
	recordOutcome(span, err)
	return intent, err
}

func (o *Orchestrator) start(ctx context.Context) (*domain.CheckoutIntent, error) {
	o.mu.Lock()
	if o.state.InFlight() {
		state := o.state
		o.mu.Unlock()
		return nil, conflictf("checkout already %s", state)
	}
	if o.cart.IsEmpty() {
		o.mu.Unlock()
		return nil, ErrEmptyCart
	}
	token := o.identity.Token()
	if token == "" {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: sign in to check out", domain.ErrUnauthenticated)
	}
	if o.state.IsTerminal() {
		o.reset()
	}

	req, clientTotal := o.buildRequest()
	intent := &domain.CheckoutIntent{
		IdempotencyKey: o.newKey(),
		ClientTotal:    clientTotal,
		Status:         domain.IntentPending,
	}
	o.transition(domain.CheckoutIntentRequested)
	o.intent = intent
	gen := o.generation
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	log := logger.WithContext(ctx, o.log).With(zap.String("idempotency_key", intent.IdempotencyKey))
	log.Info("creating checkout intent",
		zap.Int("lines", len(req.Items)), zap.String("client_total", clientTotal.StringFixed(2)))

	res, err := o.backend.CreateCheckout(ctx, token, intent.IdempotencyKey, req)

	o.mu.Lock()
	out, err := o.settleIntent(ctx, log, gen, intent, clientTotal, res, err)
	failed := o.state == domain.CheckoutFailed && gen == o.generation
	reason := o.reason
	settled := *intent
	o.mu.Unlock()

	if failed {
		o.publish(ctx, events.CheckoutFailed, settled, reason)
	}
	return out, err
}

// settleIntent applies the backend answer to intent; callers hold o.mu.
func (o *Orchestrator) settleIntent(ctx context.Context, log *zap.Logger, gen uint64, intent *domain.CheckoutIntent,
	clientTotal decimal.Decimal, res *domain.IntentResponse, err error) (*domain.CheckoutIntent, error) {
	if gen != o.generation {
		return nil, ErrAbandoned
	}
	o.cancel = nil
	if ctx.Err() != nil {
		log.Info("checkout intent request cancelled")
		o.transition(domain.CheckoutIdle)
		o.reset()
		return nil, fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err())
	}
	if err != nil {
		log.Warn("checkout intent request failed", zap.Error(err))
		o.fail(reasonFor(err), err)
		return nil, err
	}

	intent.OrderID = res.OrderID
	intent.ClientSecret = res.ClientSecret
	if res.Total != nil {
		intent.AmountDue = *res.Total
	}
	log = log.With(zap.String("order_id", intent.OrderID))

	if res.Total == nil || !res.Total.Equal(clientTotal) {
		backendTotal := "missing"
		if res.Total != nil {
			backendTotal = res.Total.StringFixed(2)
		}
		mismatch := fmt.Errorf("%w: cart total %s, order total %s",
			domain.ErrTotalMismatch, clientTotal.StringFixed(2), backendTotal)
		log.Warn("checkout total mismatch", zap.Error(mismatch))
		o.fail("Your cart changed while checking out. Please review it and try again.", mismatch)
		return nil, mismatch
	}

	o.transition(domain.CheckoutAwaitingConfirmation)
	log.Info("checkout intent created", zap.String("amount_due", intent.AmountDue.StringFixed(2)))
	out := *intent
	return &out, nil
}

func (o *Orchestrator) buildRequest() (domain.CheckoutRequest, decimal.Decimal) {
	lines := o.cart.Lines()
	items := make([]domain.CheckoutItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.CheckoutItem{
			ProductID:  l.Product.ID,
			Name:       l.Product.Name,
			Slug:       l.Product.Slug,
			VariantKey: l.Variant,
			Quantity:   l.Quantity,
			UnitPrice:  l.Product.Price,
		})
	}
	return domain.CheckoutRequest{Items: items}, o.cart.Subtotal()
}

// reasonFor turns an error into the message shown to the shopper.
func reasonFor(err error) string {
	var remote *domain.RemoteError
	switch {
	case errors.As(err, &remote):
		return remote.Message
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Please sign in again."
	case errors.Is(err, domain.ErrNetworkFailure):
		return "Could not reach the store. Please try again."
	default:
		return err.Error()
	}
}
