package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Confirm hands the intent to the payment gateway and reconciles the result
// with the backend. The cart is cleared only once funds are captured.
func (o *Orchestrator) Confirm(ctx context.Context) (domain.CheckoutOutcome, error) {
	ctx, span := tracer.Start(ctx, "checkout.Confirm")
	defer span.End()

	out, err := o.confirm(ctx)
	span.SetAttributes(attribute.String("checkout.state", out.State.String()))
	recordOutcome(span, err)
	return out, err
}

func (o *Orchestrator) confirm(ctx context.Context) (domain.CheckoutOutcome, error) {
	o.mu.Lock()
	if o.state != domain.CheckoutAwaitingConfirmation || o.confirming {
		out := o.outcomeLocked()
		o.mu.Unlock()
		return out, conflictf("cannot confirm payment while checkout is %s", out.State)
	}
	o.confirming = true
	intent := *o.intent
	gen := o.generation
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	log := logger.WithContext(ctx, o.log).With(
		zap.String("order_id", intent.OrderID), zap.String("idempotency_key", intent.IdempotencyKey))
	log.Info("confirming payment", zap.String("amount_due", intent.AmountDue.StringFixed(2)))

	result, gatewayErr := o.processor.ConfirmIntent(ctx, intent.ClientSecret)

	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return o.Outcome(), ErrAbandoned
	}
	o.cancel = nil
	if ctx.Err() != nil && (gatewayErr != nil || !result.Succeeded()) {
		log.Info("payment confirmation cancelled")
		o.transition(domain.CheckoutIdle)
		o.reset()
		o.mu.Unlock()
		return o.Outcome(), fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err())
	}
	o.transition(domain.CheckoutReconciling)
	o.mu.Unlock()

	var r reconciliation
	if gatewayErr == nil && result.Succeeded() {
		r = o.reconcileCaptured(ctx, log, intent, result)
	} else {
		r = o.reconcileRejected(ctx, log, intent, result, gatewayErr)
	}

	if r.clearCart {
		if err := o.cart.Clear(context.WithoutCancel(ctx)); err != nil {
			log.Error("failed to clear cart after capture", zap.Error(err))
		}
	}

	o.mu.Lock()
	o.confirming = false
	o.intent.Status = r.status
	if r.err == nil {
		o.transition(domain.CheckoutCompleted)
	} else {
		o.fail(r.reason, r.err)
	}
	out := o.outcomeLocked()
	o.mu.Unlock()

	o.publish(ctx, r.event, *out.Intent, r.reason)
	return out, r.err
}

type reconciliation struct {
	status    domain.IntentStatus
	event     events.Type
	reason    string
	err       error
	clearCart bool
}

// reconcileCaptured records a successful charge. Any failure here means money
// moved without a recorded order.
func (o *Orchestrator) reconcileCaptured(ctx context.Context, log *zap.Logger, intent domain.CheckoutIntent, result *domain.PaymentResult) reconciliation {
	conf, err := o.backend.ConfirmPayment(ctx, o.identity.Token(), domain.ConfirmPaymentRequest{
		OrderID:          intent.OrderID,
		PaymentReference: result.Reference,
		PaymentStatus:    string(result.Status),
	})
	if err == nil && conf.Status != domain.OrderPaid {
		err = fmt.Errorf("order %s recorded as %q", intent.OrderID, conf.Status)
	}
	if err != nil {
		log.Error("payment captured but order not confirmed",
			zap.String("payment_reference", result.Reference), zap.Error(err))
		return reconciliation{
			status:    domain.IntentConfirmed,
			event:     events.CheckoutDivergence,
			reason:    "Your payment went through but we could not record your order. Please contact support with reference " + result.Reference + ".",
			err:       fmt.Errorf("%w: payment %s captured: %w", domain.ErrPaymentDivergence, result.Reference, err),
			clearCart: true,
		}
	}

	log.Info("checkout completed", zap.String("payment_reference", result.Reference))
	return reconciliation{
		status:    domain.IntentConfirmed,
		event:     events.CheckoutCompleted,
		clearCart: true,
	}
}

// reconcileRejected handles a gateway that did not capture funds. The backend is
// told best-effort; if it nevertheless holds the order as paid the two disagree.
func (o *Orchestrator) reconcileRejected(ctx context.Context, log *zap.Logger, intent domain.CheckoutIntent, result *domain.PaymentResult, gatewayErr error) reconciliation {
	reason := "Payment failed. Please try again."
	cause := gatewayErr
	if gatewayErr != nil {
		reason = reasonFor(gatewayErr)
	} else {
		if result.Reason != "" {
			reason = result.Reason
		}
		cause = fmt.Errorf("payment %s", result.Status)
	}
	failed := reconciliation{
		status: domain.IntentFailed,
		event:  events.CheckoutFailed,
		reason: reason,
		err:    fmt.Errorf("%w: %w", domain.ErrPaymentFailed, cause),
	}
	if result == nil || result.Reference == "" {
		log.Warn("payment confirmation failed", zap.Error(gatewayErr))
		return failed
	}

	conf, err := o.backend.ConfirmPayment(ctx, o.identity.Token(), domain.ConfirmPaymentRequest{
		OrderID:          intent.OrderID,
		PaymentReference: result.Reference,
		PaymentStatus:    string(result.Status),
	})
	switch {
	case err != nil:
		log.Warn("could not report failed payment to backend", zap.Error(err))
	case conf.Status == domain.OrderPaid:
		log.Error("gateway declined payment but order is recorded as paid",
			zap.String("payment_reference", result.Reference))
		return reconciliation{
			status: domain.IntentFailed,
			event:  events.CheckoutDivergence,
			reason: "Your payment was declined but the order was recorded as paid. Please contact support with reference " + result.Reference + ".",
			err:    fmt.Errorf("%w: payment %s declined but order %s is paid", domain.ErrPaymentDivergence, result.Reference, intent.OrderID),
		}
	}

	log.Info("payment declined", zap.String("status", string(result.Status)), zap.String("reason", reason))
	return failed
}

// IsDivergence reports whether err means the gateway and backend disagree about a payment.
func IsDivergence(err error) bool {
	return errors.Is(err, domain.ErrPaymentDivergence)
}
