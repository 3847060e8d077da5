package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func scenarioCart() *MockCart {
	return &MockCart{lines: []domain.CartLine{
		{Key: domain.NewLineKey("1", ""), Quantity: 2, Product: domain.Product{ID: "1", Name: "Shirt", Price: dec("25.00")}},
		{Key: domain.NewLineKey("2", "size=m"), Variant: "size=m", Quantity: 1, Product: domain.Product{ID: "2", Name: "Cap", Price: dec("10.00")}},
	}}
}

type fixture struct {
	orch      *Orchestrator
	cart      *MockCart
	backend   *MockBackend
	processor *MockProcessor
	publisher *MockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cart: scenarioCart(),
		backend: &MockBackend{
			Intent:       &domain.IntentResponse{OrderID: "ord-1", ClientSecret: "pi_1_secret_abc", Total: decPtr("60.00")},
			Confirmation: &domain.OrderConfirmation{OrderID: "ord-1", Status: domain.OrderPaid},
		},
		processor: &MockProcessor{Result: &domain.PaymentResult{Reference: "pi_1", Status: domain.PaymentSucceeded}},
		publisher: &MockPublisher{},
	}
	id := &MockIdentity{token: "tok", user: &domain.User{ID: "u-1"}}
	f.orch = NewOrchestrator(f.cart, id, f.backend, f.processor, f.publisher, zap.NewNop())
	f.orch.newKey = func() string { return "key-1" }
	return f
}

func TestCheckout_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intent, err := f.orch.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "60.00", intent.AmountDue.StringFixed(2))
	assert.Equal(t, "key-1", f.backend.LastKey)
	assert.Equal(t, domain.CheckoutAwaitingConfirmation, f.orch.State())
	require.Len(t, f.backend.LastRequest.Items, 2)
	assert.Equal(t, "size=m", f.backend.LastRequest.Items[1].VariantKey)
	assert.False(t, f.cart.IsEmpty(), "cart must survive until completion")

	out, err := f.orch.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutCompleted, out.State)
	assert.Equal(t, domain.IntentConfirmed, out.Intent.Status)
	assert.True(t, f.cart.IsEmpty())
	require.Len(t, f.backend.Confirms, 1)
	assert.Equal(t, "pi_1", f.backend.Confirms[0].PaymentReference)
	assert.Equal(t, []events.Type{events.CheckoutCompleted}, f.publisher.Types())
	assert.Equal(t, "u-1", f.publisher.Events[0].UserID)
}

func TestCheckout_BackendConfirmFailsIsDivergence(t *testing.T) {
	f := newFixture(t)
	f.backend.ConfirmErr = &domain.RemoteError{StatusCode: 500, Message: "db down"}

	out, err := f.orch.Checkout(context.Background())

	assert.ErrorIs(t, err, domain.ErrPaymentDivergence)
	assert.True(t, IsDivergence(err))
	assert.Equal(t, "PaymentDivergence", domain.Kind(err))
	assert.Equal(t, domain.CheckoutFailed, out.State)
	assert.Contains(t, out.Reason, "pi_1")
	assert.True(t, f.cart.IsEmpty(), "funds captured, cart is not restored")
	assert.Equal(t, []events.Type{events.CheckoutDivergence}, f.publisher.Types())
}

func TestCheckout_BackendRecordsUnpaidIsDivergence(t *testing.T) {
	f := newFixture(t)
	f.backend.Confirmation = &domain.OrderConfirmation{OrderID: "ord-1", Status: domain.OrderPending}

	_, err := f.orch.Checkout(context.Background())

	assert.ErrorIs(t, err, domain.ErrPaymentDivergence)
}

func TestCheckout_DeclinedKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.processor.Result = &domain.PaymentResult{Reference: "pi_1", Status: domain.PaymentDeclined, Reason: "Your card was declined."}
	f.backend.Confirmation = &domain.OrderConfirmation{OrderID: "ord-1", Status: domain.OrderFailed}

	out, err := f.orch.Checkout(context.Background())

	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	assert.False(t, IsDivergence(err))
	assert.Equal(t, domain.CheckoutFailed, out.State)
	assert.Equal(t, "Your card was declined.", out.Reason)
	assert.False(t, f.cart.IsEmpty())
	assert.Zero(t, f.cart.Cleared)
	require.Len(t, f.backend.Confirms, 1)
	assert.Equal(t, string(domain.PaymentDeclined), f.backend.Confirms[0].PaymentStatus)
	assert.Equal(t, []events.Type{events.CheckoutFailed}, f.publisher.Types())
}

func TestCheckout_DeclinedButBackendPaidIsDivergence(t *testing.T) {
	f := newFixture(t)
	f.processor.Result = &domain.PaymentResult{Reference: "pi_1", Status: domain.PaymentDeclined}

	out, err := f.orch.Checkout(context.Background())

	assert.ErrorIs(t, err, domain.ErrPaymentDivergence)
	assert.Equal(t, domain.CheckoutFailed, out.State)
	assert.False(t, f.cart.IsEmpty())
}

func TestCheckout_GatewayErrorSkipsBackend(t *testing.T) {
	f := newFixture(t)
	f.processor.Result = nil
	f.processor.Err = errors.New("connection reset")

	out, err := f.orch.Checkout(context.Background())

	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	assert.Equal(t, domain.CheckoutFailed, out.State)
	assert.Empty(t, f.backend.Confirms)
	assert.False(t, f.cart.IsEmpty())
}

func TestStart_EmptyCartNoNetwork(t *testing.T) {
	f := newFixture(t)
	f.cart.lines = nil

	_, err := f.orch.Start(context.Background())

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.backend.CreateCalls)
	assert.Equal(t, domain.CheckoutIdle, f.orch.State())
}

func TestStart_AnonymousNoNetwork(t *testing.T) {
	f := newFixture(t)
	f.orch.identity = &MockIdentity{}

	_, err := f.orch.Start(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Zero(t, f.backend.CreateCalls)
}

func TestStart_SecondStartWhileAwaitingIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Start(ctx)
	require.NoError(t, err)

	_, err = f.orch.Start(ctx)

	assert.ErrorIs(t, err, domain.ErrStateConflict)
	assert.Equal(t, 1, f.backend.CreateCalls)
	assert.Equal(t, domain.CheckoutAwaitingConfirmation, f.orch.State())
}

func TestStart_SecondStartWhileRequestingIsConflict(t *testing.T) {
	f := newFixture(t)
	f.backend.Started = make(chan struct{})
	f.backend.Release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Start(context.Background())
		done <- err
	}()
	<-f.backend.Started

	_, err := f.orch.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrStateConflict)

	close(f.backend.Release)
	require.NoError(t, <-done)
}

func TestStart_TotalMismatchFails(t *testing.T) {
	f := newFixture(t)
	f.backend.Intent.Total = decPtr("59.99")

	_, err := f.orch.Start(context.Background())

	assert.ErrorIs(t, err, domain.ErrTotalMismatch)
	assert.Equal(t, domain.CheckoutFailed, f.orch.State())
	assert.Zero(t, f.processor.Calls)
	assert.Equal(t, []events.Type{events.CheckoutFailed}, f.publisher.Types())
}

func TestStart_MissingTotalFails(t *testing.T) {
	f := newFixture(t)
	f.backend.Intent.Total = nil

	_, err := f.orch.Start(context.Background())

	assert.ErrorIs(t, err, domain.ErrTotalMismatch)
}

func TestStart_NetworkFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	f.backend.CreateErr = &domain.RemoteError{StatusCode: 503, Message: "Service Unavailable"}

	_, err := f.orch.Start(context.Background())

	assert.ErrorIs(t, err, domain.ErrNetworkFailure)
	out := f.orch.Outcome()
	assert.Equal(t, domain.CheckoutFailed, out.State)
	assert.Equal(t, "Service Unavailable", out.Reason)

	f.backend.CreateErr = nil
	f.orch.newKey = func() string { return "key-2" }
	_, err = f.orch.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key-2", f.backend.LastKey)
}

func TestConfirm_WithoutIntentIsConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Confirm(context.Background())

	assert.ErrorIs(t, err, domain.ErrStateConflict)
	assert.Zero(t, f.processor.Calls)
}

func TestAbandon_AwaitingReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.orch.Abandon())

	assert.Equal(t, domain.CheckoutIdle, f.orch.State())
	assert.Nil(t, f.orch.Outcome().Intent)
	assert.False(t, f.cart.IsEmpty())
	assert.Empty(t, f.publisher.Events)

	_, err = f.orch.Confirm(context.Background())
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestAbandon_DuringIntentRequest(t *testing.T) {
	f := newFixture(t)
	f.backend.Started = make(chan struct{})
	f.backend.Release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Start(context.Background())
		done <- err
	}()
	<-f.backend.Started

	require.NoError(t, f.orch.Abandon())

	assert.ErrorIs(t, <-done, ErrAbandoned)
	assert.Equal(t, domain.CheckoutIdle, f.orch.State())
}

func TestAbandon_StaleAnswerKeepsNewerAttemptCancellable(t *testing.T) {
	f := newFixture(t)
	f.backend.Pending = make(chan *PendingCall)

	first := make(chan error, 1)
	go func() {
		_, err := f.orch.Start(context.Background())
		first <- err
	}()
	stale := <-f.backend.Pending
	require.NoError(t, f.orch.Abandon())
	assert.Error(t, stale.Ctx.Err())

	second := make(chan error, 1)
	go func() {
		_, err := f.orch.Start(context.Background())
		second <- err
	}()
	current := <-f.backend.Pending

	close(stale.Release)
	assert.ErrorIs(t, <-first, ErrAbandoned)
	assert.Equal(t, domain.CheckoutIntentRequested, f.orch.State())

	require.NoError(t, f.orch.Abandon())
	assert.Error(t, current.Ctx.Err(), "newer attempt must still be cancellable")

	close(current.Release)
	assert.ErrorIs(t, <-second, ErrAbandoned)
	assert.Equal(t, domain.CheckoutIdle, f.orch.State())
}

func TestCancelledContextDuringGatewayIsAbandonment(t *testing.T) {
	f := newFixture(t)
	f.processor.Block = true
	f.processor.Entered = make(chan struct{})
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Confirm(ctx)
		done <- err
	}()
	<-f.processor.Entered
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAbandoned)
	case <-time.After(time.Second):
		t.Fatal("confirm did not return after cancellation")
	}
	assert.Equal(t, domain.CheckoutIdle, f.orch.State())
	assert.Empty(t, f.backend.Confirms)
	assert.False(t, f.cart.IsEmpty())
}

func TestAcknowledge(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Acknowledge())

	_, err := f.orch.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutCompleted, f.orch.State())

	require.NoError(t, f.orch.Acknowledge())
	assert.Equal(t, domain.CheckoutIdle, f.orch.State())
}

func TestAcknowledge_InFlightIsConflict(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Start(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, f.orch.Acknowledge(), domain.ErrStateConflict)
}

func TestCheckout_ClearFailureStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.cart.ClearErr = errors.New("disk full")

	out, err := f.orch.Checkout(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutCompleted, out.State)
	assert.Equal(t, 1, f.cart.Cleared)
}
