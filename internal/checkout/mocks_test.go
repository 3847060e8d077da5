package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/shopspring/decimal"
)

// MockCart implements Cart over a fixed set of lines.
type MockCart struct {
	mu       sync.Mutex
	lines    []domain.CartLine
	Cleared  int
	ClearErr error
}

func (m *MockCart) Lines() []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartLine(nil), m.lines...)
}

func (m *MockCart) Subtotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, l := range m.lines {
		total = total.Add(l.Total())
	}
	return total
}

func (m *MockCart) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines) == 0
}

func (m *MockCart) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.lines = nil
	return nil
}

// MockIdentity implements Identity.
type MockIdentity struct {
	token string
	user  *domain.User
}

func (m *MockIdentity) Token() string      { return m.token }
func (m *MockIdentity) User() *domain.User { return m.user }

// MockBackend implements Backend.
type MockBackend struct {
	mu          sync.Mutex
	Intent      *domain.IntentResponse
	CreateErr   error
	CreateCalls int
	LastKey     string
	LastRequest domain.CheckoutRequest
	// Started is closed when CreateCheckout is entered, Release unblocks it.
	Started chan struct{}
	Release chan struct{}
	// Pending, when set, receives every call; the call waits for its Release
	// and ignores ctx so a stale answer can arrive after abandonment.
	Pending chan *PendingCall

	Confirmation *domain.OrderConfirmation
	ConfirmErr   error
	Confirms     []domain.ConfirmPaymentRequest
}

func (m *MockBackend) CreateCheckout(ctx context.Context, _ string, key string, req domain.CheckoutRequest) (*domain.IntentResponse, error) {
	m.mu.Lock()
	m.CreateCalls++
	m.LastKey = key
	m.LastRequest = req
	m.mu.Unlock()

	if m.Pending != nil {
		call := &PendingCall{Ctx: ctx, Release: make(chan struct{})}
		m.Pending <- call
		<-call.Release
		return m.Intent, m.CreateErr
	}
	if m.Started != nil {
		close(m.Started)
	}
	if m.Release != nil {
		select {
		case <-m.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Intent, m.CreateErr
}

func (m *MockBackend) ConfirmPayment(_ context.Context, _ string, req domain.ConfirmPaymentRequest) (*domain.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirms = append(m.Confirms, req)
	return m.Confirmation, m.ConfirmErr
}

type PendingCall struct {
	Ctx     context.Context
	Release chan struct{}
}

// MockProcessor implements Processor.
type MockProcessor struct {
	Result *domain.PaymentResult
	Err    error
	Calls  int
	// Block, when set, waits for ctx cancellation.
	Block   bool
	Entered chan struct{}
}

func (m *MockProcessor) ConfirmIntent(ctx context.Context, _ string) (*domain.PaymentResult, error) {
	m.Calls++
	if m.Entered != nil {
		close(m.Entered)
	}
	if m.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.Result, m.Err
}

// MockPublisher implements events.Publisher.
type MockPublisher struct {
	mu     sync.Mutex
	Events []events.Event
}

func (m *MockPublisher) Publish(_ context.Context, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) Types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Type
	}
	return out
}
