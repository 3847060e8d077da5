package app

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/mockserver"
	"github.com/fjod/go_cart/storefront/internal/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	cfg     *config.Config
	backend *persistence.MemoryBackend
	mock    *mockserver.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mock := mockserver.New(mockserver.Options{JWTSecret: "e2e", PaymentKey: "pk_test"})
	api := httptest.NewServer(mock.Handler())
	pay := httptest.NewServer(mock.PaymentHandler())
	t.Cleanup(api.Close)
	t.Cleanup(pay.Close)

	cfg := config.Default()
	cfg.APIURL = api.URL
	cfg.PaymentURL = pay.URL
	cfg.PaymentKey = "pk_test"
	cfg.RequestTimeout = 5 * time.Second
	cfg.Storage.Driver = config.StorageMemory

	return &env{cfg: cfg, backend: persistence.NewMemoryBackend(), mock: mock}
}

func (e *env) open(t *testing.T) *App {
	t.Helper()
	a, err := Build(context.Background(), e.cfg, e.backend, zap.NewNop())
	require.NoError(t, err)
	return a
}

func signIn(t *testing.T, a *App) {
	t.Helper()
	_, err := a.Auth.Login(context.Background(), domain.Credentials{
		Email:    mockserver.SeedCustomerEmail,
		Password: mockserver.SeedCustomerPassword,
	})
	require.NoError(t, err)
}

func addBySlug(t *testing.T, a *App, slug, variant string) {
	t.Helper()
	p, err := a.Catalog.BySlug(context.Background(), slug)
	require.NoError(t, err)
	require.NoError(t, a.Cart.AddLine(context.Background(), p, variant))
}

func TestCheckoutEndToEnd(t *testing.T) {
	e := newEnv(t)
	a := e.open(t)
	ctx := context.Background()
	signIn(t, a)

	_, err := a.Catalog.Refresh(ctx, domain.ProductQuery{})
	require.NoError(t, err)
	addBySlug(t, a, "classic-tee", "size=m")
	addBySlug(t, a, "classic-tee", "size=m")
	addBySlug(t, a, "canvas-cap", "")
	require.Equal(t, "60.00", a.Cart.Subtotal().StringFixed(2))

	intent, err := a.Checkout.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "60.00", intent.AmountDue.StringFixed(2))

	out, err := a.Checkout.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutCompleted, out.State)
	assert.True(t, a.Cart.IsEmpty())

	status, ok := e.mock.OrderStatus(intent.OrderID)
	require.True(t, ok)
	assert.Equal(t, domain.OrderPaid, status)

	reopened := e.open(t)
	assert.True(t, reopened.Cart.IsEmpty())
	assert.True(t, reopened.Auth.IsAuthenticated())
	assert.Len(t, reopened.Catalog.Products(), 5)
}

func TestCheckoutDeclinedKeepsCart(t *testing.T) {
	e := newEnv(t)
	a := e.open(t)
	signIn(t, a)
	addBySlug(t, a, "denim-jacket", "")
	e.mock.DeclineNextPayment()

	out, err := a.Checkout.Checkout(context.Background())

	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	assert.Equal(t, domain.CheckoutFailed, out.State)
	assert.Equal(t, "Your card was declined.", out.Reason)
	assert.Equal(t, 1, a.Cart.Count())

	status, _ := e.mock.OrderStatus(out.Intent.OrderID)
	assert.Equal(t, domain.OrderFailed, status)
}

func TestCheckoutDivergenceWhenBackendCannotRecord(t *testing.T) {
	e := newEnv(t)
	a := e.open(t)
	signIn(t, a)
	addBySlug(t, a, "canvas-cap", "")
	e.mock.FailNextConfirm()

	out, err := a.Checkout.Checkout(context.Background())

	assert.ErrorIs(t, err, domain.ErrPaymentDivergence)
	assert.Equal(t, domain.CheckoutFailed, out.State)
	assert.True(t, a.Cart.IsEmpty())
}

func TestCheckoutStaleCartPriceIsMismatch(t *testing.T) {
	e := newEnv(t)
	a := e.open(t)
	signIn(t, a)
	p, err := a.Catalog.BySlug(context.Background(), "canvas-cap")
	require.NoError(t, err)
	p.Price = p.Price.Sub(decimal.NewFromInt(1))
	require.NoError(t, a.Cart.AddLine(context.Background(), p, ""))

	_, err = a.Checkout.Start(context.Background())

	assert.ErrorIs(t, err, domain.ErrTotalMismatch)
	assert.Equal(t, 1, a.Cart.Count())
}

func TestLogoutClearsSessionAndFavorites(t *testing.T) {
	e := newEnv(t)
	a := e.open(t)
	ctx := context.Background()
	signIn(t, a)
	require.NoError(t, a.Favorites.Add(ctx, "2"))
	require.True(t, a.Favorites.Contains("2"))

	require.NoError(t, a.Auth.Logout(ctx))

	assert.False(t, a.Favorites.Contains("2"))
	reopened := e.open(t)
	assert.False(t, reopened.Auth.IsAuthenticated())
	assert.Empty(t, reopened.Favorites.List())
}

func TestPersistedUserWithoutTokenIsDropped(t *testing.T) {
	e := newEnv(t)
	a := e.open(t)
	signIn(t, a)
	require.NoError(t, e.backend.Delete(context.Background(), persistence.TokenKey))

	reopened := e.open(t)

	assert.False(t, reopened.Auth.IsAuthenticated())
	assert.Nil(t, reopened.Auth.User())
}

func TestDroppedSessionDoesNotLeakFavorites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.open(t)
	signIn(t, a)
	require.NoError(t, a.Favorites.Add(ctx, "2"))
	require.NoError(t, e.backend.Delete(ctx, persistence.TokenKey))

	reopened := e.open(t)
	assert.False(t, reopened.Favorites.Contains("2"))

	_, err := reopened.Auth.Login(ctx, domain.Credentials{
		Email:    mockserver.SeedAdminEmail,
		Password: mockserver.SeedAdminPassword,
	})
	require.NoError(t, err)
	assert.Empty(t, reopened.Favorites.List())
	assert.Empty(t, e.open(t).Favorites.List())
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	for _, cfg := range []config.Storage{
		{Driver: config.StorageMemory},
		{Driver: config.StorageBolt, Path: filepath.Join(dir, "state.db")},
		{Driver: config.StorageSQLite, SQLitePath: filepath.Join(dir, "state.sqlite")},
	} {
		t.Run(cfg.Driver, func(t *testing.T) {
			b, err := OpenBackend(ctx, cfg)
			require.NoError(t, err)
			require.NoError(t, b.Put(ctx, "k", []byte("v")))
			require.NoError(t, b.Close())
		})
	}

	_, err := OpenBackend(ctx, config.Storage{Driver: "floppy"})
	assert.Error(t, err)
}
