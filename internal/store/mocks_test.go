package store

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MockPersistence implements Persistence and records what was written.
type MockPersistence struct {
	mu       sync.Mutex
	Saves    int
	Last     *domain.Snapshot
	Token    string
	TokenSet bool
	SaveErr  error
}

func (m *MockPersistence) Save(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	m.Last = snap
	return nil
}

func (m *MockPersistence) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Token = token
	m.TokenSet = true
	return nil
}

// MockIdentity implements Identity.
type MockIdentity struct {
	token string
	user  *domain.User
}

func (m *MockIdentity) Token() string      { return m.token }
func (m *MockIdentity) User() *domain.User { return m.user }

// MockAuthSource implements AuthSource.
type MockAuthSource struct {
	Result     *domain.AuthResult
	Err        error
	Registered *domain.Registration
	Calls      int
}

func (m *MockAuthSource) Register(_ context.Context, reg domain.Registration) (*domain.User, error) {
	m.Calls++
	m.Registered = &reg
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.User{ID: "u-new", Username: reg.Username, Email: reg.Email, Role: domain.RoleCustomer}, nil
}

func (m *MockAuthSource) Login(_ context.Context, _ domain.Credentials) (*domain.AuthResult, error) {
	m.Calls++
	return m.Result, m.Err
}

func (m *MockAuthSource) AdminLogin(_ context.Context, _ domain.Credentials) (*domain.AuthResult, error) {
	m.Calls++
	return m.Result, m.Err
}

// MockFavoritesSource implements FavoritesSource.
type MockFavoritesSource struct {
	Items     []domain.Product
	Err       error
	Calls     int
	LastToken string
	// NoBody makes AddFavorite succeed without returning a product.
	NoBody bool
}

func (m *MockFavoritesSource) Favorites(_ context.Context, token string) ([]domain.Product, error) {
	m.Calls++
	m.LastToken = token
	return m.Items, m.Err
}

func (m *MockFavoritesSource) AddFavorite(_ context.Context, token, productID string) (*domain.Product, error) {
	m.Calls++
	m.LastToken = token
	if m.Err != nil {
		return nil, m.Err
	}
	if m.NoBody {
		return nil, nil
	}
	return &domain.Product{ID: productID, Name: "fav " + productID}, nil
}

func (m *MockFavoritesSource) RemoveFavorite(_ context.Context, token, _ string) error {
	m.Calls++
	m.LastToken = token
	return m.Err
}

// MockProductSource implements ProductSource.
type MockProductSource struct {
	mu        sync.Mutex
	Page      *domain.ProductPage
	Product   *domain.Product
	Err       error
	ListCalls int
	Calls     int
	Block     chan struct{}
}

func (m *MockProductSource) ListProducts(_ context.Context, _ domain.ProductQuery) (*domain.ProductPage, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	return m.Page, m.Err
}

func (m *MockProductSource) ProductBySlug(_ context.Context, _ string) (*domain.Product, error) {
	m.Calls++
	return m.Product, m.Err
}

func (m *MockProductSource) CreateProduct(_ context.Context, _ string, p domain.Product) (*domain.Product, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	p.ID = "new-1"
	return &p, nil
}

func (m *MockProductSource) UpdateProduct(_ context.Context, _ string, id string, patch domain.ProductPatch) (*domain.Product, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	p := domain.Product{ID: id}.Apply(patch)
	return &p, nil
}

func (m *MockProductSource) DeleteProduct(_ context.Context, _ string, _ string) error {
	m.Calls++
	return m.Err
}
