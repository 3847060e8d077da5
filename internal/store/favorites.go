package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type FavoritesSource interface {
	Favorites(ctx context.Context, token string) ([]domain.Product, error)
	AddFavorite(ctx context.Context, token, productID string) (*domain.Product, error)
	RemoveFavorite(ctx context.Context, token, productID string) error
}

// Favorites is the set of favorited products. Local state only changes after the
// remote favorites endpoint has accepted the change.
type Favorites struct {
	mu       sync.RWMutex
	items    []domain.Product
	remote   FavoritesSource
	identity Identity
	persist  *Persister
}

func NewFavorites(items []domain.Product, remote FavoritesSource, identity Identity, persist *Persister) *Favorites {
	f := &Favorites{
		remote:   remote,
		identity: identity,
		persist:  persist,
	}
	f.items = dedupe(items)
	persist.register(f)
	return f
}

// List returns the favorites of the signed-in user; anonymous sessions see none.
func (f *Favorites) List() []domain.Product {
	if f.identity.Token() == "" {
		return []domain.Product{}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return cloneProducts(f.items)
}

func (f *Favorites) Contains(productID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return indexOf(f.items, productID) >= 0
}

// Sync replaces the local set with the server's.
func (f *Favorites) Sync(ctx context.Context) error {
	token, err := f.requireToken()
	if err != nil {
		return err
	}
	items, err := f.remote.Favorites(ctx, token)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.items = dedupe(items)
	f.mu.Unlock()

	return f.persist.Flush(ctx)
}

func (f *Favorites) Add(ctx context.Context, productID string) error {
	token, err := f.requireToken()
	if err != nil {
		return err
	}
	p, err := f.remote.AddFavorite(ctx, token, productID)
	if err != nil {
		return err
	}
	if p == nil {
		p = &domain.Product{ID: productID}
	}
	if p.ID == "" {
		p.ID = productID
	}

	f.mu.Lock()
	if i := indexOf(f.items, p.ID); i >= 0 {
		f.items[i] = p.Clone()
	} else {
		f.items = append(f.items, p.Clone())
	}
	f.mu.Unlock()

	return f.persist.Flush(ctx)
}

func (f *Favorites) Remove(ctx context.Context, productID string) error {
	token, err := f.requireToken()
	if err != nil {
		return err
	}
	if err := f.remote.RemoveFavorite(ctx, token, productID); err != nil {
		return err
	}

	f.mu.Lock()
	if i := indexOf(f.items, productID); i >= 0 {
		f.items = append(f.items[:i], f.items[i+1:]...)
	}
	f.mu.Unlock()

	return f.persist.Flush(ctx)
}

// Reset drops every favorite without persisting; wired to Auth.OnSignOut.
func (f *Favorites) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
}

func (f *Favorites) requireToken() (string, error) {
	token := f.identity.Token()
	if token == "" {
		return "", fmt.Errorf("%w: sign in to manage favorites", domain.ErrUnauthenticated)
	}
	return token, nil
}

func (f *Favorites) contribute(snap *domain.Snapshot) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snap.Favorites = cloneProducts(f.items)
}

func dedupe(items []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, p := range items {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p.Clone())
	}
	return out
}

func indexOf(items []domain.Product, id string) int {
	for i, p := range items {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cloneProducts(items []domain.Product) []domain.Product {
	out := make([]domain.Product, len(items))
	for i, p := range items {
		out[i] = p.Clone()
	}
	return out
}
