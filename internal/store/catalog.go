package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/sync/singleflight"
)

type ProductSource interface {
	ListProducts(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error)
	ProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	CreateProduct(ctx context.Context, token string, p domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, token, id string, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, token, id string) error
}

// Catalog caches product listings and projects them for browsing.
type Catalog struct {
	mu       sync.RWMutex
	products []domain.Product
	remote   ProductSource
	identity Identity
	persist  *Persister
	sfg      singleflight.Group // collapses identical concurrent fetches
}

func NewCatalog(products []domain.Product, remote ProductSource, identity Identity, persist *Persister) *Catalog {
	c := &Catalog{
		products: dedupe(products),
		remote:   remote,
		identity: identity,
		persist:  persist,
	}
	persist.register(c)
	return c
}

func (c *Catalog) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneProducts(c.products)
}

// Replace swaps the whole cache for items.
func (c *Catalog) Replace(ctx context.Context, items []domain.Product) error {
	c.mu.Lock()
	c.products = dedupe(items)
	c.mu.Unlock()
	return c.persist.Flush(ctx)
}

// Refresh loads one page from the backend and makes it the cache.
func (c *Catalog) Refresh(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	q = q.Normalized()
	key := fmt.Sprintf("list:%d:%d:%s:%s:%s", q.Page, q.Limit, q.Sort, q.Q, q.Tag)

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		page, err := c.remote.ListProducts(ctx, q)
		if err != nil {
			return nil, err
		}
		if err := c.Replace(ctx, page.Items); err != nil {
			return nil, err
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ProductPage), nil
}

// BySlug returns the cached product or fetches and caches it.
func (c *Catalog) BySlug(ctx context.Context, slug string) (domain.Product, error) {
	c.mu.RLock()
	for _, p := range c.products {
		if p.Slug == slug {
			c.mu.RUnlock()
			return p.Clone(), nil
		}
	}
	c.mu.RUnlock()

	v, err, _ := c.sfg.Do("slug:"+slug, func() (any, error) {
		p, err := c.remote.ProductBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		c.upsert(*p)
		if err := c.persist.Flush(ctx); err != nil {
			return nil, err
		}
		return *p, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return v.(domain.Product).Clone(), nil
}

func (c *Catalog) ByID(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.products, id); i >= 0 {
		return c.products[i].Clone(), true
	}
	return domain.Product{}, false
}

// Tags lists distinct tags in first-seen order.
func (c *Catalog) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var tags []string
	seen := make(map[string]struct{})
	for _, p := range c.products {
		for _, t := range p.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

// Query projects the cached products through q.
func (c *Catalog) Query(q domain.ProductQuery) domain.ProductPage {
	c.mu.RLock()
	items := cloneProducts(c.products)
	c.mu.RUnlock()
	return q.Apply(items)
}

// CreateProduct adds a product through the admin API and caches the result.
func (c *Catalog) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	token, err := c.requireAdmin()
	if err != nil {
		return domain.Product{}, err
	}
	created, err := c.remote.CreateProduct(ctx, token, p)
	if err != nil {
		return domain.Product{}, err
	}
	c.upsert(*created)
	return created.Clone(), c.persist.Flush(ctx)
}

func (c *Catalog) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	token, err := c.requireAdmin()
	if err != nil {
		return domain.Product{}, err
	}
	updated, err := c.remote.UpdateProduct(ctx, token, id, patch)
	if err != nil {
		return domain.Product{}, err
	}
	c.upsert(*updated)
	return updated.Clone(), c.persist.Flush(ctx)
}

// DeleteProduct removes a product remotely and from the cache. Cart lines keep their snapshot.
func (c *Catalog) DeleteProduct(ctx context.Context, id string) error {
	token, err := c.requireAdmin()
	if err != nil {
		return err
	}
	if err := c.remote.DeleteProduct(ctx, token, id); err != nil {
		return err
	}

	c.mu.Lock()
	if i := indexOf(c.products, id); i >= 0 {
		c.products = append(c.products[:i], c.products[i+1:]...)
	}
	c.mu.Unlock()
	return c.persist.Flush(ctx)
}

func (c *Catalog) requireAdmin() (string, error) {
	token := c.identity.Token()
	user := c.identity.User()
	if token == "" || user == nil {
		return "", fmt.Errorf("%w: sign in required", domain.ErrUnauthenticated)
	}
	if user.Role != domain.RoleAdmin {
		return "", fmt.Errorf("%w: admin role required", domain.ErrUnauthenticated)
	}
	return token, nil
}

func (c *Catalog) upsert(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.products, p.ID); i >= 0 {
		c.products[i] = p.Clone()
		return
	}
	c.products = append(c.products, p.Clone())
}

func (c *Catalog) contribute(snap *domain.Snapshot) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap.Products = cloneProducts(c.products)
}
