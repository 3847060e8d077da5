package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) ListProducts(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	q = q.Normalized()
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("sort", string(q.Sort))
	if q.Q != "" {
		params.Set("q", q.Q)
	}
	if q.Tag != "" {
		params.Set("tag", q.Tag)
	}

	var page domain.ProductPage
	rc := call{method: http.MethodGet, path: "/api/products?" + params.Encode()}
	if err := c.do(ctx, rc, &page); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &page, nil
}

func (c *Client) ProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var p domain.Product
	rc := call{method: http.MethodGet, path: "/api/products/slug/" + url.PathEscape(slug)}
	if err := c.do(ctx, rc, &p); err != nil {
		return nil, fmt.Errorf("get product %s: %w", slug, err)
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, token string, p domain.Product) (*domain.Product, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	rc, err := jsonCall(http.MethodPost, "/api/products", token, p)
	if err != nil {
		return nil, err
	}
	var created domain.Product
	if err := c.do(ctx, rc, &created); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, token, id string, patch domain.ProductPatch) (*domain.Product, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	rc, err := jsonCall(http.MethodPatch, "/api/products/"+url.PathEscape(id), token, patch)
	if err != nil {
		return nil, err
	}
	var updated domain.Product
	if err := c.do(ctx, rc, &updated); err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	return &updated, nil
}

func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	rc := call{method: http.MethodDelete, path: "/api/products/" + url.PathEscape(id), token: token}
	if err := c.do(ctx, rc, nil); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}
