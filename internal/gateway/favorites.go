package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) Favorites(ctx context.Context, token string) ([]domain.Product, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	var items []domain.Product
	rc := call{method: http.MethodGet, path: "/api/favorites", token: token}
	if err := c.do(ctx, rc, &items); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return items, nil
}

func (c *Client) AddFavorite(ctx context.Context, token, productID string) (*domain.Product, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	rc, err := jsonCall(http.MethodPost, "/api/favorites", token, map[string]string{"productId": productID})
	if err != nil {
		return nil, err
	}
	var p domain.Product
	if err := c.do(ctx, rc, &p); err != nil {
		return nil, fmt.Errorf("add favorite %s: %w", productID, err)
	}
	return &p, nil
}

func (c *Client) RemoveFavorite(ctx context.Context, token, productID string) error {
	if err := requireToken(token); err != nil {
		return err
	}
	rc := call{method: http.MethodDelete, path: "/api/favorites/" + url.PathEscape(productID), token: token}
	if err := c.do(ctx, rc, nil); err != nil {
		return fmt.Errorf("remove favorite %s: %w", productID, err)
	}
	return nil
}
