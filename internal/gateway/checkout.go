package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const ConfirmPaymentPath = "/api/checkout/confirm-payment"

// CreateCheckout asks the backend for an order and a payment intent.
func (c *Client) CreateCheckout(ctx context.Context, token, idempotencyKey string, req domain.CheckoutRequest) (*domain.IntentResponse, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	rc, err := jsonCall(http.MethodPost, "/api/checkout", token, req)
	if err != nil {
		return nil, err
	}
	if idempotencyKey != "" {
		rc.headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	var res domain.IntentResponse
	if err := c.do(ctx, rc, &res); err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	if res.OrderID == "" || res.ClientSecret == "" {
		return nil, fmt.Errorf("%w: checkout response without order or client secret", domain.ErrNetworkFailure)
	}
	return &res, nil
}

// ConfirmPayment records the payment outcome for an order on the backend.
func (c *Client) ConfirmPayment(ctx context.Context, token string, req domain.ConfirmPaymentRequest) (*domain.OrderConfirmation, error) {
	if err := requireToken(token); err != nil {
		return nil, err
	}
	rc, err := jsonCall(http.MethodPost, ConfirmPaymentPath, token, req)
	if err != nil {
		return nil, err
	}
	var res domain.OrderConfirmation
	if err := c.do(ctx, rc, &res); err != nil {
		return nil, fmt.Errorf("confirm payment for order %s: %w", req.OrderID, err)
	}
	return &res, nil
}
