// Package payment talks to the third-party payment processor through its
// public confirm-intent endpoint. Intents are created by the storefront backend.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var ErrInvalidClientSecret = errors.New("invalid client secret")

type Options struct {
	BaseURL        string
	PublishableKey string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

type Client struct {
	baseURL string
	key     string
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		key:     opts.PublishableKey,
		http:    httpClient,
		timeout: opts.Timeout,
		log:     opts.Logger.Named("payment"),
	}
}

// IntentID extracts the intent id from a client secret of the form "<id>_secret_<nonce>".
func IntentID(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || id == "" {
		return "", ErrInvalidClientSecret
	}
	return id, nil
}

type confirmRequest struct {
	ClientSecret string `json:"client_secret"`
}

type intentResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message       string `json:"message"`
		PaymentIntent *struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"payment_intent,omitempty"`
	} `json:"error"`
}

// ConfirmIntent confirms the intent behind clientSecret. A declined card is a
// result with a non-succeeded status, not an error; errors mean no outcome is known.
func (c *Client) ConfirmIntent(ctx context.Context, clientSecret string) (*domain.PaymentResult, error) {
	id, err := IntentID(clientSecret)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(confirmRequest{ClientSecret: clientSecret})
	if err != nil {
		return nil, fmt.Errorf("marshal confirm request failed: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s/confirm", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build confirm request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	log := logger.WithContext(ctx, c.log).With(zap.String("intent_id", id))
	resp, err := c.http.Do(req)
	if err != nil {
		log.Info("confirm intent failed", zap.Error(err))
		return nil, fmt.Errorf("%w: confirm intent: %w", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read confirm response: %w", domain.ErrNetworkFailure, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		var intent intentResponse
		if err := json.Unmarshal(body, &intent); err != nil {
			return nil, fmt.Errorf("%w: invalid confirm response: %v", domain.ErrNetworkFailure, err)
		}
		result := &domain.PaymentResult{Reference: intent.ID, Status: domain.PaymentStatus(intent.Status)}
		if intent.LastPaymentError != nil {
			result.Reason = intent.LastPaymentError.Message
		}
		if result.Reference == "" {
			result.Reference = id
		}
		log.Info("intent confirmed", zap.String("status", intent.Status))
		return result, nil

	case resp.StatusCode == http.StatusPaymentRequired:
		var e errorResponse
		_ = json.Unmarshal(body, &e)
		result := &domain.PaymentResult{Reference: id, Status: domain.PaymentDeclined, Reason: e.Error.Message}
		if pi := e.Error.PaymentIntent; pi != nil {
			result.Reference = pi.ID
			if pi.Status != "" {
				result.Status = domain.PaymentStatus(pi.Status)
			}
		}
		if result.Reason == "" {
			result.Reason = "payment declined"
		}
		log.Info("intent declined", zap.String("reason", result.Reason))
		return result, nil

	default:
		var e errorResponse
		msg := http.StatusText(resp.StatusCode)
		if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return nil, fmt.Errorf("confirm intent: %w", &domain.RemoteError{StatusCode: resp.StatusCode, Message: msg})
	}
}
