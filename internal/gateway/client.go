// Package gateway is the REST client for the storefront backend: auth,
// catalog, favorites and checkout.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
	// HTTPClient overrides the default instrumented client (tests).
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     *zap.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	log := opts.Logger.Named("gateway")

	settings := gobreaker.Settings{
		Name:    "storefront-api",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
		// 4xx answers mean the backend is alive; only transport errors and 5xx trip the breaker
		IsSuccessful: func(err error) bool {
			var remote *domain.RemoteError
			if errors.As(err, &remote) {
				return remote.StatusCode < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		timeout: opts.Timeout,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		log:     log,
	}
}

type call struct {
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
	headers     map[string]string
}

func jsonCall(method, path, token string, payload any) (call, error) {
	c := call{method: method, path: path, token: token}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return c, fmt.Errorf("marshal request failed: %w", err)
		}
		c.body = bytes.NewReader(data)
		c.contentType = "application/json"
	}
	return c, nil
}

// do runs c through the circuit breaker and decodes a JSON answer into out (may be nil).
func (c *Client) do(ctx context.Context, rc call, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, rc)
	})
	log := logger.WithContext(ctx, c.log).With(
		zap.String("method", rc.method),
		zap.String("path", rc.path),
		zap.Duration("duration", time.Since(start)),
	)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Warn("request rejected by circuit breaker")
		return fmt.Errorf("%w: backend unavailable: %v", domain.ErrNetworkFailure, err)
	}
	if err != nil {
		log.Info("request failed", zap.Error(err))
		return err
	}
	log.Debug("request succeeded")

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", domain.ErrNetworkFailure, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, rc call) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, rc.method, c.baseURL+rc.path, rc.body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	if rc.contentType != "" {
		req.Header.Set("Content-Type", rc.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if rc.token != "" {
		req.Header.Set("Authorization", "Bearer "+rc.token)
	}
	for k, v := range rc.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, remoteError(resp.StatusCode, body)
	}
	return body, nil
}

func remoteError(status int, body []byte) *domain.RemoteError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := http.StatusText(status)
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}
	return &domain.RemoteError{StatusCode: status, Message: msg}
}

func requireToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: sign in required", domain.ErrUnauthenticated)
	}
	return nil
}
