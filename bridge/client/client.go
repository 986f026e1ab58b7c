// Package client speaks HTTP to the bridge backend. Every call is bounded by a
// shared retry budget: one initial attempt plus two retries on transient
// failures (connection errors, timeouts, 5xx). 4xx responses surface
// immediately as *APIError and are never retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/avelune/xmrbridge/core/logger"
	"github.com/avelune/xmrbridge/core/telegram/netutil"
)

const (
	maxRetries = 2
	userAgent  = "XMRBridgeBot/1.0"

	connectTimeout  = 5 * time.Second
	responseTimeout = 15 * time.Second
	requestTimeout  = 30 * time.Second
)

// APIError is a structured rejection from the backend (any non-2xx status that
// survived the retry budget).
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d: %s", e.Status, e.Detail)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client is the bridge backend API client. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client for the given base URL (no trailing slash).
func New(baseURL string) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: responseTimeout,
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

// do performs one API call with the shared retry budget and decodes the JSON
// response into out (which may be nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	attempts := maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("api: build request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("X-Request-ID", uuid.NewString())
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !netutil.ShouldRetry(err) || attempt == attempts {
				logger.API.Error("request failed",
					slog.String("event", "api.request"),
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("attempts", attempt),
					slog.String("err", err.Error()),
				)
				return fmt.Errorf("api: %s %s: %w", method, path, err)
			}
			logger.API.Warn("request retry",
				slog.String("event", "api.retry"),
				slog.String("status", "retry"),
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempts", attempt),
				slog.String("err", err.Error()),
			)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError && attempt < attempts {
			lastErr = &APIError{Status: resp.StatusCode, Detail: errorDetail(data)}
			logger.API.Warn("request retry",
				slog.String("event", "api.retry"),
				slog.String("status", "retry"),
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("http_code", resp.StatusCode),
				slog.Int("attempts", attempt),
			)
			continue
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Detail: errorDetail(data)}
		}
		if readErr != nil {
			return fmt.Errorf("api: read response: %w", readErr)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("api: decode %s %s: %w", method, path, err)
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed with no error captured")
	}
	return fmt.Errorf("api: %s %s: %w", method, path, lastErr)
}

// errorDetail extracts the backend's {"detail": ...} field, falling back to a
// truncated raw body.
func errorDetail(body []byte) string {
	var wrapper struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Detail != "" {
		return wrapper.Detail
	}
	const max = 300
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}

// Rate fetches the current exchange rate for one pair.
func (c *Client) Rate(ctx context.Context, fromCurrency, toCurrency string) (Rate, error) {
	q := url.Values{}
	q.Set("from_currency", fromCurrency)
	q.Set("to_currency", toCurrency)
	var out Rate
	err := c.do(ctx, http.MethodGet, "/api/rates", q, nil, &out)
	return out, err
}

// AllRates fetches the full rate table. Callers must tolerate failure here and
// fall back to per-pair Rate calls.
func (c *Client) AllRates(ctx context.Context) ([]Rate, error) {
	var out []Rate
	err := c.do(ctx, http.MethodGet, "/api/rates/all", nil, nil, &out)
	return out, err
}

// CreateOrderRequest is the POST /api/orders body.
type CreateOrderRequest struct {
	TGUserID           int64   `json:"tg_user_id"`
	FromCurrency       string  `json:"from_currency"`
	ToCurrency         string  `json:"to_currency"`
	Amount             float64 `json:"amount"`
	DestinationAddress string  `json:"destination_address"`
	Slippage           float64 `json:"slippage"`
}

// CreateOrder submits a new order. A retried 5xx can create a duplicate order
// on the backend; the API offers no idempotency key, so that residual risk is
// accepted rather than papered over client-side.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	var out Order
	err := c.do(ctx, http.MethodPost, "/api/orders", nil, req, &out)
	return out, err
}

// Order fetches one order snapshot. Unknown IDs yield *APIError with 404.
func (c *Client) Order(ctx context.Context, orderID string) (Order, error) {
	var out Order
	err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil, nil, &out)
	return out, err
}

// Orders lists a user's orders, newest first.
func (c *Client) Orders(ctx context.Context, tgUserID int64, limit, offset int) ([]Order, error) {
	q := url.Values{}
	q.Set("tg_user_id", strconv.FormatInt(tgUserID, 10))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	var out []Order
	err := c.do(ctx, http.MethodGet, "/api/orders", q, nil, &out)
	return out, err
}

// CancelOrder attempts to cancel an order. The backend rejects cancellation
// once the deposit is confirmed; the rejection reason travels in *APIError.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (Order, error) {
	var out Order
	err := c.do(ctx, http.MethodPost, "/api/orders/"+url.PathEscape(orderID)+"/cancel", nil, nil, &out)
	return out, err
}

// Stats fetches aggregate counters for the admin view.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.do(ctx, http.MethodGet, "/api/admin/stats", nil, nil, &out)
	return out, err
}

// PendingOrders lists in-flight orders for the admin view.
func (c *Client) PendingOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := c.do(ctx, http.MethodGet, "/api/admin/orders/pending", nil, nil, &out)
	return out, err
}
