package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRateQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rates" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("from_currency"); got != "XMR" {
			t.Errorf("from_currency = %s", got)
		}
		if got := r.URL.Query().Get("to_currency"); got != "TON" {
			t.Errorf("to_currency = %s", got)
		}
		_ = json.NewEncoder(w).Encode(Rate{FromCurrency: "XMR", ToCurrency: "TON", Rate: 52.35})
	}))
	defer srv.Close()

	c := New(srv.URL)
	rate, err := c.Rate(context.Background(), "XMR", "TON")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if rate.Rate != 52.35 {
		t.Fatalf("rate = %v", rate.Rate)
	}
	if rate.Fee() != DefaultFeePct {
		t.Fatalf("missing fee_pct should default, got %v", rate.Fee())
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"amount below minimum"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{TGUserID: 7, Amount: 0.001})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Detail != "amount below minimum" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestServerErrorRetriedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Order{ID: "ord-1", Status: StatusPending})
	}))
	defer srv.Close()

	c := New(srv.URL)
	order, err := c.Order(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if order.ID != "ord-1" {
		t.Fatalf("order = %+v", order)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestServerErrorBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"db down"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Stats(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError after exhausted retries, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", apiErr.Status)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls.Load())
	}
}

func TestOrderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"order not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Order(context.Background(), "nope")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCreateOrderBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.TGUserID != 42 || req.FromCurrency != "XMR" || req.ToCurrency != "TON" ||
			req.Amount != 1.5 || req.DestinationAddress != "UQabcdef123456" || req.Slippage != 0.5 {
			t.Fatalf("unexpected body: %+v", req)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		_ = json.NewEncoder(w).Encode(Order{ID: "ord-9", Status: StatusPending, DepositAddress: "4Adeposit"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	order, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		TGUserID:           42,
		FromCurrency:       "XMR",
		ToCurrency:         "TON",
		Amount:             1.5,
		DestinationAddress: "UQabcdef123456",
		Slippage:           0.5,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.DepositAddress != "4Adeposit" {
		t.Fatalf("order = %+v", order)
	}
}

func TestIsTerminal(t *testing.T) {
	for _, st := range []string{StatusCompleted, StatusFailed, StatusRefunded, StatusExpired, StatusCancelled} {
		if !IsTerminal(st) {
			t.Errorf("%s should be terminal", st)
		}
	}
	for _, st := range []string{StatusPending, StatusAwaitingDeposit, StatusConfirming, StatusExchanging, StatusSending} {
		if IsTerminal(st) {
			t.Errorf("%s should not be terminal", st)
		}
	}
}
