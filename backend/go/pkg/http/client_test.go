package http

import (
	"TodayInHistory/backend/go/internal/config"
	"TodayInHistory/backend/go/pkg/circuitbreaker"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_ServerErrorBecomesStatusError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	client, err := NewClient(config.CircuitBreakerConfig{Enabled: false}, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	_, err = client.Do(req)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected code 503, got %d", statusErr.Code)
	}
}

func TestClient_CircuitOpensAfterFailures(t *testing.T) {
	var hits int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	client, err := NewClient(config.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          "1m",
	}, time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
		if _, err := client.Do(req); err == nil {
			t.Fatalf("Expected error on request %d", i+1)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	_, err = client.Do(req)
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Fatalf("Expected ErrCircuitOpen, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("Expected upstream to be hit 2 times, got %d", got)
	}
}

func TestClient_PassesClientErrorsThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	client, _ := NewClient(config.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, Timeout: "1m"}, time.Second)
	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
	if client.Breaker().State() != circuitbreaker.Closed {
		t.Errorf("Expected breaker to stay closed on 4xx")
	}
}
