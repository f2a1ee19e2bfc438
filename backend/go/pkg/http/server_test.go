package http

import (
	"TodayInHistory/backend/go/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"
)

// helper function to create a mock config for testing
func newTestConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.Middleware.RateLimiter = config.RateLimiterConfig{
		Enabled:   true,
		Algorithm: "tokenBucket",
		TokenBucket: config.TokenBucketConfig{
			Rate:     10,
			Capacity: 5,
		},
	}
	return cfg
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewServer_WithAddress(t *testing.T) {
	cfg := newTestConfig()
	addr := ":9999"

	srv, err := NewServer(cfg, okHandler(), WithAddress(addr))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	if srv.Addr() != addr {
		t.Errorf("Expected server address to be %s, but got %s", addr, srv.Addr())
	}
}

func TestNewServer_DefaultAddressFromConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.Address = ":7070"

	srv, err := NewServer(cfg, okHandler())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if srv.Addr() != ":7070" {
		t.Errorf("Expected :7070, got %s", srv.Addr())
	}
}

func TestNewServer_InvalidLimiterConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Middleware.RateLimiter.Algorithm = "leakyFaucet"

	if _, err := NewServer(cfg, okHandler()); err == nil {
		t.Fatal("Expected an error for an unknown algorithm")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	cfg := newTestConfig()
	// Use a very small capacity to make testing easier
	cfg.Middleware.RateLimiter.TokenBucket.Capacity = 2
	cfg.Middleware.RateLimiter.TokenBucket.Rate = 0.001

	srv, err := NewServer(cfg, okHandler())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	// First 2 requests should pass (equal to capacity)
	for i := 0; i < 2; i++ {
		resp, err := http.Get(testServer.URL)
		if err != nil {
			t.Fatalf("Request %d failed: %v", i+1, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status OK on request %d, got %d", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// The 3rd request should be rate limited
	resp, err := http.Get(testServer.URL)
	if err != nil {
		t.Fatalf("Request 3 failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status TooManyRequests on request 3, got %d", resp.StatusCode)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	cfg := newTestConfig()
	cfg.Middleware.RateLimiter.Enabled = false

	srv, err := NewServer(cfg, okHandler())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status OK on request %d, got %d", i+1, rec.Code)
		}
	}
}

func TestSlidingWindowLimiter(t *testing.T) {
	cfg := newTestConfig()
	cfg.Middleware.RateLimiter.Algorithm = "slidingWindow"
	cfg.Middleware.RateLimiter.SlidingWindow.Limit = 1
	cfg.Middleware.RateLimiter.SlidingWindow.Window = "1m"

	srv, err := NewServer(cfg, okHandler())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("Expected [200 429], got %v", codes)
	}

	cfg.Middleware.RateLimiter.SlidingWindow.Window = "soon"
	if _, err := NewServer(cfg, okHandler()); err == nil {
		t.Fatal("Expected an error for an invalid window")
	}
}
