package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, handler http.HandlerFunc, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--server", srv.URL))
	t.Cleanup(func() { adminToken = "" })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestTodayCommand(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/today", r.URL.Path)
		_, _ = w.Write([]byte(`{"date":"2026-08-15","fact":"1947: Independence.","source":"Live AI Generated","generated_at":"2026-08-15T09:30:00.000Z"}`))
	}, "today")

	require.NoError(t, err)
	assert.Contains(t, out, "2026-08-15")
	assert.Contains(t, out, "1947: Independence.")
	assert.Contains(t, out, "Live AI Generated")
}

func TestDateCommand(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/date/2/29", r.URL.Path)
		_, _ = w.Write([]byte(`{"date":"2/29","fact":"Leap day fact.","source":"Live AI Generated","generated_at":"x"}`))
	}, "date", "02", "29")

	require.NoError(t, err)
	assert.Contains(t, out, "Leap day fact.")
}

func TestDateCommand_InvalidArgs(t *testing.T) {
	_, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Fail(t, "no request expected")
	}, "date", "feb", "29")
	assert.ErrorContains(t, err, "invalid month")
}

func TestDateCommand_ServerError(t *testing.T) {
	_, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"AI service temporarily unavailable","message":"AI service temporarily unavailable. Please refresh to try again.","retry":true}`))
	}, "date", "8", "15")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Contains(t, err.Error(), "Please refresh to try again.")
}

func TestHealthCommand(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","timestamp":"2026-08-15T09:30:00.000Z","cacheSize":3,"usedFactsCount":2}`))
	}, "health")

	require.NoError(t, err)
	assert.Contains(t, out, "Status:      OK")
	assert.Contains(t, out, "Cache size:  3")
	assert.Contains(t, out, "Used facts:  2")
}

func TestClearCacheCommand_SendsToken(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"message":"Cache cleared successfully"}`))
	}, "clear-cache", "--token", "tok")

	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared successfully")
}

func TestClearCacheCommand_Unauthorized(t *testing.T) {
	_, err := runCLI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"Missing authorization header"}`))
	}, "clear-cache")

	assert.ErrorContains(t, err, "Unauthorized (HTTP 401)")
}
