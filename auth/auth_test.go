package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDisabledConfigPassesEveryRequest(t *testing.T) {
	cfg := Disabled()
	assert.False(t, cfg.Enabled())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	cfg.Middleware(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEmptyTokenListDisablesAuth(t *testing.T) {
	cfg, err := NewConfig(nil)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled())
}

func TestNewConfigRejectsEmptyToken(t *testing.T) {
	_, err := NewConfig([]string{"valid", ""})
	require.Error(t, err)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	cfg, err := NewConfig([]string{"secret"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	cfg.Middleware(okHandler()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["error"]["code"])
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	cfg, err := NewConfig([]string{"secret"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	cfg.Middleware(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareRejectsWrongToken(t *testing.T) {
	cfg, err := NewConfig([]string{"secret"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	cfg.Middleware(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareAcceptsAnyConfiguredToken(t *testing.T) {
	cfg, err := NewConfig([]string{"tok-a", "tok-b"})
	require.NoError(t, err)

	for _, tok := range []string{"tok-a", "tok-b"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		cfg.Middleware(okHandler()).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "token %q should be accepted", tok)
	}
}
