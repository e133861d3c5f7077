// Package auth implements the bearer-token middleware for the HTTP
// transport: enabled iff at least one token is configured, constant-time
// comparison against every configured token, and a JSON 401 body on
// failure.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sqlbridge/dbmcp/dberr"
)

// Config holds the set of tokens that authenticate an HTTP request. The
// zero Config is disabled.
type Config struct {
	enabled bool
	tokens  map[string]struct{}
}

// NewConfig builds a Config from the configured token list. An empty list
// disables auth entirely; an empty-string token is rejected.
func NewConfig(tokens []string) (*Config, error) {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		trimmed := strings.TrimSpace(tok)
		if trimmed == "" {
			return nil, dberr.InvalidInput("empty token value in configuration")
		}
		set[trimmed] = struct{}{}
	}
	return &Config{enabled: len(set) > 0, tokens: set}, nil
}

// Disabled returns a Config with auth turned off, for transports (stdio)
// or deployments that don't want it.
func Disabled() *Config {
	return &Config{}
}

// Enabled reports whether requests must carry a valid bearer token.
func (c *Config) Enabled() bool {
	return c != nil && c.enabled
}

// verify reports whether provided matches one of the configured tokens.
// Every candidate is compared in constant time; the loop never
// short-circuits on a match so token-count and early-match timing don't
// leak which (if any) token was right.
func (c *Config) verify(provided string) bool {
	found := false
	providedBytes := []byte(provided)
	for tok := range c.tokens {
		if subtle.ConstantTimeCompare(providedBytes, []byte(tok)) == 1 {
			found = true
		}
	}
	return found
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

func writeUnauthorized(w http.ResponseWriter, message, suggestion string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Code:       "unauthorized",
		Message:    message,
		Suggestion: suggestion,
	}})
}

// Middleware wraps next, rejecting any request that doesn't carry a valid
// "Authorization: Bearer <token>" header when auth is enabled. A disabled
// Config (including a nil one) passes every request through unchanged.
func (c *Config) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeUnauthorized(w, "Missing Bearer token in Authorization header", "Include a valid token: 'Authorization: Bearer <token>'")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeUnauthorized(w, "Invalid Authorization header format", "Use the format: 'Authorization: Bearer <your-token>'")
			return
		}
		if !c.verify(token) {
			writeUnauthorized(w, "Invalid Bearer token", "Check that you are using a valid token configured on the server")
			return
		}
		next.ServeHTTP(w, r)
	})
}
