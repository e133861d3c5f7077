// Package config loads the engine-level configuration (transport binding,
// timeouts, auth tokens, preconfigured connections) via viper, binding
// DBMCP_-prefixed environment variables over config-file values and
// built-in defaults.
// It also implements the connection URL grammar: deriving a
// dbtype.ConnectionConfig from a "url" or "id=url" database entry.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/sqlbridge/dbmcp/dberr"
)

// Transport selects how the external dispatcher exposes the tool surface.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
)

const (
	DefaultHTTPHost              = "127.0.0.1"
	DefaultHTTPPort              = 8080
	DefaultMCPEndpoint           = "/"
	DefaultQueryTimeoutSecs      = 30
	DefaultConnectTimeoutSecs    = 10
	DefaultTransactionTimeoutSecs = 60
	DefaultRateLimitPerSecond    = 10
	DefaultRateLimitBurst        = 20
)

// EngineConfig is the top-level configuration a composition root loads
// before constructing a sqlengine.Engine and a transport.
type EngineConfig struct {
	Databases              []string
	Transport              Transport
	HTTPHost               string
	HTTPPort               int
	MCPEndpoint            string
	QueryTimeoutSecs       int
	ConnectTimeoutSecs     int
	TransactionTimeoutSecs int
	AuthTokens             []string
	RateLimitPerSecond     int
	RateLimitBurst         int
}

// Load reads defaults, an optional config file at path (if non-empty and
// present), then DBMCP_-prefixed environment variables, in increasing
// priority. Missing config files are not an error; a malformed one is.
func Load(path string) (*EngineConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("DBMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("transport", string(TransportStdio))
	v.SetDefault("http_host", DefaultHTTPHost)
	v.SetDefault("http_port", DefaultHTTPPort)
	v.SetDefault("mcp_endpoint", DefaultMCPEndpoint)
	v.SetDefault("query_timeout", DefaultQueryTimeoutSecs)
	v.SetDefault("connect_timeout", DefaultConnectTimeoutSecs)
	v.SetDefault("transaction_timeout", DefaultTransactionTimeoutSecs)
	v.SetDefault("databases", []string{})
	v.SetDefault("auth_tokens", []string{})
	v.SetDefault("rate_limit_per_second", DefaultRateLimitPerSecond)
	v.SetDefault("rate_limit_burst", DefaultRateLimitBurst)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, dberr.InvalidInput("config: " + err.Error())
			}
		}
	}

	cfg := &EngineConfig{
		Databases:              v.GetStringSlice("databases"),
		Transport:              Transport(v.GetString("transport")),
		HTTPHost:               v.GetString("http_host"),
		HTTPPort:               v.GetInt("http_port"),
		MCPEndpoint:            v.GetString("mcp_endpoint"),
		QueryTimeoutSecs:       v.GetInt("query_timeout"),
		ConnectTimeoutSecs:     v.GetInt("connect_timeout"),
		TransactionTimeoutSecs: v.GetInt("transaction_timeout"),
		AuthTokens:             v.GetStringSlice("auth_tokens"),
		RateLimitPerSecond:     v.GetInt("rate_limit_per_second"),
		RateLimitBurst:         v.GetInt("rate_limit_burst"),
	}

	for _, tok := range cfg.AuthTokens {
		if tok == "" {
			return nil, dberr.InvalidInput("auth token must not be empty")
		}
	}
	if cfg.Transport != TransportStdio && cfg.Transport != TransportHTTP {
		return nil, dberr.InvalidInput("transport must be stdio or http")
	}
	return cfg, nil
}
