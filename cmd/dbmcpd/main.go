// Command dbmcpd wires an Engine, its connections, and the MCP tool
// catalog into a running process. It is a demonstration of how the
// packages in this module fit together, not a deliverable in its own
// right — a real deployment is expected to own its own composition
// root shaped like this one.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sqlbridge/dbmcp/auth"
	"github.com/sqlbridge/dbmcp/config"
	"github.com/sqlbridge/dbmcp/metrics"
	"github.com/sqlbridge/dbmcp/ratelimit"
	"github.com/sqlbridge/dbmcp/sqlengine"
	"github.com/sqlbridge/dbmcp/toolcatalog"
)

const serverVersion = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to a TOML/YAML/JSON config file (optional; env vars and defaults otherwise)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("dbmcpd exited with an error")
	}
}

func run(cfg *config.EngineConfig, logger zerolog.Logger) error {
	engine := sqlengine.New(logger)
	defer func() {
		if err := engine.Shutdown(); err != nil {
			logger.Warn().Err(err).Msg("engine shutdown reported an error")
		}
	}()

	collector := metrics.New()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ConnectTimeoutSecs)*time.Second)
	defer cancel()

	for _, entry := range cfg.Databases {
		connCfg, err := config.ParseConnectionEntry(entry)
		if err != nil {
			return fmt.Errorf("parsing database entry %q: %w", entry, err)
		}
		info, err := engine.Connect(ctx, connCfg)
		if err != nil {
			return fmt.Errorf("connecting %q: %w", connCfg.ID, err)
		}
		collector.SetPoolCount(info.ID, 0)
		logger.Info().Str("connection_id", info.ID).Str("backend", string(connCfg.Backend)).Msg("connection registered")
	}

	mcpServer := server.NewMCPServer("dbmcp", serverVersion)
	toolcatalog.Register(mcpServer, engine, logger)

	authCfg, err := auth.NewConfig(cfg.AuthTokens)
	if err != nil {
		return fmt.Errorf("building auth config: %w", err)
	}

	done := make(chan error, 1)
	switch cfg.Transport {
	case config.TransportStdio:
		go func() { done <- server.ServeStdio(mcpServer) }()
	case config.TransportHTTP:
		sseServer := server.NewSSEServer(mcpServer)
		limiter := ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
		defer limiter.Stop()

		router := mux.NewRouter()
		router.PathPrefix(cfg.MCPEndpoint).Handler(authCfg.Middleware(sseServer))
		router.Handle("/metrics", promhttp.HandlerFor(collector.Registry, promhttp.HandlerOpts{}))
		router.Use(limiter.Middleware)

		addr := fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)
		httpServer := &http.Server{
			Addr:    addr,
			Handler: router,
		}
		logger.Info().Str("addr", addr).Str("endpoint", cfg.MCPEndpoint).Bool("auth_enabled", authCfg.Enabled()).
			Int("rate_limit_per_second", cfg.RateLimitPerSecond).Msg("serving MCP over HTTP")
		go func() { done <- httpServer.ListenAndServe() }()
		defer httpServer.Close()
	default:
		return fmt.Errorf("unsupported transport %q", cfg.Transport)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		return nil
	}
}
