// Package backend implements the capability interface from Design Note 1
// (§9: acquire, run_query, run_write, begin, close, kind) over the three
// supported databases. Every implementation is backed by a *sql.DB, so C3
// and C4 operate on database/sql types uniformly regardless of backend —
// the Postgres implementation wraps a *pgxpool.Pool through
// pgx/v5/stdlib.OpenDBFromPool so pgx's native pooling still applies while
// callers get the same *sql.DB/*sql.Rows/*sql.Tx surface as MySQL and
// SQLite.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

// Backend is one open pool for a single backend. "acquire", "run_query",
// and "run_write" are expressed through the embedded *sql.DB (via DB());
// Kind and Close are what a backend-agnostic caller needs on top of what
// *sql.DB already exposes. Begin is *sql.DB.BeginTx, used directly by the
// transaction registry.
type Backend interface {
	Kind() dbtype.BackendKind
	DB() *sql.DB
	Close() error
}

type sqlBackend struct {
	kind dbtype.BackendKind
	db   *sql.DB
	// closer releases a native pool (pgxpool) that sits underneath db, if
	// any; nil for backends where db.Close() is sufficient on its own.
	closer func() error
}

func (b *sqlBackend) Kind() dbtype.BackendKind { return b.kind }
func (b *sqlBackend) DB() *sql.DB              { return b.db }

func (b *sqlBackend) Close() error {
	err := b.db.Close()
	if b.closer != nil {
		if cerr := b.closer(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open creates the backend-appropriate pool for connStr, applies the pool
// tuning from opts, and probes the connection so a bad DSN or unreachable
// server surfaces immediately rather than on first real use.
func Open(ctx context.Context, kind dbtype.BackendKind, connStr string, opts dbtype.PoolOptions) (Backend, error) {
	switch kind {
	case dbtype.BackendMySQL:
		return openSQLDB(ctx, kind, "mysql", connStr, opts)
	case dbtype.BackendSQLite:
		return openSQLDB(ctx, kind, "sqlite", connStr, opts)
	case dbtype.BackendPostgres:
		return openPostgres(ctx, connStr, opts)
	default:
		return nil, dberr.InvalidInput("unsupported backend")
	}
}

func openSQLDB(ctx context.Context, kind dbtype.BackendKind, driverName, connStr string, opts dbtype.PoolOptions) (Backend, error) {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, dberr.ConnectionWrap(err, suggestionFor(kind, err))
	}
	applyPoolOptions(db, kind, opts)

	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.EffectiveAcquireTimeoutSecs())*time.Second)
	defer cancel()
	if err := db.PingContext(probeCtx); err != nil {
		db.Close()
		return nil, dberr.ConnectionWrap(err, suggestionFor(kind, err))
	}
	return &sqlBackend{kind: kind, db: db}, nil
}

func openPostgres(ctx context.Context, connStr string, opts dbtype.PoolOptions) (Backend, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, dberr.InvalidInput("invalid postgres connection string: " + err.Error())
	}
	cfg.MaxConns = int32(opts.EffectiveMaxConnections(dbtype.BackendPostgres))
	cfg.MinConns = int32(opts.EffectiveMinConnections())
	cfg.MaxConnIdleTime = time.Duration(opts.EffectiveIdleTimeoutSecs()) * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, dberr.ConnectionWrap(err, suggestionFor(dbtype.BackendPostgres, err))
	}

	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.EffectiveAcquireTimeoutSecs())*time.Second)
	defer cancel()
	if err := pool.Ping(probeCtx); err != nil {
		pool.Close()
		return nil, dberr.ConnectionWrap(err, suggestionFor(dbtype.BackendPostgres, err))
	}

	db := stdlib.OpenDBFromPool(pool)
	return &sqlBackend{
		kind:   dbtype.BackendPostgres,
		db:     db,
		closer: func() error { pool.Close(); return nil },
	}, nil
}

func applyPoolOptions(db *sql.DB, kind dbtype.BackendKind, opts dbtype.PoolOptions) {
	db.SetMaxOpenConns(int(opts.EffectiveMaxConnections(kind)))
	db.SetMaxIdleConns(int(opts.EffectiveMinConnections()))
	db.SetConnMaxIdleTime(time.Duration(opts.EffectiveIdleTimeoutSecs()) * time.Second)
}

// suggestionFor sniffs a driver error message for the handful of common
// failure shapes and returns an actionable hint. It is advisory text only
// and never changes classification of the underlying error.
func suggestionFor(kind dbtype.BackendKind, err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return "check that the database server is running and reachable at the configured host and port"
	case strings.Contains(msg, "password authentication failed"), strings.Contains(msg, "access denied"):
		return "check the configured username and password"
	case strings.Contains(msg, "unknown database"), strings.Contains(msg, "does not exist"):
		return "check that the database name is correct and has been created"
	case strings.Contains(msg, "tls"), strings.Contains(msg, "certificate"), strings.Contains(msg, "ssl"):
		return "check the TLS/SSL configuration for this connection"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "i/o timeout"):
		return "the connection attempt timed out; check network reachability and firewall rules"
	default:
		return fmt.Sprintf("verify the %s connection string and server availability", kind)
	}
}
