// Package executor implements the Query Executor (C4): running a
// parameterized statement against a pool or an open transaction, enforcing
// the row-limit and wall-clock timeout rules from §4.4.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
	"github.com/sqlbridge/dbmcp/sqlengine/params"
	"github.com/sqlbridge/dbmcp/sqlengine/rows"
)

// Row-limit and timeout defaults and bounds from §3's QueryRequest.
const (
	DefaultLimit       = 100
	MaxLimit           = 10000
	DefaultTimeoutSecs = 30
	MaxTimeoutSecs     = 300
)

// Request is one query or write call, after C5/C6/C7 have resolved a pool
// or transaction handle and C8 has cleared policy.
type Request struct {
	SQL          string
	Params       []dbtype.QueryParam
	Limit        int
	TimeoutSecs  int
	DecodeBinary bool
}

// EffectiveLimit clamps the requested row limit into [1, MaxLimit],
// defaulting to DefaultLimit when the request left it unset (<= 0).
func (r Request) EffectiveLimit() int {
	switch {
	case r.Limit <= 0:
		return DefaultLimit
	case r.Limit > MaxLimit:
		return MaxLimit
	default:
		return r.Limit
	}
}

// EffectiveTimeout clamps the requested timeout into (0, MaxTimeoutSecs]
// seconds, defaulting to DefaultTimeoutSecs when unset.
func (r Request) EffectiveTimeout() time.Duration {
	secs := r.TimeoutSecs
	if secs <= 0 {
		secs = DefaultTimeoutSecs
	}
	if secs > MaxTimeoutSecs {
		secs = MaxTimeoutSecs
	}
	return time.Duration(secs) * time.Second
}

// Result is the §3 QueryResult shape. RowsAffected is nil for a read and
// set for a write; Warning carries a non-fatal note (limit clamped,
// dangerous operation acknowledged) for the tool layer to surface.
type Result struct {
	Columns         []rows.Column
	Rows            []rows.Row
	RowsAffected    *int64
	Truncated       bool
	ExecutionTimeMS int64
	Warning         string
}

// Querier is anything that can run a parameterized statement and return
// rows or an exec result. *sql.DB, *sql.Conn, and *sql.Tx all satisfy it,
// so ExecuteQuery/ExecuteWrite run identically whether or not the caller
// is inside a transaction — only the registry that hands them a Querier
// differs (sqlengine/registry+dbpool for a bare pool, sqlengine/txregistry
// for a held transaction).
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ExecuteQuery runs req.SQL against q and returns at most
// req.EffectiveLimit() rows. It reads one row past the limit to determine
// Truncated without ever appending a LIMIT clause to the caller's SQL —
// enforcement is entirely consumer-side on the row stream, per §4.4.
func ExecuteQuery(ctx context.Context, q Querier, backendKind dbtype.BackendKind, req Request) (Result, error) {
	start := time.Now()
	timeout := req.EffectiveTimeout()
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args, err := params.Bind(backendKind, req.Params)
	if err != nil {
		return Result{}, err
	}

	r, err := q.QueryContext(qctx, req.SQL, args...)
	if err != nil {
		return Result{}, mapDriverError(qctx, err, "query", timeout)
	}
	defer r.Close()

	cols, err := rows.DecodeColumns(r)
	if err != nil {
		return Result{}, err
	}

	limit := req.EffectiveLimit()
	decoded := make([]rows.Row, 0, limit)
	truncated := false
	for r.Next() {
		if len(decoded) == limit {
			truncated = true
			break
		}
		row, err := rows.DecodeRow(r, cols, backendKind, req.DecodeBinary)
		if err != nil {
			return Result{}, err
		}
		decoded = append(decoded, row)
	}
	if err := r.Err(); err != nil {
		return Result{}, mapDriverError(qctx, err, "query", timeout)
	}

	warning := ""
	if req.Limit > MaxLimit {
		warning = fmt.Sprintf("limit %d exceeds the maximum of %d; clamped to %d", req.Limit, MaxLimit, MaxLimit)
	}

	return Result{
		Columns:         cols,
		Rows:            decoded,
		Truncated:       truncated,
		ExecutionTimeMS: elapsedMS(start),
		Warning:         warning,
	}, nil
}

// ExecuteWrite runs a DML/DDL statement against q and reports the
// driver-supplied rows-affected count (commonly 0 for DDL).
func ExecuteWrite(ctx context.Context, q Querier, backendKind dbtype.BackendKind, req Request) (Result, error) {
	start := time.Now()
	timeout := req.EffectiveTimeout()
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args, err := params.Bind(backendKind, req.Params)
	if err != nil {
		return Result{}, err
	}

	res, err := q.ExecContext(wctx, req.SQL, args...)
	if err != nil {
		return Result{}, mapDriverError(wctx, err, "write", timeout)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Some drivers (notably DDL on several backends) don't support
		// RowsAffected; that is not a failure of the statement itself.
		affected = 0
	}

	return Result{
		RowsAffected:    &affected,
		ExecutionTimeMS: elapsedMS(start),
	}, nil
}

// explainPrefix returns the backend's EXPLAIN form for inner, per the
// SUPPLEMENTED FEATURES explain-plan-shape note.
func explainPrefix(backendKind dbtype.BackendKind, inner string) string {
	switch backendKind {
	case dbtype.BackendPostgres:
		return "EXPLAIN (FORMAT JSON) " + inner
	case dbtype.BackendSQLite:
		return "EXPLAIN QUERY PLAN " + inner
	default:
		return "EXPLAIN " + inner
	}
}

// ExplainQuery runs req.SQL's backend-specific EXPLAIN form and returns
// the plan rows through the same Result shape ExecuteQuery uses, rather
// than a bare string.
func ExplainQuery(ctx context.Context, q Querier, backendKind dbtype.BackendKind, req Request) (Result, error) {
	explainReq := req
	explainReq.SQL = explainPrefix(backendKind, req.SQL)
	return ExecuteQuery(ctx, q, backendKind, explainReq)
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// mapDriverError distinguishes a context-deadline expiry (the wall-clock
// timeout this package itself imposed) from every other driver failure,
// which is surfaced as a KindQuery error for the tool layer to relay.
func mapDriverError(ctx context.Context, err error, op string, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return dberr.Timeout(op, timeout.Seconds())
	}
	return dberr.QueryWrap(err, "", "check the SQL syntax and that referenced objects exist")
}
