// Package sqlengine is the composition root: it wires the Connection
// Registry (C5), Database Pool Manager (C6), Transaction Registry (C7),
// Guard Layer (C8), Query Executor (C4), and schema introspection into the
// tool-facing operations an external MCP dispatcher calls (§6).
package sqlengine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
	"github.com/sqlbridge/dbmcp/sqlengine/backend"
	"github.com/sqlbridge/dbmcp/sqlengine/dbpool"
	"github.com/sqlbridge/dbmcp/sqlengine/executor"
	"github.com/sqlbridge/dbmcp/sqlengine/guard"
	"github.com/sqlbridge/dbmcp/sqlengine/registry"
	"github.com/sqlbridge/dbmcp/sqlengine/schema"
	"github.com/sqlbridge/dbmcp/sqlengine/txregistry"
)

// Engine is the single entry point the tool dispatcher holds. It is safe
// for concurrent use.
type Engine struct {
	logger       zerolog.Logger
	registry     *registry.Registry
	transactions *txregistry.Registry

	mu       sync.Mutex
	managers map[string]*dbpool.Manager // keyed by connection id
}

// New constructs an empty Engine.
func New(logger zerolog.Logger) *Engine {
	return &Engine{
		logger:       logger,
		registry:     registry.New(),
		transactions: txregistry.New(logger),
		managers:     make(map[string]*dbpool.Manager),
	}
}

// Connect registers a new connection. See sqlengine/registry.Connect.
func (e *Engine) Connect(ctx context.Context, cfg dbtype.ConnectionConfig) (registry.ConnectionInfo, error) {
	return e.registry.Connect(ctx, cfg)
}

// ListConnections returns a Summary per registered connection.
func (e *Engine) ListConnections() []registry.Summary {
	return e.registry.ListConnections()
}

// managerFor lazily creates the dbpool.Manager rooted at connectionID's
// base connection string. Used both for a server-level connection's own
// database sub-pools and for cross-database access rooted at a
// non-server-level connection (§4.6's ResolvePool fourth case).
func (e *Engine) managerFor(connectionID string, cfg dbtype.ConnectionConfig) *dbpool.Manager {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.managers[connectionID]; ok {
		return m
	}
	m := dbpool.New(dbpool.Config{
		BaseURL:     cfg.ConnectionString,
		Backend:     cfg.Backend,
		PoolOptions: cfg.PoolOptions,
		Logger:      e.logger,
	})
	e.managers[connectionID] = m
	return m
}

func (e *Engine) existingManager(connectionID string) (*dbpool.Manager, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.managers[connectionID]
	return m, ok
}

// ResolvePool implements §4.6's four-way resolution: the connection's own
// pool, or a database-pool-manager sub-pool, depending on whether the
// connection is server-level and whether a database was named.
func (e *Engine) ResolvePool(ctx context.Context, connectionID, database string) (backend.Backend, error) {
	cfg, err := e.registry.GetConfig(connectionID)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.ServerLevel && database == "":
		return e.managerFor(connectionID, cfg).GetOrCreate(ctx, dbtype.ServerTarget())
	case cfg.ServerLevel && database != "":
		return e.managerFor(connectionID, cfg).GetOrCreate(ctx, dbtype.NamedTarget(database))
	case !cfg.ServerLevel && database == "":
		return e.registry.GetPool(connectionID)
	default: // !cfg.ServerLevel && database != ""
		if cfg.Backend == dbtype.BackendSQLite {
			return nil, dberr.InvalidInput("cross-database queries are not supported for sqlite")
		}
		return e.managerFor(connectionID, cfg).GetOrCreate(ctx, dbtype.NamedTarget(database))
	}
}

// ReleasePool decrements the active_count ResolvePool incremented, if any.
// It is a no-op for the "not server-level, no database named" case, since
// that path returns the top-level pool directly with no sub-pool entry to
// release. Callers must call this on every exit path after a successful
// ResolvePool, per §4.6.
func (e *Engine) ReleasePool(connectionID, database string) {
	cfg, err := e.registry.GetConfig(connectionID)
	if err != nil {
		return
	}
	m, ok := e.existingManager(connectionID)
	if !ok {
		return
	}
	switch {
	case cfg.ServerLevel && database == "":
		m.Release(dbtype.ServerTarget())
	case database != "":
		m.Release(dbtype.NamedTarget(database))
	}
}

// QueryRequest is the §6 query/explain tool's input shape.
type QueryRequest struct {
	ConnectionID  string
	Database      string
	SQL           string
	Params        []dbtype.QueryParam
	Limit         int
	TimeoutSecs   int
	DecodeBinary  bool
	TransactionID string
}

func (r QueryRequest) toExecutorRequest() executor.Request {
	return executor.Request{
		SQL:          r.SQL,
		Params:       r.Params,
		Limit:        r.Limit,
		TimeoutSecs:  r.TimeoutSecs,
		DecodeBinary: r.DecodeBinary,
	}
}

// ExecuteRequest is the §6 execute tool's input shape.
type ExecuteRequest struct {
	ConnectionID              string
	Database                  string
	SQL                       string
	Params                    []dbtype.QueryParam
	TimeoutSecs               int
	TransactionID             string
	DangerousOperationAllowed bool
}

// Query runs a read-only statement, refusing anything the guard layer
// does not classify as read-only.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (executor.Result, error) {
	if err := guard.CheckQueryPath(req.SQL); err != nil {
		return executor.Result{}, err
	}
	cfg, err := e.registry.GetConfig(req.ConnectionID)
	if err != nil {
		return executor.Result{}, err
	}
	execReq := req.toExecutorRequest()

	if req.TransactionID != "" {
		return e.transactions.ExecuteQuery(ctx, req.TransactionID, req.ConnectionID, cfg.Backend, execReq)
	}

	pool, err := e.ResolvePool(ctx, req.ConnectionID, req.Database)
	if err != nil {
		return executor.Result{}, err
	}
	defer e.ReleasePool(req.ConnectionID, req.Database)
	return executor.ExecuteQuery(ctx, pool.DB(), cfg.Backend, execReq)
}

// Explain runs a statement's backend-specific EXPLAIN form.
func (e *Engine) Explain(ctx context.Context, req QueryRequest) (executor.Result, error) {
	cfg, err := e.registry.GetConfig(req.ConnectionID)
	if err != nil {
		return executor.Result{}, err
	}
	pool, err := e.ResolvePool(ctx, req.ConnectionID, req.Database)
	if err != nil {
		return executor.Result{}, err
	}
	defer e.ReleasePool(req.ConnectionID, req.Database)
	return executor.ExplainQuery(ctx, pool.DB(), cfg.Backend, req.toExecutorRequest())
}

// Execute runs a write/DDL statement, enforcing writability and the
// dangerous-operation acknowledgement rule.
func (e *Engine) Execute(ctx context.Context, req ExecuteRequest) (executor.Result, error) {
	cfg, err := e.registry.GetConfig(req.ConnectionID)
	if err != nil {
		return executor.Result{}, err
	}
	check, err := guard.CheckExecutePath(req.SQL, cfg.Writable, req.DangerousOperationAllowed)
	if err != nil {
		return executor.Result{}, err
	}

	execReq := executor.Request{SQL: req.SQL, Params: req.Params, TimeoutSecs: req.TimeoutSecs}

	var result executor.Result
	if req.TransactionID != "" {
		result, err = e.transactions.ExecuteWrite(ctx, req.TransactionID, req.ConnectionID, cfg.Backend, execReq)
	} else {
		var pool backend.Backend
		pool, err = e.ResolvePool(ctx, req.ConnectionID, req.Database)
		if err == nil {
			defer e.ReleasePool(req.ConnectionID, req.Database)
			result, err = executor.ExecuteWrite(ctx, pool.DB(), cfg.Backend, execReq)
		}
	}
	if err != nil {
		return executor.Result{}, err
	}
	result.Warning = check.Warning
	return result, nil
}

// BeginTransaction resolves the target pool, starts a backend transaction
// on it, and registers it under a fresh transaction id.
func (e *Engine) BeginTransaction(ctx context.Context, connectionID, database string, timeoutSecs int) (string, error) {
	pool, err := e.ResolvePool(ctx, connectionID, database)
	if err != nil {
		return "", err
	}
	defer e.ReleasePool(connectionID, database)
	return e.transactions.Begin(ctx, pool.DB(), connectionID, timeoutSecs)
}

// Commit commits an open transaction.
func (e *Engine) Commit(connectionID, transactionID string) error {
	return e.transactions.Commit(transactionID, connectionID)
}

// Rollback rolls back an open transaction.
func (e *Engine) Rollback(connectionID, transactionID string) error {
	return e.transactions.Rollback(transactionID, connectionID)
}

// ListTransactions returns metadata for every open transaction.
func (e *Engine) ListTransactions() []txregistry.Metadata {
	return e.transactions.ListAll()
}

// ListDatabases lists every database visible on connectionID's server.
func (e *Engine) ListDatabases(ctx context.Context, connectionID string) ([]schema.DatabaseRow, error) {
	cfg, err := e.registry.GetConfig(connectionID)
	if err != nil {
		return nil, err
	}
	pool, err := e.ResolvePool(ctx, connectionID, "")
	if err != nil {
		return nil, err
	}
	defer e.ReleasePool(connectionID, "")
	return schema.ListDatabases(ctx, cfg.Backend, pool.DB())
}

// ListTables lists the tables (and, if requested, views) visible through
// connectionID/database.
func (e *Engine) ListTables(ctx context.Context, connectionID, database, schemaName string, includeViews bool) ([]schema.TableInfo, error) {
	cfg, err := e.registry.GetConfig(connectionID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireDatabaseForSchemaTool(cfg.ServerLevel, database); err != nil {
		return nil, err
	}
	pool, err := e.ResolvePool(ctx, connectionID, database)
	if err != nil {
		return nil, err
	}
	defer e.ReleasePool(connectionID, database)
	return schema.ListTables(ctx, cfg.Backend, pool.DB(), schemaName, includeViews)
}

// DescribeTable returns one table's column schema.
func (e *Engine) DescribeTable(ctx context.Context, connectionID, database, table, schemaName string) (schema.TableSchema, error) {
	cfg, err := e.registry.GetConfig(connectionID)
	if err != nil {
		return schema.TableSchema{}, err
	}
	if err := guard.RequireDatabaseForSchemaTool(cfg.ServerLevel, database); err != nil {
		return schema.TableSchema{}, err
	}
	pool, err := e.ResolvePool(ctx, connectionID, database)
	if err != nil {
		return schema.TableSchema{}, err
	}
	defer e.ReleasePool(connectionID, database)
	return schema.DescribeTable(ctx, cfg.Backend, pool.DB(), table, schemaName)
}

// Shutdown closes every transaction sweeper, sub-pool manager, and
// top-level connection pool. It is safe to call once during graceful
// shutdown. It takes no context and puts no deadline on the close calls;
// it returns once every one of them has returned.
func (e *Engine) Shutdown() error {
	e.transactions.Close()

	e.mu.Lock()
	managers := make([]*dbpool.Manager, 0, len(e.managers))
	for _, m := range e.managers {
		managers = append(managers, m)
	}
	e.mu.Unlock()

	for _, m := range managers {
		if err := m.CloseAll(); err != nil {
			e.logger.Warn().Err(err).Msg("sqlengine: error closing a database pool manager during shutdown")
		}
	}
	return e.registry.CloseAll()
}
