// Package registry implements the Connection Registry (C5): the top-level
// map of registered connection ids to open backend pools.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
	"github.com/sqlbridge/dbmcp/sqlengine/backend"
)

// ConnectionInfo is returned from Connect: everything about a newly
// registered connection except the connection string itself.
type ConnectionInfo struct {
	ID          string
	Backend     dbtype.BackendKind
	Writable    bool
	ServerLevel bool
	Database    string
}

// Summary is the ListConnections row shape. It never carries the
// connection string, per §4.5.
type Summary = ConnectionInfo

type entry struct {
	config dbtype.ConnectionConfig
	pool   backend.Backend
}

// Registry is the reader-writer-locked connection map. The zero value is
// not usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Connect opens cfg's backend pool, probes it with a single short SELECT,
// and stores it under cfg.ID. Pool creation happens with no lock held;
// only the final map insert is exclusive, and it re-checks for a racing
// duplicate id before committing.
func (r *Registry) Connect(ctx context.Context, cfg dbtype.ConnectionConfig) (ConnectionInfo, error) {
	if err := cfg.Validate(); err != nil {
		return ConnectionInfo{}, err
	}

	if r.Exists(cfg.ID) {
		return ConnectionInfo{}, dberr.InvalidInput(fmt.Sprintf("connection id %q is already registered", cfg.ID))
	}

	pool, err := backend.Open(ctx, cfg.Backend, cfg.ConnectionString, cfg.PoolOptions)
	if err != nil {
		return ConnectionInfo{}, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.PoolOptions.EffectiveAcquireTimeoutSecs())*time.Second)
	defer cancel()
	var probe int
	if err := pool.DB().QueryRowContext(probeCtx, "SELECT 1").Scan(&probe); err != nil {
		pool.Close()
		return ConnectionInfo{}, dberr.ConnectionWrap(err, "the connection opened but a test query failed")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[cfg.ID]; exists {
		pool.Close()
		return ConnectionInfo{}, dberr.InvalidInput(fmt.Sprintf("connection id %q is already registered", cfg.ID))
	}
	r.entries[cfg.ID] = &entry{config: cfg, pool: pool}
	return infoFor(cfg), nil
}

func infoFor(cfg dbtype.ConnectionConfig) ConnectionInfo {
	return ConnectionInfo{
		ID:          cfg.ID,
		Backend:     cfg.Backend,
		Writable:    cfg.Writable,
		ServerLevel: cfg.ServerLevel,
		Database:    cfg.Database,
	}
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, dberr.ConnectionNotFound(id)
	}
	return e, nil
}

// GetPool returns the open pool for id.
func (r *Registry) GetPool(id string) (backend.Backend, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.pool, nil
}

// GetConfig returns the stored ConnectionConfig for id, connection string
// included — callers outside the engine's trusted boundary should use
// ListConnections instead.
func (r *Registry) GetConfig(id string) (dbtype.ConnectionConfig, error) {
	e, err := r.lookup(id)
	if err != nil {
		return dbtype.ConnectionConfig{}, err
	}
	return e.config, nil
}

// IsWritable reports whether id's connection allows write operations.
func (r *Registry) IsWritable(id string) (bool, error) {
	e, err := r.lookup(id)
	if err != nil {
		return false, err
	}
	return e.config.Writable, nil
}

// Exists reports whether id is currently registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// ListConnections returns a Summary per registered connection, in no
// particular order. The connection string is never included.
func (r *Registry) ListConnections() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, infoFor(e.config))
	}
	return out
}

// CloseAll drains the registry and closes every pool. Pools are closed
// after the map lock is released, so a slow Close on one backend never
// blocks a concurrent lookup on another.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	drained := make([]*entry, 0, len(r.entries))
	for id, e := range r.entries {
		drained = append(drained, e)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	var firstErr error
	for _, e := range drained {
		if err := e.pool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
