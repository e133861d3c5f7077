// Package dbpool implements the Database Pool Manager (C6): one sub-pool
// per (server-level connection, DatabaseTarget), created lazily and swept
// when idle.
package dbpool

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
	"github.com/sqlbridge/dbmcp/sqlengine/backend"
)

// Config is the manager's per-connection configuration: the base URL and
// backend of the owning server-level connection, and the pool/idle tuning
// to apply to every sub-pool it creates.
type Config struct {
	BaseURL     string
	Backend     dbtype.BackendKind
	PoolOptions dbtype.PoolOptions
	Logger      zerolog.Logger
}

// entry is the §3 PoolEntry: a lazily created sub-pool plus its liveness
// bookkeeping. lastAccessed is guarded by mu; activeCount is atomic so
// GetOrCreate/Release never need the map lock just to bump a counter.
type entry struct {
	pool         backend.Backend
	target       dbtype.DatabaseTarget
	createdAt    time.Time
	mu           sync.Mutex
	lastAccessed time.Time
	activeCount  int64
}

func (e *entry) touch() {
	e.mu.Lock()
	e.lastAccessed = time.Now()
	e.mu.Unlock()
}

func (e *entry) idleSince(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.Sub(e.lastAccessed)
}

// openFunc creates a backend pool for one sub-pool URL. It exists as a
// field (defaulting to backend.Open) rather than a direct call so tests
// can substitute a fake pool instead of dialing a real server.
type openFunc func(ctx context.Context, kind dbtype.BackendKind, connStr string, opts dbtype.PoolOptions) (backend.Backend, error)

// Manager owns every sub-pool for one server-level connection.
type Manager struct {
	cfg     Config
	open    openFunc
	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// New constructs a Manager and starts its idle sweeper. Callers must call
// CloseAll when the owning connection is torn down.
func New(cfg Config) *Manager {
	return newManager(cfg, backend.Open)
}

func newManager(cfg Config, open openFunc) *Manager {
	m := &Manager{cfg: cfg, open: open, entries: make(map[string]*entry)}
	ctx, cancel := context.WithCancel(context.Background())
	m.sweepCancel = cancel
	m.sweepDone = make(chan struct{})
	interval := time.Duration(cfg.PoolOptions.EffectiveDatabasePoolCleanupIntervalSecs()) * time.Second
	go m.runSweeper(ctx, interval)
	return m
}

// GetOrCreate resolves the sub-pool for target, creating it on first use.
// Concurrent callers racing on the same target single-flight into one
// creation; a failed creation is not cached, so the next call retries.
func (m *Manager) GetOrCreate(ctx context.Context, target dbtype.DatabaseTarget) (backend.Backend, error) {
	if m.cfg.Backend == dbtype.BackendSQLite {
		return nil, dberr.InvalidInput("server-level sub-pools are not supported for sqlite")
	}

	key := target.Key()

	if e := m.lookup(key); e != nil {
		atomic.AddInt64(&e.activeCount, 1)
		e.touch()
		return e.pool, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		if e := m.lookup(key); e != nil {
			return e, nil
		}
		rawURL, err := rewriteURL(m.cfg.BaseURL, target)
		if err != nil {
			return nil, dberr.InvalidInput("could not derive sub-pool URL: " + err.Error())
		}
		pool, err := m.open(ctx, m.cfg.Backend, rawURL, m.cfg.PoolOptions)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		e := &entry{pool: pool, target: target, createdAt: now, lastAccessed: now}
		m.mu.Lock()
		m.entries[key] = e
		m.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}

	e := v.(*entry)
	atomic.AddInt64(&e.activeCount, 1)
	e.touch()
	return e.pool, nil
}

func (m *Manager) lookup(key string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[key]
}

// Release decrements target's active_count, saturating at 0. An underflow
// (more releases than acquires) signals a caller bug; it is logged, never
// panicked.
func (m *Manager) Release(target dbtype.DatabaseTarget) {
	e := m.lookup(target.Key())
	if e == nil {
		return
	}
	for {
		cur := atomic.LoadInt64(&e.activeCount)
		if cur <= 0 {
			m.cfg.Logger.Warn().Str("target", target.Key()).Msg("dbpool: Release called with active_count already at 0")
			return
		}
		if atomic.CompareAndSwapInt64(&e.activeCount, cur, cur-1) {
			return
		}
	}
}

// CloseAll stops the sweeper, drains the map under exclusive lock, then
// closes every sub-pool after the lock is released.
func (m *Manager) CloseAll() error {
	m.sweepCancel()
	<-m.sweepDone

	m.mu.Lock()
	drained := make([]*entry, 0, len(m.entries))
	for key, e := range m.entries {
		drained = append(drained, e)
		delete(m.entries, key)
	}
	m.mu.Unlock()

	var firstErr error
	for _, e := range drained {
		if err := e.pool.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runSweeper holds no reference back to anything that would outlive the
// manager itself; it simply exits once ctx is cancelled by CloseAll, which
// is what prevents the sweeper goroutine from pinning the manager forever.
func (m *Manager) runSweeper(ctx context.Context, interval time.Duration) {
	defer close(m.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepOnce()
		}
	}
}

func (m *Manager) sweepOnce() {
	idleTimeout := time.Duration(m.cfg.PoolOptions.EffectiveDatabasePoolIdleTimeoutSecs()) * time.Second
	now := time.Now()

	m.mu.RLock()
	candidates := make([]string, 0)
	for key, e := range m.entries {
		if atomic.LoadInt64(&e.activeCount) == 0 && e.idleSince(now) > idleTimeout {
			candidates = append(candidates, key)
		}
	}
	m.mu.RUnlock()

	removed := make([]*entry, 0, len(candidates))
	for _, key := range candidates {
		m.mu.Lock()
		e, ok := m.entries[key]
		if ok && atomic.LoadInt64(&e.activeCount) == 0 && e.idleSince(time.Now()) > idleTimeout {
			delete(m.entries, key)
			removed = append(removed, e)
		}
		m.mu.Unlock()
	}

	for _, e := range removed {
		if err := e.pool.Close(); err != nil {
			m.cfg.Logger.Warn().Err(err).Str("target", e.target.Key()).Msg("dbpool: error closing idle sub-pool")
		}
	}
}

// rewriteURL returns base with its path replaced by "/<database>" for a
// named target, preserving the query string untouched. The Server target
// returns base verbatim.
func rewriteURL(base string, target dbtype.DatabaseTarget) (string, error) {
	if target.IsServer() {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/" + target.Name()
	return u.String(), nil
}
