// Package txregistry implements the Transaction Registry (C7): the
// reader-writer-locked map of opaque transaction ids to held backend
// transactions, their ownership, and their wall-clock budgets.
package txregistry

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
	"github.com/sqlbridge/dbmcp/sqlengine/executor"
)

// Transaction timeout bounds and default from §4.7.
const (
	DefaultTimeoutSecs = 60
	MinTimeoutSecs     = 1
	MaxTimeoutSecs     = 300
)

func effectiveTimeoutSecs(requested int) int {
	switch {
	case requested <= 0:
		return DefaultTimeoutSecs
	case requested < MinTimeoutSecs:
		return MinTimeoutSecs
	case requested > MaxTimeoutSecs:
		return MaxTimeoutSecs
	default:
		return requested
	}
}

// ActiveTransaction is the §3 ActiveTransaction value. handle is always a
// *sql.Tx: every backend is unified on database/sql (see
// sqlengine/backend), so there is no three-way handle union to model.
type ActiveTransaction struct {
	ID           string
	ConnectionID string
	handle       *sql.Tx
	CreatedAt    time.Time
	TimeoutSecs  int
	consumed     bool
}

func (e *ActiveTransaction) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > time.Duration(e.TimeoutSecs)*time.Second
}

// Metadata is the ListAll row shape.
type Metadata struct {
	ID           string
	ConnectionID string
	StartedAt    time.Time
	ElapsedSecs  float64
	TimeoutSecs  int
}

// Registry is the transaction map plus its expiration sweeper.
type Registry struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	entries map[string]*ActiveTransaction

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// New constructs a Registry and starts its 5-second expiration sweeper.
func New(logger zerolog.Logger) *Registry {
	r := &Registry{logger: logger, entries: make(map[string]*ActiveTransaction)}
	ctx, cancel := context.WithCancel(context.Background())
	r.sweepCancel = cancel
	r.sweepDone = make(chan struct{})
	go r.runSweeper(ctx)
	return r
}

func newTransactionID() string {
	return "tx_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Begin starts a transaction on db, clamps timeoutSecs into [1, 300]
// (default 60), and stores it under a freshly generated id.
func (r *Registry) Begin(ctx context.Context, db *sql.DB, connectionID string, timeoutSecs int) (string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", dberr.ConnectionWrap(err, "check that the connection is still open")
	}
	id := newTransactionID()
	r.mu.Lock()
	r.entries[id] = &ActiveTransaction{
		ID:           id,
		ConnectionID: connectionID,
		handle:       tx,
		CreatedAt:    time.Now(),
		TimeoutSecs:  effectiveTimeoutSecs(timeoutSecs),
	}
	r.mu.Unlock()
	return id, nil
}

// validateLocked checks the §4.7 validate rule. Callers must hold r.mu
// (read or write) across the call and for as long as they use the
// returned handle.
func (r *Registry) validateLocked(id, connectionID string) (*ActiveTransaction, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, dberr.Transaction("not found", id)
	}
	if e.ConnectionID != connectionID {
		return nil, dberr.Transaction("belongs to a different connection", id)
	}
	if e.consumed {
		return nil, dberr.Transaction("already consumed", id)
	}
	if e.expired(time.Now()) {
		return nil, dberr.Transaction("expired", id)
	}
	return e, nil
}

// remainingBudget returns how much of e's timeout budget is left. The
// write and query paths use this as the per-call timeout so a smaller
// generic default never cuts a call off before the transaction's own
// deadline would.
func (e *ActiveTransaction) remainingBudget(now time.Time) time.Duration {
	remaining := time.Duration(e.TimeoutSecs)*time.Second - now.Sub(e.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExecuteWrite validates id/connectionID, binds and runs req against the
// held transaction, and returns the write result. r.mu is held for the
// full call, including the executor round trip: a *sql.Tx is not
// concurrent-safe, so two callers racing on the same transaction id must
// be totally ordered rather than merely serialized around the map lookup.
// This is the one place in the engine where a lock is held across I/O.
func (r *Registry) ExecuteWrite(ctx context.Context, id, connectionID string, backendKind dbtype.BackendKind, req executor.Request) (executor.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.validateLocked(id, connectionID)
	if err != nil {
		return executor.Result{}, err
	}
	req.TimeoutSecs = int(e.remainingBudget(time.Now()).Seconds())
	return executor.ExecuteWrite(ctx, e.handle, backendKind, req)
}

// ExecuteQuery validates id/connectionID, binds and runs req against the
// held transaction, and returns the read result under the same row-limit
// rule as ExecuteQuery outside a transaction. r.mu is held for the full
// call; see ExecuteWrite's comment for why.
func (r *Registry) ExecuteQuery(ctx context.Context, id, connectionID string, backendKind dbtype.BackendKind, req executor.Request) (executor.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.validateLocked(id, connectionID)
	if err != nil {
		return executor.Result{}, err
	}
	req.TimeoutSecs = int(e.remainingBudget(time.Now()).Seconds())
	return executor.ExecuteQuery(ctx, e.handle, backendKind, req)
}

// finish implements the shared Commit/Rollback shape from §4.7: remove
// the entry atomically, verify ownership, and only then run op on the
// held handle. A wrong-owner call re-inserts the entry before returning.
func (r *Registry) finish(id, connectionID string, op func(*sql.Tx) error) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return dberr.Transaction("not found", id)
	}
	delete(r.entries, id)
	if e.ConnectionID != connectionID {
		r.entries[id] = e
		r.mu.Unlock()
		return dberr.Transaction("belongs to a different connection", id)
	}
	e.consumed = true
	r.mu.Unlock()

	if err := op(e.handle); err != nil {
		return dberr.QueryWrap(err, "", "")
	}
	return nil
}

// Commit removes and commits the transaction.
func (r *Registry) Commit(id, connectionID string) error {
	return r.finish(id, connectionID, (*sql.Tx).Commit)
}

// Rollback removes and rolls back the transaction.
func (r *Registry) Rollback(id, connectionID string) error {
	return r.finish(id, connectionID, (*sql.Tx).Rollback)
}

// ListAll returns metadata for every open transaction; it never consumes
// an entry.
func (r *Registry) ListAll() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	out := make([]Metadata, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, Metadata{
			ID:           e.ID,
			ConnectionID: e.ConnectionID,
			StartedAt:    e.CreatedAt.UTC(),
			ElapsedSecs:  now.Sub(e.CreatedAt).Seconds(),
			TimeoutSecs:  e.TimeoutSecs,
		})
	}
	return out
}

// Count returns the number of open transactions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close stops the expiration sweeper. Any transactions still open at this
// point are left exactly as they are; callers that want a final sweep
// should let a tick fire before calling Close.
func (r *Registry) Close() {
	r.sweepCancel()
	<-r.sweepDone
}

func (r *Registry) runSweeper(ctx context.Context) {
	defer close(r.sweepDone)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepExpired()
		}
	}
}

func (r *Registry) sweepExpired() {
	now := time.Now()
	r.mu.Lock()
	expired := make([]*ActiveTransaction, 0)
	for id, e := range r.entries {
		if e.expired(now) {
			expired = append(expired, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		if err := e.handle.Rollback(); err != nil {
			r.logger.Warn().Err(err).Str("transaction_id", e.ID).Msg("txregistry: best-effort rollback of expired transaction failed")
		}
	}
}
