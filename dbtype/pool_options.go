package dbtype

import "github.com/sqlbridge/dbmcp/dberr"

// PoolOptions carries the optional, per-connection pool tuning knobs from
// §3. Every field is a pointer so "unset" is distinguishable from "set to
// the same value as the default" — Effective* accessors apply the defaults.
type PoolOptions struct {
	MaxConnections               *uint32
	MinConnections               *uint32
	IdleTimeoutSecs              *uint64
	AcquireTimeoutSecs           *uint64
	TestBeforeAcquire            *bool
	DatabasePoolIdleTimeoutSecs  *uint64
	DatabasePoolCleanupIntervalSecs *uint64
}

// Defaults for PoolOptions, per §3. SQLite pools default MaxConnections to
// 1 rather than 10; EffectiveMaxConnections applies that override itself.
const (
	DefaultMaxConnections               uint32 = 10
	DefaultMaxConnectionsSQLite         uint32 = 1
	DefaultMinConnections               uint32 = 1
	DefaultIdleTimeoutSecs              uint64 = 600
	DefaultAcquireTimeoutSecs           uint64 = 30
	DefaultTestBeforeAcquire            bool   = true
	DefaultDatabasePoolIdleTimeoutSecs  uint64 = 600
	DefaultDatabasePoolCleanupInterval  uint64 = 60
)

// Validate enforces the §3 invariants: every present numeric is > 0, and if
// both min and max are present, min <= max.
func (o PoolOptions) Validate() error {
	for _, v := range []*uint32{o.MaxConnections, o.MinConnections} {
		if v != nil && *v == 0 {
			return dberr.InvalidInput("pool option must be greater than zero")
		}
	}
	for _, v := range []*uint64{o.IdleTimeoutSecs, o.AcquireTimeoutSecs, o.DatabasePoolIdleTimeoutSecs, o.DatabasePoolCleanupIntervalSecs} {
		if v != nil && *v == 0 {
			return dberr.InvalidInput("pool option must be greater than zero")
		}
	}
	if o.MinConnections != nil && o.MaxConnections != nil && *o.MinConnections > *o.MaxConnections {
		return dberr.InvalidInput("min_connections must be <= max_connections")
	}
	return nil
}

// EffectiveMaxConnections applies the default, taking the backend-specific
// SQLite default into account.
func (o PoolOptions) EffectiveMaxConnections(backend BackendKind) uint32 {
	if o.MaxConnections != nil {
		return *o.MaxConnections
	}
	if backend == BackendSQLite {
		return DefaultMaxConnectionsSQLite
	}
	return DefaultMaxConnections
}

// EffectiveMinConnections applies the default.
func (o PoolOptions) EffectiveMinConnections() uint32 {
	if o.MinConnections != nil {
		return *o.MinConnections
	}
	return DefaultMinConnections
}

// EffectiveIdleTimeoutSecs applies the default.
func (o PoolOptions) EffectiveIdleTimeoutSecs() uint64 {
	if o.IdleTimeoutSecs != nil {
		return *o.IdleTimeoutSecs
	}
	return DefaultIdleTimeoutSecs
}

// EffectiveAcquireTimeoutSecs applies the default.
func (o PoolOptions) EffectiveAcquireTimeoutSecs() uint64 {
	if o.AcquireTimeoutSecs != nil {
		return *o.AcquireTimeoutSecs
	}
	return DefaultAcquireTimeoutSecs
}

// EffectiveTestBeforeAcquire applies the default.
func (o PoolOptions) EffectiveTestBeforeAcquire() bool {
	if o.TestBeforeAcquire != nil {
		return *o.TestBeforeAcquire
	}
	return DefaultTestBeforeAcquire
}

// EffectiveDatabasePoolIdleTimeoutSecs applies the default.
func (o PoolOptions) EffectiveDatabasePoolIdleTimeoutSecs() uint64 {
	if o.DatabasePoolIdleTimeoutSecs != nil {
		return *o.DatabasePoolIdleTimeoutSecs
	}
	return DefaultDatabasePoolIdleTimeoutSecs
}

// EffectiveDatabasePoolCleanupIntervalSecs applies the default.
func (o PoolOptions) EffectiveDatabasePoolCleanupIntervalSecs() uint64 {
	if o.DatabasePoolCleanupIntervalSecs != nil {
		return *o.DatabasePoolCleanupIntervalSecs
	}
	return DefaultDatabasePoolCleanupInterval
}
