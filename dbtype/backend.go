// Package dbtype holds the value types shared across the SQL access engine:
// the backend enum, the neutral parameter sum type, dangerous-operation
// kinds, and the database-target used by the sub-pool manager. Keeping
// these in one leaf package avoids import cycles between analyzer, params,
// registry, and dbpool.
package dbtype

import "strings"

// BackendKind is the closed set of database engines the bridge supports.
type BackendKind int

const (
	BackendUnknown BackendKind = iota
	BackendMySQL
	BackendPostgres
	BackendSQLite
)

// String renders the backend the way it appears in logs and error messages.
func (b BackendKind) String() string {
	switch b {
	case BackendMySQL:
		return "mysql"
	case BackendPostgres:
		return "postgres"
	case BackendSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// BackendFromScheme derives a BackendKind from a connection URL scheme.
// Recognized schemes: postgres, postgresql, mysql, mariadb, sqlite (with or
// without a trailing ":..." form such as "sqlite::memory:"). An unrecognized
// scheme yields BackendUnknown.
func BackendFromScheme(scheme string) BackendKind {
	s := strings.ToLower(scheme)
	switch {
	case s == "postgres" || s == "postgresql":
		return BackendPostgres
	case s == "mysql" || s == "mariadb":
		return BackendMySQL
	case s == "sqlite" || strings.HasPrefix(s, "sqlite:"):
		return BackendSQLite
	default:
		return BackendUnknown
	}
}
