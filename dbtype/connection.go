package dbtype

import (
	"regexp"

	"github.com/sqlbridge/dbmcp/dberr"
)

var connectionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ConnectionConfig is the §3 ConnectionConfig value: everything the
// Connection Registry needs to open and describe one top-level connection.
// ConnectionString is the raw, secret-bearing DSN; it is never surfaced
// through ListConnections.
type ConnectionConfig struct {
	ID               string
	Backend          BackendKind
	ConnectionString string
	Writable         bool
	ServerLevel      bool
	Database         string
	PoolOptions      PoolOptions
}

// Validate enforces the §3 ConnectionConfig invariants: id is non-empty,
// matches [A-Za-z0-9_-]+, and ServerLevel holds iff there is no
// database segment and the backend is not SQLite (SQLite always names a
// file, never a bare server). The reserved word "default" is not checked
// here: config.ParseConnectionEntry rejects it as an explicit id and
// derives it itself for a URL that names no database.
func (c ConnectionConfig) Validate() error {
	if c.ID == "" {
		return dberr.InvalidInput("connection id must not be empty")
	}
	if !connectionIDPattern.MatchString(c.ID) {
		return dberr.InvalidInput("connection id must match [A-Za-z0-9_-]+")
	}
	if err := c.PoolOptions.Validate(); err != nil {
		return err
	}
	wantServerLevel := c.Database == "" && c.Backend != BackendSQLite
	if c.ServerLevel != wantServerLevel {
		return dberr.InvalidInput("server_level must hold iff no database is set and the backend is not sqlite")
	}
	return nil
}
