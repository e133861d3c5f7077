package config

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

// poolOptionKeys are the query parameters extracted and stripped from a
// connection URL before the remainder is handed to the driver. Keys are
// matched case-insensitively.
var poolOptionKeys = map[string]bool{
	"writable":                       true,
	"max_connections":                true,
	"min_connections":                true,
	"idle_timeout":                   true,
	"acquire_timeout":                true,
	"test_before_acquire":            true,
	"database_pool_idle_timeout":     true,
	"database_pool_cleanup_interval": true,
}

// ParseConnectionEntry parses one --database entry: either a bare
// connection URL, or "id=url" naming the connection explicitly. It
// implements the pool-option extraction, id derivation, and writable-flag
// rules of the connection URL grammar.
func ParseConnectionEntry(entry string) (dbtype.ConnectionConfig, error) {
	schemePos := strings.Index(entry, "://")
	prefix := entry
	if schemePos >= 0 {
		prefix = entry[:schemePos]
	}

	var explicitName string
	rest := entry
	if eq := strings.IndexByte(prefix, '='); eq >= 0 {
		explicitName = prefix[:eq]
		rest = entry[eq+1:]
	}

	if explicitName != "" && strings.EqualFold(strings.TrimSpace(explicitName), "default") {
		return dbtype.ConnectionConfig{}, dberr.InvalidInput(`connection id "default" is reserved and cannot be used explicitly`)
	}

	u, err := url.Parse(rest)
	if err != nil {
		return dbtype.ConnectionConfig{}, dberr.InvalidInput("invalid connection URL: " + dberr.MaskConnectionString(err.Error()))
	}

	backendKind := dbtype.BackendFromScheme(u.Scheme)
	if backendKind == dbtype.BackendUnknown {
		return dbtype.ConnectionConfig{}, dberr.InvalidInput("unrecognized connection scheme: " + u.Scheme)
	}

	opts, writable := extractPoolOptions(u)
	database := databaseName(u)
	serverLevel := database == ""

	if serverLevel && backendKind == dbtype.BackendSQLite {
		return dbtype.ConnectionConfig{}, dberr.InvalidInput("sqlite requires a database file path; server-level connections are only supported for mysql and postgres")
	}

	id := explicitName
	if id == "" {
		id = database
	}
	if id == "" {
		id = "default"
	}

	cfg := dbtype.ConnectionConfig{
		ID:               id,
		Backend:          backendKind,
		ConnectionString: u.String(),
		Writable:         writable,
		ServerLevel:      serverLevel,
		Database:         database,
		PoolOptions:      opts,
	}
	if err := cfg.Validate(); err != nil {
		return dbtype.ConnectionConfig{}, err
	}
	return cfg, nil
}

// extractPoolOptions removes the recognized pool-tuning query parameters
// from u in place, applying their defaults/validation rules, and returns
// them plus the writable flag. Unknown parameters, and their
// percent-encoding, are left untouched on u.
func extractPoolOptions(u *url.URL) (dbtype.PoolOptions, bool) {
	q := u.Query()
	kept := url.Values{}
	raw := make(map[string]string)

	for key, values := range q {
		if len(values) == 0 {
			continue
		}
		lower := strings.ToLower(key)
		if poolOptionKeys[lower] {
			raw[lower] = values[len(values)-1]
			continue
		}
		kept[key] = values
	}
	if len(kept) == 0 {
		u.RawQuery = ""
	} else {
		u.RawQuery = kept.Encode()
	}

	writable := parseBoolLenient(raw["writable"])

	var opts dbtype.PoolOptions
	if v, ok := parseUint32(raw["max_connections"]); ok {
		opts.MaxConnections = &v
	}
	if v, ok := parseUint32(raw["min_connections"]); ok {
		opts.MinConnections = &v
	}
	if v, ok := parseUint64(raw["idle_timeout"]); ok {
		opts.IdleTimeoutSecs = &v
	}
	if v, ok := parseUint64(raw["acquire_timeout"]); ok {
		opts.AcquireTimeoutSecs = &v
	}
	if v, ok := parseBoolStrict(raw["test_before_acquire"]); ok {
		opts.TestBeforeAcquire = &v
	}
	if v, ok := parseUint64(raw["database_pool_idle_timeout"]); ok {
		opts.DatabasePoolIdleTimeoutSecs = &v
	}
	if v, ok := parseUint64(raw["database_pool_cleanup_interval"]); ok {
		opts.DatabasePoolCleanupIntervalSecs = &v
	}
	return opts, writable
}

// databaseName extracts the last path segment of u, trimming a trailing
// .sqlite/.db extension, or "" if the path names no database.
func databaseName(u *url.URL) string {
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segs := strings.Split(path, "/")
	name := segs[len(segs)-1]
	name = strings.TrimSuffix(name, ".sqlite")
	name = strings.TrimSuffix(name, ".db")
	return name
}

// parseBoolLenient treats any case-insensitive "true" as true; anything
// else, including absence, is false.
func parseBoolLenient(raw string) bool {
	return strings.EqualFold(raw, "true")
}

// parseBoolStrict returns (value, true) only for a recognized boolean
// spelling; an unrecognized value is silently ignored, matching the
// grammar's "invalid booleans are ignored" rule.
func parseBoolStrict(raw string) (bool, bool) {
	if raw == "" {
		return false, false
	}
	if strings.EqualFold(raw, "true") {
		return true, true
	}
	if strings.EqualFold(raw, "false") {
		return false, true
	}
	return false, false
}

func parseUint32(raw string) (uint32, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func parseUint64(raw string) (uint64, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
