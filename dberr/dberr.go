// Package dberr defines the error taxonomy shared by every component of the
// SQL access engine. Every operation that can fail returns a *dberr.Error so
// the tool dispatcher can make retry and presentation decisions without
// string-matching messages.
package dberr

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind identifies one of the error categories from the engine's error
// taxonomy. Kinds are not Go error types themselves — a single *Error
// carries a Kind plus the fields relevant to it.
type Kind int

const (
	// KindConnection covers connect, protocol, TLS, and pool-closed failures.
	KindConnection Kind = iota
	// KindQuery covers driver-reported SQL errors.
	KindQuery
	// KindPermission covers the read-only gate, writability gate, and the
	// dangerous-operation gate.
	KindPermission
	// KindSchema covers unknown column/type errors discovered during decode.
	KindSchema
	// KindTransaction covers not-found, wrong-owner, expired, and
	// already-consumed transaction states.
	KindTransaction
	// KindTimeout covers wall-clock expiry of a query, write, or pool
	// acquire.
	KindTimeout
	// KindConnectionNotFound means the connection id is not registered.
	KindConnectionNotFound
	// KindDatabaseNotFound means a specific requested database does not
	// exist on the server.
	KindDatabaseNotFound
	// KindInvalidInput covers validation failures: empty SQL, a malformed
	// identifier, a bad URL, SQLite used server-level, a reserved id.
	KindInvalidInput
	// KindInternal covers decode failures and unexpected driver behavior
	// that isn't one of the above.
	KindInternal
)

// String renders the Kind the way it would appear in a log field.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindQuery:
		return "query"
	case KindPermission:
		return "permission"
	case KindSchema:
		return "schema"
	case KindTransaction:
		return "transaction"
	case KindTimeout:
		return "timeout"
	case KindConnectionNotFound:
		return "connection_not_found"
	case KindDatabaseNotFound:
		return "database_not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across the engine. Fields that
// don't apply to a given Kind are left zero.
type Error struct {
	Kind           Kind
	Message        string
	Suggestion     string
	SQLState       string
	Operation      string
	Reason         string
	Object         string
	TransactionID  string
	ConnectionID   string
	Database       string
	ElapsedSecs    float64
	Err            error // wrapped driver/parse error, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConnection:
		return fmt.Sprintf("connection failed: %s", e.Message)
	case KindQuery:
		return fmt.Sprintf("query failed: %s", e.Message)
	case KindPermission:
		return fmt.Sprintf("permission denied: %s - %s", e.Operation, e.Reason)
	case KindSchema:
		return fmt.Sprintf("schema error: %s (object: %s)", e.Message, e.Object)
	case KindTransaction:
		return fmt.Sprintf("transaction error: %s (transaction: %s)", e.Message, e.TransactionID)
	case KindTimeout:
		return fmt.Sprintf("timeout: %s exceeded %.3fs", e.Operation, e.ElapsedSecs)
	case KindConnectionNotFound:
		return fmt.Sprintf("connection not found: %s", e.ConnectionID)
	case KindDatabaseNotFound:
		return fmt.Sprintf("database not found: %s", e.Database)
	case KindInvalidInput:
		return fmt.Sprintf("invalid input: %s", e.Message)
	case KindInternal:
		return fmt.Sprintf("internal error: %s", e.Message)
	default:
		return e.Message
	}
}

// Unwrap exposes the wrapped driver/parse error, if any, to errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may reasonably retry the call that
// produced this error. Only Connection and Timeout are retryable; every
// other kind is fatal to the current call.
func (e *Error) Retryable() bool {
	return e.Kind == KindConnection || e.Kind == KindTimeout
}

// Connection builds a KindConnection error with an actionable suggestion.
func Connection(message, suggestion string) *Error {
	return &Error{Kind: KindConnection, Message: message, Suggestion: suggestion}
}

// ConnectionWrap builds a KindConnection error that wraps a driver error.
func ConnectionWrap(err error, suggestion string) *Error {
	return &Error{Kind: KindConnection, Message: err.Error(), Suggestion: suggestion, Err: err}
}

// Query builds a KindQuery error. sqlState may be empty when the driver
// doesn't report one.
func Query(message, sqlState, suggestion string) *Error {
	return &Error{Kind: KindQuery, Message: message, SQLState: sqlState, Suggestion: suggestion}
}

// QueryWrap builds a KindQuery error that wraps a driver error.
func QueryWrap(err error, sqlState, suggestion string) *Error {
	return &Error{Kind: KindQuery, Message: err.Error(), SQLState: sqlState, Suggestion: suggestion, Err: err}
}

// Permission builds a KindPermission error.
func Permission(operation, reason string) *Error {
	return &Error{Kind: KindPermission, Operation: operation, Reason: reason}
}

// Schema builds a KindSchema error.
func Schema(message, object string) *Error {
	return &Error{Kind: KindSchema, Message: message, Object: object}
}

// Transaction builds a KindTransaction error.
func Transaction(message, transactionID string) *Error {
	return &Error{Kind: KindTransaction, Message: message, TransactionID: transactionID}
}

// Timeout builds a KindTimeout error.
func Timeout(operation string, elapsedSecs float64) *Error {
	return &Error{Kind: KindTimeout, Operation: operation, ElapsedSecs: elapsedSecs}
}

// ConnectionNotFound builds a KindConnectionNotFound error.
func ConnectionNotFound(connectionID string) *Error {
	return &Error{Kind: KindConnectionNotFound, ConnectionID: connectionID}
}

// DatabaseNotFound builds a KindDatabaseNotFound error.
func DatabaseNotFound(database string) *Error {
	return &Error{Kind: KindDatabaseNotFound, Database: database}
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// Internal builds a KindInternal error.
func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// InternalWrap builds a KindInternal error that wraps an unexpected error.
func InternalWrap(err error) *Error {
	return &Error{Kind: KindInternal, Message: err.Error(), Err: err}
}

// As is a small convenience over errors.As for the common case of checking
// whether an error (possibly wrapped) is one of ours.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// credentialSegment matches the userinfo segment of a connection URL
// ("user:password@") so it can be masked before an error message or log
// line is ever constructed.
var credentialSegment = regexp.MustCompile(`://([^:/@\s]+):([^@/\s]*)@`)

// MaskConnectionString replaces the password segment of a connection URL
// between ":" and "@" with "****". It is idempotent and safe to call on
// strings that contain no credentials.
func MaskConnectionString(s string) string {
	return credentialSegment.ReplaceAllString(s, "://$1:****@")
}
