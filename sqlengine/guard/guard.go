// Package guard implements the Guard Layer (C8): the policy gate between
// a validated tool call and the executor, enforcing the read-only/write
// split, the writability flag, and the dangerous-operation confirmation
// rule.
package guard

import (
	"fmt"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
	"github.com/sqlbridge/dbmcp/sqlengine/analyzer"
)

// CheckQueryPath enforces the query-tool rule: sql must classify as
// read-only. A non-read-only statement is refused with a message that
// points the caller at the right tool for its category.
func CheckQueryPath(sql string) error {
	c, err := analyzer.Classify(sql)
	if err != nil {
		return err
	}
	if c.Category == analyzer.CategoryReadOnly {
		return nil
	}
	return dberr.Permission("query", redirectReason(c.Category))
}

func redirectReason(c analyzer.Category) string {
	switch c {
	case analyzer.CategoryWriteDML, analyzer.CategoryDDL:
		return "this statement modifies data or schema; use the execute tool instead of query"
	case analyzer.CategoryTransactionCtl:
		return "this statement controls a transaction; use begin_transaction/commit/rollback instead of query"
	case analyzer.CategoryProcedureCall:
		return "this statement calls a stored procedure; use the execute tool instead of query"
	default:
		return "this statement is not recognized as read-only; use the execute tool if it modifies data"
	}
}

// ExecuteCheck is the outcome of CheckExecutePath: whether the call may
// proceed and, if a dangerous operation was explicitly allowed, the
// warning to attach to the result.
type ExecuteCheck struct {
	Warning string
}

// CheckExecutePath enforces the execute-tool rule from §4.8: the
// connection must be writable, and a dangerous operation must be
// explicitly acknowledged via dangerousOperationAllowed.
func CheckExecutePath(sql string, writable bool, dangerousOperationAllowed bool) (ExecuteCheck, error) {
	if !writable {
		return ExecuteCheck{}, dberr.Permission("write operation", "Connection is not writable")
	}

	kind, detail, err := analyzer.CheckDangerous(sql)
	if err != nil {
		return ExecuteCheck{}, err
	}
	if kind == dbtype.DangerousNone {
		return ExecuteCheck{}, nil
	}
	if !dangerousOperationAllowed {
		return ExecuteCheck{}, dberr.Permission(kind.Label(), kind.Reason())
	}
	warning := fmt.Sprintf("dangerous operation acknowledged: %s (%s)", kind.Label(), kind.Reason())
	if detail != "" {
		warning = fmt.Sprintf("%s (%s)", warning, detail)
	}
	return ExecuteCheck{Warning: warning}, nil
}

// RequireDatabaseForSchemaTool enforces §4.8's server-level schema-tool
// rule: list_tables/describe_table on a server-level connection must
// name a database.
func RequireDatabaseForSchemaTool(serverLevel bool, database string) error {
	if serverLevel && database == "" {
		return dberr.InvalidInput("this connection is server-level; call list_databases and pass database to this tool")
	}
	return nil
}
