// Package analyzer implements the SQL Analyzer (C1): statement
// classification and dangerous-operation detection, never by keyword
// matching on raw text.
//
// The statement grammar is github.com/xwb1989/sqlparser, a generic,
// MySQL-flavored SQL parser. Classification and the DELETE/UPDATE
// without WHERE checks run on its AST. It does not model every clause of
// every backend's dialect (notably: standalone DROP DATABASE/DROP INDEX,
// and per-column ALTER TABLE operations), so the other five dangerous
// shapes (DROP DATABASE/SCHEMA, DROP TABLE, DROP INDEX, TRUNCATE, ALTER
// TABLE ... DROP COLUMN) are recognized by scanning the statement's own
// leading keywords with string and comment literals blanked out first —
// never by matching against the raw SQL, which would be bypassable by a
// literal containing the keyword. See DESIGN.md for the rationale.
package analyzer

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/sqlbridge/dbmcp/dberr"
)

// Category is the coarse classification of a statement (or a uniform batch
// of statements) returned by Classify.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryReadOnly
	CategoryWriteDML
	CategoryDDL
	CategoryTransactionCtl
	CategoryProcedureCall
	CategoryAdmin
)

func (c Category) String() string {
	switch c {
	case CategoryReadOnly:
		return "read_only"
	case CategoryWriteDML:
		return "write_dml"
	case CategoryDDL:
		return "ddl"
	case CategoryTransactionCtl:
		return "transaction_ctl"
	case CategoryProcedureCall:
		return "procedure_call"
	case CategoryAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Classification is the result of Classify: the batch-level category plus a
// human label describing the first statement, for use in Permission error
// messages.
type Classification struct {
	Category Category
	Label    string
}

// Classify parses sql (which may contain a ";"-separated batch) and
// classifies it. If any statement in the batch falls into a different
// category than the others, the batch classifies as CategoryUnknown so no
// permitted-category check downstream can mistake it for a single uniform
// kind. An empty or whitespace-only input, or one with zero statements, is
// rejected as InvalidInput. A statement the grammar cannot parse is
// rejected as InvalidInput carrying the parser's message.
func Classify(sql string) (Classification, error) {
	pieces, err := splitStatements(sql)
	if err != nil {
		return Classification{}, dberr.InvalidInput("failed to split SQL into statements: " + err.Error())
	}
	if len(pieces) == 0 {
		return Classification{}, dberr.InvalidInput("empty SQL statement")
	}

	var batch Classification
	for i, piece := range pieces {
		cat, label, err := classifyOne(piece)
		if err != nil {
			return Classification{}, err
		}
		if i == 0 {
			batch = Classification{Category: cat, Label: label}
			continue
		}
		if cat != batch.Category {
			batch.Category = CategoryUnknown
		}
	}
	return batch, nil
}

// classifyOne classifies a single statement, peeling off an EXPLAIN,
// DESCRIBE/DESC, or CALL prefix the underlying grammar doesn't model in
// every dialect before handing the remainder to the real parser.
func classifyOne(sql string) (Category, string, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return CategoryUnknown, "", dberr.InvalidInput("empty SQL statement")
	}

	if inner, ok := peelExplain(trimmed); ok {
		innerCat, innerLabel, err := classifyOne(inner)
		if err != nil {
			return CategoryUnknown, "", err
		}
		// EXPLAIN of anything read-only or write-DML classifies by the
		// inner statement, per spec; EXPLAIN of DDL/admin/txn control is
		// vanishingly rare and simply inherits the inner category too.
		return innerCat, "EXPLAIN " + innerLabel, nil
	}

	if label, ok := peelDescribe(trimmed); ok {
		return CategoryReadOnly, label, nil
	}

	if isCallStatement(trimmed) {
		return CategoryProcedureCall, "CALL", nil
	}

	stmt, err := sqlparser.Parse(trimmed)
	if err != nil {
		return CategoryUnknown, "", dberr.InvalidInput("SQL parse error: " + err.Error())
	}

	return categorizeStatement(stmt)
}

func categorizeStatement(stmt sqlparser.Statement) (Category, string, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return CategoryReadOnly, "SELECT", nil
	case *sqlparser.Union:
		return CategoryReadOnly, "SELECT (union)", nil
	case *sqlparser.Show:
		return CategoryReadOnly, "SHOW " + s.Type, nil
	case *sqlparser.OtherRead:
		return CategoryReadOnly, "OTHER READ", nil
	case *sqlparser.Insert:
		label := "INSERT"
		if strings.EqualFold(s.Action, "replace") {
			label = "REPLACE"
		}
		return CategoryWriteDML, label, nil
	case *sqlparser.Update:
		return CategoryWriteDML, "UPDATE", nil
	case *sqlparser.Delete:
		return CategoryWriteDML, "DELETE", nil
	case *sqlparser.DDL:
		return CategoryDDL, strings.ToUpper(s.Action), nil
	case *sqlparser.Set:
		return CategoryAdmin, "SET", nil
	case *sqlparser.Begin:
		return CategoryTransactionCtl, "BEGIN", nil
	case *sqlparser.Commit:
		return CategoryTransactionCtl, "COMMIT", nil
	case *sqlparser.Rollback:
		return CategoryTransactionCtl, "ROLLBACK", nil
	case *sqlparser.OtherAdmin:
		return CategoryAdmin, "OTHER ADMIN", nil
	default:
		return CategoryUnknown, "UNKNOWN", nil
	}
}

// splitStatements breaks a ";"-separated batch into individual statement
// texts using the grammar's own tokenizer, so semicolons inside string or
// identifier literals never cause a spurious split.
func splitStatements(sql string) ([]string, error) {
	pieces, err := sqlparser.SplitStatementToPieces(sql)
	if err != nil {
		return nil, err
	}
	out := pieces[:0]
	for _, p := range pieces {
		if strings.TrimSpace(stripLiterals(p)) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
