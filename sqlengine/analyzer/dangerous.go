package analyzer

import (
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

// CheckDangerous scans sql (a possibly ";"-separated batch) for the first
// of the seven destructive shapes the guard layer refuses unless the
// caller sets dangerous_operation_allowed, in statement order.
//
// DELETE/UPDATE without a WHERE clause are confirmed against the real
// statement AST. DROP DATABASE/SCHEMA, DROP TABLE, DROP INDEX, TRUNCATE,
// and ALTER TABLE ... DROP COLUMN are recognized from a
// literal-and-comment-stripped leading-keyword scan, not from the AST; the
// scan only ever inspects a statement's own leading keywords, so a quoted
// value or comment can never forge a match.
func CheckDangerous(sql string) (dbtype.DangerousKind, string, error) {
	pieces, err := splitStatements(sql)
	if err != nil {
		return dbtype.DangerousNone, "", dberr.InvalidInput("failed to split SQL into statements: " + err.Error())
	}
	for _, piece := range pieces {
		kind, detail, err := checkDangerousOne(piece)
		if err != nil {
			return dbtype.DangerousNone, "", err
		}
		if kind != dbtype.DangerousNone {
			return kind, detail, nil
		}
	}
	return dbtype.DangerousNone, "", nil
}

func checkDangerousOne(sql string) (dbtype.DangerousKind, string, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return dbtype.DangerousNone, "", nil
	}

	// Plain EXPLAIN does not execute its inner statement, so the destructive
	// effect the inner statement describes never actually happens. EXPLAIN
	// ANALYZE does run the inner statement (Postgres, MySQL), so that form
	// is checked like the inner statement itself.
	if inner, ok := peelExplain(trimmed); ok {
		for _, w := range tokenWords(stripLiterals(trimmed[:len(trimmed)-len(inner)])) {
			if w == "ANALYZE" || w == "ANALYSE" {
				return checkDangerousOne(inner)
			}
		}
		return dbtype.DangerousNone, "", nil
	}

	tokens := tokenWords(stripLiterals(trimmed))
	if len(tokens) == 0 {
		return dbtype.DangerousNone, "", nil
	}

	switch tokens[0] {
	case "DROP":
		if len(tokens) < 2 {
			return dbtype.DangerousNone, "", nil
		}
		switch tokens[1] {
		case "DATABASE", "SCHEMA":
			return dbtype.DangerousDropDatabase, objectNameAfter(tokens, 2), nil
		case "INDEX":
			return dbtype.DangerousDropIndex, objectNameAfter(tokens, 2), nil
		case "TABLE":
			return dbtype.DangerousDropTable, objectNameAfter(tokens, 2), nil
		}
		return dbtype.DangerousNone, "", nil

	case "TRUNCATE":
		return dbtype.DangerousTruncate, objectNameAfterTruncate(tokens), nil

	case "ALTER":
		if len(tokens) >= 2 && tokens[1] == "TABLE" {
			if col, ok := findDroppedColumn(tokens); ok {
				return dbtype.DangerousAlterTableDropColumn, col, nil
			}
		}
		return dbtype.DangerousNone, "", nil
	}

	// DELETE/UPDATE without WHERE needs the real AST: a WHERE clause can
	// sit arbitrarily far from the leading keywords once joins, CTEs, or
	// subqueries are involved, so a token scan cannot rule it out.
	stmt, err := sqlparser.Parse(trimmed)
	if err != nil {
		return dbtype.DangerousNone, "", nil
	}
	switch s := stmt.(type) {
	case *sqlparser.Delete:
		if s.Where == nil {
			return dbtype.DangerousDeleteWithoutWhere, sqlparser.String(s.TableExprs), nil
		}
	case *sqlparser.Update:
		if s.Where == nil {
			return dbtype.DangerousUpdateWithoutWhere, sqlparser.String(s.TableExprs), nil
		}
	}
	return dbtype.DangerousNone, "", nil
}

// objectNameAfter returns the token at idx, skipping an optional
// "IF EXISTS" immediately before it.
func objectNameAfter(tokens []string, idx int) string {
	i := idx
	if i < len(tokens) && tokens[i] == "IF" {
		i++
		if i < len(tokens) && tokens[i] == "EXISTS" {
			i++
		}
	}
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}

func objectNameAfterTruncate(tokens []string) string {
	i := 1
	if i < len(tokens) && tokens[i] == "TABLE" {
		i++
	}
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}

// alterDropNonColumn lists the object kinds a bare "DROP <word>" inside an
// ALTER TABLE can refer to besides a column: these are not data loss in
// the same sense (dropping a constraint or index does not delete rows).
var alterDropNonColumn = map[string]bool{
	"INDEX": true, "KEY": true, "PRIMARY": true, "FOREIGN": true,
	"CONSTRAINT": true, "PARTITION": true, "CHECK": true,
}

// findDroppedColumn scans an ALTER TABLE token stream for a
// "DROP [COLUMN] name" or MySQL's bare "DROP name" shorthand, skipping
// non-column ALTER TABLE ... DROP forms (index, key, constraint, ...).
func findDroppedColumn(tokens []string) (string, bool) {
	for i := 2; i < len(tokens); i++ {
		if tokens[i] != "DROP" {
			continue
		}
		if i+1 >= len(tokens) {
			return "", false
		}
		next := tokens[i+1]
		if alterDropNonColumn[next] {
			continue
		}
		if next == "COLUMN" {
			j := i + 2
			if j < len(tokens) && tokens[j] == "IF" && j+1 < len(tokens) && tokens[j+1] == "EXISTS" {
				j += 2
			}
			if j < len(tokens) {
				return tokens[j], true
			}
			return "", true
		}
		return next, true
	}
	return "", false
}
