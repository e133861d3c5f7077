// Package schema implements the §6 schema-introspection collaborator:
// list_tables, describe_table, and list_databases, expressed per backend
// against information_schema (MySQL, Postgres) or sqlite_master/PRAGMA
// (SQLite).
package schema

import (
	"context"
	"database/sql"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

// TableInfo is one row of list_tables.
type TableInfo struct {
	Name   string
	Schema string
	IsView bool
}

// ColumnInfo is one column of a TableSchema.
type ColumnInfo struct {
	Name         string
	TypeName     string
	Nullable     bool
	PrimaryKey   bool
	DefaultValue *string
}

// TableSchema is the describe_table result.
type TableSchema struct {
	Name    string
	Schema  string
	Columns []ColumnInfo
}

// DatabaseRow is one row of list_databases.
type DatabaseRow struct {
	Name string
}

// ListTables returns every table (and, if includeViews, view) visible to
// db. schemaName selects a non-default schema on MySQL/Postgres; it is
// ignored for SQLite, which has no schema concept beyond the file itself.
func ListTables(ctx context.Context, backendKind dbtype.BackendKind, db *sql.DB, schemaName string, includeViews bool) ([]TableInfo, error) {
	switch backendKind {
	case dbtype.BackendSQLite:
		return listTablesSQLite(ctx, db, includeViews)
	case dbtype.BackendMySQL:
		return listTablesInformationSchema(ctx, db, "SELECT table_name, table_type FROM information_schema.tables WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())", schemaName, includeViews)
	case dbtype.BackendPostgres:
		return listTablesInformationSchema(ctx, db, "SELECT table_name, table_type FROM information_schema.tables WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())", schemaName, includeViews)
	default:
		return nil, dberr.InvalidInput("unsupported backend for list_tables")
	}
}

func listTablesInformationSchema(ctx context.Context, db *sql.DB, query, schemaName string, includeViews bool) ([]TableInfo, error) {
	rows, err := db.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, dberr.QueryWrap(err, "", "check that the database/schema name is correct")
	}
	defer rows.Close()

	out := make([]TableInfo, 0)
	for rows.Next() {
		var name, tableType string
		if err := rows.Scan(&name, &tableType); err != nil {
			return nil, dberr.InternalWrap(err)
		}
		isView := tableType == "VIEW"
		if isView && !includeViews {
			continue
		}
		out = append(out, TableInfo{Name: name, Schema: schemaName, IsView: isView})
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.QueryWrap(err, "", "")
	}
	return out, nil
}

func listTablesSQLite(ctx context.Context, db *sql.DB, includeViews bool) ([]TableInfo, error) {
	query := "SELECT name, type FROM sqlite_master WHERE type = 'table'"
	if includeViews {
		query = "SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view')"
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, dberr.QueryWrap(err, "", "")
	}
	defer rows.Close()

	out := make([]TableInfo, 0)
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, dberr.InternalWrap(err)
		}
		out = append(out, TableInfo{Name: name, IsView: kind == "view"})
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.QueryWrap(err, "", "")
	}
	return out, nil
}

// DescribeTable returns a table's column schema, including primary-key
// membership.
func DescribeTable(ctx context.Context, backendKind dbtype.BackendKind, db *sql.DB, name, schemaName string) (TableSchema, error) {
	switch backendKind {
	case dbtype.BackendSQLite:
		return describeTableSQLite(ctx, db, name)
	case dbtype.BackendMySQL:
		return describeTableInformationSchema(ctx, db, name, schemaName,
			"SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE()) AND table_name = ? ORDER BY ordinal_position",
			"SELECT column_name FROM information_schema.key_column_usage WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE()) AND table_name = ? AND constraint_name = 'PRIMARY'")
	case dbtype.BackendPostgres:
		return describeTableInformationSchema(ctx, db, name, schemaName,
			"SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2 ORDER BY ordinal_position",
			"SELECT kcu.column_name FROM information_schema.table_constraints tc JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND tc.table_name = $2")
	default:
		return TableSchema{}, dberr.InvalidInput("unsupported backend for describe_table")
	}
}

func describeTableInformationSchema(ctx context.Context, db *sql.DB, name, schemaName, columnsQuery, pkQuery string) (TableSchema, error) {
	pkSet := make(map[string]bool)
	pkRows, err := db.QueryContext(ctx, pkQuery, schemaName, name)
	if err != nil {
		return TableSchema{}, dberr.QueryWrap(err, "", "")
	}
	for pkRows.Next() {
		var col string
		if err := pkRows.Scan(&col); err != nil {
			pkRows.Close()
			return TableSchema{}, dberr.InternalWrap(err)
		}
		pkSet[col] = true
	}
	if err := pkRows.Err(); err != nil {
		pkRows.Close()
		return TableSchema{}, dberr.QueryWrap(err, "", "")
	}
	pkRows.Close()

	rows, err := db.QueryContext(ctx, columnsQuery, schemaName, name)
	if err != nil {
		return TableSchema{}, dberr.QueryWrap(err, "", "")
	}
	defer rows.Close()

	cols := make([]ColumnInfo, 0)
	for rows.Next() {
		var colName, dataType, isNullable string
		var defaultValue sql.NullString
		if err := rows.Scan(&colName, &dataType, &isNullable, &defaultValue); err != nil {
			return TableSchema{}, dberr.InternalWrap(err)
		}
		ci := ColumnInfo{
			Name:       colName,
			TypeName:   dataType,
			Nullable:   isNullable == "YES",
			PrimaryKey: pkSet[colName],
		}
		if defaultValue.Valid {
			v := defaultValue.String
			ci.DefaultValue = &v
		}
		cols = append(cols, ci)
	}
	if err := rows.Err(); err != nil {
		return TableSchema{}, dberr.QueryWrap(err, "", "")
	}
	if len(cols) == 0 {
		return TableSchema{}, dberr.Schema("table not found", name)
	}
	return TableSchema{Name: name, Schema: schemaName, Columns: cols}, nil
}

func describeTableSQLite(ctx context.Context, db *sql.DB, name string) (TableSchema, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, type, \"notnull\", dflt_value, pk FROM pragma_table_info(?)", name)
	if err != nil {
		return TableSchema{}, dberr.QueryWrap(err, "", "")
	}
	defer rows.Close()

	cols := make([]ColumnInfo, 0)
	for rows.Next() {
		var colName, typeName string
		var notNull, pk int
		var defaultValue sql.NullString
		if err := rows.Scan(&colName, &typeName, &notNull, &defaultValue, &pk); err != nil {
			return TableSchema{}, dberr.InternalWrap(err)
		}
		ci := ColumnInfo{
			Name:       colName,
			TypeName:   typeName,
			Nullable:   notNull == 0,
			PrimaryKey: pk != 0,
		}
		if defaultValue.Valid {
			v := defaultValue.String
			ci.DefaultValue = &v
		}
		cols = append(cols, ci)
	}
	if err := rows.Err(); err != nil {
		return TableSchema{}, dberr.QueryWrap(err, "", "")
	}
	if len(cols) == 0 {
		return TableSchema{}, dberr.Schema("table not found", name)
	}
	return TableSchema{Name: name, Columns: cols}, nil
}

// ListDatabases returns every database visible on the server. SQLite has
// no multi-database server concept, so it always returns InvalidInput.
func ListDatabases(ctx context.Context, backendKind dbtype.BackendKind, db *sql.DB) ([]DatabaseRow, error) {
	var query string
	switch backendKind {
	case dbtype.BackendMySQL:
		query = "SELECT schema_name FROM information_schema.schemata"
	case dbtype.BackendPostgres:
		query = "SELECT datname FROM pg_database WHERE datistemplate = false"
	case dbtype.BackendSQLite:
		return nil, dberr.InvalidInput("list_databases is not supported for sqlite")
	default:
		return nil, dberr.InvalidInput("unsupported backend for list_databases")
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, dberr.QueryWrap(err, "", "")
	}
	defer rows.Close()

	out := make([]DatabaseRow, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, dberr.InternalWrap(err)
		}
		out = append(out, DatabaseRow{Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.QueryWrap(err, "", "")
	}
	return out, nil
}
