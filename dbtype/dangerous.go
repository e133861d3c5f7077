package dbtype

// DangerousKind enumerates the seven destructive statement shapes the guard
// layer refuses unless the caller explicitly acknowledges them.
type DangerousKind int

const (
	DangerousNone DangerousKind = iota
	DangerousDropDatabase
	DangerousDropTable
	DangerousDropIndex
	DangerousAlterTableDropColumn
	DangerousTruncate
	DangerousDeleteWithoutWhere
	DangerousUpdateWithoutWhere
)

// String renders the kind for log fields and error messages.
func (k DangerousKind) String() string {
	switch k {
	case DangerousDropDatabase:
		return "drop_database"
	case DangerousDropTable:
		return "drop_table"
	case DangerousDropIndex:
		return "drop_index"
	case DangerousAlterTableDropColumn:
		return "alter_table_drop_column"
	case DangerousTruncate:
		return "truncate"
	case DangerousDeleteWithoutWhere:
		return "delete_without_where"
	case DangerousUpdateWithoutWhere:
		return "update_without_where"
	default:
		return "none"
	}
}

// Label is the short operation label used in Permission error messages.
func (k DangerousKind) Label() string {
	switch k {
	case DangerousDropDatabase:
		return "DROP DATABASE"
	case DangerousDropTable:
		return "DROP TABLE"
	case DangerousDropIndex:
		return "DROP INDEX"
	case DangerousAlterTableDropColumn:
		return "ALTER TABLE ... DROP COLUMN"
	case DangerousTruncate:
		return "TRUNCATE"
	case DangerousDeleteWithoutWhere:
		return "DELETE without WHERE"
	case DangerousUpdateWithoutWhere:
		return "UPDATE without WHERE"
	default:
		return ""
	}
}

// Reason is the human-readable explanation attached to the Permission error
// when this kind is refused.
func (k DangerousKind) Reason() string {
	switch k {
	case DangerousDropDatabase:
		return "this statement permanently deletes an entire database"
	case DangerousDropTable:
		return "this statement permanently deletes a table and all its data"
	case DangerousDropIndex:
		return "this statement permanently deletes an index"
	case DangerousAlterTableDropColumn:
		return "this statement permanently deletes a column and its data"
	case DangerousTruncate:
		return "this statement permanently deletes all rows in a table"
	case DangerousDeleteWithoutWhere:
		return "this statement deletes every row in the table because it has no WHERE clause"
	case DangerousUpdateWithoutWhere:
		return "this statement updates every row in the table because it has no WHERE clause"
	default:
		return ""
	}
}

// DatabaseTarget selects which database a server-level connection's
// sub-pool speaks to: either the server's default database, or a named one.
type DatabaseTarget struct {
	name   string
	server bool
}

// ServerTarget is the DatabaseTarget for a server-level connection with no
// specific database nominated.
func ServerTarget() DatabaseTarget { return DatabaseTarget{server: true} }

// NamedTarget is the DatabaseTarget for a specific database name. It does
// not reject an empty name; Engine.ResolvePool only calls it with a
// non-empty database.
func NamedTarget(name string) DatabaseTarget { return DatabaseTarget{name: name} }

// IsServer reports whether this target is the bare server target.
func (t DatabaseTarget) IsServer() bool { return t.server }

// Name returns the database name, or "" for the server target.
func (t DatabaseTarget) Name() string { return t.name }

// Key returns a value usable as a map key that disambiguates the server
// target from a database literally named "" (NamedTarget("") is accepted
// and keys as "").
func (t DatabaseTarget) Key() string {
	if t.server {
		return "\x00server"
	}
	return t.name
}
