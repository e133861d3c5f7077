package analyzer

import (
	"testing"

	"github.com/sqlbridge/dbmcp/dbtype"
)

func TestClassifyReadOnly(t *testing.T) {
	cases := []string{
		"SELECT * FROM users WHERE id = 1",
		"select * from users",
		"  SELECT 1  ",
		"(SELECT 1) UNION (SELECT 2)",
		"SHOW TABLES",
		"SHOW DATABASES",
		"DESCRIBE users",
		"DESC users",
		"EXPLAIN SELECT * FROM users",
		"EXPLAIN ANALYZE SELECT * FROM users",
		"EXPLAIN (ANALYZE, FORMAT JSON) SELECT * FROM users",
		"EXPLAIN QUERY PLAN SELECT * FROM users",
	}
	for _, sql := range cases {
		got, err := Classify(sql)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", sql, err)
		}
		if got.Category != CategoryReadOnly {
			t.Errorf("Classify(%q) = %v, want read_only", sql, got.Category)
		}
	}
}

func TestClassifyWriteDML(t *testing.T) {
	cases := []string{
		"INSERT INTO users (name) VALUES ('a')",
		"UPDATE users SET name = 'a' WHERE id = 1",
		"DELETE FROM users WHERE id = 1",
		"REPLACE INTO users (id, name) VALUES (1, 'a')",
	}
	for _, sql := range cases {
		got, err := Classify(sql)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", sql, err)
		}
		if got.Category != CategoryWriteDML {
			t.Errorf("Classify(%q) = %v, want write_dml", sql, got.Category)
		}
	}
}

func TestClassifyDDL(t *testing.T) {
	cases := []string{
		"CREATE TABLE t (id INT)",
		"ALTER TABLE t ADD COLUMN x INT",
		"DROP TABLE t",
		"TRUNCATE TABLE t",
	}
	for _, sql := range cases {
		got, err := Classify(sql)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", sql, err)
		}
		if got.Category != CategoryDDL {
			t.Errorf("Classify(%q) = %v, want ddl", sql, got.Category)
		}
	}
}

func TestClassifyTransactionCtl(t *testing.T) {
	cases := []string{"BEGIN", "START TRANSACTION", "COMMIT", "ROLLBACK"}
	for _, sql := range cases {
		got, err := Classify(sql)
		if err != nil {
			t.Fatalf("Classify(%q) returned error: %v", sql, err)
		}
		if got.Category != CategoryTransactionCtl {
			t.Errorf("Classify(%q) = %v, want transaction_ctl", sql, got.Category)
		}
	}
}

func TestClassifyProcedureCall(t *testing.T) {
	got, err := Classify("CALL sp_do_something(1, 2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != CategoryProcedureCall {
		t.Errorf("got %v, want procedure_call", got.Category)
	}
}

func TestClassifyEmptyInputRejected(t *testing.T) {
	for _, sql := range []string{"", "   ", ";", "-- just a comment"} {
		if _, err := Classify(sql); err == nil {
			t.Errorf("Classify(%q) should have failed, got nil error", sql)
		}
	}
}

func TestClassifyParseErrorRejected(t *testing.T) {
	if _, err := Classify("SELEKT * FROM users"); err == nil {
		t.Fatal("expected parse error for malformed SQL")
	}
}

func TestClassifyMixedBatchIsUnknown(t *testing.T) {
	got, err := Classify("SELECT 1; DELETE FROM users WHERE id = 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != CategoryUnknown {
		t.Errorf("mixed batch classified as %v, want unknown", got.Category)
	}
}

func TestClassifyUniformBatchKeepsCategory(t *testing.T) {
	got, err := Classify("SELECT 1; SELECT 2; SELECT 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Category != CategoryReadOnly {
		t.Errorf("uniform read-only batch classified as %v", got.Category)
	}
}

func TestCheckDangerousDropTable(t *testing.T) {
	kind, detail, err := CheckDangerous("DROP TABLE users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != dbtype.DangerousDropTable {
		t.Fatalf("got %v, want drop_table", kind)
	}
	if detail != "USERS" {
		t.Errorf("detail = %q, want USERS", detail)
	}
}

func TestCheckDangerousDropDatabaseAndIndex(t *testing.T) {
	kind, _, err := CheckDangerous("DROP DATABASE shop")
	if err != nil || kind != dbtype.DangerousDropDatabase {
		t.Fatalf("got kind=%v err=%v, want drop_database", kind, err)
	}
	kind, _, err = CheckDangerous("DROP SCHEMA IF EXISTS shop")
	if err != nil || kind != dbtype.DangerousDropDatabase {
		t.Fatalf("got kind=%v err=%v, want drop_database for SCHEMA form", kind, err)
	}
	kind, _, err = CheckDangerous("DROP INDEX idx_name ON users")
	if err != nil || kind != dbtype.DangerousDropIndex {
		t.Fatalf("got kind=%v err=%v, want drop_index", kind, err)
	}
}

func TestCheckDangerousTruncate(t *testing.T) {
	kind, detail, err := CheckDangerous("TRUNCATE TABLE orders")
	if err != nil || kind != dbtype.DangerousTruncate {
		t.Fatalf("got kind=%v err=%v, want truncate", kind, err)
	}
	if detail != "ORDERS" {
		t.Errorf("detail = %q, want ORDERS", detail)
	}
}

func TestCheckDangerousAlterTableDropColumn(t *testing.T) {
	cases := []string{
		"ALTER TABLE users DROP COLUMN email",
		"ALTER TABLE users DROP email",
		"ALTER TABLE users ADD COLUMN phone VARCHAR(20), DROP COLUMN email",
	}
	for _, sql := range cases {
		kind, _, err := CheckDangerous(sql)
		if err != nil {
			t.Fatalf("CheckDangerous(%q) error: %v", sql, err)
		}
		if kind != dbtype.DangerousAlterTableDropColumn {
			t.Errorf("CheckDangerous(%q) = %v, want alter_table_drop_column", sql, kind)
		}
	}
}

func TestCheckDangerousAlterTableDropIndexIsNotColumnDrop(t *testing.T) {
	kind, _, err := CheckDangerous("ALTER TABLE users DROP INDEX idx_email")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != dbtype.DangerousNone {
		t.Errorf("got %v, want none for DROP INDEX inside ALTER TABLE", kind)
	}
}

func TestCheckDangerousDeleteAndUpdateWithoutWhere(t *testing.T) {
	kind, _, err := CheckDangerous("DELETE FROM users")
	if err != nil || kind != dbtype.DangerousDeleteWithoutWhere {
		t.Fatalf("got kind=%v err=%v, want delete_without_where", kind, err)
	}
	kind, _, err = CheckDangerous("UPDATE users SET active = false")
	if err != nil || kind != dbtype.DangerousUpdateWithoutWhere {
		t.Fatalf("got kind=%v err=%v, want update_without_where", kind, err)
	}
}

func TestCheckDangerousWithWhereIsSafe(t *testing.T) {
	kind, _, err := CheckDangerous("DELETE FROM users WHERE id = 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != dbtype.DangerousNone {
		t.Errorf("got %v, want none", kind)
	}
}

// A string literal that contains dangerous keywords must never trigger a
// false positive: the classic bypass attempt this guard exists to defeat.
func TestCheckDangerousLiteralsNeverMatch(t *testing.T) {
	cases := []string{
		"INSERT INTO logs (message) VALUES ('DROP TABLE users; DELETE FROM users')",
		"SELECT * FROM users WHERE name = 'truncate everything'",
		"UPDATE users SET note = 'drop database prod' WHERE id = 1",
		"-- DROP TABLE users\nSELECT * FROM users",
		"SELECT * FROM users /* DELETE FROM users */ WHERE id = 1",
	}
	for _, sql := range cases {
		kind, _, err := CheckDangerous(sql)
		if err != nil {
			t.Fatalf("CheckDangerous(%q) error: %v", sql, err)
		}
		if kind != dbtype.DangerousNone {
			t.Errorf("CheckDangerous(%q) = %v, want none (literal/comment should not match)", sql, kind)
		}
	}
}

func TestCheckDangerousCaseInsensitive(t *testing.T) {
	kind, _, err := CheckDangerous("drop table users")
	if err != nil || kind != dbtype.DangerousDropTable {
		t.Fatalf("got kind=%v err=%v, want drop_table (case-insensitive)", kind, err)
	}
}

func TestCheckDangerousExplainNeverFlagsInnerStatement(t *testing.T) {
	kind, _, err := CheckDangerous("EXPLAIN DELETE FROM users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != dbtype.DangerousNone {
		t.Errorf("EXPLAIN of a dangerous statement should not itself be flagged, got %v", kind)
	}
}

func TestCheckDangerousBatchFindsFirstMatch(t *testing.T) {
	kind, _, err := CheckDangerous("SELECT 1; DROP TABLE users; SELECT 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != dbtype.DangerousDropTable {
		t.Errorf("got %v, want drop_table found within batch", kind)
	}
}
