package guard

import (
	"strings"
	"testing"

	"github.com/sqlbridge/dbmcp/dberr"
)

func TestCheckQueryPathAllowsReadOnly(t *testing.T) {
	if err := CheckQueryPath("SELECT * FROM users"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckQueryPathRejectsWrite(t *testing.T) {
	err := CheckQueryPath("DELETE FROM users WHERE id = 1")
	if err == nil {
		t.Fatal("expected error for a write statement on the query path")
	}
	e, ok := dberr.As(err)
	if !ok || e.Kind != dberr.KindPermission {
		t.Fatalf("got %v, want KindPermission", err)
	}
}

func TestCheckQueryPathRejectsTransactionControl(t *testing.T) {
	err := CheckQueryPath("COMMIT")
	if err == nil {
		t.Fatal("expected error for transaction control on the query path")
	}
}

func TestCheckExecutePathRejectsNonWritableConnection(t *testing.T) {
	_, err := CheckExecutePath("UPDATE users SET active = 1 WHERE id = 1", false, false)
	if err == nil {
		t.Fatal("expected error for a write on a non-writable connection")
	}
	e, ok := dberr.As(err)
	if !ok || e.Kind != dberr.KindPermission {
		t.Fatalf("got %v, want KindPermission", err)
	}
}

func TestCheckExecutePathAllowsSafeWrite(t *testing.T) {
	check, err := CheckExecutePath("UPDATE users SET active = 1 WHERE id = 1", true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.Warning != "" {
		t.Errorf("unexpected warning for a safe write: %q", check.Warning)
	}
}

func TestCheckExecutePathRefusesDangerousWithoutAcknowledgement(t *testing.T) {
	_, err := CheckExecutePath("DROP TABLE users", true, false)
	if err == nil {
		t.Fatal("expected error for an unacknowledged dangerous operation")
	}
	e, ok := dberr.As(err)
	if !ok || e.Kind != dberr.KindPermission {
		t.Fatalf("got %v, want KindPermission", err)
	}
}

func TestCheckExecutePathAllowsDangerousWithAcknowledgementAndWarns(t *testing.T) {
	check, err := CheckExecutePath("DROP TABLE users", true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if check.Warning == "" {
		t.Error("expected a warning when a dangerous operation is explicitly allowed")
	}
	if !strings.Contains(check.Warning, "permanently") {
		t.Errorf("warning = %q, want it to contain %q", check.Warning, "permanently")
	}
}

func TestCheckExecutePathDeleteWithoutWhereIsDangerous(t *testing.T) {
	_, err := CheckExecutePath("DELETE FROM users", true, false)
	if err == nil {
		t.Fatal("expected error for DELETE without WHERE")
	}
}

func TestRequireDatabaseForSchemaTool(t *testing.T) {
	if err := RequireDatabaseForSchemaTool(true, ""); err == nil {
		t.Error("expected error for server-level connection with no database named")
	}
	if err := RequireDatabaseForSchemaTool(true, "shop"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := RequireDatabaseForSchemaTool(false, ""); err != nil {
		t.Errorf("unexpected error for non-server-level connection: %v", err)
	}
}
