package sqlengine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

func connectSQLite(t *testing.T, e *Engine, id string, writable bool) {
	t.Helper()
	_, err := e.Connect(context.Background(), dbtype.ConnectionConfig{
		ID:               id,
		Backend:          dbtype.BackendSQLite,
		ConnectionString: ":memory:",
		Writable:         writable,
		ServerLevel:      false,
		Database:         "memory",
	})
	if err != nil {
		t.Fatalf("Connect(%s): %v", id, err)
	}
}

func TestQueryAndExecuteAgainstSQLiteConnection(t *testing.T) {
	e := New(zerolog.Nop())
	defer e.Shutdown()
	connectSQLite(t, e, "main", true)

	_, err := e.Execute(context.Background(), ExecuteRequest{
		ConnectionID: "main",
		SQL:          "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)",
	})
	if err != nil {
		t.Fatalf("Execute(create): %v", err)
	}

	_, err = e.Execute(context.Background(), ExecuteRequest{
		ConnectionID: "main",
		SQL:          "INSERT INTO widgets (name) VALUES (?)",
		Params:       []dbtype.QueryParam{dbtype.StringParam("gizmo")},
	})
	if err != nil {
		t.Fatalf("Execute(insert): %v", err)
	}

	res, err := e.Query(context.Background(), QueryRequest{
		ConnectionID: "main",
		SQL:          "SELECT id, name FROM widgets",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(res.Rows))
	}
}

func TestQueryRejectsWriteStatement(t *testing.T) {
	e := New(zerolog.Nop())
	defer e.Shutdown()
	connectSQLite(t, e, "main", true)

	_, err := e.Query(context.Background(), QueryRequest{
		ConnectionID: "main",
		SQL:          "DELETE FROM widgets",
	})
	if err == nil {
		t.Fatal("expected error for a write statement on the query path")
	}
}

func TestExecuteRejectedOnNonWritableConnection(t *testing.T) {
	e := New(zerolog.Nop())
	defer e.Shutdown()
	connectSQLite(t, e, "ro", false)

	_, err := e.Execute(context.Background(), ExecuteRequest{
		ConnectionID: "ro",
		SQL:          "CREATE TABLE t (id INTEGER)",
	})
	if err == nil {
		t.Fatal("expected error writing to a non-writable connection")
	}
}

func TestExecuteDangerousOperationRequiresAcknowledgement(t *testing.T) {
	e := New(zerolog.Nop())
	defer e.Shutdown()
	connectSQLite(t, e, "main", true)

	if _, err := e.Execute(context.Background(), ExecuteRequest{
		ConnectionID: "main",
		SQL:          "CREATE TABLE t (id INTEGER)",
	}); err != nil {
		t.Fatalf("Execute(create): %v", err)
	}

	_, err := e.Execute(context.Background(), ExecuteRequest{
		ConnectionID: "main",
		SQL:          "DROP TABLE t",
	})
	if err == nil {
		t.Fatal("expected error for an unacknowledged DROP TABLE")
	}

	res, err := e.Execute(context.Background(), ExecuteRequest{
		ConnectionID:              "main",
		SQL:                       "DROP TABLE t",
		DangerousOperationAllowed: true,
	})
	if err != nil {
		t.Fatalf("Execute(drop, acknowledged): %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a warning when a dangerous operation was acknowledged")
	}
}

func TestTransactionLifecycle(t *testing.T) {
	e := New(zerolog.Nop())
	defer e.Shutdown()
	connectSQLite(t, e, "main", true)

	if _, err := e.Execute(context.Background(), ExecuteRequest{
		ConnectionID: "main",
		SQL:          "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)",
	}); err != nil {
		t.Fatalf("Execute(create): %v", err)
	}

	txID, err := e.BeginTransaction(context.Background(), "main", "", 30)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if len(e.ListTransactions()) != 1 {
		t.Fatalf("ListTransactions() len = %d, want 1", len(e.ListTransactions()))
	}

	_, err = e.Execute(context.Background(), ExecuteRequest{
		ConnectionID:  "main",
		SQL:           "INSERT INTO widgets (name) VALUES (?)",
		Params:        []dbtype.QueryParam{dbtype.StringParam("sprocket")},
		TransactionID: txID,
	})
	if err != nil {
		t.Fatalf("Execute within transaction: %v", err)
	}

	if err := e.Commit("main", txID); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(e.ListTransactions()) != 0 {
		t.Error("expected no open transactions after commit")
	}

	res, err := e.Query(context.Background(), QueryRequest{ConnectionID: "main", SQL: "SELECT name FROM widgets"})
	if err != nil {
		t.Fatalf("Query after commit: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("got %d rows after commit, want 1", len(res.Rows))
	}
}

func TestSchemaToolsAgainstSQLiteConnection(t *testing.T) {
	e := New(zerolog.Nop())
	defer e.Shutdown()
	connectSQLite(t, e, "main", true)

	if _, err := e.Execute(context.Background(), ExecuteRequest{
		ConnectionID: "main",
		SQL:          "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
	}); err != nil {
		t.Fatalf("Execute(create): %v", err)
	}

	tables, err := e.ListTables(context.Background(), "main", "", "", false)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "widgets" {
		t.Fatalf("unexpected tables: %+v", tables)
	}

	ts, err := e.DescribeTable(context.Background(), "main", "", "widgets", "")
	if err != nil {
		t.Fatalf("DescribeTable: %v", err)
	}
	if len(ts.Columns) != 2 {
		t.Fatalf("got %d columns, want 2", len(ts.Columns))
	}

	_, err = e.ListDatabases(context.Background(), "main")
	if err == nil {
		t.Fatal("expected list_databases to fail for sqlite")
	}
}

func TestListConnectionsOmitsConnectionString(t *testing.T) {
	e := New(zerolog.Nop())
	defer e.Shutdown()
	connectSQLite(t, e, "main", true)

	summaries := e.ListConnections()
	if len(summaries) != 1 || summaries[0].ID != "main" {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestQueryUnknownConnectionPropagatesConnectionNotFound(t *testing.T) {
	e := New(zerolog.Nop())
	defer e.Shutdown()

	_, err := e.Query(context.Background(), QueryRequest{ConnectionID: "missing", SQL: "SELECT 1"})
	ce, ok := dberr.As(err)
	if !ok || ce.Kind != dberr.KindConnectionNotFound {
		t.Fatalf("got %v, want KindConnectionNotFound", err)
	}
}
