package toolcatalog

import (
	"github.com/sqlbridge/dbmcp/sqlengine/executor"
	"github.com/sqlbridge/dbmcp/sqlengine/registry"
	"github.com/sqlbridge/dbmcp/sqlengine/schema"
	"github.com/sqlbridge/dbmcp/sqlengine/txregistry"
)

// ListConnectionsResponse is list_connections' output.
type ListConnectionsResponse struct {
	Connections []registry.Summary `json:"connections"`
}

// ListDatabasesResponse is list_databases' output.
type ListDatabasesResponse struct {
	Databases []schema.DatabaseRow `json:"databases"`
}

// ListTablesResponse is list_tables' output.
type ListTablesResponse struct {
	Tables []schema.TableInfo `json:"tables"`
}

// QueryResponse is the executor's Result, marshaled as-is;
// query/execute/explain share this one result shape.
type QueryResponse = executor.Result

// BeginTransactionResponse is begin_transaction's output.
type BeginTransactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

// ListTransactionsResponse is list_transactions' output.
type ListTransactionsResponse struct {
	Transactions []txregistry.Metadata `json:"transactions"`
}

// StatusResponse is commit/rollback's output: no data beyond success.
type StatusResponse struct {
	Status string `json:"status"`
}
