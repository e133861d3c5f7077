package toolcatalog

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/sqlengine"
)

// Register adds every tool the core exposes to s, dispatching each call
// into engine.
func Register(s *server.MCPServer, engine *sqlengine.Engine, logger zerolog.Logger) {
	s.AddTool(
		mcp.NewTool("list_connections",
			mcp.WithDescription("List every preconfigured database connection, without exposing connection strings."),
		),
		listConnectionsHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("list_databases",
			mcp.WithDescription("List every database visible on a server-level connection's server."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id from list_connections.")),
		),
		listDatabasesHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription("List the tables (and, optionally, views) visible through a connection."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id from list_connections.")),
			mcp.WithString("database", mcp.Description("Database name. Required for server-level connections.")),
			mcp.WithString("schema", mcp.Description("Schema name; defaults to the connection's current schema.")),
			mcp.WithBoolean("include_views", mcp.Description("Include views alongside tables. Defaults to false.")),
		),
		listTablesHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("describe_table",
			mcp.WithDescription("Describe one table's column schema, including primary-key membership."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id from list_connections.")),
			mcp.WithString("database", mcp.Description("Database name. Required for server-level connections.")),
			mcp.WithString("table", mcp.Required(), mcp.Description("Table name to describe.")),
			mcp.WithString("schema", mcp.Description("Schema name; defaults to the connection's current schema.")),
		),
		describeTableHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("query",
			mcp.WithDescription("Run a read-only SQL statement and return its rows as JSON."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id from list_connections.")),
			mcp.WithString("database", mcp.Description("Database name, for a server-level connection.")),
			mcp.WithString("sql", mcp.Required(), mcp.Description("SELECT statement to run.")),
			mcp.WithArray("params", mcp.Description("Positional bind parameters, in placeholder order.")),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 100, max 10000).")),
			mcp.WithNumber("timeout_secs", mcp.Description("Wall-clock timeout in seconds (default 30, max 300).")),
			mcp.WithBoolean("decode_binary", mcp.Description("Return BLOB/BYTEA values as text when they are valid UTF-8; otherwise, and by default, they are base64-encoded.")),
			mcp.WithString("transaction_id", mcp.Description("Run inside an open transaction instead of a fresh pool borrow.")),
		),
		queryHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("explain",
			mcp.WithDescription("Return the backend's EXPLAIN plan for a statement without running it."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id from list_connections.")),
			mcp.WithString("database", mcp.Description("Database name, for a server-level connection.")),
			mcp.WithString("sql", mcp.Required(), mcp.Description("Statement to explain.")),
			mcp.WithArray("params", mcp.Description("Positional bind parameters, in placeholder order.")),
		),
		explainHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("execute",
			mcp.WithDescription("Run a write or DDL statement. Requires a writable connection; dangerous operations require acknowledgement."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id from list_connections.")),
			mcp.WithString("database", mcp.Description("Database name, for a server-level connection.")),
			mcp.WithString("sql", mcp.Required(), mcp.Description("Statement to run.")),
			mcp.WithArray("params", mcp.Description("Positional bind parameters, in placeholder order.")),
			mcp.WithNumber("timeout_secs", mcp.Description("Wall-clock timeout in seconds (default 30, max 300).")),
			mcp.WithString("transaction_id", mcp.Description("Run inside an open transaction instead of a fresh pool borrow.")),
			mcp.WithBoolean("dangerous_operation_allowed", mcp.Description("Acknowledge a DROP/TRUNCATE/DELETE-without-WHERE statement.")),
		),
		executeHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("begin_transaction",
			mcp.WithDescription("Open a transaction on a connection and return its id."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id from list_connections.")),
			mcp.WithString("database", mcp.Description("Database name, for a server-level connection.")),
			mcp.WithNumber("timeout_secs", mcp.Description("Lifetime in seconds, counted from begin, after which the transaction is rolled back automatically (default 60, max 300).")),
		),
		beginTransactionHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("commit",
			mcp.WithDescription("Commit an open transaction."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id the transaction was opened on.")),
			mcp.WithString("transaction_id", mcp.Required(), mcp.Description("Transaction id from begin_transaction.")),
		),
		commitHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("rollback",
			mcp.WithDescription("Roll back an open transaction."),
			mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id the transaction was opened on.")),
			mcp.WithString("transaction_id", mcp.Required(), mcp.Description("Transaction id from begin_transaction.")),
		),
		rollbackHandler(engine, logger),
	)

	s.AddTool(
		mcp.NewTool("list_transactions",
			mcp.WithDescription("List every open transaction across every connection."),
		),
		listTransactionsHandler(engine, logger),
	)
}

func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("internal error: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// sanitize logs the full error and returns a client-safe message. Every
// *dberr.Error already carries a message meant for the tool dispatcher, so
// only unexpected, un-typed errors are redacted down to a generic note.
func sanitize(logger zerolog.Logger, err error, operation string) string {
	if de, ok := dberr.As(err); ok {
		logger.Warn().Str("operation", operation).Str("kind", de.Kind.String()).Msg("tool call failed")
		return de.Error()
	}
	logger.Error().Err(err).Str("operation", operation).Msg("tool call failed with an unrecognized error")
	return operation + ": internal error (check server logs)"
}

func listConnectionsHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(ListConnectionsResponse{Connections: engine.ListConnections()})
	}
}

func listDatabasesHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dbs, err := engine.ListDatabases(ctx, connectionID)
		if err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "list_databases")), nil
		}
		return textResult(ListDatabasesResponse{Databases: dbs})
	}
}

func listTablesHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tables, err := engine.ListTables(ctx, connectionID, stringArg(args, "database"), stringArg(args, "schema"), boolArg(args, "include_views"))
		if err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "list_tables")), nil
		}
		return textResult(ListTablesResponse{Tables: tables})
	}
}

func describeTableHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		table, err := requireStringArg(args, "table")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ts, err := engine.DescribeTable(ctx, connectionID, stringArg(args, "database"), table, stringArg(args, "schema"))
		if err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "describe_table")), nil
		}
		return textResult(ts)
	}
}

func queryHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sql, err := requireStringArg(args, "sql")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		boundParams, err := paramsFromJSON(sliceArg(args, "params"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := engine.Query(ctx, sqlengine.QueryRequest{
			ConnectionID:  connectionID,
			Database:      stringArg(args, "database"),
			SQL:           sql,
			Params:        boundParams,
			Limit:         intArg(args, "limit"),
			TimeoutSecs:   intArg(args, "timeout_secs"),
			DecodeBinary:  boolArg(args, "decode_binary"),
			TransactionID: stringArg(args, "transaction_id"),
		})
		if err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "query")), nil
		}
		return textResult(result)
	}
}

func explainHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sql, err := requireStringArg(args, "sql")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		boundParams, err := paramsFromJSON(sliceArg(args, "params"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := engine.Explain(ctx, sqlengine.QueryRequest{
			ConnectionID: connectionID,
			Database:     stringArg(args, "database"),
			SQL:          sql,
			Params:       boundParams,
		})
		if err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "explain")), nil
		}
		return textResult(result)
	}
}

func executeHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sql, err := requireStringArg(args, "sql")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		boundParams, err := paramsFromJSON(sliceArg(args, "params"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := engine.Execute(ctx, sqlengine.ExecuteRequest{
			ConnectionID:              connectionID,
			Database:                  stringArg(args, "database"),
			SQL:                       sql,
			Params:                    boundParams,
			TimeoutSecs:               intArg(args, "timeout_secs"),
			TransactionID:             stringArg(args, "transaction_id"),
			DangerousOperationAllowed: boolArg(args, "dangerous_operation_allowed"),
		})
		if err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "execute")), nil
		}
		return textResult(result)
	}
}

func beginTransactionHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		txID, err := engine.BeginTransaction(ctx, connectionID, stringArg(args, "database"), intArg(args, "timeout_secs"))
		if err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "begin_transaction")), nil
		}
		return textResult(BeginTransactionResponse{TransactionID: txID})
	}
}

func commitHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		transactionID, err := requireStringArg(args, "transaction_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := engine.Commit(connectionID, transactionID); err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "commit")), nil
		}
		return textResult(StatusResponse{Status: "committed"})
	}
}

func rollbackHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		connectionID, err := requireStringArg(args, "connection_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		transactionID, err := requireStringArg(args, "transaction_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := engine.Rollback(connectionID, transactionID); err != nil {
			return mcp.NewToolResultError(sanitize(logger, err, "rollback")), nil
		}
		return textResult(StatusResponse{Status: "rolled_back"})
	}
}

func listTransactionsHandler(engine *sqlengine.Engine, logger zerolog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(ListTransactionsResponse{Transactions: engine.ListTransactions()})
	}
}
