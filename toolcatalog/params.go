// Package toolcatalog declares the MCP-facing tool surface: typed
// response records for the tools' outputs, and mcp-go
// registrations that translate a CallToolRequest's loosely-typed JSON
// arguments into sqlengine.Engine calls.
package toolcatalog

import (
	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

// paramsFromJSON converts the tool surface's loosely-typed parameter list
// (as decoded from a JSON array argument) into the engine's neutral
// QueryParam representation. A JSON null, bool, number, or string maps to
// the matching scalar kind; any other element (array, object) is passed
// through as a JSON-kind parameter.
func paramsFromJSON(raw []any) ([]dbtype.QueryParam, error) {
	out := make([]dbtype.QueryParam, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case nil:
			out = append(out, dbtype.NullParam())
		case bool:
			out = append(out, dbtype.BoolParam(val))
		case float64:
			if val == float64(int64(val)) {
				out = append(out, dbtype.IntParam(int64(val)))
			} else {
				out = append(out, dbtype.FloatParam(val))
			}
		case string:
			out = append(out, dbtype.StringParam(val))
		default:
			out = append(out, dbtype.JSONParam(val))
		}
	}
	return out, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func requireStringArg(args map[string]any, key string) (string, error) {
	s := stringArg(args, key)
	if s == "" {
		return "", dberr.InvalidInput(key + " is required")
	}
	return s, nil
}

func sliceArg(args map[string]any, key string) []any {
	v, _ := args[key].([]any)
	return v
}
