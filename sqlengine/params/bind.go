// Package params implements the Parameter Binder (C2): mapping the
// neutral dbtype.QueryParam sum type onto the positional argument slice a
// database/sql call expects. It never touches SQL text — placeholders stay
// backend-native (`?`, `$1`, …) and are written by the caller, passed
// through verbatim.
package params

import (
	"encoding/json"
	"strconv"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

// Bind converts a parameter list into the []any argument slice passed to
// *sql.DB/*sql.Tx Query/Exec, in the same order as the params.
func Bind(backend dbtype.BackendKind, ps []dbtype.QueryParam) ([]any, error) {
	out := make([]any, len(ps))
	for i, p := range ps {
		v, err := bindOne(backend, p)
		if err != nil {
			return nil, dberr.InvalidInput("parameter " + strconv.Itoa(i) + ": " + err.Error())
		}
		out[i] = v
	}
	return out, nil
}

func bindOne(backend dbtype.BackendKind, p dbtype.QueryParam) (any, error) {
	switch p.Kind {
	case dbtype.ParamNull:
		return nil, nil
	case dbtype.ParamBool:
		return p.Bool, nil
	case dbtype.ParamInt:
		return p.Int, nil
	case dbtype.ParamFloat:
		return p.Float, nil
	case dbtype.ParamString:
		return p.Str, nil
	case dbtype.ParamBytes:
		return p.Bytes, nil
	case dbtype.ParamJSON:
		encoded, err := json.Marshal(p.JSON)
		if err != nil {
			return nil, err
		}
		// Every backend here accepts the JSON text form for its native
		// JSON/JSONB column: MySQL and Postgres infer the target type
		// from the column the parameter is bound against, and SQLite has
		// no native JSON type so the string form is stored directly.
		return string(encoded), nil
	default:
		return nil, dberr.InvalidInput("unknown parameter kind")
	}
}
