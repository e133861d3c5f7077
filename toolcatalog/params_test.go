package toolcatalog

import (
	"testing"

	"github.com/sqlbridge/dbmcp/dbtype"
)

func TestParamsFromJSONConvertsEachJSONType(t *testing.T) {
	raw := []any{nil, true, float64(42), float64(3.5), "hello", []any{"nested"}}
	params, err := paramsFromJSON(raw)
	if err != nil {
		t.Fatalf("paramsFromJSON: %v", err)
	}
	if len(params) != 6 {
		t.Fatalf("got %d params, want 6", len(params))
	}
	if params[0].Kind != dbtype.ParamNull {
		t.Errorf("params[0].Kind = %v, want ParamNull", params[0].Kind)
	}
	if params[1].Kind != dbtype.ParamBool || !params[1].Bool {
		t.Errorf("params[1] = %+v, want BoolParam(true)", params[1])
	}
	if params[2].Kind != dbtype.ParamInt || params[2].Int != 42 {
		t.Errorf("params[2] = %+v, want IntParam(42)", params[2])
	}
	if params[3].Kind != dbtype.ParamFloat || params[3].Float != 3.5 {
		t.Errorf("params[3] = %+v, want FloatParam(3.5)", params[3])
	}
	if params[4].Kind != dbtype.ParamString || params[4].Str != "hello" {
		t.Errorf("params[4] = %+v, want StringParam(\"hello\")", params[4])
	}
	if params[5].Kind != dbtype.ParamJSON {
		t.Errorf("params[5].Kind = %v, want ParamJSON", params[5].Kind)
	}
}

func TestRequireStringArgRejectsMissingOrEmpty(t *testing.T) {
	if _, err := requireStringArg(map[string]any{}, "connection_id"); err == nil {
		t.Error("expected error for missing arg")
	}
	if _, err := requireStringArg(map[string]any{"connection_id": ""}, "connection_id"); err == nil {
		t.Error("expected error for empty string arg")
	}
	v, err := requireStringArg(map[string]any{"connection_id": "main"}, "connection_id")
	if err != nil || v != "main" {
		t.Errorf("got (%q, %v), want (\"main\", nil)", v, err)
	}
}

func TestIntArgAcceptsJSONNumberOrInt(t *testing.T) {
	if got := intArg(map[string]any{"limit": float64(250)}, "limit"); got != 250 {
		t.Errorf("intArg(float64) = %d, want 250", got)
	}
	if got := intArg(map[string]any{"limit": 250}, "limit"); got != 250 {
		t.Errorf("intArg(int) = %d, want 250", got)
	}
	if got := intArg(map[string]any{}, "limit"); got != 0 {
		t.Errorf("intArg(missing) = %d, want 0", got)
	}
}

func TestBoolArgDefaultsFalse(t *testing.T) {
	if boolArg(map[string]any{}, "include_views") {
		t.Error("expected false for missing bool arg")
	}
	if !boolArg(map[string]any{"include_views": true}, "include_views") {
		t.Error("expected true")
	}
}
