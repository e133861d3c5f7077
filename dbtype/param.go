package dbtype

// ParamKind discriminates the QueryParam sum type.
type ParamKind int

const (
	ParamNull ParamKind = iota
	ParamBool
	ParamInt
	ParamFloat
	ParamString
	ParamJSON
	ParamBytes
)

// QueryParam is the neutral, backend-agnostic representation of one bound
// query parameter. Exactly one of the typed fields is meaningful, selected
// by Kind; the zero value is ParamNull.
type QueryParam struct {
	Kind  ParamKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	// JSON holds an already-decoded JSON value (map[string]any, []any,
	// string, float64, bool, or nil) for ParamJSON.
	JSON  any
	Bytes []byte
}

// NullParam is the Null variant.
func NullParam() QueryParam { return QueryParam{Kind: ParamNull} }

// BoolParam wraps a bool.
func BoolParam(b bool) QueryParam { return QueryParam{Kind: ParamBool, Bool: b} }

// IntParam wraps an int64.
func IntParam(i int64) QueryParam { return QueryParam{Kind: ParamInt, Int: i} }

// FloatParam wraps a float64.
func FloatParam(f float64) QueryParam { return QueryParam{Kind: ParamFloat, Float: f} }

// StringParam wraps a UTF-8 string.
func StringParam(s string) QueryParam { return QueryParam{Kind: ParamString, Str: s} }

// JSONParam wraps an already-decoded JSON value.
func JSONParam(v any) QueryParam { return QueryParam{Kind: ParamJSON, JSON: v} }

// BytesParam wraps a raw byte slice.
func BytesParam(b []byte) QueryParam { return QueryParam{Kind: ParamBytes, Bytes: b} }
