// Package rows implements the Row Decoder (C3): converting a
// database/sql row into an ordered, JSON-ready value per column, with the
// backend-specific type handling §4.3 requires.
package rows

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sqlbridge/dbmcp/dberr"
	"github.com/sqlbridge/dbmcp/dbtype"
)

// Column is the metadata the decoder reports for each result column.
type Column struct {
	Name     string
	TypeName string
	Nullable bool
}

// BinaryValue is the decoded shape of a BLOB/BYTEA/VARBINARY value. Base64
// tags whether Data is the raw UTF-8 text or a base64 encoding of the raw
// bytes, so a client never has to guess which it received.
type BinaryValue struct {
	Base64 bool   `json:"base64"`
	Data   string `json:"data"`
}

// Row is one decoded row, value order matching its Columns. It implements
// json.Marshaler directly because encoding/json sorts map keys
// alphabetically, which would silently break column-order preservation.
type Row struct {
	columns []Column
	values  []any
}

func (r Row) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 64*len(r.values))
	buf = append(buf, '{')
	for i, v := range r.values {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(r.columns[i].Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Get returns the decoded value for a named column, for callers that want
// typed access without a JSON round trip.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.columns {
		if c.Name == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// DecodeColumns builds column metadata from an open *sql.Rows. Call once
// per statement, before iterating rows.
func DecodeColumns(r *sql.Rows) ([]Column, error) {
	cts, err := r.ColumnTypes()
	if err != nil {
		return nil, dberr.InternalWrap(err)
	}
	cols := make([]Column, len(cts))
	for i, ct := range cts {
		nullable, ok := ct.Nullable()
		if !ok {
			// Unknown nullability is reported as nullable: a consumer
			// that checks Nullable before trusting a non-null value
			// should never be surprised by an actual NULL.
			nullable = true
		}
		cols[i] = Column{
			Name:     ct.Name(),
			TypeName: strings.ToUpper(ct.DatabaseTypeName()),
			Nullable: nullable,
		}
	}
	return cols, nil
}

// DecodeRow scans the row at the current cursor (the caller must have
// already called r.Next()) and applies the §4.3 conversion rules.
func DecodeRow(r *sql.Rows, columns []Column, backend dbtype.BackendKind, decodeBinary bool) (Row, error) {
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := r.Scan(ptrs...); err != nil {
		return Row{}, dberr.InternalWrap(err)
	}

	values := make([]any, len(columns))
	for i, col := range columns {
		v, err := convert(col, raw[i], decodeBinary)
		if err != nil {
			return Row{}, err
		}
		values[i] = v
	}
	return Row{columns: columns, values: values}, nil
}

var decimalTypes = set("DECIMAL", "NUMERIC")
var dateTimeTypes = set("DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIME", "TIMETZ")
var jsonTypes = set("JSON", "JSONB")
var binaryTypes = set("BLOB", "BINARY", "VARBINARY", "BYTEA", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB")

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// baseTypeName strips any parenthesized length/precision suffix
// (SQLite echoes the declared column type verbatim, e.g. "DECIMAL(10,2)").
func baseTypeName(typeName string) string {
	if idx := strings.IndexByte(typeName, '('); idx >= 0 {
		typeName = typeName[:idx]
	}
	return strings.TrimSpace(typeName)
}

func convert(col Column, raw any, decodeBinary bool) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch base := baseTypeName(col.TypeName); {
	case decimalTypes[base]:
		return decimalToString(raw), nil
	case dateTimeTypes[base]:
		return dateTimeToISO(raw)
	case jsonTypes[base]:
		return jsonValue(raw)
	case binaryTypes[base]:
		return binaryValue(raw, decodeBinary), nil
	default:
		return passthrough(raw), nil
	}
}

func decimalToString(raw any) string {
	switch v := raw.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// timeLayouts covers the text forms MySQL, Postgres, and SQLite drivers
// hand back for DATE/DATETIME/TIMESTAMP/TIME columns when the value
// arrives as text rather than already parsed into time.Time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04:05",
}

func dateTimeToISO(raw any) (string, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano), nil
	case []byte:
		return parseTimeText(string(v)), nil
	case string:
		return parseTimeText(v), nil
	default:
		return "", dberr.Internal(fmt.Sprintf("unexpected date/time value type %T", raw))
	}
}

func parseTimeText(s string) string {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339Nano)
		}
	}
	// A date-only or time-only value that does not fit a timestamp layout
	// is still useful to the caller verbatim rather than dropped.
	return s
}

func jsonValue(raw any) (any, error) {
	var text string
	switch v := raw.(type) {
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return nil, dberr.Internal(fmt.Sprintf("unexpected JSON value type %T", raw))
	}
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, dberr.Internal("invalid JSON column value: " + err.Error())
	}
	return parsed, nil
}

func binaryValue(raw any, decodeBinary bool) BinaryValue {
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		b = []byte(fmt.Sprintf("%v", v))
	}
	if decodeBinary && utf8.Valid(b) {
		return BinaryValue{Base64: false, Data: string(b)}
	}
	return BinaryValue{Base64: true, Data: base64.StdEncoding.EncodeToString(b)}
}

func passthrough(raw any) any {
	switch v := raw.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
