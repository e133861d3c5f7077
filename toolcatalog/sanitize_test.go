package toolcatalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sqlbridge/dbmcp/dberr"
)

func TestSanitizePassesThroughDBErrMessage(t *testing.T) {
	err := dberr.InvalidInput("sql must not be empty")
	msg := sanitize(zerolog.Nop(), err, "query")
	if !strings.Contains(msg, "sql must not be empty") {
		t.Errorf("sanitize() = %q, want it to contain the dberr message", msg)
	}
}

func TestSanitizeRedactsUnrecognizedErrors(t *testing.T) {
	msg := sanitize(zerolog.Nop(), errors.New("driver panic at offset 42"), "query")
	if strings.Contains(msg, "offset 42") {
		t.Errorf("sanitize() = %q, leaked internal error detail", msg)
	}
	if !strings.Contains(msg, "internal error") {
		t.Errorf("sanitize() = %q, want a generic internal-error message", msg)
	}
}
