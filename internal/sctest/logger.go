package sctest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a logger that routes through t.Log,
// so that output is printed only on test failure
// and is associated with the correct (sub)test.
func NewLogger(t testing.TB) *slog.Logger {
	return slogt.New(t)
}
