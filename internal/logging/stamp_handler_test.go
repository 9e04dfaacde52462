package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestStampHandlerAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := newStampHandler(slog.NewJSONHandler(&buf, nil),
		slog.String(FieldRunID, "20261018T080000.000Z"),
		slog.String(FieldSessionID, "diag-1"),
	)

	slog.New(handler).With("component", "importer").Info("import completed")

	output := buf.String()
	for _, fragment := range []string{`"run_id":"20261018T080000.000Z"`, `"session_id":"diag-1"`, `"component":"importer"`} {
		if !strings.Contains(output, fragment) {
			t.Errorf("expected %s in output, got: %s", fragment, output)
		}
	}
}

func TestStampHandlerSkipsBlankValues(t *testing.T) {
	base := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if got := newStampHandler(base, slog.String(FieldSessionID, "")); got != slog.Handler(base) {
		t.Errorf("expected base handler when nothing to stamp, got %T", got)
	}
	if _, ok := newStampHandler(nil, slog.String(FieldRunID, "x")).(NoopHandler); !ok {
		t.Error("expected NoopHandler for nil base")
	}
}
