package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldRunID identifies one daemon process lifetime; it matches the
	// timestamp in the per-run log file name.
	FieldRunID = "run_id"
	// FieldSessionID marks lines written during a --diagnostic run.
	FieldSessionID = "session_id"
)

// stampHandler adds a fixed set of attributes to every record it handles.
type stampHandler struct {
	base  slog.Handler
	attrs []slog.Attr
}

func newStampHandler(base slog.Handler, attrs ...slog.Attr) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	kept := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Value.String() != "" {
			kept = append(kept, attr)
		}
	}
	if len(kept) == 0 {
		return base
	}
	return &stampHandler{base: base, attrs: kept}
}

func (h *stampHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *stampHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(h.attrs...)
	return h.base.Handle(ctx, record)
}

func (h *stampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &stampHandler{base: h.base.WithAttrs(attrs), attrs: h.attrs}
}

func (h *stampHandler) WithGroup(name string) slog.Handler {
	return &stampHandler{base: h.base.WithGroup(name), attrs: h.attrs}
}
