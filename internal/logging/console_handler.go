package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const consoleTimestampLayout = "2006-01-02 15:04:05"

// shortJobID is how many characters of a job id the console header keeps.
const shortJobID = 8

// consoleHandler writes one human-readable line per record:
//
//	2026-01-02 15:04:05 INFO importer [job 1a2b3c4d glass_order]: imported items=3
//
// component, job_id and document_type move into the header. run_id is
// dropped because it already names the log file.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	addSource bool
	preset    []field
	groups    []string
}

type field struct {
	key   string
	value slog.Value
}

// lineHeader holds the values lifted out of the trailing fields.
type lineHeader struct {
	component string
	jobID     string
	docType   string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	fields := append(make([]field, 0, len(h.preset)+record.NumAttrs()), h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.groups, attr)
		return true
	})
	header, rest := liftHeader(fields)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.Grow(128 + 24*len(rest))
	fmt.Fprintf(&buf, "%s %s ", ts.Local().Format(consoleTimestampLayout), levelLabel(record.Level))
	header.writeTo(&buf)

	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(msg)

	if h.addSource {
		if src := record.Source(); src != nil {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		buf.WriteByte(' ')
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(fieldValue(f.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

// liftHeader pulls the header keys out of fields. The first occurrence of
// each wins; the remaining fields keep their order.
func liftHeader(fields []field) (lineHeader, []field) {
	var header lineHeader
	rest := fields[:0]
	for _, f := range fields {
		var slot *string
		switch f.key {
		case FieldComponent:
			slot = &header.component
		case FieldJobID:
			slot = &header.jobID
		case FieldDocumentType:
			slot = &header.docType
		case FieldRunID, "":
			continue
		default:
			rest = append(rest, f)
			continue
		}
		if *slot == "" {
			*slot = plainValue(f.value)
		}
	}
	return header, rest
}

func (hd lineHeader) writeTo(buf *bytes.Buffer) {
	jobID := hd.jobID
	if len(jobID) > shortJobID {
		jobID = jobID[:shortJobID]
	}
	var subject string
	switch {
	case jobID != "" && hd.docType != "":
		subject = "[job " + jobID + " " + hd.docType + "]"
	case jobID != "":
		subject = "[job " + jobID + "]"
	case hd.docType != "":
		subject = "[" + hd.docType + "]"
	}

	parts := make([]string, 0, 2)
	if hd.component != "" {
		parts = append(parts, hd.component)
	}
	if subject != "" {
		parts = append(parts, subject)
	}
	if len(parts) == 0 {
		return
	}
	buf.WriteString(strings.Join(parts, " "))
	buf.WriteString(": ")
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		clone.preset = appendField(clone.preset, clone.groups, attr)
	}
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		mu:        h.mu,
		out:       h.out,
		level:     h.level,
		addSource: h.addSource,
		preset:    append([]field(nil), h.preset...),
		groups:    append([]string(nil), h.groups...),
	}
}

// appendField flattens attr (and nested groups) into dotted keys.
func appendField(dst []field, groups []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(append([]string(nil), groups...), attr.Key)
		}
		for _, child := range value.Group() {
			dst = appendField(dst, inner, child)
		}
		return dst
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	return append(dst, field{key: key, value: value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
