package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docflow/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
	// RunID and SessionID are stamped on every record when set.
	RunID     string
	SessionID string
}

// New constructs a slog logger using the provided options. Every record
// goes to OutputPaths (stdout when empty); ERROR records are also copied to
// ErrorOutputPaths that are not already outputs.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	addSource := opts.Development || level <= slog.LevelDebug

	build, err := handlerBuilder(opts.Format, addSource)
	if err != nil {
		return nil, err
	}

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	out, err := openSinks(outputs, nil)
	if err != nil {
		return nil, err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	handler := build(out, levelVar)

	errOut, err := openSinks(opts.ErrorOutputPaths, outputs)
	if err != nil {
		return nil, err
	}
	if errOut != nil {
		errLevel := new(slog.LevelVar)
		errLevel.Set(max(level, slog.LevelError))
		handler = teeHandler{primary: handler, secondary: build(errOut, errLevel)}
	}

	handler = newStampHandler(handler,
		slog.String(FieldRunID, strings.TrimSpace(opts.RunID)),
		slog.String(FieldSessionID, strings.TrimSpace(opts.SessionID)),
	)
	return slog.New(handler), nil
}

type buildFunc func(w io.Writer, lvl *slog.LevelVar) slog.Handler

func handlerBuilder(format string, addSource bool) (buildFunc, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return func(w io.Writer, lvl *slog.LevelVar) slog.Handler {
			return newConsoleHandler(w, lvl, addSource)
		}, nil
	case "json":
		return func(w io.Writer, lvl *slog.LevelVar) slog.Handler {
			return newJSONHandler(w, lvl, addSource)
		}, nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

// RunOptions tunes the daemon logger built by NewFromConfig. Empty fields
// fall back to the [logging] config section.
type RunOptions struct {
	RunID       string
	Level       string
	SessionID   string
	Development bool
}

// RunLogPath is the per-run daemon log file for runID inside logDir.
func RunLogPath(logDir, runID string) string {
	return filepath.Join(logDir, "docflow-"+runID+".log")
}

// NewFromConfig builds the daemon logger. Output goes to stdout/stderr and,
// when a log directory is configured, to the per-run file whose path is
// returned alongside the logger.
func NewFromConfig(cfg *config.Config, run RunOptions) (*slog.Logger, string, error) {
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console"})
		return logger, "", err
	}

	level := run.Level
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	opts := Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		Development:      run.Development,
		RunID:            run.RunID,
		SessionID:        run.SessionID,
	}

	var logPath string
	if cfg.Paths.LogDir != "" && strings.TrimSpace(run.RunID) != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, "", fmt.Errorf("ensure log directory: %w", err)
		}
		logPath = RunLogPath(cfg.Paths.LogDir, run.RunID)
		opts.OutputPaths = append(opts.OutputPaths, logPath)
	}

	logger, err := New(opts)
	if err != nil {
		return nil, "", err
	}
	return logger, logPath, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openSinks opens paths ("stdout", "stderr" or files) as one writer,
// skipping blanks, duplicates and anything listed in exclude. It returns nil
// when nothing is left.
func openSinks(paths, exclude []string) (io.Writer, error) {
	seen := make(map[string]bool, len(paths)+len(exclude))
	for _, path := range exclude {
		seen[strings.TrimSpace(path)] = true
	}
	var writers []io.Writer
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create log directory %s: %w", dir, err)
				}
			}
			file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", path, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return nil, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
