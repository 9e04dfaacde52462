package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docflow/internal/config"
	"docflow/internal/logging"
	"docflow/internal/services"
)

func TestNewFromConfigWritesRunLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, logPath, err := logging.NewFromConfig(&cfg, logging.RunOptions{RunID: "20261018T101500.000Z"})
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if want := filepath.Join(cfg.Paths.LogDir, "docflow-20261018T101500.000Z.log"); logPath != want {
		t.Fatalf("log path = %q, want %q", logPath, want)
	}
	logger.Info("hello", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"msg":"hello"`) || !strings.Contains(text, `"run_id":"20261018T101500.000Z"`) {
		t.Fatalf("unexpected json log content %q", content)
	}
}

func TestNewFromConfigLevelOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"

	logger, logPath, err := logging.NewFromConfig(&cfg, logging.RunOptions{RunID: "run", Level: "debug"})
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("probe")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"probe"`) {
		t.Fatalf("expected debug record with level override, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "0123456789abcdef")
	ctx = services.WithDocumentType(ctx, "glass_order")
	component := logging.NewComponentLogger(logger, "importer")
	logging.WithContext(ctx, component).Info("imported", logging.Int("items", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO importer [job 01234567 glass_order]: imported", "items=3"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestRunAndSessionIDOptions(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "session.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}, RunID: "20261018T080000.000Z", SessionID: "run-42"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("started")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"session_id":"run-42"`) {
		t.Fatalf("expected session id in %q", content)
	}
	if !strings.Contains(string(content), `"run_id":"20261018T080000.000Z"`) {
		t.Fatalf("expected run id in %q", content)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "archive failed", "archive_failed", logging.String(logging.FieldImpact, "file left in place"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{`"event_type":"archive_failed"`, "\"error_hint\":\"run `docflow logs --grep archive_failed` for surrounding entries\"", `"impact":"file left in place"`} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestErrorOutputReceivesOnlyErrors(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.log")
	errPath := filepath.Join(dir, "errors.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		OutputPaths:      []string{mainPath},
		ErrorOutputPaths: []string{errPath, mainPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("routine")
	logger.Error("broken")

	mainContent, err := os.ReadFile(mainPath)
	if err != nil {
		t.Fatalf("read main log: %v", err)
	}
	if strings.Count(string(mainContent), "\n") != 2 {
		t.Fatalf("expected both records once in main log, got %q", mainContent)
	}
	errContent, err := os.ReadFile(errPath)
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	if strings.Contains(string(errContent), "routine") || !strings.Contains(string(errContent), "ERROR broken") {
		t.Fatalf("unexpected error log %q", errContent)
	}
}
