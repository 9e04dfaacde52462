package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromEnv(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "docflow.toml")
	content := "[paths]\ndata_dir = \"" + filepath.Join(base, "data") + "\"\nlog_dir = \"" + filepath.Join(base, "logs") + "\"\n\n" +
		"[watch]\norders_dir = \"" + filepath.Join(base, "orders") + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configEnv, path)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Watch.OrdersDir != filepath.Join(base, "orders") {
		t.Fatalf("unexpected orders dir %q", cfg.Watch.OrdersDir)
	}
	if cfg.DatabasePath() != filepath.Join(base, "data", "docflow.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}
