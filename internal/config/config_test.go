package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"docflow/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DOCFLOW_API_TOKEN", "")
	t.Setenv("DOCFLOW_NTFY_TOPIC", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "docflow")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Watch.GlassDir != filepath.Join(tempHome, "docflow", "glass") {
		t.Fatalf("unexpected glass dir: %q", cfg.Watch.GlassDir)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "docflow.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Queue.MaxRetries != 3 {
		t.Fatalf("expected 3 retries by default, got %d", cfg.Queue.MaxRetries)
	}
	if cfg.RetryBaseDelay() != 2*time.Second || cfg.RetryMaxDelay() != 30*time.Second {
		t.Fatalf("unexpected retry delays: %s %s", cfg.RetryBaseDelay(), cfg.RetryMaxDelay())
	}
	if cfg.DelayBetweenJobs() != 500*time.Millisecond {
		t.Fatalf("unexpected delay between jobs: %s", cfg.DelayBetweenJobs())
	}
	if cfg.Watch.ArchiveDirName != "archive" || cfg.Watch.SkippedDirName != "skipped" {
		t.Fatalf("unexpected folder names: %q %q", cfg.Watch.ArchiveDirName, cfg.Watch.SkippedDirName)
	}
	if !cfg.Watch.StartupScan {
		t.Fatal("expected startup scan enabled by default")
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "docflow.toml")

	type payload struct {
		Watch struct {
			GlassDir     string `toml:"glass_dir"`
			OrdersDir    string `toml:"orders_dir"`
			Polling      bool   `toml:"polling"`
			PollInterval int    `toml:"poll_interval"`
		} `toml:"watch"`
		Queue struct {
			MaxRetries int `toml:"max_retries"`
		} `toml:"queue"`
		Authors struct {
			Mappings map[string]int64 `toml:"mappings"`
		} `toml:"authors"`
	}
	custom := payload{}
	custom.Watch.GlassDir = filepath.Join(tempDir, "glass")
	custom.Watch.OrdersDir = filepath.Join(tempDir, "orders")
	custom.Watch.Polling = true
	custom.Watch.PollInterval = 15
	custom.Queue.MaxRetries = 5
	custom.Authors.Mappings = map[string]int64{"  Jan   Kowalski ": 12}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if !cfg.Watch.Polling || cfg.PollInterval() != 15*time.Second {
		t.Fatalf("expected polling every 15s, got %v %s", cfg.Watch.Polling, cfg.PollInterval())
	}
	if cfg.Queue.MaxRetries != 5 {
		t.Fatalf("expected max retries 5, got %d", cfg.Queue.MaxRetries)
	}
	if cfg.Queue.RetryBaseDelayMs != 2000 {
		t.Fatalf("expected default base delay to survive partial file, got %d", cfg.Queue.RetryBaseDelayMs)
	}
	if got := cfg.Authors.Mappings["Jan Kowalski"]; got != 12 {
		t.Fatalf("expected normalized author mapping, got %v", cfg.Authors.Mappings)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "docflow.toml")
	if err := os.WriteFile(configPath, []byte("[watch]\nglass_dirr = \"/tmp/x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "glass_dirr") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEnvFallbackForSecrets(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DOCFLOW_API_TOKEN", "env-token")
	t.Setenv("DOCFLOW_NTFY_TOPIC", "https://ntfy.example/docflow")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/docflow" {
		t.Errorf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[watch]") {
		t.Fatalf("sample config missing watch section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Watch.GlassDir, "docflow") {
		t.Fatalf("expected glass dir to contain docflow, got %q", cfg.Watch.GlassDir)
	}
	if cfg.Queue.MaxRetries != 3 {
		t.Fatalf("expected sample max_retries 3, got %d", cfg.Queue.MaxRetries)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"no watch dirs": func(c *config.Config) {
			c.Watch.GlassDir = ""
			c.Watch.OrdersDir = ""
		},
		"same watch dirs": func(c *config.Config) {
			c.Watch.OrdersDir = c.Watch.GlassDir
		},
		"archive equals skipped": func(c *config.Config) {
			c.Watch.SkippedDirName = "Archive"
		},
		"nested archive name": func(c *config.Config) {
			c.Watch.ArchiveDirName = "a/b"
		},
		"negative retries": func(c *config.Config) {
			c.Queue.MaxRetries = -1
		},
		"max below base": func(c *config.Config) {
			c.Queue.RetryMaxDelayMs = 100
		},
		"zero tx timeout": func(c *config.Config) {
			c.Store.TxTimeoutSeconds = 0
		},
		"bad author id": func(c *config.Config) {
			c.Authors.Mappings = map[string]int64{"Anna": 0}
		},
		"bad log format": func(c *config.Config) {
			c.Logging.Format = "xml"
		},
		"polling without interval": func(c *config.Config) {
			c.Watch.Polling = true
			c.Watch.PollInterval = 0
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
