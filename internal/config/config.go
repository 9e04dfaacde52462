package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Watch contains the monitored source folders and how they are observed.
type Watch struct {
	GlassDir  string `toml:"glass_dir"`
	OrdersDir string `toml:"orders_dir"`
	// Polling replaces filesystem notifications with periodic scans; network
	// shares rarely deliver inotify events.
	Polling        bool   `toml:"polling"`
	PollInterval   int    `toml:"poll_interval"`
	StabilityMs    int    `toml:"stability_ms"`
	StartupScan    bool   `toml:"startup_scan"`
	ArchiveDirName string `toml:"archive_dir_name"`
	SkippedDirName string `toml:"skipped_dir_name"`
}

// Queue contains import queue retry and pacing settings.
type Queue struct {
	MaxRetries         int `toml:"max_retries"`
	RetryBaseDelayMs   int `toml:"retry_base_delay_ms"`
	RetryMaxDelayMs    int `toml:"retry_max_delay_ms"`
	DelayBetweenJobsMs int `toml:"delay_between_jobs_ms"`
}

// Store contains SQLite settings.
type Store struct {
	BusyTimeoutMs    int `toml:"busy_timeout_ms"`
	TxTimeoutSeconds int `toml:"tx_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	EntityChanged  bool   `toml:"entity_changed"`
	Conflicts      bool   `toml:"conflicts"`
	Errors         bool   `toml:"errors"`
	QueueDrained   bool   `toml:"queue_drained"`
}

// Authors seeds the document author to user mapping used for conflict ownership.
type Authors struct {
	Mappings map[string]int64 `toml:"mappings"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for docflow.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Watch: monitored folders, polling mode, archive/skipped folder names
//   - Queue: retry cap, backoff and pacing of the import queue
//   - Store: SQLite busy timeout and transaction timeout
//   - Notifications: ntfy push notification settings
//   - Authors: document author to user mapping seed
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
	Queue         Queue         `toml:"queue"`
	Store         Store         `toml:"store"`
	Notifications Notifications `toml:"notifications"`
	Authors       Authors       `toml:"authors"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("docflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// Watched folders live on shares that may be offline; they are created on a
// best-effort basis and reported by preflight instead.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range c.WatchDirs() {
		_ = os.MkdirAll(dir, 0o755)
	}
	return nil
}

// WatchDirs returns the configured source folders.
func (c *Config) WatchDirs() []string {
	dirs := make([]string, 0, 2)
	if c.Watch.GlassDir != "" {
		dirs = append(dirs, c.Watch.GlassDir)
	}
	if c.Watch.OrdersDir != "" {
		dirs = append(dirs, c.Watch.OrdersDir)
	}
	return dirs
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "docflow.db")
}

// SocketPath returns the daemon's IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "docflow.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "docflow.lock")
}

// PIDPath returns the daemon PID file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "docflow.pid")
}

// PollInterval returns the polling-mode scan interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollInterval) * time.Second
}

// StabilityThreshold is how long a file must stay unchanged before import.
func (c *Config) StabilityThreshold() time.Duration {
	return time.Duration(c.Watch.StabilityMs) * time.Millisecond
}

// RetryBaseDelay returns the first retry backoff.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Queue.RetryBaseDelayMs) * time.Millisecond
}

// RetryMaxDelay caps exponential retry backoff.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Queue.RetryMaxDelayMs) * time.Millisecond
}

// DelayBetweenJobs returns the pause inserted between consecutive imports.
func (c *Config) DelayBetweenJobs() time.Duration {
	return time.Duration(c.Queue.DelayBetweenJobsMs) * time.Millisecond
}

// TxTimeout bounds a single persistence transaction.
func (c *Config) TxTimeout() time.Duration {
	return time.Duration(c.Store.TxTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
