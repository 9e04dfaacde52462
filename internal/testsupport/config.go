package testsupport

import (
	"path/filepath"
	"testing"

	"docflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Queue delays are zeroed so retry paths finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Watch.GlassDir = filepath.Join(base, "glass")
	cfgVal.Watch.OrdersDir = filepath.Join(base, "orders")
	cfgVal.Watch.StabilityMs = 0
	cfgVal.Queue.RetryBaseDelayMs = 1
	cfgVal.Queue.RetryMaxDelayMs = 5
	cfgVal.Queue.DelayBetweenJobsMs = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMaxRetries overrides the import queue retry cap.
func WithMaxRetries(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.MaxRetries = n
	}
}

// WithAuthor seeds a document author mapping.
func WithAuthor(name string, userID int64) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Authors.Mappings == nil {
			b.cfg.Authors.Mappings = make(map[string]int64)
		}
		b.cfg.Authors.Mappings[name] = userID
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
