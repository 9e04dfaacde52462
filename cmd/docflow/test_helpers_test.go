package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docflow/internal/config"
	"docflow/internal/conflict"
	"docflow/internal/daemon"
	"docflow/internal/importer"
	"docflow/internal/importqueue"
	"docflow/internal/ipc"
	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/store"
	"docflow/internal/testsupport"
	"docflow/internal/watcher"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	resolver   *conflict.Resolver
	daemon     *daemon.Daemon
	socketPath string
	configPath string
	baseDir    string
}

// setupOfflineEnv writes a config file and creates the database without
// serving IPC, so commands exercise the direct-store fallback.
func setupOfflineEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithAuthor("Anna Nowak", 11))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	st := testsupport.MustOpenStore(t, cfg)
	return &cliTestEnv{
		cfg:        cfg,
		store:      st,
		resolver:   conflict.New(st, logging.NewNop()),
		socketPath: cfg.SocketPath(),
		configPath: configPath,
		baseDir:    base,
	}
}

// setupCLITestEnv additionally runs a started daemon behind an IPC socket.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	env := setupOfflineEnv(t)
	cfg := env.cfg

	logger := logging.NewNop()
	queue := importqueue.New(importqueue.OptionsFromConfig(cfg), logger)
	imp := importer.New(cfg, env.store, env.resolver, notifications.NewNoop(), logger)
	d, err := daemon.New(cfg, daemon.Dependencies{
		Store:    env.store,
		Queue:    queue,
		Jobs:     imp,
		Resolver: env.resolver,
		Watchers: watcher.FromConfig(cfg, queue, imp, logger),
		Notifier: notifications.NewNoop(),
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, env.socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
	})

	env.daemon = d
	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, env.socketPath, env.configPath)
	return out, err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\n\n", cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.APIBind)
	fmt.Fprintf(&b, "[watch]\nglass_dir = %q\norders_dir = %q\nstability_ms = %d\n\n", cfg.Watch.GlassDir, cfg.Watch.OrdersDir, cfg.Watch.StabilityMs)
	fmt.Fprintf(&b, "[queue]\nretry_base_delay_ms = %d\nretry_max_delay_ms = %d\ndelay_between_jobs_ms = %d\n\n",
		cfg.Queue.RetryBaseDelayMs, cfg.Queue.RetryMaxDelayMs, cfg.Queue.DelayBetweenJobsMs)
	b.WriteString("[authors.mappings]\n")
	for name, id := range cfg.Authors.Mappings {
		fmt.Fprintf(&b, "%q = %d\n", name, id)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func recordConflict(t *testing.T, env *cliTestEnv, number, base, author string) *store.Conflict {
	t.Helper()
	c, _, err := env.resolver.Record(context.Background(), conflict.Candidate{
		OrderNumber:     number,
		BaseOrderNumber: base,
		Suffix:          strings.TrimPrefix(number, base+"-"),
		DocumentAuthor:  author,
		Filepath:        filepath.Join(env.cfg.Watch.OrdersDir, number+"_uzyte_bele.csv"),
		Filename:        number + "_uzyte_bele.csv",
		Parsed:          map[string]any{"orderNumber": number},
		ExistingWindows: 4,
		ExistingGlasses: 6,
		NewWindows:      4,
		NewGlasses:      6,
	})
	if err != nil {
		t.Fatalf("record conflict: %v", err)
	}
	return c
}

const glassOrderText = "Data 19.11.2025  12:30\n" +
	"Numer ZAM-2025-077\n" +
	"Pilkington\n\n" +
	"Symbol\t\tIlość\t\tSzer\t\tWys\t\tPoz\t\tZlecenie\n" +
	"4-16-4 TGI\t\t2\t\t1200\t\t800\t\t1\t\t53479 poz.1\n" +
	"W.Kania\n"

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
