package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"docflow/internal/config"
	"docflow/internal/testsupport"
)

func TestDaemonArgs(t *testing.T) {
	got := daemonArgs(LaunchOptions{ConfigPath: " /etc/docflow.toml ", Diagnostic: true})
	want := []string{"daemon", "--config", "/etc/docflow.toml", "--diagnostic"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("daemonArgs = %v, want %v", got, want)
	}
	if got := daemonArgs(LaunchOptions{}); !reflect.DeepEqual(got, []string{"daemon"}) {
		t.Fatalf("daemonArgs without options = %v", got)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}

func TestWaitUntil(t *testing.T) {
	calls := 0
	err := waitUntil(time.Second, func() (bool, error) {
		calls++
		return calls == 2, nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("waitUntil: err=%v calls=%d", err, calls)
	}

	probeErr := errors.New("socket refused")
	err = waitUntil(0, func() (bool, error) { return false, probeErr })
	if !errors.Is(err, probeErr) {
		t.Fatalf("expected last probe error, got %v", err)
	}
	if err := waitUntil(0, func() (bool, error) { return false, nil }); !errors.Is(err, errWaitTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestDeriveDataDir(t *testing.T) {
	cfg := &config.Config{Paths: config.Paths{DataDir: "/var/lib/docflow"}}
	cases := []struct {
		lock, db string
		want     string
	}{
		{lock: "/run/docflow/docflow.lock", want: "/run/docflow"},
		{db: "/srv/docflow/docflow.db", want: "/srv/docflow"},
		{want: "/var/lib/docflow"},
	}
	for _, tc := range cases {
		if got := deriveDataDir(tc.lock, tc.db, cfg); got != tc.want {
			t.Fatalf("deriveDataDir(%q, %q) = %q, want %q", tc.lock, tc.db, got, tc.want)
		}
	}
	if got := deriveDataDir("", "", nil); got != "" {
		t.Fatalf("expected empty dir without hints, got %q", got)
	}
}

func TestReadPIDFile(t *testing.T) {
	dir := t.TempDir()
	if pid, err := readPIDFile(filepath.Join(dir, "missing.pid")); err != nil || pid != 0 {
		t.Fatalf("missing file: pid=%d err=%v", pid, err)
	}

	garbage := filepath.Join(dir, "garbage.pid")
	if err := os.WriteFile(garbage, []byte("not a pid\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if pid, err := readPIDFile(garbage); err != nil || pid != 0 {
		t.Fatalf("garbage file: pid=%d err=%v", pid, err)
	}

	valid := filepath.Join(dir, "docflow.pid")
	if err := os.WriteFile(valid, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if pid, err := readPIDFile(valid); err != nil || pid != 4242 {
		t.Fatalf("valid file: pid=%d err=%v", pid, err)
	}
}

func TestForceKillRefusesWithoutUsablePID(t *testing.T) {
	dir := t.TempDir()
	if _, err := forceKill(filepath.Join(dir, "docflow.pid"), "", 0); err == nil {
		t.Fatal("expected error without pid")
	}

	pidPath := filepath.Join(dir, "self.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := forceKill(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
	if _, err := os.Stat(pidPath); err != nil {
		t.Fatalf("pid file should survive a refused kill: %v", err)
	}
}

func TestProcessInfoWithoutSocket(t *testing.T) {
	alive, pid, err := processInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if err != nil {
		t.Fatalf("processInfo: %v", err)
	}
	if alive || pid != 0 {
		t.Fatalf("expected not alive, got alive=%v pid=%d", alive, pid)
	}
}

func TestStopAndTerminateWhenNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := StopAndTerminate(cfg.SocketPath(), cfg, 0)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustOpenStore(t, cfg)

	status, live, err := BuildStatusSnapshot(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if live || status.Running {
		t.Fatal("expected offline snapshot")
	}
	if status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("unexpected database path %q", status.DatabasePath)
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected local preflight checks")
	}
	if status.ImportStats == nil {
		t.Fatal("expected import stats from the database")
	}

	if _, _, err := BuildStatusSnapshot(context.Background(), cfg.SocketPath(), nil); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestBuildStatusSnapshotWithoutDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	status, live, err := BuildStatusSnapshot(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if live {
		t.Fatal("expected offline snapshot")
	}
	if status.ImportStats != nil || status.Conflicts.Total != 0 {
		t.Fatalf("expected empty counters without a database, got %+v / %+v", status.ImportStats, status.Conflicts)
	}
	if _, err := os.Stat(cfg.DatabasePath()); !os.IsNotExist(err) {
		t.Fatalf("offline status must not create the database, stat err=%v", err)
	}
}
