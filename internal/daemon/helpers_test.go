package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"docflow/internal/config"
	"docflow/internal/conflict"
	"docflow/internal/importer"
	"docflow/internal/importqueue"
	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/store"
	"docflow/internal/testsupport"
	"docflow/internal/watcher"
)

type recordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingNotifier) find(event notifications.Event) (notifications.Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ev := range r.events {
		if ev == event {
			return r.payloads[i], true
		}
	}
	return nil, false
}

type testDaemon struct {
	cfg      *config.Config
	store    *store.Store
	resolver *conflict.Resolver
	notifier *recordingNotifier
	daemon   *Daemon
}

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) *testDaemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return newTestDaemonWithConfig(t, cfg)
}

func newTestDaemonWithConfig(t *testing.T, cfg *config.Config) *testDaemon {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	resolver := conflict.New(st, logger)
	queue := importqueue.New(importqueue.OptionsFromConfig(cfg), logger)
	imp := importer.New(cfg, st, resolver, notifications.NewNoop(), logger)
	notifier := &recordingNotifier{}

	d, err := New(cfg, Dependencies{
		Store:    st,
		Queue:    queue,
		Jobs:     imp,
		Resolver: resolver,
		Watchers: watcher.FromConfig(cfg, queue, imp, logger),
		Notifier: notifier,
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return &testDaemon{cfg: cfg, store: st, resolver: resolver, notifier: notifier, daemon: d}
}

func (td *testDaemon) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := td.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

// inbox returns a directory outside the watched folders so only explicit
// submissions import its files.
func inbox(t *testing.T, cfg *config.Config) string {
	t.Helper()
	return filepath.Join(testsupport.BaseDir(cfg), "inbox")
}

func glassOrderText(number string) string {
	return "Data 19.11.2025  12:30\n" +
		"Numer " + number + "\n" +
		"Pilkington\n\n" +
		"Symbol\t\tIlość\t\tSzer\t\tWys\t\tPoz\t\tZlecenie\n" +
		fmt.Sprintf("4-16-4 TGI\t\t%d\t\t1200\t\t800\t\t1\t\t53479 poz.1\n", 2) +
		"W.Kania\n"
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func latestStatus(t *testing.T, st *store.Store, path string) store.ImportStatus {
	t.Helper()
	rows, err := st.ListImports(context.Background(), store.ImportFilter{Filepath: path, Limit: 1})
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(rows) == 0 {
		return ""
	}
	return rows[0].Status
}
