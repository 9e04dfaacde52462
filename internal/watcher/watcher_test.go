package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"docflow/internal/config"
	"docflow/internal/importer"
	"docflow/internal/importqueue"
	"docflow/internal/logging"
	"docflow/internal/testsupport"
)

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []importqueue.Job
	batches int
	inQueue map[string]bool
	err     error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{inQueue: make(map[string]bool)}
}

func (q *fakeQueue) Enqueue(job importqueue.Job) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return false, q.err
	}
	q.jobs = append(q.jobs, job)
	return true, nil
}

func (q *fakeQueue) EnqueueBatch(jobs []importqueue.Job) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	q.batches++
	q.jobs = append(q.jobs, jobs...)
	return len(jobs), nil
}

func (q *fakeQueue) IsFileInQueue(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inQueue[path]
}

func (q *fakeQueue) snapshot() []importqueue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]importqueue.Job(nil), q.jobs...)
}

type fakeFactory struct{}

func (fakeFactory) NewJob(docType importer.DocumentType, path string, correction bool, priority importqueue.Priority) importqueue.Job {
	return importqueue.Job{
		Type:     string(docType),
		Path:     path,
		Priority: priority,
		Execute: func(context.Context) importqueue.Result {
			return importqueue.Result{Success: true}
		},
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestWatcher(t *testing.T, source Source, mutate func(*config.Config)) (*Watcher, *fakeQueue, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	q := newFakeQueue()
	dir := cfg.Watch.GlassDir
	if source == SourceOrders {
		dir = cfg.Watch.OrdersDir
	}
	return New(source, dir, cfg, q, fakeFactory{}, logging.NewNop()), q, cfg
}

func TestBacklogScanSubmitsOneBatch(t *testing.T) {
	w, q, cfg := newTestWatcher(t, SourceOrders, nil)
	dir := cfg.Watch.OrdersDir
	testsupport.WriteText(t, filepath.Join(dir, "100_uzyte_bele.csv"), "x")
	testsupport.WriteText(t, filepath.Join(dir, "101_uzyte_bele_korekta.csv"), "x")
	testsupport.WriteText(t, filepath.Join(dir, "notes.txt"), "x")
	testsupport.WriteText(t, filepath.Join(dir, "archive", "99_uzyte_bele.csv"), "x")

	w.backlogScan()

	jobs := q.snapshot()
	if q.batches != 1 || len(jobs) != 2 {
		t.Fatalf("expected one batch with 2 jobs, got %d batches %d jobs", q.batches, len(jobs))
	}
	priorities := map[string]importqueue.Priority{}
	for _, job := range jobs {
		priorities[filepath.Base(job.Path)] = job.Priority
	}
	if priorities["100_uzyte_bele.csv"] != importqueue.BacklogScan {
		t.Fatalf("expected backlog priority, got %v", priorities)
	}
	if priorities["101_uzyte_bele_korekta.csv"] != importqueue.Correction {
		t.Fatalf("expected correction to keep its priority, got %v", priorities)
	}
	if status := w.Status(); status.Submitted != 2 || status.LastScan.IsZero() {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestNotifyModeSubmitsNewFiles(t *testing.T) {
	w, q, cfg := newTestWatcher(t, SourceGlass, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(cfg.Watch.GlassDir, "ZAM-1.txt")
	testsupport.WriteText(t, path, "Numer ZAM-1\n")

	waitFor(t, 3*time.Second, func() bool { return len(q.snapshot()) == 1 })
	job := q.snapshot()[0]
	if job.Path != path || job.Type != string(importer.GlassOrder) || job.Priority != importqueue.FreshArrival {
		t.Fatalf("unexpected job: %+v", job)
	}
	if status := w.Status(); !status.Running || status.Mode != ModeNotify {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestStabilityWindowDelaysSubmission(t *testing.T) {
	w, q, cfg := newTestWatcher(t, SourceGlass, func(c *config.Config) {
		c.Watch.StabilityMs = 300
	})
	path := filepath.Join(cfg.Watch.GlassDir, "ZAM-2.txt")
	testsupport.WriteText(t, path, "Numer ZAM-2\n")

	w.observe(path)
	w.settle()
	if len(q.snapshot()) != 0 {
		t.Fatal("file submitted before the stability window elapsed")
	}
	if w.Status().Settling != 1 {
		t.Fatalf("expected file to be settling, got %+v", w.Status())
	}

	time.Sleep(350 * time.Millisecond)
	w.settle()
	if len(q.snapshot()) != 1 {
		t.Fatalf("expected submission after stability window, got %d jobs", len(q.snapshot()))
	}
}

func TestPollScanSkipsUnchangedFiles(t *testing.T) {
	w, q, cfg := newTestWatcher(t, SourceGlass, func(c *config.Config) {
		c.Watch.Polling = true
		c.Watch.PollInterval = 1
	})
	if w.mode != ModePolling {
		t.Fatalf("expected polling mode, got %s", w.mode)
	}
	path := filepath.Join(cfg.Watch.GlassDir, "stojak.csv")
	testsupport.WriteText(t, path, "a")

	w.pollScan()
	w.pollScan()
	if got := len(q.snapshot()); got != 1 {
		t.Fatalf("expected a single submission for an unchanged file, got %d", got)
	}

	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	w.pollScan()
	if got := len(q.snapshot()); got != 2 {
		t.Fatalf("expected modified file to be submitted again, got %d", got)
	}
}

func TestSubmitSkipsFilesAlreadyQueued(t *testing.T) {
	w, q, cfg := newTestWatcher(t, SourceGlass, nil)
	path := filepath.Join(cfg.Watch.GlassDir, "ZAM-3.txt")
	testsupport.WriteText(t, path, "x")
	q.inQueue[path] = true

	w.submit(path, importqueue.FreshArrival)
	if len(q.snapshot()) != 0 {
		t.Fatal("expected queued path to be ignored")
	}
}

func TestEnqueueErrorIsRecorded(t *testing.T) {
	w, q, cfg := newTestWatcher(t, SourceGlass, nil)
	q.err = errors.New("import queue is not running")
	path := filepath.Join(cfg.Watch.GlassDir, "ZAM-4.txt")
	testsupport.WriteText(t, path, "x")

	w.observe(path)
	if status := w.Status(); status.LastError == "" {
		t.Fatalf("expected last error, got %+v", status)
	}
	q.mu.Lock()
	q.err = nil
	q.mu.Unlock()
	w.observe(path)
	if len(q.snapshot()) != 1 {
		t.Fatal("expected file to be retried after a failed enqueue")
	}
}

func TestStartFailsForMissingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	w := New(SourceGlass, filepath.Join(testsupport.BaseDir(cfg), "missing"), cfg, newFakeQueue(), fakeFactory{}, logging.NewNop())
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestFromConfigBuildsWatcherPerFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	watchers := FromConfig(cfg, newFakeQueue(), fakeFactory{}, logging.NewNop())
	if len(watchers) != 2 || watchers[0].Source() != SourceGlass || watchers[1].Source() != SourceOrders {
		t.Fatalf("unexpected watchers: %d", len(watchers))
	}
}
