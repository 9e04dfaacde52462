package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docflow/internal/config"
	"docflow/internal/importer"
	"docflow/internal/importqueue"
	"docflow/internal/logging"
	"docflow/internal/services"
)

// Queue is the subset of the import queue a watcher submits to.
type Queue interface {
	Enqueue(job importqueue.Job) (bool, error)
	EnqueueBatch(jobs []importqueue.Job) (int, error)
	IsFileInQueue(path string) bool
}

// JobFactory builds queue jobs for classified files.
type JobFactory interface {
	NewJob(docType importer.DocumentType, path string, correction bool, priority importqueue.Priority) importqueue.Job
}

// Mode is how a watcher learns about new files.
type Mode string

const (
	ModeNotify  Mode = "fsnotify"
	ModePolling Mode = "polling"
)

const minSettleTick = 50 * time.Millisecond

// Status is a point-in-time view of one watcher.
type Status struct {
	Source    Source    `json:"source"`
	Dir       string    `json:"dir"`
	Mode      Mode      `json:"mode"`
	Running   bool      `json:"running"`
	LastScan  time.Time `json:"lastScan,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	Submitted int       `json:"submitted"`
	Settling  int       `json:"settling"`
}

type fileState struct {
	size    int64
	modTime time.Time
	since   time.Time
}

// Watcher monitors one source folder.
type Watcher struct {
	source       Source
	dir          string
	mode         Mode
	pollInterval time.Duration
	stability    time.Duration
	startupScan  bool
	queue        Queue
	jobs         JobFactory
	logger       *slog.Logger
	now          func() time.Time

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	settling  map[string]fileState
	submitted map[string]time.Time
	lastScan  time.Time
	lastError string
	count     int
}

// New constructs a watcher for dir.
func New(source Source, dir string, cfg *config.Config, queue Queue, jobs JobFactory, logger *slog.Logger) *Watcher {
	mode := ModeNotify
	if cfg.Watch.Polling {
		mode = ModePolling
	}
	poll := cfg.PollInterval()
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &Watcher{
		source:       source,
		dir:          filepath.Clean(dir),
		mode:         mode,
		pollInterval: poll,
		stability:    cfg.StabilityThreshold(),
		startupScan:  cfg.Watch.StartupScan,
		queue:        queue,
		jobs:         jobs,
		logger:       logging.NewComponentLogger(logger, "watcher").With(logging.String(logging.FieldSource, string(source))),
		now:          time.Now,
		settling:     make(map[string]fileState),
		submitted:    make(map[string]time.Time),
	}
}

// FromConfig builds one watcher per configured source folder.
func FromConfig(cfg *config.Config, queue Queue, jobs JobFactory, logger *slog.Logger) []*Watcher {
	var watchers []*Watcher
	if cfg.Watch.GlassDir != "" {
		watchers = append(watchers, New(SourceGlass, cfg.Watch.GlassDir, cfg, queue, jobs, logger))
	}
	if cfg.Watch.OrdersDir != "" {
		watchers = append(watchers, New(SourceOrders, cfg.Watch.OrdersDir, cfg, queue, jobs, logger))
	}
	return watchers
}

// Source returns the folder kind this watcher serves.
func (w *Watcher) Source() Source { return w.source }

// Dir returns the watched folder.
func (w *Watcher) Dir() string { return w.dir }

// Start runs the backlog scan and begins watching. It fails when the folder
// cannot be listed or subscribed to.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}
	info, err := os.Stat(w.dir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "watcher", "start", w.dir, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "watcher", "start", fmt.Sprintf("%s is not a directory", w.dir), nil)
	}

	var notify *fsnotify.Watcher
	if w.mode == ModeNotify {
		notify, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create fsnotify watcher: %w", err)
		}
		if err := notify.Add(w.dir); err != nil {
			notify.Close()
			return fmt.Errorf("watch %s: %w", w.dir, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx, notify)

	w.logger.Info("watching source folder",
		logging.String(logging.FieldEventType, "watcher_started"),
		logging.String("dir", w.dir),
		logging.String("mode", string(w.mode)),
		logging.Duration("stability", w.stability),
	)
	return nil
}

// Stop halts the watcher and waits for its goroutine.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// Status reports the watcher's current state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Source:    w.source,
		Dir:       w.dir,
		Mode:      w.mode,
		Running:   w.running,
		LastScan:  w.lastScan,
		LastError: w.lastError,
		Submitted: w.count,
		Settling:  len(w.settling),
	}
}

func (w *Watcher) loop(ctx context.Context, notify *fsnotify.Watcher) {
	defer w.wg.Done()
	if notify != nil {
		defer notify.Close()
	}

	if w.startupScan {
		w.backlogScan()
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
		pollC  <-chan time.Time
	)
	if notify != nil {
		events, errs = notify.Events, notify.Errors
	} else {
		poll := time.NewTicker(w.pollInterval)
		defer poll.Stop()
		pollC = poll.C
	}
	tick := w.stability / 2
	if tick < minSettleTick {
		tick = minSettleTick
	}
	settle := time.NewTicker(tick)
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.recordError("fsnotify error", err)
		case <-pollC:
			w.pollScan()
		case <-settle.C:
			w.settle()
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if filepath.Dir(path) != w.dir {
		return
	}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.observe(path)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.settling, path)
		delete(w.submitted, path)
		w.mu.Unlock()
	}
}

// observe starts or refreshes the stability window for path.
func (w *Watcher) observe(path string) {
	if _, ok := Classify(w.source, path); !ok {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	w.mu.Lock()
	if last, ok := w.submitted[path]; ok && last.Equal(info.ModTime()) {
		w.mu.Unlock()
		return
	}
	prev, tracked := w.settling[path]
	if !tracked || prev.size != info.Size() || !prev.modTime.Equal(info.ModTime()) {
		w.settling[path] = fileState{size: info.Size(), modTime: info.ModTime(), since: w.now()}
	}
	w.mu.Unlock()
	if w.stability <= 0 {
		w.settle()
	}
}

// settle submits files whose size and mtime held still for the stability window.
func (w *Watcher) settle() {
	now := w.now()
	var ready []string
	w.mu.Lock()
	for path, state := range w.settling {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.settling, path)
			continue
		}
		if info.Size() != state.size || !info.ModTime().Equal(state.modTime) {
			w.settling[path] = fileState{size: info.Size(), modTime: info.ModTime(), since: now}
			continue
		}
		if now.Sub(state.since) >= w.stability {
			delete(w.settling, path)
			w.submitted[path] = state.modTime
			ready = append(ready, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		w.submit(path, importqueue.FreshArrival)
	}
}

func (w *Watcher) submit(path string, priority importqueue.Priority) {
	class, ok := Classify(w.source, path)
	if !ok {
		return
	}
	if w.queue.IsFileInQueue(path) {
		return
	}
	if class.Correction {
		priority = importqueue.Correction
	}
	accepted, err := w.queue.Enqueue(w.jobs.NewJob(class.DocumentType, path, class.Correction, priority))
	if err != nil {
		w.forget(path)
		w.recordError("enqueue failed", err)
		return
	}
	if accepted {
		w.mu.Lock()
		w.count++
		w.mu.Unlock()
		w.logger.Info("document submitted",
			logging.String(logging.FieldEventType, "document_detected"),
			logging.String(logging.FieldDocumentType, string(class.DocumentType)),
			logging.Path(path),
			logging.String("priority", priority.String()),
		)
	}
}

// backlogScan submits every qualifying file already in the folder as one batch.
func (w *Watcher) backlogScan() {
	entries, err := w.list()
	if err != nil {
		w.recordError("backlog scan failed", err)
		return
	}
	jobs := make([]importqueue.Job, 0, len(entries))
	w.mu.Lock()
	for _, e := range entries {
		priority := importqueue.BacklogScan
		if e.class.Correction {
			priority = importqueue.Correction
		}
		jobs = append(jobs, w.jobs.NewJob(e.class.DocumentType, e.path, e.class.Correction, priority))
		w.submitted[e.path] = e.modTime
	}
	w.lastScan = w.now()
	w.mu.Unlock()

	if len(jobs) == 0 {
		return
	}
	accepted, err := w.queue.EnqueueBatch(jobs)
	if err != nil {
		for _, e := range entries {
			w.forget(e.path)
		}
		w.recordError("backlog enqueue failed", err)
		return
	}
	w.mu.Lock()
	w.count += accepted
	w.mu.Unlock()
	w.logger.Info("backlog scan submitted documents",
		logging.String(logging.FieldEventType, "backlog_scan"),
		logging.Int("found", len(jobs)),
		logging.Int("accepted", accepted),
	)
}

// pollScan feeds new or modified files into the stability window and forgets
// files that left the folder.
func (w *Watcher) pollScan() {
	entries, err := w.list()
	if err != nil {
		w.recordError("poll scan failed", err)
		return
	}
	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		present[e.path] = struct{}{}
	}
	w.mu.Lock()
	for path := range w.submitted {
		if _, ok := present[path]; !ok {
			delete(w.submitted, path)
		}
	}
	w.lastScan = w.now()
	w.mu.Unlock()

	for _, e := range entries {
		w.observe(e.path)
	}
}

type listedFile struct {
	path    string
	modTime time.Time
	class   Classification
}

func (w *Watcher) list() ([]listedFile, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	files := make([]listedFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		class, ok := Classify(w.source, path)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, listedFile{path: path, modTime: info.ModTime(), class: class})
	}
	return files, nil
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.submitted, path)
	w.mu.Unlock()
}

func (w *Watcher) recordError(msg string, err error) {
	w.mu.Lock()
	w.lastError = err.Error()
	w.mu.Unlock()
	logging.WarnWithContext(w.logger, msg, "watcher_error",
		logging.String("dir", w.dir),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the share is mounted and readable"),
		logging.String(logging.FieldImpact, "new documents in this folder may be picked up late"),
	)
}
