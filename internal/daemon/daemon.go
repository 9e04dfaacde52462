package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"docflow/internal/api"
	"docflow/internal/config"
	"docflow/internal/conflict"
	"docflow/internal/importer"
	"docflow/internal/importqueue"
	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/preflight"
	"docflow/internal/services"
	"docflow/internal/store"
	"docflow/internal/watcher"
)

// JobFactory builds queue jobs for classified files.
type JobFactory interface {
	NewJob(docType importer.DocumentType, path string, correction bool, priority importqueue.Priority) importqueue.Job
}

// Dependencies are the collaborators the composition root hands to New.
type Dependencies struct {
	Store    *store.Store
	Queue    *importqueue.Queue
	Jobs     JobFactory
	Resolver *conflict.Resolver
	Watchers []*watcher.Watcher
	Notifier notifications.Service
}

// Daemon coordinates the background import services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	queue    *importqueue.Queue
	jobs     JobFactory
	review   *api.ReviewService
	watchers []*watcher.Watcher
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu     sync.Mutex
	checks []preflight.Result

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Queue        api.QueueStats
	Watchers     []api.WatcherStatus
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Queue == nil || deps.Jobs == nil || deps.Resolver == nil {
		return nil, errors.New("daemon requires config, store, queue, job factory, and conflict resolver")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    deps.Store,
		queue:    deps.Queue,
		jobs:     deps.Jobs,
		review:   api.NewReviewService(deps.Store, deps.Resolver),
		watchers: deps.Watchers,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.queue.Subscribe(d.handleQueueEvent)

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock, then launches the queue, the watchers and
// the HTTP API. A watcher whose folder is unavailable is reported and skipped.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another docflow daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.queue.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start import queue: %w", err)
	}

	d.runChecks(d.ctx)

	for _, w := range d.watchers {
		if err := w.Start(d.ctx); err != nil {
			logging.WarnWithContext(d.logger, "watcher not started", "watcher_start_failed",
				logging.String(logging.FieldSource, string(w.Source())),
				logging.String("dir", w.Dir()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "files in this folder are not imported until the daemon restarts"),
				logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			)
		}
	}

	if err := d.api.start(d.ctx); err != nil {
		d.stopWatchers()
		d.queue.Stop()
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("docflow daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.Int("watchers", len(d.watchers)),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock. The
// in-flight import is cancelled; queued jobs are dropped and rediscovered by
// the next startup scan.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.stopWatchers()
	d.queue.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("docflow daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

func (d *Daemon) stopWatchers() {
	for _, w := range d.watchers {
		w.Stop()
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded without a matching Stop.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) runChecks(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg)
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
		)
	}
	d.mu.Lock()
	d.checks = results
	d.mu.Unlock()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	running := d.running.Load()
	stats, err := d.queue.Stats()
	if err != nil {
		stats = importqueue.Stats{}
	}
	statuses := make([]watcher.Status, 0, len(d.watchers))
	for _, w := range d.watchers {
		statuses = append(statuses, w.Status())
	}
	d.mu.Lock()
	checks := append([]preflight.Result(nil), d.checks...)
	d.mu.Unlock()

	return Status{
		Running:      running,
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Queue:        api.FromQueueStats(stats, d.queue.Running()),
		Watchers:     api.FromWatcherStatuses(statuses),
		Checks:       checks,
	}
}

// DaemonStatus assembles the API status payload including ledger and
// conflict counters.
func (d *Daemon) DaemonStatus(ctx context.Context) (api.DaemonStatus, error) {
	status := d.Status(ctx)
	importStats, err := d.review.ImportStats(ctx)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	conflicts, err := d.review.CountConflicts(ctx, nil)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Queue:        status.Queue,
		Watchers:     status.Watchers,
		Checks:       api.FromChecks(status.Checks),
		ImportStats:  importStats,
		Conflicts:    conflicts,
	}, nil
}

// Review returns the ledger and conflict service.
func (d *Daemon) Review() *api.ReviewService {
	return d.review
}

// QueueStats returns live queue counters.
func (d *Daemon) QueueStats() (api.QueueStats, error) {
	stats, err := d.queue.Stats()
	if err != nil {
		return api.QueueStats{}, err
	}
	return api.FromQueueStats(stats, true), nil
}

// QueueSnapshot lists queued jobs in execution order.
func (d *Daemon) QueueSnapshot() (api.QueueSnapshot, error) {
	snap, err := d.queue.Snapshot()
	if err != nil {
		return api.QueueSnapshot{}, err
	}
	return api.FromSnapshot(snap), nil
}

// PauseQueue stops dispatching new imports.
func (d *Daemon) PauseQueue() error {
	return d.queue.Pause()
}

// ResumeQueue re-enables dispatching.
func (d *Daemon) ResumeQueue() error {
	return d.queue.Resume()
}

// ClearQueue drops pending and retrying jobs.
func (d *Daemon) ClearQueue() (int, error) {
	return d.queue.Clear()
}

// AddFile classifies a file and enqueues it for import. Files inside a
// watched folder are classified for that folder; other files are tried as
// order documents first and then as glass documents.
func (d *Daemon) AddFile(ctx context.Context, sourcePath string) (api.AddFileResult, error) {
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return api.AddFileResult{}, services.Wrap(services.ErrValidation, "daemon", "add file", "source path is required", nil)
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return api.AddFileResult{}, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return api.AddFileResult{}, services.Wrap(services.ErrNotFound, "daemon", "add file", absPath, err)
	}
	if info.IsDir() {
		return api.AddFileResult{}, services.Wrap(services.ErrValidation, "daemon", "add file", fmt.Sprintf("%q is a directory", absPath), nil)
	}

	class, ok := d.classify(absPath)
	if !ok {
		return api.AddFileResult{}, services.Wrap(services.ErrValidation, "daemon", "add file",
			fmt.Sprintf("%s is not a recognized document", filepath.Base(absPath)), nil)
	}
	priority := importqueue.FreshArrival
	if class.Correction {
		priority = importqueue.Correction
	}

	result := api.AddFileResult{
		Path:         absPath,
		DocumentType: string(class.DocumentType),
		Priority:     priority.String(),
	}
	queued, err := d.queue.Enqueue(d.jobs.NewJob(class.DocumentType, absPath, class.Correction, priority))
	if err != nil {
		return api.AddFileResult{}, err
	}
	result.Queued = queued
	if queued {
		result.Message = "file queued for import"
	} else {
		result.Message = "file is already queued"
	}
	d.logger.Info("manual file submitted",
		logging.String(logging.FieldEventType, "manual_add"),
		logging.String(logging.FieldDocumentType, result.DocumentType),
		logging.Path(absPath),
		logging.Bool("queued", queued),
		logging.String(logging.FieldCorrelationID, requestID(ctx)),
	)
	return result, nil
}

func (d *Daemon) classify(path string) (watcher.Classification, bool) {
	dir := filepath.Dir(path)
	for _, w := range d.watchers {
		if w.Dir() == dir {
			return watcher.Classify(w.Source(), path)
		}
	}
	for _, source := range []watcher.Source{watcher.SourceOrders, watcher.SourceGlass} {
		if class, ok := watcher.Classify(source, path); ok {
			return class, true
		}
	}
	return watcher.Classification{}, false
}

// SetAuthor maps a document author to a user id.
func (d *Daemon) SetAuthor(ctx context.Context, name string, userID int64) error {
	if userID <= 0 {
		return services.Wrap(services.ErrValidation, "daemon", "set author", "user id must be positive", nil)
	}
	return d.store.UpsertAuthorMapping(ctx, name, userID)
}

// ListAuthors returns every author mapping.
func (d *Daemon) ListAuthors(ctx context.Context) ([]api.AuthorMapping, error) {
	mappings, err := d.store.ListAuthorMappings(ctx)
	if err != nil {
		return nil, err
	}
	return api.FromAuthorMappings(mappings), nil
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (api.DatabaseHealth, error) {
	health, err := d.store.CheckHealth(ctx)
	return api.FromDatabaseHealth(health), err
}

// TestNotification sends a test notification synchronously using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) handleQueueEvent(ev importqueue.Event) {
	switch ev.Type {
	case importqueue.EventJobFailed:
		if ev.Job == nil {
			return
		}
		message := "unknown"
		if ev.Err != nil {
			message = ev.Err.Error()
		}
		d.publish(notifications.EventImportFailed, notifications.Payload{
			"filename":     filepath.Base(ev.Job.Path),
			"documentType": ev.Job.Type,
			"error":        message,
		})
	case importqueue.EventQueueEmpty:
		stats, err := d.queue.Stats()
		if err != nil {
			return
		}
		d.publish(notifications.EventQueueDrained, notifications.Payload{
			"completed": stats.Completed,
			"failed":    stats.Failed,
		})
	}
}

func (d *Daemon) publish(event notifications.Event, payload notifications.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operators were not alerted"),
		)
	}
}

func requestID(ctx context.Context) string {
	id, _ := services.RequestIDFromContext(ctx)
	return id
}

// APIAddr returns the HTTP API listen address, or "" when it is disabled.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}
