package importqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docflow/internal/config"
	"docflow/internal/logging"
)

var (
	// ErrNotRunning is returned by operations issued before Start or after Stop.
	ErrNotRunning = errors.New("import queue is not running")
	// ErrInvalidJob rejects jobs without a path or an Execute function.
	ErrInvalidJob = errors.New("invalid import job")
)

const eventBuffer = 256

// Options tunes retry and pacing behaviour.
type Options struct {
	MaxRetries       int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	DelayBetweenJobs time.Duration
}

// OptionsFromConfig reads the [queue] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRetries:       cfg.Queue.MaxRetries,
		RetryBaseDelay:   cfg.RetryBaseDelay(),
		RetryMaxDelay:    cfg.RetryMaxDelay(),
		DelayBetweenJobs: cfg.DelayBetweenJobs(),
	}
}

// backoff returns the wait before retry number attempt (1-based): the base
// delay doubled per earlier attempt, capped at RetryMaxDelay.
func (o Options) backoff(attempt int) time.Duration {
	delay := o.RetryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if o.RetryMaxDelay > 0 && delay >= o.RetryMaxDelay {
			return o.RetryMaxDelay
		}
	}
	if o.RetryMaxDelay > 0 && delay > o.RetryMaxDelay {
		return o.RetryMaxDelay
	}
	return delay
}

// Queue is the process-wide import queue.
type Queue struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	inbox   chan func(*actor)
	stopped chan struct{}

	subMu    sync.RWMutex
	handlers []EventHandler
}

// New constructs a stopped queue.
func New(opts Options, logger *slog.Logger) *Queue {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Queue{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "importqueue"),
	}
}

// Subscribe registers h for every subsequent event.
func (q *Queue) Subscribe(h EventHandler) {
	if h == nil {
		return
	}
	q.subMu.Lock()
	q.handlers = append(q.handlers, h)
	q.subMu.Unlock()
}

// Start launches the actor, runner and event goroutines.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return errors.New("import queue already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	work := make(chan *Job, 1)
	outcomes := make(chan outcome)
	q.inbox = make(chan func(*actor))
	q.stopped = make(chan struct{})
	q.cancel = cancel
	q.running = true

	events := make(chan Event, eventBuffer)
	a := newActor(runCtx, q, q.inbox, work, outcomes, events)
	stopped := q.stopped
	q.wg.Add(3)
	go func() {
		defer q.wg.Done()
		defer close(stopped)
		a.run()
	}()
	go func() {
		defer q.wg.Done()
		q.runJobs(runCtx, work, outcomes)
	}()
	go func() {
		defer q.wg.Done()
		q.deliverEvents(runCtx, events)
	}()
	return nil
}

// Stop cancels the in-flight job's context and waits for all goroutines.
// Pending and retrying jobs are dropped. This is the only path that cancels a
// running import; it happens at daemon shutdown, and the store rolls the
// interrupted transaction back so the file is retried on the next start.
// Pause and Clear never touch the in-flight job.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	cancel := q.cancel
	q.running = false
	q.cancel = nil
	q.mu.Unlock()

	cancel()
	q.wg.Wait()

	q.mu.Lock()
	q.inbox = nil
	q.mu.Unlock()
}

// Running reports whether Start has been called without a matching Stop.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// call runs fn on the actor goroutine and waits for it to return.
func (q *Queue) call(fn func(*actor)) error {
	q.mu.Lock()
	inbox, stopped := q.inbox, q.stopped
	q.mu.Unlock()
	if inbox == nil {
		return ErrNotRunning
	}
	done := make(chan struct{})
	select {
	case inbox <- func(a *actor) {
		defer close(done)
		fn(a)
	}:
	case <-stopped:
		return ErrNotRunning
	}
	<-done
	return nil
}

func prepareJob(job Job, now time.Time) (*Job, error) {
	if strings.TrimSpace(job.Path) == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidJob)
	}
	if job.Execute == nil {
		return nil, fmt.Errorf("%w: %s has no execute function", ErrInvalidJob, job.Path)
	}
	prepared := job
	prepared.Path = filepath.Clean(job.Path)
	if prepared.ID == "" {
		prepared.ID = uuid.NewString()
	}
	prepared.Attempt = 0
	prepared.EnqueuedAt = now
	return &prepared, nil
}

// Enqueue adds job unless its path is already pending, retrying or in
// flight; in that case it returns false and no error.
func (q *Queue) Enqueue(job Job) (bool, error) {
	prepared, err := prepareJob(job, time.Now())
	if err != nil {
		return false, err
	}
	var accepted bool
	if err := q.call(func(a *actor) { accepted = a.accept(prepared) }); err != nil {
		return false, err
	}
	return accepted, nil
}

// EnqueueBatch adds jobs atomically with respect to other queue operations
// and returns how many were accepted. Duplicate paths within the batch are
// dropped after the first.
func (q *Queue) EnqueueBatch(jobs []Job) (int, error) {
	now := time.Now()
	prepared := make([]*Job, 0, len(jobs))
	for _, job := range jobs {
		p, err := prepareJob(job, now)
		if err != nil {
			return 0, err
		}
		prepared = append(prepared, p)
	}
	accepted := 0
	err := q.call(func(a *actor) {
		for _, job := range prepared {
			if a.accept(job) {
				accepted++
			}
		}
	})
	return accepted, err
}

// IsFileInQueue reports whether path is pending, retrying or in flight.
func (q *Queue) IsFileInQueue(path string) bool {
	path = filepath.Clean(path)
	var found bool
	if err := q.call(func(a *actor) { _, found = a.paths[path] }); err != nil {
		return false
	}
	return found
}

// Stats returns counters and current sizes.
func (q *Queue) Stats() (Stats, error) {
	var stats Stats
	err := q.call(func(a *actor) { stats = a.stats() })
	return stats, err
}

// Snapshot lists pending, in-flight and retrying jobs.
func (q *Queue) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := q.call(func(a *actor) { snap = a.snapshot() })
	return snap, err
}

// Pause stops dispatching new jobs; the in-flight job finishes normally.
func (q *Queue) Pause() error {
	return q.call(func(a *actor) {
		if !a.paused {
			a.paused = true
			q.logger.Info("import queue paused", logging.String(logging.FieldEventType, "queue_paused"))
		}
	})
}

// Resume re-enables dispatching.
func (q *Queue) Resume() error {
	return q.call(func(a *actor) {
		if a.paused {
			a.paused = false
			q.logger.Info("import queue resumed", logging.String(logging.FieldEventType, "queue_resumed"))
		}
	})
}

// Clear drops pending and retrying jobs and returns how many were removed.
// The in-flight job is not affected.
func (q *Queue) Clear() (int, error) {
	var removed int
	err := q.call(func(a *actor) { removed = a.clear() })
	return removed, err
}

func (q *Queue) deliverEvents(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			q.subMu.RLock()
			handlers := append([]EventHandler(nil), q.handlers...)
			q.subMu.RUnlock()
			for _, h := range handlers {
				h(ev)
			}
		}
	}
}
