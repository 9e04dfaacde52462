package importqueue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/importqueue"
	"docflow/internal/logging"
	"docflow/internal/services"
)

func fastOptions() importqueue.Options {
	return importqueue.Options{
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
}

func startQueue(t *testing.T, opts importqueue.Options) *importqueue.Queue {
	t.Helper()
	q := importqueue.New(opts, logging.NewNop())
	require.NoError(t, q.Start(context.Background()))
	t.Cleanup(q.Stop)
	return q
}

type recorder struct {
	mu     sync.Mutex
	order  []string
	events []importqueue.Event
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.order = append(r.order, path)
	r.mu.Unlock()
}

func (r *recorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *recorder) onEvent(ev importqueue.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(kind importqueue.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == kind {
			n++
		}
	}
	return n
}

func succeed(r *recorder, path string) func(context.Context) importqueue.Result {
	return func(context.Context) importqueue.Result {
		r.record(path)
		return importqueue.Result{Success: true}
	}
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := importqueue.New(fastOptions(), logging.NewNop())
	_, err := q.Enqueue(importqueue.Job{Path: "/in/a.csv", Execute: func(context.Context) importqueue.Result {
		return importqueue.Result{Success: true}
	}})
	require.ErrorIs(t, err, importqueue.ErrNotRunning)
	assert.False(t, q.IsFileInQueue("/in/a.csv"))
}

func TestEnqueueRejectsInvalidJobs(t *testing.T) {
	q := startQueue(t, fastOptions())
	_, err := q.Enqueue(importqueue.Job{Path: "/in/a.csv"})
	require.ErrorIs(t, err, importqueue.ErrInvalidJob)
	_, err = q.Enqueue(importqueue.Job{Execute: func(context.Context) importqueue.Result { return importqueue.Result{} }})
	require.ErrorIs(t, err, importqueue.ErrInvalidJob)
}

func TestPriorityOrderThenFIFO(t *testing.T) {
	q := startQueue(t, fastOptions())
	rec := &recorder{}
	require.NoError(t, q.Pause())

	jobs := []importqueue.Job{
		{Path: "/in/backlog.csv", Priority: importqueue.BacklogScan},
		{Path: "/in/fresh-1.csv", Priority: importqueue.FreshArrival},
		{Path: "/in/korekta.csv", Priority: importqueue.Correction},
		{Path: "/in/fresh-2.csv", Priority: importqueue.FreshArrival},
	}
	for _, job := range jobs {
		job.Execute = succeed(rec, job.Path)
		accepted, err := q.Enqueue(job)
		require.NoError(t, err)
		require.True(t, accepted)
	}

	snap, err := q.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Pending, 4)
	assert.Equal(t, "/in/korekta.csv", snap.Pending[0].Path)
	assert.Equal(t, "backlog_scan", snap.Pending[3].Priority)

	require.NoError(t, q.Resume())
	require.Eventually(t, func() bool { return len(rec.paths()) == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"/in/korekta.csv", "/in/fresh-1.csv", "/in/fresh-2.csv", "/in/backlog.csv"}, rec.paths())
}

func TestJobsNeverOverlap(t *testing.T) {
	q := startQueue(t, fastOptions())
	var running, maxRunning, done int32

	for i := 0; i < 8; i++ {
		_, err := q.Enqueue(importqueue.Job{
			Path: "/in/" + string(rune('a'+i)) + ".csv",
			Execute: func(context.Context) importqueue.Result {
				n := atomic.AddInt32(&running, 1)
				for {
					prev := atomic.LoadInt32(&maxRunning)
					if n <= prev || atomic.CompareAndSwapInt32(&maxRunning, prev, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				atomic.AddInt32(&done, 1)
				return importqueue.Result{Success: true}
			},
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&done) == 8 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestDuplicatePathIsIgnoredUntilFinished(t *testing.T) {
	q := startQueue(t, fastOptions())
	release := make(chan struct{})
	var runs int32
	job := importqueue.Job{
		Path: "/in/53479.csv",
		Execute: func(context.Context) importqueue.Result {
			atomic.AddInt32(&runs, 1)
			<-release
			return importqueue.Result{Success: true}
		},
	}

	accepted, err := q.Enqueue(job)
	require.NoError(t, err)
	require.True(t, accepted)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, time.Millisecond)

	accepted, err = q.Enqueue(job)
	require.NoError(t, err)
	assert.False(t, accepted, "in-flight path must not be queued twice")
	assert.True(t, q.IsFileInQueue("/in/./53479.csv"))

	close(release)
	require.Eventually(t, func() bool { return !q.IsFileInQueue("/in/53479.csv") }, time.Second, time.Millisecond)

	accepted, err = q.Enqueue(job)
	require.NoError(t, err)
	assert.True(t, accepted, "path may be queued again after completion")
}

func TestEnqueueBatchDedupsWithinBatch(t *testing.T) {
	q := startQueue(t, fastOptions())
	require.NoError(t, q.Pause())
	rec := &recorder{}

	jobs := []importqueue.Job{
		{Path: "/in/a.txt", Priority: importqueue.BacklogScan, Execute: succeed(rec, "a")},
		{Path: "/in/b.txt", Priority: importqueue.BacklogScan, Execute: succeed(rec, "b")},
		{Path: "/in/a.txt", Priority: importqueue.BacklogScan, Execute: succeed(rec, "a2")},
	}
	accepted, err := q.EnqueueBatch(jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, accepted)

	stats, err := q.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)
	assert.True(t, stats.Paused)
}

func TestTransientFailureRetriesThenSucceeds(t *testing.T) {
	q := startQueue(t, fastOptions())
	rec := &recorder{}
	q.Subscribe(rec.onEvent)

	var attempts int32
	_, err := q.Enqueue(importqueue.Job{
		Path: "/in/glass.txt",
		Type: "glass_order",
		Execute: func(context.Context) importqueue.Result {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return importqueue.Result{Err: services.ErrTransient, ShouldRetry: true}
			}
			return importqueue.Result{Success: true}
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count(importqueue.EventJobCompleted) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, 2, rec.count(importqueue.EventJobRetry))
	assert.Equal(t, 0, rec.count(importqueue.EventJobFailed))

	stats, err := q.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 3, stats.TotalProcessed)
	assert.False(t, q.IsFileInQueue("/in/glass.txt"))
}

func TestRetriesExhaustedIsTerminal(t *testing.T) {
	opts := fastOptions()
	opts.MaxRetries = 2
	q := startQueue(t, opts)
	rec := &recorder{}
	q.Subscribe(rec.onEvent)

	var attempts int32
	_, err := q.Enqueue(importqueue.Job{
		Path: "/in/busy.csv",
		Execute: func(context.Context) importqueue.Result {
			atomic.AddInt32(&attempts, 1)
			return importqueue.Result{Err: services.ErrTransient, ShouldRetry: true}
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count(importqueue.EventJobFailed) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.False(t, q.IsFileInQueue("/in/busy.csv"))

	stats, err := q.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Retrying)
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	q := startQueue(t, fastOptions())
	rec := &recorder{}
	q.Subscribe(rec.onEvent)

	var attempts int32
	_, err := q.Enqueue(importqueue.Job{
		Path: "/in/broken.csv",
		Execute: func(context.Context) importqueue.Result {
			atomic.AddInt32(&attempts, 1)
			return importqueue.Result{Err: services.ErrValidation}
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count(importqueue.EventJobFailed) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	require.Eventually(t, func() bool { return rec.count(importqueue.EventQueueEmpty) >= 1 }, time.Second, 5*time.Millisecond)
}

func TestPanickingJobFailsWithoutKillingQueue(t *testing.T) {
	q := startQueue(t, fastOptions())
	rec := &recorder{}
	q.Subscribe(rec.onEvent)

	_, err := q.Enqueue(importqueue.Job{Path: "/in/panic.csv", Execute: func(context.Context) importqueue.Result {
		panic("boom")
	}})
	require.NoError(t, err)
	_, err = q.Enqueue(importqueue.Job{Path: "/in/ok.csv", Execute: succeed(&recorder{}, "ok")})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count(importqueue.EventJobCompleted) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.count(importqueue.EventJobFailed))
}

func TestClearDropsPendingAndRetrying(t *testing.T) {
	opts := fastOptions()
	opts.RetryBaseDelay = time.Hour
	opts.RetryMaxDelay = time.Hour
	q := startQueue(t, opts)

	_, err := q.Enqueue(importqueue.Job{Path: "/in/retry.csv", Execute: func(context.Context) importqueue.Result {
		return importqueue.Result{Err: errors.New("locked"), ShouldRetry: true}
	}})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		stats, err := q.Stats()
		return err == nil && stats.Retrying == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, q.IsFileInQueue("/in/retry.csv"), "retrying path stays in queue")

	require.NoError(t, q.Pause())
	_, err = q.Enqueue(importqueue.Job{Path: "/in/pending.csv", Execute: succeed(&recorder{}, "p")})
	require.NoError(t, err)

	snap, err := q.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Retrying, 1)
	require.NotNil(t, snap.Retrying[0].RetryAt)
	assert.Equal(t, 1, snap.Retrying[0].Attempt)

	removed, err := q.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.False(t, q.IsFileInQueue("/in/retry.csv"))
	assert.False(t, q.IsFileInQueue("/in/pending.csv"))
}

func TestStopCancelsInFlightJob(t *testing.T) {
	q := importqueue.New(fastOptions(), logging.NewNop())
	require.NoError(t, q.Start(context.Background()))

	started := make(chan struct{})
	cancelled := make(chan struct{})
	_, err := q.Enqueue(importqueue.Job{Path: "/in/slow.csv", Execute: func(ctx context.Context) importqueue.Result {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return importqueue.Result{Err: ctx.Err()}
	}})
	require.NoError(t, err)
	<-started

	q.Stop()
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight job was not cancelled")
	}
	_, err = q.Stats()
	assert.ErrorIs(t, err, importqueue.ErrNotRunning)
}

func TestPauseAndClearLeaveInFlightJobRunning(t *testing.T) {
	q := startQueue(t, fastOptions())

	started := make(chan struct{})
	release := make(chan struct{})
	ctxErr := make(chan error, 1)
	_, err := q.Enqueue(importqueue.Job{Path: "/in/running.csv", Execute: func(ctx context.Context) importqueue.Result {
		close(started)
		<-release
		ctxErr <- ctx.Err()
		return importqueue.Result{}
	}})
	require.NoError(t, err)
	<-started

	require.NoError(t, q.Pause())
	removed, err := q.Clear()
	require.NoError(t, err)
	assert.Zero(t, removed, "in-flight job is not cleared")
	close(release)

	require.NoError(t, <-ctxErr, "job context must stay live")
	require.Eventually(t, func() bool {
		stats, err := q.Stats()
		return err == nil && stats.Completed == 1 && stats.Processing == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestJobContextCarriesIdentifiers(t *testing.T) {
	q := startQueue(t, fastOptions())
	got := make(chan string, 2)
	_, err := q.Enqueue(importqueue.Job{ID: "job-1", Type: "order_spec", Path: "/in/x.csv", Execute: func(ctx context.Context) importqueue.Result {
		id, _ := services.JobIDFromContext(ctx)
		docType, _ := services.DocumentTypeFromContext(ctx)
		got <- id
		got <- docType
		return importqueue.Result{Success: true}
	}})
	require.NoError(t, err)
	assert.Equal(t, "job-1", <-got)
	assert.Equal(t, "order_spec", <-got)
}

func TestParsePriority(t *testing.T) {
	for _, p := range []importqueue.Priority{importqueue.Correction, importqueue.FreshArrival, importqueue.BacklogScan} {
		parsed, err := importqueue.ParsePriority(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}
	assert.Less(t, importqueue.Correction.Ordinal(), importqueue.FreshArrival.Ordinal())
	assert.Less(t, importqueue.FreshArrival.Ordinal(), importqueue.BacklogScan.Ordinal())
	_, err := importqueue.ParsePriority("urgent")
	assert.Error(t, err)
}
