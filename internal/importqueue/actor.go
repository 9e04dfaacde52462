package importqueue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"docflow/internal/logging"
	"docflow/internal/services"
)

type entry struct {
	job *Job
	seq uint64
}

// jobHeap orders entries by priority ordinal, then arrival.
type jobHeap []*entry

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	oi, oj := h[i].job.Priority.Ordinal(), h[j].job.Priority.Ordinal()
	if oi != oj {
		return oi < oj
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

type retryEntry struct {
	job   *Job
	seq   uint64
	due   time.Time
	timer *time.Timer
}

type outcome struct {
	job      *Job
	result   Result
	duration time.Duration
}

// actor owns every piece of mutable queue state. Only its run goroutine
// touches these fields.
type actor struct {
	ctx    context.Context
	q      *Queue
	events chan<- Event

	pending       jobHeap
	seq           uint64
	inFlight      *Job
	retrying      map[string]*retryEntry
	paths         map[string]struct{}
	paused        bool
	nextDispatch  time.Time
	gate          *time.Timer
	gateC         <-chan time.Time
	completed     int
	failed        int
	processed     int
	totalDuration time.Duration

	inbox    <-chan func(*actor)
	work     chan<- *Job
	outcomes <-chan outcome
	retryDue chan string
}

func newActor(ctx context.Context, q *Queue, inbox <-chan func(*actor), work chan<- *Job, outcomes <-chan outcome, events chan<- Event) *actor {
	return &actor{
		ctx:      ctx,
		q:        q,
		events:   events,
		retrying: make(map[string]*retryEntry),
		paths:    make(map[string]struct{}),
		inbox:    inbox,
		work:     work,
		outcomes: outcomes,
		retryDue: make(chan string),
	}
}

func (a *actor) run() {
	defer a.stopTimers()
	for {
		select {
		case <-a.ctx.Done():
			return
		case fn := <-a.inbox:
			fn(a)
		case out := <-a.outcomes:
			a.finish(out)
		case id := <-a.retryDue:
			a.requeue(id)
		case <-a.gateC:
			a.gate, a.gateC = nil, nil
		}
		a.dispatch()
	}
}

func (a *actor) accept(job *Job) bool {
	if _, dup := a.paths[job.Path]; dup {
		a.q.logger.Debug("import job already queued",
			logging.String(logging.FieldJobID, job.ID),
			logging.Path(job.Path),
		)
		return false
	}
	a.paths[job.Path] = struct{}{}
	a.seq++
	heap.Push(&a.pending, &entry{job: job, seq: a.seq})
	a.q.logger.Info("import job queued",
		logging.String(logging.FieldEventType, "job_added"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldDocumentType, job.Type),
		logging.Path(job.Path),
		logging.String("priority", job.Priority.String()),
	)
	a.emit(Event{Type: EventJobAdded, Job: infoPtr(job, StatePending)})
	return true
}

func (a *actor) dispatch() {
	if a.paused || a.inFlight != nil || a.pending.Len() == 0 || a.gateC != nil {
		return
	}
	if wait := time.Until(a.nextDispatch); wait > 0 {
		a.gate = time.NewTimer(wait)
		a.gateC = a.gate.C
		return
	}
	next := heap.Pop(&a.pending).(*entry)
	a.inFlight = next.job
	a.emit(Event{Type: EventJobStarted, Job: infoPtr(next.job, StateProcessing)})
	a.work <- next.job
}

func (a *actor) finish(out outcome) {
	job := out.job
	a.inFlight = nil
	a.processed++
	a.totalDuration += out.duration
	a.nextDispatch = time.Now().Add(a.q.opts.DelayBetweenJobs)

	logger := a.q.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldDocumentType, job.Type),
		logging.Path(job.Path),
	)
	res := out.result
	switch {
	case res.Success:
		a.completed++
		delete(a.paths, job.Path)
		logger.Info("import job completed",
			logging.String(logging.FieldEventType, "job_completed"),
			logging.Duration("duration", out.duration),
		)
		a.emit(Event{Type: EventJobCompleted, Job: infoPtr(job, StateProcessing), Duration: out.duration})
	case res.ShouldRetry && job.Attempt < a.q.opts.MaxRetries:
		job.Attempt++
		delay := a.q.opts.backoff(job.Attempt)
		a.scheduleRetry(job, delay)
		logging.WarnWithContext(logger, "import job failed; retry scheduled", "job_retry",
			logging.Error(res.Err),
			logging.Int("attempt", job.Attempt),
			logging.Int("max_retries", a.q.opts.MaxRetries),
			logging.Duration("delay", delay),
			logging.String(logging.FieldErrorHint, services.ErrorHint(res.Err)),
			logging.String(logging.FieldImpact, "import delayed until the retry runs"),
		)
		a.emit(Event{Type: EventJobRetry, Job: infoPtr(job, StateRetrying), Err: res.Err, Delay: delay, Duration: out.duration})
	default:
		a.failed++
		delete(a.paths, job.Path)
		err := res.Err
		if err == nil {
			err = errors.New("import job reported failure")
		}
		if res.ShouldRetry {
			err = fmt.Errorf("retries exhausted after %d attempts: %w", job.Attempt+1, err)
		}
		logging.ErrorWithContext(logger, "import job failed", "job_failed",
			logging.Error(err),
			logging.Int("attempts", job.Attempt+1),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
		)
		a.emit(Event{Type: EventJobFailed, Job: infoPtr(job, StateProcessing), Err: err, Duration: out.duration})
	}

	if a.pending.Len() == 0 && len(a.retrying) == 0 {
		a.q.logger.Info("import queue drained", logging.String(logging.FieldEventType, "queue_empty"))
		a.emit(Event{Type: EventQueueEmpty})
	}
}

func (a *actor) scheduleRetry(job *Job, delay time.Duration) {
	a.seq++
	retry := &retryEntry{job: job, seq: a.seq, due: time.Now().Add(delay)}
	ctx, due, id := a.ctx, a.retryDue, job.ID
	retry.timer = time.AfterFunc(delay, func() {
		select {
		case due <- id:
		case <-ctx.Done():
		}
	})
	a.retrying[id] = retry
}

// requeue moves a due retry back into the pending heap at its original
// priority. Retries removed by Clear are ignored.
func (a *actor) requeue(id string) {
	retry, ok := a.retrying[id]
	if !ok {
		return
	}
	delete(a.retrying, id)
	heap.Push(&a.pending, &entry{job: retry.job, seq: retry.seq})
}

func (a *actor) clear() int {
	removed := 0
	for _, e := range a.pending {
		delete(a.paths, e.job.Path)
		removed++
	}
	a.pending = nil
	for id, retry := range a.retrying {
		retry.timer.Stop()
		delete(a.paths, retry.job.Path)
		delete(a.retrying, id)
		removed++
	}
	a.q.logger.Info("import queue cleared",
		logging.String(logging.FieldEventType, "queue_cleared"),
		logging.Int("removed", removed),
	)
	return removed
}

func (a *actor) stats() Stats {
	stats := Stats{
		Pending:        a.pending.Len(),
		Retrying:       len(a.retrying),
		Completed:      a.completed,
		Failed:         a.failed,
		TotalProcessed: a.processed,
		Paused:         a.paused,
	}
	if a.inFlight != nil {
		stats.Processing = 1
	}
	if a.processed > 0 {
		stats.AvgProcessingMs = float64(a.totalDuration.Milliseconds()) / float64(a.processed)
	}
	return stats
}

func (a *actor) snapshot() Snapshot {
	var snap Snapshot
	if a.inFlight != nil {
		snap.InFlight = infoPtr(a.inFlight, StateProcessing)
	}
	ordered := append(jobHeap(nil), a.pending...)
	sort.Sort(ordered)
	snap.Pending = make([]JobInfo, 0, len(ordered))
	for _, e := range ordered {
		snap.Pending = append(snap.Pending, e.job.info(StatePending))
	}
	snap.Retrying = make([]JobInfo, 0, len(a.retrying))
	for _, retry := range a.retrying {
		info := retry.job.info(StateRetrying)
		due := retry.due
		info.RetryAt = &due
		snap.Retrying = append(snap.Retrying, info)
	}
	sort.Slice(snap.Retrying, func(i, j int) bool {
		return snap.Retrying[i].RetryAt.Before(*snap.Retrying[j].RetryAt)
	})
	return snap
}

func (a *actor) emit(ev Event) {
	ev.Time = time.Now()
	select {
	case a.events <- ev:
	default:
		logging.WarnWithContext(a.q.logger, "queue event dropped", "queue_event_dropped",
			logging.String("event", string(ev.Type)),
			logging.String(logging.FieldErrorHint, "event subscriber is too slow"),
			logging.String(logging.FieldImpact, "a notification may be missing"),
		)
	}
}

func (a *actor) stopTimers() {
	if a.gate != nil {
		a.gate.Stop()
	}
	for _, retry := range a.retrying {
		retry.timer.Stop()
	}
}

func infoPtr(job *Job, state JobState) *JobInfo {
	info := job.info(state)
	return &info
}
