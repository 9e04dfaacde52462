package importqueue

import "time"

// EventType names a queue lifecycle event.
type EventType string

const (
	EventJobAdded     EventType = "job_added"
	EventJobStarted   EventType = "job_started"
	EventJobCompleted EventType = "job_completed"
	EventJobRetry     EventType = "job_retry"
	EventJobFailed    EventType = "job_failed"
	EventQueueEmpty   EventType = "queue_empty"
)

// Event is delivered to subscribers in the order the actor produced it.
type Event struct {
	Type     EventType
	Job      *JobInfo
	Err      error
	Delay    time.Duration
	Duration time.Duration
	Time     time.Time
}

// EventHandler receives queue events on a dedicated goroutine; it may call
// back into the queue.
type EventHandler func(Event)
