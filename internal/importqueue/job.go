package importqueue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Priority orders pending jobs. Lower ordinals run first.
type Priority int

const (
	// Correction jobs replace previously imported documents.
	Correction Priority = iota
	// FreshArrival jobs come from live filesystem events and manual submissions.
	FreshArrival
	// BacklogScan jobs come from the startup scan of a watched folder.
	BacklogScan
)

var priorityTable = [...]struct {
	name    string
	ordinal int
}{
	Correction:   {name: "correction", ordinal: 5},
	FreshArrival: {name: "fresh_arrival", ordinal: 10},
	BacklogScan:  {name: "backlog_scan", ordinal: 20},
}

// Ordinal returns the sort key of p. Unknown priorities sort last.
func (p Priority) Ordinal() int {
	if p < 0 || int(p) >= len(priorityTable) {
		return 1 << 30
	}
	return priorityTable[p].ordinal
}

func (p Priority) String() string {
	if p < 0 || int(p) >= len(priorityTable) {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityTable[p].name
}

// ParsePriority maps a priority name back to its value.
func ParsePriority(name string) (Priority, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, entry := range priorityTable {
		if entry.name == name {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", name)
}

// Result is what a job's Execute reports back to the queue.
type Result struct {
	Success     bool
	Err         error
	ShouldRetry bool
}

// Job is one unit of import work. Jobs live in memory only.
type Job struct {
	ID       string
	Type     string
	Path     string
	Priority Priority
	Execute  func(ctx context.Context) Result

	// Attempt counts retries already scheduled for this job.
	Attempt    int
	EnqueuedAt time.Time
}

// JobState describes where a job sits in the queue.
type JobState string

const (
	StatePending    JobState = "pending"
	StateProcessing JobState = "processing"
	StateRetrying   JobState = "retrying"
)

// JobInfo is a read-only view of a queued job.
type JobInfo struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Path       string     `json:"path"`
	Priority   string     `json:"priority"`
	State      JobState   `json:"state"`
	Attempt    int        `json:"attempt"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	RetryAt    *time.Time `json:"retryAt,omitempty"`
}

func (j *Job) info(state JobState) JobInfo {
	return JobInfo{
		ID:         j.ID,
		Type:       j.Type,
		Path:       j.Path,
		Priority:   j.Priority.String(),
		State:      state,
		Attempt:    j.Attempt,
		EnqueuedAt: j.EnqueuedAt,
	}
}

// Snapshot lists the queue contents in execution order.
type Snapshot struct {
	InFlight *JobInfo  `json:"inFlight,omitempty"`
	Pending  []JobInfo `json:"pending"`
	Retrying []JobInfo `json:"retrying"`
}

// Stats summarizes queue activity since Start.
type Stats struct {
	Pending         int     `json:"pending"`
	Processing      int     `json:"processing"`
	Retrying        int     `json:"retrying"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	TotalProcessed  int     `json:"totalProcessed"`
	AvgProcessingMs float64 `json:"avgProcessingMs"`
	Paused          bool    `json:"paused"`
}
