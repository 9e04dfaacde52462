package importqueue

import (
	"context"
	"fmt"
	"time"

	"docflow/internal/services"
)

// runJobs executes one job at a time and reports each outcome to the actor.
func (q *Queue) runJobs(ctx context.Context, work <-chan *Job, outcomes chan<- outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-work:
			start := time.Now()
			result := execute(ctx, job)
			select {
			case outcomes <- outcome{job: job, result: result, duration: time.Since(start)}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func execute(ctx context.Context, job *Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: fmt.Errorf("import job panicked: %v", r)}
		}
	}()
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithDocumentType(jobCtx, job.Type)
	return job.Execute(jobCtx)
}
