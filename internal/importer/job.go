package importer

import (
	"context"

	"docflow/internal/importqueue"
	"docflow/internal/services"
)

// NewJob builds a queue job that runs the processor for docType on path.
// Corrections should be submitted at importqueue.Correction priority.
func (i *Importer) NewJob(docType DocumentType, path string, correction bool, priority importqueue.Priority) importqueue.Job {
	return importqueue.Job{
		Type:     string(docType),
		Path:     path,
		Priority: priority,
		Execute: func(ctx context.Context) importqueue.Result {
			err := i.Import(ctx, docType, path, correction)
			if err != nil {
				return importqueue.Result{Err: err, ShouldRetry: services.IsTransient(err)}
			}
			return importqueue.Result{Success: true}
		},
	}
}
