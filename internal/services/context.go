package services

import "context"

type contextKey string

const (
	jobIDKey        contextKey = "job_id"
	documentTypeKey contextKey = "document_type"
	sourceKey       contextKey = "source"
	requestIDKey    contextKey = "request_id"
)

// WithJobID annotates context with the import job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the import job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDocumentType annotates context with the document type being imported.
func WithDocumentType(ctx context.Context, docType string) context.Context {
	if docType == "" {
		return ctx
	}
	return context.WithValue(ctx, documentTypeKey, docType)
}

// DocumentTypeFromContext returns the document type if present.
func DocumentTypeFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(documentTypeKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithSource annotates context with the watcher (or API) that produced the job.
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the job source if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(sourceKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
