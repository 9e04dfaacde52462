package services_test

import (
	"context"
	"testing"

	"docflow/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-1")
	ctx = services.WithDocumentType(ctx, "glass_order")
	ctx = services.WithSource(ctx, "glass")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-1" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if docType, ok := services.DocumentTypeFromContext(ctx); !ok || docType != "glass_order" {
		t.Fatalf("unexpected document type: %v %v", docType, ok)
	}
	if source, ok := services.SourceFromContext(ctx); !ok || source != "glass" {
		t.Fatalf("unexpected source: %v %v", source, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithDocumentType(ctx, "")
	ctx = services.WithJobID(ctx, "")
	if _, ok := services.DocumentTypeFromContext(ctx); ok {
		t.Fatal("expected no document type value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
}
