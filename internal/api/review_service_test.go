package api

import (
	"context"
	"errors"
	"testing"

	"docflow/internal/conflict"
	"docflow/internal/logging"
	"docflow/internal/services"
	"docflow/internal/store"
	"docflow/internal/testsupport"
)

func newReviewService(t *testing.T) (*ReviewService, *store.Store, *conflict.Resolver) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAuthor("Anna Nowak", 21))
	st := testsupport.MustOpenStore(t, cfg)
	if err := st.SeedAuthorMappings(context.Background(), cfg.Authors.Mappings); err != nil {
		t.Fatalf("SeedAuthorMappings: %v", err)
	}
	resolver := conflict.New(st, logging.NewNop())
	return NewReviewService(st, resolver), st, resolver
}

func recordConflict(t *testing.T, r *conflict.Resolver, number, author string) int64 {
	t.Helper()
	c, _, err := r.Record(context.Background(), conflict.Candidate{
		OrderNumber:     number,
		BaseOrderNumber: "53335",
		DocumentAuthor:  author,
		Filepath:        "/srv/orders/" + number + ".csv",
		Filename:        number + ".csv",
		Parsed:          map[string]string{"orderNumber": number},
		ExistingWindows: 2,
		NewWindows:      3,
	})
	if err != nil {
		t.Fatalf("Record %s: %v", number, err)
	}
	return c.ID
}

func TestReviewServiceListsImportsNewestFirst(t *testing.T) {
	svc, st, _ := newReviewService(t)
	ctx := context.Background()
	for _, rec := range []store.ImportRecord{
		{Filename: "a.txt", Filepath: "/srv/glass/a.txt", FileType: "glass_order", Status: store.ImportCompleted},
		{Filename: "b.txt", Filepath: "/srv/glass/b.txt", FileType: "glass_order", Status: store.ImportFailed, ErrorMessage: "bad header"},
		{Filename: "c.csv", Filepath: "/srv/orders/c.csv", FileType: "order_spec", Status: store.ImportCompleted},
	} {
		if _, err := st.RecordImport(ctx, rec); err != nil {
			t.Fatalf("RecordImport: %v", err)
		}
	}

	all, err := svc.ListImports(ctx, ImportQuery{})
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(all) != 3 || all[0].Filename != "c.csv" {
		t.Fatalf("unexpected listing: %#v", all)
	}

	failed, err := svc.ListImports(ctx, ImportQuery{Status: " FAILED "})
	if err != nil {
		t.Fatalf("ListImports failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorMessage != "bad header" {
		t.Fatalf("unexpected failed listing: %#v", failed)
	}

	stats, err := svc.ImportStats(ctx)
	if err != nil {
		t.Fatalf("ImportStats: %v", err)
	}
	if stats["completed"] != 2 || stats["failed"] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestReviewServiceConflictVisibilityAndResolve(t *testing.T) {
	svc, _, resolver := newReviewService(t)
	ctx := context.Background()
	owned := recordConflict(t, resolver, "53335-a", "Anna Nowak")
	unowned := recordConflict(t, resolver, "53335-b", "")

	user := int64(21)
	visible, err := svc.ListConflicts(ctx, ConflictQuery{UserID: &user})
	if err != nil {
		t.Fatalf("ListConflicts: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("expected owned and unowned conflicts, got %d", len(visible))
	}
	other := int64(99)
	visible, err = svc.ListConflicts(ctx, ConflictQuery{UserID: &other})
	if err != nil {
		t.Fatalf("ListConflicts other: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != unowned {
		t.Fatalf("expected only the unowned conflict, got %#v", visible)
	}

	detail, err := svc.DescribeConflict(ctx, owned)
	if err != nil {
		t.Fatalf("DescribeConflict: %v", err)
	}
	if detail.ParsedData == nil || detail.AuthorUserID == nil || *detail.AuthorUserID != 21 {
		t.Fatalf("unexpected detail: %#v", detail)
	}

	result, err := svc.ResolveConflicts(ctx, ResolveConflictRequest{IDs: []int64{owned}, Status: "resolved", Resolution: "replaced base", UserID: 21})
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("expected one resolution, got %#v", result)
	}
	again, err := svc.ResolveConflicts(ctx, ResolveConflictRequest{IDs: []int64{owned}, UserID: 21})
	if err != nil {
		t.Fatalf("ResolveConflicts again: %v", err)
	}
	if again.Items[0].Outcome != ResolveAlreadyResolved {
		t.Fatalf("expected already_resolved, got %s", again.Items[0].Outcome)
	}

	count, err := svc.CountConflicts(ctx, nil)
	if err != nil {
		t.Fatalf("CountConflicts: %v", err)
	}
	if count.Pending != 1 || count.Total != 2 {
		t.Fatalf("unexpected count: %#v", count)
	}
	resolved, err := svc.ListConflicts(ctx, ConflictQuery{Filter: "resolved"})
	if err != nil {
		t.Fatalf("ListConflicts resolved: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Resolution != "replaced base" {
		t.Fatalf("unexpected resolved listing: %#v", resolved)
	}
}

func TestReviewServiceRejectsBadRequests(t *testing.T) {
	svc, _, _ := newReviewService(t)
	ctx := context.Background()

	if _, err := svc.ResolveConflicts(ctx, ResolveConflictRequest{IDs: []int64{1}, Status: "pending", UserID: 1}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for pending status, got %v", err)
	}
	if _, err := svc.ResolveConflicts(ctx, ResolveConflictRequest{IDs: []int64{1}}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing user, got %v", err)
	}
	if _, err := svc.ListConflicts(ctx, ConflictQuery{Filter: "stale"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown filter, got %v", err)
	}
	if _, err := svc.DescribeConflict(ctx, 404); !errors.Is(err, conflict.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
