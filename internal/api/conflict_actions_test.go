package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"docflow/internal/conflict"
	"docflow/internal/store"
)

type resolverStub struct {
	pending map[int64]bool
	calls   []int64
	fail    error
}

func (s *resolverStub) Resolve(_ context.Context, id int64, status store.ConflictStatus, _ string, _ int64, _ time.Time) (*store.Conflict, error) {
	s.calls = append(s.calls, id)
	if s.fail != nil {
		return nil, s.fail
	}
	pending, ok := s.pending[id]
	if !ok {
		return nil, conflict.ErrNotFound
	}
	if !pending {
		return nil, conflict.ErrAlreadyResolved
	}
	s.pending[id] = false
	return &store.Conflict{ID: id, Status: status}, nil
}

func TestResolveConflictsByIDReportsOutcomes(t *testing.T) {
	stub := &resolverStub{pending: map[int64]bool{1: true, 2: false}}

	result, err := ResolveConflictsByID(context.Background(), stub, []int64{1, 2, 3, 1}, store.ConflictCancelled, "duplicate export", 21, time.Now())
	if err != nil {
		t.Fatalf("ResolveConflictsByID: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
	want := []ResolveOutcome{ResolveUpdated, ResolveAlreadyResolved, ResolveNotFound}
	if len(result.Items) != len(want) {
		t.Fatalf("len(Items) = %d, want %d", len(result.Items), len(want))
	}
	for i, outcome := range want {
		if result.Items[i].Outcome != outcome {
			t.Fatalf("item %d outcome = %s, want %s", i, result.Items[i].Outcome, outcome)
		}
	}
	if result.Items[0].Status != "cancelled" {
		t.Fatalf("item 1 status = %q, want cancelled", result.Items[0].Status)
	}
	if len(stub.calls) != 3 {
		t.Fatalf("expected repeated ids to be resolved once, got calls %v", stub.calls)
	}
}

func TestResolveConflictsByIDAbortsOnStoreError(t *testing.T) {
	boom := errors.New("disk I/O error")
	stub := &resolverStub{fail: boom}
	if _, err := ResolveConflictsByID(context.Background(), stub, []int64{1}, store.ConflictResolved, "", 1, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
