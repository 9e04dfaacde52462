package api

import (
	"context"
	"errors"
	"time"

	"docflow/internal/conflict"
	"docflow/internal/store"
)

// ConflictResolver captures the conflict operation used by batch resolution.
type ConflictResolver interface {
	Resolve(ctx context.Context, id int64, status store.ConflictStatus, resolution string, userID int64, at time.Time) (*store.Conflict, error)
}

type ResolveOutcome string

const (
	ResolveUpdated         ResolveOutcome = "resolved"
	ResolveNotFound        ResolveOutcome = "not_found"
	ResolveAlreadyResolved ResolveOutcome = "already_resolved"
)

type ResolveConflictResult struct {
	ID      int64          `json:"id"`
	Outcome ResolveOutcome `json:"outcome"`
	Status  string         `json:"status,omitempty"`
}

type ResolveConflictsResult struct {
	UpdatedCount int64                   `json:"updatedCount"`
	Items        []ResolveConflictResult `json:"items"`
}

// ResolveConflictsByID closes each conflict once. Missing or already closed
// conflicts are reported per id; any other error aborts the batch.
func ResolveConflictsByID(ctx context.Context, resolver ConflictResolver, ids []int64, status store.ConflictStatus, resolution string, userID int64, at time.Time) (ResolveConflictsResult, error) {
	result := ResolveConflictsResult{Items: make([]ResolveConflictResult, 0, len(ids))}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		resolved, err := resolver.Resolve(ctx, id, status, resolution, userID, at)
		switch {
		case errors.Is(err, conflict.ErrNotFound):
			result.Items = append(result.Items, ResolveConflictResult{ID: id, Outcome: ResolveNotFound})
		case errors.Is(err, conflict.ErrAlreadyResolved):
			result.Items = append(result.Items, ResolveConflictResult{ID: id, Outcome: ResolveAlreadyResolved})
		case err != nil:
			return ResolveConflictsResult{}, err
		default:
			result.UpdatedCount++
			result.Items = append(result.Items, ResolveConflictResult{ID: id, Outcome: ResolveUpdated, Status: string(resolved.Status)})
		}
	}
	return result, nil
}
