package api

import (
	"context"
	"strings"
	"time"

	"docflow/internal/conflict"
	"docflow/internal/services"
	"docflow/internal/store"
)

// LedgerReader abstracts ledger queries needed for API listings.
type LedgerReader interface {
	ListImports(ctx context.Context, filter store.ImportFilter) ([]store.ImportRecord, error)
	ImportStats(ctx context.Context) (map[store.ImportStatus]int, error)
}

// ConflictReviewer abstracts conflict operations exposed to reviewers.
type ConflictReviewer interface {
	Get(ctx context.Context, id int64) (*store.Conflict, error)
	List(ctx context.Context, userID *int64, filter conflict.Filter, limit int) ([]store.Conflict, error)
	Count(ctx context.Context, userID *int64) (store.ConflictCount, error)
	Resolve(ctx context.Context, id int64, status store.ConflictStatus, resolution string, userID int64, at time.Time) (*store.Conflict, error)
}

// ReviewService exposes ledger and conflict operations returning API DTOs.
type ReviewService struct {
	ledger    LedgerReader
	conflicts ConflictReviewer
	now       func() time.Time
}

// NewReviewService constructs a ReviewService.
func NewReviewService(ledger LedgerReader, conflicts ConflictReviewer) *ReviewService {
	if ledger == nil || conflicts == nil {
		return nil
	}
	return &ReviewService{ledger: ledger, conflicts: conflicts, now: time.Now}
}

// ListImports returns ledger rows newest first.
func (s *ReviewService) ListImports(ctx context.Context, query ImportQuery) ([]ImportEntry, error) {
	if s == nil {
		return nil, nil
	}
	filter := store.ImportFilter{
		Status:   store.ImportStatus(strings.ToLower(strings.TrimSpace(query.Status))),
		FileType: strings.TrimSpace(query.FileType),
		Filepath: strings.TrimSpace(query.Filepath),
		Limit:    query.Limit,
	}
	records, err := s.ledger.ListImports(ctx, filter)
	if err != nil {
		return nil, err
	}
	return FromImportRecords(records), nil
}

// ImportStats returns ledger counts keyed by status.
func (s *ReviewService) ImportStats(ctx context.Context) (map[string]int, error) {
	if s == nil {
		return nil, nil
	}
	stats, err := s.ledger.ImportStats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeImportStats(stats), nil
}

// ListConflicts returns conflicts visible to the query's user, newest first.
func (s *ReviewService) ListConflicts(ctx context.Context, query ConflictQuery) ([]Conflict, error) {
	if s == nil {
		return nil, nil
	}
	filter, err := conflict.ParseFilter(query.Filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.conflicts.List(ctx, query.UserID, filter, query.Limit)
	if err != nil {
		return nil, err
	}
	return FromConflicts(rows), nil
}

// CountConflicts returns pending and total conflicts visible to userID.
func (s *ReviewService) CountConflicts(ctx context.Context, userID *int64) (ConflictCount, error) {
	if s == nil {
		return ConflictCount{}, nil
	}
	count, err := s.conflicts.Count(ctx, userID)
	if err != nil {
		return ConflictCount{}, err
	}
	return ConflictCount{Pending: count.Pending, Total: count.Total}, nil
}

// DescribeConflict fetches one conflict including its parsed payload.
func (s *ReviewService) DescribeConflict(ctx context.Context, id int64) (*Conflict, error) {
	if s == nil {
		return nil, nil
	}
	row, err := s.conflicts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromConflict(*row, true)
	return &dto, nil
}

// ResolveConflicts closes the requested conflicts one by one.
func (s *ReviewService) ResolveConflicts(ctx context.Context, req ResolveConflictRequest) (ResolveConflictsResult, error) {
	if s == nil {
		return ResolveConflictsResult{}, nil
	}
	status, err := ParseResolutionStatus(req.Status)
	if err != nil {
		return ResolveConflictsResult{}, err
	}
	if req.UserID <= 0 {
		return ResolveConflictsResult{}, services.Wrap(services.ErrValidation, "api", "resolve conflicts", "user id is required", nil)
	}
	return ResolveConflictsByID(ctx, s.conflicts, req.IDs, status, req.Resolution, req.UserID, s.now())
}

// ParseResolutionStatus accepts the terminal conflict states.
func ParseResolutionStatus(raw string) (store.ConflictStatus, error) {
	switch store.ConflictStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case store.ConflictResolved, "":
		return store.ConflictResolved, nil
	case store.ConflictCancelled:
		return store.ConflictCancelled, nil
	default:
		return "", services.Wrap(services.ErrValidation, "api", "resolve conflicts", "status must be resolved or cancelled", nil)
	}
}
