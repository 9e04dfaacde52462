package conflict

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docflow/internal/logging"
	"docflow/internal/services"
	"docflow/internal/store"
)

var (
	// ErrAlreadyResolved is returned when a conflict has already left the pending state.
	ErrAlreadyResolved = store.ErrConflictNotPending
	// ErrNotFound is returned for unknown conflict ids.
	ErrNotFound = store.ErrConflictNotFound
)

// Store is the persistence surface the resolver needs.
type Store interface {
	UpsertPendingConflict(ctx context.Context, c *store.Conflict) (*store.Conflict, bool, error)
	GetConflict(ctx context.Context, id int64) (*store.Conflict, error)
	ListConflicts(ctx context.Context, filter store.ConflictFilter) ([]store.Conflict, error)
	CountConflicts(ctx context.Context, userID *int64) (store.ConflictCount, error)
	ResolveConflict(ctx context.Context, id int64, status store.ConflictStatus, resolution string, resolvedBy int64, at time.Time) (*store.Conflict, error)
	LookupAuthorUser(ctx context.Context, name string) (*int64, error)
}

// Candidate describes a freshly parsed document that collides with an
// existing order.
type Candidate struct {
	OrderNumber     string
	BaseOrderNumber string
	Suffix          string
	BaseOrderID     *int64
	DocumentAuthor  string
	Filepath        string
	Filename        string
	// Parsed is stored as JSON so a reviewer can inspect what would be imported.
	Parsed          any
	ExistingWindows int
	ExistingGlasses int
	NewWindows      int
	NewGlasses      int
}

// Resolver implements conflict detection bookkeeping and review.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// New constructs a resolver.
func New(st Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: st, logger: logging.NewComponentLogger(logger, "conflict")}
}

// Suggest proposes a resolution from window and glass counts. Equal counts,
// zeros included, mean the new file is a renamed copy of the base order.
func Suggest(existingWindows, existingGlasses, newWindows, newGlasses int) store.Suggestion {
	if existingWindows == newWindows && existingGlasses == newGlasses {
		return store.SuggestReplaceBase
	}
	return store.SuggestManual
}

// Record stores c as a pending conflict. A pending conflict for the same
// order/base pair is refreshed in place; the bool reports whether a new
// record was created.
func (r *Resolver) Record(ctx context.Context, c Candidate) (*store.Conflict, bool, error) {
	if strings.TrimSpace(c.OrderNumber) == "" || strings.TrimSpace(c.BaseOrderNumber) == "" {
		return nil, false, services.Wrap(services.ErrValidation, "conflict", "record", "order number and base order number are required", nil)
	}
	parsed := ""
	if c.Parsed != nil {
		data, err := json.Marshal(c.Parsed)
		if err != nil {
			return nil, false, services.Wrap(services.ErrValidation, "conflict", "encode parsed data", c.OrderNumber, err)
		}
		parsed = string(data)
	}

	var owner *int64
	if author := strings.TrimSpace(c.DocumentAuthor); author != "" {
		userID, err := r.store.LookupAuthorUser(ctx, author)
		if err != nil {
			return nil, false, fmt.Errorf("lookup author %q: %w", author, err)
		}
		owner = userID
	}

	row := &store.Conflict{
		OrderNumber:      c.OrderNumber,
		BaseOrderNumber:  c.BaseOrderNumber,
		Suffix:           c.Suffix,
		BaseOrderID:      c.BaseOrderID,
		DocumentAuthor:   strings.TrimSpace(c.DocumentAuthor),
		AuthorUserID:     owner,
		Filepath:         c.Filepath,
		Filename:         c.Filename,
		ParsedData:       parsed,
		ExistingWindows:  c.ExistingWindows,
		ExistingGlasses:  c.ExistingGlasses,
		NewWindows:       c.NewWindows,
		NewGlasses:       c.NewGlasses,
		SystemSuggestion: Suggest(c.ExistingWindows, c.ExistingGlasses, c.NewWindows, c.NewGlasses),
	}
	stored, created, err := r.store.UpsertPendingConflict(ctx, row)
	if err != nil {
		return nil, false, err
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "conflict_recorded"),
		logging.Int64("conflict_id", stored.ID),
		logging.String("order_number", stored.OrderNumber),
		logging.String("base_order_number", stored.BaseOrderNumber),
		logging.String("suggestion", string(stored.SystemSuggestion)),
		logging.Bool("created", created),
	}
	if owner == nil && row.DocumentAuthor != "" {
		attrs = append(attrs, logging.String("unmapped_author", row.DocumentAuthor))
	}
	r.logger.Info("import conflict recorded", logging.Args(attrs...)...)
	return stored, created, nil
}

// Resolve closes a pending conflict. status must be resolved or cancelled.
func (r *Resolver) Resolve(ctx context.Context, id int64, status store.ConflictStatus, resolution string, userID int64, at time.Time) (*store.Conflict, error) {
	resolved, err := r.store.ResolveConflict(ctx, id, status, strings.TrimSpace(resolution), userID, at)
	if err != nil {
		return nil, err
	}
	r.logger.Info("import conflict closed",
		logging.String(logging.FieldEventType, "conflict_resolved"),
		logging.Int64("conflict_id", id),
		logging.String("status", string(resolved.Status)),
		logging.Int64("resolved_by", userID),
	)
	return resolved, nil
}

// Get returns one conflict.
func (r *Resolver) Get(ctx context.Context, id int64) (*store.Conflict, error) {
	return r.store.GetConflict(ctx, id)
}

// List returns conflicts visible to userID, newest first. A nil userID lists
// every conflict.
func (r *Resolver) List(ctx context.Context, userID *int64, filter Filter, limit int) ([]store.Conflict, error) {
	status, err := filter.status()
	if err != nil {
		return nil, err
	}
	return r.store.ListConflicts(ctx, store.ConflictFilter{UserID: userID, Status: status, Limit: limit})
}

// Count returns pending and total conflicts visible to userID.
func (r *Resolver) Count(ctx context.Context, userID *int64) (store.ConflictCount, error) {
	return r.store.CountConflicts(ctx, userID)
}
