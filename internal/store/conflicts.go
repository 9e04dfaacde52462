package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docflow/internal/services"
)

var (
	// ErrConflictNotFound reports an unknown conflict id.
	ErrConflictNotFound = errors.New("conflict not found")
	// ErrConflictNotPending reports a resolve attempt on an already terminal conflict.
	ErrConflictNotPending = errors.New("conflict already resolved")
)

const conflictColumns = `id, order_number, base_order_number, suffix, base_order_id, document_author, author_user_id,
    filepath, filename, parsed_data, existing_windows_count, existing_glass_count, new_windows_count, new_glass_count,
    system_suggestion, status, resolution, resolved_by_id, resolved_at, created_at, updated_at`

func scanConflict(scanner interface{ Scan(dest ...any) error }) (*Conflict, error) {
	var (
		c               Conflict
		suffix          sql.NullString
		baseOrderID     sql.NullInt64
		author          sql.NullString
		authorUserID    sql.NullInt64
		parsed          sql.NullString
		existingWindows sql.NullInt64
		existingGlasses sql.NullInt64
		newWindows      sql.NullInt64
		newGlasses      sql.NullInt64
		suggestion      string
		status          string
		resolution      sql.NullString
		resolvedBy      sql.NullInt64
		resolvedAt      sql.NullString
		createdRaw      string
		updatedRaw      string
	)
	if err := scanner.Scan(
		&c.ID,
		&c.OrderNumber,
		&c.BaseOrderNumber,
		&suffix,
		&baseOrderID,
		&author,
		&authorUserID,
		&c.Filepath,
		&c.Filename,
		&parsed,
		&existingWindows,
		&existingGlasses,
		&newWindows,
		&newGlasses,
		&suggestion,
		&status,
		&resolution,
		&resolvedBy,
		&resolvedAt,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	c.Suffix = suffix.String
	c.BaseOrderID = int64Ptr(baseOrderID)
	c.DocumentAuthor = author.String
	c.AuthorUserID = int64Ptr(authorUserID)
	c.ParsedData = parsed.String
	c.ExistingWindows = int(existingWindows.Int64)
	c.ExistingGlasses = int(existingGlasses.Int64)
	c.NewWindows = int(newWindows.Int64)
	c.NewGlasses = int(newGlasses.Int64)
	c.SystemSuggestion = Suggestion(suggestion)
	c.Status = ConflictStatus(status)
	c.Resolution = resolution.String
	c.ResolvedByID = int64Ptr(resolvedBy)
	c.ResolvedAt = timePtr(resolvedAt)
	if created, err := parseTimeString(createdRaw); err == nil {
		c.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		c.UpdatedAt = updated
	}
	return &c, nil
}

// UpsertPendingConflict records c, refreshing the pending row for the same
// (order number, base order number) pair when one exists. It reports whether
// a new row was created. The lookup and write share one transaction.
func (s *Store) UpsertPendingConflict(ctx context.Context, c *Conflict) (*Conflict, bool, error) {
	var (
		id      int64
		created bool
	)
	err := s.withTx(ctx, "upsert conflict", func(tx *sql.Tx) error {
		now := nowString()
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM pending_import_conflicts WHERE order_number = ? AND base_order_number = ? AND status = ?`,
			c.OrderNumber, c.BaseOrderNumber, string(ConflictPending),
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO pending_import_conflicts (
                    order_number, base_order_number, suffix, base_order_id, document_author, author_user_id,
                    filepath, filename, parsed_data, existing_windows_count, existing_glass_count,
                    new_windows_count, new_glass_count, system_suggestion, status, created_at, updated_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				c.OrderNumber, c.BaseOrderNumber, nullableString(c.Suffix), nullableInt64(c.BaseOrderID),
				nullableString(c.DocumentAuthor), nullableInt64(c.AuthorUserID),
				c.Filepath, c.Filename, nullableString(c.ParsedData),
				c.ExistingWindows, c.ExistingGlasses, c.NewWindows, c.NewGlasses,
				string(c.SystemSuggestion), string(ConflictPending), now, now,
			)
			if err != nil {
				return fmt.Errorf("insert conflict: %w", err)
			}
			id, err = res.LastInsertId()
			created = true
			return err
		case err != nil:
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE pending_import_conflicts SET
                suffix = ?, base_order_id = ?, document_author = ?, author_user_id = ?,
                filepath = ?, filename = ?, parsed_data = ?,
                existing_windows_count = ?, existing_glass_count = ?, new_windows_count = ?, new_glass_count = ?,
                system_suggestion = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			nullableString(c.Suffix), nullableInt64(c.BaseOrderID), nullableString(c.DocumentAuthor), nullableInt64(c.AuthorUserID),
			c.Filepath, c.Filename, nullableString(c.ParsedData),
			c.ExistingWindows, c.ExistingGlasses, c.NewWindows, c.NewGlasses,
			string(c.SystemSuggestion), now,
			id, string(ConflictPending),
		)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	stored, err := s.GetConflict(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// GetConflict returns a conflict by id or ErrConflictNotFound.
func (s *Store) GetConflict(ctx context.Context, id int64) (*Conflict, error) {
	c, err := scanConflict(s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+conflictColumns+` FROM pending_import_conflicts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get conflict", fmt.Sprintf("id %d", id), ErrConflictNotFound)
	}
	if err != nil {
		return nil, classify("get conflict", err)
	}
	return c, nil
}

func visibilityClause(userID *int64) (string, []any) {
	if userID == nil {
		return "", nil
	}
	return "(author_user_id = ? OR author_user_id IS NULL)", []any{*userID}
}

// ListConflicts returns conflicts visible under filter, newest first. A user
// sees conflicts they own plus every unowned conflict.
func (s *Store) ListConflicts(ctx context.Context, filter ConflictFilter) ([]Conflict, error) {
	var (
		clauses []string
		args    []any
	)
	if clause, clauseArgs := visibilityClause(filter.UserID); clause != "" {
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	query := `SELECT ` + conflictColumns + ` FROM pending_import_conflicts`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, classify("list conflicts", err)
	}
	defer rows.Close()

	var conflicts []Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, *c)
	}
	return conflicts, rows.Err()
}

// CountConflicts returns {pending, total} under the same visibility rule as ListConflicts.
func (s *Store) CountConflicts(ctx context.Context, userID *int64) (ConflictCount, error) {
	query := `SELECT COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0), COUNT(1) FROM pending_import_conflicts`
	clause, args := visibilityClause(userID)
	if clause != "" {
		query += ` WHERE ` + clause
	}
	var count ConflictCount
	if err := s.db.QueryRowContext(ensureContext(ctx), query, args...).Scan(&count.Pending, &count.Total); err != nil {
		return ConflictCount{}, classify("count conflicts", err)
	}
	return count, nil
}

// ResolveConflict moves a pending conflict to a terminal status exactly once.
func (s *Store) ResolveConflict(ctx context.Context, id int64, status ConflictStatus, resolution string, resolvedBy int64, at time.Time) (*Conflict, error) {
	if status != ConflictResolved && status != ConflictCancelled {
		return nil, services.Wrap(services.ErrValidation, "store", "resolve conflict",
			fmt.Sprintf("status must be %s or %s, got %q", ConflictResolved, ConflictCancelled, status), nil)
	}
	if at.IsZero() {
		at = time.Now()
	}
	err := s.withTx(ctx, "resolve conflict", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE pending_import_conflicts
             SET status = ?, resolution = ?, resolved_by_id = ?, resolved_at = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			string(status), nullableString(resolution), resolvedBy, nullableTime(&at), nowString(),
			id, string(ConflictPending),
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 1 {
			return nil
		}
		var current string
		err = tx.QueryRowContext(ctx, `SELECT status FROM pending_import_conflicts WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "store", "resolve conflict", fmt.Sprintf("id %d", id), ErrConflictNotFound)
		}
		if err != nil {
			return err
		}
		return services.Wrap(services.ErrValidation, "store", "resolve conflict",
			fmt.Sprintf("id %d is %s", id, current), ErrConflictNotPending)
	})
	if err != nil {
		return nil, err
	}
	return s.GetConflict(ctx, id)
}
