package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"docflow/internal/services"
)

var authorFolder = cases.Fold()

// AuthorKey normalizes a document author name for mapping lookups: runs of
// whitespace collapse to one space and case is folded, so "JAN  Kowalski"
// and "jan kowalski" share a key.
func AuthorKey(name string) string {
	return authorFolder.String(strings.Join(strings.Fields(name), " "))
}

// UpsertAuthorMapping assigns conflicts authored by name to userID.
func (s *Store) UpsertAuthorMapping(ctx context.Context, name string, userID int64) error {
	key := AuthorKey(name)
	if key == "" {
		return services.Wrap(services.ErrValidation, "store", "upsert author", "author name is empty", nil)
	}
	if userID <= 0 {
		return services.Wrap(services.ErrValidation, "store", "upsert author",
			fmt.Sprintf("user id must be positive, got %d", userID), nil)
	}
	now := nowString()
	_, err := s.execWithRetry(ctx, "upsert author",
		`INSERT INTO document_author_mappings (author_name, author_key, user_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(author_key) DO UPDATE SET author_name = excluded.author_name, user_id = excluded.user_id, updated_at = excluded.updated_at`,
		strings.Join(strings.Fields(name), " "), key, userID, now, now,
	)
	return err
}

// LookupAuthorUser returns the user mapped to a document author, or nil when
// the author is blank or unmapped.
func (s *Store) LookupAuthorUser(ctx context.Context, name string) (*int64, error) {
	key := AuthorKey(name)
	if key == "" {
		return nil, nil
	}
	var userID int64
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT user_id FROM document_author_mappings WHERE author_key = ?`, key,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("lookup author", err)
	}
	return &userID, nil
}

// ListAuthorMappings returns every mapping ordered by author name.
func (s *Store) ListAuthorMappings(ctx context.Context) ([]AuthorMapping, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT author_name, user_id, updated_at FROM document_author_mappings ORDER BY author_key`)
	if err != nil {
		return nil, classify("list authors", err)
	}
	defer rows.Close()

	var mappings []AuthorMapping
	for rows.Next() {
		var (
			m          AuthorMapping
			updatedRaw string
		)
		if err := rows.Scan(&m.AuthorName, &m.UserID, &updatedRaw); err != nil {
			return nil, err
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			m.UpdatedAt = updated
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// SeedAuthorMappings upserts the mappings declared in configuration.
// Mappings added at runtime are left alone.
func (s *Store) SeedAuthorMappings(ctx context.Context, mappings map[string]int64) error {
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.UpsertAuthorMapping(ctx, name, mappings[name]); err != nil {
			return fmt.Errorf("seed author %q: %w", name, err)
		}
	}
	return nil
}
