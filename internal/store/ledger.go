package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const importColumns = "id, filename, filepath, file_type, status, processed_at, error_message, metadata_json, created_at"

func scanImport(scanner interface{ Scan(dest ...any) error }) (*ImportRecord, error) {
	var (
		rec          ImportRecord
		status       string
		processedRaw sql.NullString
		errorMessage sql.NullString
		metadata     sql.NullString
		createdRaw   string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Filename,
		&rec.Filepath,
		&rec.FileType,
		&status,
		&processedRaw,
		&errorMessage,
		&metadata,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	rec.Status = ImportStatus(status)
	rec.ProcessedAt = timePtr(processedRaw)
	rec.ErrorMessage = errorMessage.String
	rec.MetadataJSON = metadata.String
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return &rec, nil
}

// RecordImport appends a ledger row. Rows are never updated or deleted.
func (s *Store) RecordImport(ctx context.Context, rec ImportRecord) (int64, error) {
	if strings.TrimSpace(rec.Filename) == "" || rec.Status == "" {
		return 0, errors.New("record import: filename and status are required")
	}
	processedAt := rec.ProcessedAt
	if processedAt == nil && rec.Status != ImportPending && rec.Status != ImportProcessing {
		now := time.Now().UTC()
		processedAt = &now
	}
	res, err := s.execWithRetry(ctx, "record import",
		`INSERT INTO file_imports (filename, filepath, file_type, status, processed_at, error_message, metadata_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Filename,
		rec.Filepath,
		rec.FileType,
		string(rec.Status),
		nullableTime(processedAt),
		nullableString(rec.ErrorMessage),
		nullableString(rec.MetadataJSON),
		nowString(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestImport returns the newest ledger row for filename whose status is one
// of statuses (any status when none are given), or nil.
func (s *Store) LatestImport(ctx context.Context, filename string, statuses ...ImportStatus) (*ImportRecord, error) {
	query := `SELECT ` + importColumns + ` FROM file_imports WHERE filename = ?`
	args := []any{filename}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY id DESC LIMIT 1`

	rec, err := scanImport(s.db.QueryRowContext(ensureContext(ctx), query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("latest import", err)
	}
	return rec, nil
}

// ListImports returns ledger rows newest first.
func (s *Store) ListImports(ctx context.Context, filter ImportFilter) ([]ImportRecord, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.FileType != "" {
		clauses = append(clauses, "file_type = ?")
		args = append(args, filter.FileType)
	}
	if filter.Filepath != "" {
		clauses = append(clauses, "filepath = ?")
		args = append(args, filter.Filepath)
	}
	query := `SELECT ` + importColumns + ` FROM file_imports`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, classify("list imports", err)
	}
	defer rows.Close()

	var records []ImportRecord
	for rows.Next() {
		rec, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ImportStats counts ledger rows grouped by status.
func (s *Store) ImportStats(ctx context.Context) (map[ImportStatus]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM file_imports GROUP BY status`)
	if err != nil {
		return nil, classify("import stats", err)
	}
	defer rows.Close()

	stats := make(map[ImportStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[ImportStatus(status)] = count
	}
	return stats, rows.Err()
}
