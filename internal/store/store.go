package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"docflow/internal/config"
	"docflow/internal/services"
)

// Store persists orders, glass documents, the import ledger and review
// conflicts in SQLite.
type Store struct {
	db        *sql.DB
	path      string
	txTimeout time.Duration

	// afterDelete runs inside replace transactions between the delete and the
	// insert. Tests use it to inject mid-operation failures.
	afterDelete func(kind string) error
}

const (
	sqliteBusyCode          = 5
	sqliteLockedCode        = 6
	sqliteConstraintUnique  = 2067
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultTxTimeout        = 30 * time.Second
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code(), true
	}
	return 0, false
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && (code&0xff == sqliteBusyCode || code&0xff == sqliteLockedCode) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code == sqliteConstraintUnique {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// classify tags err for the import queue: lock contention and transaction
// timeouts are transient, unique violations are duplicates, and anything
// already carrying a services marker passes through unchanged.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrDuplicate), errors.Is(err, services.ErrNotFound):
		return err
	case isSQLiteBusy(err):
		return services.Wrap(services.ErrTransient, "store", op, "database busy", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTransient, "store", op, "transaction timed out", err)
	case isUniqueViolation(err):
		return services.Wrap(services.ErrDuplicate, "store", op, "business key already exists", err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, classify(op, err)
	}
	return res, nil
}

// withTx runs fn in a single transaction bounded by the configured timeout.
// Busy errors retry the whole transaction; the final error is classified.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	err := retryOnBusy(txCtx, func() error {
		tx, err := s.db.BeginTx(txCtx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	return classify(op, err)
}

// Open initializes or connects to the docflow database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	busyTimeout := cfg.Store.BusyTimeoutMs
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}
	dbPath := cfg.DatabasePath()
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", dbPath, busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	txTimeout := cfg.TxTimeout()
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	store := &Store{db: db, path: dbPath, txTimeout: txTimeout}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.SeedAuthorMappings(context.Background(), cfg.Authors.Mappings); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
