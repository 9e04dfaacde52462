package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"docflow/internal/config"
	"docflow/internal/conflict"
	"docflow/internal/fileutil"
	"docflow/internal/logging"
	"docflow/internal/notifications"
	"docflow/internal/parse"
	"docflow/internal/services"
	"docflow/internal/store"
)

// DocumentType tags a source file with the processor that handles it.
type DocumentType string

const (
	GlassOrder    DocumentType = "glass_order"
	GlassDelivery DocumentType = "glass_delivery"
	OrderSpec     DocumentType = "order_spec"
)

// Store is the persistence surface used by the processors.
type Store interface {
	FindOrderByNumber(ctx context.Context, orderNumber string) (*store.Order, error)
	CreateOrder(ctx context.Context, order *store.Order) (int64, error)
	ReplaceOrder(ctx context.Context, order *store.Order) (int64, bool, error)

	FindGlassOrder(ctx context.Context, glassOrderNumber string) (*store.GlassOrder, error)
	CreateGlassOrder(ctx context.Context, order *store.GlassOrder) (int64, error)
	ReplaceGlassOrder(ctx context.Context, order *store.GlassOrder) (int64, bool, error)

	FindGlassDelivery(ctx context.Context, rackNumber string) (*store.GlassDelivery, error)
	CreateGlassDelivery(ctx context.Context, delivery *store.GlassDelivery) (int64, error)
	ReplaceGlassDelivery(ctx context.Context, delivery *store.GlassDelivery) (int64, bool, error)

	RecordImport(ctx context.Context, rec store.ImportRecord) (int64, error)
	LatestImport(ctx context.Context, filename string, statuses ...store.ImportStatus) (*store.ImportRecord, error)
}

// ConflictRecorder stores order-number collisions for review.
type ConflictRecorder interface {
	Record(ctx context.Context, c conflict.Candidate) (*store.Conflict, bool, error)
}

// Importer runs the per-type import processors.
type Importer struct {
	store      Store
	conflicts  ConflictRecorder
	notifier   notifications.Service
	logger     *slog.Logger
	archiveDir string
	skippedDir string
	now        func() time.Time
}

// New constructs an importer. Archive and skipped folders are resolved
// relative to each source file's directory using the names from cfg.
func New(cfg *config.Config, st Store, conflicts ConflictRecorder, notifier notifications.Service, logger *slog.Logger) *Importer {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	return &Importer{
		store:      st,
		conflicts:  conflicts,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "importer"),
		archiveDir: cfg.Watch.ArchiveDirName,
		skippedDir: cfg.Watch.SkippedDirName,
		now:        time.Now,
	}
}

// Import dispatches path to the processor for docType.
func (i *Importer) Import(ctx context.Context, docType DocumentType, path string, correction bool) error {
	switch docType {
	case GlassOrder:
		return i.ImportGlassOrder(ctx, path, correction)
	case GlassDelivery:
		return i.ImportGlassDelivery(ctx, path, correction)
	case OrderSpec:
		return i.ImportOrderSpec(ctx, path, correction)
	default:
		return services.Wrap(services.ErrValidation, "importer", "dispatch", fmt.Sprintf("unknown document type %q", docType), nil)
	}
}

func (i *Importer) archivePath(source string) string {
	return filepath.Join(filepath.Dir(source), i.archiveDir)
}

func (i *Importer) skippedPath(source string) string {
	return filepath.Join(filepath.Dir(source), i.skippedDir)
}

// readText loads and decodes a source file.
func readText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, "importer", "read", path, err)
		}
		return "", services.Wrap(services.ErrTransient, "importer", "read", path, err)
	}
	return parse.Decode(raw)
}

// outcome is what a successful processor reports to the shared epilogue.
type outcome struct {
	status   store.ImportStatus
	metadata map[string]any
	event    notifications.Event
	payload  notifications.Payload
}

// finish writes the ledger row, archives the file and publishes the
// notification for a committed import.
func (i *Importer) finish(ctx context.Context, docType DocumentType, path string, out outcome) {
	logger := logging.WithContext(ctx, i.logger)
	if _, err := i.store.RecordImport(ctx, store.ImportRecord{
		Filename:     filepath.Base(path),
		Filepath:     path,
		FileType:     string(docType),
		Status:       out.status,
		MetadataJSON: encodeMetadata(out.metadata),
	}); err != nil {
		logging.WarnWithContext(logger, "ledger write failed after import", "ledger_write_failed",
			logging.Path(path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file may be imported again after a restart"),
		)
	}

	archived, err := fileutil.MoveIntoDir(path, i.archivePath(path), i.now())
	if err != nil {
		logging.WarnWithContext(logger, "archive move failed", "archive_failed",
			logging.Path(path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the archive folder"),
			logging.String(logging.FieldImpact, "imported file stays in the watched folder"),
		)
	} else {
		logger.Debug("source file archived", logging.String("archived_path", archived))
	}

	if out.event != "" {
		if err := i.notifier.Publish(ctx, out.event, out.payload); err != nil {
			logger.Debug("notification failed", logging.Error(err))
		}
	}
}

// fail records a failed ledger row and returns err unchanged. A ledger write
// failure is logged and swallowed.
func (i *Importer) fail(ctx context.Context, docType DocumentType, path string, err error) error {
	logger := logging.WithContext(ctx, i.logger)
	if _, recErr := i.store.RecordImport(ctx, store.ImportRecord{
		Filename:     filepath.Base(path),
		Filepath:     path,
		FileType:     string(docType),
		Status:       store.ImportFailed,
		ErrorMessage: err.Error(),
	}); recErr != nil {
		logging.WarnWithContext(logger, "failed to record import failure", "ledger_write_failed",
			logging.Path(path),
			logging.Error(recErr),
			logging.String(logging.FieldImpact, "ledger lacks this failed attempt"),
		)
	}
	logger.Info("import attempt failed",
		logging.String(logging.FieldEventType, "import_failed"),
		logging.Path(path),
		logging.Error(err),
		logging.Bool("transient", services.IsTransient(err)),
	)
	return err
}

func encodeMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(data)
}
