package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"docflow/internal/fileutil"
	"docflow/internal/logging"
	"docflow/internal/store"
)

// SkipDecision is the outcome of the pre-import ledger check.
type SkipDecision int

const (
	// Process means the file has not been imported, or its earlier copy is gone.
	Process SkipDecision = iota
	// Skip means an identical name was imported and a previous duplicate already sits in the skipped folder.
	Skip
	// AlreadyArchived means an identical name was imported and its copy is in the archive folder.
	AlreadyArchived
)

func (d SkipDecision) String() string {
	switch d {
	case Skip:
		return "skip"
	case AlreadyArchived:
		return "already_archived"
	default:
		return "process"
	}
}

// ShouldSkipImport checks the ledger for a completed import of a file with
// the same name and looks for its archived or skipped copy.
func (i *Importer) ShouldSkipImport(ctx context.Context, path string) (SkipDecision, error) {
	name := filepath.Base(path)
	rec, err := i.store.LatestImport(ctx, name, store.ImportCompleted)
	if err != nil {
		return Process, err
	}
	if rec == nil {
		return Process, nil
	}
	if exists(filepath.Join(i.archivePath(path), name)) {
		return AlreadyArchived, nil
	}
	if exists(filepath.Join(i.skippedPath(path), name)) {
		return Skip, nil
	}
	return Process, nil
}

// skipFile moves path into the skipped folder. No ledger row is written.
func (i *Importer) skipFile(ctx context.Context, path string, decision SkipDecision) {
	logger := logging.WithContext(ctx, i.logger)
	target, err := fileutil.MoveIntoDir(path, i.skippedPath(path), i.now())
	if err != nil {
		logging.WarnWithContext(logger, "skip move failed", "skip_move_failed",
			logging.Path(path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the skipped folder"),
			logging.String(logging.FieldImpact, "file stays in the watched folder and is checked again on the next scan"),
		)
		return
	}
	logger.Info("file already imported; moved to skipped",
		logging.String(logging.FieldEventType, "import_skipped"),
		logging.Path(path),
		logging.String("decision", decision.String()),
		logging.String("skipped_path", target),
	)
}

// preflight runs the skip check for non-correction files and reports
// whether the import should stop here.
func (i *Importer) preflight(ctx context.Context, path string, correction bool) (bool, error) {
	if correction {
		return false, nil
	}
	decision, err := i.ShouldSkipImport(ctx, path)
	if err != nil {
		return false, err
	}
	if decision == Process {
		return false, nil
	}
	i.skipFile(ctx, path, decision)
	return true, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
