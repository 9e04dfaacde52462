package api

import (
	"encoding/json"
	"sort"
	"time"

	"docflow/internal/importqueue"
	"docflow/internal/preflight"
	"docflow/internal/store"
	"docflow/internal/watcher"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// FromJobInfo converts a queue job view to its API representation.
func FromJobInfo(info importqueue.JobInfo) QueueJob {
	return QueueJob{
		ID:         info.ID,
		Type:       info.Type,
		Path:       info.Path,
		Priority:   info.Priority,
		State:      string(info.State),
		Attempt:    info.Attempt,
		EnqueuedAt: formatTime(info.EnqueuedAt),
		RetryAt:    formatTimePtr(info.RetryAt),
	}
}

func fromJobInfos(infos []importqueue.JobInfo) []QueueJob {
	out := make([]QueueJob, 0, len(infos))
	for _, info := range infos {
		out = append(out, FromJobInfo(info))
	}
	return out
}

// FromSnapshot converts a queue snapshot.
func FromSnapshot(snap importqueue.Snapshot) QueueSnapshot {
	dto := QueueSnapshot{
		Pending:  fromJobInfos(snap.Pending),
		Retrying: fromJobInfos(snap.Retrying),
	}
	if snap.InFlight != nil {
		job := FromJobInfo(*snap.InFlight)
		dto.InFlight = &job
	}
	return dto
}

// FromQueueStats converts queue counters. running reports whether the queue
// actor is alive; stats are zero when it is not.
func FromQueueStats(stats importqueue.Stats, running bool) QueueStats {
	return QueueStats{
		Running:         running,
		Paused:          stats.Paused,
		Pending:         stats.Pending,
		Processing:      stats.Processing,
		Retrying:        stats.Retrying,
		Completed:       stats.Completed,
		Failed:          stats.Failed,
		TotalProcessed:  stats.TotalProcessed,
		AvgProcessingMs: stats.AvgProcessingMs,
	}
}

// FromWatcherStatuses converts watcher states, sorted by source.
func FromWatcherStatuses(statuses []watcher.Status) []WatcherStatus {
	out := make([]WatcherStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, WatcherStatus{
			Source:    string(st.Source),
			Dir:       st.Dir,
			Mode:      string(st.Mode),
			Running:   st.Running,
			LastScan:  formatTime(st.LastScan),
			LastError: st.LastError,
			Submitted: st.Submitted,
			Settling:  st.Settling,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []Check {
	if len(results) == 0 {
		return nil
	}
	out := make([]Check, 0, len(results))
	for _, r := range results {
		out = append(out, Check{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromDatabaseHealth converts store diagnostics.
func FromDatabaseHealth(h store.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		DBPath:           h.DBPath,
		DatabaseExists:   h.DatabaseExists,
		DatabaseReadable: h.DatabaseReadable,
		SchemaVersion:    h.SchemaVersion,
		MissingTables:    append([]string(nil), h.MissingTables...),
		IntegrityCheck:   h.IntegrityCheck,
		TotalImports:     h.TotalImports,
		PendingConflicts: h.PendingConflicts,
		Error:            h.Error,
	}
}

// FromImportRecord converts a ledger row.
func FromImportRecord(rec store.ImportRecord) ImportEntry {
	dto := ImportEntry{
		ID:           rec.ID,
		Filename:     rec.Filename,
		Filepath:     rec.Filepath,
		FileType:     rec.FileType,
		Status:       string(rec.Status),
		ProcessedAt:  formatTimePtr(rec.ProcessedAt),
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    formatTime(rec.CreatedAt),
	}
	if raw := rec.MetadataJSON; raw != "" && json.Valid([]byte(raw)) {
		dto.Metadata = json.RawMessage(raw)
	}
	return dto
}

// FromImportRecords converts ledger rows preserving order.
func FromImportRecords(records []store.ImportRecord) []ImportEntry {
	if len(records) == 0 {
		return nil
	}
	out := make([]ImportEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, FromImportRecord(rec))
	}
	return out
}

// FromConflict converts a conflict row. Parsed data is attached only when
// withParsed is set.
func FromConflict(c store.Conflict, withParsed bool) Conflict {
	dto := Conflict{
		ID:               c.ID,
		OrderNumber:      c.OrderNumber,
		BaseOrderNumber:  c.BaseOrderNumber,
		Suffix:           c.Suffix,
		BaseOrderID:      c.BaseOrderID,
		DocumentAuthor:   c.DocumentAuthor,
		AuthorUserID:     c.AuthorUserID,
		Filepath:         c.Filepath,
		Filename:         c.Filename,
		ExistingWindows:  c.ExistingWindows,
		ExistingGlasses:  c.ExistingGlasses,
		NewWindows:       c.NewWindows,
		NewGlasses:       c.NewGlasses,
		SystemSuggestion: string(c.SystemSuggestion),
		Status:           string(c.Status),
		Resolution:       c.Resolution,
		ResolvedByID:     c.ResolvedByID,
		ResolvedAt:       formatTimePtr(c.ResolvedAt),
		CreatedAt:        formatTime(c.CreatedAt),
		UpdatedAt:        formatTime(c.UpdatedAt),
	}
	if withParsed && c.ParsedData != "" && json.Valid([]byte(c.ParsedData)) {
		dto.ParsedData = json.RawMessage(c.ParsedData)
	}
	return dto
}

// FromConflicts converts conflict rows preserving order.
func FromConflicts(conflicts []store.Conflict) []Conflict {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, FromConflict(c, false))
	}
	return out
}

// FromAuthorMappings converts author mappings.
func FromAuthorMappings(mappings []store.AuthorMapping) []AuthorMapping {
	out := make([]AuthorMapping, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, AuthorMapping{
			AuthorName: m.AuthorName,
			UserID:     m.UserID,
			UpdatedAt:  formatTime(m.UpdatedAt),
		})
	}
	return out
}

// MergeImportStats flattens ledger counts keyed by status, filling every
// known status with zero.
func MergeImportStats(stats map[store.ImportStatus]int) map[string]int {
	out := map[string]int{
		string(store.ImportPending):   0,
		string(store.ImportCompleted): 0,
		string(store.ImportFailed):    0,
		string(store.ImportSkipped):   0,
	}
	for status, count := range stats {
		out[string(status)] += count
	}
	return out
}
