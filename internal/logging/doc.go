// Package logging assembles structured slog loggers and formatting helpers used
// across docflow.
//
// It owns the console/JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with import job IDs, document types
// and correlation IDs. WarnWithContext and ErrorWithContext enforce the
// event_type/error_hint/impact triple on everything an operator may need to act
// on. CleanupOldLogs prunes per-run daemon logs.
package logging
