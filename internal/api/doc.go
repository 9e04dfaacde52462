// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates import queue, ledger and conflict models into
// transport-friendly DTOs that the CLI and other consumers can render without
// coupling to internal types.
//
// # Key Types
//
// QueueStats/QueueSnapshot: live import queue counters and contents.
//
// ImportEntry: one document ledger row with its metadata passed through.
//
// Conflict: a reviewable order collision with counts and suggestion.
//
// DaemonStatus: aggregated runtime information including watchers and checks.
//
// # Services
//
// ReviewService wraps the ledger and conflict resolver so the daemon, the IPC
// server and the offline CLI path return identical payloads.
//
// ResolveConflictsByID closes a batch of conflicts and reports a per-id
// outcome instead of failing on the first already-closed entry.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Ledger metadata is passed through as json.RawMessage to avoid
// double-encoding.
package api
