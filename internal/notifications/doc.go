// Package notifications delivers import pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// docflow.toml and degrades to a no-op when notifications are disabled.
// Enumerated event types cover the pipeline milestones (entity changes,
// conflicts, failures, queue drained) so callers emit consistent messages
// without duplicating HTTP glue.
//
// The importer publishes through NewAsync so a slow ntfy server never holds
// the import queue.
package notifications
