// Package daemon coordinates the long-running docflow process.
//
// It wires configuration, the SQLite store, the import queue, the folder
// watchers and the HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes queue controls, manual file
// ingestion, conflict review helpers and status summaries, and owns the
// notifications triggered by queue failure and drain events.
//
// Keep orchestration logic here: import semantics live in the importer and
// queue packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
