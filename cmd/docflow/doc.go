// Command docflow is the operator CLI for the document-ingestion daemon.
//
// Lifecycle commands (start, stop, status, daemon) manage the background
// process. Queue commands require a running daemon because the import queue
// lives in memory. Ledger, conflict and author commands talk to the daemon over
// IPC when it is reachable and fall back to opening the database directly when
// it is not.
package main
