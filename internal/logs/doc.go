// Package logs reads the daemon log files for the `docflow logs` command.
//
// Tail returns the last N lines of the current log plus the byte offset to
// resume from, and Follow keeps polling that offset until the context ends.
// The daemon writes one file per run and points docflow.log at the newest
// one, so CurrentPath resolves that pointer before reading.
package logs
