// Package importqueue serializes document imports through one process-wide,
// priority-ordered queue.
//
// A single actor goroutine owns all queue state: the pending heap, the job in
// flight, scheduled retries and the path index used for deduplication. Public
// methods send closures to the actor and wait for it to run them, so callers
// from watchers, the HTTP API and the IPC server never touch shared state
// directly. The actor hands one job at a time to a dedicated runner goroutine
// and dispatches the next only after the runner reports back, which keeps the
// single-writer datastore free of overlapping imports.
//
// Nothing is persisted. Jobs lost on restart are rediscovered by the watchers'
// startup scan because source files stay in place until an import finishes.
package importqueue
