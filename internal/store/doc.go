// Package store persists docflow's business documents and bookkeeping in
// SQLite.
//
// Orders, glass orders and glass deliveries are keyed by their business
// numbers. Create fails with services.ErrDuplicate on an existing key, while
// Replace swaps the stored document in a single transaction so a failure
// half-way leaves the prior version untouched.
//
// The file_imports table is an append-only ledger: every processing attempt
// adds a row and nothing ever rewrites one. The pending_import_conflicts table
// holds order-number collisions awaiting review; at most one pending row exists
// per (order number, base order number) pair and each row leaves pending
// exactly once.
//
// Lock contention and transaction timeouts surface as services.ErrTransient so
// the import queue can retry them. Schema changes are appended to the
// migration list in schema.go and applied in order on Open; a database from a
// newer build is refused with ErrSchemaMismatch.
package store
