// Package importer turns one source file into persisted business entities.
//
// Each document type has an entry point (ImportGlassOrder,
// ImportGlassDelivery, ImportOrderSpec) that reads and decodes the file,
// parses it, decides between create, duplicate and conflict, persists the
// result, appends a ledger row and finally moves the file into the archive
// folder next to it. Any failure before the commit leaves the file where it
// was and records a failed ledger row; the import queue decides whether to
// retry based on services.IsTransient.
//
// Correction files bypass the skip check and replace the prior entity in a
// single transaction.
package importer
