// Package parse turns the raw bytes of business documents into typed values.
//
// Three formats are understood: order specifications ("użyte bele" CSV),
// glass purchase orders (tab separated TXT) and glass delivery manifests
// (semicolon CSV). Each parser is a pure function over decoded text; Decode
// handles the Windows-1250 exports produced by the ERP workstations.
//
// Structural problems are reported as services.ErrValidation so the import
// queue never retries them.
package parse
