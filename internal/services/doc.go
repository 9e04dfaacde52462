// Package services defines shared utilities consumed by the import pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, document types, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify, which turns
//     any import failure into a transient or permanent classification for the
//     import queue's retry decision.
//
// Components tag errors where the cause is known (the store knows a busy
// database; the parser knows malformed input) so nothing upstream has to match
// on message text.
package services
