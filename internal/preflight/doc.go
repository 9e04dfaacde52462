// Package preflight provides readiness checks for the filesystem paths and
// services docflow depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at start and before the watchers are launched;
//     failed watch folders are reported but do not stop the daemon, because
//     shares may come online later.
//   - The CLI "docflow status" command prints the same results.
//
// The notification check only runs when an ntfy topic is configured.
package preflight
