// Package watcher discovers business documents in the shared source folders
// and submits them to the import queue.
//
// Each Watcher owns one non-recursive folder. Local folders use fsnotify;
// network shares, where kernel notifications are unreliable, set polling and
// are rescanned on a ticker instead. A file is only submitted once its size
// and modification time stop changing for the configured stability window,
// so half-copied exports are never parsed.
//
// On start every watcher performs one backlog scan and submits the whole set
// through a single EnqueueBatch call at backlog priority. Corrections always
// keep correction priority.
package watcher
