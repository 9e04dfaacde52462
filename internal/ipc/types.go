package ipc

import "docflow/internal/api"

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the import services.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon, queue, watcher and review status.
type StatusResponse = api.DaemonStatus

// QueueStatusRequest fetches queue counters and contents.
type QueueStatusRequest struct{}

// QueueStatusResponse contains queue counters and the queued jobs.
type QueueStatusResponse struct {
	Stats    api.QueueStats    `json:"stats"`
	Snapshot api.QueueSnapshot `json:"snapshot"`
}

// QueuePauseRequest stops dispatching new imports.
type QueuePauseRequest struct{}

// QueueResumeRequest re-enables dispatching.
type QueueResumeRequest struct{}

// QueueStateResponse reports the queue's paused flag after a change.
type QueueStateResponse struct {
	Paused bool `json:"paused"`
}

// QueueClearRequest drops pending and retrying jobs.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed jobs.
type QueueClearResponse struct {
	Removed int `json:"removed"`
}

// AddFileRequest enqueues a file for import.
type AddFileRequest struct {
	Path string `json:"path"`
}

// AddFileResponse reports the manual enqueue outcome.
type AddFileResponse struct {
	Result api.AddFileResult `json:"result"`
}

// ImportsListRequest filters ledger rows.
type ImportsListRequest struct {
	Query api.ImportQuery `json:"query"`
}

// ImportsListResponse contains ledger rows newest first.
type ImportsListResponse struct {
	Items []api.ImportEntry `json:"items"`
}

// ConflictsListRequest filters conflicts.
type ConflictsListRequest struct {
	Query api.ConflictQuery `json:"query"`
}

// ConflictsListResponse contains conflicts newest first.
type ConflictsListResponse struct {
	Items []api.Conflict `json:"items"`
}

// ConflictsCountRequest counts conflicts visible to a user.
type ConflictsCountRequest struct {
	UserID *int64 `json:"user_id"`
}

// ConflictsCountResponse contains pending and total counts.
type ConflictsCountResponse struct {
	Count api.ConflictCount `json:"count"`
}

// ConflictDescribeRequest fetches a single conflict by id.
type ConflictDescribeRequest struct {
	ID int64 `json:"id"`
}

// ConflictDescribeResponse contains a single conflict.
type ConflictDescribeResponse struct {
	Found bool         `json:"found"`
	Item  api.Conflict `json:"item"`
}

// ConflictsResolveRequest closes conflicts.
type ConflictsResolveRequest struct {
	Request api.ResolveConflictRequest `json:"request"`
}

// ConflictsResolveResponse reports per-conflict outcomes.
type ConflictsResolveResponse struct {
	Result api.ResolveConflictsResult `json:"result"`
}

// AuthorsSetRequest maps a document author to a user id.
type AuthorsSetRequest struct {
	Name   string `json:"name"`
	UserID int64  `json:"user_id"`
}

// AuthorsSetResponse acknowledges a mapping change.
type AuthorsSetResponse struct {
	Updated bool `json:"updated"`
}

// AuthorsListRequest lists author mappings.
type AuthorsListRequest struct{}

// AuthorsListResponse contains author mappings.
type AuthorsListResponse struct {
	Items []api.AuthorMapping `json:"items"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse = api.DatabaseHealth

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
