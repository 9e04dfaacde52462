package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueJob describes a queued import in a transport-friendly format.
type QueueJob struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Path       string `json:"path"`
	Priority   string `json:"priority"`
	State      string `json:"state"`
	Attempt    int    `json:"attempt"`
	EnqueuedAt string `json:"enqueuedAt,omitempty"`
	RetryAt    string `json:"retryAt,omitempty"`
}

// QueueSnapshot lists the queue contents in execution order.
type QueueSnapshot struct {
	InFlight *QueueJob  `json:"inFlight,omitempty"`
	Pending  []QueueJob `json:"pending"`
	Retrying []QueueJob `json:"retrying"`
}

// QueueStats summarizes import queue activity since the daemon started.
type QueueStats struct {
	Running         bool    `json:"running"`
	Paused          bool    `json:"paused"`
	Pending         int     `json:"pending"`
	Processing      int     `json:"processing"`
	Retrying        int     `json:"retrying"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	TotalProcessed  int     `json:"totalProcessed"`
	AvgProcessingMs float64 `json:"avgProcessingMs"`
}

// WatcherStatus mirrors one folder watcher.
type WatcherStatus struct {
	Source    string `json:"source"`
	Dir       string `json:"dir"`
	Mode      string `json:"mode"`
	Running   bool   `json:"running"`
	LastScan  string `json:"lastScan,omitempty"`
	LastError string `json:"lastError,omitempty"`
	Submitted int    `json:"submitted"`
	Settling  int    `json:"settling"`
}

// Check mirrors a preflight result.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DatabaseHealth reports database diagnostics.
type DatabaseHealth struct {
	DBPath           string   `json:"dbPath"`
	DatabaseExists   bool     `json:"databaseExists"`
	DatabaseReadable bool     `json:"databaseReadable"`
	SchemaVersion    int      `json:"schemaVersion"`
	MissingTables    []string `json:"missingTables,omitempty"`
	IntegrityCheck   bool     `json:"integrityCheck"`
	TotalImports     int      `json:"totalImports"`
	PendingConflicts int      `json:"pendingConflicts"`
	Error            string   `json:"error,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool            `json:"running"`
	PID          int             `json:"pid"`
	DatabasePath string          `json:"databasePath"`
	LockFilePath string          `json:"lockFilePath"`
	Queue        QueueStats      `json:"queue"`
	Watchers     []WatcherStatus `json:"watchers"`
	Checks       []Check         `json:"checks,omitempty"`
	ImportStats  map[string]int  `json:"importStats"`
	Conflicts    ConflictCount   `json:"conflicts"`
}

// ImportEntry is one document ledger row.
type ImportEntry struct {
	ID           int64           `json:"id"`
	Filename     string          `json:"filename"`
	Filepath     string          `json:"filepath"`
	FileType     string          `json:"fileType"`
	Status       string          `json:"status"`
	ProcessedAt  string          `json:"processedAt,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
}

// ImportQuery narrows ledger listings. Empty fields match everything.
type ImportQuery struct {
	Status   string `json:"status,omitempty"`
	FileType string `json:"fileType,omitempty"`
	Filepath string `json:"filepath,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Conflict describes a reviewable order collision.
type Conflict struct {
	ID               int64  `json:"id"`
	OrderNumber      string `json:"orderNumber"`
	BaseOrderNumber  string `json:"baseOrderNumber"`
	Suffix           string `json:"suffix,omitempty"`
	BaseOrderID      *int64 `json:"baseOrderId,omitempty"`
	DocumentAuthor   string `json:"documentAuthor,omitempty"`
	AuthorUserID     *int64 `json:"authorUserId,omitempty"`
	Filepath         string `json:"filepath"`
	Filename         string `json:"filename"`
	ExistingWindows  int    `json:"existingWindowsCount"`
	ExistingGlasses  int    `json:"existingGlassesCount"`
	NewWindows       int    `json:"newWindowsCount"`
	NewGlasses       int    `json:"newGlassesCount"`
	SystemSuggestion string `json:"systemSuggestion"`
	Status           string `json:"status"`
	Resolution       string `json:"resolution,omitempty"`
	ResolvedByID     *int64 `json:"resolvedById,omitempty"`
	ResolvedAt       string `json:"resolvedAt,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
	// ParsedData is included only for single-conflict views.
	ParsedData json.RawMessage `json:"parsedData,omitempty"`
}

// ConflictQuery selects conflicts visible to a user. A nil UserID is the
// operator view.
type ConflictQuery struct {
	UserID *int64 `json:"userId,omitempty"`
	Filter string `json:"filter,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// ConflictCount summarizes conflicts visible to one user.
type ConflictCount struct {
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

// ResolveConflictRequest closes one or more conflicts.
type ResolveConflictRequest struct {
	IDs        []int64 `json:"ids"`
	Status     string  `json:"status"`
	Resolution string  `json:"resolution"`
	UserID     int64   `json:"userId"`
}

// AuthorMapping maps a document author to a user id.
type AuthorMapping struct {
	AuthorName string `json:"authorName"`
	UserID     int64  `json:"userId"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// AddFileResult reports a manual enqueue.
type AddFileResult struct {
	Path         string `json:"path"`
	DocumentType string `json:"documentType"`
	Priority     string `json:"priority"`
	Queued       bool   `json:"queued"`
	Message      string `json:"message"`
}

// ImportListResponse wraps ledger rows for API responses.
type ImportListResponse struct {
	Items []ImportEntry `json:"items"`
}

// ConflictListResponse wraps conflicts for API responses.
type ConflictListResponse struct {
	Items []Conflict `json:"items"`
}

// ConflictResponse wraps a single conflict.
type ConflictResponse struct {
	Item Conflict `json:"item"`
}
