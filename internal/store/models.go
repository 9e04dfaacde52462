package store

import "time"

// ImportStatus is the outcome recorded in the import ledger.
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
	ImportSkipped    ImportStatus = "skipped"
)

// ImportRecord is one ledger row: a single processing attempt for a file.
type ImportRecord struct {
	ID           int64
	Filename     string
	Filepath     string
	FileType     string
	Status       ImportStatus
	ProcessedAt  *time.Time
	ErrorMessage string
	MetadataJSON string
	CreatedAt    time.Time
}

// ImportFilter narrows ListImports.
type ImportFilter struct {
	Status   ImportStatus
	FileType string
	Filepath string
	Limit    int
}

// ConflictStatus tracks a review conflict's single terminal transition.
type ConflictStatus string

const (
	ConflictPending   ConflictStatus = "pending"
	ConflictResolved  ConflictStatus = "resolved"
	ConflictCancelled ConflictStatus = "cancelled"
)

// Suggestion is the system's recommendation for a conflict.
type Suggestion string

const (
	SuggestReplaceBase Suggestion = "replace_base"
	// SuggestKeepBoth is part of the stored vocabulary; no heuristic emits it yet.
	SuggestKeepBoth Suggestion = "keep_both"
	SuggestManual   Suggestion = "manual"
)

// Conflict is a reviewable collision between a newly parsed order number and
// an existing base order.
type Conflict struct {
	ID               int64
	OrderNumber      string
	BaseOrderNumber  string
	Suffix           string
	BaseOrderID      *int64
	DocumentAuthor   string
	AuthorUserID     *int64
	Filepath         string
	Filename         string
	ParsedData       string
	ExistingWindows  int
	ExistingGlasses  int
	NewWindows       int
	NewGlasses       int
	SystemSuggestion Suggestion
	Status           ConflictStatus
	Resolution       string
	ResolvedByID     *int64
	ResolvedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ConflictFilter narrows ListConflicts. A nil UserID disables the visibility
// rule (operator view); an empty Status returns every status.
type ConflictFilter struct {
	UserID *int64
	Status ConflictStatus
	Limit  int
}

// ConflictCount summarizes conflicts visible to one user.
type ConflictCount struct {
	Pending int `json:"pending"`
	Total   int `json:"total"`
}

// Order is an order specification with its parsed line items.
type Order struct {
	ID              int64
	OrderNumber     string
	Client          string
	Project         string
	System          string
	Deadline        string
	PVCDeliveryDate string
	DocumentAuthor  string
	TotalWindows    int
	TotalSashes     int
	TotalGlasses    int
	Requirements    []Requirement
	Windows         []Window
	Glasses         []Glass
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Requirement is one profile demand line.
type Requirement struct {
	ArticleNumber string
	ProfileNumber string
	ColorCode     string
	Beams         int
	RestMM        int
}

// Window is one window or door position.
type Window struct {
	Position    int
	WidthMM     int
	HeightMM    int
	ProfileType string
	Quantity    int
	Reference   string
}

// Glass is one glazing unit position.
type Glass struct {
	Position    int
	WidthMM     int
	HeightMM    int
	Quantity    int
	PackageType string
}

// GlassOrder is a purchase order for glass sent to a supplier.
type GlassOrder struct {
	ID                   int64
	GlassOrderNumber     string
	Supplier             string
	OrderedBy            string
	OrderDate            *time.Time
	ExpectedDeliveryDate *time.Time
	Items                []GlassOrderItem
	ItemCount            int
	CreatedAt            time.Time
}

// GlassOrderItem is one ordered glass pane group.
type GlassOrderItem struct {
	GlassType     string
	Quantity      int
	WidthMM       int
	HeightMM      int
	Position      string
	OrderNumber   string
	OrderSuffix   string
	FullReference string
}

// GlassDelivery is a supplier rack manifest.
type GlassDelivery struct {
	ID                  int64
	RackNumber          string
	CustomerOrderNumber string
	SupplierOrderNumber string
	DeliveryDate        *time.Time
	Items               []GlassDeliveryItem
	ItemCount           int
	CreatedAt           time.Time
}

// GlassDeliveryItem is one delivered pane group.
type GlassDeliveryItem struct {
	OrderNumber      string
	OrderSuffix      string
	Position         string
	WidthMM          int
	HeightMM         int
	Quantity         int
	GlassComposition string
	SerialNumber     string
	ClientCode       string
}

// AuthorMapping links a document author name to the reviewer who owns their conflicts.
type AuthorMapping struct {
	AuthorName string
	UserID     int64
	UpdatedAt  time.Time
}
