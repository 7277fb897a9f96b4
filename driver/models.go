package driver

import "time"

// SearchDocumentDriver is the flat engine-side document shape. Timestamps
// are unix milliseconds so the engine can filter and sort on them without
// losing the sub-second precision the stale-write check depends on.
type SearchDocumentDriver struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	TenantID    string         `json:"tenantId"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Tags        []string       `json:"tags"`
	Permissions []string       `json:"permissions"`
	CreatedAt   int64          `json:"createdAt"`
	UpdatedAt   int64          `json:"updatedAt"`
	CreatedBy   string         `json:"createdBy,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	WorkItemType string   `json:"workItemType,omitempty"`
	Status       string   `json:"status,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	AssignedTo   string   `json:"assignedTo,omitempty"`
	ParentID     string   `json:"parentId,omitempty"`
	DueDate      *int64   `json:"dueDate,omitempty"`
	Progress     *int     `json:"progress,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Lineage      []string `json:"lineage,omitempty"`
}

// SearchHitDriver is one scored engine hit.
type SearchHitDriver struct {
	Document   SearchDocumentDriver
	Score      float64
	Highlights map[string]string
}

// SearchResultDriver is the engine-side answer to a compiled query.
type SearchResultDriver struct {
	Hits             []SearchHitDriver
	Total            int64
	Facets           map[string]map[string]int64
	ProcessingTimeMs int64
}

// WorkItemRow is a work item read from the authoritative store.
type WorkItemRow struct {
	ID           string
	TenantID     string
	Title        string
	Description  string
	Tags         []string
	WorkItemType string
	Status       string
	Priority     string
	AssignedTo   string
	ParentID     string
	DueDate      *time.Time
	Progress     *int
	Dependencies []string
	Lineage      []string
	Metadata     map[string]any
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRow is a user read from the authoritative store.
type UserRow struct {
	ID          string
	TenantID    string
	DisplayName string
	Email       string
	Role        string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TemplateRow is a template read from the authoritative store.
type TemplateRow struct {
	ID          string
	TenantID    string
	Name        string
	Description string
	Tags        []string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DriverError represents an error from the driver layer. Retryable marks
// connectivity and timeout failures that may succeed on a later attempt.
type DriverError struct {
	Op        string
	Err       string
	Retryable bool
}

func (e *DriverError) Error() string {
	return e.Op + ": " + e.Err
}

// NotFoundDriverError is returned when an operation targets an id the
// engine does not know.
type NotFoundDriverError struct {
	Index string
	ID    string
}

func (e *NotFoundDriverError) Error() string {
	return e.Index + "/" + e.ID + ": document not found"
}
