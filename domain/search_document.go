package domain

import "time"

// DocumentKind identifies which collection a search document belongs to.
type DocumentKind string

const (
	KindWorkItem DocumentKind = "work_item"
	KindUser     DocumentKind = "user"
	KindTemplate DocumentKind = "template"
)

// Kinds lists every known document kind in collection order.
func Kinds() []DocumentKind {
	return []DocumentKind{KindWorkItem, KindUser, KindTemplate}
}

// ValidKind reports whether k names a known document kind.
func ValidKind(k DocumentKind) bool {
	switch k {
	case KindWorkItem, KindUser, KindTemplate:
		return true
	}
	return false
}

// SearchDocument is the canonical indexable record. The common fields are
// shared by every kind; WorkItem is populated only when Kind == KindWorkItem.
// Metadata carries genuinely free-form kind-specific scalars and nothing else.
type SearchDocument struct {
	ID          string
	Kind        DocumentKind
	TenantID    string
	Title       string
	Body        string
	Tags        []string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   string
	Metadata    map[string]any

	WorkItem *WorkItemFields
}

// WorkItemFields is the work-item variant of SearchDocument.
type WorkItemFields struct {
	WorkItemType string
	Status       string
	Priority     string
	AssignedTo   string
	ParentID     string
	DueDate      *time.Time
	Progress     *int
	Dependencies []string
	Lineage      []string
}

// ScoredDocument is one search hit with its relevance score and optional
// highlighted snippets keyed by field name.
type ScoredDocument struct {
	Document   SearchDocument
	Score      float64
	Highlights map[string]string
}

// CollectionStats describes one collection for the stats endpoint.
type CollectionStats struct {
	Name          string
	DocumentCount int64
	Size          int64
	Healthy       bool
}
