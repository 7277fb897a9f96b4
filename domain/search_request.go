package domain

import (
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxQueryLength  = 1000
)

// SearchRequest is a validated, fully scoped search input. TenantID, UserID
// and UserRole are injected by the boundary from verified identity; they are
// never client-supplied.
type SearchRequest struct {
	Query      string
	Filters    SearchFilters
	Sort       []SortField
	Pagination Pagination

	TenantID string
	UserID   string
	UserRole string
}

// SearchFilters holds the optional facet constraints. Empty slices impose no
// constraint for their facet.
type SearchFilters struct {
	Type         []DocumentKind
	WorkItemType []string
	Status       []string
	Priority     []string
	AssignedTo   []string
	Tags         []string
	DateRange    *DateRangeFilter
}

// DateRangeFilter bounds a named date field inclusively. Either bound may be
// absent; at least one must be present.
type DateRangeFilter struct {
	Field string
	From  *time.Time
	To    *time.Time
}

// SortField orders results by one field.
type SortField struct {
	Field     string
	Direction SortDirection
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Pagination is an offset/size window. Size is clamped to [1, MaxPageSize]
// by Normalize; a negative From is a validation error.
type Pagination struct {
	From int
	Size int
}

// SearchResult is the ordered, scored answer to one SearchRequest.
type SearchResult struct {
	Documents     []ScoredDocument
	Total         int64
	Aggregations  map[string]map[string]int64
	ExecutionTime time.Duration
}

// sortableFields are the document fields a caller may sort on.
var sortableFields = map[string]struct{}{
	"updatedAt": {},
	"createdAt": {},
	"dueDate":   {},
	"title":     {},
	"priority":  {},
	"status":    {},
}

// dateRangeFields are the document fields a date-range filter may name.
var dateRangeFields = map[string]struct{}{
	"createdAt": {},
	"updatedAt": {},
	"dueDate":   {},
}

// Validate checks the client-controlled parts of the request and returns the
// first field-level failure. Identity fields are checked too because a
// request without a tenant must never reach the engine.
func (r *SearchRequest) Validate() error {
	if r.TenantID == "" {
		return &ValidationError{Field: "tenantId", Reason: "required"}
	}
	if len(r.Query) > MaxQueryLength {
		return &ValidationError{Field: "query", Reason: "too long"}
	}
	if r.Pagination.From < 0 {
		return &ValidationError{Field: "pagination.from", Reason: "must be >= 0"}
	}
	for _, k := range r.Filters.Type {
		if !ValidKind(k) {
			return &ValidationError{Field: "filters.type", Reason: "unknown kind " + string(k)}
		}
	}
	for _, s := range r.Sort {
		if _, ok := sortableFields[s.Field]; !ok {
			return &ValidationError{Field: "sort", Reason: "field " + s.Field + " is not sortable"}
		}
		if s.Direction != SortAsc && s.Direction != SortDesc {
			return &ValidationError{Field: "sort", Reason: "direction must be asc or desc"}
		}
	}
	if dr := r.Filters.DateRange; dr != nil {
		if _, ok := dateRangeFields[dr.Field]; !ok {
			return &ValidationError{Field: "filters.dateRange.field", Reason: "field " + dr.Field + " does not support range filters"}
		}
		if dr.From == nil && dr.To == nil {
			return &ValidationError{Field: "filters.dateRange", Reason: "at least one bound required"}
		}
		if dr.From != nil && dr.To != nil && dr.To.Before(*dr.From) {
			return &ValidationError{Field: "filters.dateRange", Reason: "to precedes from"}
		}
	}
	if err := ValidateFilterTags(r.Filters.Tags); err != nil {
		return &ValidationError{Field: "filters.tags", Reason: err.Error()}
	}
	return nil
}

// Normalize clamps pagination into its allowed window. Callers must validate
// first; Normalize never rejects.
func (r *SearchRequest) Normalize() {
	if r.Pagination.Size < 1 {
		r.Pagination.Size = DefaultPageSize
	}
	if r.Pagination.Size > MaxPageSize {
		r.Pagination.Size = MaxPageSize
	}
	if r.Pagination.From < 0 {
		r.Pagination.From = 0
	}
}

// TargetKinds resolves collection selection: a type filter restricts the
// searched collections, otherwise every collection is searched.
func (r *SearchRequest) TargetKinds() []DocumentKind {
	if len(r.Filters.Type) == 0 {
		return Kinds()
	}
	return r.Filters.Type
}

// PermissionTokens lists the permission set the caller holds. A document is
// visible when its permissions intersect this set.
func (r *SearchRequest) PermissionTokens() []string {
	tokens := []string{"tenant:" + r.TenantID}
	if r.UserID != "" {
		tokens = append(tokens, "user:"+r.UserID)
	}
	if r.UserRole != "" {
		tokens = append(tokens, "role:"+r.UserRole)
	}
	return tokens
}
