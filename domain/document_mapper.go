package domain

import (
	"fmt"
	"sort"
)

// ElevatedRoles always gain visibility on work items regardless of
// assignment. This broad-access policy is intentional; changing it changes
// who can see every work item in a tenant.
var ElevatedRoles = []string{"CEO", "President", "VP", "Director", "Manager"}

// NewWorkItemDocument derives a search document from a work-item snapshot.
// It is a total function: malformed optional fields degrade to their zero
// value, nothing is rejected.
func NewWorkItemDocument(s WorkItemSnapshot) SearchDocument {
	progress := s.Progress
	if progress != nil && (*progress < 0 || *progress > 100) {
		progress = nil
	}

	return SearchDocument{
		ID:          s.ID,
		Kind:        KindWorkItem,
		TenantID:    s.TenantID,
		Title:       s.Title,
		Body:        s.Description,
		Tags:        cloneStrings(s.Tags),
		Permissions: WorkItemPermissions(s.TenantID, s.AssignedTo, s.CreatedBy),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CreatedBy:   s.CreatedBy,
		Metadata:    scalarMetadata(s.Metadata),
		WorkItem: &WorkItemFields{
			WorkItemType: s.WorkItemType,
			Status:       s.Status,
			Priority:     s.Priority,
			AssignedTo:   s.AssignedTo,
			ParentID:     s.ParentID,
			DueDate:      s.DueDate,
			Progress:     progress,
			Dependencies: cloneStrings(s.Dependencies),
			Lineage:      cloneStrings(s.Lineage),
		},
	}
}

// NewUserDocument derives a search document from a user snapshot.
func NewUserDocument(s UserSnapshot) SearchDocument {
	meta := scalarMetadata(s.Metadata)
	if s.Role != "" {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["role"] = s.Role
	}

	return SearchDocument{
		ID:          s.ID,
		Kind:        KindUser,
		TenantID:    s.TenantID,
		Title:       s.DisplayName,
		Body:        s.Email,
		Tags:        cloneStrings(s.Tags),
		Permissions: basePermissions(s.TenantID, s.CreatedBy),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CreatedBy:   s.CreatedBy,
		Metadata:    meta,
	}
}

// NewTemplateDocument derives a search document from a template snapshot.
func NewTemplateDocument(s TemplateSnapshot) SearchDocument {
	return SearchDocument{
		ID:          s.ID,
		Kind:        KindTemplate,
		TenantID:    s.TenantID,
		Title:       s.Name,
		Body:        s.Description,
		Tags:        cloneStrings(s.Tags),
		Permissions: basePermissions(s.TenantID, s.CreatedBy),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CreatedBy:   s.CreatedBy,
		Metadata:    scalarMetadata(s.Metadata),
	}
}

// WorkItemPermissions computes the full permission token set for a work
// item. The result replaces any previously indexed set; it is never merged.
func WorkItemPermissions(tenantID, assignedTo, createdBy string) []string {
	perms := make([]string, 0, 3+len(ElevatedRoles))
	perms = append(perms, "tenant:"+tenantID)
	if assignedTo != "" {
		perms = append(perms, "user:"+assignedTo)
	}
	if createdBy != "" && createdBy != assignedTo {
		perms = append(perms, "user:"+createdBy)
	}
	for _, role := range ElevatedRoles {
		perms = append(perms, "role:"+role)
	}
	return perms
}

func basePermissions(tenantID, createdBy string) []string {
	perms := []string{"tenant:" + tenantID}
	if createdBy != "" {
		perms = append(perms, "user:"+createdBy)
	}
	return perms
}

// scalarMetadata keeps only scalar values from an open metadata map.
// Structured values are coerced away rather than indexed; the typed variant
// fields carry everything with known shape.
func scalarMetadata(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := in[k].(type) {
		case string, bool, float64, int, int64:
			out[k] = v
		case fmt.Stringer:
			out[k] = v.String()
		default:
			// non-scalar values are dropped
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
