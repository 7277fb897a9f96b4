package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind is the closed set of domain events this service reacts to.
// Unrecognized routing keys map to EventUnknown and are dropped by the
// consumer after logging.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventWorkItemCreated
	EventWorkItemUpdated
	EventWorkItemDeleted
	EventWorkItemStatusChanged
	EventUserCreated
	EventUserUpdated
	EventUserDeleted
	EventReindexAll
	EventReindexTenant
	EventReindexType
)

// Routing keys as published by the upstream services.
const (
	RKWorkItemCreated       = "work_item.created"
	RKWorkItemUpdated       = "work_item.updated"
	RKWorkItemDeleted       = "work_item.deleted"
	RKWorkItemStatusChanged = "work_item.status_changed"
	RKUserCreated           = "user.created"
	RKUserUpdated           = "user.updated"
	RKUserDeleted           = "user.deleted"
	RKReindexAll            = "search.reindex.all"
	RKReindexTenant         = "search.reindex.tenant"
	RKReindexType           = "search.reindex.type"
)

// ParseRoutingKey maps a dot-delimited routing key to its EventKind.
func ParseRoutingKey(key string) EventKind {
	switch key {
	case RKWorkItemCreated:
		return EventWorkItemCreated
	case RKWorkItemUpdated:
		return EventWorkItemUpdated
	case RKWorkItemDeleted:
		return EventWorkItemDeleted
	case RKWorkItemStatusChanged:
		return EventWorkItemStatusChanged
	case RKUserCreated:
		return EventUserCreated
	case RKUserUpdated:
		return EventUserUpdated
	case RKUserDeleted:
		return EventUserDeleted
	case RKReindexAll:
		return EventReindexAll
	case RKReindexTenant:
		return EventReindexTenant
	case RKReindexType:
		return EventReindexType
	}
	return EventUnknown
}

// DomainEvent is one immutable fact about authoritative data, as received
// from the broker. OccurredAt is the event's own timestamp and drives
// stale-write rejection; it is never the processing time.
type DomainEvent struct {
	EventID    string
	RoutingKey string
	Source     string
	TenantID   string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// Kind returns the parsed event kind for the routing key.
func (e DomainEvent) Kind() EventKind {
	return ParseRoutingKey(e.RoutingKey)
}

// WorkItemSnapshot is the full work-item payload carried by
// work_item.created / work_item.updated events.
type WorkItemSnapshot struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Tags         []string       `json:"tags"`
	WorkItemType string         `json:"work_item_type"`
	Status       string         `json:"status"`
	Priority     string         `json:"priority"`
	AssignedTo   string         `json:"assigned_to"`
	ParentID     string         `json:"parent_id"`
	DueDate      *time.Time     `json:"due_date"`
	Progress     *int           `json:"progress"`
	Dependencies []string       `json:"dependencies"`
	Lineage      []string       `json:"lineage"`
	CreatedBy    string         `json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Metadata     map[string]any `json:"metadata"`
}

// UserSnapshot is the full user payload carried by user.created /
// user.updated events.
type UserSnapshot struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	Tags        []string       `json:"tags"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Metadata    map[string]any `json:"metadata"`
}

// TemplateSnapshot is the full template payload used by the bulk reindexer.
type TemplateSnapshot struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Metadata    map[string]any `json:"metadata"`
}

// WorkItemDeleted is the payload of work_item.deleted.
type WorkItemDeleted struct {
	WorkItemID string `json:"work_item_id"`
	TenantID   string `json:"tenant_id"`
}

// WorkItemStatusChanged is the payload of work_item.status_changed.
type WorkItemStatusChanged struct {
	WorkItemID string `json:"work_item_id"`
	NewStatus  string `json:"new_status"`
	TenantID   string `json:"tenant_id"`
}

// UserDeleted is the payload of user.deleted.
type UserDeleted struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// ReindexScope is the payload of search.reindex.* events.
type ReindexScope struct {
	TenantID string       `json:"tenant_id"`
	Kind     DocumentKind `json:"kind"`
}

// ValidateEvent checks that the event payload is well-formed for its routing
// key. It is the consumer-boundary schema check: a failure here marks the
// message as poison and it is dropped rather than dispatched.
func ValidateEvent(e DomainEvent) error {
	switch e.Kind() {
	case EventWorkItemCreated, EventWorkItemUpdated:
		var s WorkItemSnapshot
		if err := json.Unmarshal(e.Payload, &s); err != nil {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: err.Error()}
		}
		if s.ID == "" || s.TenantID == "" {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: "missing id or tenant_id"}
		}
	case EventWorkItemDeleted:
		var p WorkItemDeleted
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: err.Error()}
		}
		if p.WorkItemID == "" {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: "missing work_item_id"}
		}
	case EventWorkItemStatusChanged:
		var p WorkItemStatusChanged
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: err.Error()}
		}
		if p.WorkItemID == "" || p.NewStatus == "" {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: "missing work_item_id or new_status"}
		}
	case EventUserCreated, EventUserUpdated:
		var s UserSnapshot
		if err := json.Unmarshal(e.Payload, &s); err != nil {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: err.Error()}
		}
		if s.ID == "" || s.TenantID == "" {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: "missing id or tenant_id"}
		}
	case EventUserDeleted:
		var p UserDeleted
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: err.Error()}
		}
		if p.UserID == "" {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: "missing user_id"}
		}
	case EventReindexAll:
		// No payload required.
	case EventReindexTenant:
		var p ReindexScope
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: err.Error()}
		}
		if p.TenantID == "" {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: "missing tenant_id"}
		}
	case EventReindexType:
		var p ReindexScope
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: err.Error()}
		}
		if !ValidKind(p.Kind) {
			return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: fmt.Sprintf("unknown kind %q", p.Kind)}
		}
	case EventUnknown:
		return &PoisonMessageError{RoutingKey: e.RoutingKey, Reason: "unrecognized routing key"}
	}
	return nil
}
