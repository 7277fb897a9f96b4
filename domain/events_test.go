package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseRoutingKey(t *testing.T) {
	tests := []struct {
		key  string
		want EventKind
	}{
		{RKWorkItemCreated, EventWorkItemCreated},
		{RKWorkItemUpdated, EventWorkItemUpdated},
		{RKWorkItemDeleted, EventWorkItemDeleted},
		{RKWorkItemStatusChanged, EventWorkItemStatusChanged},
		{RKUserCreated, EventUserCreated},
		{RKUserUpdated, EventUserUpdated},
		{RKUserDeleted, EventUserDeleted},
		{RKReindexAll, EventReindexAll},
		{RKReindexTenant, EventReindexTenant},
		{RKReindexType, EventReindexType},
		{"work_item.archived", EventUnknown},
		{"", EventUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := ParseRoutingKey(tt.key); got != tt.want {
				t.Errorf("ParseRoutingKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestValidateEvent(t *testing.T) {
	now := time.Now()

	mustJSON := func(v any) json.RawMessage {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}

	tests := []struct {
		name       string
		routingKey string
		payload    json.RawMessage
		wantPoison bool
	}{
		{
			name:       "valid work item snapshot",
			routingKey: RKWorkItemCreated,
			payload:    mustJSON(WorkItemSnapshot{ID: "wi-1", TenantID: "t-1", UpdatedAt: now}),
		},
		{
			name:       "work item snapshot missing tenant",
			routingKey: RKWorkItemUpdated,
			payload:    mustJSON(WorkItemSnapshot{ID: "wi-1"}),
			wantPoison: true,
		},
		{
			name:       "malformed json",
			routingKey: RKWorkItemCreated,
			payload:    json.RawMessage(`{not json`),
			wantPoison: true,
		},
		{
			name:       "valid delete",
			routingKey: RKWorkItemDeleted,
			payload:    mustJSON(WorkItemDeleted{WorkItemID: "wi-1"}),
		},
		{
			name:       "delete missing id",
			routingKey: RKWorkItemDeleted,
			payload:    mustJSON(WorkItemDeleted{}),
			wantPoison: true,
		},
		{
			name:       "status change missing status",
			routingKey: RKWorkItemStatusChanged,
			payload:    mustJSON(WorkItemStatusChanged{WorkItemID: "wi-1"}),
			wantPoison: true,
		},
		{
			name:       "valid status change",
			routingKey: RKWorkItemStatusChanged,
			payload:    mustJSON(WorkItemStatusChanged{WorkItemID: "wi-1", NewStatus: "done"}),
		},
		{
			name:       "valid user snapshot",
			routingKey: RKUserCreated,
			payload:    mustJSON(UserSnapshot{ID: "u-1", TenantID: "t-1"}),
		},
		{
			name:       "user delete missing id",
			routingKey: RKUserDeleted,
			payload:    mustJSON(UserDeleted{}),
			wantPoison: true,
		},
		{
			name:       "reindex all needs no payload",
			routingKey: RKReindexAll,
		},
		{
			name:       "reindex tenant missing tenant",
			routingKey: RKReindexTenant,
			payload:    mustJSON(ReindexScope{}),
			wantPoison: true,
		},
		{
			name:       "reindex type with valid kind",
			routingKey: RKReindexType,
			payload:    mustJSON(ReindexScope{Kind: KindUser}),
		},
		{
			name:       "reindex type with unknown kind",
			routingKey: RKReindexType,
			payload:    mustJSON(ReindexScope{Kind: "invoice"}),
			wantPoison: true,
		},
		{
			name:       "unknown routing key",
			routingKey: "tenant.created",
			payload:    json.RawMessage(`{}`),
			wantPoison: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEvent(DomainEvent{
				EventID:    "evt-1",
				RoutingKey: tt.routingKey,
				OccurredAt: now,
				Payload:    tt.payload,
			})

			if !tt.wantPoison {
				if err != nil {
					t.Fatalf("ValidateEvent() = %v, want nil", err)
				}
				return
			}

			var poison *PoisonMessageError
			if !errors.As(err, &poison) {
				t.Fatalf("ValidateEvent() = %v, want *PoisonMessageError", err)
			}
			if poison.RoutingKey != tt.routingKey {
				t.Errorf("RoutingKey = %q, want %q", poison.RoutingKey, tt.routingKey)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable upstream", &UpstreamError{Op: "x", Err: "timeout", Retryable: true}, true},
		{"terminal upstream", &UpstreamError{Op: "x", Err: "bad request", Retryable: false}, false},
		{"not found", &NotFoundError{Collection: "work_items", ID: "wi-1"}, false},
		{"validation", &ValidationError{Field: "query", Reason: "too long"}, false},
		{"poison", &PoisonMessageError{RoutingKey: "x", Reason: "y"}, false},
		{"engine", &SearchEngineError{Op: "x", Err: "y"}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
