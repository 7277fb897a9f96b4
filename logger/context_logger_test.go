package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestContextLogger_WithContext_BusinessKeys(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)
	cl := NewContextLogger(logger)

	ctx := context.Background()
	ctx = WithTenantID(ctx, "tenant-123")
	ctx = WithDocumentID(ctx, "doc-456")
	ctx = WithEventID(ctx, "evt-789")
	ctx = WithStream(ctx, "hive:events:work_items")

	cl.WithContext(ctx).Info("test message")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	tests := []struct {
		key      string
		expected string
	}{
		{"hive.tenant.id", "tenant-123"},
		{"hive.document.id", "doc-456"},
		{"hive.event.id", "evt-789"},
		{"hive.stream", "hive:events:work_items"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := logEntry[tt.key]
			if !ok {
				t.Errorf("expected key %q to be present in log", tt.key)
				return
			}
			if got != tt.expected {
				t.Errorf("expected %q to be %q, got %q", tt.key, tt.expected, got)
			}
		})
	}
}

func TestContextLogger_WithContext_PartialKeys(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)
	cl := NewContextLogger(logger)

	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-only")

	cl.WithContext(ctx).Info("test message")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if got, ok := logEntry["hive.document.id"]; !ok || got != "doc-only" {
		t.Errorf("expected hive.document.id to be 'doc-only', got %v", got)
	}

	// Other keys should not be present
	for _, key := range []string{"hive.tenant.id", "hive.event.id", "hive.stream"} {
		if _, ok := logEntry[key]; ok {
			t.Errorf("expected key %q to not be present in log", key)
		}
	}
}

func TestContextLogger_LogDuration(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)
	cl := NewContextLogger(logger)

	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-timing")

	cl.LogDuration(ctx, "sync_event", 1500)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if got := logEntry["operation"]; got != "sync_event" {
		t.Errorf("expected operation to be 'sync_event', got %v", got)
	}
	if got := logEntry["duration_ms"]; got != float64(1500) {
		t.Errorf("expected duration_ms to be 1500, got %v", got)
	}
	if got := logEntry["hive.document.id"]; got != "doc-timing" {
		t.Errorf("expected hive.document.id to be 'doc-timing', got %v", got)
	}
}

func TestContextLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(handler)
	cl := NewContextLogger(logger)

	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-error")

	testErr := &testError{msg: "test error"}
	cl.LogError(ctx, "sync_failed", testErr)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if got := logEntry["operation"]; got != "sync_failed" {
		t.Errorf("expected operation to be 'sync_failed', got %v", got)
	}
	if got := logEntry["hive.document.id"]; got != "doc-error" {
		t.Errorf("expected hive.document.id to be 'doc-error', got %v", got)
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestWithTenantID(t *testing.T) {
	ctx := context.Background()
	ctx = WithTenantID(ctx, "test-tenant")

	got := ctx.Value(TenantIDKey)
	if got != "test-tenant" {
		t.Errorf("expected 'test-tenant', got %v", got)
	}
}

func TestWithEventID(t *testing.T) {
	ctx := context.Background()
	ctx = WithEventID(ctx, "test-event")

	got := ctx.Value(EventIDKey)
	if got != "test-event" {
		t.Errorf("expected 'test-event', got %v", got)
	}
}

func TestWithStream(t *testing.T) {
	ctx := context.Background()
	ctx = WithStream(ctx, "test-stream")

	got := ctx.Value(StreamKey)
	if got != "test-stream" {
		t.Errorf("expected 'test-stream', got %v", got)
	}
}
