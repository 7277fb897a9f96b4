package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ikawaha/kagome/v2/tokenizer"

	"search-indexer/domain"
	"search-indexer/logger"
	"search-indexer/port"
	"search-indexer/usecase"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// mockSearchEngine implements port.SearchEngine for testing.
type mockSearchEngine struct {
	docs    map[string]domain.SearchDocument
	deleted []string
	err     error
}

func newMockSearchEngine() *mockSearchEngine {
	return &mockSearchEngine{docs: make(map[string]domain.SearchDocument)}
}

func (m *mockSearchEngine) Upsert(ctx context.Context, doc domain.SearchDocument) error {
	if m.err != nil {
		return m.err
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockSearchEngine) UpsertBatch(ctx context.Context, kind domain.DocumentKind, docs []domain.SearchDocument) error {
	if m.err != nil {
		return m.err
	}
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *mockSearchEngine) PartialUpdate(ctx context.Context, kind domain.DocumentKind, id string, delta map[string]any) error {
	if m.err != nil {
		return m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return &domain.NotFoundError{Collection: string(kind), ID: id}
	}
	if status, ok := delta["status"].(string); ok && doc.WorkItem != nil {
		doc.WorkItem.Status = status
	}
	m.docs[id] = doc
	return nil
}

func (m *mockSearchEngine) Delete(ctx context.Context, kind domain.DocumentKind, id string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.docs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSearchEngine) GetDocument(ctx context.Context, kind domain.DocumentKind, id string) (*domain.SearchDocument, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, &domain.NotFoundError{Collection: string(kind), ID: id}
	}
	return &doc, nil
}

func (m *mockSearchEngine) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	return &domain.SearchResult{Documents: []domain.ScoredDocument{}}, m.err
}

func (m *mockSearchEngine) Suggest(ctx context.Context, prefix, tenantID string, limit int) ([]string, error) {
	return nil, m.err
}

func (m *mockSearchEngine) Stats(ctx context.Context) ([]domain.CollectionStats, error) {
	return nil, m.err
}

func (m *mockSearchEngine) EnsureIndexes(ctx context.Context) error { return m.err }

func (m *mockSearchEngine) RegisterSynonyms(ctx context.Context, kind domain.DocumentKind, synonyms map[string][]string) error {
	return m.err
}

// mockReindexRepo implements port.ReindexRepository for testing.
type mockReindexRepo struct {
	workItems []domain.WorkItemSnapshot
	users     []domain.UserSnapshot
	templates []domain.TemplateSnapshot
	err       error
}

func (m *mockReindexRepo) GetWorkItems(ctx context.Context, tenantID, lastID string, limit int) ([]domain.WorkItemSnapshot, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	if lastID != "" {
		return nil, "", nil
	}
	next := ""
	if len(m.workItems) > 0 {
		next = m.workItems[len(m.workItems)-1].ID
	}
	return m.workItems, next, nil
}

func (m *mockReindexRepo) GetUsers(ctx context.Context, tenantID, lastID string, limit int) ([]domain.UserSnapshot, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	if lastID != "" {
		return nil, "", nil
	}
	next := ""
	if len(m.users) > 0 {
		next = m.users[len(m.users)-1].ID
	}
	return m.users, next, nil
}

func (m *mockReindexRepo) GetTemplates(ctx context.Context, tenantID, lastID string, limit int) ([]domain.TemplateSnapshot, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	if lastID != "" {
		return nil, "", nil
	}
	next := ""
	if len(m.templates) > 0 {
		next = m.templates[len(m.templates)-1].ID
	}
	return m.templates, next, nil
}

var _ port.SearchEngine = (*mockSearchEngine)(nil)
var _ port.ReindexRepository = (*mockReindexRepo)(nil)

func newHandler(se *mockSearchEngine, repo *mockReindexRepo) *SyncEventHandler {
	syncUC := usecase.NewSyncDocumentsUsecase(se, (*tokenizer.Tokenizer)(nil))
	reindexUC := usecase.NewReindexUsecase(repo, se)
	return NewSyncEventHandler(syncUC, reindexUC, slog.Default())
}

func workItemEvent(t *testing.T, routingKey string, snapshot domain.WorkItemSnapshot) Event {
	t.Helper()
	payload, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return Event{
		MessageID:  "1-0",
		Stream:     StreamWorkItems,
		EventID:    "evt-1",
		RoutingKey: routingKey,
		OccurredAt: snapshot.UpdatedAt,
		Payload:    payload,
	}
}

func TestSyncEventHandler_WorkItemCreated(t *testing.T) {
	se := newMockSearchEngine()
	handler := newHandler(se, &mockReindexRepo{})

	now := time.Now().UTC()
	event := workItemEvent(t, domain.RKWorkItemCreated, domain.WorkItemSnapshot{
		ID:        "wi-1",
		TenantID:  "t-1",
		Title:     "Launch plan",
		Status:    "open",
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := handler.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	doc, ok := se.docs["wi-1"]
	if !ok {
		t.Fatal("expected wi-1 to be indexed")
	}
	if doc.TenantID != "t-1" {
		t.Errorf("TenantID = %q, want t-1", doc.TenantID)
	}
	if len(doc.Permissions) == 0 {
		t.Error("expected permissions to be populated")
	}
}

func TestSyncEventHandler_WorkItemDeleted(t *testing.T) {
	se := newMockSearchEngine()
	se.docs["wi-2"] = domain.SearchDocument{ID: "wi-2", Kind: domain.KindWorkItem, TenantID: "t-1"}
	handler := newHandler(se, &mockReindexRepo{})

	payload, _ := json.Marshal(domain.WorkItemDeleted{WorkItemID: "wi-2", TenantID: "t-1"})
	err := handler.HandleEvent(context.Background(), Event{
		MessageID:  "2-0",
		Stream:     StreamWorkItems,
		EventID:    "evt-2",
		RoutingKey: domain.RKWorkItemDeleted,
		OccurredAt: time.Now(),
		Payload:    payload,
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if _, ok := se.docs["wi-2"]; ok {
		t.Error("expected wi-2 to be removed from the index")
	}
}

func TestSyncEventHandler_PoisonMessageAcked(t *testing.T) {
	se := newMockSearchEngine()
	handler := newHandler(se, &mockReindexRepo{})

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "unknown routing key",
			event: Event{
				EventID:    "evt-3",
				RoutingKey: "work_item.archived",
				Payload:    json.RawMessage(`{}`),
			},
		},
		{
			name: "malformed payload",
			event: Event{
				EventID:    "evt-4",
				RoutingKey: domain.RKWorkItemCreated,
				Payload:    json.RawMessage(`{invalid json}`),
			},
		},
		{
			name: "missing required fields",
			event: Event{
				EventID:    "evt-5",
				RoutingKey: domain.RKWorkItemDeleted,
				Payload:    json.RawMessage(`{}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := handler.HandleEvent(context.Background(), tt.event); err != nil {
				t.Errorf("HandleEvent() = %v, poison messages must be dropped without error", err)
			}
			if len(se.docs) != 0 {
				t.Errorf("expected no documents indexed, got %d", len(se.docs))
			}
		})
	}
}

func TestSyncEventHandler_TransientErrorLeftPending(t *testing.T) {
	se := newMockSearchEngine()
	se.err = &domain.UpstreamError{Op: "Upsert", Err: "connection refused", Retryable: true}
	handler := newHandler(se, &mockReindexRepo{})

	now := time.Now().UTC()
	event := workItemEvent(t, domain.RKWorkItemCreated, domain.WorkItemSnapshot{
		ID:        "wi-9",
		TenantID:  "t-1",
		Title:     "Flaky",
		CreatedAt: now,
		UpdatedAt: now,
	})

	err := handler.HandleEvent(context.Background(), event)
	if err == nil {
		t.Fatal("expected an error so the message stays pending for redelivery")
	}
	var poison *domain.PoisonMessageError
	if errors.As(err, &poison) {
		t.Fatal("transient engine failure must not be classified as poison")
	}
}

func TestSyncEventHandler_CrossTenantOverwriteDropped(t *testing.T) {
	se := newMockSearchEngine()
	now := time.Now().UTC()
	se.docs["wi-7"] = domain.SearchDocument{
		ID: "wi-7", Kind: domain.KindWorkItem, TenantID: "t-1", UpdatedAt: now.Add(-time.Hour),
	}
	handler := newHandler(se, &mockReindexRepo{})

	event := workItemEvent(t, domain.RKWorkItemUpdated, domain.WorkItemSnapshot{
		ID:        "wi-7",
		TenantID:  "t-other",
		Title:     "Hijack",
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := handler.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() = %v, cross-tenant writes are dropped, not retried", err)
	}

	if se.docs["wi-7"].TenantID != "t-1" {
		t.Error("indexed document's tenant must not change")
	}
}

func TestSyncEventHandler_ReindexTenant(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockReindexRepo{
		workItems: []domain.WorkItemSnapshot{
			{ID: "wi-a", TenantID: "t-1", Title: "A", CreatedAt: now, UpdatedAt: now},
			{ID: "wi-b", TenantID: "t-1", Title: "B", CreatedAt: now, UpdatedAt: now},
		},
		users: []domain.UserSnapshot{
			{ID: "u-a", TenantID: "t-1", DisplayName: "Alice", CreatedAt: now, UpdatedAt: now},
		},
	}
	se := newMockSearchEngine()
	handler := newHandler(se, repo)

	payload, _ := json.Marshal(domain.ReindexScope{TenantID: "t-1"})
	err := handler.HandleEvent(context.Background(), Event{
		EventID:    "evt-6",
		RoutingKey: domain.RKReindexTenant,
		OccurredAt: now,
		Payload:    payload,
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(se.docs) != 3 {
		t.Errorf("expected 3 documents reindexed, got %d", len(se.docs))
	}
}

func TestSyncEventHandler_ReindexAllIgnoresPayloadScope(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockReindexRepo{
		workItems: []domain.WorkItemSnapshot{
			{ID: "wi-c", TenantID: "t-2", Title: "C", CreatedAt: now, UpdatedAt: now},
		},
	}
	se := newMockSearchEngine()
	handler := newHandler(se, repo)

	err := handler.HandleEvent(context.Background(), Event{
		EventID:    "evt-7",
		RoutingKey: domain.RKReindexAll,
		OccurredAt: now,
	})
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(se.docs) != 1 {
		t.Errorf("expected 1 document reindexed, got %d", len(se.docs))
	}
}
