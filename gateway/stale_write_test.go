package gateway

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/ikawaha/kagome/v2/tokenizer"

	"search-indexer/domain"
	"search-indexer/driver"
	"search-indexer/logger"
	"search-indexer/usecase"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// memorySearchDriver stores driver documents keyed by id per collection, so
// reads observe exactly what the engine would persist.
type memorySearchDriver struct {
	docs map[domain.DocumentKind]map[string]driver.SearchDocumentDriver
}

func newMemorySearchDriver() *memorySearchDriver {
	return &memorySearchDriver{docs: make(map[domain.DocumentKind]map[string]driver.SearchDocumentDriver)}
}

func (m *memorySearchDriver) EnsureIndexes(ctx context.Context) error { return nil }

func (m *memorySearchDriver) IndexDocuments(ctx context.Context, kind domain.DocumentKind, docs []driver.SearchDocumentDriver) error {
	if m.docs[kind] == nil {
		m.docs[kind] = make(map[string]driver.SearchDocumentDriver)
	}
	for _, d := range docs {
		m.docs[kind][d.ID] = d
	}
	return nil
}

func (m *memorySearchDriver) UpdateDocumentFields(ctx context.Context, kind domain.DocumentKind, id string, delta map[string]any) error {
	return nil
}

func (m *memorySearchDriver) DeleteDocument(ctx context.Context, kind domain.DocumentKind, id string) error {
	delete(m.docs[kind], id)
	return nil
}

func (m *memorySearchDriver) GetDocument(ctx context.Context, kind domain.DocumentKind, id string) (*driver.SearchDocumentDriver, error) {
	d, ok := m.docs[kind][id]
	if !ok {
		return nil, &driver.NotFoundDriverError{Index: driver.IndexName(kind), ID: id}
	}
	return &d, nil
}

func (m *memorySearchDriver) Search(ctx context.Context, req domain.SearchRequest) (*driver.SearchResultDriver, error) {
	return &driver.SearchResultDriver{}, nil
}

func (m *memorySearchDriver) SuggestTitles(ctx context.Context, prefix, tenantID string, limit int) ([]string, error) {
	return nil, nil
}

func (m *memorySearchDriver) Stats(ctx context.Context) ([]driver.CollectionStatsDriver, error) {
	return nil, nil
}

func (m *memorySearchDriver) RegisterSynonyms(ctx context.Context, kind domain.DocumentKind, synonyms map[string][]string) error {
	return nil
}

var _ SearchDriver = (*memorySearchDriver)(nil)

func workItemUpdate(t *testing.T, title string, at time.Time) domain.DomainEvent {
	t.Helper()
	payload, err := json.Marshal(domain.WorkItemSnapshot{
		ID: "wi-1", TenantID: "t-1", Title: title, CreatedAt: at, UpdatedAt: at,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return domain.DomainEvent{
		EventID:    "evt-" + title,
		RoutingKey: domain.RKWorkItemUpdated,
		OccurredAt: at,
		Payload:    payload,
	}
}

// Two updates to the same document inside one second must still apply in
// timestamp order after the first has round-tripped through the stored
// document shape.
func TestSync_SubSecondStaleUpdateRejected(t *testing.T) {
	mem := newMemorySearchDriver()
	g := NewSearchEngineGateway(mem)
	uc := usecase.NewSyncDocumentsUsecase(g, (*tokenizer.Tokenizer)(nil))

	base := time.Unix(1700000000, 0).UTC()
	if err := uc.Apply(context.Background(), workItemUpdate(t, "newer", base.Add(900*time.Millisecond))); err != nil {
		t.Fatalf("Apply(newer) = %v", err)
	}
	if err := uc.Apply(context.Background(), workItemUpdate(t, "older", base.Add(100*time.Millisecond))); err != nil {
		t.Fatalf("Apply(older) = %v", err)
	}

	stored, err := g.GetDocument(context.Background(), domain.KindWorkItem, "wi-1")
	if err != nil {
		t.Fatalf("GetDocument() = %v", err)
	}
	if stored.Title != "newer" {
		t.Errorf("title = %q, the later update must win", stored.Title)
	}
}
