package gateway

import (
	"context"
	"errors"
	"time"

	"search-indexer/domain"
	"search-indexer/driver"
)

// SearchDriver is the engine-side contract the gateway adapts to the
// domain-facing port.
type SearchDriver interface {
	EnsureIndexes(ctx context.Context) error
	IndexDocuments(ctx context.Context, kind domain.DocumentKind, docs []driver.SearchDocumentDriver) error
	UpdateDocumentFields(ctx context.Context, kind domain.DocumentKind, id string, delta map[string]any) error
	DeleteDocument(ctx context.Context, kind domain.DocumentKind, id string) error
	GetDocument(ctx context.Context, kind domain.DocumentKind, id string) (*driver.SearchDocumentDriver, error)
	Search(ctx context.Context, req domain.SearchRequest) (*driver.SearchResultDriver, error)
	SuggestTitles(ctx context.Context, prefix, tenantID string, limit int) ([]string, error)
	Stats(ctx context.Context) ([]driver.CollectionStatsDriver, error)
	RegisterSynonyms(ctx context.Context, kind domain.DocumentKind, synonyms map[string][]string) error
}

// SearchEngineGateway is the anti-corruption layer between domain documents
// and the engine's flat document shape.
type SearchEngineGateway struct {
	driver SearchDriver
}

func NewSearchEngineGateway(driver SearchDriver) *SearchEngineGateway {
	return &SearchEngineGateway{driver: driver}
}

func (g *SearchEngineGateway) EnsureIndexes(ctx context.Context) error {
	if err := g.driver.EnsureIndexes(ctx); err != nil {
		return g.wrap("EnsureIndexes", err)
	}
	return nil
}

func (g *SearchEngineGateway) Upsert(ctx context.Context, doc domain.SearchDocument) error {
	if err := g.driver.IndexDocuments(ctx, doc.Kind, []driver.SearchDocumentDriver{toDriverDocument(doc)}); err != nil {
		return g.wrap("Upsert", err)
	}
	return nil
}

func (g *SearchEngineGateway) UpsertBatch(ctx context.Context, kind domain.DocumentKind, docs []domain.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}
	driverDocs := make([]driver.SearchDocumentDriver, len(docs))
	for i, doc := range docs {
		driverDocs[i] = toDriverDocument(doc)
	}
	if err := g.driver.IndexDocuments(ctx, kind, driverDocs); err != nil {
		return g.wrap("UpsertBatch", err)
	}
	return nil
}

func (g *SearchEngineGateway) PartialUpdate(ctx context.Context, kind domain.DocumentKind, id string, delta map[string]any) error {
	if err := g.driver.UpdateDocumentFields(ctx, kind, id, delta); err != nil {
		return g.wrap("PartialUpdate", err)
	}
	return nil
}

func (g *SearchEngineGateway) Delete(ctx context.Context, kind domain.DocumentKind, id string) error {
	if err := g.driver.DeleteDocument(ctx, kind, id); err != nil {
		return g.wrap("Delete", err)
	}
	return nil
}

func (g *SearchEngineGateway) GetDocument(ctx context.Context, kind domain.DocumentKind, id string) (*domain.SearchDocument, error) {
	driverDoc, err := g.driver.GetDocument(ctx, kind, id)
	if err != nil {
		return nil, g.wrap("GetDocument", err)
	}
	doc := toDomainDocument(*driverDoc)
	return &doc, nil
}

func (g *SearchEngineGateway) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	driverResult, err := g.driver.Search(ctx, req)
	if err != nil {
		return nil, g.wrap("Search", err)
	}

	result := &domain.SearchResult{
		Total:         driverResult.Total,
		Aggregations:  driverResult.Facets,
		ExecutionTime: time.Duration(driverResult.ProcessingTimeMs) * time.Millisecond,
		Documents:     make([]domain.ScoredDocument, len(driverResult.Hits)),
	}
	for i, hit := range driverResult.Hits {
		result.Documents[i] = domain.ScoredDocument{
			Document:   toDomainDocument(hit.Document),
			Score:      hit.Score,
			Highlights: hit.Highlights,
		}
	}
	return result, nil
}

func (g *SearchEngineGateway) Suggest(ctx context.Context, prefix, tenantID string, limit int) ([]string, error) {
	titles, err := g.driver.SuggestTitles(ctx, prefix, tenantID, limit)
	if err != nil {
		return nil, g.wrap("Suggest", err)
	}
	return titles, nil
}

func (g *SearchEngineGateway) Stats(ctx context.Context) ([]domain.CollectionStats, error) {
	driverStats, err := g.driver.Stats(ctx)
	if err != nil {
		return nil, g.wrap("Stats", err)
	}
	stats := make([]domain.CollectionStats, len(driverStats))
	for i, s := range driverStats {
		stats[i] = domain.CollectionStats{
			Name:          s.Name,
			DocumentCount: s.DocumentCount,
			Size:          s.Size,
			Healthy:       s.Healthy,
		}
	}
	return stats, nil
}

func (g *SearchEngineGateway) RegisterSynonyms(ctx context.Context, kind domain.DocumentKind, synonyms map[string][]string) error {
	if err := g.driver.RegisterSynonyms(ctx, kind, synonyms); err != nil {
		return g.wrap("RegisterSynonyms", err)
	}
	return nil
}

// wrap converts driver errors into the domain taxonomy so callers never see
// engine-specific error types.
func (g *SearchEngineGateway) wrap(op string, err error) error {
	var notFound *driver.NotFoundDriverError
	if errors.As(err, &notFound) {
		return &domain.NotFoundError{Collection: notFound.Index, ID: notFound.ID}
	}
	var drvErr *driver.DriverError
	if errors.As(err, &drvErr) {
		return &domain.UpstreamError{Op: op, Err: drvErr.Err, Retryable: drvErr.Retryable}
	}
	return &domain.SearchEngineError{Op: op, Err: err.Error()}
}

func toDriverDocument(doc domain.SearchDocument) driver.SearchDocumentDriver {
	out := driver.SearchDocumentDriver{
		ID:          doc.ID,
		Kind:        string(doc.Kind),
		TenantID:    doc.TenantID,
		Title:       doc.Title,
		Body:        doc.Body,
		Tags:        doc.Tags,
		Permissions: doc.Permissions,
		CreatedAt:   doc.CreatedAt.UnixMilli(),
		UpdatedAt:   doc.UpdatedAt.UnixMilli(),
		CreatedBy:   doc.CreatedBy,
		Metadata:    doc.Metadata,
	}
	if doc.Tags == nil {
		out.Tags = []string{}
	}
	if wi := doc.WorkItem; wi != nil {
		out.WorkItemType = wi.WorkItemType
		out.Status = wi.Status
		out.Priority = wi.Priority
		out.AssignedTo = wi.AssignedTo
		out.ParentID = wi.ParentID
		if wi.DueDate != nil {
			due := wi.DueDate.UnixMilli()
			out.DueDate = &due
		}
		out.Progress = wi.Progress
		out.Dependencies = wi.Dependencies
		out.Lineage = wi.Lineage
	}
	return out
}

func toDomainDocument(d driver.SearchDocumentDriver) domain.SearchDocument {
	doc := domain.SearchDocument{
		ID:          d.ID,
		Kind:        domain.DocumentKind(d.Kind),
		TenantID:    d.TenantID,
		Title:       d.Title,
		Body:        d.Body,
		Tags:        d.Tags,
		Permissions: d.Permissions,
		CreatedAt:   time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMilli(d.UpdatedAt).UTC(),
		CreatedBy:   d.CreatedBy,
		Metadata:    d.Metadata,
	}
	if doc.Kind == domain.KindWorkItem {
		wi := &domain.WorkItemFields{
			WorkItemType: d.WorkItemType,
			Status:       d.Status,
			Priority:     d.Priority,
			AssignedTo:   d.AssignedTo,
			ParentID:     d.ParentID,
			Progress:     d.Progress,
			Dependencies: d.Dependencies,
			Lineage:      d.Lineage,
		}
		if d.DueDate != nil {
			due := time.UnixMilli(*d.DueDate).UTC()
			wi.DueDate = &due
		}
		doc.WorkItem = wi
	}
	return doc
}
