package port

import (
	"context"
	"search-indexer/domain"
)

// SearchEngine is the capability interface over the search engine. Writes
// block until the engine acknowledges them so that an upsert followed by a
// query observes the new document. Retries are the caller's concern.
type SearchEngine interface {
	// Upsert creates or fully replaces the document identified by its id.
	Upsert(ctx context.Context, doc domain.SearchDocument) error
	// UpsertBatch indexes a batch of documents of one kind.
	UpsertBatch(ctx context.Context, kind domain.DocumentKind, docs []domain.SearchDocument) error
	// PartialUpdate merges the named fields into an existing document and
	// stamps updatedAt. Returns *domain.NotFoundError when the id is absent.
	PartialUpdate(ctx context.Context, kind domain.DocumentKind, id string, delta map[string]any) error
	// Delete removes a document. Deleting an absent id is not an error.
	Delete(ctx context.Context, kind domain.DocumentKind, id string) error
	// GetDocument fetches one indexed document, or *domain.NotFoundError.
	GetDocument(ctx context.Context, kind domain.DocumentKind, id string) (*domain.SearchDocument, error)
	// Search answers one validated, normalized search request.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
	// Suggest returns ranked prefix completions scoped to a tenant.
	Suggest(ctx context.Context, prefix, tenantID string, limit int) ([]string, error)
	// Stats reports per-collection document counts, size and health.
	Stats(ctx context.Context) ([]domain.CollectionStats, error)
	// EnsureIndexes creates missing collections and applies index settings.
	EnsureIndexes(ctx context.Context) error
	// RegisterSynonyms installs synonym groups on one collection.
	RegisterSynonyms(ctx context.Context, kind domain.DocumentKind, synonyms map[string][]string) error
}
