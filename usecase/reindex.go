package usecase

import (
	"context"

	"search-indexer/domain"
	"search-indexer/logger"
	"search-indexer/port"
	"search-indexer/utils/otel"
)

const defaultReindexBatchSize = 200

// ReindexUsecase rebuilds index contents from the authoritative store. It
// is triggered by search.reindex.* events and pages through each targeted
// collection with keyset pagination, mapping and upserting batch by batch.
type ReindexUsecase struct {
	repo         port.ReindexRepository
	searchEngine port.SearchEngine
	batchSize    int
}

// ReindexResult reports how many documents one run pushed to the engine.
type ReindexResult struct {
	Indexed int
}

func NewReindexUsecase(repo port.ReindexRepository, searchEngine port.SearchEngine) *ReindexUsecase {
	return &ReindexUsecase{
		repo:         repo,
		searchEngine: searchEngine,
		batchSize:    defaultReindexBatchSize,
	}
}

// Execute resynchronizes the scoped collections. An empty scope means every
// tenant and every kind.
func (u *ReindexUsecase) Execute(ctx context.Context, scope domain.ReindexScope) (*ReindexResult, error) {
	kinds := domain.Kinds()
	if scope.Kind != "" {
		kinds = []domain.DocumentKind{scope.Kind}
	}

	result := &ReindexResult{}
	for _, kind := range kinds {
		n, err := u.reindexKind(ctx, kind, scope.TenantID)
		if err != nil {
			return result, err
		}
		result.Indexed += n
		logger.Logger.Info("reindexed collection", "kind", kind, "tenant", scope.TenantID, "count", n)
	}
	return result, nil
}

func (u *ReindexUsecase) reindexKind(ctx context.Context, kind domain.DocumentKind, tenantID string) (int, error) {
	total := 0
	lastID := ""
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		docs, nextID, err := u.fetchBatch(ctx, kind, tenantID, lastID)
		if err != nil {
			return total, err
		}
		if len(docs) == 0 {
			return total, nil
		}

		if err := u.searchEngine.UpsertBatch(ctx, kind, docs); err != nil {
			return total, err
		}
		if otel.Metrics != nil {
			otel.Metrics.IndexedTotal.Add(ctx, int64(len(docs)))
		}
		total += len(docs)
		lastID = nextID
	}
}

func (u *ReindexUsecase) fetchBatch(ctx context.Context, kind domain.DocumentKind, tenantID, lastID string) ([]domain.SearchDocument, string, error) {
	switch kind {
	case domain.KindWorkItem:
		snapshots, nextID, err := u.repo.GetWorkItems(ctx, tenantID, lastID, u.batchSize)
		if err != nil {
			return nil, "", err
		}
		docs := make([]domain.SearchDocument, len(snapshots))
		for i, s := range snapshots {
			docs[i] = domain.NewWorkItemDocument(s)
		}
		return docs, nextID, nil

	case domain.KindUser:
		snapshots, nextID, err := u.repo.GetUsers(ctx, tenantID, lastID, u.batchSize)
		if err != nil {
			return nil, "", err
		}
		docs := make([]domain.SearchDocument, len(snapshots))
		for i, s := range snapshots {
			docs[i] = domain.NewUserDocument(s)
		}
		return docs, nextID, nil

	case domain.KindTemplate:
		snapshots, nextID, err := u.repo.GetTemplates(ctx, tenantID, lastID, u.batchSize)
		if err != nil {
			return nil, "", err
		}
		docs := make([]domain.SearchDocument, len(snapshots))
		for i, s := range snapshots {
			docs[i] = domain.NewTemplateDocument(s)
		}
		return docs, nextID, nil
	}

	return nil, "", &domain.ValidationError{Field: "kind", Reason: "unknown kind " + string(kind)}
}
