package usecase

import (
	"context"
	"time"

	"search-indexer/domain"
	"search-indexer/port"
	"search-indexer/utils"
)

// SearchDocumentsUsecase validates, sanitizes and executes one search
// request. Engine failures surface directly: a read has no durable side
// effect to protect and should fail fast.
type SearchDocumentsUsecase struct {
	searchEngine port.SearchEngine
	sanitizer    *utils.QuerySanitizer
}

func NewSearchDocumentsUsecase(searchEngine port.SearchEngine) *SearchDocumentsUsecase {
	return &SearchDocumentsUsecase{
		searchEngine: searchEngine,
		sanitizer:    utils.NewQuerySanitizer(utils.DefaultSecurityConfig()),
	}
}

func (u *SearchDocumentsUsecase) Execute(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	if err := u.sanitizer.ValidateQuery(ctx, req.Query); err != nil {
		return nil, &domain.ValidationError{Field: "query", Reason: err.Error()}
	}
	sanitized, err := u.sanitizer.SanitizeQuery(ctx, req.Query)
	if err != nil {
		return nil, &domain.ValidationError{Field: "query", Reason: err.Error()}
	}
	req.Query = sanitized

	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Normalize()

	start := time.Now()
	result, err := u.searchEngine.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}
