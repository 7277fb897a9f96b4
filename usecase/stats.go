package usecase

import (
	"context"

	"search-indexer/domain"
	"search-indexer/port"
)

// StatsUsecase reports per-collection index statistics for operators.
type StatsUsecase struct {
	searchEngine port.SearchEngine
}

func NewStatsUsecase(searchEngine port.SearchEngine) *StatsUsecase {
	return &StatsUsecase{searchEngine: searchEngine}
}

func (u *StatsUsecase) Execute(ctx context.Context) ([]domain.CollectionStats, error) {
	return u.searchEngine.Stats(ctx)
}
