package usecase

import (
	"context"
	"strings"

	"search-indexer/logger"
	"search-indexer/port"
)

const suggestionLimit = 10

// SuggestUsecase answers tenant-scoped prefix completions. Suggestions are
// a non-critical enhancement: failures degrade to an empty list.
type SuggestUsecase struct {
	searchEngine port.SearchEngine
}

func NewSuggestUsecase(searchEngine port.SearchEngine) *SuggestUsecase {
	return &SuggestUsecase{searchEngine: searchEngine}
}

func (u *SuggestUsecase) Execute(ctx context.Context, prefix, tenantID string) []string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || tenantID == "" {
		return []string{}
	}

	suggestions, err := u.searchEngine.Suggest(ctx, prefix, tenantID, suggestionLimit)
	if err != nil {
		logger.Logger.Warn("suggest failed", "prefix", prefix, "err", err)
		return []string{}
	}
	if suggestions == nil {
		return []string{}
	}
	return suggestions
}
