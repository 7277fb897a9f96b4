package port

import (
	"context"
	"search-indexer/domain"
)

// ReindexRepository reads authoritative domain data for bulk
// resynchronization. Pages are keyset-paginated: pass the last id of the
// previous page, empty for the first. tenantID empty means all tenants.
type ReindexRepository interface {
	GetWorkItems(ctx context.Context, tenantID, lastID string, limit int) ([]domain.WorkItemSnapshot, string, error)
	GetUsers(ctx context.Context, tenantID, lastID string, limit int) ([]domain.UserSnapshot, string, error)
	GetTemplates(ctx context.Context, tenantID, lastID string, limit int) ([]domain.TemplateSnapshot, string, error)
}
