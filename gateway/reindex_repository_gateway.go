package gateway

import (
	"context"
	"errors"

	"search-indexer/domain"
	"search-indexer/driver"
)

// ReindexDriver is the store-side contract for bulk resynchronization reads.
type ReindexDriver interface {
	GetWorkItems(ctx context.Context, tenantID, lastID string, limit int) ([]driver.WorkItemRow, string, error)
	GetUsers(ctx context.Context, tenantID, lastID string, limit int) ([]driver.UserRow, string, error)
	GetTemplates(ctx context.Context, tenantID, lastID string, limit int) ([]driver.TemplateRow, string, error)
}

// ReindexRepositoryGateway adapts store rows into domain snapshots.
type ReindexRepositoryGateway struct {
	driver ReindexDriver
}

func NewReindexRepositoryGateway(driver ReindexDriver) *ReindexRepositoryGateway {
	return &ReindexRepositoryGateway{driver: driver}
}

func (g *ReindexRepositoryGateway) GetWorkItems(ctx context.Context, tenantID, lastID string, limit int) ([]domain.WorkItemSnapshot, string, error) {
	rows, nextID, err := g.driver.GetWorkItems(ctx, tenantID, lastID, limit)
	if err != nil {
		return nil, "", g.wrap("GetWorkItems", err)
	}
	snapshots := make([]domain.WorkItemSnapshot, len(rows))
	for i, r := range rows {
		snapshots[i] = domain.WorkItemSnapshot{
			ID:           r.ID,
			TenantID:     r.TenantID,
			Title:        r.Title,
			Description:  r.Description,
			Tags:         r.Tags,
			WorkItemType: r.WorkItemType,
			Status:       r.Status,
			Priority:     r.Priority,
			AssignedTo:   r.AssignedTo,
			ParentID:     r.ParentID,
			DueDate:      r.DueDate,
			Progress:     r.Progress,
			Dependencies: r.Dependencies,
			Lineage:      r.Lineage,
			Metadata:     r.Metadata,
			CreatedBy:    r.CreatedBy,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		}
	}
	return snapshots, nextID, nil
}

func (g *ReindexRepositoryGateway) GetUsers(ctx context.Context, tenantID, lastID string, limit int) ([]domain.UserSnapshot, string, error) {
	rows, nextID, err := g.driver.GetUsers(ctx, tenantID, lastID, limit)
	if err != nil {
		return nil, "", g.wrap("GetUsers", err)
	}
	snapshots := make([]domain.UserSnapshot, len(rows))
	for i, r := range rows {
		snapshots[i] = domain.UserSnapshot{
			ID:          r.ID,
			TenantID:    r.TenantID,
			DisplayName: r.DisplayName,
			Email:       r.Email,
			Role:        r.Role,
			CreatedBy:   r.CreatedBy,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return snapshots, nextID, nil
}

func (g *ReindexRepositoryGateway) GetTemplates(ctx context.Context, tenantID, lastID string, limit int) ([]domain.TemplateSnapshot, string, error) {
	rows, nextID, err := g.driver.GetTemplates(ctx, tenantID, lastID, limit)
	if err != nil {
		return nil, "", g.wrap("GetTemplates", err)
	}
	snapshots := make([]domain.TemplateSnapshot, len(rows))
	for i, r := range rows {
		snapshots[i] = domain.TemplateSnapshot{
			ID:          r.ID,
			TenantID:    r.TenantID,
			Name:        r.Name,
			Description: r.Description,
			Tags:        r.Tags,
			CreatedBy:   r.CreatedBy,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return snapshots, nextID, nil
}

func (g *ReindexRepositoryGateway) wrap(op string, err error) error {
	var drvErr *driver.DriverError
	if errors.As(err, &drvErr) {
		return &domain.RepositoryError{Op: op, Err: drvErr.Err}
	}
	return &domain.RepositoryError{Op: op, Err: err.Error()}
}
