package driver

import (
	"context"
	"os"

	"search-indexer/config"
	"search-indexer/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DatabaseDriver reads authoritative domain data out of Postgres for bulk
// resynchronization.
type DatabaseDriver struct {
	pool *pgxpool.Pool
}

func NewDatabaseDriver(pool *pgxpool.Pool) *DatabaseDriver {
	return &DatabaseDriver{pool: pool}
}

// NewDatabaseDriverFromConfig creates a DatabaseDriver with a connection
// pool built from the loaded configuration. DATABASE_URL overrides the
// assembled URL when present.
func NewDatabaseDriverFromConfig(ctx context.Context, dbCfg *config.DatabaseConfig) (*DatabaseDriver, error) {
	pool, err := initDatabasePool(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	return &DatabaseDriver{pool: pool}, nil
}

func initDatabasePool(ctx context.Context, dbCfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = dbCfg.GetDatabaseURL()
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, &DriverError{Op: "initDatabasePool", Err: "failed to parse database URL: " + err.Error()}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, &DriverError{Op: "initDatabasePool", Err: "failed to create database pool: " + err.Error(), Retryable: true}
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, &DriverError{Op: "initDatabasePool", Err: "failed to ping database: " + err.Error(), Retryable: true}
	}

	logger.Logger.Info("Database connected successfully")
	return pool, nil
}

// Close closes the database connection pool.
func (d *DatabaseDriver) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// GetWorkItems pages through work items with keyset pagination by id.
// tenantID empty means all tenants.
func (d *DatabaseDriver) GetWorkItems(ctx context.Context, tenantID, lastID string, limit int) ([]WorkItemRow, string, error) {
	query := `
		SELECT w.id, w.tenant_id, w.title, COALESCE(w.description, ''),
			   COALESCE(
				   array_agg(DISTINCT t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL),
				   '{}'
			   ) AS tag_names,
			   w.work_item_type, w.status, w.priority,
			   COALESCE(w.assigned_to::text, ''), COALESCE(w.parent_id::text, ''),
			   w.due_date, w.progress,
			   COALESCE(
				   array_agg(DISTINCT d.depends_on_id::text ORDER BY d.depends_on_id::text)
					   FILTER (WHERE d.depends_on_id IS NOT NULL),
				   '{}'
			   ) AS dependency_ids,
			   COALESCE(w.lineage, '{}'), COALESCE(w.metadata, '{}'::jsonb),
			   COALESCE(w.created_by::text, ''), w.created_at, w.updated_at
		FROM work_items w
		LEFT JOIN work_item_tags wt ON w.id = wt.work_item_id
		LEFT JOIN tags t ON wt.tag_id = t.id
		LEFT JOIN work_item_dependencies d ON w.id = d.work_item_id
		WHERE ($1 = '' OR w.tenant_id::text = $1)
		  AND w.id::text > $2
		GROUP BY w.id
		ORDER BY w.id
		LIMIT $3
	`

	rows, err := d.pool.Query(ctx, query, tenantID, lastID, limit)
	if err != nil {
		return nil, "", &DriverError{Op: "GetWorkItems", Err: err.Error(), Retryable: true}
	}
	defer rows.Close()

	var items []WorkItemRow
	var finalID string
	for rows.Next() {
		var item WorkItemRow
		err = rows.Scan(
			&item.ID, &item.TenantID, &item.Title, &item.Description, &item.Tags,
			&item.WorkItemType, &item.Status, &item.Priority,
			&item.AssignedTo, &item.ParentID,
			&item.DueDate, &item.Progress,
			&item.Dependencies, &item.Lineage, &item.Metadata,
			&item.CreatedBy, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, "", &DriverError{Op: "GetWorkItems", Err: err.Error()}
		}
		items = append(items, item)
		finalID = item.ID
	}
	if err = rows.Err(); err != nil {
		return nil, "", &DriverError{Op: "GetWorkItems", Err: err.Error(), Retryable: true}
	}

	return items, finalID, nil
}

// GetUsers pages through users with keyset pagination by id.
func (d *DatabaseDriver) GetUsers(ctx context.Context, tenantID, lastID string, limit int) ([]UserRow, string, error) {
	query := `
		SELECT u.id, u.tenant_id, u.display_name, COALESCE(u.email, ''),
			   COALESCE(u.role, ''), COALESCE(u.created_by::text, ''),
			   u.created_at, u.updated_at
		FROM users u
		WHERE ($1 = '' OR u.tenant_id::text = $1)
		  AND u.id::text > $2
		ORDER BY u.id
		LIMIT $3
	`

	rows, err := d.pool.Query(ctx, query, tenantID, lastID, limit)
	if err != nil {
		return nil, "", &DriverError{Op: "GetUsers", Err: err.Error(), Retryable: true}
	}
	defer rows.Close()

	var users []UserRow
	var finalID string
	for rows.Next() {
		var u UserRow
		err = rows.Scan(&u.ID, &u.TenantID, &u.DisplayName, &u.Email, &u.Role, &u.CreatedBy, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, "", &DriverError{Op: "GetUsers", Err: err.Error()}
		}
		users = append(users, u)
		finalID = u.ID
	}
	if err = rows.Err(); err != nil {
		return nil, "", &DriverError{Op: "GetUsers", Err: err.Error(), Retryable: true}
	}

	return users, finalID, nil
}

// GetTemplates pages through templates with keyset pagination by id.
func (d *DatabaseDriver) GetTemplates(ctx context.Context, tenantID, lastID string, limit int) ([]TemplateRow, string, error) {
	query := `
		SELECT tp.id, tp.tenant_id, tp.name, COALESCE(tp.description, ''),
			   COALESCE(
				   array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL),
				   '{}'
			   ) AS tag_names,
			   COALESCE(tp.created_by::text, ''), tp.created_at, tp.updated_at
		FROM templates tp
		LEFT JOIN template_tags tt ON tp.id = tt.template_id
		LEFT JOIN tags t ON tt.tag_id = t.id
		WHERE ($1 = '' OR tp.tenant_id::text = $1)
		  AND tp.id::text > $2
		GROUP BY tp.id
		ORDER BY tp.id
		LIMIT $3
	`

	rows, err := d.pool.Query(ctx, query, tenantID, lastID, limit)
	if err != nil {
		return nil, "", &DriverError{Op: "GetTemplates", Err: err.Error(), Retryable: true}
	}
	defer rows.Close()

	var templates []TemplateRow
	var finalID string
	for rows.Next() {
		var t TemplateRow
		err = rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Description, &t.Tags, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, "", &DriverError{Op: "GetTemplates", Err: err.Error()}
		}
		templates = append(templates, t)
		finalID = t.ID
	}
	if err = rows.Err(); err != nil {
		return nil, "", &DriverError{Op: "GetTemplates", Err: err.Error(), Retryable: true}
	}

	return templates, finalID, nil
}
