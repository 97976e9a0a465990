package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
)

type templateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) repository.TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, tpl *models.TaskTemplate, items []*models.TaskTemplateItem) (*models.TaskTemplate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	query := `INSERT INTO task_templates (id, name, description, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, query,
		tpl.ID, tpl.Name, tpl.Description, tpl.CreatedBy, tpl.CreatedAt, tpl.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	itemQuery := `INSERT INTO task_template_items (id, template_id, title, description, task_type, steps, due_date, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.TemplateID = tpl.ID
		item.Position = i
		if _, err := tx.ExecContext(ctx, itemQuery,
			item.ID, item.TemplateID, item.Title, item.Description,
			item.TaskType, pq.Array(item.Steps), item.DueDate, item.Position,
		); err != nil {
			return nil, fmt.Errorf("failed to create template item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit template: %w", err)
	}
	return tpl, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*models.TaskTemplate, error) {
	query := `SELECT id, name, description, created_by, created_at, updated_at
		FROM task_templates WHERE id = $1`
	tpl := &models.TaskTemplate{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tpl.ID, &tpl.Name, &tpl.Description, &tpl.CreatedBy, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return tpl, nil
}

func (r *templateRepository) GetItems(ctx context.Context, templateID string) ([]*models.TaskTemplateItem, error) {
	query := `SELECT id, template_id, title, description, task_type, steps, due_date, position
		FROM task_template_items WHERE template_id = $1 ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query template items: %w", err)
	}
	defer rows.Close()

	var items []*models.TaskTemplateItem
	for rows.Next() {
		item := &models.TaskTemplateItem{}
		if err := rows.Scan(
			&item.ID, &item.TemplateID, &item.Title, &item.Description,
			&item.TaskType, pq.Array(&item.Steps), &item.DueDate, &item.Position,
		); err != nil {
			return nil, fmt.Errorf("failed to scan template item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read template items: %w", err)
	}
	if len(items) == 0 {
		// Templates always carry at least one item, so an empty result
		// means the template itself does not exist
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM task_templates WHERE id = $1)`, templateID,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check template: %w", err)
		}
		if !exists {
			return nil, repository.ErrNotFound
		}
	}
	return items, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*models.TaskTemplate, error) {
	query := `SELECT id, name, description, created_by, created_at, updated_at
		FROM task_templates ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.TaskTemplate
	for rows.Next() {
		tpl := &models.TaskTemplate{}
		if err := rows.Scan(
			&tpl.ID, &tpl.Name, &tpl.Description, &tpl.CreatedBy, &tpl.CreatedAt, &tpl.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	// Items cascade via FK
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
