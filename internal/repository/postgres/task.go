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

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `id, title, description, action_type, task_type, status, due_date,
	assigned_to, created_by, steps, file_url, result_text, result_file_url,
	completed_at, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	query := `INSERT INTO tasks (id, title, description, action_type, task_type, status, due_date,
			assigned_to, created_by, steps, file_url, result_text, result_file_url,
			completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		now := time.Now()
		task.CreatedAt = now
		task.UpdatedAt = now
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Title, task.Description, task.ActionType, task.TaskType,
		task.Status, task.DueDate, task.AssignedTo, task.CreatedBy,
		pq.Array(task.Steps), task.FileURL, task.ResultText, task.ResultFileURL,
		task.CompletedAt, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filters repository.TaskFilters) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []interface{}{}
	argIdx := 1

	where := ""
	if filters.AssignedTo != "" {
		where = fmt.Sprintf(" WHERE assigned_to = $%d", argIdx)
		args = append(args, filters.AssignedTo)
		argIdx++
	}
	if filters.Status != nil {
		if where == "" {
			where = fmt.Sprintf(" WHERE status = $%d", argIdx)
		} else {
			where += fmt.Sprintf(" AND status = $%d", argIdx)
		}
		args = append(args, *filters.Status)
		argIdx++
	}
	query += where + ` ORDER BY due_date ASC NULLS LAST, created_at ASC`
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	query := `UPDATE tasks SET title=$2, description=$3, task_type=$4, status=$5, due_date=$6,
			assigned_to=$7, steps=$8, file_url=$9, result_text=$10, result_file_url=$11,
			completed_at=$12, updated_at=$13
		WHERE id=$1 RETURNING updated_at`
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = time.Now()
	}
	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Title, task.Description, task.TaskType, task.Status,
		task.DueDate, task.AssignedTo, pq.Array(task.Steps), task.FileURL,
		task.ResultText, task.ResultFileURL, task.CompletedAt, task.UpdatedAt,
	).Scan(&task.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(s scanner) (*models.Task, error) {
	task := &models.Task{}
	err := s.Scan(
		&task.ID, &task.Title, &task.Description, &task.ActionType, &task.TaskType,
		&task.Status, &task.DueDate, &task.AssignedTo, &task.CreatedBy,
		pq.Array(&task.Steps), &task.FileURL, &task.ResultText, &task.ResultFileURL,
		&task.CompletedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}
