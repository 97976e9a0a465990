package models

import "time"

// TaskTemplate is a reusable blueprint for a batch of tasks. Expanding a
// template copies its items into concrete tasks; no back-reference is kept.
type TaskTemplate struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedBy   string    `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// TaskTemplateItem is one ordered blueprint row inside a template
type TaskTemplateItem struct {
	ID          string     `json:"id" db:"id"`
	TemplateID  string     `json:"template_id" db:"template_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	TaskType    TaskType   `json:"task_type" db:"task_type"`
	Steps       []string   `json:"steps" db:"steps"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`
	Position    int        `json:"position" db:"position"`
}
