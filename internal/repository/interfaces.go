package repository

import (
	"context"
	"errors"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filters TaskFilters) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}

// TemplateRepository defines the interface for task template operations.
// Items are owned by their template and travel with it.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *models.TaskTemplate, items []*models.TaskTemplateItem) (*models.TaskTemplate, error)
	GetByID(ctx context.Context, id string) (*models.TaskTemplate, error)
	GetItems(ctx context.Context, templateID string) ([]*models.TaskTemplateItem, error)
	List(ctx context.Context) ([]*models.TaskTemplate, error)
	Delete(ctx context.Context, id string) error
}

// NotificationRepository defines the interface for the durable per-user feed
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	MarkSent(ctx context.Context, id string) error
}

// UserFilters represents filters for querying users
type UserFilters struct {
	Role *models.UserRole
}

// TaskFilters represents filters for querying tasks
type TaskFilters struct {
	AssignedTo string
	Status     *models.TaskStatus
	Limit      int
}

// EventType classifies a change-feed event
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// TaskEvent is a change-feed event for the tasks table. Old is nil on insert;
// New is nil on delete.
type TaskEvent struct {
	Type EventType
	New  *models.Task
	Old  *models.Task
}

// Subscription is a scoped change-feed acquisition. Close always detaches the
// handler; events arriving after Close are dropped.
type Subscription interface {
	Close() error
}

// TaskFeed delivers task change events in the order the backing store emits
// them per entity. No cross-entity ordering is guaranteed.
type TaskFeed interface {
	SubscribeTasks(handler func(TaskEvent)) (Subscription, error)
}
