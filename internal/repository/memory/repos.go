package memory

import (
	"context"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
)

// The Store keeps all entities behind one lock; these views expose it as the
// per-entity repository interfaces the rest of the application consumes.

type userRepo struct{ s *Store }
type taskRepo struct{ s *Store }
type templateRepo struct{ s *Store }
type notificationRepo struct{ s *Store }

// Users returns the store viewed as a UserRepository
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Tasks returns the store viewed as a TaskRepository
func (s *Store) Tasks() repository.TaskRepository { return taskRepo{s} }

// Templates returns the store viewed as a TemplateRepository
func (s *Store) Templates() repository.TemplateRepository { return templateRepo{s} }

// Notifications returns the store viewed as a NotificationRepository
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

func (r userRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return r.s.CreateUser(ctx, user)
}

func (r userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.s.GetUserByID(ctx, id)
}

func (r userRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.s.GetUserByTelegramID(ctx, telegramID)
}

func (r userRepo) List(ctx context.Context, filters repository.UserFilters) ([]*models.User, error) {
	return r.s.ListUsers(ctx, filters)
}

func (r userRepo) Count(ctx context.Context) (int, error) {
	return r.s.CountUsers(ctx)
}

func (r userRepo) Update(ctx context.Context, user *models.User) (*models.User, error) {
	return r.s.UpdateUser(ctx, user)
}

func (r taskRepo) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	return r.s.CreateTask(ctx, task)
}

func (r taskRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return r.s.GetTaskByID(ctx, id)
}

func (r taskRepo) List(ctx context.Context, filters repository.TaskFilters) ([]*models.Task, error) {
	return r.s.ListTasks(ctx, filters)
}

func (r taskRepo) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	return r.s.UpdateTask(ctx, task)
}

func (r taskRepo) Delete(ctx context.Context, id string) error {
	return r.s.DeleteTask(ctx, id)
}

func (r templateRepo) Create(ctx context.Context, tpl *models.TaskTemplate, items []*models.TaskTemplateItem) (*models.TaskTemplate, error) {
	return r.s.CreateTemplate(ctx, tpl, items)
}

func (r templateRepo) GetByID(ctx context.Context, id string) (*models.TaskTemplate, error) {
	return r.s.GetTemplateByID(ctx, id)
}

func (r templateRepo) GetItems(ctx context.Context, templateID string) ([]*models.TaskTemplateItem, error) {
	return r.s.GetTemplateItems(ctx, templateID)
}

func (r templateRepo) List(ctx context.Context) ([]*models.TaskTemplate, error) {
	return r.s.ListTemplates(ctx)
}

func (r templateRepo) Delete(ctx context.Context, id string) error {
	return r.s.DeleteTemplate(ctx, id)
}

func (r notificationRepo) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	return r.s.CreateNotification(ctx, n)
}

func (r notificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	return r.s.ListNotificationsByUser(ctx, userID, limit)
}

func (r notificationRepo) MarkRead(ctx context.Context, id string) error {
	return r.s.MarkNotificationRead(ctx, id)
}

func (r notificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	return r.s.MarkAllNotificationsRead(ctx, userID)
}

func (r notificationRepo) MarkSent(ctx context.Context, id string) error {
	return r.s.MarkNotificationSent(ctx, id)
}
