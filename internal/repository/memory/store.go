package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
)

// Store is an in-memory implementation of every repository interface plus the
// task change feed. It backs the explicit demo mode and the test suite; the
// feed emits synthetic events on each task mutation, mirroring what the
// Postgres triggers produce.
type Store struct {
	mu sync.Mutex

	users         map[string]*models.User
	tasks         map[string]*models.Task
	templates     map[string]*models.TaskTemplate
	templateItems map[string][]*models.TaskTemplateItem
	notifications map[string]*models.Notification

	subs   map[int]*subscription
	nextID int
}

type subscription struct {
	id      int
	store   *Store
	handler func(repository.TaskEvent)
	closed  *atomic.Bool
}

func (s *subscription) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.store.mu.Lock()
	delete(s.store.subs, s.id)
	s.store.mu.Unlock()
	return nil
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		users:         make(map[string]*models.User),
		tasks:         make(map[string]*models.Task),
		templates:     make(map[string]*models.TaskTemplate),
		templateItems: make(map[string][]*models.TaskTemplateItem),
		notifications: make(map[string]*models.Notification),
		subs:          make(map[int]*subscription),
	}
}

// --- change feed ---

// SubscribeTasks registers a handler for synthetic task change events
func (s *Store) SubscribeTasks(handler func(repository.TaskEvent)) (repository.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub := &subscription{id: s.nextID, store: s, handler: handler, closed: atomic.NewBool(false)}
	s.subs[sub.id] = sub
	return sub, nil
}

// emit must be called without the store lock held
func (s *Store) emit(event repository.TaskEvent) {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.closed.Load() {
			continue
		}
		sub.handler(event)
	}
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.UserRoleBartender
	}
	c := *user
	s.users[user.ID] = &c
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *user
	return &c, nil
}

func (s *Store) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.TelegramID == telegramID {
			c := *user
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context, filters repository.UserFilters) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []*models.User
	for _, user := range s.users {
		if filters.Role != nil && user.Role != *filters.Role {
			continue
		}
		c := *user
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].FirstName != users[j].FirstName {
			return users[i].FirstName < users[j].FirstName
		}
		return users[i].LastName < users[j].LastName
	})
	return users, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	c := *user
	s.users[user.ID] = &c
	return user, nil
}

// --- tasks ---

func (s *Store) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	s.mu.Lock()
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
	s.tasks[task.ID] = task.Clone()
	event := repository.TaskEvent{Type: repository.EventInsert, New: task.Clone()}
	s.mu.Unlock()

	s.emit(event)
	return task, nil
}

func (s *Store) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return task.Clone(), nil
}

func (s *Store) ListTasks(ctx context.Context, filters repository.TaskFilters) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tasks []*models.Task
	for _, task := range s.tasks {
		if filters.AssignedTo != "" && task.AssignedTo != filters.AssignedTo {
			continue
		}
		if filters.Status != nil && task.Status != *filters.Status {
			continue
		}
		tasks = append(tasks, task.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	if filters.Limit > 0 && len(tasks) > filters.Limit {
		tasks = tasks[:filters.Limit]
	}
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	s.mu.Lock()
	old, ok := s.tasks[task.ID]
	if !ok {
		s.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = time.Now()
	}
	s.tasks[task.ID] = task.Clone()
	event := repository.TaskEvent{Type: repository.EventUpdate, New: task.Clone(), Old: old.Clone()}
	s.mu.Unlock()

	s.emit(event)
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	old, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(s.tasks, id)
	event := repository.TaskEvent{Type: repository.EventDelete, Old: old.Clone()}
	s.mu.Unlock()

	s.emit(event)
	return nil
}

// --- templates ---

func (s *Store) CreateTemplate(ctx context.Context, tpl *models.TaskTemplate, items []*models.TaskTemplateItem) (*models.TaskTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	c := *tpl
	s.templates[tpl.ID] = &c

	stored := make([]*models.TaskTemplateItem, 0, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.TemplateID = tpl.ID
		item.Position = i
		ic := *item
		ic.Steps = append([]string(nil), item.Steps...)
		stored = append(stored, &ic)
	}
	s.templateItems[tpl.ID] = stored
	return tpl, nil
}

func (s *Store) GetTemplateByID(ctx context.Context, id string) (*models.TaskTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, ok := s.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *tpl
	return &c, nil
}

func (s *Store) GetTemplateItems(ctx context.Context, templateID string) ([]*models.TaskTemplateItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.templateItems[templateID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]*models.TaskTemplateItem, 0, len(items))
	for _, item := range items {
		c := *item
		c.Steps = append([]string(nil), item.Steps...)
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]*models.TaskTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var templates []*models.TaskTemplate
	for _, tpl := range s.templates {
		c := *tpl
		templates = append(templates, &c)
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].CreatedAt.After(templates[j].CreatedAt)
	})
	return templates, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.templates, id)
	delete(s.templateItems, id)
	return nil
}

// --- notifications ---

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	c := *n
	s.notifications[n.ID] = &c
	return n, nil
}

func (s *Store) ListNotificationsByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var notifications []*models.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		c := *n
		notifications = append(notifications, &c)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if limit > 0 && len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notifications[id]; ok {
		n.Read = true
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (s *Store) MarkNotificationSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notifications[id]; ok {
		n.SentToTelegram = true
	}
	return nil
}
