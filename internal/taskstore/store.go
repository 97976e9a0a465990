// Package taskstore maintains a live in-memory mirror of the task collection.
// Mutations are applied optimistically before the persistence round-trip and
// reconciled against change-feed echoes; a failed persistence call triggers a
// full resync instead of a compensating diff.
package taskstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
)

// Viewer scopes the mirror's visibility. A non-admin viewer only ever holds
// tasks assigned to them, so a shared change feed cannot leak another
// bartender's tasks into their view.
type Viewer struct {
	UserID string
	Admin  bool
}

// Store is the live task mirror for one viewer
type Store struct {
	logger *logrus.Logger
	repo   repository.TaskRepository
	feed   repository.TaskFeed
	viewer Viewer
	now    func() time.Time

	mu    sync.Mutex
	tasks map[string]*models.Task

	sub    repository.Subscription
	closed *atomic.Bool
}

// New creates a task store for the given viewer
func New(repo repository.TaskRepository, feed repository.TaskFeed, viewer Viewer, logger *logrus.Logger) *Store {
	return &Store{
		logger: logger,
		repo:   repo,
		feed:   feed,
		viewer: viewer,
		now:    time.Now,
		tasks:  make(map[string]*models.Task),
		closed: atomic.NewBool(false),
	}
}

// Start loads the authoritative collection and subscribes to the change feed.
// Close must be called on every exit path to release the subscription.
func (s *Store) Start(ctx context.Context) error {
	if err := s.Resync(ctx); err != nil {
		return err
	}
	sub, err := s.feed.SubscribeTasks(func(event repository.TaskEvent) {
		if s.closed.Load() {
			return
		}
		s.applyEvent(event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to task feed: %w", err)
	}
	s.sub = sub
	return nil
}

// Close detaches the store from the change feed. Late events are dropped.
func (s *Store) Close() {
	if s.closed.Swap(true) {
		return
	}
	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			s.logger.Errorf("Failed to close task feed subscription: %v", err)
		}
	}
}

// Resync replaces the mirror with a full fetch of the authoritative state
func (s *Store) Resync(ctx context.Context) error {
	filters := repository.TaskFilters{}
	if !s.viewer.Admin {
		filters.AssignedTo = s.viewer.UserID
	}
	tasks, err := s.repo.List(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to resync tasks: %w", err)
	}

	s.mu.Lock()
	s.tasks = make(map[string]*models.Task, len(tasks))
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	s.mu.Unlock()
	return nil
}

// Create applies the new task locally, then persists it. On persistence
// failure the mirror is resynced and the error returned.
func (s *Store) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	s.put(task)

	created, err := s.repo.Create(ctx, task.Clone())
	if err != nil {
		s.logger.Errorf("Failed to persist task %s, resyncing: %v", task.ID, err)
		if rerr := s.Resync(ctx); rerr != nil {
			s.logger.Errorf("Resync after failed create: %v", rerr)
		}
		return nil, err
	}

	s.put(created)
	return created, nil
}

// Update applies the mutated task locally, then persists it
func (s *Store) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	task.UpdatedAt = s.now()
	s.put(task)

	updated, err := s.repo.Update(ctx, task.Clone())
	if err != nil {
		s.logger.Errorf("Failed to persist task %s update, resyncing: %v", task.ID, err)
		if rerr := s.Resync(ctx); rerr != nil {
			s.logger.Errorf("Resync after failed update: %v", rerr)
		}
		return nil, err
	}

	s.put(updated)
	return updated, nil
}

// Delete removes the task locally, then from the backing store
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.tasks, id)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Errorf("Failed to delete task %s, resyncing: %v", id, err)
		if rerr := s.Resync(ctx); rerr != nil {
			s.logger.Errorf("Resync after failed delete: %v", rerr)
		}
		return err
	}
	return nil
}

// Get returns the task with the given id from the mirror
func (s *Store) Get(id string) (*models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// All returns every task in the mirror, oldest first
func (s *Store) All() []*models.Task {
	return s.collect(func(*models.Task) bool { return true })
}

// ForUser returns tasks assigned to the given user
func (s *Store) ForUser(userID string) []*models.Task {
	return s.collect(func(t *models.Task) bool { return t.AssignedTo == userID })
}

// ForDate returns tasks whose due date falls on the given calendar day.
// Tasks without a due date never appear on the calendar.
func (s *Store) ForDate(date time.Time) []*models.Task {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)
	return s.collect(func(t *models.Task) bool {
		if t.DueDate == nil {
			return false
		}
		return !t.DueDate.Before(start) && t.DueDate.Before(end)
	})
}

// Overdue returns tasks past their due date and not completed
func (s *Store) Overdue() []*models.Task {
	now := s.now()
	return s.collect(func(t *models.Task) bool { return t.IsOverdue(now) })
}

func (s *Store) collect(keep func(*models.Task) bool) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Task
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) put(task *models.Task) {
	s.mu.Lock()
	s.tasks[task.ID] = task.Clone()
	s.mu.Unlock()
}

// visible reports whether the viewer may hold this task in their mirror
func (s *Store) visible(task *models.Task) bool {
	if s.viewer.Admin {
		return true
	}
	return task.AssignedTo == s.viewer.UserID
}

// applyEvent merges a change-feed event idempotently: inserts for a known id
// are no-ops, updates replace by id, deletes remove by id. Inserts and
// updates for tasks outside the viewer's visibility are ignored; deletes are
// always applied since removing an id can never leak data.
func (s *Store) applyEvent(event repository.TaskEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case repository.EventInsert:
		if event.New == nil || !s.visible(event.New) {
			return
		}
		if _, exists := s.tasks[event.New.ID]; exists {
			return
		}
		s.tasks[event.New.ID] = event.New.Clone()
	case repository.EventUpdate:
		if event.New == nil || !s.visible(event.New) {
			return
		}
		s.tasks[event.New.ID] = event.New.Clone()
	case repository.EventDelete:
		if event.Old == nil {
			return
		}
		delete(s.tasks, event.Old.ID)
	}
}

// SetNow overrides the clock, for tests
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}
