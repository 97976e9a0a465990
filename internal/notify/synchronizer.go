// Package notify translates task change-feed events into per-user
// notification feeds and mediates best-effort delivery to Telegram. The
// in-app feed is authoritative; the Telegram copy is supplementary and a
// failed delivery never reverts or retries the feed entry.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/aleks10sadu-ops/k-c-bar/internal/metrics"
	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
)

// FeedLimit caps how many entries each user's feed retains
const FeedLimit = 50

// Sender delivers a message to an external recipient
type Sender interface {
	SendDirect(telegramID int64, text string) error
}

// Synchronizer reacts to task lifecycle events with notifications
type Synchronizer struct {
	logger *logrus.Logger
	users  repository.UserRepository
	repo   repository.NotificationRepository
	sender Sender
	now    func() time.Time

	mu       sync.Mutex
	feeds    map[string][]*models.Notification // newest first
	hydrated map[string]bool                   // userID -> feed loaded from the store
	pending  map[string]string                 // userID -> taskID deep link

	sub    repository.Subscription
	closed *atomic.Bool
}

// New creates a Synchronizer. sender may be nil, in which case external
// delivery is skipped entirely.
func New(logger *logrus.Logger, users repository.UserRepository,
	repo repository.NotificationRepository, sender Sender,
) *Synchronizer {
	return &Synchronizer{
		logger:   logger,
		users:    users,
		repo:     repo,
		sender:   sender,
		now:      time.Now,
		feeds:    make(map[string][]*models.Notification),
		hydrated: make(map[string]bool),
		pending:  make(map[string]string),
		closed:   atomic.NewBool(false),
	}
}

// SetNow overrides the clock, for tests
func (s *Synchronizer) SetNow(now func() time.Time) {
	s.now = now
}

// Start subscribes to the task change feed
func (s *Synchronizer) Start(feed repository.TaskFeed) error {
	sub, err := feed.SubscribeTasks(func(event repository.TaskEvent) {
		if s.closed.Load() {
			return
		}
		s.HandleEvent(context.Background(), event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to task feed: %w", err)
	}
	s.sub = sub
	return nil
}

// Close detaches from the change feed; late events are dropped
func (s *Synchronizer) Close() {
	if s.closed.Swap(true) {
		return
	}
	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			s.logger.Errorf("Failed to close notification subscription: %v", err)
		}
	}
}

// HandleEvent maps one task change event onto notifications for its
// audience: assignees hear about their own tasks, admins hear about
// completions and starts.
func (s *Synchronizer) HandleEvent(ctx context.Context, event repository.TaskEvent) {
	switch event.Type {
	case repository.EventInsert:
		s.handleInsert(ctx, event.New)
	case repository.EventUpdate:
		s.handleUpdate(ctx, event.Old, event.New)
	}
}

func (s *Synchronizer) handleInsert(ctx context.Context, task *models.Task) {
	if task == nil || task.AssignedTo == "" {
		return
	}
	assignee, err := s.users.GetByID(ctx, task.AssignedTo)
	if err != nil {
		s.logger.Errorf("Failed to resolve assignee %s: %v", task.AssignedTo, err)
		return
	}
	if assignee.IsAdmin() {
		return
	}

	creatorName := s.userName(ctx, task.CreatedBy)
	ntype := models.NotificationTaskCreated
	title := "New task"
	message := fmt.Sprintf("%s assigned you a task: %q", creatorName, task.Title)
	switch task.ActionType {
	case models.ActionNote:
		ntype = models.NotificationNoteCreated
		title = "New note"
		message = fmt.Sprintf("%s left you a note: %q", creatorName, task.Title)
	case models.ActionChat:
		title = "New message"
		message = fmt.Sprintf("%s sent you a message: %q", creatorName, task.Title)
	}

	s.dispatch(ctx, &models.Notification{
		UserID:     task.AssignedTo,
		Type:       ntype,
		Title:      title,
		Message:    message,
		TaskID:     task.ID,
		FromUserID: task.CreatedBy,
	})
}

func (s *Synchronizer) handleUpdate(ctx context.Context, old, task *models.Task) {
	if task == nil || old == nil || old.Status == task.Status {
		return
	}

	// Assignee hears about any status change on their own tasks
	if assignee, err := s.users.GetByID(ctx, task.AssignedTo); err == nil && !assignee.IsAdmin() {
		s.dispatch(ctx, &models.Notification{
			UserID:  task.AssignedTo,
			Type:    models.NotificationTaskUpdated,
			Title:   "Task updated",
			Message: fmt.Sprintf("Status of %q changed", task.Title),
			TaskID:  task.ID,
		})
	}

	// Admins hear about completions, including late ones
	if task.IsFinished() && !old.IsFinished() {
		name := s.userName(ctx, task.AssignedTo)
		s.notifyAdmins(ctx, &models.Notification{
			Type:       models.NotificationTaskCompleted,
			Title:      "Task completed",
			Message:    fmt.Sprintf("%s completed the task: %q", name, task.Title),
			TaskID:     task.ID,
			FromUserID: task.AssignedTo,
		})
		return
	}

	// Admins hear when work starts
	if old.Status == models.TaskStatusPending && task.Status == models.TaskStatusInProgress {
		name := s.userName(ctx, task.AssignedTo)
		s.notifyAdmins(ctx, &models.Notification{
			Type:       models.NotificationTaskUpdated,
			Title:      "Task started",
			Message:    fmt.Sprintf("%s started working on: %q", name, task.Title),
			TaskID:     task.ID,
			FromUserID: task.AssignedTo,
		})
	}
}

func (s *Synchronizer) notifyAdmins(ctx context.Context, template *models.Notification) {
	role := models.UserRoleAdmin
	admins, err := s.users.List(ctx, repository.UserFilters{Role: &role})
	if err != nil {
		s.logger.Errorf("Failed to list admins: %v", err)
		return
	}
	for _, admin := range admins {
		n := *template
		n.UserID = admin.ID
		s.dispatch(ctx, &n)
	}
}

// dispatch persists the notification, appends it to the recipient's feed and
// attempts external delivery. Secondary failures are logged, never
// propagated: the triggering operation has already succeeded.
func (s *Synchronizer) dispatch(ctx context.Context, n *models.Notification) {
	n.ID = uuid.NewString()
	n.CreatedAt = s.now()

	if _, err := s.repo.Create(ctx, n); err != nil {
		s.logger.Errorf("Failed to persist notification for %s: %v", n.UserID, err)
	}

	s.mu.Lock()
	feed := append([]*models.Notification{n}, s.feeds[n.UserID]...)
	if len(feed) > FeedLimit {
		feed = feed[:FeedLimit]
	}
	s.feeds[n.UserID] = feed
	s.mu.Unlock()

	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	s.deliver(ctx, n)
}

func (s *Synchronizer) deliver(ctx context.Context, n *models.Notification) {
	if s.sender == nil {
		return
	}
	recipient, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		s.logger.Errorf("Failed to resolve notification recipient %s: %v", n.UserID, err)
		metrics.TelegramDeliveries.WithLabelValues("error").Inc()
		return
	}

	text := fmt.Sprintf("%s\n%s", n.Title, n.Message)
	if err := s.sender.SendDirect(recipient.TelegramID, text); err != nil {
		s.logger.Errorf("Telegram delivery to %s failed: %v", recipient.DisplayName(), err)
		metrics.TelegramDeliveries.WithLabelValues("error").Inc()
		return
	}

	s.mu.Lock()
	n.SentToTelegram = true
	s.mu.Unlock()
	if err := s.repo.MarkSent(ctx, n.ID); err != nil {
		s.logger.Errorf("Failed to record delivery of %s: %v", n.ID, err)
	}
	metrics.TelegramDeliveries.WithLabelValues("ok").Inc()
}

func (s *Synchronizer) userName(ctx context.Context, id string) string {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "Someone"
	}
	return user.FullName()
}
