package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
)

// taskEventsChannel matches the channel used by the row triggers installed in
// migrations.
const taskEventsChannel = "bartracker_task_events"

// TaskFeedListener turns Postgres NOTIFY payloads from the tasks table into
// TaskEvents fanned out to subscribers.
type TaskFeedListener struct {
	listener *pq.Listener
	logger   *logrus.Logger

	mu     sync.Mutex
	subs   map[int]*taskSubscription
	nextID int
}

type taskSubscription struct {
	id      int
	feed    *TaskFeedListener
	handler func(repository.TaskEvent)
	closed  *atomic.Bool
}

// Close detaches the subscription. Events already in flight are dropped once
// the closed flag is set.
func (s *taskSubscription) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.feed.mu.Lock()
	delete(s.feed.subs, s.id)
	s.feed.mu.Unlock()
	return nil
}

// NewTaskFeed creates a LISTEN/NOTIFY backed task change feed
func NewTaskFeed(databaseURL string, logger *logrus.Logger) *TaskFeedListener {
	listener := pq.NewListener(databaseURL, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Errorf("Task feed listener event %d: %v", ev, err)
			}
		})
	return &TaskFeedListener{
		listener: listener,
		logger:   logger,
		subs:     make(map[int]*taskSubscription),
	}
}

// Start begins listening and dispatching. It blocks until the context is
// cancelled, so it should be launched in a separate goroutine.
func (f *TaskFeedListener) Start(ctx context.Context) error {
	if err := f.listener.Listen(taskEventsChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", taskEventsChannel, err)
	}
	f.logger.Infof("Task change feed listening on %s", taskEventsChannel)

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Task change feed stopped")
			return f.listener.Close()
		case n := <-f.listener.Notify:
			if n == nil {
				// Connection was re-established; nothing to dispatch
				continue
			}
			f.dispatch(n.Extra)
		case <-time.After(90 * time.Second):
			if err := f.listener.Ping(); err != nil {
				f.logger.Errorf("Task feed ping failed: %v", err)
			}
		}
	}
}

// SubscribeTasks registers a handler for task change events
func (f *TaskFeedListener) SubscribeTasks(handler func(repository.TaskEvent)) (repository.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sub := &taskSubscription{
		id:      f.nextID,
		feed:    f,
		handler: handler,
		closed:  atomic.NewBool(false),
	}
	f.subs[sub.id] = sub
	return sub, nil
}

// wireEvent mirrors the JSON payload built by the tasks row trigger
type wireEvent struct {
	EventType string       `json:"event_type"`
	New       *models.Task `json:"new"`
	Old       *models.Task `json:"old"`
}

func (f *TaskFeedListener) dispatch(payload string) {
	var wire wireEvent
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		f.logger.Errorf("Failed to decode task feed payload: %v", err)
		return
	}

	event := repository.TaskEvent{New: wire.New, Old: wire.Old}
	switch wire.EventType {
	case "insert":
		event.Type = repository.EventInsert
	case "update":
		event.Type = repository.EventUpdate
	case "delete":
		event.Type = repository.EventDelete
	default:
		f.logger.Warnf("Unknown task feed event type: %s", wire.EventType)
		return
	}

	f.mu.Lock()
	subs := make([]*taskSubscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		if s.closed.Load() {
			continue
		}
		s.handler(event)
	}
}
