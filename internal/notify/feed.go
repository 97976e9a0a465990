package notify

import (
	"context"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
)

// hydrate fills the user's feed from the durable store on first access, so
// the in-app feed survives a process restart. Entries dispatched since
// startup are already in the live feed and are newer than anything stored
// before it; merging by id keeps newest-first order.
func (s *Synchronizer) hydrate(ctx context.Context, userID string) {
	s.mu.Lock()
	if s.hydrated[userID] {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	stored, err := s.repo.ListByUser(ctx, userID, FeedLimit)
	if err != nil {
		s.logger.Errorf("Failed to load notification history for %s: %v", userID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hydrated[userID] {
		return
	}
	feed := s.feeds[userID]
	seen := make(map[string]bool, len(feed))
	for _, n := range feed {
		seen[n.ID] = true
	}
	for _, n := range stored {
		if !seen[n.ID] {
			feed = append(feed, n)
		}
	}
	if len(feed) > FeedLimit {
		feed = feed[:FeedLimit]
	}
	s.feeds[userID] = feed
	s.hydrated[userID] = true
}

// Feed returns the user's notifications, newest first
func (s *Synchronizer) Feed(ctx context.Context, userID string) []*models.Notification {
	s.hydrate(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	feed := s.feeds[userID]
	out := make([]*models.Notification, len(feed))
	for i, n := range feed {
		c := *n
		out[i] = &c
	}
	return out
}

// UnreadCount returns the live number of unread entries in the user's feed
func (s *Synchronizer) UnreadCount(ctx context.Context, userID string) int {
	s.hydrate(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.feeds[userID] {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkAsRead flips one notification to read. Idempotent: marking an already
// read entry changes nothing.
func (s *Synchronizer) MarkAsRead(ctx context.Context, userID, id string) {
	s.mu.Lock()
	for _, n := range s.feeds[userID] {
		if n.ID == id {
			n.Read = true
			break
		}
	}
	s.mu.Unlock()

	if err := s.repo.MarkRead(ctx, id); err != nil {
		s.logger.Errorf("Failed to persist read state of %s: %v", id, err)
	}
}

// MarkAllAsRead flips every entry in the user's feed to read
func (s *Synchronizer) MarkAllAsRead(ctx context.Context, userID string) {
	s.mu.Lock()
	for _, n := range s.feeds[userID] {
		n.Read = true
	}
	s.mu.Unlock()

	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		s.logger.Errorf("Failed to persist read state for %s: %v", userID, err)
	}
}

// ClearAll empties the user's local feed. Server-side history is kept, but
// the emptied feed is pinned so it is not re-filled from the store.
func (s *Synchronizer) ClearAll(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, userID)
	s.hydrated[userID] = true
}

// OpenTaskFromNotification records which task the user wants opened from a
// notification. The consuming UI resolves the pointer against the task store,
// opens the detail view and clears it. This keeps the notification layer free
// of any navigation concern.
func (s *Synchronizer) OpenTaskFromNotification(userID, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = taskID
}

// PendingTask returns the deep-link pointer set for the user, if any
func (s *Synchronizer) PendingTask(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	taskID, ok := s.pending[userID]
	return taskID, ok
}

// ClearPendingTask resets the deep-link pointer
func (s *Synchronizer) ClearPendingTask(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, userID)
}
