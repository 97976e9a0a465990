package models

import "time"

// NotificationType classifies a feed entry by the lifecycle event behind it
type NotificationType string

const (
	NotificationTaskCreated   NotificationType = "task_created"
	NotificationTaskCompleted NotificationType = "task_completed"
	NotificationTaskUpdated   NotificationType = "task_updated"
	NotificationTaskAssigned  NotificationType = "task_assigned"
	NotificationNoteCreated   NotificationType = "note_created"
)

// Notification is a per-user feed entry produced by the synchronizer in
// reaction to task lifecycle events. Only the read flag is ever mutated;
// entries are removed in bulk, never individually.
type Notification struct {
	ID             string           `json:"id" db:"id"`
	UserID         string           `json:"user_id" db:"user_id"`
	Type           NotificationType `json:"type" db:"type"`
	Title          string           `json:"title" db:"title"`
	Message        string           `json:"message" db:"message"`
	TaskID         string           `json:"task_id" db:"task_id"`
	FromUserID     string           `json:"from_user_id" db:"from_user_id"`
	Read           bool             `json:"read" db:"read"`
	SentToTelegram bool             `json:"sent_to_telegram" db:"sent_to_telegram"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}
