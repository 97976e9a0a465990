package models

import "time"

// ActionType distinguishes work items from immediate records. Only "task"
// carries a lifecycle; chat and note are created already finished.
type ActionType string

const (
	ActionTask ActionType = "task"
	ActionChat ActionType = "chat"
	ActionNote ActionType = "note"
)

// TaskType is a classification tag with no behavior attached
type TaskType string

const (
	TaskTypePrepare   TaskType = "prepare"
	TaskTypeCheck     TaskType = "check"
	TaskTypeInventory TaskType = "inventory"
	TaskTypeExecute   TaskType = "execute"
	TaskTypeUrgent    TaskType = "urgent"
	TaskTypeNormal    TaskType = "normal"
)

// TaskStatus represents the stored status of a task.
// TaskStatusOverdue is only ever persisted when a task is completed past its
// due date; live overdue display is derived from the due date, not stored.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOverdue    TaskStatus = "overdue"
)

// Task represents a unit of work or communication assigned to a bartender
type Task struct {
	ID            string     `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	ActionType    ActionType `json:"action_type" db:"action_type"`
	TaskType      TaskType   `json:"task_type" db:"task_type"`
	Status        TaskStatus `json:"status" db:"status"`
	DueDate       *time.Time `json:"due_date" db:"due_date"`
	AssignedTo    string     `json:"assigned_to" db:"assigned_to"`
	CreatedBy     string     `json:"created_by" db:"created_by"`
	Steps         []string   `json:"steps" db:"steps"`
	FileURL       string     `json:"file_url" db:"file_url"`
	ResultText    string     `json:"result_text" db:"result_text"`
	ResultFileURL string     `json:"result_file_url" db:"result_file_url"`
	CompletedAt   *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsWorkItem returns true for tasks with a lifecycle (chat/note excluded)
func (t *Task) IsWorkItem() bool {
	return t.ActionType == ActionTask
}

// IsFinished returns true once the task has been completed, on time or late.
// A stored "overdue" status records a late finish and counts as finished.
func (t *Task) IsFinished() bool {
	return t.Status == TaskStatusCompleted ||
		(t.Status == TaskStatusOverdue && t.CompletedAt != nil)
}

// IsOverdue reports the live overdue projection: a due date in the past on a
// task not marked completed. Pure function of (due_date, status, now).
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusCompleted {
		return false
	}
	return t.DueDate.Before(now)
}

// HasEvidence returns true if completion evidence was supplied
func (t *Task) HasEvidence() bool {
	return t.ResultText != "" || t.ResultFileURL != ""
}

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.Steps != nil {
		c.Steps = append([]string(nil), t.Steps...)
	}
	return &c
}
