package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aleks10sadu-ops/k-c-bar/internal/metrics"
	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/stats"
)

// NewTask carries validated input for task creation
type NewTask struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ActionType  models.ActionType `json:"action_type"`
	TaskType    models.TaskType   `json:"task_type"`
	DueDate     *time.Time        `json:"due_date"`
	AssignedTo  string            `json:"assigned_to"`
	Steps       []string          `json:"steps"`
	FileURL     string            `json:"file_url"`
}

// TaskPatch is a typed update: nil fields are left untouched
type TaskPatch struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	TaskType    *models.TaskType   `json:"task_type"`
	DueDate     *time.Time         `json:"due_date"`
	AssignedTo  *string            `json:"assigned_to"`
	Steps       []string           `json:"steps"`
	Status      *models.TaskStatus `json:"status"`
}

// Evidence is the completion proof supplied by the assignee
type Evidence struct {
	ResultText    string `json:"result_text"`
	ResultFileURL string `json:"result_file_url"`
}

func (e Evidence) empty() bool {
	return e.ResultText == "" && e.ResultFileURL == ""
}

// CreateTask creates a task, chat message or note. Chat and note records have
// no lifecycle: they are stored already finished.
func (s *Service) CreateTask(ctx context.Context, actor *models.User, input NewTask) (*models.Task, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.AssignedTo == "" {
		return nil, fmt.Errorf("%w: assigned_to is required", ErrValidation)
	}
	switch input.ActionType {
	case models.ActionTask, models.ActionChat, models.ActionNote:
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", ErrValidation, input.ActionType)
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		ActionType:  input.ActionType,
		TaskType:    input.TaskType,
		Status:      models.TaskStatusPending,
		DueDate:     input.DueDate,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   actor.ID,
		Steps:       input.Steps,
		FileURL:     input.FileURL,
	}
	if !task.IsWorkItem() {
		// Immediate records are born finished
		now := s.now()
		task.Status = models.TaskStatusCompleted
		task.CompletedAt = &now
	}

	created, err := s.store.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	metrics.TasksCreated.WithLabelValues(string(created.ActionType)).Inc()
	s.logger.Infof("Task %q created by %s for %s", created.Title, actor.ID, created.AssignedTo)
	return created, nil
}

// UpdateTask applies a typed patch to a task
func (s *Service) UpdateTask(ctx context.Context, actor *models.User, id string, patch TaskPatch) (*models.Task, error) {
	task, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}

	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.TaskType != nil {
		task.TaskType = *patch.TaskType
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.AssignedTo != nil {
		task.AssignedTo = *patch.AssignedTo
	}
	if patch.Steps != nil {
		task.Steps = patch.Steps
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.TaskStatusPending, models.TaskStatusInProgress:
			task.Status = *patch.Status
		default:
			return nil, fmt.Errorf("%w: status %q can only be reached through complete", ErrValidation, *patch.Status)
		}
	}

	return s.store.Update(ctx, task)
}

// StartProgress moves a pending task to in_progress. Calling it on a task
// already in progress is a no-op; finished tasks are rejected.
func (s *Service) StartProgress(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	task, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if !task.IsWorkItem() {
		return nil, fmt.Errorf("%w: %s records have no lifecycle", ErrInvalidTransition, task.ActionType)
	}
	if task.Status == models.TaskStatusInProgress {
		return task, nil
	}
	if task.Status != models.TaskStatusPending {
		return nil, fmt.Errorf("%w: cannot start a %s task", ErrInvalidTransition, task.Status)
	}

	task.Status = models.TaskStatusInProgress
	return s.store.Update(ctx, task)
}

// Complete finishes a task. Non-admin callers must supply evidence. When the
// due date has already passed, the task is recorded as finished late: the
// stored status becomes overdue rather than completed, with completed_at set
// either way.
func (s *Service) Complete(ctx context.Context, actor *models.User, id string, evidence Evidence) (*models.Task, error) {
	task, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if !task.IsWorkItem() {
		return nil, fmt.Errorf("%w: %s records have no lifecycle", ErrInvalidTransition, task.ActionType)
	}
	if task.IsFinished() {
		return nil, fmt.Errorf("%w: task is already finished", ErrInvalidTransition)
	}
	if !actor.IsAdmin() && evidence.empty() {
		return nil, ErrEvidenceRequired
	}

	now := s.now()
	outcome := "on_time"
	task.Status = models.TaskStatusCompleted
	if task.DueDate != nil && task.DueDate.Before(now) {
		task.Status = models.TaskStatusOverdue
		outcome = "late"
	}
	task.CompletedAt = &now
	task.ResultText = evidence.ResultText
	task.ResultFileURL = evidence.ResultFileURL

	updated, err := s.store.Update(ctx, task)
	if err != nil {
		return nil, err
	}

	metrics.TasksCompleted.WithLabelValues(outcome).Inc()
	s.logger.Infof("Task %q completed by %s (%s)", updated.Title, actor.ID, outcome)
	return updated, nil
}

// UndoComplete reverts a finished task to in_progress and clears the
// completion timestamp and evidence. Undo always lands on in_progress even
// if the task was pending before completion. Admins can always undo; the
// assignee only when the policy allows it.
func (s *Service) UndoComplete(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	task, ok := s.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if !task.IsFinished() {
		return nil, fmt.Errorf("%w: task is not finished", ErrInvalidTransition)
	}
	if !actor.IsAdmin() {
		if !s.allowAssigneeUndo || task.AssignedTo != actor.ID {
			return nil, ErrNotPermitted
		}
	}

	task.Status = models.TaskStatusInProgress
	task.CompletedAt = nil
	task.ResultText = ""
	task.ResultFileURL = ""

	return s.store.Update(ctx, task)
}

// DeleteTask removes a task unconditionally. Admin-only enforcement lives at
// the API boundary.
func (s *Service) DeleteTask(ctx context.Context, actor *models.User, id string) error {
	return s.store.Delete(ctx, id)
}

// Task returns a single task from the live mirror
func (s *Service) Task(id string) (*models.Task, bool) {
	return s.store.Get(id)
}

// Tasks returns all tasks visible to the store's viewer
func (s *Service) Tasks() []*models.Task {
	return s.store.All()
}

// TasksForUser returns tasks assigned to the given user
func (s *Service) TasksForUser(userID string) []*models.Task {
	return s.store.ForUser(userID)
}

// TasksForDate returns tasks due on the given calendar day
func (s *Service) TasksForDate(date time.Time) []*models.Task {
	return s.store.ForDate(date)
}

// OverdueTasks returns tasks past their due date and not completed
func (s *Service) OverdueTasks() []*models.Task {
	return s.store.Overdue()
}

// Stats recomputes aggregate metrics over the live collection. An empty
// userID yields team-wide stats.
func (s *Service) Stats(userID string) stats.Stats {
	return stats.Compute(s.store.All(), userID, s.now())
}
