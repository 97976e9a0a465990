package stats

import (
	"testing"
	"time"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, "", time.Now())
	if s.Total != 0 || s.CompletionRate != 0 {
		t.Fatalf("expected zero stats, got %+v", s)
	}
	if s.AverageCompletionTime != nil {
		t.Fatalf("expected nil average for empty collection, got %d", *s.AverageCompletionTime)
	}
}

func TestComputeMixedCollection(t *testing.T) {
	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

	tasks := []*models.Task{
		// Completed on time, 20 minutes after creation
		{
			ID: "t1", ActionType: models.ActionTask, Status: models.TaskStatusCompleted,
			AssignedTo:  "u1",
			CreatedAt:   now.Add(-2 * time.Hour),
			CompletedAt: timePtr(now.Add(-2*time.Hour + 20*time.Minute)),
		},
		// Finished late: stored status overdue with completed_at set,
		// 40 minutes after creation
		{
			ID: "t2", ActionType: models.ActionTask, Status: models.TaskStatusOverdue,
			AssignedTo:  "u1",
			DueDate:     timePtr(now.Add(-1 * time.Hour)),
			CreatedAt:   now.Add(-3 * time.Hour),
			CompletedAt: timePtr(now.Add(-3*time.Hour + 40*time.Minute)),
		},
		// Pending, not yet due
		{
			ID: "t3", ActionType: models.ActionTask, Status: models.TaskStatusPending,
			AssignedTo: "u2",
			DueDate:    timePtr(now.Add(time.Hour)),
			CreatedAt:  now.Add(-time.Hour),
		},
		// Pending and past due: live overdue
		{
			ID: "t4", ActionType: models.ActionTask, Status: models.TaskStatusPending,
			AssignedTo: "u2",
			DueDate:    timePtr(now.Add(-30 * time.Minute)),
			CreatedAt:  now.Add(-2 * time.Hour),
		},
		// Completed but with no recorded completion time: counts as done,
		// stays out of the average
		{
			ID: "t5", ActionType: models.ActionTask, Status: models.TaskStatusCompleted,
			AssignedTo: "u1",
			CreatedAt:  now.Add(-4 * time.Hour),
		},
		// Notes never count
		{
			ID: "n1", ActionType: models.ActionNote, Status: models.TaskStatusCompleted,
			AssignedTo: "u1", CreatedAt: now, CompletedAt: timePtr(now),
		},
	}

	s := Compute(tasks, "", now)

	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	if s.Completed != 3 {
		t.Errorf("Completed = %d, want 3 (late finish and t5 count)", s.Completed)
	}
	if s.Pending != 2 {
		t.Errorf("Pending = %d, want 2", s.Pending)
	}
	if s.InProgress != 0 {
		t.Errorf("InProgress = %d, want 0", s.InProgress)
	}
	// t2 is stored overdue and t4 is past due: both show in the live
	// projection
	if s.Overdue != 2 {
		t.Errorf("Overdue = %d, want 2", s.Overdue)
	}
	// round(3/5 * 100)
	if s.CompletionRate != 60 {
		t.Errorf("CompletionRate = %d, want 60", s.CompletionRate)
	}
	// The average covers t1 and t2 only; t5 has no completion timestamp
	if s.AverageCompletionTime == nil {
		t.Fatal("AverageCompletionTime is nil, want 30")
	}
	if *s.AverageCompletionTime != 30 {
		t.Errorf("AverageCompletionTime = %d, want 30", *s.AverageCompletionTime)
	}
}

func TestComputeScopedToUser(t *testing.T) {
	now := time.Now()
	tasks := []*models.Task{
		{ID: "a", ActionType: models.ActionTask, Status: models.TaskStatusPending, AssignedTo: "u1", CreatedAt: now},
		{ID: "b", ActionType: models.ActionTask, Status: models.TaskStatusCompleted, AssignedTo: "u2",
			CreatedAt: now.Add(-time.Hour), CompletedAt: timePtr(now)},
	}

	s := Compute(tasks, "u1", now)
	if s.Total != 1 || s.Pending != 1 || s.Completed != 0 {
		t.Fatalf("scoped stats wrong: %+v", s)
	}
	if s.AverageCompletionTime != nil {
		t.Fatalf("expected nil average when user has no finished tasks")
	}
}

func TestComputeCompletedTaskNeverOverdue(t *testing.T) {
	now := time.Now()
	tasks := []*models.Task{
		// Completed before due but due date is now in the past
		{
			ID: "a", ActionType: models.ActionTask, Status: models.TaskStatusCompleted,
			AssignedTo:  "u1",
			DueDate:     timePtr(now.Add(-time.Hour)),
			CreatedAt:   now.Add(-3 * time.Hour),
			CompletedAt: timePtr(now.Add(-2 * time.Hour)),
		},
	}

	s := Compute(tasks, "", now)
	if s.Overdue != 0 {
		t.Fatalf("completed task counted as overdue: %+v", s)
	}
	if s.Completed != 1 {
		t.Fatalf("Completed = %d, want 1", s.Completed)
	}
}

func TestComputeRounding(t *testing.T) {
	now := time.Now()
	tasks := []*models.Task{
		{ID: "a", ActionType: models.ActionTask, Status: models.TaskStatusCompleted,
			AssignedTo: "u1", CreatedAt: now.Add(-time.Hour), CompletedAt: timePtr(now)},
		{ID: "b", ActionType: models.ActionTask, Status: models.TaskStatusPending, AssignedTo: "u1", CreatedAt: now},
		{ID: "c", ActionType: models.ActionTask, Status: models.TaskStatusPending, AssignedTo: "u1", CreatedAt: now},
	}

	s := Compute(tasks, "", now)
	// 1/3 rounds to 33
	if s.CompletionRate != 33 {
		t.Fatalf("CompletionRate = %d, want 33", s.CompletionRate)
	}
}
