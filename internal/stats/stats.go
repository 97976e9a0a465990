// Package stats computes aggregate task metrics. Everything here is a pure
// function over a task collection; nothing is cached between calls because
// task mutations are frequent and collections are small.
package stats

import (
	"math"
	"time"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
)

// Stats holds aggregate metrics for a task collection, scoped to one
// assignee or to the whole team.
type Stats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Overdue    int `json:"overdue"`

	// CompletionRate is a whole percentage, 0 when there are no tasks
	CompletionRate int `json:"completionRate"`

	// AverageCompletionTime is mean minutes from creation to completion
	// over finished tasks with a recorded completion timestamp. Nil means
	// no data, which is distinct from zero.
	AverageCompletionTime *int `json:"averageCompletionTime"`
}

// Compute aggregates metrics over tasks. Only work items (action_type=task)
// count; chat and note records are not work. A non-empty userID scopes the
// metrics to that assignee. A task finished past its due date is stored with
// status "overdue" and counts as completed; the Overdue bucket is the live
// due-date projection and is computed independently of stored status.
func Compute(tasks []*models.Task, userID string, now time.Time) Stats {
	var s Stats
	var totalMinutes float64
	var timed int

	for _, t := range tasks {
		if !t.IsWorkItem() {
			continue
		}
		if userID != "" && t.AssignedTo != userID {
			continue
		}
		s.Total++

		switch {
		case t.IsFinished():
			s.Completed++
		case t.Status == models.TaskStatusInProgress:
			s.InProgress++
		default:
			s.Pending++
		}

		if t.IsOverdue(now) {
			s.Overdue++
		}

		if t.IsFinished() && t.CompletedAt != nil {
			totalMinutes += t.CompletedAt.Sub(t.CreatedAt).Minutes()
			timed++
		}
	}

	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	if timed > 0 {
		avg := int(math.Round(totalMinutes / float64(timed)))
		s.AverageCompletionTime = &avg
	}

	return s
}
