package memory

import (
	"context"
	"time"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
)

// Seed fills the store with a demo admin, a few bartenders and sample tasks.
// Used by demo mode so the app is usable without a backend.
func (s *Store) Seed(ctx context.Context) (*models.User, error) {
	admin, err := s.CreateUser(ctx, &models.User{
		TelegramID: 123456789,
		Username:   "demo_admin",
		FirstName:  "Demo",
		LastName:   "Admin",
		Role:       models.UserRoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	bartenders := []*models.User{
		{TelegramID: 111111111, Username: "ivan_barman", FirstName: "Ivan", LastName: "Petrov", Role: models.UserRoleBartender},
		{TelegramID: 222222222, Username: "maria_bar", FirstName: "Maria", LastName: "Sidorova", Role: models.UserRoleBartender},
		{TelegramID: 333333333, Username: "alex_mix", FirstName: "Alexey", LastName: "Kozlov", Role: models.UserRoleBartender},
	}
	for _, b := range bartenders {
		if _, err := s.CreateUser(ctx, b); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	inHour := now.Add(time.Hour)
	inTwoHours := now.Add(2 * time.Hour)
	hourAgo := now.Add(-time.Hour)
	halfHourAgo := now.Add(-30 * time.Minute)

	tasks := []*models.Task{
		{
			Title:       "Prepare the bar station",
			Description: "Check that all ingredients and tools are in place",
			ActionType:  models.ActionTask,
			TaskType:    models.TaskTypePrepare,
			Status:      models.TaskStatusPending,
			DueDate:     &inHour,
			AssignedTo:  bartenders[0].ID,
			CreatedBy:   admin.ID,
		},
		{
			Title:       "Spirits inventory",
			Description: "Recount remaining hard liquor",
			ActionType:  models.ActionTask,
			TaskType:    models.TaskTypeInventory,
			Status:      models.TaskStatusInProgress,
			DueDate:     &inTwoHours,
			AssignedTo:  bartenders[1].ID,
			CreatedBy:   admin.ID,
		},
		{
			Title:       "Check syrup expiry dates",
			ActionType:  models.ActionTask,
			TaskType:    models.TaskTypeCheck,
			Status:      models.TaskStatusCompleted,
			DueDate:     &hourAgo,
			AssignedTo:  bartenders[0].ID,
			CreatedBy:   admin.ID,
			ResultText:  "All syrups within date",
			CompletedAt: &halfHourAgo,
		},
		{
			Title:       "New cocktail menu",
			Description: "Read through this week's updated menu",
			ActionType:  models.ActionNote,
			Status:      models.TaskStatusCompleted,
			AssignedTo:  bartenders[0].ID,
			CreatedBy:   admin.ID,
			CompletedAt: &now,
		},
	}
	for _, t := range tasks {
		if _, err := s.CreateTask(ctx, t); err != nil {
			return nil, err
		}
	}

	return admin, nil
}
