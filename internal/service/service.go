package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
	"github.com/aleks10sadu-ops/k-c-bar/internal/taskstore"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrEvidenceRequired is returned when a non-admin completes a task
	// without result text or a result file
	ErrEvidenceRequired = errors.New("completion requires result text or a result file")
	// ErrInvalidTransition is returned for illegal status transitions
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotPermitted is returned when the caller's role forbids the operation
	ErrNotPermitted = errors.New("operation not permitted")
	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")
)

// Service is the central business logic layer: task lifecycle rules,
// template expansion and user bootstrap.
type Service struct {
	logger    *logrus.Logger
	store     *taskstore.Store
	users     repository.UserRepository
	templates repository.TemplateRepository
	now       func() time.Time

	// allowAssigneeUndo lets the assignee revert their own completion;
	// admins can always undo.
	allowAssigneeUndo bool
}

// New creates a new Service with all required dependencies
func New(logger *logrus.Logger, store *taskstore.Store,
	users repository.UserRepository, templates repository.TemplateRepository,
	allowAssigneeUndo bool,
) *Service {
	return &Service{
		logger:            logger,
		store:             store,
		users:             users,
		templates:         templates,
		now:               time.Now,
		allowAssigneeUndo: allowAssigneeUndo,
	}
}

// SetNow overrides the clock, for tests
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

// Now returns the service's current time
func (s *Service) Now() time.Time {
	return s.now()
}

// TelegramProfile is the verified identity handed over by the auth layer
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
}

// EnsureUser retrieves an existing user by Telegram ID, or registers a new
// one. The first user ever registered is promoted to admin; everyone after
// that starts as bartender. If the user exists but their Telegram profile has
// changed, the record is refreshed.
func (s *Service) EnsureUser(ctx context.Context, profile TelegramProfile) (*models.User, error) {
	username := strings.TrimSpace(profile.Username)
	firstName := strings.TrimSpace(profile.FirstName)
	lastName := strings.TrimSpace(profile.LastName)

	user, err := s.users.GetByTelegramID(ctx, profile.TelegramID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to lookup user (telegram_id=%d): %w", profile.TelegramID, err)
	}

	if user == nil {
		count, err := s.users.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		role := models.UserRoleBartender
		if count == 0 {
			role = models.UserRoleAdmin
		}
		user = &models.User{
			TelegramID: profile.TelegramID,
			Username:   username,
			FirstName:  firstName,
			LastName:   lastName,
			PhotoURL:   profile.PhotoURL,
			Role:       role,
		}
		user, err = s.users.Create(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user (telegram_id=%d): %w", profile.TelegramID, err)
		}
		s.logger.Infof("Registered new user %s (telegram_id=%d, role=%s)",
			user.DisplayName(), profile.TelegramID, user.Role)
		return user, nil
	}

	needsUpdate := false
	if user.Username != username {
		user.Username = username
		needsUpdate = true
	}
	if user.FirstName != firstName {
		user.FirstName = firstName
		needsUpdate = true
	}
	if user.LastName != lastName {
		user.LastName = lastName
		needsUpdate = true
	}
	if profile.PhotoURL != "" && user.PhotoURL != profile.PhotoURL {
		user.PhotoURL = profile.PhotoURL
		needsUpdate = true
	}

	if needsUpdate {
		user, err = s.users.Update(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to update user %s: %w", user.ID, err)
		}
		s.logger.Infof("Updated user profile: %s (telegram_id=%d)", user.DisplayName(), profile.TelegramID)
	}

	return user, nil
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// Bartenders returns all users with the bartender role, ordered by name
func (s *Service) Bartenders(ctx context.Context) ([]*models.User, error) {
	role := models.UserRoleBartender
	return s.users.List(ctx, repository.UserFilters{Role: &role})
}

// UpdateDisplayName lets a user change their own display name
func (s *Service) UpdateDisplayName(ctx context.Context, userID, firstName, lastName string) (*models.User, error) {
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		return nil, fmt.Errorf("%w: first name is required", ErrValidation)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user.FirstName = firstName
	user.LastName = strings.TrimSpace(lastName)
	return s.users.Update(ctx, user)
}
