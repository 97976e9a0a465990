package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
)

// NewTemplate carries input for template creation
type NewTemplate struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Items       []NewTemplateItem `json:"items"`
}

// NewTemplateItem is one blueprint row of a new template
type NewTemplateItem struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TaskType    models.TaskType `json:"task_type"`
	Steps       []string        `json:"steps"`
	DueDate     *time.Time      `json:"due_date"`
}

// CreateTemplate stores a reusable task blueprint
func (s *Service) CreateTemplate(ctx context.Context, actor *models.User, input NewTemplate) (*models.TaskTemplate, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: template name is required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: a template needs at least one item", ErrValidation)
	}

	tpl := &models.TaskTemplate{
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   actor.ID,
	}
	items := make([]*models.TaskTemplateItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Title == "" {
			return nil, fmt.Errorf("%w: template item title is required", ErrValidation)
		}
		items = append(items, &models.TaskTemplateItem{
			Title:       in.Title,
			Description: in.Description,
			TaskType:    in.TaskType,
			Steps:       in.Steps,
			DueDate:     in.DueDate,
		})
	}

	created, err := s.templates.Create(ctx, tpl, items)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Template %q created with %d items", created.Name, len(items))
	return created, nil
}

// ListTemplates returns all templates
func (s *Service) ListTemplates(ctx context.Context) ([]*models.TaskTemplate, error) {
	return s.templates.List(ctx)
}

// TemplateItems returns the ordered items of a template
func (s *Service) TemplateItems(ctx context.Context, templateID string) ([]*models.TaskTemplateItem, error) {
	items, err := s.templates.GetItems(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return items, nil
}

// DeleteTemplate removes a template and its items
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ExpandTemplate creates one task per (item, assignee) pair: every assignee
// gets every item, in item order then assignee order. The due date for each
// item can be overridden per item id; otherwise the item's own default
// applies. Created tasks carry no reference back to the template.
func (s *Service) ExpandTemplate(ctx context.Context, actor *models.User, templateID string, assigneeIDs []string, dueOverrides map[string]time.Time) ([]*models.Task, error) {
	if len(assigneeIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one assignee is required", ErrValidation)
	}
	if _, err := s.templates.GetByID(ctx, templateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := s.templates.GetItems(ctx, templateID)
	if err != nil {
		return nil, err
	}

	created := make([]*models.Task, 0, len(items)*len(assigneeIDs))
	for _, item := range items {
		dueDate := item.DueDate
		if override, ok := dueOverrides[item.ID]; ok {
			d := override
			dueDate = &d
		}
		for _, assigneeID := range assigneeIDs {
			task, err := s.CreateTask(ctx, actor, NewTask{
				Title:       item.Title,
				Description: item.Description,
				ActionType:  models.ActionTask,
				TaskType:    item.TaskType,
				DueDate:     dueDate,
				AssignedTo:  assigneeID,
				Steps:       item.Steps,
			})
			if err != nil {
				return created, fmt.Errorf("failed to expand template item %q for %s: %w", item.Title, assigneeID, err)
			}
			created = append(created, task)
		}
	}

	s.logger.Infof("Template %s expanded into %d tasks (%d items x %d assignees)",
		templateID, len(created), len(items), len(assigneeIDs))
	return created, nil
}
