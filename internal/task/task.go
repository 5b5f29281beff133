// Package task tracks client work items next to reviews.
package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/joescharf/reviewbot/internal/apperrors"
	"github.com/joescharf/reviewbot/internal/deadline"
	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/store"
)

// DerivePriority ranks a task by how close its deadline is to now.
func DerivePriority(due, now time.Time) models.TaskPriority {
	left := due.Sub(now)
	switch {
	case left <= 24*time.Hour:
		return models.TaskPriorityHigh
	case left <= 3*24*time.Hour:
		return models.TaskPriorityMedium
	default:
		return models.TaskPriorityLow
	}
}

// Service wraps task persistence with deadline and priority rules.
type Service struct {
	store  store.Store
	policy deadline.Policy
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a task service. A nil clock means time.Now.
func NewService(st store.Store, policy deadline.Policy, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, policy: policy, now: now, logger: log.Logger}
}

// CreateInput describes a new task.
type CreateInput struct {
	Title       string
	Description string
	Client      string
	ChannelID   string
	Creator     models.Party
	Assignee    models.Party
	Deadline    *time.Time
	// DeadlineDateOnly moves Deadline to the end-of-workday hour.
	DeadlineDateOnly bool
	// Priority is derived from the deadline when empty.
	Priority models.TaskPriority
}

// Create validates and stores a new open task.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperrors.InvalidArgument("task title is required")
	}
	if in.Assignee.ID == "" {
		in.Assignee = in.Creator
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, apperrors.InvalidArgument("invalid priority %q (want low, medium or high)", in.Priority)
	}

	now := s.now()
	t := &models.Task{
		Title:       in.Title,
		Description: in.Description,
		Client:      in.Client,
		ChannelID:   in.ChannelID,
		Creator:     in.Creator,
		Assignee:    in.Assignee,
		Status:      models.TaskStatusOpen,
		Priority:    in.Priority,
		CreatedAt:   now,
		Deadline:    s.policy.Resolve(now, in.Deadline, in.DeadlineDateOnly),
	}
	if t.Priority == "" {
		t.Priority = DerivePriority(t.Deadline, now)
	}

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("create task: %w", err))
	}
	s.logger.Info().Str("task_id", t.ID).Str("priority", string(t.Priority)).Msg("task created")
	return t, nil
}

// List returns tasks matching filter, open first and then by deadline.
func (s *Service) List(ctx context.Context, filter store.TaskListFilter) ([]*models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("list tasks: %w", err))
	}
	return tasks, nil
}

// Get returns a task by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("get task: %w", err))
	}
	return t, nil
}

// Complete marks a task done. Completing a done task is a no-op.
func (s *Service) Complete(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TaskStatusDone {
		return t, nil
	}

	now := s.now()
	t.Status = models.TaskStatusDone
	t.CompletedAt = &now
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("complete task: %w", err))
	}
	s.logger.Info().Str("task_id", t.ID).Msg("task completed")
	return t, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return apperrors.Persistence(fmt.Errorf("delete task: %w", err))
	}
	return nil
}
