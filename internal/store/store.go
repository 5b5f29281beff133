package store

import (
	"context"
	"time"

	"github.com/joescharf/reviewbot/internal/models"
)

// ReviewListFilter specifies filters for listing reviews. Zero values are ignored.
type ReviewListFilter struct {
	Client     string
	ChannelID  string
	CreatorID  string
	ReviewerID string
	Status     models.ReviewStatus
	// ActiveSince matches reviews created or completed at/after the instant,
	// or with any feedback recorded at/after it.
	ActiveSince *time.Time
}

// TaskListFilter specifies filters for listing tasks.
type TaskListFilter struct {
	Client     string
	ChannelID  string
	AssigneeID string
	Status     models.TaskStatus
}

// Store defines the persistence interface for reviewbot.
type Store interface {
	// Reviews
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, reviewID string) (*models.Review, error)
	FindReview(ctx context.Context, ref string) (*models.Review, error)
	ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.Review, error)
	AddFeedback(ctx context.Context, reviewID string, fb *models.Feedback) error
	UpdateReviewStatus(ctx context.Context, reviewID string, status models.ReviewStatus, at time.Time, markCompleted bool) (*models.Review, error)

	// Tasks
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter TaskListFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
