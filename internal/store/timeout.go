package store

import (
	"context"
	"time"

	"github.com/joescharf/reviewbot/internal/models"
)

// timeoutStore bounds every data call by a fixed duration on top of the
// caller's context.
type timeoutStore struct {
	Store
	d time.Duration
}

// WithTimeout wraps st so each round trip fails with context.DeadlineExceeded
// after d. Migrate and Close are passed through. A non-positive d returns st.
func WithTimeout(st Store, d time.Duration) Store {
	if d <= 0 {
		return st
	}
	return &timeoutStore{Store: st, d: d}
}

func (s *timeoutStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.d)
}

func (s *timeoutStore) CreateReview(ctx context.Context, r *models.Review) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.CreateReview(ctx, r)
}

func (s *timeoutStore) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.GetReview(ctx, reviewID)
}

func (s *timeoutStore) FindReview(ctx context.Context, ref string) (*models.Review, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.FindReview(ctx, ref)
}

func (s *timeoutStore) ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.Review, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.ListReviews(ctx, filter)
}

func (s *timeoutStore) AddFeedback(ctx context.Context, reviewID string, fb *models.Feedback) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.AddFeedback(ctx, reviewID, fb)
}

func (s *timeoutStore) UpdateReviewStatus(ctx context.Context, reviewID string, status models.ReviewStatus, at time.Time, markCompleted bool) (*models.Review, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.UpdateReviewStatus(ctx, reviewID, status, at, markCompleted)
}

func (s *timeoutStore) CreateTask(ctx context.Context, t *models.Task) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.CreateTask(ctx, t)
}

func (s *timeoutStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.GetTask(ctx, id)
}

func (s *timeoutStore) ListTasks(ctx context.Context, filter TaskListFilter) ([]*models.Task, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.ListTasks(ctx, filter)
}

func (s *timeoutStore) UpdateTask(ctx context.Context, t *models.Task) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.UpdateTask(ctx, t)
}

func (s *timeoutStore) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.DeleteTask(ctx, id)
}

func (s *timeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.Store.Ping(ctx)
}
