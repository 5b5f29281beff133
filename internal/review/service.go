// Package review implements the review lifecycle: creation, feedback,
// status aggregation and the notifications that follow a state change.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/joescharf/reviewbot/internal/apperrors"
	"github.com/joescharf/reviewbot/internal/deadline"
	"github.com/joescharf/reviewbot/internal/metrics"
	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/notify"
	"github.com/joescharf/reviewbot/internal/store"
)

// DefaultApprovalComment replaces approval comments that are missing or not text.
const DefaultApprovalComment = "Approved"

// Service orchestrates the review lifecycle. It holds no mutable state; the
// store is the only serialization point.
type Service struct {
	store    store.Store
	notifier notify.Notifier
	policy   deadline.Policy
	now      func() time.Time
	validate *validator.Validate
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDeadlinePolicy sets how default deadlines are computed.
func WithDeadlinePolicy(p deadline.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithLogger sets the logger used for swallowed notification failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithValidator shares a validator instance with other layers.
func WithValidator(v *validator.Validate) Option {
	return func(s *Service) { s.validate = v }
}

// NewService creates a lifecycle service over st that notifies through n.
func NewService(st store.Store, n notify.Notifier, opts ...Option) *Service {
	s := &Service{
		store:    st,
		notifier: n,
		policy:   deadline.Standard,
		now:      time.Now,
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s
}

// Policy returns the deadline policy in effect.
func (s *Service) Policy() deadline.Policy { return s.policy }

// CreateInput describes a new review. Identities must already be resolved.
type CreateInput struct {
	Title       string `validate:"required"`
	Description string
	Creator     models.Party
	Reviewers   []models.Party `validate:"min=1,dive"`
	Channel     models.Party
	Client      string
	URL         string `validate:"omitempty,url"`
	Deadline    *time.Time
	// DeadlineDateOnly moves Deadline to the end-of-workday hour.
	DeadlineDateOnly bool
	// Status is raw input; unknown values fall back to in_review.
	Status string
}

func (s *Service) validateInput(in *CreateInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.InvalidArgument("%s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return apperrors.InvalidArgument("%v", err)
	}
	seen := make(map[string]bool, len(in.Reviewers))
	for _, p := range in.Reviewers {
		if seen[p.ID] {
			return apperrors.InvalidArgument("reviewer %s listed twice", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// CreateReview validates and persists a new review. It sends no
// notifications; callers follow up with Announce.
func (s *Service) CreateReview(ctx context.Context, in CreateInput) (*models.Review, error) {
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	now := s.now()
	r := &models.Review{
		Title:       in.Title,
		Description: in.Description,
		Creator:     in.Creator,
		Reviewers:   in.Reviewers,
		Channel:     in.Channel,
		Client:      in.Client,
		URL:         in.URL,
		Status:      models.CoerceReviewStatus(in.Status),
		CreatedAt:   now,
		Deadline:    s.policy.Resolve(now, in.Deadline, in.DeadlineDateOnly),
	}
	if err := s.store.CreateReview(ctx, r); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("create review: %w", err))
	}

	metrics.ReviewsCreated.WithLabelValues(string(r.Status)).Inc()
	s.logger.Info().
		Str("review_id", r.ReviewID).
		Str("client", r.Client).
		Int("reviewers", len(r.Reviewers)).
		Msg("review created")
	return r, nil
}

// Announce tells reviewers and the origin channel about a new review.
// Failures are logged and never returned.
func (s *Service) Announce(ctx context.Context, r *models.Review) {
	s.runHooks(ctx, "announce", r.ReviewID,
		hook{"notify_reviewers", func(ctx context.Context) error {
			return s.notifier.NotifyReviewers(ctx, r, r.Creator.ID)
		}},
		hook{"notify_channel", func(ctx context.Context) error {
			return s.notifier.NotifyChannel(ctx, r.Channel.ID, r, r.Creator, notify.VariantNewReview)
		}},
	)
}

// GetReview returns a review by id or unique id prefix.
func (s *Service) GetReview(ctx context.Context, reviewID string) (*models.Review, error) {
	r, err := s.store.FindReview(ctx, reviewID)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("get review: %w", err))
	}
	return r, nil
}

// ListReviews returns reviews matching filter in status, newest-first order.
func (s *Service) ListReviews(ctx context.Context, filter store.ReviewListFilter) ([]*models.Review, error) {
	reviews, err := s.store.ListReviews(ctx, filter)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("list reviews: %w", err))
	}
	return reviews, nil
}

// RecordFeedback stores a reviewer's verdict and recomputes the review
// status from the full history. Reaching approved notifies the origin
// channel; a change request notifies the creator.
func (s *Service) RecordFeedback(ctx context.Context, reviewID string, reviewer models.Party, comment string, status models.FeedbackStatus) (*models.Review, error) {
	return s.recordFeedback(ctx, reviewID, reviewer, comment, status)
}

// Approve records an approving verdict. comment is stored only when it is
// non-blank text; anything else becomes DefaultApprovalComment. If the
// review is still not complete afterwards, the creator is told about the
// approval.
func (s *Service) Approve(ctx context.Context, reviewID string, approver models.Party, comment any) (*models.Review, error) {
	r, err := s.recordFeedback(ctx, reviewID, approver, approvalComment(comment), models.FeedbackApproved)
	if err != nil {
		return nil, err
	}
	if !r.Status.IsCompletion() && r.Creator.ID != approver.ID {
		s.runHooks(ctx, "approve", r.ReviewID, hook{"notify_creator", func(ctx context.Context) error {
			return s.notifier.NotifyUser(ctx, r.Creator.ID, r, approver, notify.VariantStatusUpdate)
		}})
	}
	return r, nil
}

func approvalComment(comment any) string {
	if text, ok := comment.(string); ok && strings.TrimSpace(text) != "" {
		return text
	}
	return DefaultApprovalComment
}

func (s *Service) recordFeedback(ctx context.Context, reviewID string, reviewer models.Party, comment string, status models.FeedbackStatus) (*models.Review, error) {
	if _, err := models.ParseFeedbackStatus(string(status)); err != nil {
		return nil, apperrors.InvalidArgument("%v", err)
	}

	fb := &models.Feedback{
		Reviewer:  reviewer,
		Comment:   comment,
		Status:    status,
		CreatedAt: s.now(),
	}
	if err := s.store.AddFeedback(ctx, reviewID, fb); err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("record feedback: %w", err))
	}
	metrics.FeedbackRecorded.WithLabelValues(string(status)).Inc()

	r, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("reload review: %w", err))
	}

	prev := r.Status
	next, changed := DeriveStatus(prev, r.ReviewerIDs(), r.Feedbacks)
	if changed {
		r, err = s.store.UpdateReviewStatus(ctx, reviewID, next, s.now(), next.IsCompletion() && !prev.IsCompletion())
		if err != nil {
			return nil, apperrors.Persistence(fmt.Errorf("update review status: %w", err))
		}
		metrics.StatusTransitions.WithLabelValues(string(prev), string(next), "auto").Inc()
		s.logger.Info().
			Str("review_id", reviewID).
			Str("from", string(prev)).
			Str("to", string(next)).
			Msg("review status derived from feedback")
	}

	var hooks []hook
	if changed && next == models.ReviewStatusApproved {
		hooks = append(hooks, s.completionHook(r, reviewer))
	}
	if status == models.FeedbackRequestedChanges && r.Creator.ID != reviewer.ID {
		hooks = append(hooks, hook{"notify_creator", func(ctx context.Context) error {
			return s.notifier.NotifyUser(ctx, r.Creator.ID, r, reviewer, notify.VariantFeedbackReceived)
		}})
	}
	s.runHooks(ctx, "record_feedback", reviewID, hooks...)

	return r, nil
}

// SetStatusManually moves a review to any status. Only the creator or an
// assigned reviewer may do so; unknown statuses are rejected. Entering
// approved or published from a non-completed status stamps completion and
// notifies the origin channel.
func (s *Service) SetStatusManually(ctx context.Context, reviewID, rawStatus string, actor models.Party) (*models.Review, error) {
	target, err := models.ParseReviewStatus(rawStatus)
	if err != nil {
		return nil, apperrors.InvalidArgument("%v", err)
	}

	r, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("get review: %w", err))
	}
	if actor.ID != r.Creator.ID && !r.HasReviewer(actor.ID) {
		return nil, fmt.Errorf("%s may not change the status of review %s: %w", actor.ID, reviewID, apperrors.ErrNotAuthorized)
	}

	prev := r.Status
	isNewCompletion := target.IsCompletion() && !prev.IsCompletion()
	r, err = s.store.UpdateReviewStatus(ctx, reviewID, target, s.now(), isNewCompletion)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("update review status: %w", err))
	}
	if prev != target {
		metrics.StatusTransitions.WithLabelValues(string(prev), string(target), "manual").Inc()
	}
	s.logger.Info().
		Str("review_id", reviewID).
		Str("from", string(prev)).
		Str("to", string(target)).
		Str("actor", actor.ID).
		Msg("review status set manually")

	if isNewCompletion {
		s.runHooks(ctx, "set_status", reviewID, s.completionHook(r, actor))
	}
	return r, nil
}

func (s *Service) completionHook(r *models.Review, actor models.Party) hook {
	return hook{"notify_channel_completion", func(ctx context.Context) error {
		return s.notifier.NotifyChannel(ctx, r.Channel.ID, r, actor, notify.VariantCompletion)
	}}
}
