package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/joescharf/reviewbot/internal/models"
)

// Log is a Notifier that only writes notifications to a zerolog logger.
// It is the fallback when no chat webhook is configured.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a logging notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

func (l *Log) NotifyChannel(_ context.Context, channelID string, r *models.Review, actor models.Party, variant Variant) error {
	l.logger.Info().
		Str("channel_id", channelID).
		Str("review_id", r.ReviewID).
		Str("actor", actor.ID).
		Str("variant", string(variant)).
		Msg(Text(r, actor, variant))
	return nil
}

func (l *Log) NotifyUser(_ context.Context, userID string, r *models.Review, actor models.Party, variant Variant) error {
	l.logger.Info().
		Str("user_id", userID).
		Str("review_id", r.ReviewID).
		Str("variant", string(variant)).
		Msg(Text(r, actor, variant))
	return nil
}

func (l *Log) NotifyReviewers(_ context.Context, r *models.Review, excludeID string) error {
	for _, p := range r.Reviewers {
		if p.ID == excludeID {
			continue
		}
		l.logger.Info().
			Str("user_id", p.ID).
			Str("review_id", r.ReviewID).
			Msg(Text(r, r.Creator, VariantReviewRequest))
	}
	return nil
}
