package notify

import (
	"context"
	"errors"

	"github.com/joescharf/reviewbot/internal/models"
)

// Multi fans every notification out to several notifiers. One failing
// notifier does not stop the rest.
type Multi []Notifier

func (m Multi) NotifyChannel(ctx context.Context, channelID string, r *models.Review, actor models.Party, variant Variant) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyChannel(ctx, channelID, r, actor, variant))
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyUser(ctx context.Context, userID string, r *models.Review, actor models.Party, variant Variant) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyUser(ctx, userID, r, actor, variant))
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyReviewers(ctx context.Context, r *models.Review, excludeID string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifyReviewers(ctx, r, excludeID))
	}
	return errors.Join(errs...)
}
