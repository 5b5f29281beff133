// Package notify delivers review notifications to people and channels.
//
// Delivery is best effort: implementations return an error on failure and
// the caller decides whether to log it. Nothing here retries.
package notify

import (
	"context"
	"fmt"

	"github.com/joescharf/reviewbot/internal/models"
)

// Variant tells a user why they are being notified.
type Variant string

const (
	VariantStatusUpdate     Variant = "status-update"
	VariantCompletion       Variant = "completion"
	VariantFeedbackReceived Variant = "feedback-received"

	// VariantReviewRequest asks a reviewer to look at a new review.
	VariantReviewRequest Variant = "review-request"
	// VariantNewReview announces a new review in its origin channel.
	VariantNewReview Variant = "new-review"
)

// Notifier is the dispatcher boundary the review lifecycle talks to.
type Notifier interface {
	NotifyChannel(ctx context.Context, channelID string, r *models.Review, actor models.Party, variant Variant) error
	NotifyUser(ctx context.Context, userID string, r *models.Review, actor models.Party, variant Variant) error
	// NotifyReviewers messages every reviewer except excludeID (empty excludes nobody).
	NotifyReviewers(ctx context.Context, r *models.Review, excludeID string) error
}

// Text renders a short plain-text summary for a notification.
func Text(r *models.Review, actor models.Party, variant Variant) string {
	who := actor.Name
	if who == "" {
		who = actor.ID
	}
	switch variant {
	case VariantCompletion:
		return fmt.Sprintf("Review %q is %s (last action by %s).", r.Title, r.Status, who)
	case VariantFeedbackReceived:
		return fmt.Sprintf("%s left feedback on %q.", who, r.Title)
	case VariantNewReview:
		return fmt.Sprintf("%s requested a review of %q from %d reviewer(s), due %s.", who, r.Title, len(r.Reviewers), r.Deadline.Local().Format("Mon Jan 2 15:04"))
	case VariantStatusUpdate:
		return fmt.Sprintf("%s updated %q, status is now %s.", who, r.Title, r.Status)
	}
	return fmt.Sprintf("%s asked for your review of %q (due %s).", who, r.Title, r.Deadline.Local().Format("Mon Jan 2 15:04"))
}
