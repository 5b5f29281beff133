package review

import "github.com/joescharf/reviewbot/internal/models"

// LatestByReviewer reduces a feedback history to each reviewer's most recent
// verdict. On equal timestamps the entry scanned later wins.
func LatestByReviewer(feedbacks []*models.Feedback) map[string]*models.Feedback {
	latest := make(map[string]*models.Feedback, len(feedbacks))
	for _, fb := range feedbacks {
		if prev, ok := latest[fb.Reviewer.ID]; ok && fb.CreatedAt.Before(prev.CreatedAt) {
			continue
		}
		latest[fb.Reviewer.ID] = fb
	}
	return latest
}

// DeriveStatus computes a review's status from its full feedback history.
//
// Unanimous approval moves in_review to approved. Any outstanding change
// request moves the review to in_review, including out of approved.
// Otherwise the current status stands. Only reviewers in reviewerIDs count,
// and an empty reviewer list never approves.
func DeriveStatus(current models.ReviewStatus, reviewerIDs []string, feedbacks []*models.Feedback) (models.ReviewStatus, bool) {
	latest := LatestByReviewer(feedbacks)

	allApproved := len(reviewerIDs) > 0
	anyChangeRequested := false
	for _, id := range reviewerIDs {
		fb, ok := latest[id]
		if !ok || fb.Status != models.FeedbackApproved {
			allApproved = false
		}
		if ok && fb.Status == models.FeedbackRequestedChanges {
			anyChangeRequested = true
		}
	}

	target := current
	switch {
	case allApproved && current == models.ReviewStatusInReview:
		target = models.ReviewStatusApproved
	case anyChangeRequested:
		target = models.ReviewStatusInReview
	}
	return target, target != current
}
