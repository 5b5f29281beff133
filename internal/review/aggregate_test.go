package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/reviewbot/internal/models"
)

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func fb(reviewer string, status models.FeedbackStatus, minutes int) *models.Feedback {
	return &models.Feedback{
		Reviewer:  models.Party{ID: reviewer},
		Status:    status,
		CreatedAt: t0.Add(time.Duration(minutes) * time.Minute),
	}
}

const (
	approved = models.FeedbackApproved
	changes  = models.FeedbackRequestedChanges
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name        string
		current     models.ReviewStatus
		reviewers   []string
		feedbacks   []*models.Feedback
		wantStatus  models.ReviewStatus
		wantChanged bool
	}{
		{
			name:       "no feedback keeps status",
			current:    models.ReviewStatusInReview,
			reviewers:  []string{"A", "B"},
			wantStatus: models.ReviewStatusInReview,
		},
		{
			name:       "partial approval stays in review",
			current:    models.ReviewStatusInReview,
			reviewers:  []string{"A", "B"},
			feedbacks:  []*models.Feedback{fb("A", approved, 1)},
			wantStatus: models.ReviewStatusInReview,
		},
		{
			name:        "unanimous approval from in review",
			current:     models.ReviewStatusInReview,
			reviewers:   []string{"A", "B"},
			feedbacks:   []*models.Feedback{fb("A", approved, 1), fb("B", approved, 2)},
			wantStatus:  models.ReviewStatusApproved,
			wantChanged: true,
		},
		{
			name:       "unanimous approval does not leave draft",
			current:    models.ReviewStatusDraft,
			reviewers:  []string{"A"},
			feedbacks:  []*models.Feedback{fb("A", approved, 1)},
			wantStatus: models.ReviewStatusDraft,
		},
		{
			name:       "unanimous approval never publishes",
			current:    models.ReviewStatusApproved,
			reviewers:  []string{"A"},
			feedbacks:  []*models.Feedback{fb("A", approved, 1)},
			wantStatus: models.ReviewStatusApproved,
		},
		{
			name:        "change request reopens approved",
			current:     models.ReviewStatusApproved,
			reviewers:   []string{"A", "B"},
			feedbacks:   []*models.Feedback{fb("A", approved, 1), fb("B", approved, 2), fb("B", changes, 3)},
			wantStatus:  models.ReviewStatusInReview,
			wantChanged: true,
		},
		{
			name:       "change request while in review is a no-op",
			current:    models.ReviewStatusInReview,
			reviewers:  []string{"A", "B"},
			feedbacks:  []*models.Feedback{fb("A", changes, 1)},
			wantStatus: models.ReviewStatusInReview,
		},
		{
			name:        "change request pulls design into review",
			current:     models.ReviewStatusDesign,
			reviewers:   []string{"A"},
			feedbacks:   []*models.Feedback{fb("A", changes, 1)},
			wantStatus:  models.ReviewStatusInReview,
			wantChanged: true,
		},
		{
			name:        "latest verdict wins",
			current:     models.ReviewStatusInReview,
			reviewers:   []string{"A", "B"},
			feedbacks:   []*models.Feedback{fb("A", changes, 1), fb("B", approved, 2), fb("A", approved, 3)},
			wantStatus:  models.ReviewStatusApproved,
			wantChanged: true,
		},
		{
			name:       "out of order history uses timestamps",
			current:    models.ReviewStatusInReview,
			reviewers:  []string{"A"},
			feedbacks:  []*models.Feedback{fb("A", changes, 5), fb("A", approved, 1)},
			wantStatus: models.ReviewStatusInReview,
		},
		{
			name:       "empty reviewer list never approves",
			current:    models.ReviewStatusInReview,
			wantStatus: models.ReviewStatusInReview,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := DeriveStatus(tt.current, tt.reviewers, tt.feedbacks)
			assert.Equal(t, tt.wantStatus, got)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestDeriveStatus_Idempotent(t *testing.T) {
	reviewers := []string{"A", "B"}
	history := []*models.Feedback{fb("A", approved, 1), fb("B", approved, 2)}

	first, changed := DeriveStatus(models.ReviewStatusInReview, reviewers, history)
	assert.True(t, changed)

	second, changed := DeriveStatus(first, reviewers, history)
	assert.False(t, changed)
	assert.Equal(t, first, second)
}

func TestLatestByReviewer_TieKeepsLaterScanned(t *testing.T) {
	a := fb("A", changes, 1)
	b := fb("A", approved, 1)

	latest := LatestByReviewer([]*models.Feedback{a, b})
	assert.Same(t, b, latest["A"])
}
