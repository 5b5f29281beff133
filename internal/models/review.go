package models

import (
	"fmt"
	"strings"
	"time"
)

// ReviewStatus is the workflow stage of a review.
type ReviewStatus string

const (
	ReviewStatusDraft     ReviewStatus = "draft"
	ReviewStatusDesign    ReviewStatus = "design"
	ReviewStatusInReview  ReviewStatus = "in_review"
	ReviewStatusApproved  ReviewStatus = "approved"
	ReviewStatusPublished ReviewStatus = "published"
)

// ReviewStatuses lists every status in workflow order.
var ReviewStatuses = []ReviewStatus{
	ReviewStatusDraft,
	ReviewStatusDesign,
	ReviewStatusInReview,
	ReviewStatusApproved,
	ReviewStatusPublished,
}

// Valid reports whether s is one of the five known stages.
func (s ReviewStatus) Valid() bool {
	for _, known := range ReviewStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsCompletion reports whether s counts as a completed review.
func (s ReviewStatus) IsCompletion() bool {
	return s == ReviewStatusApproved || s == ReviewStatusPublished
}

// ParseReviewStatus validates raw input strictly.
func ParseReviewStatus(raw string) (ReviewStatus, error) {
	s := ReviewStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown review status %q", raw)
	}
	return s, nil
}

// CoerceReviewStatus validates raw input, falling back to in_review.
func CoerceReviewStatus(raw string) ReviewStatus {
	s, err := ParseReviewStatus(raw)
	if err != nil {
		return ReviewStatusInReview
	}
	return s
}

// FeedbackStatus is a single reviewer's verdict.
type FeedbackStatus string

const (
	FeedbackApproved         FeedbackStatus = "approved"
	FeedbackRequestedChanges FeedbackStatus = "requested_changes"
)

// ParseFeedbackStatus validates a raw verdict.
func ParseFeedbackStatus(raw string) (FeedbackStatus, error) {
	switch s := FeedbackStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case FeedbackApproved, FeedbackRequestedChanges:
		return s, nil
	}
	return "", fmt.Errorf("unknown feedback status %q", raw)
}

// Party is a chat identity with the display name captured when it was recorded.
type Party struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// Review is a request for one or more reviewers to approve client content.
type Review struct {
	ID          string       `json:"-"` // internal storage key
	ReviewID    string       `json:"review_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Creator     Party        `json:"creator"`
	Reviewers   []Party      `json:"reviewers"`
	Channel     Party        `json:"channel"`
	Client      string       `json:"client"`
	URL         string       `json:"url,omitempty"`
	Status      ReviewStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Deadline    time.Time    `json:"deadline"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Feedbacks   []*Feedback  `json:"feedbacks"`
}

// ReviewerIDs returns the reviewer identities in assignment order.
func (r *Review) ReviewerIDs() []string {
	ids := make([]string, len(r.Reviewers))
	for i, p := range r.Reviewers {
		ids[i] = p.ID
	}
	return ids
}

// HasReviewer reports whether id is an assigned reviewer.
func (r *Review) HasReviewer(id string) bool {
	for _, p := range r.Reviewers {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Feedback is one reviewer's dated verdict on a review.
type Feedback struct {
	ID        string         `json:"id"`
	Reviewer  Party          `json:"reviewer"`
	Comment   string         `json:"comment"`
	Status    FeedbackStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
