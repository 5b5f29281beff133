package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joescharf/reviewbot/internal/apperrors"
	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/review"
	"github.com/joescharf/reviewbot/internal/store"
)

type createReviewRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Creator     models.Party   `json:"creator"`
	Reviewers   []models.Party `json:"reviewers"`
	Channel     models.Party   `json:"channel"`
	Client      string         `json:"client"`
	URL         string         `json:"url"`
	// Deadline is "YYYY-MM-DD", "YYYY-MM-DD HH:MM" or RFC 3339.
	Deadline string `json:"deadline"`
	Status   string `json:"status"`
}

type feedbackRequest struct {
	Reviewer models.Party `json:"reviewer"`
	Comment  string       `json:"comment"`
	Status   string       `json:"status" validate:"required,oneof=approved requested_changes"`
}

type approveRequest struct {
	Approver models.Party `json:"approver"`
	// Comment may be any JSON value; only non-blank strings are kept.
	Comment json.RawMessage `json:"comment"`
}

type statusRequest struct {
	Status string       `json:"status" validate:"required"`
	Actor  models.Party `json:"actor"`
}

// createReview persists a review and then announces it.
func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := s.decode(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	in := review.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Creator:     req.Creator,
		Reviewers:   req.Reviewers,
		Channel:     req.Channel,
		Client:      req.Client,
		URL:         req.URL,
		Status:      req.Status,
	}
	if strings.TrimSpace(req.Deadline) != "" {
		due, err := s.reviews.Policy().Parse(req.Deadline)
		if err != nil {
			s.writeAppError(w, r, apperrors.InvalidArgument("%v", err))
			return
		}
		in.Deadline = &due
	}

	created, err := s.reviews.CreateReview(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.reviews.Announce(r.Context(), created)
	writeJSON(w, http.StatusCreated, created)
}

// listReviews supports client, channel_id, creator_id, reviewer_id, status
// and since (RFC 3339 timestamp or a duration such as 72h).
func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReviewListFilter{
		Client:     q.Get("client"),
		ChannelID:  q.Get("channel_id"),
		CreatorID:  q.Get("creator_id"),
		ReviewerID: q.Get("reviewer_id"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseReviewStatus(raw)
		if err != nil {
			s.writeAppError(w, r, apperrors.InvalidArgument("%v", err))
			return
		}
		filter.Status = status
	}
	if raw := q.Get("since"); raw != "" {
		since, err := parseSince(raw, time.Now())
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		filter.ActiveSince = &since
	}

	reviews, err := s.reviews.ListReviews(r.Context(), filter)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func parseSince(raw string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, apperrors.InvalidArgument("since must be an RFC 3339 time or a positive duration, got %q", raw)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	rev, err := s.reviews.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// resolveReviewID expands the {id} URL parameter, which may be any unique
// prefix, to the full review id.
func (s *Server) resolveReviewID(r *http.Request) (string, error) {
	rev, err := s.reviews.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return "", err
	}
	return rev.ReviewID, nil
}

func (s *Server) recordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := s.decode(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	id, err := s.resolveReviewID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rev, err := s.reviews.RecordFeedback(r.Context(), id, req.Reviewer, req.Comment, models.FeedbackStatus(req.Status))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) approveReview(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := s.decode(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	var comment any
	if len(req.Comment) > 0 {
		_ = json.Unmarshal(req.Comment, &comment)
	}
	id, err := s.resolveReviewID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rev, err := s.reviews.Approve(r.Context(), id, req.Approver, comment)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) setReviewStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := s.decode(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	id, err := s.resolveReviewID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	rev, err := s.reviews.SetStatusManually(r.Context(), id, req.Status, req.Actor)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}
