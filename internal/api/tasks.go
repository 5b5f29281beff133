package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joescharf/reviewbot/internal/apperrors"
	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/store"
	"github.com/joescharf/reviewbot/internal/task"
)

type createTaskRequest struct {
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Client      string        `json:"client"`
	ChannelID   string        `json:"channel_id"`
	Creator     models.Party  `json:"creator"`
	Assignee    *models.Party `json:"assignee,omitempty"`
	Deadline    string        `json:"deadline"`
	Priority    string        `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TaskListFilter{
		Client:     q.Get("client"),
		ChannelID:  q.Get("channel_id"),
		AssigneeID: q.Get("assignee_id"),
	}
	switch status := models.TaskStatus(q.Get("status")); status {
	case "", models.TaskStatusOpen, models.TaskStatusDone:
		filter.Status = status
	default:
		s.writeAppError(w, r, apperrors.InvalidArgument("invalid task status %q", status))
		return
	}

	tasks, err := s.tasks.List(r.Context(), filter)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := s.decode(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	in := task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Client:      req.Client,
		ChannelID:   req.ChannelID,
		Creator:     req.Creator,
		Priority:    models.TaskPriority(req.Priority),
	}
	if req.Assignee != nil {
		in.Assignee = *req.Assignee
	}
	if strings.TrimSpace(req.Deadline) != "" {
		due, err := s.reviews.Policy().Parse(req.Deadline)
		if err != nil {
			s.writeAppError(w, r, apperrors.InvalidArgument("%v", err))
			return
		}
		in.Deadline = &due
	}

	t, err := s.tasks.Create(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.tasks.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
