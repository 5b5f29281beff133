// Package api exposes reviews and tasks over a JSON HTTP interface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/joescharf/reviewbot/internal/apperrors"
	"github.com/joescharf/reviewbot/internal/metrics"
	"github.com/joescharf/reviewbot/internal/review"
	"github.com/joescharf/reviewbot/internal/store"
	"github.com/joescharf/reviewbot/internal/task"
)

const maxBodyBytes = 1 << 20

// Server provides the REST API handlers.
type Server struct {
	store    store.Store
	reviews  *review.Service
	tasks    *task.Service
	validate *validator.Validate
	logger   zerolog.Logger
	started  time.Time
}

// NewServer creates a new API server. The store is used only for health checks.
func NewServer(st store.Store, reviews *review.Service, tasks *task.Service) *Server {
	return &Server{
		store:    st,
		reviews:  reviews,
		tasks:    tasks,
		validate: validator.New(),
		logger:   log.Logger,
		started:  time.Now(),
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", s.listReviews)
			r.Post("/", s.createReview)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getReview)
				r.Post("/feedback", s.recordFeedback)
				r.Post("/approve", s.approveReview)
				r.Put("/status", s.setReviewStatus)
			})
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasks)
			r.Post("/", s.createTask)
			r.Post("/{id}/done", s.completeTask)
			r.Delete("/{id}", s.deleteTask)
		})
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string         `json:"error"`
	Kind  apperrors.Kind `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, kind apperrors.Kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

// writeAppError maps an operation error onto an HTTP status.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindNotAuthorized:
		status = http.StatusForbidden
	case apperrors.KindInvalidArgument:
		status = http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("request timed out")
		writeError(w, http.StatusGatewayTimeout, kind, "database timed out")
		return
	}
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, kind, "internal error")
		return
	}
	writeError(w, status, kind, err.Error())
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidArgument("request body is empty")
		}
		return apperrors.InvalidArgument("invalid JSON: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return apperrors.InvalidArgument("invalid fields: %s", strings.Join(fields, ", "))
		}
		return apperrors.InvalidArgument("%v", err)
	}
	return nil
}
