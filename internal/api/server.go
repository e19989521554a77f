// Package api exposes the category listing over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"zara/scraper/internal/client"
	"zara/scraper/internal/domain"
	"zara/scraper/internal/extractor"
	"zara/scraper/internal/metrics"
	"zara/scraper/internal/repository"
	"zara/scraper/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// CategoryService is the part of service.Service the handlers need.
type CategoryService interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	Subcategories(ctx context.Context, filter extractor.Filter) ([]domain.Subcategory, error)
	AllSubcategories(ctx context.Context) ([]domain.Subcategory, error)
	RawJSON(ctx context.Context) (*domain.RawDocument, error)
	EnqueueRefresh(ctx context.Context, reason string) (string, error)
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
}

type Server struct {
	router  chi.Router
	service CategoryService
}

// NewServer constructs a Server with middleware and routes. Requests running
// longer than timeout are cancelled.
func NewServer(svc CategoryService, m *metrics.Metrics, timeout time.Duration) *Server {
	s := &Server{service: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/zara", func(r chi.Router) {
		r.Get("/categories", s.getCategories)
		r.Get("/subcategories", s.getSubcategories)
		r.Get("/all-subcategories", s.getAllSubcategories)
		r.Get("/raw-json", s.getRawJSON)
		r.Post("/refresh", s.postRefresh)
		r.Get("/snapshots/latest", s.getLatestSnapshot)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) getSubcategories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := extractor.Filter{CategoryName: query.Get("categoryName")}

	if raw := query.Get("categoryId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "categoryId must be an integer")
			return
		}
		filter.CategoryID = &id
	}

	subcategories, err := s.service.Subcategories(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subcategories)
}

func (s *Server) getAllSubcategories(w http.ResponseWriter, r *http.Request) {
	subcategories, err := s.service.AllSubcategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subcategories)
}

func (s *Server) getRawJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.RawJSON(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) postRefresh(w http.ResponseWriter, r *http.Request) {
	msgID, err := s.service.EnqueueRefresh(r.Context(), "api")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"messageId": msgID})
}

func (s *Server) getLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.LatestSnapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// statusFor maps service errors to response codes.
func statusFor(err error) int {
	var statusErr *client.StatusError
	switch {
	case errors.As(err, &statusErr):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSnapshotsDisabled), errors.Is(err, service.ErrQueueDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	// The timeout middleware answers 504 itself once the request deadline passed.
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		log.WithField("request_id", middleware.GetReqID(r.Context())).Warnf("⏱️ %s %s timed out: %v", r.Method, r.URL.Path, err)
		return
	}

	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithField("request_id", middleware.GetReqID(r.Context())).Errorf("❌ %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
