package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/aleks10sadu-ops/k-c-bar/internal/files"
	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/notify"
	"github.com/aleks10sadu-ops/k-c-bar/internal/service"
)

// Server provides the HTTP API consumed by the Mini App frontend.
type Server struct {
	svc     *service.Service
	sync    *notify.Synchronizer
	storage *files.Storage
	logger  *logrus.Logger
	mux     *http.ServeMux

	botToken string
	demoMode bool
	demoUser *models.User
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, sync *notify.Synchronizer, storage *files.Storage,
	botToken string, logger *logrus.Logger,
) *Server {
	s := &Server{
		svc:      svc,
		sync:     sync,
		storage:  storage,
		logger:   logger,
		mux:      http.NewServeMux(),
		botToken: botToken,
	}
	s.routes()
	return s
}

// EnableDemoMode makes every request run as the given user, bypassing
// init-data validation. Only wired up when DEMO_MODE is set.
func (s *Server) EnableDemoMode(user *models.User) {
	s.demoMode = true
	s.demoUser = user
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Session bootstrap
	s.mux.HandleFunc("POST /api/auth/telegram", s.handleAuth)

	// Tasks
	s.mux.HandleFunc("GET /api/tasks", s.withUser(s.handleGetTasks))
	s.mux.HandleFunc("GET /api/tasks/overdue", s.withUser(s.handleGetOverdueTasks))
	s.mux.HandleFunc("POST /api/tasks", s.withUser(s.handleCreateTask))
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.withUser(s.handleUpdateTask))
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.withUser(s.handleDeleteTask))
	s.mux.HandleFunc("POST /api/tasks/{id}/start", s.withUser(s.handleStartTask))
	s.mux.HandleFunc("POST /api/tasks/{id}/complete", s.withUser(s.handleCompleteTask))
	s.mux.HandleFunc("POST /api/tasks/{id}/undo", s.withUser(s.handleUndoTask))

	// Stats and team
	s.mux.HandleFunc("GET /api/stats", s.withUser(s.handleGetStats))
	s.mux.HandleFunc("GET /api/bartenders", s.withUser(s.handleGetBartenders))
	s.mux.HandleFunc("PATCH /api/profile", s.withUser(s.handleUpdateProfile))

	// Templates
	s.mux.HandleFunc("GET /api/templates", s.withUser(s.handleGetTemplates))
	s.mux.HandleFunc("POST /api/templates", s.withUser(s.handleCreateTemplate))
	s.mux.HandleFunc("GET /api/templates/{id}/items", s.withUser(s.handleGetTemplateItems))
	s.mux.HandleFunc("DELETE /api/templates/{id}", s.withUser(s.handleDeleteTemplate))
	s.mux.HandleFunc("POST /api/templates/{id}/apply", s.withUser(s.handleApplyTemplate))

	// Notifications
	s.mux.HandleFunc("GET /api/notifications", s.withUser(s.handleGetNotifications))
	s.mux.HandleFunc("POST /api/notifications/{id}/read", s.withUser(s.handleMarkRead))
	s.mux.HandleFunc("POST /api/notifications/read-all", s.withUser(s.handleMarkAllRead))
	s.mux.HandleFunc("DELETE /api/notifications", s.withUser(s.handleClearNotifications))
	s.mux.HandleFunc("POST /api/notifications/open", s.withUser(s.handleOpenFromNotification))
	s.mux.HandleFunc("GET /api/notifications/pending", s.withUser(s.handlePendingTask))
	s.mux.HandleFunc("DELETE /api/notifications/pending", s.withUser(s.handleClearPendingTask))

	// Uploads
	s.mux.HandleFunc("POST /api/uploads", s.withUser(s.handleUpload))
	s.mux.Handle("GET /uploads/", s.storage.Handler())

	// Observability
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service sentinel errors onto HTTP statuses
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotPermitted):
		s.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEvidenceRequired),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrValidation):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.WithError(err).Error("request failed")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}
