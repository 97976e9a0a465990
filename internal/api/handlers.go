package api

import (
	"net/http"
	"time"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/service"
	"github.com/aleks10sadu-ops/k-c-bar/internal/telegram"
)

const maxUploadSize = 20 << 20 // 20 MiB

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if s.demoMode {
		s.respondJSON(w, http.StatusOK, s.demoUser)
		return
	}

	var req struct {
		InitData string `json:"init_data"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	data, err := telegram.ValidateInitData(req.InitData, s.botToken, s.svc.Now())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	user, err := s.svc.EnsureUser(r.Context(), service.TelegramProfile{
		TelegramID: data.TelegramID,
		Username:   data.Username,
		FirstName:  data.FirstName,
		LastName:   data.LastName,
		PhotoURL:   data.PhotoURL,
	})
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, user)
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func (s *Server) handleGetTasks(w http.ResponseWriter, r *http.Request, user *models.User) {
	var tasks []*models.Task

	switch {
	case r.URL.Query().Get("date") != "":
		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		tasks = s.svc.TasksForDate(date)
	case user.IsAdmin() && r.URL.Query().Get("user_id") != "":
		tasks = s.svc.TasksForUser(r.URL.Query().Get("user_id"))
	case user.IsAdmin():
		tasks = s.svc.Tasks()
	default:
		tasks = s.svc.TasksForUser(user.ID)
	}

	if !user.IsAdmin() {
		tasks = filterAssigned(tasks, user.ID)
	}
	s.respondJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetOverdueTasks(w http.ResponseWriter, r *http.Request, user *models.User) {
	tasks := s.svc.OverdueTasks()
	if !user.IsAdmin() {
		tasks = filterAssigned(tasks, user.ID)
	}
	s.respondJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !user.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins can create tasks")
		return
	}
	var input service.NewTask
	if ok, msg := s.decodeJSON(r, &input); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	task, err := s.svc.CreateTask(r.Context(), user, input)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !user.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins can edit tasks")
		return
	}
	var patch service.TaskPatch
	if ok, msg := s.decodeJSON(r, &patch); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	task, err := s.svc.UpdateTask(r.Context(), user, r.PathValue("id"), patch)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !user.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins can delete tasks")
		return
	}
	if err := s.svc.DeleteTask(r.Context(), user, r.PathValue("id")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !s.canAct(user, r.PathValue("id")) {
		s.respondError(w, http.StatusForbidden, "task is assigned to someone else")
		return
	}
	task, err := s.svc.StartProgress(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !s.canAct(user, r.PathValue("id")) {
		s.respondError(w, http.StatusForbidden, "task is assigned to someone else")
		return
	}
	var evidence service.Evidence
	if ok, msg := s.decodeJSON(r, &evidence); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	task, err := s.svc.Complete(r.Context(), user, r.PathValue("id"), evidence)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleUndoTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	task, err := s.svc.UndoComplete(r.Context(), user, r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

// canAct reports whether the user may start or complete the task: admins
// always, bartenders only on their own assignments. Unknown ids pass through
// so the service can answer with not found.
func (s *Server) canAct(user *models.User, taskID string) bool {
	if user.IsAdmin() {
		return true
	}
	task, ok := s.svc.Task(taskID)
	if !ok {
		return true
	}
	return task.AssignedTo == user.ID
}

func filterAssigned(tasks []*models.Task, userID string) []*models.Task {
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.AssignedTo == userID {
			out = append(out, t)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Stats and team
// ---------------------------------------------------------------------------

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request, user *models.User) {
	userID := user.ID
	if user.IsAdmin() {
		userID = r.URL.Query().Get("user_id")
	}
	s.respondJSON(w, http.StatusOK, s.svc.Stats(userID))
}

func (s *Server) handleGetBartenders(w http.ResponseWriter, r *http.Request, user *models.User) {
	bartenders, err := s.svc.Bartenders(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, bartenders)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	updated, err := s.svc.UpdateDisplayName(r.Context(), user.ID, req.FirstName, req.LastName)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

// ---------------------------------------------------------------------------
// Templates
// ---------------------------------------------------------------------------

func (s *Server) handleGetTemplates(w http.ResponseWriter, r *http.Request, user *models.User) {
	templates, err := s.svc.ListTemplates(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !user.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins can create templates")
		return
	}
	var input service.NewTemplate
	if ok, msg := s.decodeJSON(r, &input); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	tpl, err := s.svc.CreateTemplate(r.Context(), user, input)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleGetTemplateItems(w http.ResponseWriter, r *http.Request, user *models.User) {
	items, err := s.svc.TemplateItems(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !user.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins can delete templates")
		return
	}
	if err := s.svc.DeleteTemplate(r.Context(), r.PathValue("id")); err != nil {
		s.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request, user *models.User) {
	if !user.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins can apply templates")
		return
	}
	var req struct {
		AssigneeIDs  []string             `json:"assignee_ids"`
		DueOverrides map[string]time.Time `json:"due_overrides"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	tasks, err := s.svc.ExpandTemplate(r.Context(), user, r.PathValue("id"), req.AssigneeIDs, req.DueOverrides)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, tasks)
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request, user *models.User) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"notifications": s.sync.Feed(r.Context(), user.ID),
		"unread_count":  s.sync.UnreadCount(r.Context(), user.ID),
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, user *models.User) {
	s.sync.MarkAsRead(r.Context(), user.ID, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request, user *models.User) {
	s.sync.MarkAllAsRead(r.Context(), user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request, user *models.User) {
	s.sync.ClearAll(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenFromNotification(w http.ResponseWriter, r *http.Request, user *models.User) {
	var req struct {
		TaskID string `json:"task_id"`
	}
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.TaskID == "" {
		s.respondError(w, http.StatusBadRequest, "task_id is required")
		return
	}
	s.sync.OpenTaskFromNotification(user.ID, req.TaskID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePendingTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	taskID, ok := s.sync.PendingTask(user.ID)
	if !ok {
		s.respondJSON(w, http.StatusOK, map[string]any{"task_id": nil})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"task_id": taskID})
}

func (s *Server) handleClearPendingTask(w http.ResponseWriter, r *http.Request, user *models.User) {
	s.sync.ClearPendingTask(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Uploads
// ---------------------------------------------------------------------------

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, user *models.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	url, err := s.storage.Save(file, header.Filename)
	if err != nil {
		s.logger.WithError(err).Error("failed to store upload")
		s.respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}
