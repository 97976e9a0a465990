package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/aleks10sadu-ops/k-c-bar/internal/files"
	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/notify"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository/memory"
	"github.com/aleks10sadu-ops/k-c-bar/internal/service"
	"github.com/aleks10sadu-ops/k-c-bar/internal/taskstore"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

type fixture struct {
	adminSrv *Server
	barbSrv  *Server
	admin    *models.User
	barb     *models.User
	svc      *service.Service
}

// newFixture wires the full stack against the in-memory store and returns two
// servers: one running as the admin, one as a bartender
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := memory.New()

	admin, err := mem.CreateUser(ctx, &models.User{
		TelegramID: 1, Username: "boss", FirstName: "Olga", Role: models.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	barb, err := mem.CreateUser(ctx, &models.User{
		TelegramID: 2, Username: "barb", FirstName: "Ivan", Role: models.UserRoleBartender,
	})
	if err != nil {
		t.Fatalf("create bartender: %v", err)
	}

	store := taskstore.New(mem.Tasks(), mem, taskstore.Viewer{Admin: true}, testLogger())
	if err := store.Start(ctx); err != nil {
		t.Fatalf("start store: %v", err)
	}
	t.Cleanup(store.Close)

	svc := service.New(testLogger(), store, mem.Users(), mem.Templates(), true)
	sync := notify.New(testLogger(), mem.Users(), mem.Notifications(), nil)

	storage, err := files.NewStorage(t.TempDir(), "http://localhost:8080", testLogger())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	adminSrv := NewServer(svc, sync, storage, "test-token", testLogger())
	adminSrv.EnableDemoMode(admin)
	barbSrv := NewServer(svc, sync, storage, "test-token", testLogger())
	barbSrv.EnableDemoMode(barb)

	return &fixture{adminSrv: adminSrv, barbSrv: barbSrv, admin: admin, barb: barb, svc: svc}
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) *models.Task {
	t.Helper()
	var task models.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return &task
}

func TestRequestWithoutInitDataIsRejected(t *testing.T) {
	f := newFixture(t)

	// A server without demo mode demands the signed header
	srv := NewServer(f.svc, notify.New(testLogger(), memory.New().Users(), memory.New().Notifications(), nil),
		f.adminSrv.storage, "test-token", testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)

	// Bartenders cannot create
	rec := doJSON(t, f.barbSrv, http.MethodPost, "/api/tasks", service.NewTask{
		Title: "Restock fridge", ActionType: models.ActionTask, AssignedTo: f.barb.ID,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bartender create: status = %d, want 403", rec.Code)
	}

	// Admin creates
	rec = doJSON(t, f.adminSrv, http.MethodPost, "/api/tasks", service.NewTask{
		Title: "Restock fridge", ActionType: models.ActionTask, AssignedTo: f.barb.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status = %d, body %s", rec.Code, rec.Body)
	}
	task := decodeTask(t, rec)

	// Assignee starts
	rec = doJSON(t, f.barbSrv, http.MethodPost, "/api/tasks/"+task.ID+"/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decodeTask(t, rec); got.Status != models.TaskStatusInProgress {
		t.Fatalf("status after start = %s", got.Status)
	}

	// Completion without evidence is refused for the bartender
	rec = doJSON(t, f.barbSrv, http.MethodPost, "/api/tasks/"+task.ID+"/complete", service.Evidence{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("complete without evidence: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, f.barbSrv, http.MethodPost, "/api/tasks/"+task.ID+"/complete",
		service.Evidence{ResultText: "Fridge is full"})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d, body %s", rec.Code, rec.Body)
	}
	done := decodeTask(t, rec)
	if done.Status != models.TaskStatusCompleted || done.CompletedAt == nil {
		t.Fatalf("completed task wrong: %+v", done)
	}

	// Undo lands on in_progress with evidence cleared
	rec = doJSON(t, f.barbSrv, http.MethodPost, "/api/tasks/"+task.ID+"/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo: status = %d, body %s", rec.Code, rec.Body)
	}
	undone := decodeTask(t, rec)
	if undone.Status != models.TaskStatusInProgress || undone.ResultText != "" {
		t.Fatalf("undone task wrong: %+v", undone)
	}
}

func TestBartenderSeesOnlyOwnTasks(t *testing.T) {
	f := newFixture(t)

	for _, assignee := range []string{f.barb.ID, f.admin.ID} {
		rec := doJSON(t, f.adminSrv, http.MethodPost, "/api/tasks", service.NewTask{
			Title: "Chore", ActionType: models.ActionTask, AssignedTo: assignee,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: status = %d", rec.Code)
		}
	}

	rec := doJSON(t, f.barbSrv, http.MethodGet, "/api/tasks", nil)
	var tasks []*models.Task
	if err := json.NewDecoder(rec.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 1 || tasks[0].AssignedTo != f.barb.ID {
		t.Fatalf("bartender sees %d tasks, want only their own", len(tasks))
	}

	rec = doJSON(t, f.adminSrv, http.MethodGet, "/api/tasks", nil)
	tasks = nil
	if err := json.NewDecoder(rec.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("admin sees %d tasks, want 2", len(tasks))
	}
}

func TestBartenderCannotActOnForeignTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.CreateTask(ctx, f.admin, service.NewTask{
		Title: "Admin's own chore", ActionType: models.ActionTask, AssignedTo: f.admin.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	rec := doJSON(t, f.barbSrv, http.MethodPost, "/api/tasks/"+task.ID+"/start", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign start: status = %d, want 403", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.adminSrv, http.MethodPost, "/api/tasks", service.NewTask{
		Title: "Chore", ActionType: models.ActionTask, AssignedTo: f.barb.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}

	rec = doJSON(t, f.barbSrv, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status = %d", rec.Code)
	}
	var s struct {
		Total          int `json:"total"`
		Pending        int `json:"pending"`
		CompletionRate int `json:"completionRate"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Total != 1 || s.Pending != 1 || s.CompletionRate != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestTemplateEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.adminSrv, http.MethodPost, "/api/templates", service.NewTemplate{
		Name: "Opening checklist",
		Items: []service.NewTemplateItem{
			{Title: "Cut garnishes"},
			{Title: "Check kegs"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create template: status = %d, body %s", rec.Code, rec.Body)
	}
	var tpl models.TaskTemplate
	if err := json.NewDecoder(rec.Body).Decode(&tpl); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, f.adminSrv, http.MethodPost, "/api/templates/"+tpl.ID+"/apply", map[string]any{
		"assignee_ids": []string{f.barb.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("apply template: status = %d, body %s", rec.Code, rec.Body)
	}
	var tasks []*models.Task
	if err := json.NewDecoder(rec.Body).Decode(&tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expanded %d tasks, want 2", len(tasks))
	}

	// Bartenders cannot apply templates
	rec = doJSON(t, f.barbSrv, http.MethodPost, "/api/templates/"+tpl.ID+"/apply", map[string]any{
		"assignee_ids": []string{f.barb.ID},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bartender apply: status = %d, want 403", rec.Code)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "proof.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fmt.Fprint(fw, "fake image bytes")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.barbSrv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.URL == "" {
		t.Fatal("upload returned an empty URL")
	}
}
