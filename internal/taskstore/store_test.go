package taskstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aleks10sadu-ops/k-c-bar/internal/models"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository"
	"github.com/aleks10sadu-ops/k-c-bar/internal/repository/memory"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestStore(t *testing.T, viewer Viewer) (*Store, *memory.Store) {
	t.Helper()
	mem := memory.New()
	store := New(mem.Tasks(), mem, viewer, testLogger())
	if err := store.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(store.Close)
	return store, mem
}

func TestCreateIsOptimisticAndIdempotent(t *testing.T) {
	store, _ := newTestStore(t, Viewer{Admin: true})

	task, err := store.Create(context.Background(), &models.Task{
		Title: "Restock fridge", ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "admin",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected a generated id")
	}

	// The backing store emitted a synchronous insert echo; the mirror must
	// still hold exactly one copy.
	all := store.All()
	if len(all) != 1 {
		t.Fatalf("len(All) = %d, want 1", len(all))
	}
	if all[0].ID != task.ID {
		t.Fatalf("mirror holds %s, want %s", all[0].ID, task.ID)
	}
}

func TestExternalEventsMergeIntoMirror(t *testing.T) {
	store, mem := newTestStore(t, Viewer{Admin: true})
	ctx := context.Background()

	// Another writer inserts directly into the backing store
	created, err := mem.CreateTask(ctx, &models.Task{
		Title: "Check kegs", ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "admin",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, ok := store.Get(created.ID); !ok {
		t.Fatal("insert event did not reach the mirror")
	}

	created.Title = "Check kegs and taps"
	if _, err := mem.UpdateTask(ctx, created); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	got, ok := store.Get(created.ID)
	if !ok || got.Title != "Check kegs and taps" {
		t.Fatalf("update event not applied, got %+v", got)
	}

	if err := mem.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, ok := store.Get(created.ID); ok {
		t.Fatal("delete event not applied")
	}
}

func TestBartenderViewerOnlySeesOwnTasks(t *testing.T) {
	store, mem := newTestStore(t, Viewer{UserID: "u1"})
	ctx := context.Background()

	mine, _ := mem.CreateTask(ctx, &models.Task{
		Title: "Polish glasses", ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "admin",
	})
	other, _ := mem.CreateTask(ctx, &models.Task{
		Title: "Count register", ActionType: models.ActionTask, AssignedTo: "u2", CreatedBy: "admin",
	})

	if _, ok := store.Get(mine.ID); !ok {
		t.Fatal("own task missing from mirror")
	}
	if _, ok := store.Get(other.ID); ok {
		t.Fatal("another bartender's task leaked into the mirror")
	}

	// Reassignment away: the update is invisible, but the stale local copy
	// is removed on delete
	if err := mem.DeleteTask(ctx, mine.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, ok := store.Get(mine.ID); ok {
		t.Fatal("delete not applied for bartender viewer")
	}
}

func TestResyncFilteredForBartender(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	mem.CreateTask(ctx, &models.Task{Title: "a", ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "admin"})
	mem.CreateTask(ctx, &models.Task{Title: "b", ActionType: models.ActionTask, AssignedTo: "u2", CreatedBy: "admin"})

	store := New(mem.Tasks(), mem, Viewer{UserID: "u1"}, testLogger())
	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer store.Close()

	if got := len(store.All()); got != 1 {
		t.Fatalf("len(All) = %d, want 1", got)
	}
}

func TestForDateBounds(t *testing.T) {
	store, _ := newTestStore(t, Viewer{Admin: true})
	ctx := context.Background()

	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	mk := func(title string, due *time.Time) {
		if _, err := store.Create(ctx, &models.Task{
			Title: title, ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "admin", DueDate: due,
		}); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}

	midnight := day
	lastSecond := day.Add(24*time.Hour - time.Second)
	nextDay := day.Add(24 * time.Hour)
	mk("at midnight", &midnight)
	mk("end of day", &lastSecond)
	mk("next day", &nextDay)
	mk("no due date", nil)

	got := store.ForDate(day)
	if len(got) != 2 {
		t.Fatalf("ForDate returned %d tasks, want 2", len(got))
	}
	for _, task := range got {
		if task.Title == "next day" || task.Title == "no due date" {
			t.Fatalf("ForDate included %q", task.Title)
		}
	}
}

func TestOverdueProjection(t *testing.T) {
	store, _ := newTestStore(t, Viewer{Admin: true})
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store.SetNow(func() time.Time { return now })

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	done := now.Add(-30 * time.Minute)

	store.Create(ctx, &models.Task{Title: "late", ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "a", DueDate: &past})
	store.Create(ctx, &models.Task{Title: "on track", ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "a", DueDate: &future})
	store.Create(ctx, &models.Task{Title: "finished", ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "a",
		DueDate: &past, Status: models.TaskStatusCompleted, CompletedAt: &done})

	got := store.Overdue()
	if len(got) != 1 {
		t.Fatalf("Overdue returned %d tasks, want 1", len(got))
	}
	if got[0].Title != "late" {
		t.Fatalf("Overdue returned %q, want %q", got[0].Title, "late")
	}
}

// failingRepo serves List but refuses all mutations
type failingRepo struct {
	tasks []*models.Task
}

var errStorage = errors.New("storage unavailable")

func (r *failingRepo) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	return nil, errStorage
}

func (r *failingRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return nil, repository.ErrNotFound
}

func (r *failingRepo) List(ctx context.Context, filters repository.TaskFilters) ([]*models.Task, error) {
	out := make([]*models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (r *failingRepo) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	return nil, errStorage
}

func (r *failingRepo) Delete(ctx context.Context, id string) error {
	return errStorage
}

func TestFailedMutationTriggersResync(t *testing.T) {
	ctx := context.Background()
	existing := &models.Task{
		ID: "t1", Title: "Original", ActionType: models.ActionTask,
		AssignedTo: "u1", CreatedBy: "admin", Status: models.TaskStatusPending,
	}
	repo := &failingRepo{tasks: []*models.Task{existing}}

	store := New(repo, memory.New(), Viewer{Admin: true}, testLogger())
	if err := store.Resync(ctx); err != nil {
		t.Fatalf("Resync: %v", err)
	}

	// Failed update: the optimistic copy must be rolled back to the
	// authoritative title
	mutated := existing.Clone()
	mutated.Title = "Mutated"
	if _, err := store.Update(ctx, mutated); !errors.Is(err, errStorage) {
		t.Fatalf("Update error = %v, want %v", err, errStorage)
	}
	got, ok := store.Get("t1")
	if !ok {
		t.Fatal("task missing after resync")
	}
	if got.Title != "Original" {
		t.Fatalf("Title = %q, want %q after resync", got.Title, "Original")
	}

	// Failed create: the optimistic insert must vanish
	if _, err := store.Create(ctx, &models.Task{Title: "New", ActionType: models.ActionTask, AssignedTo: "u1", CreatedBy: "admin"}); !errors.Is(err, errStorage) {
		t.Fatalf("Create error = %v, want %v", err, errStorage)
	}
	if got := len(store.All()); got != 1 {
		t.Fatalf("len(All) = %d after failed create, want 1", got)
	}

	// Failed delete: the task reappears after resync
	if err := store.Delete(ctx, "t1"); !errors.Is(err, errStorage) {
		t.Fatalf("Delete error = %v, want %v", err, errStorage)
	}
	if _, ok := store.Get("t1"); !ok {
		t.Fatal("task missing after failed delete resync")
	}
}
