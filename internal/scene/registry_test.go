package scene

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hearthwise/hearth-core/internal/device"
	"github.com/hearthwise/hearth-core/internal/infrastructure/database"
	_ "github.com/hearthwise/hearth-core/migrations"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	registry, err := NewRegistry(context.Background(), NewRepository(openTestDB(t)))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return registry
}

func eveningScene() *Scene {
	return &Scene{
		Name:    "Evening",
		HouseID: "house-1",
		Actions: []Action{
			{DeviceID: "light-1", Action: "turn_on", Parameters: map[string]any{"brightness": 30}},
			{DeviceID: "blind-1", Action: "close"},
		},
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	registry := newTestRegistry(t)

	created, err := registry.Create(context.Background(), eveningScene())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("ID not generated")
	}

	got, err := registry.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Evening" || len(got.Actions) != 2 {
		t.Errorf("scene = %+v", got)
	}
	if got.Actions[0].Parameters["brightness"] != 30 {
		t.Errorf("action parameters = %v", got.Actions[0].Parameters)
	}
}

func TestRegistryValidation(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		scene *Scene
	}{
		{"missing name", &Scene{Actions: []Action{{DeviceID: "d", Action: "a"}}}},
		{"no actions", &Scene{Name: "Empty"}},
		{"action missing device", &Scene{Name: "Bad", Actions: []Action{{Action: "turn_on"}}}},
		{"action missing name", &Scene{Name: "Bad", Actions: []Action{{DeviceID: "d"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := registry.Create(ctx, tt.scene); !errors.Is(err, ErrInvalidScene) {
				t.Errorf("Create() error = %v, want ErrInvalidScene", err)
			}
		})
	}
}

func TestRegistryUpdateAndDelete(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	created, err := registry.Create(ctx, eveningScene())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	created.Name = "Late evening"
	created.Actions = created.Actions[:1]
	updated, err := registry.Update(ctx, created)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Late evening" || len(updated.Actions) != 1 {
		t.Errorf("updated scene = %+v", updated)
	}

	if err := registry.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := registry.Get(created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestRegistrySurvivesReload(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := NewRegistry(ctx, repo)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	created, err := first.Create(ctx, eveningScene())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A fresh registry over the same database sees the scene.
	second, err := NewRegistry(ctx, repo)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	got, err := second.Get(created.ID)
	if err != nil {
		t.Fatalf("Get() from reloaded registry error = %v", err)
	}
	if got.Name != "Evening" || len(got.Actions) != 2 {
		t.Errorf("reloaded scene = %+v", got)
	}
}

func TestRepositoryExecutionLogs(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	registry, err := NewRegistry(ctx, repo)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	created, err := registry.Create(ctx, eveningScene())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	log := &ExecutionLog{
		ID:              GenerateID(),
		SceneID:         created.ID,
		ExecutedBy:      "user-1",
		HouseID:         "house-1",
		Success:         false,
		ExecutedActions: 1,
		FailedActions:   1,
		Executed: []ActionResult{{
			DeviceID:   "light-1",
			DeviceName: "Hall",
			Action:     "turn_on",
			OldStatus:  device.Status{"power": "off"},
			NewStatus:  device.Status{"power": "on"},
			Published:  true,
			ExecutedAt: created.CreatedAt,
		}},
		Failed: []ActionFailure{{
			DeviceID: "blind-1",
			Action:   "close",
			Error:    "device not found",
		}},
		DurationSeconds: 0.4,
		ExecutedAt:      created.CreatedAt,
	}
	if err := repo.InsertLog(ctx, log); err != nil {
		t.Fatalf("InsertLog() error = %v", err)
	}

	logs, err := repo.ListLogs(ctx, created.ID, 10)
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(logs) != 1 || logs[0].ExecutedActions != 1 || logs[0].Success {
		t.Fatalf("logs = %+v", logs)
	}
	got := logs[0]
	if len(got.Executed) != 1 || got.Executed[0].NewStatus["power"] != "on" {
		t.Errorf("executed detail = %+v", got.Executed)
	}
	if len(got.Failed) != 1 || got.Failed[0].DeviceID != "blind-1" {
		t.Errorf("failed detail = %+v", got.Failed)
	}
}

func TestRepositoryLogsInlineRun(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	log := &ExecutionLog{
		ID:              GenerateID(),
		ExecutedBy:      "automation:rule-1",
		HouseID:         "house-1",
		Success:         true,
		ExecutedActions: 1,
		Executed: []ActionResult{{
			DeviceID:   "light-1",
			Action:     "turn_on",
			Published:  true,
			ExecutedAt: now,
		}},
		DurationSeconds: 0.1,
		ExecutedAt:      now,
	}
	if err := repo.InsertLog(ctx, log); err != nil {
		t.Fatalf("InsertLog() error = %v", err)
	}

	// An empty scene ID selects the inline records.
	logs, err := repo.ListLogs(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListLogs() error = %v", err)
	}
	if len(logs) != 1 || logs[0].SceneID != "" {
		t.Fatalf("logs = %+v", logs)
	}
	if logs[0].ExecutedBy != "automation:rule-1" || len(logs[0].Executed) != 1 {
		t.Errorf("inline log = %+v", logs[0])
	}
}
