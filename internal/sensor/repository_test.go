package sensor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

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

func floatPtr(v float64) *float64 { return &v }

func seedReading(t *testing.T, repo *Repository, deviceID string, temp float64, at time.Time) *Reading {
	t.Helper()

	r := &Reading{
		DeviceID:    deviceID,
		HouseID:     "house-1",
		Temperature: floatPtr(temp),
		RecordedAt:  at,
	}
	if err := repo.Insert(context.Background(), r); err != nil {
		t.Fatalf("seeding reading: %v", err)
	}
	return r
}

func TestRepositoryInsertFillsDefaults(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	r := &Reading{DeviceID: "env-1", HouseID: "house-1", Humidity: floatPtr(55)}
	if err := repo.Insert(context.Background(), r); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if r.ID == "" {
		t.Error("ID not generated")
	}
	if r.RecordedAt.IsZero() {
		t.Error("recorded_at not defaulted")
	}
}

func TestRepositoryLatestByDevice(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	now := time.Now().UTC().Truncate(time.Second)

	seedReading(t, repo, "env-1", 20, now.Add(-2*time.Minute))
	latest := seedReading(t, repo, "env-1", 22, now)
	seedReading(t, repo, "env-2", 30, now)

	got, err := repo.LatestByDevice(context.Background(), "env-1")
	if err != nil {
		t.Fatalf("LatestByDevice() error = %v", err)
	}
	if got.ID != latest.ID {
		t.Errorf("latest = %s, want %s", got.ID, latest.ID)
	}
	if got.Temperature == nil || *got.Temperature != 22 {
		t.Errorf("temperature = %v, want 22", got.Temperature)
	}
	// Channels never reported come back absent, not zero.
	if got.GasLevel != nil {
		t.Errorf("gas level = %v, want nil", got.GasLevel)
	}

	if _, err := repo.LatestByDevice(context.Background(), "ghost"); !errors.Is(err, ErrNoReadings) {
		t.Fatalf("LatestByDevice(ghost) error = %v, want ErrNoReadings", err)
	}
}

func TestRepositoryListByDevice(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seedReading(t, repo, "env-1", 19, now.Add(-2*time.Hour))
	seedReading(t, repo, "env-1", 20, now.Add(-30*time.Minute))
	seedReading(t, repo, "env-1", 21, now)

	got, err := repo.ListByDevice(ctx, "env-1", now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d readings, want 2", len(got))
	}
	// Newest first.
	if *got[0].Temperature != 21 || *got[1].Temperature != 20 {
		t.Errorf("order = %v, %v", *got[0].Temperature, *got[1].Temperature)
	}

	capped, err := repo.ListByDevice(ctx, "env-1", now.Add(-3*time.Hour), 1)
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(capped) != 1 {
		t.Errorf("limit not applied: %d readings", len(capped))
	}
}

func TestRepositoryPruneBefore(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seedReading(t, repo, "env-1", 19, now.Add(-48*time.Hour))
	seedReading(t, repo, "env-1", 21, now)

	pruned, err := repo.PruneBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned %d readings, want 1", pruned)
	}

	remaining, err := repo.ListByDevice(ctx, "env-1", now.Add(-72*time.Hour), 10)
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("%d readings remain, want 1", len(remaining))
	}
}

func TestReadingFields(t *testing.T) {
	flame := true
	r := Reading{
		Temperature:   floatPtr(21),
		FlameDetected: &flame,
	}

	fields := r.Fields()
	if len(fields) != 2 {
		t.Fatalf("fields = %v", fields)
	}
	if fields["temperature"] != 21 || fields["flame_detected"] != 1 {
		t.Errorf("fields = %v", fields)
	}
}
