package sensor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hearthwise/hearth-core/internal/infrastructure/database"
)

// ErrNoReadings indicates no readings exist for the requested device.
var ErrNoReadings = errors.New("no sensor readings")

// Repository provides SQLite persistence for sensor readings.
type Repository struct {
	db *database.DB
}

// NewRepository creates a sensor reading repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a reading. A missing ID or timestamp is filled in.
func (r *Repository) Insert(ctx context.Context, reading *Reading) error {
	if reading.ID == "" {
		reading.ID = GenerateID()
	}
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (id, device_id, house_id, temperature, humidity,
		                             light_level, gas_level, flame_detected,
		                             soil_moisture, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reading.ID, reading.DeviceID, reading.HouseID,
		reading.Temperature, reading.Humidity, reading.LightLevel,
		reading.GasLevel, reading.FlameDetected, reading.SoilMoisture,
		reading.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sensor reading: %w", err)
	}

	return nil
}

// LatestByDevice returns the most recent reading for a device.
func (r *Repository) LatestByDevice(ctx context.Context, deviceID string) (*Reading, error) {
	row := r.db.QueryRowContext(ctx, selectReading+`
		WHERE device_id = ?
		ORDER BY recorded_at DESC
		LIMIT 1`, deviceID)

	reading, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: device %s", ErrNoReadings, deviceID)
		}
		return nil, err
	}
	return reading, nil
}

// ListByDevice returns readings for a device since the given time,
// newest first, capped at limit.
func (r *Repository) ListByDevice(ctx context.Context, deviceID string, since time.Time, limit int) ([]*Reading, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, selectReading+`
		WHERE device_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC
		LIMIT ?`, deviceID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list sensor readings: %w", err)
	}
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensor readings: %w", err)
	}

	return readings, nil
}

// PruneBefore deletes readings recorded before the cutoff.
// Returns the number of rows removed.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sensor_readings WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sensor readings: %w", err)
	}

	return result.RowsAffected()
}

const selectReading = `
	SELECT id, device_id, house_id, temperature, humidity,
	       light_level, gas_level, flame_detected, soil_moisture, recorded_at
	FROM sensor_readings`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*Reading, error) {
	var reading Reading
	err := row.Scan(
		&reading.ID, &reading.DeviceID, &reading.HouseID,
		&reading.Temperature, &reading.Humidity, &reading.LightLevel,
		&reading.GasLevel, &reading.FlameDetected, &reading.SoilMoisture,
		&reading.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan sensor reading: %w", err)
	}
	return &reading, nil
}
