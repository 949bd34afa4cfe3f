package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hearthwise/hearth-core/internal/infrastructure/database"
)

// Sentinel errors for alert operations.
var (
	// ErrNotFound indicates the requested alert does not exist.
	ErrNotFound = errors.New("alert not found")

	// ErrAlreadyResolved indicates the alert was already resolved.
	ErrAlreadyResolved = errors.New("alert already resolved")
)

// Repository provides SQLite persistence for alert events.
type Repository struct {
	db *database.DB
}

// NewRepository creates an alert repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a new alert event.
func (r *Repository) Insert(ctx context.Context, event *Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_events (id, device_id, house_id, type, severity,
		                          message, resolved, resolved_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, nullableString(event.DeviceID), event.HouseID,
		event.Type, event.Severity, event.Message,
		event.Resolved, event.ResolvedAt, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	return nil
}

// GetByID retrieves an alert by its identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, selectAlert+` WHERE id = ?`, id)
	return scanAlert(row)
}

// ListActive returns unresolved alerts, newest first.
func (r *Repository) ListActive(ctx context.Context) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx, selectAlert+`
		WHERE resolved = 0
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// ListByDevice returns alerts for a device since the given time, newest first.
func (r *Repository) ListByDevice(ctx context.Context, deviceID string, since time.Time) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx, selectAlert+`
		WHERE device_id = ? AND created_at >= ?
		ORDER BY created_at DESC`, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("list device alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// Resolve marks an alert as resolved.
//
// Returns ErrAlreadyResolved if the alert was resolved earlier, ErrNotFound
// if it does not exist.
func (r *Repository) Resolve(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE alert_events
		SET resolved = 1, resolved_at = ?
		WHERE id = ? AND resolved = 0`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve alert: rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}

	return nil
}

const selectAlert = `
	SELECT id, device_id, house_id, type, severity, message,
	       resolved, resolved_at, created_at
	FROM alert_events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*Event, error) {
	var (
		event    Event
		deviceID sql.NullString
	)

	err := row.Scan(
		&event.ID, &deviceID, &event.HouseID,
		&event.Type, &event.Severity, &event.Message,
		&event.Resolved, &event.ResolvedAt, &event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	event.DeviceID = deviceID.String
	return &event, nil
}

func scanAlerts(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		event, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return events, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
