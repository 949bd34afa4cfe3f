package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hearthwise/hearth-core/internal/infrastructure/database"
)

// Repository provides SQLite persistence for devices.
type Repository struct {
	db *database.DB
}

// NewRepository creates a device repository backed by the given database.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new device.
//
// Returns ErrDuplicateHardwareID if the hardware ID is already registered.
func (r *Repository) Create(ctx context.Context, d *Device) error {
	statusJSON, err := marshalStatus(d.Status)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (id, hardware_id, name, type, room_id, house_id,
		                     status, online, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.HardwareID, d.Name, d.Type, nullableString(d.RoomID), d.HouseID,
		statusJSON, d.Online, d.LastSeen, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateHardwareID, d.HardwareID)
		}
		return fmt.Errorf("create device: %w", err)
	}

	return nil
}

// GetByID retrieves a device by its identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevice+` WHERE id = ?`, id)
	return scanDevice(row)
}

// GetByHardwareID retrieves a device by its hardware identifier.
func (r *Repository) GetByHardwareID(ctx context.Context, hardwareID string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevice+` WHERE hardware_id = ?`, hardwareID)
	return scanDevice(row)
}

// List returns all devices ordered by name.
func (r *Repository) List(ctx context.Context) ([]*Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDevice+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	return scanDevices(rows)
}

// Update persists changes to a device's metadata (name, type, room).
func (r *Repository) Update(ctx context.Context, d *Device) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET name = ?, type = ?, room_id = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, d.Type, nullableString(d.RoomID), time.Now().UTC(), d.ID,
	)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}

	return requireRow(result, d.ID)
}

// SetStatus replaces the stored status JSON with the given snapshot.
//
// The store computes the merged status under its lock and persists the
// result wholesale. Merging in SQL (json_patch) would apply RFC 7396
// semantics, which recurse into nested objects and disagree with
// Status.Merge; the row must hold exactly the map the cache holds.
func (r *Repository) SetStatus(ctx context.Context, id string, status Status) error {
	statusJSON, err := marshalStatus(status)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET status = ?, updated_at = ?
		WHERE id = ?`,
		statusJSON, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set device status: %w", err)
	}

	return requireRow(result, id)
}

// SetOnline updates a device's liveness fields.
func (r *Repository) SetOnline(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET online = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`,
		online, lastSeen, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set device online: %w", err)
	}

	return requireRow(result, id)
}

// MarkStaleBefore marks every online device not seen since the cutoff as
// offline, returning the IDs that changed.
func (r *Repository) MarkStaleBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mark stale: begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM devices
		WHERE online = 1 AND last_seen < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("mark stale: select: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("mark stale: scan: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mark stale: rows: %w", err)
	}

	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE devices
		SET online = 0, updated_at = ?
		WHERE online = 1 AND last_seen < ?`,
		time.Now().UTC(), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("mark stale: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("mark stale: commit: %w", err)
	}

	return ids, nil
}

// Delete removes a device.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}

	return requireRow(result, id)
}

const selectDevice = `
	SELECT id, hardware_id, name, type, room_id, house_id,
	       status, online, last_seen, created_at, updated_at
	FROM devices`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d          Device
		roomID     sql.NullString
		statusJSON string
	)

	err := row.Scan(
		&d.ID, &d.HardwareID, &d.Name, &d.Type, &roomID, &d.HouseID,
		&statusJSON, &d.Online, &d.LastSeen, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan device: %w", err)
	}

	d.RoomID = roomID.String

	if statusJSON != "" {
		if err := json.Unmarshal([]byte(statusJSON), &d.Status); err != nil {
			return nil, fmt.Errorf("unmarshal device status: %w", err)
		}
	}
	if d.Status == nil {
		d.Status = Status{}
	}

	return &d, nil
}

func scanDevices(rows *sql.Rows) ([]*Device, error) {
	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

func marshalStatus(s Status) (string, error) {
	if s == nil {
		return "{}", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal status: %w", err)
	}
	return string(data), nil
}

func requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
