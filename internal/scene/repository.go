package scene

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hearthwise/hearth-core/internal/infrastructure/database"
)

// Repository provides SQLite persistence for scenes and execution logs.
type Repository struct {
	db *database.DB
}

// NewRepository creates a scene repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new scene.
func (r *Repository) Create(ctx context.Context, s *Scene) error {
	actionsJSON, err := json.Marshal(s.Actions)
	if err != nil {
		return fmt.Errorf("marshal scene actions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scenes (id, name, description, house_id, actions,
		                    icon, colour, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Description, s.HouseID, string(actionsJSON),
		s.Icon, s.Colour, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create scene: %w", err)
	}

	return nil
}

// GetByID retrieves a scene by its identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*Scene, error) {
	row := r.db.QueryRowContext(ctx, selectScene+` WHERE id = ?`, id)
	return scanScene(row)
}

// List returns all scenes ordered by name.
func (r *Repository) List(ctx context.Context) ([]*Scene, error) {
	rows, err := r.db.QueryContext(ctx, selectScene+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		s, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}

	return scenes, nil
}

// Update persists changes to a scene definition.
func (r *Repository) Update(ctx context.Context, s *Scene) error {
	actionsJSON, err := json.Marshal(s.Actions)
	if err != nil {
		return fmt.Errorf("marshal scene actions: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE scenes
		SET name = ?, description = ?, actions = ?, icon = ?, colour = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.Description, string(actionsJSON), s.Icon, s.Colour,
		time.Now().UTC(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("update scene: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update scene: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
	}

	return nil
}

// Delete removes a scene.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scenes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scene: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}

// logResult is the JSON shape of the per-action detail column.
type logResult struct {
	Executed []ActionResult  `json:"executed_actions"`
	Failed   []ActionFailure `json:"failed_actions"`
}

// InsertLog appends an execution audit record. A log with no scene ID
// records an inline action batch and stores a NULL scene_id.
func (r *Repository) InsertLog(ctx context.Context, log *ExecutionLog) error {
	resultJSON, err := json.Marshal(logResult{Executed: log.Executed, Failed: log.Failed})
	if err != nil {
		return fmt.Errorf("marshal execution result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scene_execution_logs (id, scene_id, executed_by, house_id,
		                                  success, executed_actions, failed_actions,
		                                  result, duration_seconds, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, nullableString(log.SceneID), log.ExecutedBy, log.HouseID,
		log.Success, log.ExecutedActions, log.FailedActions,
		string(resultJSON), log.DurationSeconds, log.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution log: %w", err)
	}

	return nil
}

// ListLogs returns execution records for a scene, newest first. An empty
// scene ID selects the inline action batches run by automations.
func (r *Repository) ListLogs(ctx context.Context, sceneID string, limit int) ([]*ExecutionLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scene_id, executed_by, house_id, success,
		       executed_actions, failed_actions, result, duration_seconds, executed_at
		FROM scene_execution_logs
		WHERE scene_id IS ?
		ORDER BY executed_at DESC
		LIMIT ?`, nullableString(sceneID), limit)
	if err != nil {
		return nil, fmt.Errorf("list execution logs: %w", err)
	}
	defer rows.Close()

	var logs []*ExecutionLog
	for rows.Next() {
		var (
			log        ExecutionLog
			sceneID    sql.NullString
			resultJSON string
		)
		err := rows.Scan(
			&log.ID, &sceneID, &log.ExecutedBy, &log.HouseID, &log.Success,
			&log.ExecutedActions, &log.FailedActions, &resultJSON,
			&log.DurationSeconds, &log.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		log.SceneID = sceneID.String

		var detail logResult
		if resultJSON != "" {
			if err := json.Unmarshal([]byte(resultJSON), &detail); err != nil {
				return nil, fmt.Errorf("unmarshal execution result: %w", err)
			}
		}
		log.Executed = detail.Executed
		log.Failed = detail.Failed

		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution logs: %w", err)
	}

	return logs, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const selectScene = `
	SELECT id, name, description, house_id, actions,
	       icon, colour, created_at, updated_at
	FROM scenes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(row rowScanner) (*Scene, error) {
	var (
		s           Scene
		actionsJSON string
	)

	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.HouseID, &actionsJSON,
		&s.Icon, &s.Colour, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan scene: %w", err)
	}

	if actionsJSON != "" {
		if err := json.Unmarshal([]byte(actionsJSON), &s.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal scene actions: %w", err)
		}
	}

	return &s, nil
}
