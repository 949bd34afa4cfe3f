package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hearthwise/hearth-core/internal/infrastructure/database"
)

// Repository provides SQLite persistence for automation rules.
type Repository struct {
	db *database.DB
}

// NewRepository creates an automation rule repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new rule. Validation and ID generation happen here so
// the management API can pass rules straight through.
func (r *Repository) Create(ctx context.Context, rule *Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = GenerateID()
	}
	if rule.ConditionLogic == "" {
		rule.ConditionLogic = LogicAnd
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	conditionsJSON, actionsJSON, err := marshalRule(rule)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO automation_rules (id, name, house_id, conditions,
		                              condition_logic, actions, active,
		                              created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.HouseID, conditionsJSON,
		rule.ConditionLogic, actionsJSON, rule.Active,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}

	return nil
}

// GetByID retrieves a rule by its identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (*Rule, error) {
	row := r.db.QueryRowContext(ctx, selectRule+` WHERE id = ?`, id)
	return scanRule(row)
}

// List returns all rules ordered by name.
func (r *Repository) List(ctx context.Context) ([]*Rule, error) {
	rows, err := r.db.QueryContext(ctx, selectRule+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListActive returns rules eligible for evaluation.
func (r *Repository) ListActive(ctx context.Context) ([]*Rule, error) {
	rows, err := r.db.QueryContext(ctx, selectRule+` WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

// Update replaces a rule's definition.
func (r *Repository) Update(ctx context.Context, rule *Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	conditionsJSON, actionsJSON, err := marshalRule(rule)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE automation_rules
		SET name = ?, conditions = ?, condition_logic = ?, actions = ?,
		    active = ?, updated_at = ?
		WHERE id = ?`,
		rule.Name, conditionsJSON, rule.ConditionLogic, actionsJSON,
		rule.Active, time.Now().UTC(), rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}

	return requireRow(result, rule.ID)
}

// SetActive toggles a rule's active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE automation_rules
		SET active = ?, updated_at = ?
		WHERE id = ?`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set rule active: %w", err)
	}

	return requireRow(result, id)
}

// Delete removes a rule.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM automation_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}

	return requireRow(result, id)
}

func validateRule(rule *Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if len(rule.Conditions) == 0 {
		return fmt.Errorf("%w: at least one condition is required", ErrInvalidRule)
	}
	if len(rule.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidRule)
	}
	for i, c := range rule.Conditions {
		switch c.Kind {
		case KindTime, KindSensor, KindDevice:
		default:
			return fmt.Errorf("%w: condition %d has unknown kind %q", ErrInvalidRule, i, c.Kind)
		}
		switch c.Operator {
		case OpEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		default:
			return fmt.Errorf("%w: condition %d has unknown operator %q", ErrInvalidRule, i, c.Operator)
		}
	}
	switch rule.ConditionLogic {
	case "", LogicAnd, LogicOr:
	default:
		return fmt.Errorf("%w: unknown condition logic %q", ErrInvalidRule, rule.ConditionLogic)
	}
	return nil
}

func marshalRule(rule *Rule) (conditionsJSON, actionsJSON string, err error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("marshal conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return "", "", fmt.Errorf("marshal actions: %w", err)
	}
	return string(conditions), string(actions), nil
}

const selectRule = `
	SELECT id, name, house_id, conditions, condition_logic, actions,
	       active, created_at, updated_at
	FROM automation_rules`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var (
		rule           Rule
		conditionsJSON string
		actionsJSON    string
	)

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.HouseID, &conditionsJSON,
		&rule.ConditionLogic, &actionsJSON, &rule.Active,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan rule: %w", err)
	}

	if err := json.Unmarshal([]byte(conditionsJSON), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal conditions: %w", err)
	}
	if actionsJSON != "" {
		if err := json.Unmarshal([]byte(actionsJSON), &rule.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal actions: %w", err)
		}
	}

	return &rule, nil
}

func scanRules(rows *sql.Rows) ([]*Rule, error) {
	var rules []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
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
