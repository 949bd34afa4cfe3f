package automation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hearthwise/hearth-core/internal/device"
	"github.com/hearthwise/hearth-core/internal/scene"
	"github.com/hearthwise/hearth-core/internal/sensor"
)

// equalityEpsilon is the tolerance for sensor == comparisons. Sensor values
// are floats from ADCs; exact equality would almost never hold.
const equalityEpsilon = 0.1

// RuleSource supplies the rules to evaluate.
// Satisfied by *Repository; narrowed for testing.
type RuleSource interface {
	ListActive(ctx context.Context) ([]*Rule, error)
}

// DeviceStore is the device surface the engine needs.
type DeviceStore interface {
	Get(id string) (*device.Device, error)
}

// ReadingSource supplies the latest sensor reading per device.
type ReadingSource interface {
	LatestByDevice(ctx context.Context, deviceID string) (*sensor.Reading, error)
}

// SceneRunner executes a rule's actions when it fires.
// Satisfied by *scene.Executor; narrowed for testing.
type SceneRunner interface {
	ExecuteActions(ctx context.Context, name string, actions []scene.Action, actorID string) (*scene.ExecutionResult, error)
}

// Logger is the minimal logging surface the engine needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine evaluates automation rules on a fixed schedule and runs their
// actions when conditions are met.
//
// Evaluation is a single-threaded sequential scan over active rules;
// residential rule sets are small and one scan per tick is cheap. Firing
// is edge-triggered: a rule fires when its condition goes from false to
// true, not on every tick the condition stays true. The previous result
// per rule is kept in memory and resets on restart.
type Engine struct {
	rules    RuleSource
	devices  DeviceStore
	readings ReadingSource
	runner   SceneRunner
	logger   Logger

	interval time.Duration

	mu        sync.Mutex
	lastState map[string]bool // rule ID → previous evaluation result
	cron      *cron.Cron
	running   bool

	// now is stubbed in tests.
	now func() time.Time
}

// NewEngine creates an automation engine.
func NewEngine(rules RuleSource, devices DeviceStore, readings ReadingSource, runner SceneRunner, logger Logger, interval time.Duration) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		rules:     rules,
		devices:   devices,
		readings:  readings,
		runner:    runner,
		logger:    logger,
		interval:  interval,
		lastState: make(map[string]bool),
		now:       time.Now,
	}
}

// Start begins the periodic evaluation schedule. The engine stops when
// Stop is called or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", e.interval)
	_, err := c.AddFunc(spec, func() {
		if err := e.EvaluateAll(ctx); err != nil {
			e.logger.Error("automation evaluation pass failed", "error", err)
		}
	})
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("schedule automation: %w", err)
	}

	e.cron = c
	e.running = true
	e.mu.Unlock()

	c.Start()
	e.logger.Info("automation engine started", "interval", e.interval)

	go func() {
		<-ctx.Done()
		e.Stop()
	}()

	return nil
}

// Stop halts the evaluation schedule. Safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.cron.Stop()
	e.running = false
	e.logger.Info("automation engine stopped")
}

// EvaluateAll runs one evaluation pass over all active rules, firing those
// whose condition transitioned to true since the previous pass.
func (e *Engine) EvaluateAll(ctx context.Context) error {
	rules, err := e.rules.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active rules: %w", err)
	}

	for _, rule := range rules {
		satisfied := e.Evaluate(ctx, rule)

		e.mu.Lock()
		previous := e.lastState[rule.ID]
		e.lastState[rule.ID] = satisfied
		e.mu.Unlock()

		if satisfied && !previous {
			e.fire(ctx, rule)
		}
	}

	return nil
}

// Evaluate reports whether the rule's conditions currently hold.
//
// A condition over missing data (unknown device, no readings, absent
// attribute) is false, never an error: a broken sensor must not wedge the
// evaluation pass.
func (e *Engine) Evaluate(ctx context.Context, rule *Rule) bool {
	if len(rule.Conditions) == 0 {
		return false
	}

	results := make([]bool, len(rule.Conditions))
	for i, cond := range rule.Conditions {
		results[i] = e.evaluateCondition(ctx, &cond)
	}

	if rule.ConditionLogic == LogicOr {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}

	// AND is the default.
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

func (e *Engine) fire(ctx context.Context, rule *Rule) {
	e.logger.Info("automation rule triggered", "rule", rule.Name, "id", rule.ID)

	result, err := e.runner.ExecuteActions(ctx, rule.Name, rule.Actions, "automation:"+rule.ID)
	if err != nil {
		e.logger.Error("automation rule execution failed", "rule", rule.Name, "error", err)
		return
	}
	if !result.Success {
		e.logger.Warn("automation rule executed with failures",
			"rule", rule.Name,
			"failed", result.FailedCount,
		)
	}
}

func (e *Engine) evaluateCondition(ctx context.Context, cond *Condition) bool {
	switch cond.Kind {
	case KindTime:
		return e.evaluateTime(cond)
	case KindSensor:
		return e.evaluateSensor(ctx, cond)
	case KindDevice:
		return e.evaluateDevice(cond)
	default:
		return false
	}
}

func (e *Engine) evaluateTime(cond *Condition) bool {
	now := e.now()

	var current float64
	switch cond.Parameter {
	case "hour":
		current = float64(now.Hour())
	case "minute":
		current = float64(now.Minute())
	default:
		return false
	}

	target, ok := toFloat(cond.Value)
	if !ok {
		return false
	}

	return compareNumeric(current, cond.Operator, target, 0)
}

func (e *Engine) evaluateSensor(ctx context.Context, cond *Condition) bool {
	reading, err := e.readings.LatestByDevice(ctx, cond.DeviceID)
	if err != nil {
		return false
	}

	current, ok := reading.Fields()[cond.Parameter]
	if !ok {
		return false
	}

	target, ok := toFloat(cond.Value)
	if !ok {
		return false
	}

	return compareNumeric(current, cond.Operator, target, equalityEpsilon)
}

func (e *Engine) evaluateDevice(cond *Condition) bool {
	d, err := e.devices.Get(cond.DeviceID)
	if err != nil {
		return false
	}

	attr, ok := d.Status[cond.Parameter]
	if !ok {
		return false
	}

	if cond.Operator == OpEqual {
		return fmt.Sprint(attr) == fmt.Sprint(cond.Value)
	}

	current, okA := toFloat(attr)
	target, okB := toFloat(cond.Value)
	if !okA || !okB {
		return false
	}

	return compareNumeric(current, cond.Operator, target, 0)
}

// compareNumeric applies op to (current, target). For == a non-zero epsilon
// widens equality to |current-target| < epsilon.
func compareNumeric(current float64, op string, target, epsilon float64) bool {
	switch op {
	case OpEqual:
		if epsilon > 0 {
			diff := current - target
			if diff < 0 {
				diff = -diff
			}
			return diff < epsilon
		}
		return current == target
	case OpGreater:
		return current > target
	case OpLess:
		return current < target
	case OpGreaterEqual:
		return current >= target
	case OpLessEqual:
		return current <= target
	default:
		return false
	}
}

// toFloat coerces JSON-decoded values to float64.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
