package saga

import (
	"context"
	"fmt"
	"strings"

	"github.com/draftea/saga-coordinator/shared/models"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownDefinition is returned by StartSaga for an unregistered definition name
	ErrUnknownDefinition = errors.New("unknown saga definition")

	// ErrInstanceNotFound is returned when a saga id does not exist
	ErrInstanceNotFound = errors.New("saga instance not found")
)

// Data is the mutable key-value bag flowing through a saga. Step outputs merge
// into it and become inputs to later steps.
type Data map[string]interface{}

// Clone returns a shallow copy of the data bag
func (d Data) Clone() Data {
	clone := make(Data, len(d))
	for k, v := range d {
		clone[k] = v
	}
	return clone
}

// Merge copies the other bag's entries over this one and returns it
func (d Data) Merge(other Data) Data {
	if d == nil {
		d = make(Data, len(other))
	}
	for k, v := range other {
		d[k] = v
	}
	return d
}

// GetString reads a string value from the bag
func (d Data) GetString(key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Step is a named unit of work with a matching compensating action. Both
// actions must be idempotent; the orchestrator assumes at-least-once execution.
type Step interface {
	Name() string
	Execute(ctx context.Context, data Data) (Data, error)
	Compensate(ctx context.Context, data Data) error
}

// funcStep adapts a pair of closures into a Step
type funcStep struct {
	name       string
	execute    func(ctx context.Context, data Data) (Data, error)
	compensate func(ctx context.Context, data Data) error
}

// NewStep builds a Step from an execute and a compensate function. A nil
// compensate makes the step's rollback a no-op.
func NewStep(
	name string,
	execute func(ctx context.Context, data Data) (Data, error),
	compensate func(ctx context.Context, data Data) error,
) Step {
	if compensate == nil {
		compensate = func(context.Context, Data) error { return nil }
	}
	return &funcStep{
		name:       name,
		execute:    execute,
		compensate: compensate,
	}
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Execute(ctx context.Context, data Data) (Data, error) {
	return s.execute(ctx, data)
}

func (s *funcStep) Compensate(ctx context.Context, data Data) error {
	return s.compensate(ctx, data)
}

// Definition is an ordered list of steps describing one business transaction.
// Immutable after registration.
type Definition struct {
	name  string
	steps []Step
}

// NewDefinition creates a saga definition
func NewDefinition(name string, steps ...Step) (*Definition, error) {
	if name == "" {
		return nil, errors.New("definition name is required")
	}
	if len(steps) == 0 {
		return nil, errors.New("definition requires at least one step")
	}

	seen := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		if step.Name() == "" {
			return nil, errors.New("step name is required")
		}
		if _, dup := seen[step.Name()]; dup {
			return nil, errors.Errorf("duplicate step name %q", step.Name())
		}
		seen[step.Name()] = struct{}{}
	}

	return &Definition{
		name:  name,
		steps: append([]Step(nil), steps...),
	}, nil
}

// Name returns the definition name
func (d *Definition) Name() string { return d.name }

// Steps returns a copy of the ordered step list
func (d *Definition) Steps() []Step {
	return append([]Step(nil), d.steps...)
}

func (d *Definition) step(name string) (Step, bool) {
	for _, s := range d.steps {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Status represents the current status of a saga instance
type Status string

const (
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusCompensating Status = "compensating"
	StatusCompensated  Status = "compensated"
	StatusFailed       Status = "failed"
)

// Terminal reports whether the status is final
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompensated, StatusFailed:
		return true
	default:
		return false
	}
}

// Snapshot is the externally visible state of a saga instance
type Snapshot struct {
	ID             models.ID         `json:"saga_id"`
	DefinitionName string            `json:"definition"`
	Status         Status            `json:"status"`
	Data           Data              `json:"data"`
	CompletedSteps []string          `json:"completed_steps"`
	FailedStep     string            `json:"failed_step,omitempty"`
	Error          string            `json:"error,omitempty"`
	Timestamps     models.Timestamps `json:"-"`
}

// Store persists saga instance state for crash recovery. Optional: without a
// store, in-flight sagas are lost on process restart.
type Store interface {
	SaveInstance(ctx context.Context, snapshot *Snapshot) error
	LoadIncomplete(ctx context.Context) ([]*Snapshot, error)
}

// StepError signals that a step's execute action failed
type StepError struct {
	StepName string
	Cause    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.StepName, e.Cause)
}

func (e *StepError) Unwrap() error { return e.Cause }

// CompensatedError signals that the saga failed and every completed step was
// rolled back successfully.
type CompensatedError struct {
	FailedStep string
	Cause      error
}

func (e *CompensatedError) Error() string {
	return fmt.Sprintf("saga compensated after step %s failed: %v", e.FailedStep, e.Cause)
}

func (e *CompensatedError) Unwrap() error { return e.Cause }

// CompensationFailedError signals that one or more compensations failed.
// This is the one unrecoverable condition in the model and requires operator
// intervention.
type CompensationFailedError struct {
	FailedStep         string
	CompensationErrors []error
}

func (e *CompensationFailedError) Error() string {
	msgs := make([]string, len(e.CompensationErrors))
	for i, err := range e.CompensationErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("saga compensation failed after step %s: %s", e.FailedStep, strings.Join(msgs, "; "))
}
