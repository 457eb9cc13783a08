package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/draftea/saga-coordinator/shared/events"
	"github.com/draftea/saga-coordinator/shared/models"
	"github.com/draftea/saga-coordinator/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel/attribute"
)

// Orchestrator runs saga definitions against input data: steps execute in
// definition order, completed steps are recorded, and on failure the completed
// steps are compensated in reverse completion order.
//
// Instances run concurrently and independently; the definition registry is the
// only state shared between them.
type Orchestrator struct {
	definitions *xsync.MapOf[string, *Definition]
	runs        *xsync.MapOf[string, *run]
	publisher   events.Publisher
	store       Store
	wg          sync.WaitGroup
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithPublisher wires an event publisher for saga lifecycle events
func WithPublisher(publisher events.Publisher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.publisher = publisher
	}
}

// WithStore wires a durable store; instance state is persisted on every
// status transition.
func WithStore(store Store) OrchestratorOption {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// NewOrchestrator creates a saga orchestrator
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		definitions: xsync.NewMapOf[string, *Definition](),
		runs:        xsync.NewMapOf[string, *run](),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// RegisterDefinition registers a saga definition. Re-registration with the
// same name replaces the definition for future instances only; running
// instances keep the steps they started with.
func (o *Orchestrator) RegisterDefinition(def *Definition) {
	o.definitions.Store(def.Name(), def)
}

// run is the mutable state of one saga instance, owned by the goroutine that
// executes it.
type run struct {
	mu sync.Mutex

	id             models.ID
	definitionName string
	data           Data
	completed      []Step
	failedStep     string
	status         Status
	errMsg         string
	timestamps     models.Timestamps

	cancel context.CancelFunc
	done   chan struct{}
}

func (r *run) snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	completed := make([]string, len(r.completed))
	for i, step := range r.completed {
		completed[i] = step.Name()
	}

	return &Snapshot{
		ID:             r.id,
		DefinitionName: r.definitionName,
		Status:         r.status,
		Data:           r.data.Clone(),
		CompletedSteps: completed,
		FailedStep:     r.failedStep,
		Error:          r.errMsg,
		Timestamps:     r.timestamps,
	}
}

// StartSaga creates a saga instance for the named definition and starts
// executing it asynchronously. The returned id can be polled via GetSaga;
// failures are observable there and through the published lifecycle events,
// never through this call.
func (o *Orchestrator) StartSaga(ctx context.Context, definitionName string, input Data) (models.ID, error) {
	def, ok := o.definitions.Load(definitionName)
	if !ok {
		return "", errors.Wrapf(ErrUnknownDefinition, "%s", definitionName)
	}

	// Detach from the caller's cancellation: the saga outlives the request
	// that started it. Context values (telemetry) are kept.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	r := &run{
		id:             models.GenerateUUID(),
		definitionName: definitionName,
		data:           input.Clone(),
		status:         StatusRunning,
		timestamps:     models.NewTimestamps(),
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	o.runs.Store(r.id.String(), r)
	o.persist(runCtx, r)
	o.publish(runCtx, events.NewEvent(r.id, events.SagaStartedEvent, SagaStartedData{
		SagaID:     r.id,
		Definition: definitionName,
	}))

	telemetry.RecordCounter(ctx, "saga_started_total", "Sagas started", 1,
		attribute.String("definition", definitionName),
	)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.execute(runCtx, def.Steps(), r)
	}()

	return r.id, nil
}

// GetSaga returns the current state of a saga instance
func (o *Orchestrator) GetSaga(id models.ID) (*Snapshot, error) {
	r, ok := o.runs.Load(id.String())
	if !ok {
		return nil, errors.Wrapf(ErrInstanceNotFound, "%s", id)
	}
	return r.snapshot(), nil
}

// CancelSaga stops forward execution of a running saga before its next step.
// Already-completed steps are still compensated; cancellation converts
// directly into the compensating path.
func (o *Orchestrator) CancelSaga(id models.ID) error {
	r, ok := o.runs.Load(id.String())
	if !ok {
		return errors.Wrapf(ErrInstanceNotFound, "%s", id)
	}
	r.cancel()
	return nil
}

// Wait blocks until every in-flight saga reaches a terminal state or the
// context is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute drives one instance through its steps. Each instance executes
// strictly sequentially; later steps see data produced by earlier ones.
func (o *Orchestrator) execute(ctx context.Context, steps []Step, r *run) {
	defer close(r.done)

	start := time.Now()

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			o.beginCompensation(ctx, r, "", err)
			o.compensate(ctx, r)
			return
		}

		r.mu.Lock()
		stepInput := r.data.Clone()
		r.mu.Unlock()

		output, err := step.Execute(ctx, stepInput)
		if err != nil {
			stepErr := &StepError{StepName: step.Name(), Cause: err}
			telemetry.RecordCounter(ctx, "saga_step_failures_total", "Saga step execution failures", 1,
				attribute.String("definition", r.definitionName),
				attribute.String("step", step.Name()),
			)
			o.beginCompensation(ctx, r, step.Name(), stepErr)
			o.compensate(ctx, r)
			return
		}

		r.mu.Lock()
		r.data = r.data.Merge(output)
		r.completed = append(r.completed, step)
		r.timestamps = r.timestamps.Update()
		r.mu.Unlock()

		o.persist(ctx, r)
		o.publish(ctx, events.NewEvent(r.id, events.SagaStepCompletedEvent, SagaStepData{
			SagaID:     r.id,
			Definition: r.definitionName,
			Step:       step.Name(),
		}))
	}

	r.mu.Lock()
	r.status = StatusCompleted
	r.timestamps = r.timestamps.Update()
	r.mu.Unlock()

	o.persist(ctx, r)
	o.publish(ctx, events.NewEvent(r.id, events.SagaCompletedEvent, SagaCompletedData{
		SagaID:     r.id,
		Definition: r.definitionName,
	}))

	telemetry.RecordCounter(ctx, "saga_completed_total", "Sagas completed", 1,
		attribute.String("definition", r.definitionName),
	)
	telemetry.RecordHistogram(ctx, "saga_duration_seconds", "Saga execution duration", time.Since(start).Seconds(),
		attribute.String("definition", r.definitionName),
		attribute.String("outcome", string(StatusCompleted)),
	)
}

func (o *Orchestrator) beginCompensation(ctx context.Context, r *run, failedStep string, cause error) {
	r.mu.Lock()
	r.failedStep = failedStep
	r.errMsg = cause.Error()
	r.status = StatusCompensating
	r.timestamps = r.timestamps.Update()
	r.mu.Unlock()

	o.persist(ctx, r)
}

// compensate rolls back completed steps in exact reverse completion order.
// Individual compensation failures are logged and collected but never halt
// the loop; maximal rollback is preferred over aborting early.
func (o *Orchestrator) compensate(ctx context.Context, r *run) {
	// Compensation must run even when the saga was cancelled
	compCtx := context.WithoutCancel(ctx)

	r.mu.Lock()
	completed := append([]Step(nil), r.completed...)
	data := r.data.Clone()
	r.mu.Unlock()

	var compErrors []error
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if err := step.Compensate(compCtx, data); err != nil {
			fmt.Printf("Compensation of step %s failed for saga %s: %v\n", step.Name(), r.id, err)
			compErrors = append(compErrors, errors.Wrapf(err, "compensate %s", step.Name()))
			continue
		}

		o.publish(compCtx, events.NewEvent(r.id, events.SagaStepCompensatedEvent, SagaStepData{
			SagaID:     r.id,
			Definition: r.definitionName,
			Step:       step.Name(),
		}))
	}

	r.mu.Lock()
	if len(compErrors) > 0 {
		r.status = StatusFailed
		r.errMsg = (&CompensationFailedError{
			FailedStep:         r.failedStep,
			CompensationErrors: compErrors,
		}).Error()
	} else {
		r.status = StatusCompensated
	}
	status := r.status
	failedStep := r.failedStep
	reason := r.errMsg
	r.timestamps = r.timestamps.Update()
	r.mu.Unlock()

	o.persist(compCtx, r)

	if status == StatusFailed {
		msgs := make([]string, len(compErrors))
		for i, err := range compErrors {
			msgs[i] = err.Error()
		}
		o.publish(compCtx, events.NewEvent(r.id, events.SagaCompensationFailedEvent, SagaCompensationFailedData{
			SagaID:             r.id,
			Definition:         r.definitionName,
			FailedStep:         failedStep,
			CompensationErrors: msgs,
		}))
		telemetry.RecordCounter(compCtx, "saga_compensation_failures_total", "Sagas whose compensation could not complete", 1,
			attribute.String("definition", r.definitionName),
		)
		return
	}

	o.publish(compCtx, events.NewEvent(r.id, events.SagaCompensatedEvent, SagaCompensatedData{
		SagaID:     r.id,
		Definition: r.definitionName,
		FailedStep: failedStep,
		Reason:     reason,
	}))
	telemetry.RecordCounter(compCtx, "saga_compensated_total", "Sagas rolled back successfully", 1,
		attribute.String("definition", r.definitionName),
	)
}

// RecoverIncomplete loads non-terminal instances from the store and drives
// them to compensation. Forward execution is not resumed: steps are
// at-least-once and compensations idempotent, so rolling back is the
// conservative choice after a crash.
func (o *Orchestrator) RecoverIncomplete(ctx context.Context) error {
	if o.store == nil {
		return nil
	}

	snapshots, err := o.store.LoadIncomplete(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load incomplete sagas")
	}

	for _, snapshot := range snapshots {
		def, ok := o.definitions.Load(snapshot.DefinitionName)
		if !ok {
			fmt.Printf("Cannot recover saga %s: definition %s not registered\n", snapshot.ID, snapshot.DefinitionName)
			continue
		}

		// Compensation follows what the instance actually completed, not
		// the current definition shape.
		completed := make([]Step, 0, len(snapshot.CompletedSteps))
		for _, name := range snapshot.CompletedSteps {
			step, found := def.step(name)
			if !found {
				fmt.Printf("Saga %s: completed step %s missing from definition %s, skipping its compensation\n",
					snapshot.ID, name, snapshot.DefinitionName)
				continue
			}
			completed = append(completed, step)
		}

		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		r := &run{
			id:             snapshot.ID,
			definitionName: snapshot.DefinitionName,
			data:           snapshot.Data.Clone(),
			completed:      completed,
			failedStep:     snapshot.FailedStep,
			status:         StatusCompensating,
			errMsg:         "recovered after restart",
			timestamps:     snapshot.Timestamps.Update(),
			cancel:         cancel,
			done:           make(chan struct{}),
		}
		if snapshot.Error != "" {
			r.errMsg = snapshot.Error
		}

		o.runs.Store(r.id.String(), r)
		o.persist(runCtx, r)

		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			defer cancel()
			defer close(r.done)
			o.compensate(runCtx, r)
		}()
	}

	return nil
}

func (o *Orchestrator) persist(ctx context.Context, r *run) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveInstance(ctx, r.snapshot()); err != nil {
		fmt.Printf("Failed to persist saga %s: %v\n", r.id, err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, event *events.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		fmt.Printf("Failed to publish %s for saga %s: %v\n", event.EventType, event.AggregateID, err)
	}
}

// Event data structures

type SagaStartedData struct {
	SagaID     models.ID `json:"saga_id"`
	Definition string    `json:"definition"`
}

type SagaCompletedData struct {
	SagaID     models.ID `json:"saga_id"`
	Definition string    `json:"definition"`
}

type SagaCompensatedData struct {
	SagaID     models.ID `json:"saga_id"`
	Definition string    `json:"definition"`
	FailedStep string    `json:"failed_step"`
	Reason     string    `json:"reason"`
}

type SagaCompensationFailedData struct {
	SagaID             models.ID `json:"saga_id"`
	Definition         string    `json:"definition"`
	FailedStep         string    `json:"failed_step"`
	CompensationErrors []string  `json:"compensation_errors"`
}

type SagaStepData struct {
	SagaID     models.ID `json:"saga_id"`
	Definition string    `json:"definition"`
	Step       string    `json:"step"`
}
