package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/draftea/saga-coordinator/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ErrCircuitOpen is returned when the breaker short-circuits a call without
// invoking the wrapped action.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Clock abstracts time for deterministic tests
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config controls the breaker state machine thresholds
type Config struct {
	FailureThreshold       int           `mapstructure:"failure_threshold"`
	RequestVolumeThreshold int           `mapstructure:"request_volume_threshold"`
	ErrorPercentThreshold  float64       `mapstructure:"error_percent_threshold"`
	RecoveryTimeout        time.Duration `mapstructure:"recovery_timeout"`
}

// DefaultConfig returns the default breaker thresholds
func DefaultConfig() Config {
	return Config{
		FailureThreshold:       5,
		RequestVolumeThreshold: 10,
		ErrorPercentThreshold:  50,
		RecoveryTimeout:        30 * time.Second,
	}
}

// Stats holds the rolling call statistics for one breaker.
// Mutated only by the owning breaker under its own lock.
type Stats struct {
	FailureCount  int
	SuccessCount  int
	RequestCount  int
	ErrorCount    int
	NextAttemptAt time.Time
	State         State
}

// Breaker wraps outbound calls to a single target and short-circuits them
// while the target is deemed unhealthy.
type Breaker struct {
	name   string
	config Config
	clock  Clock

	mu            sync.Mutex
	stats         Stats
	trialInFlight bool
}

// Option configures a Breaker
type Option func(*Breaker)

// WithClock injects a clock, used by tests to control time
func WithClock(clock Clock) Option {
	return func(b *Breaker) {
		b.clock = clock
	}
}

// NewBreaker creates a breaker for the named target
func NewBreaker(name string, config Config, opts ...Option) *Breaker {
	b := &Breaker{
		name:   name,
		config: config,
		clock:  systemClock{},
		stats:  Stats{State: StateClosed},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Name returns the target name this breaker protects
func (b *Breaker) Name() string {
	return b.name
}

// Stats returns a copy of the current statistics
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// State returns the current breaker state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats.State
}

// Execute runs the action through the breaker. While the breaker is open and
// the recovery timeout has not elapsed, the action is not invoked and
// ErrCircuitOpen is returned. The first call after the recovery timeout is
// allowed through as a half-open trial.
func (b *Breaker) Execute(ctx context.Context, action func(context.Context) error) error {
	trial, err := b.allow(ctx)
	if err != nil {
		telemetry.RecordCounter(ctx, "circuit_breaker_rejected_total", "Calls rejected by an open breaker", 1,
			attribute.String("breaker", b.name),
		)
		return err
	}

	actionErr := action(ctx)
	b.record(ctx, trial, actionErr)
	return actionErr
}

// allow decides whether a call may proceed. It reports whether the call is a
// half-open trial.
func (b *Breaker) allow(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stats.State {
	case StateClosed:
		return false, nil

	case StateOpen:
		if b.clock.Now().Before(b.stats.NextAttemptAt) {
			return false, errors.Wrapf(ErrCircuitOpen, "target %s", b.name)
		}
		b.transition(ctx, StateHalfOpen)
		b.trialInFlight = true
		return true, nil

	case StateHalfOpen:
		if b.trialInFlight {
			return false, errors.Wrapf(ErrCircuitOpen, "target %s: trial in flight", b.name)
		}
		b.trialInFlight = true
		return true, nil

	default:
		return false, errors.Errorf("breaker %s in unknown state %d", b.name, b.stats.State)
	}
}

// record applies the call outcome to the statistics and drives state
// transitions.
func (b *Breaker) record(ctx context.Context, trial bool, actionErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.RequestCount++

	if trial {
		b.trialInFlight = false
		if actionErr != nil {
			b.stats.ErrorCount++
			b.stats.FailureCount++
			b.stats.NextAttemptAt = b.clock.Now().Add(b.config.RecoveryTimeout)
			b.transition(ctx, StateOpen)
			return
		}
		b.stats = Stats{State: b.stats.State}
		b.transition(ctx, StateClosed)
		return
	}

	if actionErr != nil {
		b.stats.ErrorCount++
		b.stats.FailureCount++

		if b.shouldTrip() {
			b.stats.NextAttemptAt = b.clock.Now().Add(b.config.RecoveryTimeout)
			b.transition(ctx, StateOpen)
		}
		return
	}

	b.stats.SuccessCount++
	b.stats.FailureCount = 0
}

// shouldTrip is evaluated in CLOSED state with the lock held
func (b *Breaker) shouldTrip() bool {
	if b.stats.FailureCount >= b.config.FailureThreshold {
		return true
	}

	if b.stats.RequestCount >= b.config.RequestVolumeThreshold {
		errorPercent := float64(b.stats.ErrorCount) / float64(b.stats.RequestCount) * 100
		if errorPercent >= b.config.ErrorPercentThreshold {
			return true
		}
	}

	return false
}

// transition updates the state with the lock held and emits a metric
func (b *Breaker) transition(ctx context.Context, to State) {
	from := b.stats.State
	if from == to {
		return
	}
	b.stats.State = to

	telemetry.RecordCounter(ctx, "circuit_breaker_transitions_total", "Circuit breaker state transitions", 1,
		attribute.String("breaker", b.name),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)
}

// Reset forces the breaker back to closed with zeroed statistics
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = Stats{State: StateClosed}
	b.trialInFlight = false
}
