package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errRemote = errors.New("remote failure")

func failingAction(counter *int) func(context.Context) error {
	return func(context.Context) error {
		*counter++
		return errRemote
	}
}

func succeedingAction(counter *int) func(context.Context) error {
	return func(context.Context) error {
		*counter++
		return nil
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("payments-service", DefaultConfig(), WithClock(clock))

	var invocations int
	for i := 0; i < 5; i++ {
		err := b.Execute(context.Background(), failingAction(&invocations))
		assert.ErrorIs(t, err, errRemote)
	}

	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, 5, invocations)
}

func TestBreaker_OpenFailsFastWithoutInvokingAction(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("payments-service", DefaultConfig(), WithClock(clock))

	var invocations int
	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), failingAction(&invocations))
	}
	require.Equal(t, StateOpen, b.State())
	require.Equal(t, 5, invocations)

	// Calls while open never reach the action
	err := b.Execute(context.Background(), failingAction(&invocations))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 5, invocations)
}

func TestBreaker_SuccessResetsConsecutiveFailureCount(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("payments-service", DefaultConfig(), WithClock(clock))

	var failures, successes int
	for i := 0; i < 4; i++ {
		_ = b.Execute(context.Background(), failingAction(&failures))
	}
	require.Equal(t, StateClosed, b.State())

	require.NoError(t, b.Execute(context.Background(), succeedingAction(&successes)))

	// The consecutive counter starts over, so four more failures stay closed
	for i := 0; i < 4; i++ {
		_ = b.Execute(context.Background(), failingAction(&failures))
	}
	assert.Equal(t, StateClosed, b.State())

	_ = b.Execute(context.Background(), failingAction(&failures))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_TripsOnErrorPercentageAtVolume(t *testing.T) {
	clock := newFakeClock()
	config := Config{
		FailureThreshold:       100, // keep the consecutive rule out of the way
		RequestVolumeThreshold: 10,
		ErrorPercentThreshold:  50,
		RecoveryTimeout:        30 * time.Second,
	}
	b := NewBreaker("payments-service", config, WithClock(clock))

	var failures, successes int

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Execute(context.Background(), succeedingAction(&successes)))
	}

	// Below the volume threshold the error percentage is not consulted
	for i := 0; i < 4; i++ {
		_ = b.Execute(context.Background(), failingAction(&failures))
	}
	require.Equal(t, StateClosed, b.State())

	// 10 requests with 5 errors hits the 50 percent threshold
	_ = b.Execute(context.Background(), failingAction(&failures))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenTrialAfterRecoveryTimeout(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("payments-service", DefaultConfig(), WithClock(clock))

	var failures int
	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), failingAction(&failures))
	}
	require.Equal(t, StateOpen, b.State())

	// Not yet
	clock.Advance(29 * time.Second)
	err := b.Execute(context.Background(), failingAction(&failures))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 5, failures)

	// After the timeout one trial call goes through
	clock.Advance(2 * time.Second)
	var successes int
	require.NoError(t, b.Execute(context.Background(), succeedingAction(&successes)))
	assert.Equal(t, 1, successes)
	assert.Equal(t, StateClosed, b.State())

	// Recovery wipes the statistics
	stats := b.Stats()
	assert.Equal(t, 0, stats.FailureCount)
	assert.Equal(t, 0, stats.ErrorCount)
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("payments-service", DefaultConfig(), WithClock(clock))

	var failures int
	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), failingAction(&failures))
	}
	require.Equal(t, StateOpen, b.State())

	clock.Advance(31 * time.Second)
	err := b.Execute(context.Background(), failingAction(&failures))
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, StateOpen, b.State())

	// The failed trial restarts the recovery timeout
	clock.Advance(15 * time.Second)
	err = b.Execute(context.Background(), failingAction(&failures))
	assert.ErrorIs(t, err, ErrCircuitOpen)

	clock.Advance(16 * time.Second)
	var successes int
	require.NoError(t, b.Execute(context.Background(), succeedingAction(&successes)))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenAllowsSingleTrial(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("payments-service", DefaultConfig(), WithClock(clock))

	var failures int
	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), failingAction(&failures))
	}
	clock.Advance(31 * time.Second)

	trialStarted := make(chan struct{})
	release := make(chan struct{})
	trialDone := make(chan error, 1)

	go func() {
		trialDone <- b.Execute(context.Background(), func(context.Context) error {
			close(trialStarted)
			<-release
			return nil
		})
	}()

	<-trialStarted

	// While the trial is in flight, other calls are rejected
	err := b.Execute(context.Background(), failingAction(&failures))
	assert.ErrorIs(t, err, ErrCircuitOpen)

	close(release)
	require.NoError(t, <-trialDone)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("payments-service", DefaultConfig(), WithClock(clock))

	var failures int
	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), failingAction(&failures))
	}
	require.Equal(t, StateOpen, b.State())

	b.Reset()

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, Stats{State: StateClosed}, b.Stats())
}

func TestRegistry_GetCreatesAndReusesBreakers(t *testing.T) {
	registry := NewRegistry(DefaultConfig())

	first := registry.Get("payments-service")
	second := registry.Get("payments-service")
	other := registry.Get("orders-service")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
	assert.Equal(t, "payments-service", first.Name())
}

func TestRegistry_StatesSnapshot(t *testing.T) {
	registry := NewRegistry(DefaultConfig())

	var failures int
	b := registry.Get("payments-service")
	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), failingAction(&failures))
	}
	registry.Get("orders-service")

	states := registry.States()

	require.Len(t, states, 2)
	assert.Equal(t, StateOpen, states["payments-service"].State)
	assert.Equal(t, StateClosed, states["orders-service"].State)
}
