package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/draftea/saga-coordinator/shared/discovery"
	"github.com/draftea/saga-coordinator/shared/resilience"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticBackend always returns the same single instance
type staticBackend struct{}

func (staticBackend) ListHealthyInstances(context.Context, string) ([]discovery.Instance, error) {
	return []discovery.Instance{{Address: "10.0.0.1", Port: 8082}}, nil
}

// scriptedTransport returns queued results in order, repeating the last one
type scriptedTransport struct {
	mu      sync.Mutex
	results []transportResult
	calls   int
}

type transportResult struct {
	body []byte
	err  error
}

func (t *scriptedTransport) Invoke(_ context.Context, _ discovery.Endpoint, _ string, _ []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.calls
	if i >= len(t.results) {
		i = len(t.results) - 1
	}
	t.calls++
	return t.results[i].body, t.results[i].err
}

func (t *scriptedTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// newTestClient builds a client with an instant sleep that records delays
func newTestClient(transport Transport) (*Client, *resilience.Registry, *[]time.Duration) {
	registry := resilience.NewRegistry(resilience.DefaultConfig())
	resolver := discovery.NewResolver(staticBackend{})
	c := NewClient(resolver, registry, transport, DefaultConfig())

	delays := &[]time.Duration{}
	var mu sync.Mutex
	c.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		*delays = append(*delays, d)
		return nil
	}

	return c, registry, delays
}

func TestClient_SuccessOnFirstAttempt(t *testing.T) {
	transport := &scriptedTransport{results: []transportResult{
		{body: []byte(`{"payment_id":"pay-456"}`)},
	}}
	c, registry, delays := newTestClient(transport)

	result, err := c.Call(context.Background(), "payments-service", "payments/charge", []byte(`{}`))

	require.NoError(t, err)
	assert.Equal(t, []byte(`{"payment_id":"pay-456"}`), result)
	assert.Equal(t, 1, transport.callCount())
	assert.Empty(t, *delays)

	stats := registry.Get("payments-service").Stats()
	assert.Equal(t, 1, stats.RequestCount)
	assert.Equal(t, 1, stats.SuccessCount)
}

func TestClient_RetriesTransientFailuresWithBackoff(t *testing.T) {
	transport := &scriptedTransport{results: []transportResult{
		{err: MarkTransient(errors.New("connection refused"))},
		{err: MarkTransient(errors.New("connection refused"))},
		{body: []byte(`{}`)},
	}}
	c, registry, delays := newTestClient(transport)

	_, err := c.Call(context.Background(), "payments-service", "payments/charge", []byte(`{}`))

	require.NoError(t, err)
	assert.Equal(t, 3, transport.callCount())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *delays)

	// The whole retried call is one breaker observation, and a successful one
	stats := registry.Get("payments-service").Stats()
	assert.Equal(t, 1, stats.RequestCount)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 0, stats.FailureCount)
}

func TestClient_ExhaustedRetriesCountOnceAgainstBreaker(t *testing.T) {
	transport := &scriptedTransport{results: []transportResult{
		{err: MarkTransient(errors.New("connection refused"))},
	}}
	c, registry, delays := newTestClient(transport)

	_, err := c.Call(context.Background(), "payments-service", "payments/charge", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")

	// Initial attempt plus three retries
	assert.Equal(t, 4, transport.callCount())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *delays)

	stats := registry.Get("payments-service").Stats()
	assert.Equal(t, 1, stats.RequestCount)
	assert.Equal(t, 1, stats.FailureCount)
}

func TestClient_NonTransientErrorIsNotRetried(t *testing.T) {
	transport := &scriptedTransport{results: []transportResult{
		{err: &RemoteError{Operation: "payments/charge", StatusCode: 422, Body: "card declined"}},
	}}
	c, registry, delays := newTestClient(transport)

	_, err := c.Call(context.Background(), "payments-service", "payments/charge", []byte(`{}`))

	require.Error(t, err)
	assert.Equal(t, 1, transport.callCount())
	assert.Empty(t, *delays)

	// Still a failure in the breaker's eyes
	stats := registry.Get("payments-service").Stats()
	assert.Equal(t, 1, stats.FailureCount)
}

func TestClient_OpenBreakerFailsFast(t *testing.T) {
	transport := &scriptedTransport{results: []transportResult{
		{err: &RemoteError{Operation: "payments/charge", StatusCode: 500, Body: "boom"}},
	}}
	c, _, _ := newTestClient(transport)

	// Trip the breaker with consecutive failed calls
	for i := 0; i < 5; i++ {
		_, err := c.Call(context.Background(), "payments-service", "payments/charge", []byte(`{}`))
		require.Error(t, err)
	}
	invocationsWhenTripped := transport.callCount()

	_, err := c.Call(context.Background(), "payments-service", "payments/charge", []byte(`{}`))

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	// The transport is never touched while the breaker is open
	assert.Equal(t, invocationsWhenTripped, transport.callCount())
}

func TestClient_DeadlineMapsToTimeout(t *testing.T) {
	transport := &scriptedTransport{results: []transportResult{
		{err: context.DeadlineExceeded},
	}}
	c, _, _ := newTestClient(transport)

	_, err := c.Call(context.Background(), "payments-service", "payments/charge", []byte(`{}`))

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClient_BreakersArePerService(t *testing.T) {
	failing := &scriptedTransport{results: []transportResult{
		{err: &RemoteError{Operation: "payments/charge", StatusCode: 500, Body: "boom"}},
	}}
	c, registry, _ := newTestClient(failing)

	for i := 0; i < 5; i++ {
		_, _ = c.Call(context.Background(), "payments-service", "payments/charge", []byte(`{}`))
	}

	assert.Equal(t, resilience.StateOpen, registry.Get("payments-service").State())
	assert.Equal(t, resilience.StateClosed, registry.Get("orders-service").State())
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.True(t, IsTransient(MarkTransient(errors.New("conn reset"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(errors.Wrap(MarkTransient(errors.New("conn reset")), "wrapped")))
	assert.False(t, IsTransient(&RemoteError{Operation: "op", StatusCode: 404}))
	assert.True(t, IsTransient(MarkTransient(&RemoteError{Operation: "op", StatusCode: 503})))
}
