package client

import (
	"context"
	"net"
	"time"

	"github.com/draftea/saga-coordinator/shared/discovery"
	"github.com/draftea/saga-coordinator/shared/resilience"
	"github.com/draftea/saga-coordinator/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrServiceUnavailable is returned when the target's circuit breaker is open
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout is returned when every attempt of a call exceeded its deadline
	ErrTimeout = errors.New("call timed out")

	// errTransient marks errors that are worth retrying
	errTransient = errors.New("transient error")
)

// MarkTransient wraps an error so IsTransient reports true for it. Transports
// use it to flag connection-level failures that a retry may resolve.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err}
}

type transientError struct {
	cause error
}

func (e transientError) Error() string { return e.cause.Error() }
func (e transientError) Unwrap() error { return e.cause }
func (e transientError) Is(target error) bool {
	return target == errTransient
}

// IsTransient reports whether an error is retriable: an explicit transient
// mark, a deadline, or a network timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Transport performs a single remote invocation against a concrete endpoint
type Transport interface {
	Invoke(ctx context.Context, endpoint discovery.Endpoint, operation string, payload []byte) ([]byte, error)
}

// Config controls per-call retry and timeout behavior
type Config struct {
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// DefaultConfig returns the default client tunables
func DefaultConfig() Config {
	return Config{
		AttemptTimeout: 5 * time.Second,
		MaxRetries:     3,
	}
}

// Client composes the resolver, the breaker registry and a transport into a
// single remote-operation call with bounded retries.
type Client struct {
	resolver  *discovery.Resolver
	breakers  *resilience.Registry
	transport Transport
	config    Config
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewClient creates a resilient client
func NewClient(resolver *discovery.Resolver, breakers *resilience.Registry, transport Transport, config Config) *Client {
	return &Client{
		resolver:  resolver,
		breakers:  breakers,
		transport: transport,
		config:    config,
		sleep:     sleepContext,
	}
}

// Call performs one remote operation against the named service. Transient
// failures are retried with exponential backoff inside a single breaker
// observation, so one Call counts once against the target's breaker no matter
// how many attempts it took.
func (c *Client) Call(ctx context.Context, serviceName, operation string, payload []byte) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "client.Call")
	defer span.End()

	breaker := c.breakers.Get(serviceName)

	var result []byte
	err := breaker.Execute(ctx, func(ctx context.Context) error {
		res, callErr := c.callWithRetries(ctx, serviceName, operation, payload)
		if callErr != nil {
			return callErr
		}
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, errors.Wrapf(ErrServiceUnavailable, "service %s: %v", serviceName, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrapf(ErrTimeout, "service %s operation %s: %v", serviceName, operation, err)
		}
		return nil, err
	}

	return result, nil
}

func (c *Client) callWithRetries(ctx context.Context, serviceName, operation string, payload []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoffDelay(attempt)); err != nil {
				return nil, err
			}

			telemetry.RecordCounter(ctx, "client_retries_total", "Remote call retries", 1,
				attribute.String("service", serviceName),
				attribute.String("operation", operation),
			)
		}

		endpoint, err := c.resolver.Resolve(ctx, serviceName)
		if err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.config.AttemptTimeout)
		result, err := c.transport.Invoke(attemptCtx, endpoint, operation, payload)
		cancel()

		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !IsTransient(err) {
			return nil, err
		}

		// The endpoint may be the one that is failing; force a fresh
		// resolution on the next attempt.
		c.resolver.Invalidate(serviceName)
		lastErr = err
	}

	return nil, errors.Wrapf(lastErr, "service %s operation %s: retries exhausted", serviceName, operation)
}

// backoffDelay returns 2^attempt seconds
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
