package discovery

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/draftea/saga-coordinator/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotFound is returned when no healthy instance exists for a service
var ErrNotFound = errors.New("no healthy instance found")

// DefaultCacheTTL is how long a resolved endpoint stays fresh
const DefaultCacheTTL = 30 * time.Second

// Instance is a single service instance as reported by the discovery backend
type Instance struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// Endpoint is a resolved network endpoint. Immutable once issued; callers
// re-resolve to get fresh data.
type Endpoint struct {
	ServiceName   string
	Address       string
	Port          int
	LastRefreshed time.Time
}

// HostPort returns the endpoint in host:port form
func (e Endpoint) HostPort() string {
	return fmt.Sprintf("%s:%d", e.Address, e.Port)
}

// Discovery lists healthy instances for a logical service name
type Discovery interface {
	ListHealthyInstances(ctx context.Context, serviceName string) ([]Instance, error)
}

// Clock abstracts time for deterministic tests
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	endpoint    Endpoint
	refreshedAt time.Time
}

// Resolver maps logical service names to concrete endpoints, caching results
// per service with a TTL and balancing across healthy instances at random.
type Resolver struct {
	backend Discovery
	ttl     time.Duration
	clock   Clock
	cache   *xsync.MapOf[string, cacheEntry]
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithCacheTTL overrides the default cache TTL
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithClock injects a clock, used by tests to control time
func WithClock(clock Clock) ResolverOption {
	return func(r *Resolver) {
		r.clock = clock
	}
}

// NewResolver creates a resolver backed by the given discovery backend
func NewResolver(backend Discovery, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		backend: backend,
		ttl:     DefaultCacheTTL,
		clock:   systemClock{},
		cache:   xsync.NewMapOf[string, cacheEntry](),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns a healthy endpoint for the service. Cache hits within the
// TTL never touch the discovery backend. On backend failure the last-known-good
// endpoint is returned even past its TTL; staleness is preferred over
// unavailability.
func (r *Resolver) Resolve(ctx context.Context, serviceName string) (Endpoint, error) {
	now := r.clock.Now()

	entry, cached := r.cache.Load(serviceName)
	if cached && now.Sub(entry.refreshedAt) < r.ttl {
		telemetry.RecordCounter(ctx, "resolver_cache_hits_total", "Resolver cache hits", 1,
			attribute.String("service", serviceName),
		)
		return entry.endpoint, nil
	}

	instances, err := r.backend.ListHealthyInstances(ctx, serviceName)
	if err != nil {
		if cached {
			telemetry.RecordCounter(ctx, "resolver_stale_fallbacks_total", "Resolutions served from an expired cache entry", 1,
				attribute.String("service", serviceName),
			)
			return entry.endpoint, nil
		}
		return Endpoint{}, errors.Wrapf(ErrNotFound, "service %s: discovery backend: %v", serviceName, err)
	}

	if len(instances) == 0 {
		return Endpoint{}, errors.Wrapf(ErrNotFound, "service %s", serviceName)
	}

	instance := instances[rand.IntN(len(instances))]

	endpoint := Endpoint{
		ServiceName:   serviceName,
		Address:       instance.Address,
		Port:          instance.Port,
		LastRefreshed: now,
	}

	r.cache.Store(serviceName, cacheEntry{
		endpoint:    endpoint,
		refreshedAt: now,
	})

	telemetry.RecordCounter(ctx, "resolver_cache_refreshes_total", "Resolver cache refreshes from the discovery backend", 1,
		attribute.String("service", serviceName),
	)

	return endpoint, nil
}

// Invalidate drops the cache entry for a service, forcing the next Resolve
// to hit the discovery backend.
func (r *Resolver) Invalidate(serviceName string) {
	r.cache.Delete(serviceName)
}
