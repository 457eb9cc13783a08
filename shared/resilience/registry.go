package resilience

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry holds one breaker per logical target name. Breakers are created
// lazily on first use and live for the process lifetime.
type Registry struct {
	breakers *xsync.MapOf[string, *Breaker]
	config   Config
	opts     []Option
}

// NewRegistry creates a breaker registry. All breakers share the given config.
func NewRegistry(config Config, opts ...Option) *Registry {
	return &Registry{
		breakers: xsync.NewMapOf[string, *Breaker](),
		config:   config,
		opts:     opts,
	}
}

// Get returns the breaker for the target, creating it on first use
func (r *Registry) Get(name string) *Breaker {
	breaker, _ := r.breakers.LoadOrCompute(name, func() *Breaker {
		return NewBreaker(name, r.config, r.opts...)
	})
	return breaker
}

// States returns a snapshot of all known breakers and their states
func (r *Registry) States() map[string]Stats {
	snapshot := make(map[string]Stats)
	r.breakers.Range(func(name string, breaker *Breaker) bool {
		snapshot[name] = breaker.Stats()
		return true
	})
	return snapshot
}
