package infrastructure

import (
	"context"

	"github.com/draftea/saga-coordinator/shared/discovery"
	"github.com/pkg/errors"
)

// StaticDiscovery serves instances from a fixed config-driven registry.
// Suitable for local environments and deployments where participants sit
// behind stable addresses.
type StaticDiscovery struct {
	services map[string][]discovery.Instance
}

// NewStaticDiscovery creates a discovery backend from a service to instances map
func NewStaticDiscovery(services map[string][]discovery.Instance) *StaticDiscovery {
	if services == nil {
		services = make(map[string][]discovery.Instance)
	}
	return &StaticDiscovery{services: services}
}

// ListHealthyInstances implements discovery.Discovery
func (d *StaticDiscovery) ListHealthyInstances(_ context.Context, serviceName string) ([]discovery.Instance, error) {
	instances, ok := d.services[serviceName]
	if !ok {
		return nil, errors.Errorf("service %s is not registered", serviceName)
	}

	out := make([]discovery.Instance, len(instances))
	copy(out, instances)
	return out, nil
}
