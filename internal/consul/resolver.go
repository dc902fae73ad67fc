package consul

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scsb/internal/downstream"
)

// ResolveEndpoints looks up one healthy instance per service and returns
// registry endpoints for them. Every service must resolve; a partial
// registry is reported as an error.
func ResolveEndpoints(
	ctx context.Context,
	discovery ServiceDiscovery,
	names map[downstream.ServiceID]string,
	timeouts map[downstream.ServiceID]time.Duration,
) (map[downstream.ServiceID]downstream.Endpoint, error) {
	endpoints := make(map[downstream.ServiceID]downstream.Endpoint, len(names))
	var errs []error

	for id, name := range names {
		instance, err := discovery.DiscoverOne(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %s: %w", id, err))
			continue
		}
		endpoints[id] = downstream.Endpoint{
			URL:     instance.BaseURL(),
			Timeout: timeouts[id],
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return endpoints, nil
}
