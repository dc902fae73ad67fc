package consul

import (
	"context"
	"fmt"
	"math/rand/v2"

	consulapi "github.com/hashicorp/consul/api"
)

// TagHTTPS marks instances that must be called over TLS
const TagHTTPS = "https"

// ServiceInstance represents a discovered service instance
type ServiceInstance struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
}

// Scheme returns the URL scheme for the instance
func (s *ServiceInstance) Scheme() string {
	for _, tag := range s.Tags {
		if tag == TagHTTPS {
			return "https"
		}
	}
	return "http"
}

// BaseURL returns scheme://address:port
func (s *ServiceInstance) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", s.Scheme(), s.Address, s.Port)
}

// ServiceDiscovery defines the interface for service discovery
type ServiceDiscovery interface {
	Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error)
	DiscoverOne(ctx context.Context, serviceName string) (*ServiceInstance, error)
}

// Discover retrieves all healthy instances of a service
func (c *Client) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	opts := (&consulapi.QueryOptions{}).WithContext(ctx)
	services, _, err := c.api.Health().Service(serviceName, "", true, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to discover service %s: %w", serviceName, err)
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no healthy instances found for service: %s", serviceName)
	}

	instances := make([]*ServiceInstance, 0, len(services))
	for _, entry := range services {
		instance := &ServiceInstance{
			ID:      entry.Service.ID,
			Name:    entry.Service.Service,
			Address: entry.Service.Address,
			Port:    entry.Service.Port,
			Tags:    entry.Service.Tags,
		}

		// Use node address if service address is empty
		if instance.Address == "" && entry.Node != nil {
			instance.Address = entry.Node.Address
		}

		instances = append(instances, instance)
	}

	return instances, nil
}

// DiscoverOne retrieves a single healthy instance using random selection
func (c *Client) DiscoverOne(ctx context.Context, serviceName string) (*ServiceInstance, error) {
	instances, err := c.Discover(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	return pickOne(serviceName, instances)
}

func pickOne(serviceName string, instances []*ServiceInstance) (*ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, fmt.Errorf("no instances available for service: %s", serviceName)
	}
	return instances[rand.IntN(len(instances))], nil
}
