// Package downstream resolves SCSB microservices by identifier and issues
// single-attempt HTTP calls against them.
package downstream

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"
)

// ServiceID identifies a downstream microservice
type ServiceID string

// Known SCSB services
const (
	SolrClient ServiceID = "solr-client"
	Circ       ServiceID = "circ"
	Core       ServiceID = "core"
	Schedule   ServiceID = "schedule"
)

// ErrUnknownService is returned when a service id has no registered base URL.
// Routes are validated against the registry at startup, so seeing this at
// request time means the route table and configuration disagree.
var ErrUnknownService = errors.New("unknown downstream service")

// Endpoint is the configured location of one service
type Endpoint struct {
	URL     string
	Timeout time.Duration // zero means the client default
}

// Service is a resolved registry entry
type Service struct {
	ID      ServiceID
	BaseURL *url.URL
	Timeout time.Duration
}

// Registry maps service ids to base URLs. It is built once and never
// mutated, so concurrent readers need no locking.
type Registry struct {
	services map[ServiceID]Service
}

// NewRegistry validates the endpoints and builds an immutable registry
func NewRegistry(endpoints map[ServiceID]Endpoint) (*Registry, error) {
	services := make(map[ServiceID]Service, len(endpoints))

	for id, ep := range endpoints {
		if id == "" {
			return nil, errors.New("service id cannot be empty")
		}

		u, err := url.Parse(ep.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL for service %s: %w", id, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("base URL for service %s must be http or https, got %q", id, ep.URL)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("base URL for service %s has no host: %q", id, ep.URL)
		}
		if ep.Timeout < 0 {
			return nil, fmt.Errorf("timeout for service %s cannot be negative", id)
		}

		services[id] = Service{ID: id, BaseURL: u, Timeout: ep.Timeout}
	}

	return &Registry{services: services}, nil
}

// Lookup returns the service registered under id
func (r *Registry) Lookup(id ServiceID) (Service, error) {
	svc, ok := r.services[id]
	if !ok {
		return Service{}, fmt.Errorf("%w: %s", ErrUnknownService, id)
	}
	return svc, nil
}

// Has reports whether id is registered
func (r *Registry) Has(id ServiceID) bool {
	_, ok := r.services[id]
	return ok
}

// Services returns all entries sorted by id
func (r *Registry) Services() []Service {
	out := make([]Service, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// URLFor joins the service base URL with path
func (r *Registry) URLFor(id ServiceID, path string) (string, error) {
	svc, err := r.Lookup(id)
	if err != nil {
		return "", err
	}
	return svc.BaseURL.JoinPath(path).String(), nil
}
