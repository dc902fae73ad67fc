// Package consul resolves SCSB downstream services from HashiCorp Consul
// and registers the gateway itself. Resolution happens once at startup; the
// resulting registry never changes while the process runs.
package consul

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// Client wraps the Consul API client
type Client struct {
	api *consulapi.Client
}

// NewClient creates a Consul client for addr. token may be empty.
func NewClient(addr, token string) (*Client, error) {
	config := consulapi.DefaultConfig()
	config.Address = addr

	if token != "" {
		config.Token = token
	}

	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client for %s: %w", addr, err)
	}

	return &Client{api: client}, nil
}

// API returns the underlying Consul API client
func (c *Client) API() *consulapi.Client {
	return c.api
}
