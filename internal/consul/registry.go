package consul

import (
	"fmt"
	"net"
	"strconv"

	consulapi "github.com/hashicorp/consul/api"
)

// GatewayServiceName is the name the gateway registers under
const GatewayServiceName = "scsb-gateway"

// ServiceConfig contains configuration for service registration
type ServiceConfig struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	Check   *HealthCheck
}

// HealthCheck defines health check configuration
type HealthCheck struct {
	HTTP     string
	Interval string
	Timeout  string
}

// GatewayRegistration describes the gateway instance reachable at
// advertiseAddr:port, health-checked through /health
func GatewayRegistration(advertiseAddr string, port int) *ServiceConfig {
	hostPort := net.JoinHostPort(advertiseAddr, strconv.Itoa(port))
	return &ServiceConfig{
		ID:      fmt.Sprintf("%s-%s", GatewayServiceName, hostPort),
		Name:    GatewayServiceName,
		Address: advertiseAddr,
		Port:    port,
		Tags:    []string{"scsb", "gateway"},
		Check: &HealthCheck{
			HTTP:     fmt.Sprintf("http://%s/health", hostPort),
			Interval: "10s",
			Timeout:  "2s",
		},
	}
}

// Register registers a service with Consul
func (c *Client) Register(cfg *ServiceConfig) error {
	registration := &consulapi.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Address: cfg.Address,
		Port:    cfg.Port,
		Tags:    cfg.Tags,
	}

	if cfg.Check != nil {
		registration.Check = &consulapi.AgentServiceCheck{
			HTTP:     cfg.Check.HTTP,
			Interval: cfg.Check.Interval,
			Timeout:  cfg.Check.Timeout,
		}
	}

	if err := c.api.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service %s: %w", cfg.ID, err)
	}

	return nil
}

// Deregister removes a service from Consul
func (c *Client) Deregister(serviceID string) error {
	if err := c.api.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("failed to deregister service %s: %w", serviceID, err)
	}

	return nil
}
