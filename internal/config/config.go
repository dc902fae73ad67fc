package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"scsb/internal/downstream"
)

// Registry sources
const (
	SourceStatic = "static"
	SourceConsul = "consul"
)

// serviceURLEnv maps each service to the variable holding its base URL
var serviceURLEnv = map[downstream.ServiceID]string{
	downstream.SolrClient: "SCSB_SOLR_CLIENT_URL",
	downstream.Circ:       "SCSB_CIRC_URL",
	downstream.Core:       "SCSB_CORE_URL",
	downstream.Schedule:   "SCSB_SCHEDULE_URL",
}

// ServiceConfig is one downstream service entry
type ServiceConfig struct {
	URL     string
	Timeout time.Duration
	// ConsulName is the Consul service name used when the registry source
	// is consul. Defaults to the service id.
	ConsulName string
}

// Config is the immutable process configuration. It is built once at
// startup and passed to constructors.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	DownstreamTimeout time.Duration
	RegistrySource    string
	Services          map[downstream.ServiceID]ServiceConfig

	ConsulAddr     string
	ConsulToken    string
	ConsulRegister bool
	AdvertiseAddr  string

	CORSOrigins []string
}

// registryFile is the YAML layout of REGISTRY_FILE
type registryFile struct {
	Services map[string]struct {
		URL        string `yaml:"url"`
		Timeout    string `yaml:"timeout"`
		ConsulName string `yaml:"consulName"`
	} `yaml:"services"`
}

// Load reads the configuration from the environment. Values from
// REGISTRY_FILE are applied first and environment variables override them.
func Load() (*Config, error) {
	var errs []error

	port, err := strconv.Atoi(GetEnvOrDefault("GATEWAY_PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		errs = append(errs, errors.New("GATEWAY_PORT must be a valid port"))
	}

	cfg := &Config{
		Port:           port,
		RegistrySource: GetEnvOrDefault("REGISTRY_SOURCE", SourceStatic),
		Services:       make(map[downstream.ServiceID]ServiceConfig),
		ConsulAddr:     GetEnvOrDefault("CONSUL_HTTP_ADDR", "localhost:8500"),
		ConsulToken:    os.Getenv("CONSUL_HTTP_TOKEN"),
		AdvertiseAddr:  os.Getenv("GATEWAY_ADVERTISE_ADDR"),
		CORSOrigins:    getEnvList("CORS_ALLOW_ORIGINS"),
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", 15 * time.Second, &cfg.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", 60 * time.Second, &cfg.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", 120 * time.Second, &cfg.IdleTimeout},
		{"DOWNSTREAM_TIMEOUT", downstream.DefaultTimeout, &cfg.DownstreamTimeout},
	}
	for _, d := range durations {
		v, err := getEnvDuration(d.key, d.def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*d.dst = v
	}

	if cfg.ConsulRegister, err = getEnvBool("CONSUL_REGISTER", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.ConsulRegister {
		if err := ValidateEnv([]string{"GATEWAY_ADVERTISE_ADDR"}); err != nil {
			errs = append(errs, err)
		}
	}

	if path := os.Getenv("REGISTRY_FILE"); path != "" {
		if err := cfg.loadRegistryFile(path); err != nil {
			errs = append(errs, err)
		}
	}

	for id, key := range serviceURLEnv {
		if url := os.Getenv(key); url != "" {
			svc := cfg.Services[id]
			svc.URL = url
			cfg.Services[id] = svc
		}
	}

	switch cfg.RegistrySource {
	case SourceStatic:
		for id, svc := range cfg.Services {
			if svc.URL == "" {
				errs = append(errs, fmt.Errorf("service %s has no URL", id))
			}
		}
	case SourceConsul:
		for id := range serviceURLEnv {
			if _, ok := cfg.Services[id]; !ok {
				cfg.Services[id] = ServiceConfig{}
			}
		}
	default:
		errs = append(errs, fmt.Errorf("REGISTRY_SOURCE must be %q or %q, got %q",
			SourceStatic, SourceConsul, cfg.RegistrySource))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadRegistryFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse registry file %s: %w", path, err)
	}

	for name, entry := range file.Services {
		svc := ServiceConfig{URL: entry.URL, ConsulName: entry.ConsulName}
		if entry.Timeout != "" {
			d, err := time.ParseDuration(entry.Timeout)
			if err != nil || d <= 0 {
				return fmt.Errorf("registry file: invalid timeout %q for service %s", entry.Timeout, name)
			}
			svc.Timeout = d
		}
		c.Services[downstream.ServiceID(name)] = svc
	}
	return nil
}

// StaticEndpoints returns the configured URLs as registry endpoints
func (c *Config) StaticEndpoints() map[downstream.ServiceID]downstream.Endpoint {
	out := make(map[downstream.ServiceID]downstream.Endpoint, len(c.Services))
	for id, svc := range c.Services {
		out[id] = downstream.Endpoint{URL: svc.URL, Timeout: svc.Timeout}
	}
	return out
}

// ConsulNames returns the Consul service name for each configured service
func (c *Config) ConsulNames() map[downstream.ServiceID]string {
	out := make(map[downstream.ServiceID]string, len(c.Services))
	for id, svc := range c.Services {
		name := svc.ConsulName
		if name == "" {
			name = string(id)
		}
		out[id] = name
	}
	return out
}

// Timeouts returns per-service timeout overrides
func (c *Config) Timeouts() map[downstream.ServiceID]time.Duration {
	out := make(map[downstream.ServiceID]time.Duration)
	for id, svc := range c.Services {
		if svc.Timeout > 0 {
			out[id] = svc.Timeout
		}
	}
	return out
}
