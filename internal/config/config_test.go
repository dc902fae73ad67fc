package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scsb/internal/downstream"
)

var configKeys = []string{
	"GATEWAY_PORT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_IDLE_TIMEOUT",
	"DOWNSTREAM_TIMEOUT", "REGISTRY_SOURCE", "REGISTRY_FILE",
	"SCSB_SOLR_CLIENT_URL", "SCSB_CIRC_URL", "SCSB_CORE_URL", "SCSB_SCHEDULE_URL",
	"CONSUL_HTTP_ADDR", "CONSUL_HTTP_TOKEN", "CONSUL_REGISTER", "GATEWAY_ADVERTISE_ADDR",
	"CORS_ALLOW_ORIGINS",
}

// clearEnv blanks every variable Load reads. Empty counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func setStaticURLs(t *testing.T) {
	t.Helper()
	t.Setenv("SCSB_SOLR_CLIENT_URL", "http://solr:9090")
	t.Setenv("SCSB_CIRC_URL", "http://circ:9095")
	t.Setenv("SCSB_CORE_URL", "http://core:9093")
	t.Setenv("SCSB_SCHEDULE_URL", "http://schedule:9097")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	setStaticURLs(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout)
	assert.Equal(t, downstream.DefaultTimeout, cfg.DownstreamTimeout)
	assert.Equal(t, SourceStatic, cfg.RegistrySource)
	assert.Equal(t, "localhost:8500", cfg.ConsulAddr)
	assert.False(t, cfg.ConsulRegister)
	assert.Empty(t, cfg.CORSOrigins)

	endpoints := cfg.StaticEndpoints()
	require.Len(t, endpoints, 4)
	assert.Equal(t, "http://core:9093", endpoints[downstream.Core].URL)
	assert.Empty(t, cfg.Timeouts())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	setStaticURLs(t)
	t.Setenv("GATEWAY_PORT", "9000")
	t.Setenv("DOWNSTREAM_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example.org, https://b.example.org,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DownstreamTimeout)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, cfg.CORSOrigins)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port not a number", "GATEWAY_PORT", "http"},
		{"port out of range", "GATEWAY_PORT", "70000"},
		{"bad duration", "DOWNSTREAM_TIMEOUT", "thirty"},
		{"zero duration", "SERVER_READ_TIMEOUT", "0s"},
		{"bad bool", "CONSUL_REGISTER", "sometimes"},
		{"bad source", "REGISTRY_SOURCE", "etcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			setStaticURLs(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_RegisterRequiresAdvertiseAddr(t *testing.T) {
	clearEnv(t)
	setStaticURLs(t)
	t.Setenv("CONSUL_REGISTER", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_ADVERTISE_ADDR")

	t.Setenv("GATEWAY_ADVERTISE_ADDR", "gateway.internal")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.ConsulRegister)
}

func TestLoad_RegistryFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  solr-client:
    url: http://solr-file:9090
    timeout: 10s
  circ:
    url: http://circ-file:9095
  core:
    url: http://core-file:9093
    timeout: 2m
  schedule:
    url: http://schedule-file:9097
    consulName: scsb-batch-schedule
`), 0o600))

	t.Setenv("REGISTRY_FILE", path)
	t.Setenv("SCSB_CORE_URL", "http://core-env:9093")

	cfg, err := Load()
	require.NoError(t, err)

	endpoints := cfg.StaticEndpoints()
	assert.Equal(t, "http://solr-file:9090", endpoints[downstream.SolrClient].URL)
	assert.Equal(t, "http://core-env:9093", endpoints[downstream.Core].URL, "environment overrides the file")

	timeouts := cfg.Timeouts()
	assert.Equal(t, 10*time.Second, timeouts[downstream.SolrClient])
	assert.Equal(t, 2*time.Minute, timeouts[downstream.Core])
	assert.NotContains(t, timeouts, downstream.Circ)

	names := cfg.ConsulNames()
	assert.Equal(t, "scsb-batch-schedule", names[downstream.Schedule])
	assert.Equal(t, "circ", names[downstream.Circ])
}

func TestLoad_RegistryFileErrors(t *testing.T) {
	dir := t.TempDir()

	badTimeout := filepath.Join(dir, "timeout.yaml")
	require.NoError(t, os.WriteFile(badTimeout, []byte("services:\n  core:\n    url: http://core\n    timeout: soon\n"), 0o600))

	badYAML := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("services: [\n"), 0o600))

	for _, path := range []string{badTimeout, badYAML, filepath.Join(dir, "missing.yaml")} {
		clearEnv(t)
		setStaticURLs(t)
		t.Setenv("REGISTRY_FILE", path)

		_, err := Load()
		assert.Error(t, err, path)
	}
}

func TestLoad_StaticServiceWithoutURL(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  circ:\n    timeout: 5s\n"), 0o600))
	t.Setenv("REGISTRY_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circ")
}

func TestLoad_ConsulSourceAddsAllServices(t *testing.T) {
	clearEnv(t)
	t.Setenv("REGISTRY_SOURCE", SourceConsul)
	t.Setenv("CONSUL_HTTP_ADDR", "consul:8500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "consul:8500", cfg.ConsulAddr)
	names := cfg.ConsulNames()
	assert.Len(t, names, 4)
	assert.Equal(t, "solr-client", names[downstream.SolrClient])
}

func TestValidateEnv(t *testing.T) {
	t.Setenv("SCSB_TEST_PRESENT", "x")
	t.Setenv("SCSB_TEST_ABSENT", "")

	assert.NoError(t, ValidateEnv([]string{"SCSB_TEST_PRESENT"}))

	err := ValidateEnv([]string{"SCSB_TEST_PRESENT", "SCSB_TEST_ABSENT"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCSB_TEST_ABSENT")
	assert.NotContains(t, err.Error(), "SCSB_TEST_PRESENT")
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("SCSB_TEST_VALUE", "")
	assert.Equal(t, "fallback", GetEnvOrDefault("SCSB_TEST_VALUE", "fallback"))

	t.Setenv("SCSB_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnvOrDefault("SCSB_TEST_VALUE", "fallback"))
}
