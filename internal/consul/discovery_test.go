package consul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceInstance_BaseURL(t *testing.T) {
	plain := &ServiceInstance{Address: "10.0.0.1", Port: 9090}
	assert.Equal(t, "http://10.0.0.1:9090", plain.BaseURL())

	tls := &ServiceInstance{Address: "core.internal", Port: 443, Tags: []string{"scsb", TagHTTPS}}
	assert.Equal(t, "https", tls.Scheme())
	assert.Equal(t, "https://core.internal:443", tls.BaseURL())
}

func TestPickOne(t *testing.T) {
	_, err := pickOne("scsb-core", nil)
	assert.Error(t, err)

	instances := []*ServiceInstance{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	for range 20 {
		got, err := pickOne("scsb-core", instances)
		require.NoError(t, err)
		assert.Contains(t, instances, got)
	}
}

func TestGatewayRegistration(t *testing.T) {
	cfg := GatewayRegistration("10.1.2.3", 8080)

	assert.Equal(t, GatewayServiceName, cfg.Name)
	assert.Equal(t, "scsb-gateway-10.1.2.3:8080", cfg.ID)
	assert.Equal(t, "10.1.2.3", cfg.Address)
	assert.Equal(t, 8080, cfg.Port)
	require.NotNil(t, cfg.Check)
	assert.Equal(t, "http://10.1.2.3:8080/health", cfg.Check.HTTP)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient("127.0.0.1:8500", "secret")
	require.NoError(t, err)
	assert.NotNil(t, client.API())
}
