package downstream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Valid(t *testing.T) {
	reg, err := NewRegistry(map[ServiceID]Endpoint{
		SolrClient: {URL: "http://solr:9090/"},
		Core:       {URL: "https://core.internal:9093", Timeout: 5 * time.Second},
	})
	require.NoError(t, err)

	svc, err := reg.Lookup(Core)
	require.NoError(t, err)
	assert.Equal(t, "core.internal:9093", svc.BaseURL.Host)
	assert.Equal(t, 5*time.Second, svc.Timeout)

	assert.True(t, reg.Has(SolrClient))
	assert.False(t, reg.Has(Circ))

	services := reg.Services()
	require.Len(t, services, 2)
	assert.Equal(t, Core, services[0].ID)
	assert.Equal(t, SolrClient, services[1].ID)
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
	}{
		{"empty url", Endpoint{URL: ""}},
		{"no scheme", Endpoint{URL: "solr:9090"}},
		{"ftp scheme", Endpoint{URL: "ftp://solr"}},
		{"no host", Endpoint{URL: "http://"}},
		{"negative timeout", Endpoint{URL: "http://solr", Timeout: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(map[ServiceID]Endpoint{SolrClient: tt.ep})
			assert.Error(t, err)
		})
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	_, err = reg.Lookup(Schedule)
	assert.True(t, errors.Is(err, ErrUnknownService))
}

func TestRegistry_URLFor(t *testing.T) {
	reg, err := NewRegistry(map[ServiceID]Endpoint{
		Core:       {URL: "http://core:9093/"},
		SolrClient: {URL: "http://solr:9090/scsb"},
	})
	require.NoError(t, err)

	u, err := reg.URLFor(Core, "/sharedCollection/accession")
	require.NoError(t, err)
	assert.Equal(t, "http://core:9093/sharedCollection/accession", u)

	u, err = reg.URLFor(SolrClient, "transfer/processTransfer")
	require.NoError(t, err)
	assert.Equal(t, "http://solr:9090/scsb/transfer/processTransfer", u)
}
