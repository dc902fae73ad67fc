package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scsb/internal/downstream"
)

func TestObserveDownstream(t *testing.T) {
	m := New()

	m.ObserveDownstream(downstream.Core, downstream.OutcomeOK, 20*time.Millisecond)
	m.ObserveDownstream(downstream.Core, downstream.OutcomeOK, 40*time.Millisecond)
	m.ObserveDownstream(downstream.Circ, downstream.OutcomeTimeout, 30*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.downstreamCalls.WithLabelValues("core", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downstreamCalls.WithLabelValues("circ", "timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.downstreamLatency))
}

func TestObserveResult(t *testing.T) {
	m := New()

	m.ObserveResult("accession", "logical_failure", http.StatusBadRequest)
	m.ObserveResult("accession", "unavailable", http.StatusServiceUnavailable)
	m.ObserveResult("accession", "unavailable", http.StatusServiceUnavailable)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.forwardResults.WithLabelValues("accession", "logical_failure", "400")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.forwardResults.WithLabelValues("accession", "unavailable", "503")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveResult("scheduleJob", "success", http.StatusOK)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `scsb_gateway_forward_results_total{kind="success",route="scheduleJob",status="200"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestRegistryIsPrivate(t *testing.T) {
	a, b := New(), New()
	assert.NotSame(t, a.Registry(), b.Registry())
}
