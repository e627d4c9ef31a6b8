package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.EngineStarts.Inc()
	a.RestoreFailures.WithLabelValues("dns").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.EngineStarts))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EngineStarts))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.RestoreFailures.WithLabelValues("dns")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.RuleGroups.Set(3)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "netlock_rule_groups 3")
}
