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
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveComparison("maximize", OutcomeOK)
	m.ObserveComparison("maximize", OutcomeOK)
	m.ObserveComparison("check", OutcomeSuperseded)
	m.ObserveExclusion("tenure-exhausted")
	m.ObserveSaveFailure()
	m.ObserveRequest("POST /api/compare", http.StatusOK, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.comparisons.WithLabelValues("maximize", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.comparisons.WithLabelValues("check", OutcomeSuperseded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.excluded.WithLabelValues("tenure-exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saveFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveComparison("check", OutcomeOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `loancompare_comparisons_total{mode="check",outcome="ok"} 1`), body)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveComparison("check", OutcomeOK)
	m.ObserveExclusion("no-rule")
	m.ObserveSaveFailure()
	m.ObserveRequest("GET /healthz", http.StatusOK, time.Millisecond)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
