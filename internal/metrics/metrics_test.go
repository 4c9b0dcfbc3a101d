package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NotNil(t, r)
	assert.NotNil(t, r.ScenarioRunsTotal)
	assert.NotNil(t, r.AnalysesTotal)
	assert.NotNil(t, r.GraphNodesTotal)
	assert.NotNil(t, r.registry)
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestRecordScenario(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RecordScenario("tariff_change", "ok", 5*time.Millisecond, 3, -2.5)
	r.RecordScenario("tariff_change", "ok", 7*time.Millisecond, 0, 0)
	r.RecordScenario("supplier_disruption", "not_found", time.Millisecond, 0, 0)

	assert.InDelta(t, 2.0, testutil.ToFloat64(r.ScenarioRunsTotal.WithLabelValues("tariff_change", "ok")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(r.ScenarioRunsTotal.WithLabelValues("supplier_disruption", "not_found")), 1e-9)

	hist, err := r.ScenarioAffectedComponents.GetMetricWithLabelValues("tariff_change")
	require.NoError(t, err)
	var metric dto.Metric
	require.NoError(t, hist.(interface{ Write(*dto.Metric) error }).Write(&metric))
	assert.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
	assert.InDelta(t, 3.0, metric.GetHistogram().GetSampleSum(), 1e-9)
}

func TestRecordAnalysisAndGraphSize(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RecordAnalysis("resilience", 2*time.Millisecond)
	r.SetGraphSize(map[string]int{"component": 12, "product": 3}, 40)

	assert.InDelta(t, 1.0, testutil.ToFloat64(r.AnalysesTotal.WithLabelValues("resilience")), 1e-9)
	assert.InDelta(t, 12.0, testutil.ToFloat64(r.GraphNodesTotal.WithLabelValues("component")), 1e-9)
	assert.InDelta(t, 40.0, testutil.ToFloat64(r.GraphRelationshipsTotal), 1e-9)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RecordAnalysis("spof", time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `prophet_analyses_total{analysis="spof"} 1`))
}
