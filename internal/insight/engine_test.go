package insight

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/graph/graphtest"
	"github.com/Benny93/prophet-go/internal/metrics"
	"github.com/Benny93/prophet-go/internal/scenario"
)

var errMissing = errors.New("missing")

type mapStore struct {
	mu      sync.Mutex
	results map[string]*scenario.Result
	failOn  string
}

func newMapStore() *mapStore {
	return &mapStore{results: make(map[string]*scenario.Result)}
}

func (s *mapStore) SaveResult(_ context.Context, res *scenario.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.ID == s.failOn {
		return errors.New("disk full")
	}
	s.results[res.ID] = res
	return nil
}

func (s *mapStore) GetResult(_ context.Context, id string) (*scenario.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	if !ok {
		return nil, errMissing
	}
	return res, nil
}

func newEngine(t *testing.T, g *graph.SupplyGraph, opts ...EngineOption) *Engine {
	t.Helper()
	var seq atomic.Int64
	opts = append([]EngineOption{
		WithLogger(ctxlog.Discard()),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return fmt.Sprintf("r-%d", seq.Add(1)) }),
	}, opts...)
	return NewEngine(g, opts...)
}

func TestEnginePredictDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMapStore()
	e := newEngine(t, graphtest.Sample(), WithStore(store))

	res, err := e.PredictDisruption(ctx, scenario.DisruptionRequest{SupplierID: "tsmc"})
	require.NoError(t, err)
	require.NotNil(t, res.Disruption)
	assert.Equal(t, scenario.LevelComplete, res.Disruption.DisruptionLevel)
	assert.Equal(t, 3, res.Disruption.DurationMonths)
	assert.Equal(t, "r-1", res.ID)

	geo, err := e.PredictGeopolitical(ctx, scenario.GeopoliticalRequest{Country: "Taiwan", EventType: "conflict"})
	require.NoError(t, err)
	require.NotNil(t, geo.Geopolitical)
	assert.Equal(t, "medium", geo.Geopolitical.Severity)
	assert.Equal(t, 6, geo.Geopolitical.DurationMonths)

	short, err := e.PredictShortage(ctx, scenario.ShortageRequest{ComponentType: "memory"})
	require.NoError(t, err)
	require.NotNil(t, short.Shortage)
	assert.Equal(t, scenario.ShortageSevere, short.Shortage.ShortageLevel)
	assert.Equal(t, 6, short.Shortage.DurationMonths)

	tariff, err := e.PredictTariff(ctx, scenario.TariffRequest{Country: "China", IncreasePercentage: 10})
	require.NoError(t, err)

	for _, r := range []*scenario.Result{res, geo, short, tariff} {
		stored, err := store.GetResult(ctx, r.ID)
		require.NoError(t, err)
		assert.Same(t, r, stored)
	}
}

func TestEngineWithoutStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEngine(t, graphtest.Minimal())

	res, err := e.PredictTariff(ctx, scenario.TariffRequest{Country: "China", IncreasePercentage: 25})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AffectedComponentsCount)

	_, err = e.CombineStored(ctx, []string{res.ID})
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestEngineSaveFailure(t *testing.T) {
	t.Parallel()
	store := newMapStore()
	store.failOn = "r-1"
	e := newEngine(t, graphtest.Minimal(), WithStore(store))

	_, err := e.PredictTariff(context.Background(), scenario.TariffRequest{Country: "China", IncreasePercentage: 25})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save result r-1")
}

func TestEngineCombineStored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMapStore()
	e := newEngine(t, graphtest.Sample(), WithStore(store))

	a, err := e.PredictDisruption(ctx, scenario.DisruptionRequest{SupplierID: "tsmc"})
	require.NoError(t, err)
	b, err := e.PredictShortage(ctx, scenario.ShortageRequest{ComponentType: "memory"})
	require.NoError(t, err)

	compound, err := e.CombineStored(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, scenario.TypeCompound, compound.ScenarioType)
	require.NotNil(t, compound.Compound)
	assert.ElementsMatch(t, []string{"a16", "dram"}, componentIDsOf(compound))

	stored, err := store.GetResult(ctx, compound.ID)
	require.NoError(t, err)
	assert.Same(t, compound, stored)

	_, err = e.CombineStored(ctx, []string{a.ID, "nope"})
	require.ErrorIs(t, err, errMissing)
	assert.Contains(t, err.Error(), "failed to load result nope")
}

func componentIDsOf(res *scenario.Result) []string {
	ids := make([]string, 0, len(res.AffectedComponents))
	for _, c := range res.AffectedComponents {
		ids = append(ids, c.ComponentID)
	}
	return ids
}

func TestEngineRunPlanPersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMapStore()
	e := newEngine(t, graphtest.Sample(), WithStore(store))

	plan, err := scenario.ParsePlan([]byte(`
name: memory squeeze
combine: true
scenarios:
  - shortage:
      component_type: memory
  - disruption:
      supplier_id: samsung
      disruption_level: partial
`))
	require.NoError(t, err)

	out, err := e.RunPlan(ctx, plan)
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	require.NotNil(t, out.Compound)
	for _, r := range append([]*scenario.Result{out.Compound}, out.Results...) {
		_, err := store.GetResult(ctx, r.ID)
		assert.NoError(t, err)
	}
}

func TestEngineRecommendations(t *testing.T) {
	t.Parallel()
	e := newEngine(t, graphtest.Sample())

	out := e.Recommendations("")
	assert.Equal(t, "optimization", out.RecommendationType)
	assert.InDelta(t, 31.6, out.ResilienceScore, 1e-9)
	assert.Equal(t, analyzer.RiskHigh, out.RiskLevel)
	assert.NotEmpty(t, out.Recommendations)
	assert.Equal(t, 5, out.Metrics.SingleSupplierComponents)
	assert.Equal(t, fixedNow, out.GeneratedAt)
}

func TestEngineAlternativeSources(t *testing.T) {
	t.Parallel()
	e := newEngine(t, graphtest.Sample())

	out := e.AlternativeSources("dram", 3)
	assert.Empty(t, out.Error)
	assert.Equal(t, "DRAM Memory", out.ComponentName)
	assert.Equal(t, "memory", out.ComponentType)
	assert.Equal(t, []SupplierRef{
		{SupplierID: "samsung", SupplierName: "Samsung", HQCountry: "South Korea"},
		{SupplierID: "skhynix", SupplierName: "SK Hynix", HQCountry: "South Korea"},
	}, out.CurrentSuppliers)
	assert.Equal(t, []string{"South Korea", "China", "Taiwan"}, out.CurrentCountries)
	assert.Empty(t, out.Alternatives)

	missing := e.AlternativeSources("flux-capacitor", 3)
	assert.Equal(t, ErrComponentNotFound, missing.Error)
	assert.Equal(t, "Unknown", missing.ComponentName)
	assert.NotNil(t, missing.CurrentSuppliers)
	assert.NotNil(t, missing.Alternatives)
}

func TestEngineAlternativeSources_DanglingSupplier(t *testing.T) {
	t.Parallel()

	g := graphtest.New().
		Company("s", "Real Supplier", "Japan").
		Component("c", "Sensor", "camera", false, false).
		Supplies("s", "c").
		Supplies("ghost", "c").
		Graph()
	e := newEngine(t, g)

	out := e.AlternativeSources("c", 3)
	assert.Empty(t, out.Error)
	assert.Equal(t, []SupplierRef{
		{SupplierID: "s", SupplierName: "Real Supplier", HQCountry: "Japan"},
		{SupplierID: "ghost", SupplierName: "Unknown", HQCountry: "Unknown"},
	}, out.CurrentSuppliers)
}

func TestEngineComprehensive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMapStore()
	reg := metrics.NewRegistry()
	e := newEngine(t, graphtest.Sample(), WithStore(store), WithMetrics(reg))

	out, err := e.Comprehensive(ctx, "apple", true)
	require.NoError(t, err)

	assert.Equal(t, "comprehensive", out.AnalysisType)
	assert.Equal(t, "Apple", out.CompanyName)
	assert.Equal(t, out.Reports.Baseline.ExecutiveSummary.ResilienceScore, out.Baseline.ResilienceScore)
	assert.LessOrEqual(t, len(out.TopInsights.CriticalComponents), 3)
	assert.Empty(t, out.TopInsights.HighRiskCountries)
	assert.LessOrEqual(t, len(out.TopRecommendations), 5)

	require.Len(t, out.Scenarios, 2)
	disruption := out.Scenarios[0]
	assert.Equal(t, scenario.TypeDisruption, disruption.Type)
	assert.Equal(t, "samsung", disruption.SupplierID)
	assert.Equal(t, "Samsung", disruption.SupplierName)

	tariff := out.Scenarios[1]
	assert.Equal(t, scenario.TypeTariff, tariff.Type)
	assert.Equal(t, "Taiwan", tariff.Country)
	assert.InDelta(t, float64(ComprehensiveTariff), tariff.IncreasePercentage, 1e-9)

	for _, s := range out.Scenarios {
		assert.Contains(t, []string{analyzer.RiskHigh, analyzer.RiskMedium}, s.ImpactLevel)
		_, err := store.GetResult(ctx, s.ResultID)
		assert.NoError(t, err)
	}
	assert.Equal(t, 2, testutil.CollectAndCount(reg.ScenarioRunsTotal))
}

func TestEngineComprehensiveWithoutScenarios(t *testing.T) {
	t.Parallel()
	e := newEngine(t, graphtest.Sample())

	out, err := e.Comprehensive(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, "All Companies", out.CompanyName)
	assert.Empty(t, out.Scenarios)

	unknown, err := e.Comprehensive(context.Background(), "ghost", false)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", unknown.CompanyName)
}

func TestImpactLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, analyzer.RiskHigh, impactLevel(&scenario.Result{ResilienceImpact: scenario.ResilienceImpact{Change: -10.5}}))
	assert.Equal(t, analyzer.RiskMedium, impactLevel(&scenario.Result{ResilienceImpact: scenario.ResilienceImpact{Change: -10}}))
}

func TestMainSourcingCountry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Taiwan", newEngine(t, graphtest.Sample()).mainSourcingCountry())
	assert.Equal(t, "China", newEngine(t, graphtest.Minimal()).mainSourcingCountry())
	assert.Empty(t, newEngine(t, graph.NewSupplyGraph()).mainSourcingCountry())
}

func TestEngineRejectsInvalidRequests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMapStore()
	e := newEngine(t, graphtest.Sample(), WithStore(store))

	_, err := e.PredictTariff(ctx, scenario.TariffRequest{IncreasePercentage: 25})
	assert.ErrorIs(t, err, scenario.ErrInvalidRequest)

	_, err = e.PredictDisruption(ctx, scenario.DisruptionRequest{SupplierID: "tsmc", Level: "total"})
	assert.ErrorIs(t, err, scenario.ErrInvalidRequest)

	_, err = e.PredictGeopolitical(ctx, scenario.GeopoliticalRequest{Country: "Taiwan", EventType: "riot"})
	assert.ErrorIs(t, err, scenario.ErrInvalidRequest)

	_, err = e.PredictShortage(ctx, scenario.ShortageRequest{ComponentType: "memory", DurationMonths: -1})
	assert.ErrorIs(t, err, scenario.ErrInvalidRequest)

	assert.Empty(t, store.results)
}
