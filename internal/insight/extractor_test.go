package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/graph/graphtest"
	"github.com/Benny93/prophet-go/internal/recommend"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newExtractor(t *testing.T, g *graph.SupplyGraph) *Extractor {
	t.Helper()
	ex := NewExtractor(analyzer.New(g), ctxlog.Discard())
	ex.now = func() time.Time { return fixedNow }
	return ex
}

func TestFindAlternativeComponents(t *testing.T) {
	t.Parallel()

	g := graphtest.New().
		Company("s1", "Kioxia", "Japan").
		Component("x", "Flash Memory Chip", "memory", true, false).
		Component("y", "Flash Memory", "memory", false, false).
		Component("z", "Memory Controller", "memory", false, false).
		Component("w", "Flash Memory Chip", "memory", false, false).
		Component("v", "Battery", "battery", false, false).
		Supplies("s1", "y").
		Origin("y", "Japan").
		Graph()

	alts := FindAlternativeComponents(g, "x", 5)
	require.Len(t, alts, 2)
	assert.Equal(t, "y", alts[0].ComponentID)
	assert.InDelta(t, 0.67, alts[0].SimilarityScore, 1e-9)
	assert.Equal(t, []string{"Kioxia"}, alts[0].Suppliers)
	assert.Equal(t, []string{"Japan"}, alts[0].Countries)
	assert.Equal(t, "z", alts[1].ComponentID)
	assert.InDelta(t, 0.33, alts[1].SimilarityScore, 1e-9)
	assert.Empty(t, alts[1].Suppliers)

	assert.Len(t, FindAlternativeComponents(g, "x", 1), 1)
	assert.Empty(t, FindAlternativeComponents(g, "x", 0))
	assert.Empty(t, FindAlternativeComponents(g, "missing", 3))
	assert.NotNil(t, FindAlternativeComponents(g, "v", 3))
}

func TestComponentInsights(t *testing.T) {
	t.Parallel()

	ex := newExtractor(t, graphtest.Sample())
	out := ex.ComponentInsights(4)

	require.NotEmpty(t, out.TopCriticalComponents)
	assert.LessOrEqual(t, len(out.TopCriticalComponents), 4)

	total := 0.0
	prev := 1.0
	for _, c := range out.TopCriticalComponents {
		assert.GreaterOrEqual(t, c.CriticalityScore, InsightThreshold)
		assert.LessOrEqual(t, c.CriticalityScore, prev)
		assert.Equal(t, len(c.ProductsUsing), c.UsageCount)
		assert.NotEmpty(t, c.Recommendation)
		prev = c.CriticalityScore
		total += c.CriticalityScore
	}
	assert.InDelta(t, total/float64(len(out.TopCriticalComponents)), out.Summary.AverageCriticality, 0.01)
	require.NotNil(t, out.Summary.MostUsedComponent)
	require.NotNil(t, out.Summary.LeastAlternatives)

	assert.Empty(t, ex.ComponentInsights(0).TopCriticalComponents)
}

func TestComponentAdvice(t *testing.T) {
	t.Parallel()

	alts := []Alternative{{ComponentName: "Flash Memory"}}
	tests := []struct {
		name   string
		c      analyzer.CriticalComponent
		alts   []Alternative
		prefix string
	}{
		{"NoAlternatives", analyzer.CriticalComponent{CriticalityScore: 0.9}, nil, "HIGH RISK: This critical component has no viable alternatives"},
		{"WithAlternatives", analyzer.CriticalComponent{CriticalityScore: 0.85}, alts, "HIGH RISK: Consider alternatives like Flash Memory"},
		{"SingleSupplier", analyzer.CriticalComponent{CriticalityScore: 0.7, Suppliers: []string{"A"}}, nil, "MEDIUM RISK: Single supplier"},
		{"MultiSupplier", analyzer.CriticalComponent{CriticalityScore: 0.7, Suppliers: []string{"A", "B"}}, nil, "MEDIUM RISK: Monitor"},
		{"Low", analyzer.CriticalComponent{CriticalityScore: 0.3}, nil, "LOW RISK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, componentAdvice(tt.c, tt.alts), tt.prefix)
		})
	}
}

func TestSupplierInsights(t *testing.T) {
	t.Parallel()

	out := newExtractor(t, graphtest.Sample()).SupplierInsights(5)

	ids := make([]string, 0, len(out.TopSuppliers))
	for _, s := range out.TopSuppliers {
		ids = append(ids, s.SupplierID)
	}
	assert.Equal(t, []string{"samsung", "tsmc", "skhynix", "qualcomm", "catl"}, ids)

	samsung := out.TopSuppliers[0]
	assert.InDelta(t, 2.0, samsung.ImportanceScore, 1e-9)
	assert.Equal(t, 2, samsung.ComponentCount)
	assert.Equal(t, 2, samsung.CriticalComponentCount)
	assert.Equal(t, 1, samsung.TariffVulnerableCount)
	assert.Equal(t, []string{"South Korea", "China", "Taiwan"}, samsung.Countries)
	assert.Equal(t, analyzer.RiskMedium, samsung.RiskLevel)
	assert.Contains(t, samsung.Recommendation, "MODERATE DEPENDENCY")

	catl := out.TopSuppliers[4]
	assert.InDelta(t, 0.25, catl.ImportanceScore, 1e-9)
	assert.Equal(t, analyzer.RiskLow, catl.RiskLevel)

	assert.Equal(t, SupplierSummary{
		TotalSuppliers:      7,
		HighRiskSuppliers:   0,
		MediumRiskSuppliers: 4,
		LowRiskSuppliers:    1,
	}, out.Summary)
}

func TestSupplierInsightsKeyComponentsCriticalFirst(t *testing.T) {
	t.Parallel()

	g := graphtest.New().
		Company("s", "Supplier", "Japan").
		Component("c1", "Casing", "mechanical", false, false).
		Component("c2", "Chip", "processor", true, false).
		Supplies("s", "c1", "c2").
		Graph()

	out := newExtractor(t, g).SupplierInsights(1)
	require.Len(t, out.TopSuppliers, 1)
	keys := out.TopSuppliers[0].KeyComponents
	require.Len(t, keys, 2)
	assert.Equal(t, "c2", keys[0].ComponentID)
	assert.Equal(t, "c1", keys[1].ComponentID)
}

func TestGeographicalInsights(t *testing.T) {
	t.Parallel()

	out := newExtractor(t, graphtest.Sample()).GeographicalInsights()

	assert.Empty(t, out.HighRiskCountries)
	require.Len(t, out.RegionalAnalysis, 1)
	region := out.RegionalAnalysis[0]
	assert.Equal(t, "East Asia", region.Region)
	assert.ElementsMatch(t, []string{"Taiwan", "South Korea", "China", "Japan"}, region.Countries)
	assert.Equal(t, 7, region.TotalComponents)
	assert.Equal(t, 5, region.CriticalComponents)
	assert.Equal(t, 5, region.TariffVulnerableComponents)
	assert.InDelta(t, 0.71, region.RiskScore, 1e-9)
	assert.Equal(t, analyzer.RiskHigh, region.RiskLevel)

	assert.Equal(t, []Advice{
		{Priority: recommend.High, Recommendation: "Reduce dependency on East Asia region by developing alternate sources in other regions."},
		{Priority: recommend.Medium, Recommendation: "Monitor export policies in United States, China, Japan which may affect component availability."},
	}, out.Recommendations)
	assert.Equal(t, GeoSummary{MostCriticalRegion: "East Asia", CountriesAnalyzed: 4, RegionsAnalyzed: 1}, out.Summary)
}

func TestGeographicalInsightsEmptyGraph(t *testing.T) {
	t.Parallel()

	out := newExtractor(t, graph.NewSupplyGraph()).GeographicalInsights()
	assert.Empty(t, out.RegionalAnalysis)
	assert.Empty(t, out.Summary.MostCriticalRegion)
	require.Len(t, out.Recommendations, 1)
	assert.Equal(t, recommend.Medium, out.Recommendations[0].Priority)
}

func TestSummaryReport(t *testing.T) {
	t.Parallel()

	g := graphtest.Sample()
	ex := newExtractor(t, g)
	report := ex.SummaryReport("")

	assert.Equal(t, "Supply Chain Analysis Report", report.ReportTitle)
	assert.Equal(t, fixedNow, report.GeneratedAt)

	summary := report.ExecutiveSummary
	assert.InDelta(t, 31.6, summary.ResilienceScore, 1e-9)
	assert.Equal(t, analyzer.RiskHigh, summary.RiskLevel)
	assert.Equal(t, len(analyzer.New(g).FindCriticalComponents("", analyzer.DefaultThreshold)), summary.CriticalComponentsCount)
	assert.Equal(t, 3, summary.AffectedByTariffsCount)

	require.NotEmpty(t, summary.TopRisks)
	assert.Equal(t, RiskItem{
		RiskType:    "low_resilience",
		Description: "Low overall supply chain resilience score: 31.6/100",
		Priority:    recommend.High,
	}, summary.TopRisks[0])
	types := make([]string, 0, len(summary.TopRisks))
	for _, r := range summary.TopRisks {
		types = append(types, r.RiskType)
	}
	assert.Contains(t, types, "tariff_vulnerability")
	assert.NotContains(t, types, "geographical_concentration")
	for i := 1; i < len(summary.TopRisks); i++ {
		assert.LessOrEqual(t, summary.TopRisks[i-1].Priority.Rank(), summary.TopRisks[i].Priority.Rank())
	}

	assert.Equal(t, 5, report.KeyMetrics.SingleSupplierComponents)
	assert.LessOrEqual(t, len(report.CriticalComponents), 10)

	recs := report.StrategicRecommendations
	require.Len(t, recs, 4)
	assert.Equal(t, StrategicRecommendation{
		Category:       "resilience",
		Recommendation: "Improve overall supply chain resilience by focusing on geographical diversity",
		Priority:       recommend.High,
	}, recs[0])
	assert.Equal(t, "Diversify suppliers for 5 components that currently have single suppliers", recs[1].Recommendation)
	assert.Equal(t, recommend.Medium, recs[1].Priority)
	assert.Equal(t, "tariff", recs[2].Category)
	assert.Equal(t, "monitoring", recs[3].Category)
}

func TestSummaryReportForCompany(t *testing.T) {
	t.Parallel()

	report := newExtractor(t, graphtest.Sample()).SummaryReport("apple")
	assert.Equal(t, "Supply Chain Analysis Report for Apple", report.ReportTitle)
	assert.Equal(t, 8, report.KeyMetrics.TotalComponents)
}
