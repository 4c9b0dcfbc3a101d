package analyzer

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/graph/graphtest"
	"github.com/Benny93/prophet-go/internal/metrics"
)

func newAnalyzer(g graph.Reader, opts ...Option) *Analyzer {
	return New(g, append([]Option{WithLogger(ctxlog.Discard())}, opts...)...)
}

type flagSet map[string]bool

func (f flagSet) TariffVulnerable(id string) bool { return f[id] }

func TestComponentCriticality(t *testing.T) {
	t.Parallel()

	a := newAnalyzer(graphtest.Sample())

	tests := []struct {
		component string
		want      float64
	}{
		{"a16", 0.90},
		{"oled", 0.80},
		{"battery", 0.56},
		{"dram", 0.75},
		{"camera", 0.52},
		{"missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.component, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, a.ComponentCriticality(tt.component, "iphone"), 1e-9)
		})
	}
}

func TestComponentCriticality_MinimalExample(t *testing.T) {
	t.Parallel()

	a := newAnalyzer(graphtest.Minimal())
	assert.InDelta(t, 0.90, a.ComponentCriticality("c", "p"), 1e-9)
}

func TestComponentCriticality_NoSuppliersNoCountries(t *testing.T) {
	t.Parallel()

	g := graphtest.New().
		Product("p", "P", "", 2020, 100).
		Component("c", "Bare", "misc", false, false).
		Contains("p", "c").
		Graph()

	// 0.3*0.4 + 0.4*0.25 + 1.0*0.2 + 0.2*0.15
	assert.InDelta(t, 0.45, newAnalyzer(g).ComponentCriticality("c", "p"), 1e-9)
}

func TestComponentCriticality_FlagSource(t *testing.T) {
	t.Parallel()

	g := graphtest.Sample()
	plain := newAnalyzer(g)
	flagged := newAnalyzer(g, WithFlags(flagSet{"camera": true}))

	assert.InDelta(t, 0.52, plain.ComponentCriticality("camera", ""), 1e-9)
	assert.InDelta(t, 0.62, flagged.ComponentCriticality("camera", ""), 1e-9)
	assert.False(t, g.Node("camera").IsTariffVulnerable(), "flags must not be written to the graph")
}

func TestComponentCriticality_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	build := func(suppliers, countries int, critical, tariff bool) *graph.SupplyGraph {
		b := graphtest.New().
			Product("p", "P", "", 2020, 100).
			Component("c", "C", "misc", critical, tariff).
			Contains("p", "c")
		for i := range suppliers {
			id := fmt.Sprintf("s%d", i)
			b.Company(id, id, "").Supplies(id, "c")
		}
		for i := range countries {
			b.Origin("c", "Country "+string(rune('A'+i)))
		}
		return b.Graph()
	}

	properties.Property("criticality stays within [0, 1]", prop.ForAll(
		func(suppliers, countries int, critical, tariff bool) bool {
			score := newAnalyzer(build(suppliers, countries, critical, tariff)).ComponentCriticality("c", "p")
			return score >= 0 && score <= 1
		},
		gen.IntRange(0, 8), gen.IntRange(0, 5), gen.Bool(), gen.Bool(),
	))

	properties.Property("fewer suppliers never lowers criticality", prop.ForAll(
		func(suppliers, countries int, critical, tariff bool) bool {
			fewer := newAnalyzer(build(suppliers, countries, critical, tariff)).ComponentCriticality("c", "p")
			more := newAnalyzer(build(suppliers+1, countries, critical, tariff)).ComponentCriticality("c", "p")
			return fewer >= more
		},
		gen.IntRange(0, 7), gen.IntRange(0, 5), gen.Bool(), gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestFindCriticalComponents(t *testing.T) {
	t.Parallel()

	a := newAnalyzer(graphtest.Sample())

	t.Run("DefaultThreshold", func(t *testing.T) {
		t.Parallel()
		got := a.FindCriticalComponents("", DefaultThreshold)
		require.Len(t, got, 7)

		var pairs []string
		for _, c := range got {
			pairs = append(pairs, c.ComponentID+"/"+c.ProductID)
		}
		assert.Equal(t, []string{
			"a16/iphone", "a16/macbook",
			"oled/iphone", "oled/galaxy",
			"dram/iphone", "dram/galaxy", "dram/macbook",
		}, pairs)

		assert.Equal(t, "A16 Processor", got[0].ComponentName)
		assert.Equal(t, "iPhone 14", got[0].ProductName)
		assert.Equal(t, []string{"TSMC"}, got[0].Suppliers)
		assert.Equal(t, []string{"Taiwan"}, got[0].Countries)
		assert.True(t, got[0].TariffVulnerable)
	})

	t.Run("ZeroThresholdListsEveryInUsePair", func(t *testing.T) {
		t.Parallel()
		got := a.FindCriticalComponents("", 0)
		assert.Len(t, got, 11)
		for _, c := range got {
			assert.NotEqual(t, "modem", c.ComponentID)
		}
	})

	t.Run("ByManufacturer", func(t *testing.T) {
		t.Parallel()
		got := a.FindCriticalComponents("apple", DefaultThreshold)
		assert.Len(t, got, 5)
		for _, c := range got {
			assert.Contains(t, []string{"iphone", "macbook"}, c.ProductID)
		}
	})

	t.Run("UnknownManufacturer", func(t *testing.T) {
		t.Parallel()
		got := a.FindCriticalComponents("nobody", 0)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestFindCriticalComponents_DefaultThreshold(t *testing.T) {
	t.Parallel()
	a := newAnalyzer(graphtest.Borderline())

	assert.InDelta(t, 0.9, a.ComponentCriticality("chip", "p"), 1e-9)
	assert.InDelta(t, 0.65, a.ComponentCriticality("board", "p"), 1e-9)

	found := a.FindCriticalComponents("", DefaultThreshold)
	require.Len(t, found, 1)
	assert.Equal(t, "chip", found[0].ComponentID)

	assert.Len(t, a.FindCriticalComponents("", 0.6), 2)
}

func TestDetectSinglePointsOfFailure(t *testing.T) {
	t.Parallel()

	t.Run("Minimal", func(t *testing.T) {
		t.Parallel()
		got := newAnalyzer(graphtest.Minimal()).DetectSinglePointsOfFailure()
		require.Len(t, got, 2)

		assert.Equal(t, SingleSupplier, got[0].Type)
		assert.Equal(t, "s", got[0].SupplierID)
		assert.Equal(t, "Sole Supplier", got[0].SupplierName)
		assert.Equal(t, RiskHigh, got[0].RiskLevel)
		assert.Equal(t, []ProductRef{{ID: "p", Name: "Phone"}}, got[0].AffectedProducts)

		assert.Equal(t, SingleCountry, got[1].Type)
		assert.Equal(t, "China", got[1].Country)
		assert.Equal(t, RiskHigh, got[1].RiskLevel)
	})

	t.Run("Sample", func(t *testing.T) {
		t.Parallel()
		got := newAnalyzer(graphtest.Sample()).DetectSinglePointsOfFailure()

		var keys []string
		for _, sp := range got {
			keys = append(keys, sp.Type+":"+sp.ComponentID+":"+sp.RiskLevel)
		}
		assert.Equal(t, []string{
			"single_supplier:a16:high",
			"single_supplier:oled:high",
			"single_supplier:camera:medium",
			"single_country:a16:high",
			"single_country:oled:high",
			"single_country:battery:medium",
			"single_country:camera:medium",
		}, keys)
	})
}

func TestAssessTariffVulnerability(t *testing.T) {
	t.Parallel()

	a := newAnalyzer(graphtest.Sample())

	t.Run("AllCountries", func(t *testing.T) {
		t.Parallel()
		got := a.AssessTariffVulnerability("")
		assert.Equal(t, 3, got.AffectedComponentsCount)
		assert.Equal(t, 3, got.AffectedProductsCount)
		assert.Equal(t, 2, got.AffectedCompaniesCount)
		require.Len(t, got.HighestRiskComponents, 3)
		assert.Equal(t, "a16", got.HighestRiskComponents[0].ComponentID)
		assert.Equal(t, TariffProduct{
			ProductID: "iphone", ProductName: "iPhone 14", Manufacturer: "Apple", ManufacturerID: "apple",
		}, got.HighestRiskComponents[0].Products[0])
		assert.Empty(t, got.CountryFocus)
	})

	t.Run("CountryFocus", func(t *testing.T) {
		t.Parallel()
		got := a.AssessTariffVulnerability("China")
		assert.Equal(t, 2, got.AffectedComponentsCount)
		assert.Equal(t, "battery", got.HighestRiskComponents[0].ComponentID)
		assert.Equal(t, "dram", got.HighestRiskComponents[1].ComponentID)
		assert.Equal(t, "China", got.CountryFocus)
	})

	t.Run("FlagSourceCounts", func(t *testing.T) {
		t.Parallel()
		got := newAnalyzer(graphtest.Sample(), WithFlags(flagSet{"camera": true})).AssessTariffVulnerability("Japan")
		assert.Equal(t, 1, got.AffectedComponentsCount)
	})

	t.Run("TopTen", func(t *testing.T) {
		t.Parallel()
		b := graphtest.New().Product("p", "P", "", 2020, 100)
		for i := range 12 {
			id := string(rune('a' + i))
			b.Component(id, id, "misc", false, true).Contains("p", id)
		}
		got := newAnalyzer(b.Graph()).AssessTariffVulnerability("")
		assert.Equal(t, 12, got.AffectedComponentsCount)
		assert.Len(t, got.HighestRiskComponents, 10)
		assert.Equal(t, "a", got.HighestRiskComponents[0].ComponentID)
	})
}

func TestIdentifyGeographicalConcentration(t *testing.T) {
	t.Parallel()

	g := graphtest.Sample()
	require.Equal(t, 22, g.NodeCount())

	got := newAnalyzer(g).IdentifyGeographicalConcentration()

	var countries []string
	for _, c := range got.CountryConcentration {
		countries = append(countries, c.Country)
	}
	assert.Equal(t, []string{"Taiwan", "South Korea", "China", "Japan"}, countries, "modem is not in use, so United States is absent")

	taiwan := got.CountryConcentration[0]
	assert.Equal(t, 2, taiwan.TotalComponents)
	assert.Equal(t, 2, taiwan.CriticalComponents)
	assert.Equal(t, 2, taiwan.TariffVulnerableComponents)
	assert.InDelta(t, 0.091, taiwan.ConcentrationScore, 1e-9)
	assert.Equal(t, RiskLow, taiwan.RiskLevel)

	assert.InDelta(t, 0.064, got.CountryConcentration[2].ConcentrationScore, 1e-9)
	require.NotNil(t, got.HighestConcentration)
	assert.Equal(t, "Taiwan", got.HighestConcentration.Country)
	assert.Equal(t, ConcentrationSummary{LowRiskCountries: 4}, got.ConcentrationSummary)
}

func TestIdentifyGeographicalConcentration_Empty(t *testing.T) {
	t.Parallel()

	got := newAnalyzer(graph.NewSupplyGraph()).IdentifyGeographicalConcentration()
	assert.Empty(t, got.CountryConcentration)
	assert.Nil(t, got.HighestConcentration)
}

func TestCalculateResilienceScore(t *testing.T) {
	t.Parallel()

	a := newAnalyzer(graphtest.Sample())

	t.Run("AllProducts", func(t *testing.T) {
		t.Parallel()
		got := a.CalculateResilienceScore("")
		assert.InDelta(t, 31.6, got.TotalResilienceScore, 1e-9)
		assert.Equal(t, RiskHigh, got.RiskLevel)
		assert.Equal(t, ResilienceMetrics{
			TotalComponents:            11,
			UniqueSuppliers:            6,
			UniqueCountries:            4,
			CriticalComponents:         7,
			TariffVulnerableComponents: 8,
			SingleSupplierComponents:   5,
		}, got.Metrics)
		assert.InDelta(t, 27.3, got.Factors.SupplierDiversity.Score, 1e-9)
		assert.InDelta(t, 21.8, got.Factors.GeographicalDiversity.Score, 1e-9)
		assert.InDelta(t, 36.4, got.Factors.ComponentCriticality.Score, 1e-9)
		assert.InDelta(t, 27.3, got.Factors.TariffVulnerability.Score, 1e-9)
		assert.InDelta(t, 54.5, got.Factors.AlternativeSources.Score, 1e-9)
		assert.Equal(t, "geographical_diversity", got.Factors.Lowest().Name)
	})

	t.Run("Company", func(t *testing.T) {
		t.Parallel()
		got := a.CalculateResilienceScore("apple")
		assert.InDelta(t, 35.4, got.TotalResilienceScore, 1e-9)
		assert.Equal(t, 8, got.Metrics.TotalComponents)
	})

	t.Run("Minimal", func(t *testing.T) {
		t.Parallel()
		got := newAnalyzer(graphtest.Minimal()).CalculateResilienceScore("")
		assert.InDelta(t, 24.5, got.TotalResilienceScore, 1e-9)
	})

	t.Run("NoProducts", func(t *testing.T) {
		t.Parallel()
		got := a.CalculateResilienceScore("tsmc")
		assert.Zero(t, got.TotalResilienceScore)
		assert.Equal(t, RiskHigh, got.RiskLevel)
		assert.Equal(t, ResilienceMetrics{}, got.Metrics)
		assert.InDelta(t, 0.25, got.Factors.SupplierDiversity.Weight, 1e-9)
	})

	t.Run("FlagSourceLowersScore", func(t *testing.T) {
		t.Parallel()
		flagged := newAnalyzer(graphtest.Sample(), WithFlags(flagSet{"camera": true, "oled": true}))
		assert.Less(t, flagged.CalculateResilienceScore("").TotalResilienceScore, a.CalculateResilienceScore("").TotalResilienceScore)
	})
}

func TestAnalyses_Idempotent(t *testing.T) {
	t.Parallel()

	a := newAnalyzer(graphtest.Sample())
	run := func() []byte {
		out, err := json.Marshal(map[string]any{
			"critical":   a.FindCriticalComponents("", 0),
			"spof":       a.DetectSinglePointsOfFailure(),
			"tariff":     a.AssessTariffVulnerability(""),
			"geo":        a.IdentifyGeographicalConcentration(),
			"resilience": a.CalculateResilienceScore(""),
		})
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, string(run()), string(run()))
}

func TestWithMetrics(t *testing.T) {
	t.Parallel()

	reg := metrics.NewRegistry()
	a := newAnalyzer(graphtest.Sample(), WithMetrics(reg))
	a.CalculateResilienceScore("")
	a.DetectSinglePointsOfFailure()

	families, err := reg.Gatherer().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "prophet_analyses_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

func TestMatchesCountry(t *testing.T) {
	t.Parallel()

	assert.True(t, MatchesCountry([]string{"Taiwan", "China"}, "china"))
	assert.False(t, MatchesCountry([]string{"Taiwan"}, "Tai"))
	assert.False(t, MatchesCountry(nil, "China"))
}
