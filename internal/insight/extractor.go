// Package insight turns analyzer output into ranked insights, reports and
// recommendations, and runs predictions end to end.
package insight

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/impact"
	"github.com/Benny93/prophet-go/internal/recommend"
)

// InsightThreshold is the criticality threshold for component insights.
const InsightThreshold = 0.6

// Extractor derives insights from one analyzer.
type Extractor struct {
	a      *analyzer.Analyzer
	g      graph.Reader
	logger *slog.Logger
	now    func() time.Time
}

// NewExtractor creates an Extractor over the analyzer's graph.
func NewExtractor(a *analyzer.Analyzer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{a: a, g: a.Graph(), logger: logger, now: time.Now}
}

// ComponentInsight describes one critical component in depth.
type ComponentInsight struct {
	ComponentID      string        `json:"component_id"`
	ComponentName    string        `json:"component_name"`
	CriticalityScore float64       `json:"criticality_score"`
	UsageCount       int           `json:"usage_count"`
	ProductsUsing    []string      `json:"products_using"`
	Suppliers        []string      `json:"suppliers"`
	Countries        []string      `json:"countries"`
	Alternatives     []Alternative `json:"alternatives"`
	Recommendation   string        `json:"recommendation"`
}

// ComponentSummary summarizes a set of component insights.
type ComponentSummary struct {
	AverageCriticality float64           `json:"average_criticality"`
	MostUsedComponent  *ComponentInsight `json:"most_used_component"`
	LeastAlternatives  *ComponentInsight `json:"least_alternatives"`
}

// ComponentInsights is the result of Extractor.ComponentInsights.
type ComponentInsights struct {
	TopCriticalComponents []ComponentInsight `json:"top_critical_components"`
	Summary               ComponentSummary   `json:"summary"`
}

// ComponentInsights analyzes the topN most critical components.
func (e *Extractor) ComponentInsights(topN int) ComponentInsights {
	critical := e.a.FindCriticalComponents("", InsightThreshold)
	critical = critical[:min(max(0, topN), len(critical))]

	out := ComponentInsights{TopCriticalComponents: make([]ComponentInsight, 0, len(critical))}
	total := 0.0
	for _, c := range critical {
		products := []string{}
		for _, rel := range e.g.Incoming(c.ComponentID, graph.RelContains) {
			products = append(products, e.g.Node(rel.Source).DisplayName())
		}
		alts := FindAlternativeComponents(e.g, c.ComponentID, 3)

		out.TopCriticalComponents = append(out.TopCriticalComponents, ComponentInsight{
			ComponentID:      c.ComponentID,
			ComponentName:    c.ComponentName,
			CriticalityScore: c.CriticalityScore,
			UsageCount:       len(products),
			ProductsUsing:    products,
			Suppliers:        c.Suppliers,
			Countries:        c.Countries,
			Alternatives:     alts,
			Recommendation:   componentAdvice(c, alts),
		})
		total += c.CriticalityScore
	}

	list := out.TopCriticalComponents
	out.Summary.AverageCriticality = impact.Round(total/float64(max(1, len(list))), 2)
	for i := range list {
		if out.Summary.MostUsedComponent == nil || list[i].UsageCount > out.Summary.MostUsedComponent.UsageCount {
			out.Summary.MostUsedComponent = &list[i]
		}
		if out.Summary.LeastAlternatives == nil || len(list[i].Alternatives) < len(out.Summary.LeastAlternatives.Alternatives) {
			out.Summary.LeastAlternatives = &list[i]
		}
	}

	e.logger.Debug("component insights extracted", "components", len(list))
	return out
}

func componentAdvice(c analyzer.CriticalComponent, alts []Alternative) string {
	switch {
	case c.CriticalityScore >= 0.8 && len(alts) == 0:
		return "HIGH RISK: This critical component has no viable alternatives. Urgent action needed to diversify suppliers or identify alternative components."
	case c.CriticalityScore >= 0.8:
		return fmt.Sprintf("HIGH RISK: Consider alternatives like %s to reduce dependency on this critical component.", alts[0].ComponentName)
	case c.CriticalityScore >= 0.6 && len(c.Suppliers) <= 1:
		return "MEDIUM RISK: Single supplier dependency. Establish relationships with additional suppliers."
	case c.CriticalityScore >= 0.6:
		return "MEDIUM RISK: Monitor this component closely and maintain relationships with multiple suppliers."
	default:
		return "LOW RISK: Maintain current supply chain strategy for this component."
	}
}

// SuppliedComponent is a component in a supplier profile.
type SuppliedComponent struct {
	ComponentID      string `json:"component_id"`
	ComponentName    string `json:"component_name"`
	Critical         bool   `json:"critical"`
	TariffVulnerable bool   `json:"tariff_vulnerable"`
}

// SupplierInsight profiles one supplier.
type SupplierInsight struct {
	SupplierID             string              `json:"supplier_id"`
	SupplierName           string              `json:"supplier_name"`
	ImportanceScore        float64             `json:"importance_score"`
	ComponentCount         int                 `json:"component_count"`
	CriticalComponentCount int                 `json:"critical_component_count"`
	TariffVulnerableCount  int                 `json:"tariff_vulnerable_count"`
	Countries              []string            `json:"countries"`
	KeyComponents          []SuppliedComponent `json:"key_components"`
	RiskLevel              string              `json:"risk_level"`
	Recommendation         string              `json:"recommendation"`
}

// SupplierSummary counts suppliers by risk level.
type SupplierSummary struct {
	TotalSuppliers      int `json:"total_suppliers"`
	HighRiskSuppliers   int `json:"high_risk_suppliers"`
	MediumRiskSuppliers int `json:"medium_risk_suppliers"`
	LowRiskSuppliers    int `json:"low_risk_suppliers"`
}

// SupplierInsights is the result of Extractor.SupplierInsights.
type SupplierInsights struct {
	TopSuppliers []SupplierInsight `json:"top_suppliers"`
	Summary      SupplierSummary   `json:"summary"`
}

// SupplierInsights ranks suppliers by importance, three points per
// critical component plus one per component, divided by four.
func (e *Extractor) SupplierInsights(topN int) SupplierInsights {
	var order []string
	profiles := make(map[string]*SupplierInsight)

	for _, c := range e.g.NodesByKind(graph.KindComponent) {
		critical := c.IsCritical()
		tariff := c.IsTariffVulnerable()
		countries := analyzer.Countries(e.g, c.ID)

		for _, rel := range e.g.Incoming(c.ID, graph.RelSupplies) {
			p, ok := profiles[rel.Source]
			if !ok {
				p = &SupplierInsight{
					SupplierID:   rel.Source,
					SupplierName: e.g.Node(rel.Source).DisplayName(),
					Countries:    []string{},
				}
				profiles[rel.Source] = p
				order = append(order, rel.Source)
			}

			p.ComponentCount++
			if critical {
				p.CriticalComponentCount++
			}
			if tariff {
				p.TariffVulnerableCount++
			}
			p.KeyComponents = append(p.KeyComponents, SuppliedComponent{
				ComponentID:      c.ID,
				ComponentName:    c.DisplayName(),
				Critical:         critical,
				TariffVulnerable: tariff,
			})
			for _, country := range countries {
				if !slices.Contains(p.Countries, country) {
					p.Countries = append(p.Countries, country)
				}
			}
		}
	}

	all := make([]SupplierInsight, 0, len(order))
	for _, id := range order {
		p := profiles[id]
		p.ImportanceScore = impact.Round(float64(p.CriticalComponentCount*3+p.ComponentCount)/4, 2)
		slices.SortStableFunc(p.KeyComponents, func(x, y SuppliedComponent) int {
			switch {
			case x.Critical && !y.Critical:
				return -1
			case !x.Critical && y.Critical:
				return 1
			}
			return 0
		})
		p.KeyComponents = p.KeyComponents[:min(5, len(p.KeyComponents))]
		all = append(all, *p)
	}
	slices.SortStableFunc(all, func(x, y SupplierInsight) int {
		return descending(x.ImportanceScore, y.ImportanceScore)
	})

	out := SupplierInsights{
		TopSuppliers: all[:min(max(0, topN), len(all))],
		Summary:      SupplierSummary{TotalSuppliers: len(all)},
	}
	for i := range out.TopSuppliers {
		s := &out.TopSuppliers[i]
		switch {
		case s.CriticalComponentCount > 3:
			s.RiskLevel = analyzer.RiskHigh
			s.Recommendation = fmt.Sprintf("HIGH DEPENDENCY: %s supplies %d critical components. Develop alternate sources for key components.", s.SupplierName, s.CriticalComponentCount)
			out.Summary.HighRiskSuppliers++
		case s.CriticalComponentCount > 0:
			s.RiskLevel = analyzer.RiskMedium
			s.Recommendation = fmt.Sprintf("MODERATE DEPENDENCY: Maintain strong relationship with %s while developing alternatives for critical components.", s.SupplierName)
			out.Summary.MediumRiskSuppliers++
		default:
			s.RiskLevel = analyzer.RiskLow
			s.Recommendation = fmt.Sprintf("LOW RISK: Continue standard supplier management practices with %s.", s.SupplierName)
			out.Summary.LowRiskSuppliers++
		}
	}

	e.logger.Debug("supplier insights extracted", "top", len(out.TopSuppliers), "total", len(all))
	return out
}

// RegionRisk aggregates country concentration per world region.
type RegionRisk struct {
	Region                     string   `json:"region"`
	Countries                  []string `json:"countries"`
	TotalComponents            int      `json:"total_components"`
	CriticalComponents         int      `json:"critical_components"`
	TariffVulnerableComponents int      `json:"tariff_vulnerable_components"`
	RiskLevel                  string   `json:"risk_level"`
	RiskScore                  float64  `json:"risk_score"`
}

// Advice is a prioritized free-text recommendation.
type Advice struct {
	Priority       recommend.Priority `json:"priority"`
	Recommendation string             `json:"recommendation"`
}

// GeoSummary summarizes geographical insights.
type GeoSummary struct {
	MostCriticalRegion string `json:"most_critical_region,omitempty"`
	CountriesAnalyzed  int    `json:"countries_analyzed"`
	RegionsAnalyzed    int    `json:"regions_analyzed"`
}

// GeographicalInsights is the result of Extractor.GeographicalInsights.
type GeographicalInsights struct {
	HighRiskCountries []analyzer.CountryConcentration `json:"high_risk_countries"`
	RegionalAnalysis  []RegionRisk                    `json:"regional_analysis"`
	Recommendations   []Advice                        `json:"recommendations"`
	Summary           GeoSummary                      `json:"summary"`
}

// GeographicalInsights rolls country concentration up to regions.
func (e *Extractor) GeographicalInsights() GeographicalInsights {
	geo := e.a.IdentifyGeographicalConcentration()

	highRisk := []analyzer.CountryConcentration{}
	var order []string
	regions := make(map[string]*RegionRisk)
	for _, c := range geo.CountryConcentration {
		if c.RiskLevel == analyzer.RiskHigh {
			highRisk = append(highRisk, c)
		}
		name := RegionFor(c.Country)
		r, ok := regions[name]
		if !ok {
			r = &RegionRisk{Region: name}
			regions[name] = r
			order = append(order, name)
		}
		r.Countries = append(r.Countries, c.Country)
		r.TotalComponents += c.TotalComponents
		r.CriticalComponents += c.CriticalComponents
		r.TariffVulnerableComponents += c.TariffVulnerableComponents
	}

	list := make([]RegionRisk, 0, len(order))
	for _, name := range order {
		r := regions[name]
		score := (float64(r.CriticalComponents)*0.7 + float64(r.TariffVulnerableComponents)*0.3) / float64(max(1, r.TotalComponents))
		r.RiskLevel = analyzer.RiskLow
		switch {
		case score > 0.4:
			r.RiskLevel = analyzer.RiskHigh
		case score > 0.2:
			r.RiskLevel = analyzer.RiskMedium
		}
		r.RiskScore = impact.Round(score, 2)
		list = append(list, *r)
	}
	slices.SortStableFunc(list, func(x, y RegionRisk) int {
		return descending(x.RiskScore, y.RiskScore)
	})

	advice := []Advice{}
	if len(highRisk) > 0 {
		names := make([]string, 0, 3)
		for _, c := range highRisk[:min(3, len(highRisk))] {
			names = append(names, c.Country)
		}
		advice = append(advice, Advice{
			Priority:       recommend.High,
			Recommendation: "Diversify supply sources away from high-risk countries: " + strings.Join(names, ", "),
		})
	}
	for _, r := range list {
		if r.RiskLevel == analyzer.RiskHigh {
			advice = append(advice, Advice{
				Priority:       recommend.High,
				Recommendation: fmt.Sprintf("Reduce dependency on %s region by developing alternate sources in other regions.", r.Region),
			})
			break
		}
	}
	advice = append(advice, Advice{
		Priority:       recommend.Medium,
		Recommendation: fmt.Sprintf("Monitor export policies in %s which may affect component availability.", strings.Join(exportRestricted, ", ")),
	})

	out := GeographicalInsights{
		HighRiskCountries: highRisk[:min(5, len(highRisk))],
		RegionalAnalysis:  list,
		Recommendations:   advice,
		Summary: GeoSummary{
			CountriesAnalyzed: len(geo.CountryConcentration),
			RegionsAnalyzed:   len(list),
		},
	}
	if len(list) > 0 {
		out.Summary.MostCriticalRegion = list[0].Region
	}
	return out
}

// RiskItem is one entry of a report's top risks.
type RiskItem struct {
	RiskType    string             `json:"risk_type"`
	Description string             `json:"description"`
	Priority    recommend.Priority `json:"priority"`
}

// StrategicRecommendation is a report-level recommendation.
type StrategicRecommendation struct {
	Category       string             `json:"category"`
	Recommendation string             `json:"recommendation"`
	Priority       recommend.Priority `json:"priority"`
}

// ExecutiveSummary is the headline of a summary report.
type ExecutiveSummary struct {
	ResilienceScore         float64    `json:"resilience_score"`
	RiskLevel               string     `json:"risk_level"`
	CriticalComponentsCount int        `json:"critical_components_count"`
	SinglePointsCount       int        `json:"single_points_count"`
	AffectedByTariffsCount  int        `json:"affected_by_tariffs_count"`
	TopRisks                []RiskItem `json:"top_risks"`
}

// GeographicalAnalysis is the geographical section of a summary report.
type GeographicalAnalysis struct {
	HighRiskCountries    []analyzer.CountryConcentration `json:"high_risk_countries"`
	HighestConcentration *analyzer.CountryConcentration  `json:"highest_concentration"`
}

// SummaryReport is a complete baseline report.
type SummaryReport struct {
	ReportTitle              string                       `json:"report_title"`
	ExecutiveSummary         ExecutiveSummary             `json:"executive_summary"`
	KeyMetrics               analyzer.ResilienceMetrics   `json:"key_metrics"`
	CriticalComponents       []analyzer.CriticalComponent `json:"critical_components"`
	SinglePointsOfFailure    []analyzer.SinglePoint       `json:"single_points_of_failure"`
	GeographicalAnalysis     GeographicalAnalysis         `json:"geographical_analysis"`
	StrategicRecommendations []StrategicRecommendation    `json:"strategic_recommendations"`
	GeneratedAt              time.Time                    `json:"generated_at"`
}

func priorityIf(cond bool) recommend.Priority {
	if cond {
		return recommend.High
	}
	return recommend.Medium
}

// SummaryReport combines every baseline analysis for companyID (or the
// whole graph) into one report.
func (e *Extractor) SummaryReport(companyID string) SummaryReport {
	resilience := e.a.CalculateResilienceScore(companyID)
	critical := e.a.FindCriticalComponents(companyID, analyzer.DefaultThreshold)
	spof := e.a.DetectSinglePointsOfFailure()
	tariff := e.a.AssessTariffVulnerability("")
	geo := e.a.IdentifyGeographicalConcentration()

	highRisk := []analyzer.CountryConcentration{}
	for _, c := range geo.CountryConcentration {
		if c.RiskLevel == analyzer.RiskHigh {
			highRisk = append(highRisk, c)
		}
	}

	risks := []RiskItem{}
	score := resilience.TotalResilienceScore
	if score < 60 {
		risks = append(risks, RiskItem{
			RiskType:    "low_resilience",
			Description: fmt.Sprintf("Low overall supply chain resilience score: %g/100", score),
			Priority:    recommend.High,
		})
	}
	if n := len(critical); n > 0 {
		names := make([]string, 0, 3)
		for _, c := range critical[:min(3, n)] {
			names = append(names, c.ComponentName)
		}
		risks = append(risks, RiskItem{
			RiskType:    "critical_components",
			Description: fmt.Sprintf("Found %d critical components with high vulnerability (e.g., %s)", n, strings.Join(names, ", ")),
			Priority:    priorityIf(n > 5),
		})
	}
	if n := len(spof); n > 0 {
		risks = append(risks, RiskItem{
			RiskType:    "single_points",
			Description: fmt.Sprintf("Found %d single points of failure in the supply chain", n),
			Priority:    priorityIf(n > 3),
		})
	}
	if n := len(highRisk); n > 0 {
		names := make([]string, 0, 2)
		for _, c := range highRisk[:min(2, n)] {
			names = append(names, c.Country)
		}
		risks = append(risks, RiskItem{
			RiskType:    "geographical_concentration",
			Description: fmt.Sprintf("High geographical concentration in %d countries (e.g., %s)", n, strings.Join(names, ", ")),
			Priority:    priorityIf(n > 1),
		})
	}
	if n := tariff.AffectedComponentsCount; n > 0 {
		risks = append(risks, RiskItem{
			RiskType:    "tariff_vulnerability",
			Description: fmt.Sprintf("Found %d components vulnerable to tariffs affecting %d products", n, tariff.AffectedProductsCount),
			Priority:    priorityIf(n > 10),
		})
	}
	slices.SortStableFunc(risks, func(x, y RiskItem) int { return x.Priority.Rank() - y.Priority.Rank() })

	recs := []StrategicRecommendation{}
	if score < 70 {
		lowest := resilience.Factors.Lowest()
		recs = append(recs, StrategicRecommendation{
			Category:       "resilience",
			Recommendation: "Improve overall supply chain resilience by focusing on " + strings.ReplaceAll(lowest.Name, "_", " "),
			Priority:       priorityIf(score < 60),
		})
	}
	if n := resilience.Metrics.SingleSupplierComponents; n > 0 {
		recs = append(recs, StrategicRecommendation{
			Category:       "diversification",
			Recommendation: fmt.Sprintf("Diversify suppliers for %d components that currently have single suppliers", n),
			Priority:       priorityIf(n > 5),
		})
	}
	if len(highRisk) > 0 {
		recs = append(recs, StrategicRecommendation{
			Category:       "geographical",
			Recommendation: fmt.Sprintf("Reduce dependency on components from %s by finding alternative sources", highRisk[0].Country),
			Priority:       recommend.High,
		})
	}
	if tariff.AffectedComponentsCount > 0 {
		recs = append(recs, StrategicRecommendation{
			Category:       "tariff",
			Recommendation: "Develop mitigation strategies for tariff-vulnerable components, particularly those used in multiple products",
			Priority:       recommend.Medium,
		})
	}
	recs = append(recs, StrategicRecommendation{
		Category:       "monitoring",
		Recommendation: "Implement real-time monitoring system for supply chain disruptions and geopolitical risks",
		Priority:       recommend.Medium,
	})
	slices.SortStableFunc(recs, func(x, y StrategicRecommendation) int { return x.Priority.Rank() - y.Priority.Rank() })

	title := "Supply Chain Analysis Report"
	if companyID != "" {
		title += " for " + e.g.Node(companyID).DisplayName()
	}

	e.logger.Info("summary report generated", "company", companyID, "risks", len(risks), "recommendations", len(recs))
	return SummaryReport{
		ReportTitle: title,
		ExecutiveSummary: ExecutiveSummary{
			ResilienceScore:         score,
			RiskLevel:               resilience.RiskLevel,
			CriticalComponentsCount: len(critical),
			SinglePointsCount:       len(spof),
			AffectedByTariffsCount:  tariff.AffectedComponentsCount,
			TopRisks:                risks,
		},
		KeyMetrics:            resilience.Metrics,
		CriticalComponents:    critical[:min(10, len(critical))],
		SinglePointsOfFailure: spof[:min(10, len(spof))],
		GeographicalAnalysis: GeographicalAnalysis{
			HighRiskCountries:    highRisk,
			HighestConcentration: geo.HighestConcentration,
		},
		StrategicRecommendations: recs,
		GeneratedAt:              e.now().UTC(),
	}
}
