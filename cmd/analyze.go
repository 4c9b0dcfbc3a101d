package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/Benny93/prophet-go/internal/graph"
)

// AnalyzeCmd groups the baseline analyses.
type AnalyzeCmd struct {
	Resilience   ResilienceCmd    `cmd:"" help:"Overall supply-chain resilience score"`
	Critical     CriticalCmd      `cmd:"" help:"Critical components by criticality score"`
	Spof         SpofCmd          `cmd:"" name:"spof" help:"Single points of failure"`
	Tariff       AnalyzeTariffCmd `cmd:"" help:"Tariff-vulnerable components"`
	Geo          GeoCmd           `cmd:"" help:"Geographical concentration of sourcing"`
	Components   ComponentsCmd    `cmd:"" help:"Component risk insights"`
	Suppliers    SuppliersCmd     `cmd:"" help:"Supplier importance insights"`
	Company      CompanyCmd       `cmd:"" help:"Summary report for one company"`
	Country      CountryCmd       `cmd:"" help:"Risk profile of one sourcing country"`
	Regions      RegionsCmd       `cmd:"" help:"Compare sourcing regions"`
	Dependencies DependenciesCmd  `cmd:"" help:"Dependency analysis for a component category"`
	ShortageRisk ShortageRiskCmd  `cmd:"" name:"shortage-risk" help:"Shortage risk per component category"`
}

// withSession opens a read-only session, runs fn and closes the session.
func withSession(g *Globals, fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := g.context()
	defer cancel()

	s, err := g.openSession(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(ctx, s)
}

// requireCompany fails with "entity not found" unless id is empty or names
// a company.
func requireCompany(s *session, id string) error {
	if id == "" {
		return nil
	}
	n := s.engine.Analyzer().Graph().Node(id)
	if n == nil || n.Kind != graph.KindCompany {
		return fmt.Errorf("entity not found: company %q", id)
	}
	return nil
}

// riskColor maps a risk level to a summary color.
func riskColor(level string) color.Attribute {
	switch level {
	case "high":
		return color.FgRed
	case "medium":
		return color.FgYellow
	default:
		return color.FgGreen
	}
}

// ResilienceCmd scores supply-chain resilience.
type ResilienceCmd struct {
	Company string `short:"c" help:"Restrict to one company's products"`
}

// Run executes the resilience command.
func (c *ResilienceCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		if err := requireCompany(s, c.Company); err != nil {
			return err
		}
		res := s.engine.Analyzer().CalculateResilienceScore(c.Company)
		g.summary(riskColor(res.RiskLevel), "Resilience %.1f/100 (%s risk), weakest factor: %s",
			res.TotalResilienceScore, res.RiskLevel, res.Factors.Lowest().Name)
		return g.writeJSON(res)
	})
}

// CriticalCmd lists critical components.
type CriticalCmd struct {
	Manufacturer string  `short:"m" help:"Restrict to one manufacturer's products"`
	Threshold    float64 `short:"t" default:"${threshold}" help:"Minimum criticality score (0-1)"`
}

// Run executes the critical command.
func (c *CriticalCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		if err := requireCompany(s, c.Manufacturer); err != nil {
			return err
		}
		found := s.engine.Analyzer().FindCriticalComponents(c.Manufacturer, c.Threshold)
		g.summary(color.FgYellow, "%d critical component usages at threshold %.2f", len(found), c.Threshold)
		return g.writeJSON(found)
	})
}

// SpofCmd lists single points of failure.
type SpofCmd struct{}

// Run executes the spof command.
func (c *SpofCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		found := s.engine.Analyzer().DetectSinglePointsOfFailure()
		g.summary(color.FgYellow, "%d single points of failure", len(found))
		return g.writeJSON(found)
	})
}

// AnalyzeTariffCmd assesses tariff vulnerability.
type AnalyzeTariffCmd struct {
	Country string `help:"Restrict to components originating from this country"`
}

// Run executes the tariff analysis command.
func (c *AnalyzeTariffCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		res := s.engine.Analyzer().AssessTariffVulnerability(c.Country)
		g.summary(color.FgYellow, "%d tariff-vulnerable components across %d products and %d companies",
			res.AffectedComponentsCount, res.AffectedProductsCount, res.AffectedCompaniesCount)
		return g.writeJSON(res)
	})
}

// GeoCmd analyzes geographical concentration.
type GeoCmd struct {
	Insights bool `help:"Roll countries up to regions with recommendations"`
}

// Run executes the geo command.
func (c *GeoCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		if c.Insights {
			res := s.engine.Extractor().GeographicalInsights()
			g.summary(color.FgYellow, "%d high-risk countries, %d regions analyzed",
				len(res.HighRiskCountries), len(res.RegionalAnalysis))
			return g.writeJSON(res)
		}
		res := s.engine.Analyzer().IdentifyGeographicalConcentration()
		if h := res.HighestConcentration; h != nil {
			g.summary(riskColor(h.RiskLevel), "Highest concentration: %s (%.2f, %s risk)",
				h.Country, h.ConcentrationScore, h.RiskLevel)
		}
		return g.writeJSON(res)
	})
}

// ComponentsCmd reports component insights.
type ComponentsCmd struct {
	Top int `short:"n" default:"10" help:"Number of components to report"`
}

// Run executes the components command.
func (c *ComponentsCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		res := s.engine.Extractor().ComponentInsights(c.Top)
		g.summary(color.FgYellow, "%d top critical components", len(res.TopCriticalComponents))
		return g.writeJSON(res)
	})
}

// SuppliersCmd reports supplier insights.
type SuppliersCmd struct {
	Top int `short:"n" default:"10" help:"Number of suppliers to report"`
}

// Run executes the suppliers command.
func (c *SuppliersCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		res := s.engine.Extractor().SupplierInsights(c.Top)
		g.summary(color.FgYellow, "%d top suppliers", len(res.TopSuppliers))
		return g.writeJSON(res)
	})
}

// CompanyCmd reports on one company.
type CompanyCmd struct {
	ID string `arg:"" help:"Company ID"`
}

// Run executes the company command.
func (c *CompanyCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		if err := requireCompany(s, c.ID); err != nil {
			return err
		}
		res := s.engine.Extractor().SummaryReport(c.ID)
		g.summary(riskColor(res.ExecutiveSummary.RiskLevel), "%s", res.ReportTitle)
		return g.writeJSON(res)
	})
}

// CountryCmd profiles one sourcing country.
type CountryCmd struct {
	Name string `arg:"" help:"Country name"`
}

// Run executes the country command.
func (c *CountryCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		res := s.engine.Extractor().CountryRisk(c.Name)
		g.summary(riskColor(res.RiskLevel), "%s (%s): risk %.1f (%s), %d components",
			res.Country, res.Region, res.RiskScore, res.RiskLevel, res.ComponentCount)
		return g.writeJSON(res)
	})
}

// RegionsCmd compares sourcing regions.
type RegionsCmd struct{}

// Run executes the regions command.
func (c *RegionsCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		res := s.engine.Extractor().CompareRegions()
		g.summary(color.FgYellow, "%d regions, highest risk: %s", res.RegionCount, res.HighestRiskRegion)
		return g.writeJSON(res)
	})
}

// DependenciesCmd analyzes dependence on a component category.
type DependenciesCmd struct {
	Type string `arg:"" help:"Component category (substring match)"`
}

// Run executes the dependencies command.
func (c *DependenciesCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		res := s.engine.Extractor().ComponentDependencies(c.Type)
		g.summary(riskColor(res.DependencyLevel), "%s: %d components, dependency %.1f (%s)",
			res.ComponentType, res.ComponentCount, res.DependencyScore, res.DependencyLevel)
		return g.writeJSON(res)
	})
}

// ShortageRiskCmd reports shortage risk per category.
type ShortageRiskCmd struct{}

// Run executes the shortage-risk command.
func (c *ShortageRiskCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		res := s.engine.Extractor().ShortageRiskReport()
		g.summary(color.FgYellow, "%d categories analyzed: %d high risk, %d medium risk",
			res.ComponentTypesAnalyzed, len(res.HighRiskTypes), len(res.MediumRiskTypes))
		return g.writeJSON(res)
	})
}
