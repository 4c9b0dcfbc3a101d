package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fatih/color"

	"github.com/Benny93/prophet-go/internal/insight"
	"github.com/Benny93/prophet-go/internal/recommend"
	"github.com/Benny93/prophet-go/internal/scenario"
	"github.com/Benny93/prophet-go/internal/storage"
)

// PredictCmd groups scenario simulations and recommendations.
type PredictCmd struct {
	Tariff       PredictTariffCmd `cmd:"" help:"Simulate a tariff increase on one country"`
	Disruption   DisruptionCmd    `cmd:"" help:"Simulate a supplier outage"`
	Geopolitical GeopoliticalCmd  `cmd:"" help:"Simulate a geopolitical event"`
	Shortage     ShortageCmd      `cmd:"" help:"Simulate a component category shortage"`
	Optimize     OptimizeCmd      `cmd:"" help:"Recommend resilience improvements"`
	Alternatives AlternativesCmd  `cmd:"" help:"Find alternative sources for a component"`
	Combine      CombineCmd       `cmd:"" help:"Combine stored results into a compound scenario"`
	Plan         PlanCmd          `cmd:"" help:"Run a YAML scenario plan"`
}

// withWritableSession opens a session that persists results.
func withWritableSession(g *Globals, fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := g.context()
	defer cancel()

	s, err := g.openSession(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return fn(ctx, s)
}

// printResult writes a scenario result and its one-line summary.
func printResult(g *Globals, res *scenario.Result) error {
	if res.Error != "" {
		g.summary(color.FgRed, "✗ %s %s: %s", res.ScenarioType, res.ID, res.Error)
	} else {
		ri := res.ResilienceImpact
		attr := color.FgGreen
		if ri.Change < 0 {
			attr = color.FgYellow
		}
		g.summary(attr, "✓ %s %s: %d components, %d products affected, resilience %.1f → %.1f (%+.1f)",
			res.ScenarioType, res.ID, res.AffectedComponentsCount, res.AffectedProductsCount,
			ri.Before, ri.After, ri.Change)
	}
	return g.writeJSON(res)
}

// PredictTariffCmd simulates a tariff increase.
type PredictTariffCmd struct {
	Country  string   `required:"" help:"Country the tariff applies to"`
	Increase float64  `required:"" help:"Tariff increase in percent"`
	Types    []string `help:"Restrict to these component categories"`
}

// Run executes the tariff prediction.
func (c *PredictTariffCmd) Run(g *Globals) error {
	return withWritableSession(g, func(ctx context.Context, s *session) error {
		res, err := s.engine.PredictTariff(ctx, scenario.TariffRequest{
			Country:            c.Country,
			IncreasePercentage: c.Increase,
			ComponentTypes:     c.Types,
		})
		if err != nil {
			return err
		}
		return printResult(g, res)
	})
}

// DisruptionCmd simulates a supplier outage.
type DisruptionCmd struct {
	Supplier string `required:"" help:"Supplier ID"`
	Level    string `enum:"complete,partial" default:"complete" help:"Disruption level (complete|partial)"`
	Months   int    `default:"3" help:"Duration in months"`
}

// Run executes the disruption prediction.
func (c *DisruptionCmd) Run(g *Globals) error {
	return withWritableSession(g, func(ctx context.Context, s *session) error {
		res, err := s.engine.PredictDisruption(ctx, scenario.DisruptionRequest{
			SupplierID:     c.Supplier,
			Level:          c.Level,
			DurationMonths: c.Months,
		})
		if err != nil {
			return err
		}
		return printResult(g, res)
	})
}

// GeopoliticalCmd simulates a geopolitical event.
type GeopoliticalCmd struct {
	Country  string `required:"" help:"Affected country"`
	Event    string `required:"" enum:"trade_restriction,conflict,natural_disaster,political_change" help:"Event type"`
	Severity string `enum:"low,medium,high" default:"medium" help:"Severity (low|medium|high)"`
	Months   int    `default:"6" help:"Duration in months"`
}

// Run executes the geopolitical prediction.
func (c *GeopoliticalCmd) Run(g *Globals) error {
	return withWritableSession(g, func(ctx context.Context, s *session) error {
		res, err := s.engine.PredictGeopolitical(ctx, scenario.GeopoliticalRequest{
			Country:        c.Country,
			EventType:      c.Event,
			Severity:       c.Severity,
			DurationMonths: c.Months,
		})
		if err != nil {
			return err
		}
		return printResult(g, res)
	})
}

// ShortageCmd simulates a component shortage.
type ShortageCmd struct {
	Type   string `required:"" help:"Component category"`
	Level  string `enum:"severe,moderate" default:"severe" help:"Shortage level (severe|moderate)"`
	Months int    `default:"6" help:"Duration in months"`
}

// Run executes the shortage prediction.
func (c *ShortageCmd) Run(g *Globals) error {
	return withWritableSession(g, func(ctx context.Context, s *session) error {
		res, err := s.engine.PredictShortage(ctx, scenario.ShortageRequest{
			ComponentType:  c.Type,
			Level:          c.Level,
			DurationMonths: c.Months,
		})
		if err != nil {
			return err
		}
		return printResult(g, res)
	})
}

// OptimizeCmd recommends resilience improvements.
type OptimizeCmd struct {
	Company string `short:"c" help:"Restrict to one company's products"`
	Focus   string `help:"Order recommendations for a focus area (cost|speed|resilience|compliance)"`
}

// Run executes the optimize command.
func (c *OptimizeCmd) Run(g *Globals) error {
	if c.Focus != "" && !slices.Contains(recommend.FocusAreas(), c.Focus) {
		return fmt.Errorf("unknown focus %q, expected one of %v", c.Focus, recommend.FocusAreas())
	}
	return withSession(g, func(_ context.Context, s *session) error {
		if err := requireCompany(s, c.Company); err != nil {
			return err
		}
		report := s.engine.Recommendations(c.Company)
		report.Recommendations = recommend.Prioritize(report.Recommendations, c.Focus)
		g.summary(riskColor(report.RiskLevel), "%d recommendations for resilience %.1f (%s risk)",
			len(report.Recommendations), report.ResilienceScore, report.RiskLevel)
		return g.writeJSON(report)
	})
}

// AlternativesCmd finds alternative sources for a component.
type AlternativesCmd struct {
	Component string `arg:"" help:"Component ID"`
	Limit     int    `short:"n" default:"5" help:"Maximum alternatives"`
}

// Run executes the alternatives command.
func (c *AlternativesCmd) Run(g *Globals) error {
	return withSession(g, func(_ context.Context, s *session) error {
		res := s.engine.AlternativeSources(c.Component, c.Limit)
		if res.Error != "" {
			return fmt.Errorf("entity not found: component %q", c.Component)
		}
		g.summary(color.FgGreen, "%s: %d current suppliers, %d alternatives",
			res.ComponentName, len(res.CurrentSuppliers), len(res.Alternatives))
		return g.writeJSON(res)
	})
}

// CombineCmd combines stored results.
type CombineCmd struct {
	IDs []string `arg:"" name:"id" help:"Stored result IDs"`
}

// Run executes the combine command.
func (c *CombineCmd) Run(g *Globals) error {
	return withWritableSession(g, func(ctx context.Context, s *session) error {
		res, err := s.engine.CombineStored(ctx, c.IDs)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("entity not found: %w", err)
		}
		if err != nil {
			return err
		}
		return printResult(g, res)
	})
}

// PlanCmd runs a scenario plan file.
type PlanCmd struct {
	File string `arg:"" type:"existingfile" help:"YAML plan file"`
}

// Run executes the plan command.
func (c *PlanCmd) Run(g *Globals) error {
	plan, err := scenario.LoadPlan(c.File)
	if err != nil {
		return err
	}
	return withWritableSession(g, func(ctx context.Context, s *session) error {
		out, err := s.engine.RunPlan(ctx, plan)
		if err != nil {
			return err
		}
		g.summary(color.FgGreen, "✓ Plan %q: %d scenarios", out.Name, len(out.Results))
		if out.Compound != nil {
			ri := out.Compound.ResilienceImpact
			g.summary(color.FgYellow, "  compound %s: resilience %.1f → %.1f (%+.1f)",
				out.Compound.ID, ri.Before, ri.After, ri.Change)
		}
		return g.writeJSON(out)
	})
}

// ReportCmd groups combined reports.
type ReportCmd struct {
	Comprehensive ComprehensiveCmd `cmd:"" help:"Baseline, insights, recommendations and key scenarios"`
}

// ComprehensiveCmd runs a comprehensive analysis.
type ComprehensiveCmd struct {
	Company     string `short:"c" help:"Restrict to one company"`
	NoScenarios bool   `help:"Skip the supplier disruption and tariff scenarios"`
}

// Run executes the comprehensive report.
func (c *ComprehensiveCmd) Run(g *Globals) error {
	return withWritableSession(g, func(ctx context.Context, s *session) error {
		if err := requireCompany(s, c.Company); err != nil {
			return err
		}
		report, err := s.engine.Comprehensive(ctx, c.Company, !c.NoScenarios)
		if err != nil {
			return err
		}
		summarizeComprehensive(g, report)
		return g.writeJSON(report)
	})
}

func summarizeComprehensive(g *Globals, r *insight.Comprehensive) {
	g.summary(riskColor(r.Baseline.RiskLevel), "%s: resilience %.1f (%s risk), %d critical components, %d single points",
		r.CompanyName, r.Baseline.ResilienceScore, r.Baseline.RiskLevel,
		r.Baseline.CriticalComponentsCount, r.Baseline.SinglePointsCount)
	for _, sc := range r.Scenarios {
		g.summary(color.FgYellow, "  %s %s: %s impact", sc.Type, sc.ResultID, sc.ImpactLevel)
	}
}

// ResultsCmd groups stored result inspection.
type ResultsCmd struct {
	List ResultsListCmd `cmd:"" help:"List stored results, newest first"`
	Show ResultsShowCmd `cmd:"" help:"Show one stored result"`
}

// ResultsListCmd lists stored results.
type ResultsListCmd struct{}

// Run executes the results list command.
func (c *ResultsListCmd) Run(g *Globals) error {
	ctx, cancel := g.context()
	defer cancel()

	store, err := g.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	list, err := store.ListResults(ctx)
	if err != nil {
		return fmt.Errorf("listing results: %w", err)
	}
	g.summary(color.FgGreen, "%d stored results", len(list))
	return g.writeJSON(list)
}

// ResultsShowCmd shows one stored result.
type ResultsShowCmd struct {
	ID string `arg:"" help:"Result ID"`
}

// Run executes the results show command.
func (c *ResultsShowCmd) Run(g *Globals) error {
	ctx, cancel := g.context()
	defer cancel()

	store, err := g.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	res, err := store.GetResult(ctx, c.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("entity not found: result %q", c.ID)
	}
	if err != nil {
		return fmt.Errorf("reading result: %w", err)
	}
	return printResult(g, res)
}
