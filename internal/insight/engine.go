package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/metrics"
	"github.com/Benny93/prophet-go/internal/recommend"
	"github.com/Benny93/prophet-go/internal/scenario"
)

// ErrNoStore is returned when stored results are requested from an Engine
// without a ResultStore.
var ErrNoStore = errors.New("no result store configured")

// ErrComponentNotFound is the inline error text for an unknown component.
const ErrComponentNotFound = "Component not found in graph"

// ResultStore persists scenario results.
type ResultStore interface {
	SaveResult(ctx context.Context, res *scenario.Result) error
	GetResult(ctx context.Context, id string) (*scenario.Result, error)
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	store   ResultStore
	metrics *metrics.Registry
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// WithStore persists every prediction in store.
func WithStore(store ResultStore) EngineOption {
	return func(c *engineConfig) { c.store = store }
}

// WithMetrics records analyses and scenarios in reg.
func WithMetrics(reg *metrics.Registry) EngineOption {
	return func(c *engineConfig) { c.metrics = reg }
}

// WithLogger sets the logger used by the analyzer and extractor.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) { c.logger = logger }
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(c *engineConfig) { c.now = now }
}

// WithIDGenerator overrides how scenario result IDs are generated.
func WithIDGenerator(gen func() string) EngineOption {
	return func(c *engineConfig) { c.newID = gen }
}

// Engine is the prediction front end: it runs scenarios, persists their
// results and assembles reports.
type Engine struct {
	g         *graph.SupplyGraph
	analyzer  *analyzer.Analyzer
	modeler   *scenario.Modeler
	extractor *Extractor
	store     ResultStore
	now       func() time.Time
}

// NewEngine creates an Engine over g.
func NewEngine(g *graph.SupplyGraph, opts ...EngineOption) *Engine {
	cfg := engineConfig{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	aopts := []analyzer.Option{analyzer.WithLogger(cfg.logger)}
	mopts := []scenario.Option{scenario.WithClock(cfg.now)}
	if cfg.metrics != nil {
		aopts = append(aopts, analyzer.WithMetrics(cfg.metrics))
		mopts = append(mopts, scenario.WithMetrics(cfg.metrics))
	}
	if cfg.newID != nil {
		mopts = append(mopts, scenario.WithIDGenerator(cfg.newID))
	}

	a := analyzer.New(g, aopts...)
	ex := NewExtractor(a, cfg.logger)
	ex.now = cfg.now
	return &Engine{
		g:         g,
		analyzer:  a,
		modeler:   scenario.NewModeler(g, a, mopts...),
		extractor: ex,
		store:     cfg.store,
		now:       cfg.now,
	}
}

// Analyzer returns the engine's baseline analyzer.
func (e *Engine) Analyzer() *analyzer.Analyzer { return e.analyzer }

// Extractor returns the engine's insight extractor.
func (e *Engine) Extractor() *Extractor { return e.extractor }

// Modeler returns the engine's scenario modeler.
func (e *Engine) Modeler() *scenario.Modeler { return e.modeler }

func (e *Engine) persist(ctx context.Context, res *scenario.Result, err error) (*scenario.Result, error) {
	if err != nil {
		return nil, err
	}
	if e.store != nil {
		if err := e.store.SaveResult(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to save result %s: %w", res.ID, err)
		}
		ctxlog.FromContext(ctx).Debug("result saved", "id", res.ID, "scenario", res.ScenarioType)
	}
	return res, nil
}

// PredictTariff runs a tariff scenario. Invalid requests fail with an
// error wrapping scenario.ErrInvalidRequest.
func (e *Engine) PredictTariff(ctx context.Context, req scenario.TariffRequest) (*scenario.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	res, err := e.modeler.Tariff(ctx, req)
	return e.persist(ctx, res, err)
}

// PredictDisruption runs a supplier disruption scenario. Unset fields
// default to a complete outage lasting 3 months.
func (e *Engine) PredictDisruption(ctx context.Context, req scenario.DisruptionRequest) (*scenario.Result, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	res, err := e.modeler.Disruption(ctx, req)
	return e.persist(ctx, res, err)
}

// PredictGeopolitical runs a geopolitical event scenario. Unset fields
// default to medium severity lasting 6 months.
func (e *Engine) PredictGeopolitical(ctx context.Context, req scenario.GeopoliticalRequest) (*scenario.Result, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	res, err := e.modeler.Geopolitical(ctx, req)
	return e.persist(ctx, res, err)
}

// PredictShortage runs a component shortage scenario. Unset fields
// default to a severe shortage lasting 6 months.
func (e *Engine) PredictShortage(ctx context.Context, req scenario.ShortageRequest) (*scenario.Result, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	res, err := e.modeler.Shortage(ctx, req)
	return e.persist(ctx, res, err)
}

// Combine runs a compound scenario over results.
func (e *Engine) Combine(ctx context.Context, results []*scenario.Result) (*scenario.Result, error) {
	res, err := e.modeler.Combine(ctx, results)
	return e.persist(ctx, res, err)
}

// CombineStored loads stored results by ID and combines them.
func (e *Engine) CombineStored(ctx context.Context, ids []string) (*scenario.Result, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	results := make([]*scenario.Result, 0, len(ids))
	for _, id := range ids {
		res, err := e.store.GetResult(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load result %s: %w", id, err)
		}
		results = append(results, res)
	}
	return e.Combine(ctx, results)
}

// RunPlan runs a scenario plan and persists every result.
func (e *Engine) RunPlan(ctx context.Context, p *scenario.Plan) (*scenario.PlanResult, error) {
	out, err := e.modeler.RunPlan(ctx, p)
	if err != nil {
		return nil, err
	}
	for _, res := range out.Results {
		if _, err := e.persist(ctx, res, nil); err != nil {
			return nil, err
		}
	}
	if out.Compound != nil {
		if _, err := e.persist(ctx, out.Compound, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// OptimizationReport holds general improvement recommendations.
type OptimizationReport struct {
	RecommendationType string                     `json:"recommendation_type"`
	CompanyID          string                     `json:"company_id,omitempty"`
	ResilienceScore    float64                    `json:"resilience_score"`
	RiskLevel          string                     `json:"risk_level"`
	Recommendations    []recommend.Recommendation `json:"recommendations"`
	ResilienceFactors  analyzer.Factors           `json:"resilience_factors"`
	Metrics            analyzer.ResilienceMetrics `json:"metrics"`
	GeneratedAt        time.Time                  `json:"generated_at"`
}

// Recommendations returns optimization recommendations for companyID (or
// the whole graph).
func (e *Engine) Recommendations(companyID string) OptimizationReport {
	res := e.analyzer.CalculateResilienceScore(companyID)
	return OptimizationReport{
		RecommendationType: "optimization",
		CompanyID:          companyID,
		ResilienceScore:    res.TotalResilienceScore,
		RiskLevel:          res.RiskLevel,
		Recommendations:    recommend.Optimization(res),
		ResilienceFactors:  res.Factors,
		Metrics:            res.Metrics,
		GeneratedAt:        e.now().UTC(),
	}
}

// SupplierRef identifies a current supplier of a component.
type SupplierRef struct {
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	HQCountry    string `json:"hq_country"`
}

// AlternativeSources lists the current sourcing of a component and
// candidate replacements.
type AlternativeSources struct {
	ComponentID      string        `json:"component_id"`
	ComponentName    string        `json:"component_name"`
	ComponentType    string        `json:"component_type,omitempty"`
	CurrentSuppliers []SupplierRef `json:"current_suppliers"`
	CurrentCountries []string      `json:"current_countries"`
	Alternatives     []Alternative `json:"alternatives"`
	Error            string        `json:"error,omitempty"`
	GeneratedAt      time.Time     `json:"generated_at"`
}

// AlternativeSources finds up to limit alternatives for a component. An
// unknown component is reported inline.
func (e *Engine) AlternativeSources(componentID string, limit int) AlternativeSources {
	out := AlternativeSources{
		ComponentID:      componentID,
		ComponentName:    "Unknown",
		CurrentSuppliers: []SupplierRef{},
		CurrentCountries: []string{},
		Alternatives:     []Alternative{},
		GeneratedAt:      e.now().UTC(),
	}
	n := e.g.Node(componentID)
	if n == nil {
		out.Error = ErrComponentNotFound
		return out
	}

	out.ComponentName = n.DisplayName()
	out.ComponentType = n.Category()
	if out.ComponentType == "" {
		out.ComponentType = "Unknown"
	}
	for _, rel := range e.g.Incoming(componentID, graph.RelSupplies) {
		s := e.g.Node(rel.Source)
		hq := "Unknown"
		if s != nil && s.Company != nil && s.Company.HQCountry != "" {
			hq = s.Company.HQCountry
		}
		out.CurrentSuppliers = append(out.CurrentSuppliers, SupplierRef{
			SupplierID:   rel.Source,
			SupplierName: s.DisplayName(),
			HQCountry:    hq,
		})
	}
	out.CurrentCountries = nonNil(analyzer.Countries(e.g, componentID))
	out.Alternatives = FindAlternativeComponents(e.g, componentID, limit)
	return out
}

// Baseline is the headline of a comprehensive analysis.
type Baseline struct {
	ResilienceScore         float64 `json:"resilience_score"`
	RiskLevel               string  `json:"risk_level"`
	CriticalComponentsCount int     `json:"critical_components_count"`
	SinglePointsCount       int     `json:"single_points_count"`
}

// TopInsights are the most important names from each insight report.
type TopInsights struct {
	CriticalComponents []string `json:"critical_components"`
	HighRiskSuppliers  []string `json:"high_risk_suppliers"`
	HighRiskCountries  []string `json:"high_risk_countries"`
}

// ScenarioSummary summarizes one scenario run as part of a comprehensive
// analysis.
type ScenarioSummary struct {
	Type               scenario.Type `json:"type"`
	ResultID           string        `json:"result_id"`
	SupplierID         string        `json:"supplier_id,omitempty"`
	SupplierName       string        `json:"supplier_name,omitempty"`
	Country            string        `json:"country,omitempty"`
	IncreasePercentage float64       `json:"increase_percentage,omitempty"`
	ImpactLevel        string        `json:"impact_level"`
}

// Reports holds the full reports behind a comprehensive analysis.
type Reports struct {
	Baseline        SummaryReport        `json:"baseline"`
	Components      ComponentInsights    `json:"components"`
	Suppliers       SupplierInsights     `json:"suppliers"`
	Geographical    GeographicalInsights `json:"geographical"`
	Recommendations OptimizationReport   `json:"recommendations"`
}

// Comprehensive is the result of Engine.Comprehensive.
type Comprehensive struct {
	AnalysisType       string            `json:"analysis_type"`
	CompanyID          string            `json:"company_id,omitempty"`
	CompanyName        string            `json:"company_name"`
	Baseline           Baseline          `json:"baseline"`
	TopInsights        TopInsights       `json:"top_insights"`
	TopRecommendations []string          `json:"top_recommendations"`
	Scenarios          []ScenarioSummary `json:"scenarios"`
	Reports            Reports           `json:"reports"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// ComprehensiveTariff is the tariff increase simulated on the main
// sourcing country.
const ComprehensiveTariff = 25

// Comprehensive runs every baseline report and, when includeScenarios is
// set, a complete 3-month outage of the company's first supplier and a
// tariff on the most common origin country.
func (e *Engine) Comprehensive(ctx context.Context, companyID string, includeScenarios bool) (*Comprehensive, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("running comprehensive analysis", "company", companyID)

	reports := Reports{
		Baseline:        e.extractor.SummaryReport(companyID),
		Components:      e.extractor.ComponentInsights(10),
		Suppliers:       e.extractor.SupplierInsights(5),
		Geographical:    e.extractor.GeographicalInsights(),
		Recommendations: e.Recommendations(companyID),
	}

	out := &Comprehensive{
		AnalysisType: "comprehensive",
		CompanyID:    companyID,
		CompanyName:  "All Companies",
		Baseline: Baseline{
			ResilienceScore:         reports.Baseline.ExecutiveSummary.ResilienceScore,
			RiskLevel:               reports.Baseline.ExecutiveSummary.RiskLevel,
			CriticalComponentsCount: reports.Baseline.ExecutiveSummary.CriticalComponentsCount,
			SinglePointsCount:       reports.Baseline.ExecutiveSummary.SinglePointsCount,
		},
		TopInsights: TopInsights{
			CriticalComponents: []string{},
			HighRiskSuppliers:  []string{},
			HighRiskCountries:  []string{},
		},
		TopRecommendations: []string{},
		Scenarios:          []ScenarioSummary{},
		Reports:            reports,
		GeneratedAt:        e.now().UTC(),
	}
	if companyID != "" {
		out.CompanyName = "Unknown"
		if n := e.g.Node(companyID); n != nil {
			out.CompanyName = n.DisplayName()
		}
	}

	for _, c := range reports.Components.TopCriticalComponents[:min(3, len(reports.Components.TopCriticalComponents))] {
		out.TopInsights.CriticalComponents = append(out.TopInsights.CriticalComponents, c.ComponentName)
	}
	for _, s := range reports.Suppliers.TopSuppliers {
		if s.RiskLevel == analyzer.RiskHigh && len(out.TopInsights.HighRiskSuppliers) < 3 {
			out.TopInsights.HighRiskSuppliers = append(out.TopInsights.HighRiskSuppliers, s.SupplierName)
		}
	}
	for _, c := range reports.Geographical.HighRiskCountries[:min(3, len(reports.Geographical.HighRiskCountries))] {
		out.TopInsights.HighRiskCountries = append(out.TopInsights.HighRiskCountries, c.Country)
	}
	for _, r := range reports.Recommendations.Recommendations[:min(5, len(reports.Recommendations.Recommendations))] {
		out.TopRecommendations = append(out.TopRecommendations, r.Description)
	}

	if !includeScenarios {
		return out, nil
	}

	if companyID != "" {
		if supplierID := e.firstSupplierOf(companyID); supplierID != "" {
			res, err := e.PredictDisruption(ctx, scenario.DisruptionRequest{
				SupplierID:     supplierID,
				Level:          scenario.LevelComplete,
				DurationMonths: 3,
			})
			if err != nil {
				return nil, fmt.Errorf("supplier disruption scenario: %w", err)
			}
			summary := ScenarioSummary{
				Type:        res.ScenarioType,
				ResultID:    res.ID,
				SupplierID:  supplierID,
				ImpactLevel: impactLevel(res),
			}
			if res.Disruption != nil {
				summary.SupplierName = res.Disruption.SupplierName
			}
			out.Scenarios = append(out.Scenarios, summary)
		}
	}

	if country := e.mainSourcingCountry(); country != "" {
		res, err := e.PredictTariff(ctx, scenario.TariffRequest{Country: country, IncreasePercentage: ComprehensiveTariff})
		if err != nil {
			return nil, fmt.Errorf("tariff scenario: %w", err)
		}
		out.Scenarios = append(out.Scenarios, ScenarioSummary{
			Type:               res.ScenarioType,
			ResultID:           res.ID,
			Country:            country,
			IncreasePercentage: ComprehensiveTariff,
			ImpactLevel:        impactLevel(res),
		})
	}

	logger.Info("comprehensive analysis complete", "company", companyID, "scenarios", len(out.Scenarios))
	return out, nil
}

func impactLevel(res *scenario.Result) string {
	if res.ResilienceImpact.Change < -10 {
		return analyzer.RiskHigh
	}
	return analyzer.RiskMedium
}

// firstSupplierOf returns the first company, in graph order, supplying a
// component used by one of companyID's products.
func (e *Engine) firstSupplierOf(companyID string) string {
	for _, kind := range []graph.NodeKind{graph.KindCompany, graph.KindSupplier} {
		for _, s := range e.g.NodesByKind(kind) {
			for _, sup := range e.g.Outgoing(s.ID, graph.RelSupplies) {
				for _, con := range e.g.Incoming(sup.Target, graph.RelContains) {
					if e.g.HasRelationship(companyID, graph.RelManufactures, con.Source) {
						return s.ID
					}
				}
			}
		}
	}
	return ""
}

// mainSourcingCountry returns the origin country shared by the most
// components; ties go to the first seen.
func (e *Engine) mainSourcingCountry() string {
	var order []string
	counts := make(map[string]int)
	for _, c := range e.g.NodesByKind(graph.KindComponent) {
		for _, country := range analyzer.Countries(e.g, c.ID) {
			if _, ok := counts[country]; !ok {
				order = append(order, country)
			}
			counts[country]++
		}
	}

	best := ""
	for _, country := range order {
		if best == "" || counts[country] > counts[best] {
			best = country
		}
	}
	return best
}
