// Package scenario simulates what-if events against a private copy of
// the supply graph and reports their impact.
package scenario

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/impact"
	"github.com/Benny93/prophet-go/internal/metrics"
	"github.com/Benny93/prophet-go/internal/recommend"
)

const (
	maxProducts   = 10
	maxComponents = 15
)

// Metric outcomes.
const (
	outcomeOK       = "ok"
	outcomeEmpty    = "empty"
	outcomeNotFound = "not_found"
)

// ErrSupplierNotFound is the inline error text for an unknown supplier.
const ErrSupplierNotFound = "Supplier not found in graph"

// Option configures a Modeler.
type Option func(*Modeler)

// WithMetrics records scenario runs in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(m *Modeler) { m.metrics = reg }
}

// WithClock overrides the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Modeler) { m.now = now }
}

// WithIDGenerator overrides result ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *Modeler) { m.newID = gen }
}

// Modeler runs scenarios against copies of one source graph. The source
// graph is never modified, so a Modeler is safe for concurrent use.
type Modeler struct {
	g        *graph.SupplyGraph
	baseline analyzer.Resilience
	metrics  *metrics.Registry
	now      func() time.Time
	newID    func() string
}

// NewModeler creates a Modeler over g. The baseline resilience is taken
// from a once, at construction.
func NewModeler(g *graph.SupplyGraph, a *analyzer.Analyzer, opts ...Option) *Modeler {
	m := &Modeler{
		g:        g,
		baseline: a.CalculateResilienceScore(""),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Baseline returns the resilience of the unmodified graph.
func (m *Modeler) Baseline() analyzer.Resilience {
	return m.baseline
}

// run is the working state of one scenario call.
type run struct {
	id      string
	g       *graph.SupplyGraph
	overlay *Overlay
	effects []Effect
	start   time.Time
}

func (m *Modeler) reset() *run {
	return &run{
		id:      m.newID(),
		g:       m.g.Clone(),
		overlay: NewOverlay(),
		start:   time.Now(),
	}
}

func (r *run) apply(e Effect) {
	if r.overlay.Apply(r.g, e, r.id) {
		r.effects = append(r.effects, e)
	}
}

func (r *run) rescore() analyzer.Resilience {
	return analyzer.New(r.g, analyzer.WithFlags(r.overlay)).CalculateResilienceScore("")
}

func (m *Modeler) newResult(r *run, t Type) *Result {
	base := m.baseline.TotalResilienceScore
	return &Result{
		ID:                 r.id,
		ScenarioType:       t,
		GeneratedAt:        m.now().UTC(),
		AffectedComponents: []*impact.AffectedComponent{},
		AffectedProducts:   []*impact.AffectedProduct{},
		ResilienceImpact:   ResilienceImpact{Before: base, After: base},
		Recommendations:    []recommend.Recommendation{},
		Effects:            []Effect{},
	}
}

// finish fills the shared sections of res from the run.
func (m *Modeler) finish(r *run, res *Result, comps []*impact.AffectedComponent, prods []*impact.AffectedProduct, after analyzer.Resilience, maxComps int) {
	res.AffectedComponentsCount = len(comps)
	res.AffectedComponents = truncate(comps, maxComps)
	res.AffectedProductsCount = len(prods)
	res.AffectedProducts = truncate(prods, maxProducts)
	res.ResilienceImpact = ResilienceImpact{
		Before: m.baseline.TotalResilienceScore,
		After:  after.TotalResilienceScore,
		Change: impact.Round(after.TotalResilienceScore-m.baseline.TotalResilienceScore, 2),
	}
	if r.effects != nil {
		res.Effects = r.effects
	}
}

func (m *Modeler) record(ctx context.Context, r *run, res *Result, outcome string) {
	if m.metrics != nil {
		m.metrics.RecordScenario(string(res.ScenarioType), outcome, time.Since(r.start),
			res.AffectedComponentsCount, res.ResilienceImpact.Change)
	}
	ctxlog.FromContext(ctx).Info("scenario complete",
		slog.String("scenario", string(res.ScenarioType)),
		slog.String("id", res.ID),
		slog.String("outcome", outcome),
		slog.Int("affected_components", res.AffectedComponentsCount),
		slog.Int("affected_products", res.AffectedProductsCount),
		slog.Float64("resilience_change", res.ResilienceImpact.Change),
	)
}

// Tariff models a tariff increase on in-use components originating from
// a country, optionally restricted to some component categories.
func (m *Modeler) Tariff(ctx context.Context, req TariffRequest) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.reset()
	res := m.newResult(r, TypeTariff)
	res.Tariff = &TariffDetail{
		Country:            req.Country,
		IncreasePercentage: req.IncreasePercentage,
		ComponentTypes:     req.ComponentTypes,
	}

	var comps []*impact.AffectedComponent
	for _, n := range m.g.NodesByKind(graph.KindComponent) {
		if !analyzer.InUse(m.g, n.ID) || !analyzer.MatchesCountry(analyzer.Countries(m.g, n.ID), req.Country) {
			continue
		}
		category := n.Category()
		if category == "" {
			category = "unknown"
		}
		if len(req.ComponentTypes) > 0 && !slices.ContainsFunc(req.ComponentTypes, func(t string) bool {
			return strings.EqualFold(t, category)
		}) {
			continue
		}

		c := analyzer.NewAffectedComponent(n)
		c.ComponentType = category
		c.TariffIncrease = req.IncreasePercentage
		comps = append(comps, c)
		r.apply(Effect{ComponentID: n.ID, Kind: EffectTariff})
	}

	if len(comps) == 0 {
		m.record(ctx, r, res, outcomeEmpty)
		return res, nil
	}

	prods := analyzer.FindAffectedProducts(m.g, comps)
	after := r.rescore()
	res.Tariff.PriceImpacts = impact.PriceImpacts(comps, prods, req.IncreasePercentage)
	res.Recommendations = recommend.Tariff(comps, prods)
	m.finish(r, res, comps, prods, after, len(comps))
	m.record(ctx, r, res, outcomeOK)
	return res, nil
}

// Disruption models a partial or complete outage of one supplier.
func (m *Modeler) Disruption(ctx context.Context, req DisruptionRequest) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.reset()
	res := m.newResult(r, TypeDisruption)
	res.Disruption = &DisruptionDetail{
		SupplierID:      req.SupplierID,
		SupplierName:    "Unknown",
		DisruptionLevel: req.Level,
		DurationMonths:  req.DurationMonths,
	}

	supplier := m.g.Node(req.SupplierID)
	if supplier == nil {
		res.Error = ErrSupplierNotFound
		m.record(ctx, r, res, outcomeNotFound)
		return res, nil
	}
	res.Disruption.SupplierName = supplier.DisplayName()

	complete := req.Level == LevelComplete
	var comps []*impact.AffectedComponent
	for _, rel := range m.g.Outgoing(req.SupplierID, graph.RelSupplies) {
		n := m.g.Node(rel.Target)
		if n == nil || n.Kind != graph.KindComponent {
			continue
		}
		comps = append(comps, analyzer.NewAffectedComponent(n))
		if complete {
			r.apply(Effect{ComponentID: n.ID, Kind: EffectSupplyRemoved, SupplierID: req.SupplierID})
		} else {
			r.apply(Effect{ComponentID: n.ID, Kind: EffectSupplyConstrained, SupplierID: req.SupplierID})
		}
	}

	severity := 0.6
	if complete {
		severity = 1.0
	}
	duration := min(1.0, float64(req.DurationMonths)/12)

	prods := analyzer.FindAffectedProducts(m.g, comps)
	after := r.rescore()
	res.Disruption.LeadTimeImpacts = impact.LeadTimeImpacts(comps, prods, severity, duration)
	res.Recommendations = recommend.Disruption(comps, prods, req.Level, req.DurationMonths)
	m.finish(r, res, comps, prods, after, len(comps))
	m.record(ctx, r, res, outcomeFor(comps))
	return res, nil
}

var geoSeverity = map[string]float64{"low": 0.3, "medium": 0.6, "high": 0.9}

type eventFactors struct{ leadTime, availability, cost float64 }

var geoEvents = map[string]eventFactors{
	"trade_restriction": {0.5, 0.3, 0.8},
	"conflict":          {0.9, 0.8, 0.6},
	"natural_disaster":  {0.7, 0.9, 0.4},
	"political_change":  {0.3, 0.2, 0.5},
}

// Geopolitical models an event affecting in-use components that
// originate from a country.
func (m *Modeler) Geopolitical(ctx context.Context, req GeopoliticalRequest) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.reset()
	res := m.newResult(r, TypeGeopolitical)

	s, ok := geoSeverity[req.Severity]
	if !ok {
		s = 0.5
	}
	f, ok := geoEvents[req.EventType]
	if !ok {
		f = eventFactors{0.5, 0.5, 0.5}
	}

	var comps []*impact.AffectedComponent
	for _, n := range m.g.NodesByKind(graph.KindComponent) {
		if !analyzer.InUse(m.g, n.ID) || !analyzer.MatchesCountry(analyzer.Countries(m.g, n.ID), req.Country) {
			continue
		}
		c := analyzer.NewAffectedComponent(n)
		c.LeadTimeImpact = impact.Round(s*f.leadTime*10, 1)
		c.AvailabilityImpact = impact.Round(s*f.availability*100, 1)
		c.CostImpact = impact.Round(s*f.cost*30, 1)
		comps = append(comps, c)
		r.apply(Effect{ComponentID: n.ID, Kind: EffectEvent, Level: req.Severity})
	}

	prods := analyzer.FindAffectedProducts(m.g, comps)
	after := r.rescore()
	summary := impact.GeopoliticalProductImpacts(prods, comps)

	res.Geopolitical = &GeopoliticalDetail{
		Country:        req.Country,
		EventType:      req.EventType,
		Severity:       req.Severity,
		DurationMonths: req.DurationMonths,
		ImpactAssessment: GeopoliticalAssessment{
			LeadTime:           summary.AverageLeadTimeIncrease,
			Availability:       summary.AverageAvailabilityDecrease,
			Cost:               summary.AverageCostIncrease,
			OverallImpactLevel: impact.OverallImpact(after.TotalResilienceScore, m.baseline.TotalResilienceScore, summary),
		},
		RecoveryTimeline: RecoveryTimeline{
			EstimatedMonths: max(req.DurationMonths, impact.RoundInt(s*18)),
		},
	}
	res.Recommendations = recommend.Geopolitical(req.Country, req.EventType, req.Severity, req.DurationMonths, comps, prods)
	m.finish(r, res, comps, prods, after, maxComponents)
	m.record(ctx, r, res, outcomeFor(comps))
	return res, nil
}

// Shortage models a shortage of components whose category contains the
// requested type.
func (m *Modeler) Shortage(ctx context.Context, req ShortageRequest) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.reset()
	res := m.newResult(r, TypeShortage)

	level := ShortageModerate
	severity := 0.5
	if req.Level == ShortageSevere {
		level, severity = ShortageSevere, 0.8
	}

	needle := strings.ToLower(req.ComponentType)
	var comps []*impact.AffectedComponent
	for _, n := range m.g.NodesByKind(graph.KindComponent) {
		category := n.Category()
		if !strings.Contains(strings.ToLower(category), needle) {
			continue
		}
		c := analyzer.NewAffectedComponent(n)
		c.Category = category
		cf := 1.0
		if c.Critical {
			cf = 1.2
		}
		c.LeadTimeIncreaseWeeks = impact.Round(severity*cf*12, 1)
		c.PriceIncreasePercent = impact.Round(severity*cf*50, 1)
		c.AllocationReductionPercent = impact.Round(severity*cf*40, 1)
		comps = append(comps, c)
		r.apply(Effect{ComponentID: n.ID, Kind: EffectShortage, Level: level})
	}

	prods := analyzer.FindAffectedProducts(m.g, comps)
	after := r.rescore()

	res.Shortage = &ShortageDetail{
		ComponentType:      req.ComponentType,
		ShortageLevel:      level,
		DurationMonths:     req.DurationMonths,
		ImpactAssessment:   impact.ShortageProductImpacts(prods, comps),
		AllocationStrategy: allocate(m.g, prods, level),
	}
	res.Recommendations = recommend.Shortage(req.ComponentType, level, req.DurationMonths, comps, prods)
	m.finish(r, res, comps, prods, after, maxComponents)
	m.record(ctx, r, res, outcomeFor(comps))
	return res, nil
}

// allocate proposes how to distribute the reduced supply across the
// affected products.
func allocate(g graph.Reader, prods []*impact.AffectedProduct, level string) AllocationStrategy {
	type scored struct {
		name  string
		score float64
	}

	strategic := make([]scored, 0, len(prods))
	margins := make([]scored, 0, len(prods))
	for _, p := range prods {
		var attrs *graph.ProductAttrs
		if n := g.Node(p.ProductID); n != nil {
			attrs = n.Product
		}
		strategic = append(strategic, scored{p.ProductName, float64(attrs.EffectiveReleaseYear() - graph.DefaultReleaseYear)})
		margins = append(margins, scored{p.ProductName, attrs.EstimatedMargin()})
	}
	byScore := func(x, y scored) int {
		switch {
		case x.score > y.score:
			return -1
		case x.score < y.score:
			return 1
		}
		return 0
	}
	slices.SortStableFunc(strategic, byScore)
	slices.SortStableFunc(margins, byScore)

	names := func(s []scored) []string {
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, e.name)
		}
		return out
	}

	n := len(strategic)
	t1, t2 := int(float64(n)*0.2), int(float64(n)*0.5)

	critical := slices.Clone(prods)
	slices.SortStableFunc(critical, func(x, y *impact.AffectedProduct) int {
		return y.CriticalComponentsCount - x.CriticalComponentsCount
	})
	mostCritical := []string{}
	for _, p := range critical[:min(5, len(critical))] {
		if p.CriticalComponentsCount > 0 {
			mostCritical = append(mostCritical, p.ProductName)
		}
	}

	s := AllocationStrategy{
		AvailableSupplyPercent: 50,
		AllocationStrategy:     "prioritized",
		ProductTiers: ProductTiers{
			Tier1: names(strategic[:t1]),
			Tier2: names(strategic[t1:t2]),
			Tier3: names(strategic[t2:]),
		},
		AllocationPercentages: TierPercentages{Tier1: 80, Tier2: 50, Tier3: 30},
		HighMarginProducts:    names(margins[:min(5, len(margins))]),
		MostCriticalProducts:  mostCritical,
	}
	if level == ShortageModerate {
		s.AvailableSupplyPercent = 70
		s.AllocationPercentages = TierPercentages{Tier1: 90, Tier2: 70, Tier3: 50}
	}
	return s
}

// Combine replays the effects of several results onto one fresh copy of
// the graph and reports their joint impact.
func (m *Modeler) Combine(ctx context.Context, results []*Result) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.reset()
	res := m.newResult(r, TypeCompound)

	detail := &CompoundDetail{
		ScenariosCombined: len(results),
		ScenarioTypes:     []Type{},
		ScenarioIDs:       []string{},
	}
	var recs []recommend.Recommendation
	for _, sr := range results {
		if sr == nil {
			continue
		}
		detail.ScenarioTypes = append(detail.ScenarioTypes, sr.ScenarioType)
		detail.ScenarioIDs = append(detail.ScenarioIDs, sr.ID)
		for _, e := range sr.Effects {
			if r.overlay.Apply(r.g, e, sr.ID) {
				r.effects = append(r.effects, e)
			}
		}
		recs = append(recs, sr.Recommendations...)
	}

	comps := make([]*impact.AffectedComponent, 0, r.overlay.Len())
	for _, id := range r.overlay.IDs() {
		a, _ := r.overlay.Get(id)
		c := analyzer.NewAffectedComponent(m.g.Node(id))
		c.ImpactSources = a.ImpactSources()
		c.Scenarios = a.Scenarios
		comps = append(comps, c)
	}

	prods := analyzer.FindAffectedProducts(m.g, comps)
	after := r.rescore()

	merged := recommend.Merge(recs)
	if len(results) > 1 {
		merged = append([]recommend.Recommendation{recommend.Compound(len(comps))}, merged...)
	}
	res.Recommendations = merged

	m.finish(r, res, comps, prods, after, maxComponents)
	detail.ImpactAssessment.Severity = impact.LevelMedium
	if res.ResilienceImpact.Change < -15 {
		detail.ImpactAssessment.Severity = impact.LevelHigh
	}
	res.Compound = detail
	m.record(ctx, r, res, outcomeFor(comps))
	return res, nil
}

func outcomeFor(comps []*impact.AffectedComponent) string {
	if len(comps) == 0 {
		return outcomeEmpty
	}
	return outcomeOK
}
