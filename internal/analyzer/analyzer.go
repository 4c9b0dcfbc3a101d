// Package analyzer implements read-only structural analyses over a supply
// graph: component criticality, single points of failure, tariff exposure,
// geographical concentration and the aggregate resilience score.
//
// An Analyzer never mutates its graph. Scenario code that needs transient
// flags supplies them through WithFlags instead of writing to nodes.
package analyzer

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/impact"
	"github.com/Benny93/prophet-go/internal/metrics"
)

// DefaultThreshold is the criticality threshold used when none is given.
const DefaultThreshold = 0.7

// Risk levels shared by the analyses.
const (
	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"
)

// criticalityWeights weight the critical flag, tariff exposure, supplier
// banding and country banding, in that order.
var criticalityWeights = [4]float64{0.40, 0.25, 0.20, 0.15}

// FlagSource contributes transient tariff-vulnerable flags on top of the
// flags stored on the graph.
type FlagSource interface {
	TariffVulnerable(componentID string) bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFlags layers transient flags over the graph's own.
func WithFlags(flags FlagSource) Option {
	return func(a *Analyzer) { a.flags = flags }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithMetrics records analysis counts and durations.
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *Analyzer) { a.metrics = reg }
}

// Analyzer runs analyses over one graph snapshot.
type Analyzer struct {
	g       graph.Reader
	flags   FlagSource
	logger  *slog.Logger
	metrics *metrics.Registry
}

// New creates an Analyzer over g.
func New(g graph.Reader, opts ...Option) *Analyzer {
	a := &Analyzer{g: g, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Graph returns the graph the Analyzer reads.
func (a *Analyzer) Graph() graph.Reader {
	return a.g
}

func (a *Analyzer) observe(name string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordAnalysis(name, time.Since(start))
	}
}

// TariffVulnerable reports whether the component is tariff-vulnerable,
// either on the graph or through the flag source.
func (a *Analyzer) TariffVulnerable(componentID string) bool {
	if a.g.Node(componentID).IsTariffVulnerable() {
		return true
	}
	return a.flags != nil && a.flags.TariffVulnerable(componentID)
}

// ComponentCriticality scores how damaging the loss of a component would
// be, in [0, 1] rounded to two decimals. Unknown components score 0.
// The product is accepted for call-site symmetry and does not affect the
// score.
func (a *Analyzer) ComponentCriticality(componentID, productID string) float64 {
	n := a.g.Node(componentID)
	if n == nil {
		return 0
	}

	factors := [4]float64{0.3, 0.4, 0, 0}
	if n.IsCritical() {
		factors[0] = 1.0
	}
	if a.TariffVulnerable(componentID) {
		factors[1] = 0.8
	}
	factors[2] = supplierBand(len(a.g.Incoming(componentID, graph.RelSupplies)))
	factors[3] = countryBand(len(Countries(a.g, componentID)))

	score := 0.0
	for i, f := range factors {
		score += f * criticalityWeights[i]
	}
	return impact.Round(score, 2)
}

func supplierBand(n int) float64 {
	switch {
	case n == 0:
		return 1.0
	case n == 1:
		return 0.9
	case n <= 3:
		return 0.6
	default:
		return 0.2
	}
}

func countryBand(n int) float64 {
	switch n {
	case 1:
		return 0.8
	case 2:
		return 0.5
	default:
		return 0.2
	}
}

// CriticalComponent is one (component, product) pair at or above the
// criticality threshold.
type CriticalComponent struct {
	ComponentID      string   `json:"component_id"`
	ComponentName    string   `json:"component_name"`
	ProductID        string   `json:"product_id"`
	ProductName      string   `json:"product_name"`
	CriticalityScore float64  `json:"criticality_score"`
	TariffVulnerable bool     `json:"tariff_vulnerable"`
	Suppliers        []string `json:"suppliers"`
	Countries        []string `json:"countries"`
}

// FindCriticalComponents scores every component of every product made by
// manufacturerID (or of all products) and keeps those scoring at least
// threshold, sorted by descending score.
func (a *Analyzer) FindCriticalComponents(manufacturerID string, threshold float64) []CriticalComponent {
	defer a.observe("critical_components", time.Now())

	products := ProductsToAnalyze(a.g, manufacturerID)
	result := []CriticalComponent{}
	for _, productID := range products {
		productName := a.g.Node(productID).DisplayName()
		for _, componentID := range ComponentIDs(a.g, productID) {
			score := a.ComponentCriticality(componentID, productID)
			if score < threshold {
				continue
			}
			result = append(result, CriticalComponent{
				ComponentID:      componentID,
				ComponentName:    a.g.Node(componentID).DisplayName(),
				ProductID:        productID,
				ProductName:      productName,
				CriticalityScore: score,
				TariffVulnerable: a.TariffVulnerable(componentID),
				Suppliers:        nonNil(SupplierNames(a.g, componentID)),
				Countries:        nonNil(Countries(a.g, componentID)),
			})
		}
	}

	slices.SortStableFunc(result, func(x, y CriticalComponent) int {
		return descending(x.CriticalityScore, y.CriticalityScore)
	})
	a.logger.Debug("critical components found", "products", len(products), "components", len(result), "threshold", threshold)
	return result
}

// ProductRef identifies a product by ID and name.
type ProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Single point of failure types.
const (
	SingleSupplier = "single_supplier"
	SingleCountry  = "single_country"
)

// SinglePoint is a component with exactly one supplier or exactly one
// origin country.
type SinglePoint struct {
	Type             string       `json:"type"`
	ComponentID      string       `json:"component_id"`
	ComponentName    string       `json:"component_name"`
	SupplierID       string       `json:"supplier_id,omitempty"`
	SupplierName     string       `json:"supplier_name,omitempty"`
	Country          string       `json:"country,omitempty"`
	AffectedProducts []ProductRef `json:"affected_products"`
	RiskLevel        string       `json:"risk_level"`
}

// DetectSinglePointsOfFailure runs the single-supplier pass followed by the
// single-country pass over in-use components. A component failing both
// checks appears twice.
func (a *Analyzer) DetectSinglePointsOfFailure() []SinglePoint {
	defer a.observe("single_points", time.Now())

	components := a.g.NodesByKind(graph.KindComponent)
	result := []SinglePoint{}

	for _, c := range components {
		suppliers := SupplierIDs(a.g, c.ID)
		if len(suppliers) != 1 {
			continue
		}
		products := a.productRefs(c.ID)
		if len(products) == 0 {
			continue
		}
		result = append(result, SinglePoint{
			Type:             SingleSupplier,
			ComponentID:      c.ID,
			ComponentName:    c.DisplayName(),
			SupplierID:       suppliers[0],
			SupplierName:     a.g.Node(suppliers[0]).DisplayName(),
			AffectedProducts: products,
			RiskLevel:        criticalRisk(c),
		})
	}

	for _, c := range components {
		countries := Countries(a.g, c.ID)
		if len(countries) != 1 {
			continue
		}
		products := a.productRefs(c.ID)
		if len(products) == 0 {
			continue
		}
		result = append(result, SinglePoint{
			Type:             SingleCountry,
			ComponentID:      c.ID,
			ComponentName:    c.DisplayName(),
			Country:          countries[0],
			AffectedProducts: products,
			RiskLevel:        criticalRisk(c),
		})
	}

	a.logger.Debug("single points of failure detected", "count", len(result))
	return result
}

func (a *Analyzer) productRefs(componentID string) []ProductRef {
	var refs []ProductRef
	for _, id := range ProductIDs(a.g, componentID) {
		refs = append(refs, ProductRef{ID: id, Name: a.g.Node(id).DisplayName()})
	}
	return refs
}

func criticalRisk(n *graph.Node) string {
	if n.IsCritical() {
		return RiskHigh
	}
	return RiskMedium
}

// TariffProduct is a product exposed through a tariff-vulnerable component.
type TariffProduct struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Manufacturer   string `json:"manufacturer,omitempty"`
	ManufacturerID string `json:"manufacturer_id,omitempty"`
}

// TariffComponent is an in-use tariff-vulnerable component.
type TariffComponent struct {
	ComponentID      string          `json:"component_id"`
	ComponentName    string          `json:"component_name"`
	TariffVulnerable bool            `json:"tariff_vulnerable"`
	Countries        []string        `json:"countries"`
	Products         []TariffProduct `json:"products"`
}

// TariffVulnerability summarizes tariff exposure.
type TariffVulnerability struct {
	AffectedComponentsCount int               `json:"affected_components_count"`
	AffectedProductsCount   int               `json:"affected_products_count"`
	AffectedCompaniesCount  int               `json:"affected_companies_count"`
	HighestRiskComponents   []TariffComponent `json:"highest_risk_components"`
	CountryFocus            string            `json:"country_focus,omitempty"`
}

// AssessTariffVulnerability collects tariff-vulnerable components in use by
// products, optionally restricted to those originating from country. The
// highest-risk list holds the first ten in discovery order.
func (a *Analyzer) AssessTariffVulnerability(country string) TariffVulnerability {
	defer a.observe("tariff_vulnerability", time.Now())

	countryID := ""
	if country != "" {
		countryID = graph.CountryID(country)
	}

	var components []TariffComponent
	products := make(map[string]struct{})
	companies := make(map[string]struct{})

	for _, c := range a.g.NodesByKind(graph.KindComponent) {
		if !a.TariffVulnerable(c.ID) {
			continue
		}
		if countryID != "" && !slices.ContainsFunc(a.g.Outgoing(c.ID, graph.RelOriginatesFrom), func(r *graph.Relationship) bool {
			return r.Target == countryID
		}) {
			continue
		}

		var exposed []TariffProduct
		for _, productID := range ProductIDs(a.g, c.ID) {
			tp := TariffProduct{ProductID: productID, ProductName: a.g.Node(productID).DisplayName()}
			if m := Manufacturer(a.g, productID); m != nil {
				tp.Manufacturer = m.DisplayName()
				tp.ManufacturerID = m.ID
				companies[m.ID] = struct{}{}
			}
			exposed = append(exposed, tp)
			products[productID] = struct{}{}
		}
		if len(exposed) == 0 {
			continue
		}
		components = append(components, TariffComponent{
			ComponentID:      c.ID,
			ComponentName:    c.DisplayName(),
			TariffVulnerable: true,
			Countries:        nonNil(Countries(a.g, c.ID)),
			Products:         exposed,
		})
	}

	top := components
	if len(top) > 10 {
		top = top[:10]
	}
	a.logger.Debug("tariff vulnerability assessed", "country", country, "components", len(components), "products", len(products))
	return TariffVulnerability{
		AffectedComponentsCount: len(components),
		AffectedProductsCount:   len(products),
		AffectedCompaniesCount:  len(companies),
		HighestRiskComponents:   nonNil(top),
		CountryFocus:            country,
	}
}

// CountryConcentration is the per-country rollup of in-use components.
type CountryConcentration struct {
	Country                    string  `json:"country"`
	TotalComponents            int     `json:"total_components"`
	CriticalComponents         int     `json:"critical_components"`
	TariffVulnerableComponents int     `json:"tariff_vulnerable_components"`
	ConcentrationScore         float64 `json:"concentration_score"`
	RiskLevel                  string  `json:"risk_level"`
}

// ConcentrationSummary counts countries per risk level.
type ConcentrationSummary struct {
	HighRiskCountries   int `json:"high_risk_countries"`
	MediumRiskCountries int `json:"medium_risk_countries"`
	LowRiskCountries    int `json:"low_risk_countries"`
}

// GeographicalConcentration is the result of
// IdentifyGeographicalConcentration.
type GeographicalConcentration struct {
	CountryConcentration []CountryConcentration `json:"country_concentration"`
	HighestConcentration *CountryConcentration  `json:"highest_concentration"`
	ConcentrationSummary ConcentrationSummary   `json:"concentration_summary"`
}

// IdentifyGeographicalConcentration buckets in-use components by origin
// country. A component counts towards every country it originates from.
func (a *Analyzer) IdentifyGeographicalConcentration() GeographicalConcentration {
	defer a.observe("geographical_concentration", time.Now())

	var order []string
	buckets := make(map[string]*CountryConcentration)
	for _, c := range a.g.NodesByKind(graph.KindComponent) {
		if !InUse(a.g, c.ID) {
			continue
		}
		for _, country := range Countries(a.g, c.ID) {
			b, ok := buckets[country]
			if !ok {
				b = &CountryConcentration{Country: country}
				buckets[country] = b
				order = append(order, country)
			}
			b.TotalComponents++
			if c.IsCritical() {
				b.CriticalComponents++
			}
			if a.TariffVulnerable(c.ID) {
				b.TariffVulnerableComponents++
			}
		}
	}

	total := float64(max(1, a.g.NodeCount()))
	var out GeographicalConcentration
	out.CountryConcentration = make([]CountryConcentration, 0, len(order))
	for _, country := range order {
		b := buckets[country]
		b.ConcentrationScore = impact.Round((float64(b.TotalComponents)*0.4+float64(b.CriticalComponents)*0.6)/total, 3)
		switch {
		case b.CriticalComponents > 5:
			b.RiskLevel = RiskHigh
			out.ConcentrationSummary.HighRiskCountries++
		case b.CriticalComponents > 2:
			b.RiskLevel = RiskMedium
			out.ConcentrationSummary.MediumRiskCountries++
		default:
			b.RiskLevel = RiskLow
			out.ConcentrationSummary.LowRiskCountries++
		}
		out.CountryConcentration = append(out.CountryConcentration, *b)
	}

	slices.SortStableFunc(out.CountryConcentration, func(x, y CountryConcentration) int {
		return descending(x.ConcentrationScore, y.ConcentrationScore)
	})
	if len(out.CountryConcentration) > 0 {
		highest := out.CountryConcentration[0]
		out.HighestConcentration = &highest
	}
	a.logger.Debug("geographical concentration identified", "countries", len(order))
	return out
}

// Factor is one weighted resilience factor on a 0-100 scale.
type Factor struct {
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// Factors are the five resilience factors.
type Factors struct {
	SupplierDiversity     Factor `json:"supplier_diversity"`
	GeographicalDiversity Factor `json:"geographical_diversity"`
	ComponentCriticality  Factor `json:"component_criticality"`
	TariffVulnerability   Factor `json:"tariff_vulnerability"`
	AlternativeSources    Factor `json:"alternative_sources"`
}

// NamedFactor pairs a factor with its JSON name.
type NamedFactor struct {
	Name string
	Factor
}

// List returns the factors in declaration order.
func (f Factors) List() []NamedFactor {
	return []NamedFactor{
		{"supplier_diversity", f.SupplierDiversity},
		{"geographical_diversity", f.GeographicalDiversity},
		{"component_criticality", f.ComponentCriticality},
		{"tariff_vulnerability", f.TariffVulnerability},
		{"alternative_sources", f.AlternativeSources},
	}
}

// Lowest returns the factor with the lowest score; ties keep the first.
func (f Factors) Lowest() NamedFactor {
	list := f.List()
	lowest := list[0]
	for _, nf := range list[1:] {
		if nf.Score < lowest.Score {
			lowest = nf
		}
	}
	return lowest
}

func emptyFactors() Factors {
	return Factors{
		SupplierDiversity:     Factor{Weight: 0.25},
		GeographicalDiversity: Factor{Weight: 0.20},
		ComponentCriticality:  Factor{Weight: 0.30},
		TariffVulnerability:   Factor{Weight: 0.15},
		AlternativeSources:    Factor{Weight: 0.10},
	}
}

// ResilienceMetrics are the raw counts behind the resilience factors.
type ResilienceMetrics struct {
	TotalComponents            int `json:"total_components"`
	UniqueSuppliers            int `json:"unique_suppliers"`
	UniqueCountries            int `json:"unique_countries"`
	CriticalComponents         int `json:"critical_components"`
	TariffVulnerableComponents int `json:"tariff_vulnerable_components"`
	SingleSupplierComponents   int `json:"single_supplier_components"`
}

// Resilience is the aggregate resilience score of a product set.
type Resilience struct {
	TotalResilienceScore float64           `json:"total_resilience_score"`
	RiskLevel            string            `json:"risk_level"`
	Factors              Factors           `json:"factors"`
	Metrics              ResilienceMetrics `json:"metrics"`
}

// CalculateResilienceScore scores the products of companyID (or all
// products) on a 0-100 scale. With no products the score is 0 and the risk
// level high.
func (a *Analyzer) CalculateResilienceScore(companyID string) Resilience {
	defer a.observe("resilience", time.Now())

	products := ProductsToAnalyze(a.g, companyID)
	out := Resilience{RiskLevel: RiskHigh, Factors: emptyFactors()}
	if len(products) == 0 {
		a.logger.Warn("no products found for resilience analysis", "company", companyID)
		return out
	}

	var m ResilienceMetrics
	suppliers := make(map[string]struct{})
	countries := make(map[string]struct{})
	for _, productID := range products {
		for _, componentID := range ComponentIDs(a.g, productID) {
			m.TotalComponents++
			if a.g.Node(componentID).IsCritical() {
				m.CriticalComponents++
			}
			if a.TariffVulnerable(componentID) {
				m.TariffVulnerableComponents++
			}
			ids := SupplierIDs(a.g, componentID)
			for _, id := range ids {
				suppliers[id] = struct{}{}
			}
			if len(ids) <= 1 {
				m.SingleSupplierComponents++
			}
			for _, country := range Countries(a.g, componentID) {
				countries[country] = struct{}{}
			}
		}
	}
	m.UniqueSuppliers = len(suppliers)
	m.UniqueCountries = len(countries)

	total := float64(max(1, m.TotalComponents))
	f := emptyFactors()
	f.SupplierDiversity.Score = clamp(float64(m.UniqueSuppliers) / total * 50)
	f.GeographicalDiversity.Score = clamp(float64(m.UniqueCountries) / total * 60)
	f.ComponentCriticality.Score = clamp(100 - float64(m.CriticalComponents)/total*100)
	f.TariffVulnerability.Score = clamp(100 - float64(m.TariffVulnerableComponents)/total*100)
	f.AlternativeSources.Score = clamp(100 - float64(m.SingleSupplierComponents)/total*100)

	score := 0.0
	for _, nf := range f.List() {
		score += nf.Score * nf.Weight
	}

	out.TotalResilienceScore = impact.Round(score, 1)
	out.RiskLevel = resilienceRisk(score)
	out.Metrics = m
	out.Factors = Factors{
		SupplierDiversity:     roundFactor(f.SupplierDiversity),
		GeographicalDiversity: roundFactor(f.GeographicalDiversity),
		ComponentCriticality:  roundFactor(f.ComponentCriticality),
		TariffVulnerability:   roundFactor(f.TariffVulnerability),
		AlternativeSources:    roundFactor(f.AlternativeSources),
	}
	a.logger.Debug("resilience calculated", "company", companyID, "resilience", out.TotalResilienceScore, "risk_level", out.RiskLevel)
	return out
}

func resilienceRisk(score float64) string {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 60:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func roundFactor(f Factor) Factor {
	return Factor{Score: impact.Round(f.Score, 1), Weight: f.Weight}
}

func clamp(v float64) float64 {
	return min(100, max(0, v))
}

func descending(x, y float64) int {
	switch {
	case x > y:
		return -1
	case x < y:
		return 1
	}
	return 0
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// MatchesCountry reports whether country is one of names, ignoring case.
func MatchesCountry(names []string, country string) bool {
	return slices.ContainsFunc(names, func(n string) bool {
		return strings.EqualFold(n, country)
	})
}
