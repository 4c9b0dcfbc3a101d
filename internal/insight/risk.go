package insight

import (
	"slices"
	"strings"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/impact"
	"github.com/Benny93/prophet-go/internal/recommend"
)

// riskBand maps a 0-100 score to a risk level.
func riskBand(score float64) string {
	switch {
	case score > 70:
		return analyzer.RiskHigh
	case score > 40:
		return analyzer.RiskMedium
	default:
		return analyzer.RiskLow
	}
}

// EntityCount is a ranked company or supplier reference.
type EntityCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// manufacturerTally accumulates per-manufacturer counts over products in
// first-seen order.
type manufacturerTally struct {
	order  []string
	counts map[string]*EntityCount
	prods  map[string]int
}

func newTally() *manufacturerTally {
	return &manufacturerTally{counts: make(map[string]*EntityCount), prods: make(map[string]int)}
}

func (t *manufacturerTally) add(id, name string, n int) {
	e, ok := t.counts[id]
	if !ok {
		e = &EntityCount{ID: id, Name: name}
		t.counts[id] = e
		t.order = append(t.order, id)
	}
	e.Count += n
	t.prods[id]++
}

// top returns up to five entries ranked by count.
func (t *manufacturerTally) top(byProducts bool) []EntityCount {
	out := make([]EntityCount, 0, len(t.order))
	for _, id := range t.order {
		e := *t.counts[id]
		if byProducts {
			e.Count = t.prods[id]
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(x, y EntityCount) int { return y.Count - x.Count })
	return out[:min(5, len(out))]
}

// CountryRiskFactors are the inputs of a country risk score.
type CountryRiskFactors struct {
	ComponentCount        int     `json:"component_count"`
	CriticalRatio         float64 `json:"critical_ratio"`
	TariffVulnerableRatio float64 `json:"tariff_vulnerable_ratio"`
	AffectedProducts      int     `json:"affected_products"`
	ManufacturerCount     int     `json:"manufacturer_count"`
}

// CountryRisk is the risk profile of one sourcing country.
type CountryRisk struct {
	Country                    string             `json:"country"`
	Region                     string             `json:"region"`
	ComponentCount             int                `json:"component_count"`
	CriticalComponentCount     int                `json:"critical_component_count"`
	TariffVulnerableCount      int                `json:"tariff_vulnerable_count"`
	AffectedProductsCount      int                `json:"affected_products_count"`
	AffectedManufacturersCount int                `json:"affected_manufacturers_count"`
	TopManufacturers           []EntityCount      `json:"top_manufacturers"`
	RiskScore                  float64            `json:"risk_score"`
	RiskLevel                  string             `json:"risk_level"`
	RiskFactors                CountryRiskFactors `json:"risk_factors"`
}

// CountryRisk profiles every component sourced from country. Manufacturer
// counts are the critical components of their affected products.
func (e *Extractor) CountryRisk(country string) CountryRisk {
	var comps []*impact.AffectedComponent
	critical, tariff := 0, 0
	for _, n := range e.g.NodesByKind(graph.KindComponent) {
		if !analyzer.MatchesCountry(analyzer.Countries(e.g, n.ID), country) {
			continue
		}
		comps = append(comps, analyzer.NewAffectedComponent(n))
		if n.IsCritical() {
			critical++
		}
		if n.IsTariffVulnerable() {
			tariff++
		}
	}

	prods := analyzer.FindAffectedProducts(e.g, comps)
	mfg := newTally()
	for _, p := range prods {
		if p.ManufacturerID != "" {
			mfg.add(p.ManufacturerID, p.Manufacturer, p.CriticalComponentsCount)
		}
	}

	n := float64(max(1, len(comps)))
	f := CountryRiskFactors{
		ComponentCount:        len(comps),
		CriticalRatio:         float64(critical) / n,
		TariffVulnerableRatio: float64(tariff) / n,
		AffectedProducts:      len(prods),
		ManufacturerCount:     len(mfg.order),
	}
	score := min(100,
		float64(f.ComponentCount)*0.1+
			f.CriticalRatio*100*0.4+
			f.TariffVulnerableRatio*100*0.2+
			float64(f.AffectedProducts)*0.2+
			float64(f.ManufacturerCount)*0.1)

	f.CriticalRatio = impact.Round(f.CriticalRatio, 3)
	f.TariffVulnerableRatio = impact.Round(f.TariffVulnerableRatio, 3)

	out := CountryRisk{
		Country:                    country,
		Region:                     RegionFor(country),
		ComponentCount:             len(comps),
		CriticalComponentCount:     critical,
		TariffVulnerableCount:      tariff,
		AffectedProductsCount:      len(prods),
		AffectedManufacturersCount: len(mfg.order),
		TopManufacturers:           mfg.top(false),
		RiskScore:                  impact.Round(score, 1),
		RiskLevel:                  riskBand(score),
		RiskFactors:                f,
	}
	e.logger.Info("country risk analyzed", "country", country, "risk_level", out.RiskLevel)
	return out
}

// RegionMetrics compares one region against the others.
type RegionMetrics struct {
	Region                  string   `json:"region"`
	ComponentCount          int      `json:"component_count"`
	CountryCount            int      `json:"country_count"`
	Countries               []string `json:"countries"`
	CriticalComponentCount  int      `json:"critical_component_count"`
	TariffVulnerableCount   int      `json:"tariff_vulnerable_count"`
	RiskScore               float64  `json:"risk_score"`
	RiskLevel               string   `json:"risk_level"`
	ConcentrationPercentage float64  `json:"concentration_percentage"`
}

// RegionConcentration names the most and least concentrated regions.
type RegionConcentration struct {
	HighestConcentration string `json:"highest_concentration,omitempty"`
	LowestConcentration  string `json:"lowest_concentration,omitempty"`
}

// RegionComparison is the result of Extractor.CompareRegions.
type RegionComparison struct {
	Regions              []RegionMetrics     `json:"regions"`
	HighestRiskRegion    string              `json:"highest_risk_region,omitempty"`
	RegionCount          int                 `json:"region_count"`
	ConcentrationSummary RegionConcentration `json:"concentration_summary"`
}

// CompareRegions buckets every (component, origin country) pair by world
// region.
func (e *Extractor) CompareRegions() RegionComparison {
	var order []string
	regions := make(map[string]*RegionMetrics)
	total := 0
	for _, n := range e.g.NodesByKind(graph.KindComponent) {
		for _, country := range analyzer.Countries(e.g, n.ID) {
			name := RegionFor(country)
			r, ok := regions[name]
			if !ok {
				r = &RegionMetrics{Region: name, Countries: []string{}}
				regions[name] = r
				order = append(order, name)
			}
			r.ComponentCount++
			total++
			if !slices.Contains(r.Countries, country) {
				r.Countries = append(r.Countries, country)
			}
			if n.IsCritical() {
				r.CriticalComponentCount++
			}
			if n.IsTariffVulnerable() {
				r.TariffVulnerableCount++
			}
		}
	}

	out := RegionComparison{Regions: make([]RegionMetrics, 0, len(order)), RegionCount: len(order)}
	for _, name := range order {
		r := regions[name]
		score := min(100, (float64(r.ComponentCount)*0.2+float64(r.CriticalComponentCount)*0.5+float64(r.TariffVulnerableCount)*0.3)/10)
		r.CountryCount = len(r.Countries)
		r.RiskScore = impact.Round(score, 1)
		r.RiskLevel = riskBand(score)
		r.ConcentrationPercentage = impact.Round(float64(r.ComponentCount)/float64(total)*100, 1)
		out.Regions = append(out.Regions, *r)
	}
	slices.SortStableFunc(out.Regions, func(x, y RegionMetrics) int {
		return descending(x.RiskScore, y.RiskScore)
	})

	if len(out.Regions) > 0 {
		out.HighestRiskRegion = out.Regions[0].Region
		hi, lo := out.Regions[0], out.Regions[0]
		for _, r := range out.Regions[1:] {
			if r.ConcentrationPercentage > hi.ConcentrationPercentage {
				hi = r
			}
			if r.ConcentrationPercentage < lo.ConcentrationPercentage {
				lo = r
			}
		}
		out.ConcentrationSummary = RegionConcentration{HighestConcentration: hi.Region, LowestConcentration: lo.Region}
	}
	return out
}

// DependencyAnalysis measures how much the graph depends on one
// component category.
type DependencyAnalysis struct {
	ComponentType          string        `json:"component_type"`
	ComponentCount         int           `json:"component_count"`
	CriticalComponentCount int           `json:"critical_component_count"`
	AffectedProductCount   int           `json:"affected_product_count"`
	ManufacturerCount      int           `json:"manufacturer_count"`
	SupplierCount          int           `json:"supplier_count"`
	DependencyScore        float64       `json:"dependency_score"`
	DependencyLevel        string        `json:"dependency_level"`
	TopManufacturers       []EntityCount `json:"top_manufacturers"`
	TopSuppliers           []EntityCount `json:"top_suppliers"`
}

// ComponentDependencies analyzes the components whose category contains
// componentType, case-insensitively.
func (e *Extractor) ComponentDependencies(componentType string) DependencyAnalysis {
	needle := strings.ToLower(componentType)
	var comps []*impact.AffectedComponent
	critical := 0
	suppliers := newTally()
	for _, n := range e.g.NodesByKind(graph.KindComponent) {
		if !strings.Contains(strings.ToLower(n.Category()), needle) {
			continue
		}
		comps = append(comps, analyzer.NewAffectedComponent(n))
		if n.IsCritical() {
			critical++
		}
		for _, rel := range e.g.Incoming(n.ID, graph.RelSupplies) {
			suppliers.add(rel.Source, e.g.Node(rel.Source).DisplayName(), 1)
		}
	}

	prods := analyzer.FindAffectedProducts(e.g, comps)
	mfg := newTally()
	for _, p := range prods {
		if p.ManufacturerID != "" {
			mfg.add(p.ManufacturerID, p.Manufacturer, p.AffectedComponentsCount)
		}
	}

	score := min(100, float64(len(prods))*0.5+float64(len(mfg.order))*0.3+float64(critical)*2)
	return DependencyAnalysis{
		ComponentType:          componentType,
		ComponentCount:         len(comps),
		CriticalComponentCount: critical,
		AffectedProductCount:   len(prods),
		ManufacturerCount:      len(mfg.order),
		SupplierCount:          len(suppliers.order),
		DependencyScore:        impact.Round(score, 1),
		DependencyLevel:        riskBand(score),
		TopManufacturers:       mfg.top(true),
		TopSuppliers:           suppliers.top(false),
	}
}

// TypeRisk is the shortage risk of one component category.
type TypeRisk struct {
	ComponentType          string  `json:"component_type"`
	ComponentCount         int     `json:"component_count"`
	CriticalComponentCount int     `json:"critical_component_count"`
	ProductCount           int     `json:"product_count"`
	RiskScore              float64 `json:"risk_score"`
	RiskLevel              string  `json:"risk_level"`
}

// GlobalRiskMetrics summarize a shortage risk report.
type GlobalRiskMetrics struct {
	HighRiskTypeCount           int     `json:"high_risk_type_count"`
	MediumRiskTypeCount         int     `json:"medium_risk_type_count"`
	CriticalComponentPercentage float64 `json:"critical_component_percentage"`
}

// ShortageRiskReport is the result of Extractor.ShortageRiskReport.
type ShortageRiskReport struct {
	ComponentTypesAnalyzed  int                        `json:"component_types_analyzed"`
	TotalComponents         int                        `json:"total_components"`
	TotalCriticalComponents int                        `json:"total_critical_components"`
	HighRiskTypes           []TypeRisk                 `json:"high_risk_types"`
	MediumRiskTypes         []TypeRisk                 `json:"medium_risk_types"`
	GlobalRiskMetrics       GlobalRiskMetrics          `json:"global_risk_metrics"`
	TopShortageRisks        []TypeRisk                 `json:"top_shortage_risks"`
	Recommendations         []recommend.Recommendation `json:"recommendations"`
}

// minTypeComponents is the smallest category scored for shortage risk.
const minTypeComponents = 3

// ShortageRiskReport scores shortage risk per component category.
// Uncategorized components are ignored.
func (e *Extractor) ShortageRiskReport() ShortageRiskReport {
	type bucket struct {
		count, critical int
		products        []string
	}
	var order []string
	buckets := make(map[string]*bucket)
	total, totalCritical := 0, 0

	for _, n := range e.g.NodesByKind(graph.KindComponent) {
		category := n.Category()
		if category == "" || category == "unknown" {
			continue
		}
		b, ok := buckets[category]
		if !ok {
			b = &bucket{}
			buckets[category] = b
			order = append(order, category)
		}
		b.count++
		total++
		if n.IsCritical() {
			b.critical++
			totalCritical++
		}
		for _, rel := range e.g.Incoming(n.ID, graph.RelContains) {
			name := e.g.Node(rel.Source).DisplayName()
			if !slices.Contains(b.products, name) {
				b.products = append(b.products, name)
			}
		}
	}

	risks := []TypeRisk{}
	for _, category := range order {
		b := buckets[category]
		if b.count < minTypeComponents {
			continue
		}
		ratio := float64(b.critical) / float64(max(1, b.count))
		score := min(100, float64(b.count)*0.3+ratio*100*0.5+float64(len(b.products))*0.2)
		risks = append(risks, TypeRisk{
			ComponentType:          category,
			ComponentCount:         b.count,
			CriticalComponentCount: b.critical,
			ProductCount:           len(b.products),
			RiskScore:              impact.Round(score, 1),
			RiskLevel:              riskBand(score),
		})
	}
	slices.SortStableFunc(risks, func(x, y TypeRisk) int {
		return descending(x.RiskScore, y.RiskScore)
	})

	out := ShortageRiskReport{
		ComponentTypesAnalyzed:  len(risks),
		TotalComponents:         total,
		TotalCriticalComponents: totalCritical,
		HighRiskTypes:           []TypeRisk{},
		MediumRiskTypes:         []TypeRisk{},
		TopShortageRisks:        risks[:min(5, len(risks))],
	}
	ruleInput := make([]recommend.TypeRisk, 0, len(risks))
	for _, r := range risks {
		switch r.RiskLevel {
		case analyzer.RiskHigh:
			out.HighRiskTypes = append(out.HighRiskTypes, r)
		case analyzer.RiskMedium:
			out.MediumRiskTypes = append(out.MediumRiskTypes, r)
		}
		ruleInput = append(ruleInput, recommend.TypeRisk{
			ComponentType:          r.ComponentType,
			RiskLevel:              r.RiskLevel,
			CriticalComponentCount: r.CriticalComponentCount,
		})
	}
	out.GlobalRiskMetrics = GlobalRiskMetrics{
		HighRiskTypeCount:           len(out.HighRiskTypes),
		MediumRiskTypeCount:         len(out.MediumRiskTypes),
		CriticalComponentPercentage: impact.Round(float64(totalCritical)/float64(max(1, total))*100, 1),
	}
	out.Recommendations = recommend.GlobalShortage(ruleInput)

	e.logger.Info("shortage risk report generated", "types", len(risks), "high_risk", len(out.HighRiskTypes))
	return out
}
