// Package recommend maps scenario facts to ranked recommendation records
// using fixed, ordered rule tables. Emission order is the priority order
// used downstream.
package recommend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Benny93/prophet-go/internal/impact"
)

// Priority is the urgency of a recommendation.
type Priority string

const (
	High   Priority = "high"
	Medium Priority = "medium"
	Low    Priority = "low"
)

// Rank orders priorities: high=0, medium=1, low=2, anything else 3.
func (p Priority) Rank() int {
	switch p {
	case High:
		return 0
	case Medium:
		return 1
	case Low:
		return 2
	default:
		return 3
	}
}

// Recommendation is a single actionable recommendation.
type Recommendation struct {
	Action                   string   `json:"action" yaml:"action"`
	Description              string   `json:"description" yaml:"description"`
	Priority                 Priority `json:"priority" yaml:"priority"`
	EstimatedBenefit         string   `json:"estimated_benefit,omitempty" yaml:"estimated_benefit,omitempty"`
	ImplementationDifficulty string   `json:"implementation_difficulty" yaml:"implementation_difficulty"`
	Timeframe                string   `json:"timeframe" yaml:"timeframe"`
}

// Tariff returns recommendations for a tariff change. Estimates must
// already be annotated on the records (see impact.PriceImpacts).
func Tariff(components []*impact.AffectedComponent, products []*impact.AffectedProduct) []Recommendation {
	var recs []Recommendation

	if len(components) > 0 {
		most := components[0]
		for _, c := range components[1:] {
			if c.EstimatedPriceIncrease > most.EstimatedPriceIncrease {
				most = c
			}
		}
		recs = append(recs, Recommendation{
			Action:                   "relocate_sourcing",
			Description:              fmt.Sprintf("Consider sourcing %s and similar components from countries not affected by the tariff", most.ComponentName),
			Priority:                 High,
			EstimatedBenefit:         "Eliminate direct tariff impact on affected components",
			ImplementationDifficulty: "medium",
			Timeframe:                "medium_term",
		})
	}

	highImpact := 0
	for _, p := range products {
		if p.EstimatedPriceIncreasePercentage > 2 {
			highImpact++
		}
	}
	if highImpact > 0 {
		recs = append(recs, Recommendation{
			Action:                   "strategic_pricing",
			Description:              fmt.Sprintf("Adjust pricing strategy for %d high-impact products to maintain market competitiveness", highImpact),
			Priority:                 High,
			EstimatedBenefit:         "Maintain market share while minimizing profit impact",
			ImplementationDifficulty: "low",
			Timeframe:                "immediate",
		})
	}

	recs = append(recs, Recommendation{
		Action:                   "tariff_exemptions",
		Description:              "Pursue possible tariff exemptions or exclusions for critical components",
		Priority:                 Medium,
		EstimatedBenefit:         "Potential significant savings on affected components",
		ImplementationDifficulty: "high",
		Timeframe:                "medium_term",
	})

	if slices.ContainsFunc(components, func(c *impact.AffectedComponent) bool {
		return c.Critical && c.EstimatedPriceIncrease > 3
	}) {
		recs = append(recs, Recommendation{
			Action:                   "product_redesign",
			Description:              "Evaluate product redesign to reduce dependency on heavily tariffed components",
			Priority:                 Medium,
			EstimatedBenefit:         "Long-term resilience to similar tariff actions",
			ImplementationDifficulty: "high",
			Timeframe:                "long_term",
		})
	}

	return recs
}

// Disruption returns recommendations for a supplier disruption. Products
// must carry lead-time estimates (see impact.LeadTimeImpacts).
func Disruption(components []*impact.AffectedComponent, products []*impact.AffectedProduct, level string, durationMonths int) []Recommendation {
	var recs []Recommendation

	if len(components) > 0 {
		critical := countCritical(components)
		if critical > 0 {
			recs = append(recs, Recommendation{
				Action:                   "alternative_suppliers",
				Description:              fmt.Sprintf("Immediately identify alternative suppliers for %d critical components", critical),
				Priority:                 High,
				EstimatedBenefit:         "Maintain production capability for critical products",
				ImplementationDifficulty: "medium",
				Timeframe:                "immediate",
			})
		} else {
			recs = append(recs, Recommendation{
				Action:                   "alternative_suppliers",
				Description:              "Identify alternative suppliers for affected components",
				Priority:                 Medium,
				EstimatedBenefit:         "Ensure continued component availability",
				ImplementationDifficulty: "medium",
				Timeframe:                "short_term",
			})
		}
	}

	recs = append(recs, Recommendation{
		Action:                   "inventory_strategy",
		Description:              "Review and adjust inventory levels for affected components",
		Priority:                 High,
		EstimatedBenefit:         "Buffer against short-term disruption",
		ImplementationDifficulty: "low",
		Timeframe:                "immediate",
	})

	if level == "complete" && durationMonths > 1 {
		recs = append(recs, Recommendation{
			Action:                   "production_adjustment",
			Description:              "Temporarily adjust production schedules for affected products",
			Priority:                 High,
			EstimatedBenefit:         "Optimize production based on component availability",
			ImplementationDifficulty: "medium",
			Timeframe:                "immediate",
		})
	}

	if level == "complete" && durationMonths > 3 {
		recs = append(recs, Recommendation{
			Action:                   "supplier_diversification",
			Description:              "Implement long-term supplier diversification strategy",
			Priority:                 Medium,
			EstimatedBenefit:         "Enhanced resilience against future disruptions",
			ImplementationDifficulty: "high",
			Timeframe:                "long_term",
		})
	}

	if slices.ContainsFunc(products, func(p *impact.AffectedProduct) bool {
		return p.CriticalComponentsCount > 0 && p.EstimatedLeadTimeIncreaseWeeks > 2
	}) {
		recs = append(recs, Recommendation{
			Action:                   "customer_communication",
			Description:              "Proactively communicate with customers about potential delays",
			Priority:                 High,
			EstimatedBenefit:         "Maintain customer relationships despite disruption",
			ImplementationDifficulty: "low",
			Timeframe:                "immediate",
		})
	}

	return recs
}

// Geopolitical returns recommendations for a geopolitical event.
func Geopolitical(country, eventType, severity string, durationMonths int, components []*impact.AffectedComponent, products []*impact.AffectedProduct) []Recommendation {
	var recs []Recommendation

	if critical := countCritical(components); critical > 0 {
		difficulty := "medium"
		if severity == "high" {
			difficulty = "high"
		}
		recs = append(recs, Recommendation{
			Action:                   "alternative_sourcing",
			Description:              fmt.Sprintf("Immediately secure alternative sources for %d critical components from %s", critical, country),
			Priority:                 High,
			EstimatedBenefit:         "Maintain production of critical products",
			ImplementationDifficulty: difficulty,
			Timeframe:                "immediate",
		})
	}

	if (eventType == "trade_restriction" || eventType == "conflict") && (severity == "medium" || severity == "high") {
		recs = append(recs, Recommendation{
			Action:                   "inventory_buffer",
			Description:              fmt.Sprintf("Increase safety stock levels for components sourced from %s", country),
			Priority:                 High,
			EstimatedBenefit:         "Buffer against supply disruptions",
			ImplementationDifficulty: "medium",
			Timeframe:                "immediate",
		})
	}

	if severity == "high" && len(products) > 0 {
		recs = append(recs, Recommendation{
			Action:                   "production_prioritization",
			Description:              "Prioritize production of high-margin and strategic products",
			Priority:                 High,
			EstimatedBenefit:         "Optimize limited component availability",
			ImplementationDifficulty: "medium",
			Timeframe:                "short_term",
		})
	}

	if durationMonths > 6 || severity == "high" {
		recs = append(recs, Recommendation{
			Action:                   "geographic_diversification",
			Description:              fmt.Sprintf("Develop long-term strategy to reduce dependency on %s for critical components", country),
			Priority:                 Medium,
			EstimatedBenefit:         "Long-term supply chain resilience",
			ImplementationDifficulty: "high",
			Timeframe:                "long_term",
		})
	}

	switch eventType {
	case "trade_restriction":
		recs = append(recs, Recommendation{
			Action:                   "trade_compliance",
			Description:              "Engage with trade compliance experts to navigate new restrictions",
			Priority:                 High,
			EstimatedBenefit:         "Ensure regulatory compliance while minimizing disruption",
			ImplementationDifficulty: "medium",
			Timeframe:                "immediate",
		})
	case "conflict":
		recs = append(recs, Recommendation{
			Action:                   "logistics_rerouting",
			Description:              "Develop alternative logistics routes to avoid conflict zones",
			Priority:                 High,
			EstimatedBenefit:         "Maintain supply chain continuity",
			ImplementationDifficulty: "high",
			Timeframe:                "immediate",
		})
	case "natural_disaster":
		recs = append(recs, Recommendation{
			Action:                   "supplier_recovery",
			Description:              "Provide support to key suppliers for faster recovery",
			Priority:                 Medium,
			EstimatedBenefit:         "Accelerate supply chain recovery",
			ImplementationDifficulty: "medium",
			Timeframe:                "short_term",
		})
	}

	return recs
}

// Shortage returns recommendations for a component shortage. Products must
// carry shortage estimates (see impact.ShortageProductImpacts).
func Shortage(componentType, level string, durationMonths int, components []*impact.AffectedComponent, products []*impact.AffectedProduct) []Recommendation {
	recs := []Recommendation{{
		Action:                   "allocation_strategy",
		Description:              fmt.Sprintf("Develop a strategic allocation plan for limited %s supply", componentType),
		Priority:                 High,
		EstimatedBenefit:         "Optimize use of limited components for highest value products",
		ImplementationDifficulty: "medium",
		Timeframe:                "immediate",
	}}

	if countCritical(components) > 0 {
		recs = append(recs, Recommendation{
			Action:                   "alternative_components",
			Description:              fmt.Sprintf("Identify and qualify alternative %s components", componentType),
			Priority:                 High,
			EstimatedBenefit:         "Enable continued production despite shortage",
			ImplementationDifficulty: "high",
			Timeframe:                "short_term",
		})
	}

	if level == "severe" {
		recs = append(recs, Recommendation{
			Action:                   "pricing_strategy",
			Description:              "Adjust pricing strategy for products affected by shortage",
			Priority:                 Medium,
			EstimatedBenefit:         "Maintain margins despite component cost increases",
			ImplementationDifficulty: "medium",
			Timeframe:                "immediate",
		})
	}

	if durationMonths > 3 {
		recs = append(recs, Recommendation{
			Action:                   "supply_agreements",
			Description:              fmt.Sprintf("Negotiate long-term supply agreements for %s components", componentType),
			Priority:                 High,
			EstimatedBenefit:         "Secure priority access to limited component supply",
			ImplementationDifficulty: "high",
			Timeframe:                "medium_term",
		})
	}

	highImpact := slices.ContainsFunc(products, func(p *impact.AffectedProduct) bool {
		return p.AllocationReductionPercent > 30 && p.CriticalComponentsAffected > 0
	})
	if highImpact && durationMonths > 6 {
		recs = append(recs, Recommendation{
			Action:                   "product_redesign",
			Description:              fmt.Sprintf("Evaluate redesign options to reduce dependency on %s components", componentType),
			Priority:                 Medium,
			EstimatedBenefit:         "Long-term resilience to similar shortages",
			ImplementationDifficulty: "very_high",
			Timeframe:                "long_term",
		})
	}

	recs = append(recs, Recommendation{
		Action:                   "customer_communication",
		Description:              "Develop a communication plan regarding potential product delays",
		Priority:                 High,
		EstimatedBenefit:         "Set appropriate expectations and maintain customer trust",
		ImplementationDifficulty: "low",
		Timeframe:                "immediate",
	})

	return recs
}

// Compound returns the coordinated-response recommendation prepended to
// merged compound recommendations.
func Compound(affectedComponents int) Recommendation {
	return Recommendation{
		Action:                   "compound_strategy",
		Description:              fmt.Sprintf("Develop a coordinated response strategy for multiple simultaneous disruptions affecting %d components", affectedComponents),
		Priority:                 High,
		EstimatedBenefit:         "Coordinated response to minimize compound impacts",
		ImplementationDifficulty: "high",
		Timeframe:                "immediate",
	}
}

// Merge deduplicates recommendations by action, keeping the highest
// priority instance of each (first seen wins ties), then stable-sorts by
// priority.
func Merge(recs []Recommendation) []Recommendation {
	var order []string
	best := make(map[string]Recommendation)
	for _, r := range recs {
		cur, ok := best[r.Action]
		if !ok {
			order = append(order, r.Action)
			best[r.Action] = r
			continue
		}
		if r.Priority.Rank() < cur.Priority.Rank() {
			best[r.Action] = r
		}
	}

	merged := make([]Recommendation, 0, len(order))
	for _, action := range order {
		merged = append(merged, best[action])
	}
	SortByPriority(merged)
	return merged
}

// SortByPriority stable-sorts recommendations high → medium → low.
func SortByPriority(recs []Recommendation) {
	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		return a.Priority.Rank() - b.Priority.Rank()
	})
}

// focusWeights boost actions that matter most for a focus area.
var focusWeights = map[string]map[string]float64{
	"cost": {
		"strategic_pricing":      2.0,
		"inventory_optimization": 1.8,
		"tariff_exemptions":      1.7,
		"production_adjustment":  1.5,
		"allocation_strategy":    1.5,
		"pricing_strategy":       1.5,
	},
	"speed": {
		"customer_communication":    2.0,
		"alternative_suppliers":     1.8,
		"inventory_strategy":        1.7,
		"logistics_rerouting":       1.6,
		"production_prioritization": 1.5,
	},
	"resilience": {
		"supplier_diversification":     2.0,
		"geographical_diversification": 1.9,
		"critical_component_strategy":  1.8,
		"alternative_components":       1.7,
		"compound_strategy":            1.6,
	},
	"compliance": {
		"trade_compliance":        2.0,
		"tariff_exemptions":       1.8,
		"supply_chain_visibility": 1.5,
		"geopolitical_monitoring": 1.5,
	},
}

// FocusAreas lists the focus areas understood by Prioritize.
func FocusAreas() []string {
	return []string{"cost", "speed", "resilience", "compliance"}
}

// Prioritize orders recommendations for a focus area: by priority first,
// then by descending focus weight. An empty focus returns the input order.
func Prioritize(recs []Recommendation, focus string) []Recommendation {
	out := slices.Clone(recs)
	if focus == "" {
		return out
	}

	weights := focusWeights[strings.ToLower(focus)]
	weight := func(r Recommendation) float64 {
		if w, ok := weights[r.Action]; ok {
			return w
		}
		return 1.0
	}

	slices.SortStableFunc(out, func(a, b Recommendation) int {
		if d := a.Priority.Rank() - b.Priority.Rank(); d != 0 {
			return d
		}
		wa, wb := weight(a), weight(b)
		switch {
		case wa > wb:
			return -1
		case wa < wb:
			return 1
		}
		return 0
	})
	return out
}

func countCritical(components []*impact.AffectedComponent) int {
	n := 0
	for _, c := range components {
		if c.Critical {
			n++
		}
	}
	return n
}
