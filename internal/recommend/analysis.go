package recommend

import (
	"fmt"
	"strings"

	"github.com/Benny93/prophet-go/internal/analyzer"
)

// Optimization returns general improvement recommendations for a
// resilience analysis.
func Optimization(res analyzer.Resilience) []Recommendation {
	var recs []Recommendation

	if res.Factors.SupplierDiversity.Score < 70 {
		recs = append(recs, Recommendation{
			Action:                   "supplier_diversification",
			Description:              "Develop secondary suppliers for components with single sources",
			Priority:                 High,
			EstimatedBenefit:         "Reduced risk of supplier disruptions",
			ImplementationDifficulty: "medium",
			Timeframe:                "medium_term",
		})
	}

	if res.Factors.GeographicalDiversity.Score < 60 {
		recs = append(recs, Recommendation{
			Action:                   "geographical_diversification",
			Description:              "Reduce dependency on components from high-concentration regions",
			Priority:                 Medium,
			EstimatedBenefit:         "Reduced exposure to regional disruptions",
			ImplementationDifficulty: "high",
			Timeframe:                "long_term",
		})
	}

	if n := res.Metrics.CriticalComponents; n > 0 {
		recs = append(recs, Recommendation{
			Action:                   "critical_component_strategy",
			Description:              fmt.Sprintf("Develop specific risk mitigation strategies for %d critical components", n),
			Priority:                 High,
			EstimatedBenefit:         "Increased resilience for highest-risk components",
			ImplementationDifficulty: "medium",
			Timeframe:                "short_term",
		})
	}

	recs = append(recs,
		Recommendation{
			Action:                   "inventory_optimization",
			Description:              "Optimize inventory levels based on component criticality and lead times",
			Priority:                 Medium,
			EstimatedBenefit:         "Balance between cost efficiency and supply risk",
			ImplementationDifficulty: "medium",
			Timeframe:                "short_term",
		},
		Recommendation{
			Action:                   "supply_chain_visibility",
			Description:              "Implement enhanced visibility tools for real-time supply chain monitoring",
			Priority:                 Medium,
			EstimatedBenefit:         "Earlier detection of emerging supply risks",
			ImplementationDifficulty: "high",
			Timeframe:                "medium_term",
		},
	)

	if res.Factors.ComponentCriticality.Score < 60 {
		recs = append(recs, Recommendation{
			Action:                   "alternative_designs",
			Description:              "Research alternative materials and designs for high-risk components",
			Priority:                 Medium,
			EstimatedBenefit:         "Increased design flexibility during disruptions",
			ImplementationDifficulty: "high",
			Timeframe:                "long_term",
		})
	}

	return recs
}

// RiskFactors are user-supplied risk estimates in [0, 1].
type RiskFactors struct {
	TariffRisk       float64 `json:"tariff_risk" yaml:"tariff_risk" validate:"gte=0,lte=1"`
	SupplierRisk     float64 `json:"supplier_risk" yaml:"supplier_risk" validate:"gte=0,lte=1"`
	GeopoliticalRisk float64 `json:"geopolitical_risk" yaml:"geopolitical_risk" validate:"gte=0,lte=1"`
	ShortageRisk     float64 `json:"shortage_risk" yaml:"shortage_risk" validate:"gte=0,lte=1"`
}

func (f RiskFactors) average() float64 {
	return (f.TariffRisk + f.SupplierRisk + f.GeopoliticalRisk + f.ShortageRisk) / 4
}

// Custom returns recommendations for user-supplied risk factors.
func Custom(f RiskFactors) []Recommendation {
	var recs []Recommendation

	if f.TariffRisk > 0.7 {
		recs = append(recs, Recommendation{
			Action:                   "tariff_mitigation",
			Description:              "Develop a comprehensive tariff mitigation strategy",
			Priority:                 High,
			EstimatedBenefit:         "Reduced tariff exposure",
			ImplementationDifficulty: "high",
			Timeframe:                "medium_term",
		})
	}

	if f.SupplierRisk > 0.6 {
		priority := Medium
		if f.SupplierRisk > 0.8 {
			priority = High
		}
		recs = append(recs, Recommendation{
			Action:                   "supplier_strategy",
			Description:              "Create a supplier risk management program",
			Priority:                 priority,
			EstimatedBenefit:         "More reliable supplier network",
			ImplementationDifficulty: "medium",
			Timeframe:                "short_term",
		})
	}

	if f.GeopoliticalRisk > 0.5 {
		recs = append(recs, Recommendation{
			Action:                   "geopolitical_monitoring",
			Description:              "Implement a geopolitical risk monitoring system",
			Priority:                 Medium,
			EstimatedBenefit:         "Earlier warning of geopolitical disruptions",
			ImplementationDifficulty: "medium",
			Timeframe:                "short_term",
		})
	}

	if f.ShortageRisk > 0.6 {
		recs = append(recs, Recommendation{
			Action:                   "shortage_preparation",
			Description:              "Prepare contingency plans for component shortages",
			Priority:                 Medium,
			EstimatedBenefit:         "Faster response to shortages",
			ImplementationDifficulty: "medium",
			Timeframe:                "medium_term",
		})
	}

	priority := Medium
	if f.average() > 0.7 {
		priority = High
	}
	recs = append(recs, Recommendation{
		Action:                   "resilience_program",
		Description:              "Establish a dedicated supply chain resilience program",
		Priority:                 priority,
		EstimatedBenefit:         "Holistic improvement in supply chain resilience",
		ImplementationDifficulty: "high",
		Timeframe:                "medium_term",
	})

	return recs
}

// TypeRisk is the shortage risk of one component category.
type TypeRisk struct {
	ComponentType          string
	RiskLevel              string
	CriticalComponentCount int
}

// GlobalShortage returns recommendations for a graph-wide shortage risk
// report.
func GlobalShortage(risks []TypeRisk) []Recommendation {
	var highRisk []string
	criticalHeavy := false
	for _, r := range risks {
		if r.RiskLevel == string(High) {
			highRisk = append(highRisk, r.ComponentType)
		}
		if r.CriticalComponentCount > 3 {
			criticalHeavy = true
		}
	}

	var recs []Recommendation
	if len(highRisk) > 0 {
		names := highRisk[:min(3, len(highRisk))]
		recs = append(recs, Recommendation{
			Action:                   "diversify_high_risk",
			Description:              fmt.Sprintf("Develop supplier diversification strategies for high-risk component types (%s...)", strings.Join(names, ", ")),
			Priority:                 High,
			ImplementationDifficulty: "high",
			Timeframe:                "medium_term",
		})
	}

	if criticalHeavy {
		recs = append(recs, Recommendation{
			Action:                   "strategic_inventory",
			Description:              "Implement strategic inventory buffers for critical components",
			Priority:                 Medium,
			ImplementationDifficulty: "medium",
			Timeframe:                "short_term",
		})
	}

	recs = append(recs,
		Recommendation{
			Action:                   "shortage_monitoring",
			Description:              "Implement an early warning system for component shortages",
			Priority:                 Medium,
			ImplementationDifficulty: "medium",
			Timeframe:                "short_term",
		},
		Recommendation{
			Action:                   "supplier_agreements",
			Description:              "Establish long-term supply agreements with key component suppliers",
			Priority:                 High,
			ImplementationDifficulty: "high",
			Timeframe:                "medium_term",
		},
	)

	if len(highRisk) > 0 {
		recs = append(recs, Recommendation{
			Action:                   "design_alternatives",
			Description:              "Research alternative components or design approaches to reduce dependency on high-risk components",
			Priority:                 Medium,
			ImplementationDifficulty: "high",
			Timeframe:                "long_term",
		})
	}

	return recs
}
