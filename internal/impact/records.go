// Package impact turns lists of affected components and products into
// quantitative impact estimates: price, lead time, availability and
// allocation. It has no graph access; callers build the records and the
// estimators annotate them in place.
package impact

import "math"

// AffectedComponent is a component touched by a scenario, annotated with
// the estimates of whichever calculator ran over it.
type AffectedComponent struct {
	ComponentID   string `json:"component_id"`
	ComponentName string `json:"component_name"`
	Critical      bool   `json:"critical"`

	// Category is the component category (shortage scenarios).
	Category string `json:"category,omitempty"`

	// Tariff scenarios.
	ComponentType          string  `json:"component_type,omitempty"`
	TariffIncrease         float64 `json:"tariff_increase,omitempty"`
	EstimatedPriceIncrease float64 `json:"estimated_price_increase,omitempty"`

	// Supplier disruption scenarios.
	EstimatedLeadTimeIncreaseWeeks float64 `json:"estimated_lead_time_increase_weeks,omitempty"`

	// Geopolitical scenarios.
	LeadTimeImpact     float64 `json:"lead_time_impact,omitempty"`
	AvailabilityImpact float64 `json:"availability_impact,omitempty"`
	CostImpact         float64 `json:"cost_impact,omitempty"`

	// Shortage scenarios.
	LeadTimeIncreaseWeeks      float64 `json:"lead_time_increase_weeks,omitempty"`
	PriceIncreasePercent       float64 `json:"price_increase_percent,omitempty"`
	AllocationReductionPercent float64 `json:"allocation_reduction_percent,omitempty"`

	// Compound scenarios.
	ImpactSources []string `json:"impact_sources,omitempty"`
	Scenarios     []string `json:"scenarios,omitempty"`
}

// ProductComponent is the per-product view of an affected component.
type ProductComponent struct {
	ComponentID   string `json:"component_id"`
	ComponentName string `json:"component_name"`
	Critical      bool   `json:"critical"`
}

// AffectedProduct is a product containing at least one affected component.
type AffectedProduct struct {
	ProductID               string             `json:"product_id"`
	ProductName             string             `json:"product_name"`
	Manufacturer            string             `json:"manufacturer,omitempty"`
	ManufacturerID          string             `json:"manufacturer_id,omitempty"`
	AffectedComponentsCount int                `json:"affected_components_count"`
	CriticalComponentsCount int                `json:"critical_components_count"`
	ImpactScore             int                `json:"impact_score"`
	AffectedComponents      []ProductComponent `json:"affected_components"`

	EstimatedPriceIncreasePercentage float64 `json:"estimated_price_increase_percentage,omitempty"`
	EstimatedLeadTimeIncreaseWeeks   float64 `json:"estimated_lead_time_increase_weeks,omitempty"`

	LeadTimeIncreaseWeeks       float64 `json:"lead_time_increase_weeks,omitempty"`
	AvailabilityDecreasePercent float64 `json:"availability_decrease_percent,omitempty"`
	CostIncreasePercent         float64 `json:"cost_increase_percent,omitempty"`
	PriceIncreasePercent        float64 `json:"price_increase_percent,omitempty"`
	AllocationReductionPercent  float64 `json:"allocation_reduction_percent,omitempty"`
	CriticalComponentsAffected  int     `json:"critical_components_affected,omitempty"`
}

// Round rounds x to the given number of decimal places, breaking exact
// ties to the even neighbour.
func Round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.RoundToEven(x*p) / p
}

// RoundInt rounds x to the nearest integer, ties to even.
func RoundInt(x float64) int {
	return int(math.RoundToEven(x))
}

// index maps component IDs to the first matching record.
func index(components []*AffectedComponent) map[string]*AffectedComponent {
	m := make(map[string]*AffectedComponent, len(components))
	for _, c := range components {
		if _, ok := m[c.ComponentID]; !ok {
			m[c.ComponentID] = c
		}
	}
	return m
}

func criticalFactor(critical bool, yes, no float64) float64 {
	if critical {
		return yes
	}
	return no
}
