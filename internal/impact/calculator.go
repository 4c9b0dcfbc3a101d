package impact

// Level is a qualitative impact level.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// PriceSummary aggregates tariff price impacts across affected products.
type PriceSummary struct {
	AverageProductPriceIncrease float64 `json:"average_product_price_increase"`
	MaxProductPriceIncrease     float64 `json:"max_product_price_increase"`
	MinProductPriceIncrease     float64 `json:"min_product_price_increase"`
}

// LeadTimeSummary aggregates supplier-disruption lead-time impacts.
type LeadTimeSummary struct {
	AverageLeadTimeIncreaseWeeks float64 `json:"average_lead_time_increase_weeks"`
	MaxLeadTimeIncreaseWeeks     float64 `json:"max_lead_time_increase_weeks"`
	EstimatedRecoveryTimeMonths  int     `json:"estimated_recovery_time_months"`
}

// GeopoliticalSummary aggregates geopolitical product impacts.
type GeopoliticalSummary struct {
	AverageLeadTimeIncrease     float64 `json:"average_lead_time_increase"`
	AverageAvailabilityDecrease float64 `json:"average_availability_decrease"`
	AverageCostIncrease         float64 `json:"average_cost_increase"`
	MaxLeadTimeIncrease         float64 `json:"max_lead_time_increase"`
	MaxAvailabilityDecrease     float64 `json:"max_availability_decrease"`
	MaxCostIncrease             float64 `json:"max_cost_increase"`
}

// ShortageSummary aggregates shortage product impacts.
type ShortageSummary struct {
	AverageLeadTimeIncrease    float64 `json:"average_lead_time_increase"`
	AveragePriceIncrease       float64 `json:"average_price_increase"`
	AverageAllocationReduction float64 `json:"average_allocation_reduction"`
	MaxLeadTimeIncrease        float64 `json:"max_lead_time_increase"`
	MaxPriceIncrease           float64 `json:"max_price_increase"`
	MaxAllocationReduction     float64 `json:"max_allocation_reduction"`
}

// PriceImpacts estimates tariff-driven price increases.
//
// Each component's increase is 40% of the tariff. A product's increase is
// the sum over its affected components weighted 0.5 for critical and 0.2
// otherwise, capped at the tariff percentage.
func PriceImpacts(components []*AffectedComponent, products []*AffectedProduct, tariffPct float64) PriceSummary {
	for _, c := range components {
		c.EstimatedPriceIncrease = Round(tariffPct*0.4, 2)
	}
	byID := index(components)

	var summary PriceSummary
	total := 0.0
	for i, p := range products {
		impact := 0.0
		for _, pc := range p.AffectedComponents {
			if ac, ok := byID[pc.ComponentID]; ok {
				impact += ac.EstimatedPriceIncrease * criticalFactor(pc.Critical, 0.5, 0.2)
			}
		}
		p.EstimatedPriceIncreasePercentage = Round(min(impact, tariffPct), 2)
		total += p.EstimatedPriceIncreasePercentage

		if i == 0 || p.EstimatedPriceIncreasePercentage > summary.MaxProductPriceIncrease {
			summary.MaxProductPriceIncrease = p.EstimatedPriceIncreasePercentage
		}
		if i == 0 || p.EstimatedPriceIncreasePercentage < summary.MinProductPriceIncrease {
			summary.MinProductPriceIncrease = p.EstimatedPriceIncreasePercentage
		}
	}
	summary.AverageProductPriceIncrease = Round(total/float64(max(1, len(products))), 2)
	return summary
}

// LeadTimeImpacts estimates supplier-disruption lead-time increases.
//
// Only critical components drive a product's lead time: the product takes
// the largest increase among its critical affected components.
func LeadTimeImpacts(components []*AffectedComponent, products []*AffectedProduct, severity, duration float64) LeadTimeSummary {
	base := 3 * severity * duration
	for _, c := range components {
		c.EstimatedLeadTimeIncreaseWeeks = Round(base*criticalFactor(c.Critical, 1.5, 1.0), 1)
	}
	byID := index(components)

	var summary LeadTimeSummary
	total := 0.0
	for _, p := range products {
		worst := 0.0
		for _, pc := range p.AffectedComponents {
			ac, ok := byID[pc.ComponentID]
			if ok && pc.Critical && ac.EstimatedLeadTimeIncreaseWeeks > worst {
				worst = ac.EstimatedLeadTimeIncreaseWeeks
			}
		}
		p.EstimatedLeadTimeIncreaseWeeks = worst
		total += worst
		summary.MaxLeadTimeIncreaseWeeks = max(summary.MaxLeadTimeIncreaseWeeks, worst)
	}
	summary.AverageLeadTimeIncreaseWeeks = Round(total/float64(max(1, len(products))), 1)
	summary.EstimatedRecoveryTimeMonths = RoundInt(duration * 12)
	return summary
}

// GeopoliticalProductImpacts rolls per-component geopolitical impacts up to
// products. Sums are weighted 1.5 for critical components and divided by
// the product's total affected-component count, so components without a
// matching record still count in the denominator.
func GeopoliticalProductImpacts(products []*AffectedProduct, components []*AffectedComponent) GeopoliticalSummary {
	byID := index(components)

	var summary GeopoliticalSummary
	var leadSum, availSum, costSum float64
	for _, p := range products {
		var lead, avail, cost float64
		critical := 0
		for _, pc := range p.AffectedComponents {
			ac, ok := byID[pc.ComponentID]
			if !ok {
				continue
			}
			m := criticalFactor(pc.Critical, 1.5, 1.0)
			lead += ac.LeadTimeImpact * m
			avail += ac.AvailabilityImpact * m
			cost += ac.CostImpact * m
			if pc.Critical {
				critical++
			}
		}

		n := float64(max(1, len(p.AffectedComponents)))
		p.LeadTimeIncreaseWeeks = Round(lead/n, 1)
		p.AvailabilityDecreasePercent = Round(min(avail/n, 100), 1)
		p.CostIncreasePercent = Round(cost/n, 1)
		p.CriticalComponentsAffected = critical

		leadSum += p.LeadTimeIncreaseWeeks
		availSum += p.AvailabilityDecreasePercent
		costSum += p.CostIncreasePercent
		summary.MaxLeadTimeIncrease = max(summary.MaxLeadTimeIncrease, p.LeadTimeIncreaseWeeks)
		summary.MaxAvailabilityDecrease = max(summary.MaxAvailabilityDecrease, p.AvailabilityDecreasePercent)
		summary.MaxCostIncrease = max(summary.MaxCostIncrease, p.CostIncreasePercent)
	}

	if len(products) > 0 {
		n := float64(len(products))
		summary.AverageLeadTimeIncrease = Round(leadSum/n, 1)
		summary.AverageAvailabilityDecrease = Round(availSum/n, 1)
		summary.AverageCostIncrease = Round(costSum/n, 1)
	}
	return summary
}

// ShortageProductImpacts rolls per-component shortage impacts up to
// products, averaging over the components that have a matching record.
func ShortageProductImpacts(products []*AffectedProduct, components []*AffectedComponent) ShortageSummary {
	byID := index(components)

	var summary ShortageSummary
	var leadSum, priceSum, allocSum float64
	for _, p := range products {
		var lead, price, alloc float64
		critical, matched := 0, 0
		for _, pc := range p.AffectedComponents {
			ac, ok := byID[pc.ComponentID]
			if !ok {
				continue
			}
			matched++
			m := criticalFactor(pc.Critical, 1.5, 1.0)
			lead += ac.LeadTimeIncreaseWeeks * m
			price += ac.PriceIncreasePercent * m
			alloc += ac.AllocationReductionPercent * m
			if pc.Critical {
				critical++
			}
		}

		p.LeadTimeIncreaseWeeks, p.PriceIncreasePercent, p.AllocationReductionPercent = 0, 0, 0
		if matched > 0 {
			n := float64(matched)
			p.LeadTimeIncreaseWeeks = Round(lead/n, 1)
			p.PriceIncreasePercent = Round(price/n, 1)
			p.AllocationReductionPercent = Round(alloc/n, 1)
		}
		p.CriticalComponentsAffected = critical

		leadSum += p.LeadTimeIncreaseWeeks
		priceSum += p.PriceIncreasePercent
		allocSum += p.AllocationReductionPercent
		summary.MaxLeadTimeIncrease = max(summary.MaxLeadTimeIncrease, p.LeadTimeIncreaseWeeks)
		summary.MaxPriceIncrease = max(summary.MaxPriceIncrease, p.PriceIncreasePercent)
		summary.MaxAllocationReduction = max(summary.MaxAllocationReduction, p.AllocationReductionPercent)
	}

	if len(products) > 0 {
		n := float64(len(products))
		summary.AverageLeadTimeIncrease = Round(leadSum/n, 1)
		summary.AveragePriceIncrease = Round(priceSum/n, 1)
		summary.AverageAllocationReduction = Round(allocSum/n, 1)
	}
	return summary
}

// OverallImpact classifies a geopolitical scenario. High thresholds are
// checked before medium ones.
func OverallImpact(newResilience, baseResilience float64, s GeopoliticalSummary) Level {
	drop := baseResilience - newResilience
	switch {
	case drop > 15 || s.AverageLeadTimeIncrease > 8 || s.AverageAvailabilityDecrease > 40 || s.AverageCostIncrease > 20:
		return LevelHigh
	case drop > 7 || s.AverageLeadTimeIncrease > 4 || s.AverageAvailabilityDecrease > 20 || s.AverageCostIncrease > 10:
		return LevelMedium
	default:
		return LevelLow
	}
}
