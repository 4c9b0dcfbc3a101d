package scenario

import (
	"time"

	"github.com/Benny93/prophet-go/internal/impact"
	"github.com/Benny93/prophet-go/internal/recommend"
)

// Type identifies a scenario kind.
type Type string

const (
	TypeTariff       Type = "tariff_change"
	TypeDisruption   Type = "supplier_disruption"
	TypeGeopolitical Type = "geopolitical_event"
	TypeShortage     Type = "component_shortage"
	TypeCompound     Type = "compound"
)

// ResilienceImpact compares baseline and scenario resilience.
type ResilienceImpact struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
	Change float64 `json:"change"`
}

// Result is the outcome of one scenario. Exactly one of the detail
// sections is set, matching ScenarioType.
type Result struct {
	ID           string    `json:"id"`
	ScenarioType Type      `json:"scenario_type"`
	GeneratedAt  time.Time `json:"generated_at"`
	Error        string    `json:"error,omitempty"`

	AffectedComponentsCount int                         `json:"affected_components_count"`
	AffectedComponents      []*impact.AffectedComponent `json:"affected_components"`
	AffectedProductsCount   int                         `json:"affected_products_count"`
	AffectedProducts        []*impact.AffectedProduct   `json:"affected_products"`
	ResilienceImpact        ResilienceImpact            `json:"resilience_impact"`
	Recommendations         []recommend.Recommendation  `json:"recommendations"`
	Effects                 []Effect                    `json:"effects"`

	Tariff       *TariffDetail       `json:"tariff,omitempty"`
	Disruption   *DisruptionDetail   `json:"disruption,omitempty"`
	Geopolitical *GeopoliticalDetail `json:"geopolitical,omitempty"`
	Shortage     *ShortageDetail     `json:"shortage,omitempty"`
	Compound     *CompoundDetail     `json:"compound,omitempty"`
}

// TariffDetail holds tariff-specific output.
type TariffDetail struct {
	Country            string             `json:"country"`
	IncreasePercentage float64            `json:"increase_percentage"`
	ComponentTypes     []string           `json:"component_types,omitempty"`
	PriceImpacts       impact.PriceSummary `json:"price_impacts"`
}

// DisruptionDetail holds supplier-disruption output.
type DisruptionDetail struct {
	SupplierID      string                 `json:"supplier_id"`
	SupplierName    string                 `json:"supplier_name"`
	DisruptionLevel string                 `json:"disruption_level"`
	DurationMonths  int                    `json:"duration_months"`
	LeadTimeImpacts impact.LeadTimeSummary `json:"lead_time_impacts"`
}

// GeopoliticalAssessment summarizes a geopolitical event.
type GeopoliticalAssessment struct {
	LeadTime           float64      `json:"lead_time"`
	Availability       float64      `json:"availability"`
	Cost               float64      `json:"cost"`
	OverallImpactLevel impact.Level `json:"overall_impact_level"`
}

// RecoveryTimeline estimates how long recovery takes.
type RecoveryTimeline struct {
	EstimatedMonths int `json:"estimated_months"`
}

// GeopoliticalDetail holds geopolitical-event output.
type GeopoliticalDetail struct {
	Country          string                 `json:"country"`
	EventType        string                 `json:"event_type"`
	Severity         string                 `json:"severity"`
	DurationMonths   int                    `json:"duration_months"`
	ImpactAssessment GeopoliticalAssessment `json:"impact_assessment"`
	RecoveryTimeline RecoveryTimeline       `json:"recovery_timeline"`
}

// ProductTiers groups product names by allocation priority.
type ProductTiers struct {
	Tier1 []string `json:"tier1"`
	Tier2 []string `json:"tier2"`
	Tier3 []string `json:"tier3"`
}

// TierPercentages are the supply percentages allocated to each tier.
type TierPercentages struct {
	Tier1 int `json:"tier1"`
	Tier2 int `json:"tier2"`
	Tier3 int `json:"tier3"`
}

// AllocationStrategy is advisory output for distributing scarce supply.
type AllocationStrategy struct {
	AvailableSupplyPercent int             `json:"available_supply_percent"`
	AllocationStrategy     string          `json:"allocation_strategy"`
	ProductTiers           ProductTiers    `json:"product_tiers"`
	AllocationPercentages  TierPercentages `json:"allocation_percentages"`
	HighMarginProducts     []string        `json:"high_margin_products"`
	MostCriticalProducts   []string        `json:"most_critical_products"`
}

// ShortageDetail holds component-shortage output.
type ShortageDetail struct {
	ComponentType      string                 `json:"component_type"`
	ShortageLevel      string                 `json:"shortage_level"`
	DurationMonths     int                    `json:"duration_months"`
	ImpactAssessment   impact.ShortageSummary `json:"impact_assessment"`
	AllocationStrategy AllocationStrategy     `json:"allocation_strategy"`
}

// CompoundAssessment rates a compound scenario.
type CompoundAssessment struct {
	Severity impact.Level `json:"severity"`
}

// CompoundDetail holds compound-scenario output.
type CompoundDetail struct {
	ScenariosCombined int                `json:"scenarios_combined"`
	ScenarioTypes     []Type             `json:"scenario_types"`
	ScenarioIDs       []string           `json:"scenario_ids"`
	ImpactAssessment  CompoundAssessment `json:"impact_assessment"`
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	if s == nil {
		return []T{}
	}
	return s
}
