package scenario

import (
	"fmt"
	"slices"

	"github.com/Benny93/prophet-go/internal/graph"
)

// EffectKind is the kind of mutation a scenario applies to a component.
type EffectKind string

const (
	EffectTariff            EffectKind = "tariff"
	EffectSupplyConstrained EffectKind = "supply_constrained"
	EffectSupplyRemoved     EffectKind = "supply_removed"
	EffectEvent             EffectKind = "event"
	EffectShortage          EffectKind = "shortage"
)

// Effect is one replayable mutation. Compound scenarios rebuild their
// working state from the effects of the combined results.
type Effect struct {
	ComponentID string     `json:"component_id"`
	Kind        EffectKind `json:"kind"`
	SupplierID  string     `json:"supplier_id,omitempty"`
	Level       string     `json:"level,omitempty"`
}

// Annotation holds the transient flags a scenario places on a component.
type Annotation struct {
	TariffVulnerable   bool     `json:"tariff_vulnerable,omitempty"`
	SupplyConstrained  bool     `json:"supply_constrained,omitempty"`
	SupplyRemoved      bool     `json:"supply_removed,omitempty"`
	AffectedByEvent    bool     `json:"affected_by_event,omitempty"`
	EventImpactLevel   string   `json:"event_impact_level,omitempty"`
	AffectedByShortage bool     `json:"affected_by_shortage,omitempty"`
	ShortageLevel      string   `json:"shortage_level,omitempty"`
	Scenarios          []string `json:"scenarios,omitempty"`
}

// ImpactSources describes the annotation as a list of impact labels.
func (a Annotation) ImpactSources() []string {
	var sources []string
	if a.TariffVulnerable {
		sources = append(sources, "tariff_vulnerable")
	}
	if a.SupplyConstrained {
		sources = append(sources, "supply_constrained")
	}
	if a.SupplyRemoved {
		sources = append(sources, "supply_removed")
	}
	if a.AffectedByEvent {
		sources = append(sources, fmt.Sprintf("affected_by_%s_event", a.EventImpactLevel))
	}
	if a.AffectedByShortage {
		sources = append(sources, fmt.Sprintf("affected_by_%s_shortage", a.ShortageLevel))
	}
	return sources
}

// Overlay maps component IDs to scenario annotations. It is private to
// one scenario call and never shared with the source graph.
type Overlay struct {
	order []string
	notes map[string]*Annotation
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{notes: make(map[string]*Annotation)}
}

func (o *Overlay) annotate(componentID, scenarioID string) *Annotation {
	a, ok := o.notes[componentID]
	if !ok {
		a = &Annotation{}
		o.notes[componentID] = a
		o.order = append(o.order, componentID)
	}
	if scenarioID != "" && !slices.Contains(a.Scenarios, scenarioID) {
		a.Scenarios = append(a.Scenarios, scenarioID)
	}
	return a
}

// Get returns a copy of the annotation for a component.
func (o *Overlay) Get(componentID string) (Annotation, bool) {
	a, ok := o.notes[componentID]
	if !ok {
		return Annotation{}, false
	}
	c := *a
	c.Scenarios = slices.Clone(a.Scenarios)
	return c, true
}

// TariffVulnerable reports whether the overlay marks the component
// tariff-vulnerable.
func (o *Overlay) TariffVulnerable(componentID string) bool {
	a, ok := o.notes[componentID]
	return ok && a.TariffVulnerable
}

// IDs returns the annotated component IDs in first-annotation order.
func (o *Overlay) IDs() []string {
	return slices.Clone(o.order)
}

// Len returns the number of annotated components.
func (o *Overlay) Len() int {
	return len(o.order)
}

// Apply records an effect on the working graph and overlay. Effects on
// components missing from g are ignored. Supply removal deletes the
// SUPPLIES edge from g, which must be a private copy.
func (o *Overlay) Apply(g *graph.SupplyGraph, e Effect, scenarioID string) bool {
	if !g.HasNode(e.ComponentID) {
		return false
	}

	a := o.annotate(e.ComponentID, scenarioID)
	switch e.Kind {
	case EffectTariff:
		a.TariffVulnerable = true
	case EffectSupplyConstrained:
		a.SupplyConstrained = true
	case EffectSupplyRemoved:
		g.RemoveRelationship(e.SupplierID, graph.RelSupplies, e.ComponentID)
		a.SupplyRemoved = true
	case EffectEvent:
		a.AffectedByEvent = true
		a.EventImpactLevel = e.Level
	case EffectShortage:
		a.AffectedByShortage = true
		a.ShortageLevel = e.Level
	}
	return true
}
