package analyzer

import (
	"slices"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/impact"
)

// FindAffectedProducts groups affected components by the products that
// contain them. Products appear in first-discovery order and are then
// stable-sorted by descending impact score, where each critical component
// counts 2 and any other component 1.
func FindAffectedProducts(g graph.Reader, components []*impact.AffectedComponent) []*impact.AffectedProduct {
	var order []string
	byProduct := make(map[string]*impact.AffectedProduct)

	for _, c := range components {
		for _, productID := range ProductIDs(g, c.ComponentID) {
			p, ok := byProduct[productID]
			if !ok {
				p = &impact.AffectedProduct{
					ProductID:   productID,
					ProductName: g.Node(productID).DisplayName(),
				}
				if m := Manufacturer(g, productID); m != nil {
					p.Manufacturer = m.DisplayName()
					p.ManufacturerID = m.ID
				}
				byProduct[productID] = p
				order = append(order, productID)
			}

			p.AffectedComponents = append(p.AffectedComponents, impact.ProductComponent{
				ComponentID:   c.ComponentID,
				ComponentName: c.ComponentName,
				Critical:      c.Critical,
			})
			p.AffectedComponentsCount++
			if c.Critical {
				p.CriticalComponentsCount++
				p.ImpactScore += 2
			} else {
				p.ImpactScore++
			}
		}
	}

	products := make([]*impact.AffectedProduct, 0, len(order))
	for _, id := range order {
		products = append(products, byProduct[id])
	}
	slices.SortStableFunc(products, func(x, y *impact.AffectedProduct) int {
		return y.ImpactScore - x.ImpactScore
	})
	return products
}

// NewAffectedComponent builds the base record for a component node.
func NewAffectedComponent(n *graph.Node) *impact.AffectedComponent {
	return &impact.AffectedComponent{
		ComponentID:   n.ID,
		ComponentName: n.DisplayName(),
		Critical:      n.IsCritical(),
	}
}
