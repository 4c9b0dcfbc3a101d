package analyzer

import "github.com/Benny93/prophet-go/internal/graph"

// Countries returns the names of the countries a component originates
// from, in edge insertion order. Only ORIGINATES_FROM targets that are
// country nodes count.
func Countries(g graph.Reader, componentID string) []string {
	var countries []string
	for _, rel := range g.Outgoing(componentID, graph.RelOriginatesFrom) {
		n := g.Node(rel.Target)
		if n != nil && n.Kind == graph.KindCountry {
			countries = append(countries, n.DisplayName())
		}
	}
	return countries
}

// SupplierIDs returns the IDs of the nodes supplying a component.
func SupplierIDs(g graph.Reader, componentID string) []string {
	rels := g.Incoming(componentID, graph.RelSupplies)
	ids := make([]string, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.Source)
	}
	return ids
}

// SupplierNames returns the display names of a component's suppliers.
func SupplierNames(g graph.Reader, componentID string) []string {
	ids := SupplierIDs(g, componentID)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, g.Node(id).DisplayName())
	}
	return names
}

// ProductIDs returns the products containing a component.
func ProductIDs(g graph.Reader, componentID string) []string {
	var ids []string
	for _, rel := range g.Incoming(componentID, graph.RelContains) {
		ids = append(ids, rel.Source)
	}
	return ids
}

// InUse reports whether any product contains the component.
func InUse(g graph.Reader, componentID string) bool {
	return g.HasIncoming(componentID, graph.RelContains)
}

// ComponentIDs returns the components a product contains.
func ComponentIDs(g graph.Reader, productID string) []string {
	var ids []string
	for _, rel := range g.Outgoing(productID, graph.RelContains) {
		ids = append(ids, rel.Target)
	}
	return ids
}

// Manufacturer returns the first company manufacturing the product, or
// nil. With several manufacturers the first edge in insertion order wins.
func Manufacturer(g graph.Reader, productID string) *graph.Node {
	for _, rel := range g.Incoming(productID, graph.RelManufactures) {
		return g.Node(rel.Source)
	}
	return nil
}

// ProductsToAnalyze returns the products manufactured by companyID, or
// every product when companyID is empty.
func ProductsToAnalyze(g graph.Reader, companyID string) []string {
	var ids []string
	if companyID != "" {
		for _, rel := range g.Outgoing(companyID, graph.RelManufactures) {
			ids = append(ids, rel.Target)
		}
		return ids
	}
	for _, n := range g.NodesByKind(graph.KindProduct) {
		ids = append(ids, n.ID)
	}
	return ids
}
