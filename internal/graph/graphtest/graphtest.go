// Package graphtest builds supply graphs for tests.
package graphtest

import "github.com/Benny93/prophet-go/internal/graph"

// Builder assembles a SupplyGraph fluently.
type Builder struct {
	g *graph.SupplyGraph
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{g: graph.NewSupplyGraph()}
}

// Graph returns the built graph.
func (b *Builder) Graph() *graph.SupplyGraph {
	return b.g
}

// Company adds a company node.
func (b *Builder) Company(id, name, hqCountry string) *Builder {
	b.g.AddNode(&graph.Node{
		ID:      id,
		Kind:    graph.KindCompany,
		Name:    name,
		Company: &graph.CompanyAttrs{HQCountry: hqCountry},
	})
	return b
}

// Product adds a product node, manufactured by manufacturerID when it is
// not empty.
func (b *Builder) Product(id, name, manufacturerID string, releaseYear int, retailPrice float64) *Builder {
	b.g.AddNode(&graph.Node{
		ID:   id,
		Kind: graph.KindProduct,
		Name: name,
		Product: &graph.ProductAttrs{
			Category:       "electronics",
			ReleaseYear:    releaseYear,
			RetailPriceUSD: retailPrice,
		},
	})
	if manufacturerID != "" {
		b.g.AddRelationship(graph.NewRelationship(manufacturerID, graph.RelManufactures, id))
	}
	return b
}

// Component adds a component node.
func (b *Builder) Component(id, name, category string, critical, tariffVulnerable bool) *Builder {
	b.g.AddNode(&graph.Node{
		ID:   id,
		Kind: graph.KindComponent,
		Name: name,
		Component: &graph.ComponentAttrs{
			Critical:         critical,
			TariffVulnerable: tariffVulnerable,
			Category:         category,
		},
	})
	return b
}

// Contains links a product to its components.
func (b *Builder) Contains(productID string, componentIDs ...string) *Builder {
	for _, c := range componentIDs {
		b.g.AddRelationship(graph.NewRelationship(productID, graph.RelContains, c))
	}
	return b
}

// Supplies links a supplier to the components it supplies.
func (b *Builder) Supplies(supplierID string, componentIDs ...string) *Builder {
	for _, c := range componentIDs {
		b.g.AddRelationship(graph.NewRelationship(supplierID, graph.RelSupplies, c))
	}
	return b
}

// Origin links a component to its origin countries, creating country
// nodes on first use.
func (b *Builder) Origin(componentID string, countries ...string) *Builder {
	for _, country := range countries {
		id := graph.CountryID(country)
		if !b.g.HasNode(id) {
			b.g.AddNode(&graph.Node{ID: id, Kind: graph.KindCountry, Name: country})
		}
		b.g.AddRelationship(graph.NewRelationship(componentID, graph.RelOriginatesFrom, id))
	}
	return b
}

// Minimal returns the smallest interesting graph: manufacturer "maker"
// makes product "p" containing the critical, tariff-vulnerable component
// "c", supplied only by "s" and originating only from China.
func Minimal() *graph.SupplyGraph {
	return New().
		Company("maker", "Maker Inc", "United States").
		Company("s", "Sole Supplier", "China").
		Product("p", "Phone", "maker", 2020, 500).
		Component("c", "Main Processor", "processor", true, true).
		Contains("p", "c").
		Supplies("s", "c").
		Origin("c", "China").
		Graph()
}

// Borderline returns one product with two critical components: "chip"
// scores 0.9 and "board" scores 0.65, between the insight threshold and
// the default critical threshold.
func Borderline() *graph.SupplyGraph {
	return New().
		Company("maker", "Maker Inc", "United States").
		Company("s1", "First Supplier", "Taiwan").
		Company("s2", "Second Supplier", "Vietnam").
		Product("p", "Phone", "maker", 2020, 500).
		Component("chip", "Main Processor", "processor", true, true).
		Component("board", "Logic Board", "pcb", true, false).
		Contains("p", "chip", "board").
		Supplies("s1", "chip", "board").
		Supplies("s2", "board").
		Origin("chip", "China").
		Origin("board", "Taiwan", "Vietnam", "Mexico").
		Graph()
}

// Sample returns a small electronics supply chain with three products,
// six components (one not used by any product), eight companies and five
// countries.
//
//	iphone  (apple,   2022): a16, oled, battery, dram, camera
//	galaxy  (samsung, 2021): oled, battery, dram
//	macbook (apple,   2020): a16, battery, dram
func Sample() *graph.SupplyGraph {
	return New().
		Company("apple", "Apple", "United States").
		Company("samsung", "Samsung", "South Korea").
		Company("tsmc", "TSMC", "Taiwan").
		Company("catl", "CATL", "China").
		Company("lg", "LG Energy", "South Korea").
		Company("skhynix", "SK Hynix", "South Korea").
		Company("sony", "Sony", "Japan").
		Company("qualcomm", "Qualcomm", "United States").
		Product("iphone", "iPhone 14", "apple", 2022, 999).
		Product("galaxy", "Galaxy S21", "samsung", 2021, 799).
		Product("macbook", "MacBook Air", "apple", 2020, 1199).
		Component("a16", "A16 Processor", "processor", true, true).
		Component("oled", "OLED Display", "display", true, false).
		Component("battery", "Lithium Battery", "battery", false, true).
		Component("dram", "DRAM Memory", "memory", true, true).
		Component("camera", "Camera Module", "camera", false, false).
		Component("modem", "Legacy Modem", "modem", true, false).
		Contains("iphone", "a16", "oled", "battery", "dram", "camera").
		Contains("galaxy", "oled", "battery", "dram").
		Contains("macbook", "a16", "battery", "dram").
		Supplies("tsmc", "a16").
		Supplies("samsung", "oled", "dram").
		Supplies("catl", "battery").
		Supplies("lg", "battery").
		Supplies("skhynix", "dram").
		Supplies("sony", "camera").
		Supplies("qualcomm", "modem").
		Origin("a16", "Taiwan").
		Origin("oled", "South Korea").
		Origin("battery", "China").
		Origin("dram", "South Korea", "China", "Taiwan").
		Origin("camera", "Japan").
		Origin("modem", "United States").
		Graph()
}
