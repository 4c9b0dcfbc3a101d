// Package graph provides the supply-chain graph data model for Prophet.
//
// It defines the node kinds (companies, products, components, suppliers,
// countries, regions) and the directed relationships between them
// (manufactures, contains, supplies, originates from, ...).
package graph

import "strings"

// NodeKind represents the type of a graph node.
type NodeKind string

const (
	KindCompany   NodeKind = "company"
	KindProduct   NodeKind = "product"
	KindComponent NodeKind = "component"
	KindSupplier  NodeKind = "supplier"
	KindCountry   NodeKind = "country"
	KindRegion    NodeKind = "region"
)

// Kinds lists every node kind.
var Kinds = []NodeKind{KindCompany, KindProduct, KindComponent, KindSupplier, KindCountry, KindRegion}

// RelType represents the type of relationship between graph nodes.
// The direction of every relationship carries meaning: SUPPLIES always
// points from supplier to component, CONTAINS from product to component.
type RelType string

const (
	RelManufactures   RelType = "MANUFACTURES"    // company -> product
	RelContains       RelType = "CONTAINS"        // product -> component
	RelSupplies       RelType = "SUPPLIES"        // supplier -> component
	RelOriginatesFrom RelType = "ORIGINATES_FROM" // component -> country
	RelHasMarket      RelType = "HAS_MARKET"      // company -> region
	RelLocatedIn      RelType = "LOCATED_IN"      // company -> country
)

// DefaultReleaseYear is assumed for products without a release year.
const DefaultReleaseYear = 2015

// Node represents a node in the supply-chain graph.
//
// Exactly one of the attribute sections is set for companies, products and
// components. Suppliers, countries and regions carry a name only.
type Node struct {
	// ID is the stable, unique identifier for the node.
	ID string `json:"id"`

	// Kind is the type of the node.
	Kind NodeKind `json:"kind"`

	// Name is the display name of the entity.
	Name string `json:"name"`

	// Company holds company attributes (Kind == KindCompany).
	Company *CompanyAttrs `json:"company,omitempty"`

	// Product holds product attributes (Kind == KindProduct).
	Product *ProductAttrs `json:"product,omitempty"`

	// Component holds component attributes (Kind == KindComponent).
	Component *ComponentAttrs `json:"component,omitempty"`
}

// CompanyAttrs are the attributes of a company node.
type CompanyAttrs struct {
	HQCountry        string   `json:"hq_country,omitempty"`
	HQCity           string   `json:"hq_city,omitempty"`
	FoundedYear      int      `json:"founded_year,omitempty"`
	MarketCapUSD     float64  `json:"market_cap_usd,omitempty"`
	AnnualRevenueUSD float64  `json:"annual_revenue_usd,omitempty"`
	EmployeeCount    int      `json:"employee_count,omitempty"`
	PublicCompany    bool     `json:"public_company,omitempty"`
	Ticker           string   `json:"ticker,omitempty"`
	KeyMarkets       []string `json:"key_markets,omitempty"`
}

// ProductAttrs are the attributes of a product node.
type ProductAttrs struct {
	Category       string  `json:"category,omitempty"`
	ProductType    string  `json:"product_type,omitempty"`
	Manufacturer   string  `json:"manufacturer,omitempty"`
	RetailPriceUSD float64 `json:"retail_price_usd,omitempty"`

	// ReleaseYear is zero when unknown; see EffectiveReleaseYear.
	ReleaseYear int `json:"release_year,omitempty"`

	// MarginPercentage is nil when the margin is not known.
	MarginPercentage *float64 `json:"margin_percentage,omitempty"`

	TariffVulnerabilityScore *float64 `json:"tariff_vulnerability_score,omitempty"`
}

// EffectiveReleaseYear returns the release year, or DefaultReleaseYear if unset.
func (p *ProductAttrs) EffectiveReleaseYear() int {
	if p == nil || p.ReleaseYear == 0 {
		return DefaultReleaseYear
	}
	return p.ReleaseYear
}

// EstimatedMargin returns the known margin, or 20% of the retail price.
func (p *ProductAttrs) EstimatedMargin() float64 {
	if p == nil {
		return 0
	}
	if p.MarginPercentage != nil {
		return *p.MarginPercentage
	}
	return p.RetailPriceUSD * 0.2
}

// ComponentAttrs are the attributes of a component node.
type ComponentAttrs struct {
	Critical         bool   `json:"critical"`
	TariffVulnerable bool   `json:"tariff_vulnerable"`
	Category         string `json:"category,omitempty"`
}

// IsCritical reports whether the node is a component flagged critical.
func (n *Node) IsCritical() bool {
	return n != nil && n.Component != nil && n.Component.Critical
}

// IsTariffVulnerable reports whether the node is a component flagged
// tariff-vulnerable at ingestion time.
func (n *Node) IsTariffVulnerable() bool {
	return n != nil && n.Component != nil && n.Component.TariffVulnerable
}

// Category returns the component or product category, or "".
func (n *Node) Category() string {
	if n == nil {
		return ""
	}
	switch {
	case n.Component != nil:
		return n.Component.Category
	case n.Product != nil:
		return n.Product.Category
	}
	return ""
}

// DisplayName returns the node name, or "Unknown" for nil or unnamed nodes.
func (n *Node) DisplayName() string {
	if n == nil || n.Name == "" {
		return "Unknown"
	}
	return n.Name
}

// clone returns a deep copy of the node.
func (n *Node) clone() *Node {
	c := *n
	if n.Company != nil {
		attrs := *n.Company
		attrs.KeyMarkets = append([]string(nil), n.Company.KeyMarkets...)
		c.Company = &attrs
	}
	if n.Product != nil {
		attrs := *n.Product
		if n.Product.MarginPercentage != nil {
			v := *n.Product.MarginPercentage
			attrs.MarginPercentage = &v
		}
		if n.Product.TariffVulnerabilityScore != nil {
			v := *n.Product.TariffVulnerabilityScore
			attrs.TariffVulnerabilityScore = &v
		}
		c.Product = &attrs
	}
	if n.Component != nil {
		attrs := *n.Component
		c.Component = &attrs
	}
	return &c
}

// Relationship represents a directed, typed edge in the supply-chain graph.
type Relationship struct {
	// ID is the unique identifier for the relationship.
	// Format: {source}|{type}|{target}
	ID string `json:"id"`

	// Type is the type of relationship.
	Type RelType `json:"type"`

	// Source is the ID of the source node.
	Source string `json:"source"`

	// Target is the ID of the target node.
	Target string `json:"target"`
}

// RelationshipID creates the deterministic relationship ID for an edge.
func RelationshipID(source string, relType RelType, target string) string {
	return source + "|" + string(relType) + "|" + target
}

// NewRelationship builds a relationship with its deterministic ID.
func NewRelationship(source string, relType RelType, target string) *Relationship {
	return &Relationship{
		ID:     RelationshipID(source, relType, target),
		Type:   relType,
		Source: source,
		Target: target,
	}
}

// Slug lowercases a name and replaces spaces with underscores.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// CountryID returns the node ID used for a country name.
func CountryID(country string) string {
	return "country_" + Slug(country)
}

// RegionID returns the node ID used for a market region name.
func RegionID(region string) string {
	return "region_" + Slug(region)
}
