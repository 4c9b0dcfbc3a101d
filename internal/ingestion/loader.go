package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Benny93/prophet-go/internal/graph"
)

// ErrNoData is returned when a data directory holds no companies or
// products.
var ErrNoData = errors.New("no supply-chain data found")

const (
	companiesKey     = "electronics_companies"
	productKeyPrefix = "product_components_"
)

type companyRecord struct {
	CompanyID        string   `json:"company_id"`
	Name             string   `json:"name"`
	HQCountry        string   `json:"hq_country"`
	HQCity           string   `json:"hq_city"`
	FoundedYear      int      `json:"founded_year"`
	MarketCapUSD     float64  `json:"market_cap_usd"`
	AnnualRevenueUSD float64  `json:"annual_revenue_usd"`
	EmployeeCount    int      `json:"employee_count"`
	PublicCompany    bool     `json:"public_company"`
	Ticker           string   `json:"ticker"`
	KeyMarkets       []string `json:"key_markets"`
}

type componentRecord struct {
	ComponentID      string `json:"component_id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	Critical         bool   `json:"critical"`
	TariffVulnerable bool   `json:"tariff_vulnerable"`
	Supplier         string `json:"supplier"`
	CountryOfOrigin  string `json:"country_of_origin"`
}

type productRecord struct {
	ProductID                string            `json:"product_id"`
	ProductName              string            `json:"product_name"`
	Manufacturer             string            `json:"manufacturer"`
	Category                 string            `json:"category"`
	RetailPriceUSD           float64           `json:"retail_price_usd"`
	ReleaseYear              int               `json:"release_year"`
	MarginPercentage         *float64          `json:"margin_percentage"`
	TariffVulnerabilityScore *float64          `json:"tariff_vulnerability_score"`
	KeyComponents            []componentRecord `json:"key_components"`
}

// productSet is one product_components_<type> list.
type productSet struct {
	productType string
	source      string
	records     []productRecord
}

// Dataset is the decoded content of a data directory.
type Dataset struct {
	companies []companyRecord
	products  []productSet
}

// Companies returns the number of decoded company records.
func (d *Dataset) Companies() int { return len(d.companies) }

// Products returns the number of decoded product records.
func (d *Dataset) Products() int {
	n := 0
	for _, set := range d.products {
		n += len(set.records)
	}
	return n
}

// ParseFiles decodes data files. Files may hold an electronics_companies
// list, any number of product_components_<type> lists, or both; other keys
// are ignored.
func ParseFiles(files []DataFile) (*Dataset, error) {
	ds := &Dataset{}
	for _, f := range files {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(f.Content, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.RelPath, err)
		}

		if raw, ok := doc[companiesKey]; ok {
			var companies []companyRecord
			if err := json.Unmarshal(raw, &companies); err != nil {
				return nil, fmt.Errorf("parsing %s in %s: %w", companiesKey, f.RelPath, err)
			}
			ds.companies = append(ds.companies, companies...)
		}

		keys := make([]string, 0, len(doc))
		for k := range doc {
			if strings.HasPrefix(k, productKeyPrefix) {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			var products []productRecord
			if err := json.Unmarshal(doc[k], &products); err != nil {
				return nil, fmt.Errorf("parsing %s in %s: %w", k, f.RelPath, err)
			}
			ds.products = append(ds.products, productSet{
				productType: strings.TrimPrefix(k, productKeyPrefix),
				source:      f.RelPath,
				records:     products,
			})
		}
	}

	if len(ds.companies) == 0 && ds.Products() == 0 {
		return nil, ErrNoData
	}
	return ds, nil
}

// BuildGraph turns a dataset into a supply graph. Companies load first so
// manufacturer and supplier references resolve regardless of file order.
// A component keeps the attributes of its first occurrence.
func BuildGraph(ds *Dataset, logger *slog.Logger) *graph.SupplyGraph {
	if logger == nil {
		logger = slog.Default()
	}
	g := graph.NewSupplyGraph()

	for _, c := range ds.companies {
		if c.CompanyID == "" {
			logger.Warn("skipping company without id", "name", c.Name)
			continue
		}
		g.AddNode(&graph.Node{
			ID:   c.CompanyID,
			Kind: graph.KindCompany,
			Name: c.Name,
			Company: &graph.CompanyAttrs{
				HQCountry:        c.HQCountry,
				HQCity:           c.HQCity,
				FoundedYear:      c.FoundedYear,
				MarketCapUSD:     c.MarketCapUSD,
				AnnualRevenueUSD: c.AnnualRevenueUSD,
				EmployeeCount:    c.EmployeeCount,
				PublicCompany:    c.PublicCompany,
				Ticker:           c.Ticker,
				KeyMarkets:       c.KeyMarkets,
			},
		})
		for _, market := range c.KeyMarkets {
			id := graph.RegionID(market)
			if !g.HasNode(id) {
				g.AddNode(&graph.Node{ID: id, Kind: graph.KindRegion, Name: market})
			}
			g.AddRelationship(graph.NewRelationship(c.CompanyID, graph.RelHasMarket, id))
		}
	}
	logger.Debug("companies loaded", "count", len(ds.companies))

	for _, set := range ds.products {
		for _, p := range set.records {
			addProduct(g, p, set.productType, logger)
		}
		logger.Debug("products loaded", "type", set.productType, "source", set.source, "count", len(set.records))
	}
	return g
}

func addProduct(g *graph.SupplyGraph, p productRecord, productType string, logger *slog.Logger) {
	if p.ProductID == "" {
		logger.Warn("skipping product without id", "name", p.ProductName, "type", productType)
		return
	}

	g.AddNode(&graph.Node{
		ID:   p.ProductID,
		Kind: graph.KindProduct,
		Name: p.ProductName,
		Product: &graph.ProductAttrs{
			Category:                 p.Category,
			ProductType:              productType,
			Manufacturer:             p.Manufacturer,
			RetailPriceUSD:           p.RetailPriceUSD,
			ReleaseYear:              p.ReleaseYear,
			MarginPercentage:         p.MarginPercentage,
			TariffVulnerabilityScore: p.TariffVulnerabilityScore,
		},
	})
	if p.Manufacturer != "" && g.HasNode(p.Manufacturer) {
		g.AddRelationship(graph.NewRelationship(p.Manufacturer, graph.RelManufactures, p.ProductID))
	}

	for _, c := range p.KeyComponents {
		if c.ComponentID == "" {
			logger.Warn("skipping component without id", "product", p.ProductID, "name", c.Name)
			continue
		}
		if !g.HasNode(c.ComponentID) {
			g.AddNode(&graph.Node{
				ID:   c.ComponentID,
				Kind: graph.KindComponent,
				Name: c.Name,
				Component: &graph.ComponentAttrs{
					Critical:         c.Critical,
					TariffVulnerable: c.TariffVulnerable,
					Category:         c.Category,
				},
			})
		}
		g.AddRelationship(graph.NewRelationship(p.ProductID, graph.RelContains, c.ComponentID))

		if c.Supplier != "" && g.HasNode(c.Supplier) {
			g.AddRelationship(graph.NewRelationship(c.Supplier, graph.RelSupplies, c.ComponentID))
		}

		if c.CountryOfOrigin == "" {
			continue
		}
		id := graph.CountryID(c.CountryOfOrigin)
		if !g.HasNode(id) {
			g.AddNode(&graph.Node{ID: id, Kind: graph.KindCountry, Name: c.CountryOfOrigin})
		}
		g.AddRelationship(graph.NewRelationship(c.ComponentID, graph.RelOriginatesFrom, id))
	}
}
