// Package mcp provides the MCP (Model Context Protocol) server for Prophet.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/insight"
	"github.com/Benny93/prophet-go/internal/recommend"
	"github.com/Benny93/prophet-go/internal/scenario"
)

// Version is reported in serverInfo.
var Version = "dev"

// JSON-RPC error codes.
const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
)

// errInvalidArgs marks tool arguments that could not be decoded.
var errInvalidArgs = errors.New("invalid arguments")

// Server answers MCP requests against a supply graph.
type Server struct {
	mu     sync.RWMutex
	g      *graph.SupplyGraph
	engine *insight.Engine
	opts   []insight.EngineOption
	impl   *mcp.Implementation
}

// NewServer creates a new MCP server over g. opts configure the prediction
// engine, typically with a result store.
func NewServer(g *graph.SupplyGraph, opts ...insight.EngineOption) *Server {
	return &Server{
		g:      g,
		engine: insight.NewEngine(g, opts...),
		opts:   opts,
		impl: &mcp.Implementation{
			Name:    "prophet",
			Version: Version,
		},
	}
}

// SetGraph swaps the served graph, for example after a rebuild.
func (s *Server) SetGraph(g *graph.SupplyGraph) {
	e := insight.NewEngine(g, s.opts...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.g = g
	s.engine = e
}

func (s *Server) current() (*graph.SupplyGraph, *insight.Engine) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g, s.engine
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func durationSchema(def int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: fmt.Sprintf("Duration in months (default %d)", def),
	}
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        "prophet_resilience",
			Description: "Score supply-chain resilience (0-100) with its factors and raw metrics.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"company_id": {Type: "string", Description: "Restrict to one company's products"},
			}),
		},
		{
			Name:        "prophet_critical_components",
			Description: "List component usages whose criticality score meets the threshold.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"manufacturer_id": {Type: "string", Description: "Restrict to one manufacturer's products"},
				"threshold":       {Type: "number", Description: fmt.Sprintf("Minimum criticality score between 0 and 1 (default %g)", analyzer.DefaultThreshold)},
			}),
		},
		{
			Name:        "prophet_single_points",
			Description: "List in-use components with exactly one supplier or exactly one origin country.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
		},
		{
			Name:        "prophet_tariff_vulnerability",
			Description: "Assess tariff exposure of in-use components, optionally for one origin country.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"country": {Type: "string", Description: "Origin country"},
			}),
		},
		{
			Name:        "prophet_geographical",
			Description: "Geographical concentration of sourcing per country and region.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
		},
		{
			Name:        "prophet_predict_tariff",
			Description: "Simulate a tariff increase on components originating from a country.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"country":             {Type: "string", Description: "Country the tariff applies to"},
				"increase_percentage": {Type: "number", Description: "Tariff increase in percent"},
				"component_types": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Restrict to these component categories",
				},
			}, "country", "increase_percentage"),
		},
		{
			Name:        "prophet_predict_disruption",
			Description: "Simulate a supplier outage.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"supplier_id":      {Type: "string", Description: "Supplier ID"},
				"disruption_level": {Type: "string", Enum: []any{"complete", "partial"}, Description: "Default complete"},
				"duration_months":  durationSchema(3),
			}, "supplier_id"),
		},
		{
			Name:        "prophet_predict_geopolitical",
			Description: "Simulate a geopolitical event in a country.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"country": {Type: "string", Description: "Affected country"},
				"event_type": {
					Type: "string",
					Enum: []any{"trade_restriction", "conflict", "natural_disaster", "political_change"},
				},
				"severity":        {Type: "string", Enum: []any{"low", "medium", "high"}, Description: "Default medium"},
				"duration_months": durationSchema(6),
			}, "country", "event_type"),
		},
		{
			Name:        "prophet_predict_shortage",
			Description: "Simulate a shortage of one component category.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"component_type":  {Type: "string", Description: "Component category"},
				"shortage_level":  {Type: "string", Enum: []any{"severe", "moderate"}, Description: "Default severe"},
				"duration_months": durationSchema(6),
			}, "component_type"),
		},
		{
			Name:        "prophet_combine",
			Description: "Combine previously stored scenario results into one compound scenario.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"result_ids": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "IDs returned by earlier predictions",
				},
			}, "result_ids"),
		},
		{
			Name:        "prophet_alternatives",
			Description: "Current sourcing of a component and alternative components.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"component_id":     {Type: "string", Description: "Component ID"},
				"max_alternatives": {Type: "integer", Description: "Maximum alternatives (default 5)"},
			}, "component_id"),
		},
		{
			Name:        "prophet_recommendations",
			Description: "Resilience improvement recommendations, optionally ordered for a focus area.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"company_id": {Type: "string", Description: "Restrict to one company's products"},
				"focus": {
					Type: "string",
					Enum: []any{"cost", "speed", "resilience", "compliance"},
				},
			}),
		},
		{
			Name:        "prophet_comprehensive",
			Description: "Baseline, insights, recommendations and key scenarios in one report.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"company_id":        {Type: "string", Description: "Restrict to one company"},
				"include_scenarios": {Type: "boolean", Description: "Run disruption and tariff scenarios (default true)"},
			}),
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []*mcp.Resource {
	return []*mcp.Resource{
		{
			URI:         "prophet://overview",
			Name:        "Supply Chain Overview",
			Description: "Graph size and baseline resilience",
			MIMEType:    "text/plain",
		},
		{
			URI:         "prophet://schema",
			Name:        "Graph Schema",
			Description: "Node kinds and relationship types of the supply graph",
			MIMEType:    "text/plain",
		},
	}
}

// decodeArgs converts tool arguments into v.
func decodeArgs(args map[string]any, v any) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CallTool executes a tool with the given arguments and returns its JSON
// result.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	_, e := s.current()

	switch name {
	case "prophet_resilience":
		var in struct {
			CompanyID string `json:"company_id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		return toJSON(e.Analyzer().CalculateResilienceScore(in.CompanyID))

	case "prophet_critical_components":
		in := struct {
			ManufacturerID string  `json:"manufacturer_id"`
			Threshold      float64 `json:"threshold"`
		}{Threshold: analyzer.DefaultThreshold}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		return toJSON(e.Analyzer().FindCriticalComponents(in.ManufacturerID, in.Threshold))

	case "prophet_single_points":
		return toJSON(e.Analyzer().DetectSinglePointsOfFailure())

	case "prophet_tariff_vulnerability":
		var in struct {
			Country string `json:"country"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		return toJSON(e.Analyzer().AssessTariffVulnerability(in.Country))

	case "prophet_geographical":
		return toJSON(struct {
			Countries any `json:"countries"`
			Regions   any `json:"regions"`
		}{
			Countries: e.Analyzer().IdentifyGeographicalConcentration(),
			Regions:   e.Extractor().GeographicalInsights(),
		})

	case "prophet_predict_tariff":
		var req scenario.TariffRequest
		if err := decodeArgs(args, &req); err != nil {
			return "", err
		}
		return resultJSON(e.PredictTariff(ctx, req))

	case "prophet_predict_disruption":
		var req scenario.DisruptionRequest
		if err := decodeArgs(args, &req); err != nil {
			return "", err
		}
		return resultJSON(e.PredictDisruption(ctx, req))

	case "prophet_predict_geopolitical":
		var req scenario.GeopoliticalRequest
		if err := decodeArgs(args, &req); err != nil {
			return "", err
		}
		return resultJSON(e.PredictGeopolitical(ctx, req))

	case "prophet_predict_shortage":
		var req scenario.ShortageRequest
		if err := decodeArgs(args, &req); err != nil {
			return "", err
		}
		return resultJSON(e.PredictShortage(ctx, req))

	case "prophet_combine":
		var in struct {
			ResultIDs []string `json:"result_ids"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		if len(in.ResultIDs) == 0 {
			return "", fmt.Errorf("%w: result_ids must not be empty", errInvalidArgs)
		}
		return resultJSON(e.CombineStored(ctx, in.ResultIDs))

	case "prophet_alternatives":
		in := struct {
			ComponentID     string `json:"component_id"`
			MaxAlternatives int    `json:"max_alternatives"`
		}{MaxAlternatives: 5}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		if in.ComponentID == "" {
			return "", fmt.Errorf("%w: component_id is required", errInvalidArgs)
		}
		return toJSON(e.AlternativeSources(in.ComponentID, in.MaxAlternatives))

	case "prophet_recommendations":
		var in struct {
			CompanyID string `json:"company_id"`
			Focus     string `json:"focus"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		report := e.Recommendations(in.CompanyID)
		report.Recommendations = recommend.Prioritize(report.Recommendations, in.Focus)
		return toJSON(report)

	case "prophet_comprehensive":
		in := struct {
			CompanyID        string `json:"company_id"`
			IncludeScenarios bool   `json:"include_scenarios"`
		}{IncludeScenarios: true}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		report, err := e.Comprehensive(ctx, in.CompanyID, in.IncludeScenarios)
		if err != nil {
			return "", err
		}
		return toJSON(report)

	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

func resultJSON(res *scenario.Result, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return toJSON(res)
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "prophet://overview":
		g, e := s.current()
		return getOverview(g, e), nil
	case "prophet://schema":
		return getSchema(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves newline-delimited JSON-RPC over stdin/stdout until EOF or
// context cancellation.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		// Notifications carry no id and get no response.
		if _, ok := req["id"]; !ok {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "ping":
		return resultResponse(id, map[string]any{})
	case "tools/list":
		return resultResponse(id, map[string]any{"tools": s.ListTools()})
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return resultResponse(id, map[string]any{"resources": s.ListResources()})
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, codeMethodNotFound, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return resultResponse(id, map[string]any{
		"protocolVersion": "2024-11-05",
		"serverInfo":      s.impl,
		"capabilities": map[string]any{
			"tools": map[string]any{
				"listChanged": false,
			},
			"resources": map[string]any{
				"listChanged": false,
			},
		},
	})
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, codeInvalidParams, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	switch {
	case errors.Is(err, errInvalidArgs), errors.Is(err, scenario.ErrInvalidRequest):
		return errorResponse(id, codeInvalidParams, err.Error())
	case err != nil:
		return errorResponse(id, codeServerError, err.Error())
	}

	return resultResponse(id, map[string]any{
		"content": []map[string]any{
			{
				"type": "text",
				"text": result,
			},
		},
	})
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, codeInvalidParams, "Invalid params")
	}

	uri, _ := params["uri"].(string)
	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, codeServerError, err.Error())
	}

	return resultResponse(id, map[string]any{
		"contents": []map[string]any{
			{
				"uri":      uri,
				"mimeType": "text/plain",
				"text":     content,
			},
		},
	})
}

// Resource Handlers

func getOverview(g *graph.SupplyGraph, e *insight.Engine) string {
	var sb strings.Builder
	sb.WriteString("# Prophet Supply Chain Overview\n\n")
	sb.WriteString(fmt.Sprintf("**Nodes:** %d\n", g.NodeCount()))
	sb.WriteString(fmt.Sprintf("**Relationships:** %d\n", g.RelationshipCount()))

	sb.WriteString("\n## Nodes by Kind\n\n")
	counts := g.KindCounts()
	for _, kind := range graph.Kinds {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", kind, counts[string(kind)]))
	}

	res := e.Analyzer().CalculateResilienceScore("")
	sb.WriteString("\n## Baseline\n\n")
	sb.WriteString(fmt.Sprintf("**Resilience:** %.1f/100 (%s risk)\n", res.TotalResilienceScore, res.RiskLevel))
	sb.WriteString(fmt.Sprintf("**Weakest factor:** %s\n", res.Factors.Lowest().Name))
	return sb.String()
}

func getSchema() string {
	return `# Prophet Graph Schema

## Node Kinds

- company: manufacturers and suppliers (hq_country, key_markets, ...)
- product: finished goods (product_type, manufacturer, retail_price_usd, release_year)
- component: parts used by products (critical, tariff_vulnerable, category)
- supplier: suppliers without company data
- country: component origin countries (id country_<slug>)
- region: company market regions (id region_<slug>)

## Relationship Types

- MANUFACTURES: company -> product
- CONTAINS: product -> component
- SUPPLIES: supplier -> component
- ORIGINATES_FROM: component -> country
- HAS_MARKET: company -> region
- LOCATED_IN: company -> country

A component is in use when at least one product CONTAINS it.
`
}

// Helper functions

func resultResponse(id any, result any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
