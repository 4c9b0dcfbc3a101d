// Package storage persists the supply graph and scenario results.
//
// It defines the Backend interface that all storage implementations must
// satisfy, along with the metadata types shared across backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/scenario"
)

var (
	// ErrNotFound is returned when a graph or result does not exist.
	ErrNotFound = errors.New("not found")

	// ErrReadOnly is returned by writes on a backend opened read-only.
	ErrReadOnly = errors.New("storage is read-only")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage is closed")
)

// Meta describes the stored graph.
type Meta struct {
	// Source is the data directory the graph was ingested from.
	Source string `json:"source,omitempty"`

	// SavedAt is when the graph was last written.
	SavedAt time.Time `json:"saved_at"`

	// Nodes and Relationships are the stored counts.
	Nodes         int `json:"nodes"`
	Relationships int `json:"relationships"`

	// Stats is the per-kind breakdown from SupplyGraph.Stats.
	Stats map[string]int `json:"stats,omitempty"`
}

// ResultSummary is the listing entry of a stored scenario result.
type ResultSummary struct {
	ID                      string        `json:"id"`
	ScenarioType            scenario.Type `json:"scenario_type"`
	GeneratedAt             time.Time     `json:"generated_at"`
	AffectedComponentsCount int           `json:"affected_components_count"`
	AffectedProductsCount   int           `json:"affected_products_count"`
	ResilienceChange        float64       `json:"resilience_change"`
}

func summarize(res *scenario.Result) ResultSummary {
	return ResultSummary{
		ID:                      res.ID,
		ScenarioType:            res.ScenarioType,
		GeneratedAt:             res.GeneratedAt,
		AffectedComponentsCount: res.AffectedComponentsCount,
		AffectedProductsCount:   res.AffectedProductsCount,
		ResilienceChange:        res.ResilienceImpact.Change,
	}
}

func newMeta(g *graph.SupplyGraph, source string, now time.Time) Meta {
	return Meta{
		Source:        source,
		SavedAt:       now.UTC(),
		Nodes:         g.NodeCount(),
		Relationships: g.RelationshipCount(),
		Stats:         g.Stats(),
	}
}

// Backend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// SaveGraph replaces the stored graph. Node and relationship order is
	// preserved across a LoadGraph.
	SaveGraph(ctx context.Context, g *graph.SupplyGraph, source string) error

	// LoadGraph rebuilds the stored graph, or returns ErrNotFound.
	LoadGraph(ctx context.Context) (*graph.SupplyGraph, error)

	// Meta returns the stored graph metadata, or ErrNotFound.
	Meta(ctx context.Context) (Meta, error)

	// SaveResult stores a scenario result under its ID.
	SaveResult(ctx context.Context, res *scenario.Result) error

	// GetResult returns a stored result, or ErrNotFound.
	GetResult(ctx context.Context, id string) (*scenario.Result, error)

	// ListResults returns summaries of all stored results, newest first.
	ListResults(ctx context.Context) ([]ResultSummary, error)
}
