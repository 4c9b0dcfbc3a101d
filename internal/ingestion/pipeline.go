package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/storage"
)

// Pipeline phase names reported to the ProgressCallback.
const (
	PhaseWalk    = "Walking files"
	PhaseParse   = "Parsing data"
	PhaseBuild   = "Building graph"
	PhasePersist = "Persisting graph"
)

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Files         int            `json:"files"`
	Nodes         int            `json:"nodes"`
	Relationships int            `json:"relationships"`
	Stats         map[string]int `json:"stats"`
	DurationSecs  float64        `json:"duration_secs"`
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// RunPipeline ingests dataDir and, when store is not nil, replaces the
// stored graph with the result.
func RunPipeline(
	ctx context.Context,
	dataDir string,
	store storage.Backend,
	progress ProgressCallback,
) (*graph.SupplyGraph, *PipelineResult, error) {
	start := time.Now()
	logger := ctxlog.FromContext(ctx)
	report := func(phase string, p float64) {
		if progress != nil {
			progress(phase, p)
		}
	}

	// Phase 1: File walking
	report(PhaseWalk, 0.0)
	patterns, err := LoadIgnore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", IgnoreFile, err)
	}
	files, err := WalkData(dataDir, patterns)
	if err != nil {
		return nil, nil, fmt.Errorf("walking data directory: %w", err)
	}
	report(PhaseWalk, 1.0)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Phase 2: Decoding
	report(PhaseParse, 0.0)
	ds, err := ParseFiles(files)
	if err != nil {
		return nil, nil, err
	}
	report(PhaseParse, 1.0)

	// Phase 3: Graph construction
	report(PhaseBuild, 0.0)
	g := BuildGraph(ds, logger)
	report(PhaseBuild, 1.0)

	// Phase 4: Persistence
	if store != nil {
		report(PhasePersist, 0.0)
		if err := store.SaveGraph(ctx, g, dataDir); err != nil {
			return nil, nil, fmt.Errorf("saving graph: %w", err)
		}
		report(PhasePersist, 1.0)
	}

	result := &PipelineResult{
		Files:         len(files),
		Nodes:         g.NodeCount(),
		Relationships: g.RelationshipCount(),
		Stats:         g.Stats(),
		DurationSecs:  time.Since(start).Seconds(),
	}
	logger.Info("ingestion complete",
		"dir", dataDir,
		"files", result.Files,
		"companies", ds.Companies(),
		"products", ds.Products(),
		"nodes", result.Nodes,
		"relationships", result.Relationships,
	)
	return g, result, nil
}

// Load builds the supply graph for dataDir without persisting it.
func Load(ctx context.Context, dataDir string) (*graph.SupplyGraph, error) {
	g, _, err := RunPipeline(ctx, dataDir, nil, nil)
	return g, err
}
