package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/Benny93/prophet-go/internal/ingestion"
	"github.com/Benny93/prophet-go/internal/storage"
)

// IngestCmd builds the supply graph from a data directory.
type IngestCmd struct {
	Data     string        `env:"PROPHET_DATA" default:"data" type:"path" help:"Data directory holding the JSON files"`
	Watch    bool          `short:"w" help:"Keep watching the data directory and rebuild on changes"`
	Debounce time.Duration `default:"2s" help:"Quiet period before a rebuild in watch mode"`
}

// Run executes the ingest command.
func (c *IngestCmd) Run(g *Globals) error {
	info, err := os.Stat(c.Data)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", c.Data, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.Data)
	}

	ctx, cancel := g.context()
	defer cancel()

	store, err := g.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var progress ingestion.ProgressCallback
	if !g.Quiet {
		progress = func(phase string, pct float64) {
			fmt.Fprintf(g.stderr(), "\r\033[K%s (%.0f%%)", phase, pct*100)
		}
	}

	sg, result, err := ingestion.RunPipeline(ctx, c.Data, store, progress)
	if progress != nil {
		fmt.Fprintln(g.stderr())
	}
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}
	g.registry().SetGraphSize(sg.KindCounts(), sg.RelationshipCount())

	g.summary(color.FgGreen, "✓ Ingested %d files: %d nodes, %d relationships in %.2fs",
		result.Files, result.Nodes, result.Relationships, result.DurationSecs)
	if err := g.writeJSON(result); err != nil {
		return err
	}

	if !c.Watch {
		return nil
	}

	g.summary(color.FgCyan, "Watching %s for changes (Ctrl+C to stop)", c.Data)
	err = ingestion.Watch(ctx, c.Data, store, ingestion.WatchOptions{
		Debounce: c.Debounce,
		OnRebuild: func(r *ingestion.PipelineResult, err error) {
			if err != nil {
				g.summary(color.FgRed, "✗ Rebuild failed: %v", err)
				return
			}
			g.summary(color.FgGreen, "✓ Rebuilt: %d nodes, %d relationships", r.Nodes, r.Relationships)
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

// StatusCmd shows stored graph status.
type StatusCmd struct{}

// Status is the output of the status command.
type Status struct {
	Version string `json:"version"`
	DB      string `json:"db"`
	storage.Meta
	Results int `json:"results"`
}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	ctx, cancel := g.context()
	defer cancel()

	store, err := g.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	meta, err := store.Meta(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return errNoGraph
	}
	if err != nil {
		return fmt.Errorf("reading graph metadata: %w", err)
	}
	results, err := store.ListResults(ctx)
	if err != nil {
		return fmt.Errorf("listing results: %w", err)
	}

	g.summary(color.FgGreen, "Graph from %s saved %s: %d nodes, %d relationships, %d stored results",
		meta.Source, meta.SavedAt.Format(time.RFC3339), meta.Nodes, meta.Relationships, len(results))
	return g.writeJSON(Status{Version: Version, DB: g.DB, Meta: meta, Results: len(results)})
}

// CleanCmd deletes the graph database.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	if _, err := os.Stat(g.DB); os.IsNotExist(err) {
		return fmt.Errorf("no database found at %s. Nothing to clean", g.DB)
	}

	if !c.Force {
		fmt.Fprintf(g.stderr(), "Delete database at %s? [y/N] ", g.DB)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(g.stderr(), "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(g.DB); err != nil {
		return fmt.Errorf("deleting database: %w", err)
	}

	g.summary(color.FgGreen, "Deleted %s", g.DB)
	return nil
}
