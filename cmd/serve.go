package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/ingestion"
	"github.com/Benny93/prophet-go/internal/insight"
	"github.com/Benny93/prophet-go/mcp"
)

// ServeCmd starts the MCP server with optional watch mode and metrics.
type ServeCmd struct {
	MetricsAddr string `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
	Watch       bool   `short:"w" help:"Rebuild the graph when the data directory changes"`
	Data        string `env:"PROPHET_DATA" default:"data" type:"path" help:"Data directory watched with --watch"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	ctx, cancel := g.context()
	defer cancel()
	logger := ctxlog.FromContext(ctx)

	store, err := g.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sg, err := loadGraph(ctx, store)
	if err != nil {
		return err
	}
	reg := g.registry()
	reg.SetGraphSize(sg.KindCounts(), sg.RelationshipCount())

	mcp.Version = Version
	server := mcp.NewServer(sg,
		insight.WithStore(store),
		insight.WithMetrics(reg),
		insight.WithLogger(logger),
	)

	if c.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              c.MetricsAddr,
			Handler:           metricsMux(g),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", c.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", c.MetricsAddr)
	}

	if c.Watch {
		go func() {
			err := ingestion.Watch(ctx, c.Data, store, ingestion.WatchOptions{
				OnRebuild: func(_ *ingestion.PipelineResult, err error) {
					if err != nil {
						return
					}
					rebuilt, err := store.LoadGraph(ctx)
					if err != nil {
						logger.Error("reloading graph failed", "error", err)
						return
					}
					reg.SetGraphSize(rebuilt.KindCounts(), rebuilt.RelationshipCount())
					server.SetGraph(rebuilt)
					logger.Info("graph reloaded", "nodes", rebuilt.NodeCount())
				},
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watch failed", "error", err)
			}
		}()
		logger.Info("file watching enabled", "dir", c.Data)
	}

	// Note: stdout carries JSON-RPC only; logs go to stderr.
	logger.Info("starting MCP server", "nodes", sg.NodeCount())
	err = server.Run(ctx, os.Stdin, g.stdout())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func metricsMux(g *Globals) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", g.registry().Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}
