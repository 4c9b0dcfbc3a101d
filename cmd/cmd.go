// Package cmd provides CLI command implementations for Prophet.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/Benny93/prophet-go/internal/analyzer"
	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/insight"
	"github.com/Benny93/prophet-go/internal/metrics"
	"github.com/Benny93/prophet-go/internal/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	errNoGraph   = errors.New("no graph found — run 'prophet ingest' first")
	errNoCommand = errors.New("no command specified")
)

// Globals holds flags shared by every command.
type Globals struct {
	DB      string `env:"PROPHET_DB" default:".prophet/badger" type:"path" help:"Path to the graph database"`
	Output  string `short:"o" type:"path" help:"Write JSON output to a file instead of stdout"`
	Verbose bool   `short:"v" help:"Enable verbose output"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`

	metrics *metrics.Registry
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

func (g *Globals) registry() *metrics.Registry {
	if g.metrics == nil {
		g.metrics = metrics.DefaultRegistry()
	}
	return g.metrics
}

// logger builds the command logger. Text on stderr; --verbose enables
// debug output and --quiet limits it to warnings.
func (g *Globals) logger() *slog.Logger {
	level := slog.LevelInfo
	switch {
	case g.Verbose:
		level = slog.LevelDebug
	case g.Quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(g.stderr(), &slog.HandlerOptions{Level: level}))
}

// context returns a context carrying the logger that is cancelled on
// SIGINT or SIGTERM.
func (g *Globals) context() (context.Context, context.CancelFunc) {
	ctx := ctxlog.WithLogger(context.Background(), g.logger())
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// openStore opens the graph database. Read-only opens require an existing
// database.
func (g *Globals) openStore(readOnly bool) (*storage.BadgerBackend, error) {
	if readOnly {
		if _, err := os.Stat(g.DB); os.IsNotExist(err) {
			return nil, errNoGraph
		}
	} else if err := os.MkdirAll(g.DB, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(g.DB, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// loadGraph reads the stored graph, mapping a missing graph to errNoGraph.
func loadGraph(ctx context.Context, store storage.Backend) (*graph.SupplyGraph, error) {
	g, err := store.LoadGraph(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errNoGraph
	}
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	return g, nil
}

// session is an open store plus the engine over its graph.
type session struct {
	store  *storage.BadgerBackend
	engine *insight.Engine
}

func (s *session) Close() error {
	return s.store.Close()
}

// openSession loads the stored graph and builds an engine over it.
// Writable sessions persist scenario results.
func (g *Globals) openSession(ctx context.Context, writable bool) (*session, error) {
	store, err := g.openStore(!writable)
	if err != nil {
		return nil, err
	}
	sg, err := loadGraph(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reg := g.registry()
	reg.SetGraphSize(sg.KindCounts(), sg.RelationshipCount())
	opts := []insight.EngineOption{
		insight.WithLogger(ctxlog.FromContext(ctx)),
		insight.WithMetrics(reg),
	}
	if writable {
		opts = append(opts, insight.WithStore(store))
	}
	return &session{store: store, engine: insight.NewEngine(sg, opts...)}, nil
}

// writeJSON writes v as indented JSON to --output or stdout.
func (g *Globals) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	data = append(data, '\n')

	if g.Output == "" {
		_, err = g.stdout().Write(data)
		return err
	}
	if dir := filepath.Dir(g.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(g.Output, data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// summary prints a colored one-line summary to stderr unless --quiet.
func (g *Globals) summary(attr color.Attribute, format string, args ...any) {
	if g.Quiet {
		return
	}
	c := color.New(attr)
	_, _ = c.Fprintf(g.stderr(), format+"\n", args...)
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Ingest  IngestCmd  `cmd:"" help:"Build the supply graph from a data directory"`
	Status  StatusCmd  `cmd:"" help:"Show stored graph status"`
	Clean   CleanCmd   `cmd:"" help:"Delete the graph database"`
	Analyze AnalyzeCmd `cmd:"" help:"Analyze the current supply chain"`
	Predict PredictCmd `cmd:"" help:"Simulate scenarios and recommend improvements"`
	Report  ReportCmd  `cmd:"" help:"Generate combined reports"`
	Results ResultsCmd `cmd:"" help:"Inspect stored scenario results"`
	Serve   ServeCmd   `cmd:"" help:"Start MCP server (stdio transport)"`
	Setup   SetupCmd   `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	if len(args) == 0 {
		return errNoCommand
	}

	parser, err := kong.New(c,
		kong.Name("prophet"),
		kong.Description("Supply-chain analysis and scenario simulation"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Configuration(kong.JSON, "~/.prophet.json", ".prophet.json"),
		kong.Bind(&c.Globals),
		kong.Vars{
			"version":   Version,
			"threshold": strconv.FormatFloat(analyzer.DefaultThreshold, 'f', -1, 64),
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kongCtx.Run()
}
