package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/metrics"
	"github.com/Benny93/prophet-go/internal/storage"
)

// testGlobals returns quiet globals over a fresh database path with
// captured output.
func testGlobals(t *testing.T) (*Globals, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &Globals{
		DB:      filepath.Join(t.TempDir(), "badger"),
		Quiet:   true,
		Stdout:  &out,
		Stderr:  &bytes.Buffer{},
		metrics: metrics.NewRegistry(),
	}, &out
}

// seedGraph stores g in the database at globals.DB.
func seedGraph(t *testing.T, g *Globals, sg *graph.SupplyGraph) {
	t.Helper()
	require.NoError(t, os.MkdirAll(g.DB, 0o755))
	store := storage.NewBadgerBackend()
	require.NoError(t, store.Initialize(g.DB, false))
	require.NoError(t, store.SaveGraph(t.Context(), sg, "testdata"))
	require.NoError(t, store.Close())
}

func decodeOutput(t *testing.T, out *bytes.Buffer, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(out.Bytes(), v), out.String())
	out.Reset()
}

func TestExecute(t *testing.T) {
	t.Parallel()

	t.Run("NoCommand", func(t *testing.T) {
		err := NewCLI().Execute(nil)
		assert.ErrorIs(t, err, errNoCommand)
		assert.EqualError(t, err, "no command specified")
	})

	t.Run("UnknownCommand", func(t *testing.T) {
		err := NewCLI().Execute([]string{"frobnicate"})
		assert.Error(t, err)
	})

	t.Run("MissingRequiredFlag", func(t *testing.T) {
		err := NewCLI().Execute([]string{"predict", "tariff", "--country", "China"})
		assert.Error(t, err)
	})

	t.Run("InvalidEnum", func(t *testing.T) {
		err := NewCLI().Execute([]string{"predict", "disruption", "--supplier", "tsmc", "--level", "total"})
		assert.Error(t, err)
	})
}

func TestNoGraph(t *testing.T) {
	t.Parallel()

	g, _ := testGlobals(t)
	err := (&ResilienceCmd{}).Run(g)
	assert.ErrorIs(t, err, errNoGraph)
	assert.Contains(t, err.Error(), "run 'prophet ingest' first")

	// An empty database exists but holds no graph.
	store := storage.NewBadgerBackend()
	require.NoError(t, os.MkdirAll(g.DB, 0o755))
	require.NoError(t, store.Initialize(g.DB, false))
	require.NoError(t, store.Close())

	err = (&StatusCmd{}).Run(g)
	assert.ErrorIs(t, err, errNoGraph)
	err = (&PredictTariffCmd{Country: "China", Increase: 10}).Run(g)
	assert.ErrorIs(t, err, errNoGraph)
}

func TestWriteJSON_OutputFile(t *testing.T) {
	t.Parallel()

	g, out := testGlobals(t)
	g.Output = filepath.Join(t.TempDir(), "reports", "out.json")
	require.NoError(t, g.writeJSON(map[string]int{"a": 1}))

	assert.Empty(t, out.String())
	data, err := os.ReadFile(g.Output)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(data))
}

func TestSummary(t *testing.T) {
	t.Parallel()

	var errOut bytes.Buffer
	g := &Globals{Stderr: &errOut}
	g.summary(0, "hello %d", 42)
	assert.Contains(t, errOut.String(), "hello 42")

	errOut.Reset()
	g.Quiet = true
	g.summary(0, "hidden")
	assert.Empty(t, errOut.String())
}
