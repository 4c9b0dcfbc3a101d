package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/graph/graphtest"
	"github.com/Benny93/prophet-go/internal/impact"
	"github.com/Benny93/prophet-go/internal/scenario"
)

var savedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// backends returns a fresh instance of every Backend implementation.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	mem := NewMemoryBackend()
	mem.now = func() time.Time { return savedAt }
	require.NoError(t, mem.Initialize("", false))

	bdg := NewBadgerBackend()
	bdg.now = func() time.Time { return savedAt }
	require.NoError(t, bdg.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	t.Cleanup(func() { _ = bdg.Close() })

	return map[string]Backend{"memory": mem, "badger": bdg}
}

func nodeIDs(g *graph.SupplyGraph) []string {
	ids := make([]string, 0, g.NodeCount())
	for n := range g.IterNodes() {
		ids = append(ids, n.ID)
	}
	return ids
}

func relIDs(g *graph.SupplyGraph) []string {
	ids := make([]string, 0, g.RelationshipCount())
	for r := range g.IterRelationships() {
		ids = append(ids, r.ID)
	}
	return ids
}

func sampleResult(id string, at time.Time, change float64) *scenario.Result {
	return &scenario.Result{
		ID:                      id,
		ScenarioType:            scenario.TypeTariff,
		GeneratedAt:             at,
		AffectedComponentsCount: 1,
		AffectedComponents: []*impact.AffectedComponent{
			{ComponentID: "c", ComponentName: "Main Processor", Critical: true},
		},
		AffectedProducts: []*impact.AffectedProduct{},
		ResilienceImpact: scenario.ResilienceImpact{Before: 40, After: 40 + change, Change: change},
		Tariff:           &scenario.TariffDetail{Country: "China", IncreasePercentage: 25},
	}
}

func TestBackend_GraphRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.LoadGraph(ctx)
			require.ErrorIs(t, err, ErrNotFound)
			_, err = b.Meta(ctx)
			require.ErrorIs(t, err, ErrNotFound)

			g := graphtest.Sample()
			require.NoError(t, b.SaveGraph(ctx, g, "data/"))

			loaded, err := b.LoadGraph(ctx)
			require.NoError(t, err)
			assert.Equal(t, nodeIDs(g), nodeIDs(loaded))
			assert.Equal(t, relIDs(g), relIDs(loaded))
			assert.Equal(t, g.Node("iphone").Product, loaded.Node("iphone").Product)
			assert.True(t, loaded.Node("a16").IsCritical())
			assert.Equal(t, "memory", loaded.Node("dram").Category())
			assert.Equal(t, relIDs(g.Incoming("dram", graph.RelSupplies)), relIDs(loaded.Incoming("dram", graph.RelSupplies)))

			meta, err := b.Meta(ctx)
			require.NoError(t, err)
			assert.Equal(t, "data/", meta.Source)
			assert.True(t, savedAt.Equal(meta.SavedAt))
			assert.Equal(t, g.NodeCount(), meta.Nodes)
			assert.Equal(t, g.RelationshipCount(), meta.Relationships)
			assert.Equal(t, 3, meta.Stats["products"])
		})
	}
}

func TestBackend_SaveGraphReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.SaveGraph(ctx, graphtest.Sample(), "first"))
			require.NoError(t, b.SaveGraph(ctx, graphtest.Minimal(), "second"))

			loaded, err := b.LoadGraph(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"maker", "s", "p", "c", graph.CountryID("China")}, nodeIDs(loaded))
			assert.False(t, loaded.HasNode("iphone"))

			meta, err := b.Meta(ctx)
			require.NoError(t, err)
			assert.Equal(t, "second", meta.Source)
		})
	}
}

func TestBackend_LoadedGraphIsIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g := graphtest.Minimal()
			require.NoError(t, b.SaveGraph(ctx, g, ""))
			g.RemoveRelationship("s", graph.RelSupplies, "c")

			loaded, err := b.LoadGraph(ctx)
			require.NoError(t, err)
			assert.True(t, loaded.HasRelationship("s", graph.RelSupplies, "c"))
		})
	}
}

func TestBackend_Results(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.GetResult(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			list, err := b.ListResults(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)

			older := sampleResult("r-1", savedAt, -5)
			newer := sampleResult("r-2", savedAt.Add(time.Hour), -12.5)
			require.NoError(t, b.SaveResult(ctx, older))
			require.NoError(t, b.SaveResult(ctx, newer))

			got, err := b.GetResult(ctx, "r-1")
			require.NoError(t, err)
			assert.Equal(t, scenario.TypeTariff, got.ScenarioType)
			assert.True(t, savedAt.Equal(got.GeneratedAt))
			require.NotNil(t, got.Tariff)
			assert.Equal(t, "China", got.Tariff.Country)
			require.Len(t, got.AffectedComponents, 1)
			assert.Equal(t, "Main Processor", got.AffectedComponents[0].ComponentName)

			list, err = b.ListResults(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "r-2", list[0].ID)
			assert.InDelta(t, -12.5, list[0].ResilienceChange, 1e-9)
			assert.Equal(t, "r-1", list[1].ID)
			assert.Equal(t, 1, list[1].AffectedComponentsCount)
		})
	}
}

func TestMemoryBackend_Closed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b := NewMemoryBackend()
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.SaveGraph(ctx, graphtest.Minimal(), ""), ErrClosed)
	assert.ErrorIs(t, b.SaveResult(ctx, sampleResult("r", savedAt, 0)), ErrClosed)
	_, err := b.LoadGraph(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	require.NoError(t, b.Initialize("", false))
	assert.NoError(t, b.SaveGraph(ctx, graphtest.Minimal(), ""))
}
