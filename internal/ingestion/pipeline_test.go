package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/storage"
)

func TestRunPipeline(t *testing.T) {
	t.Parallel()

	dir := writeDataDir(t, map[string]string{
		"electronics_companies.json": companiesJSON,
		"smartphones.json":           smartphonesJSON,
	})

	t.Run("PersistsAndReports", func(t *testing.T) {
		store := storage.NewMemoryBackend()
		require.NoError(t, store.Initialize("", false))
		defer store.Close()

		var phases []string
		g, result, err := RunPipeline(t.Context(), dir, store, func(phase string, p float64) {
			if p == 1.0 {
				phases = append(phases, phase)
			}
		})
		require.NoError(t, err)

		assert.Equal(t, []string{PhaseWalk, PhaseParse, PhaseBuild, PhasePersist}, phases)
		assert.Equal(t, 2, result.Files)
		assert.Equal(t, g.NodeCount(), result.Nodes)
		assert.Equal(t, g.RelationshipCount(), result.Relationships)
		assert.Equal(t, 3, result.Stats["companys"])
		assert.Equal(t, 2, result.Stats["products"])
		assert.GreaterOrEqual(t, result.DurationSecs, 0.0)

		stored, err := store.LoadGraph(t.Context())
		require.NoError(t, err)
		assert.Equal(t, g.NodeCount(), stored.NodeCount())

		meta, err := store.Meta(t.Context())
		require.NoError(t, err)
		assert.Equal(t, dir, meta.Source)
	})

	t.Run("WithoutStore", func(t *testing.T) {
		var phases []string
		_, _, err := RunPipeline(t.Context(), dir, nil, func(phase string, p float64) {
			if p == 0.0 {
				phases = append(phases, phase)
			}
		})
		require.NoError(t, err)
		assert.NotContains(t, phases, PhasePersist)
	})

	t.Run("Load", func(t *testing.T) {
		g, err := Load(t.Context(), dir)
		require.NoError(t, err)
		assert.True(t, g.HasRelationship("tsmc", graph.RelSupplies, "a17"))
	})

	t.Run("EmptyDir", func(t *testing.T) {
		_, _, err := RunPipeline(t.Context(), t.TempDir(), nil, nil)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, _, err := RunPipeline(ctx, dir, nil, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ClosedStore", func(t *testing.T) {
		store := storage.NewMemoryBackend()
		require.NoError(t, store.Close())
		_, _, err := RunPipeline(t.Context(), dir, store, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrClosed)
		assert.Contains(t, err.Error(), "saving graph")
	})
}
