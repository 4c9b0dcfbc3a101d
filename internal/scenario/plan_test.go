package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/prophet-go/internal/graph/graphtest"
)

const taiwanPlan = `
name: taiwan-stress
combine: true
scenarios:
  - tariff:
      country: Taiwan
      increase_percentage: 25
  - disruption:
      supplier_id: tsmc
  - geopolitical:
      country: Taiwan
      event_type: conflict
      severity: high
`

func TestParsePlan(t *testing.T) {
	t.Parallel()

	p, err := ParsePlan([]byte(taiwanPlan))
	require.NoError(t, err)
	assert.Equal(t, "taiwan-stress", p.Name)
	assert.True(t, p.Combine)
	require.Len(t, p.Scenarios, 3)
	assert.Equal(t, LevelComplete, p.Scenarios[1].Disruption.Level, "defaults applied")
	assert.Equal(t, 6, p.Scenarios[2].Geopolitical.DurationMonths)
}

func TestParsePlanErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"Empty", "name: nothing\n"},
		{"TwoScenariosInOneStep", "scenarios:\n  - tariff: {country: China}\n    shortage: {component_type: memory}\n"},
		{"NoScenarioInStep", "scenarios:\n  - {}\n"},
		{"InvalidRequest", "scenarios:\n  - shortage: {component_type: memory, shortage_level: mild}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePlan([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	t.Run("UnknownField", func(t *testing.T) {
		t.Parallel()
		_, err := ParsePlan([]byte("scenarios:\n  - tarif: {country: China}\n"))
		assert.Error(t, err)
	})
}

func TestRunPlan(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(taiwanPlan), 0o644))

	p, err := LoadPlan(path)
	require.NoError(t, err)

	m := newModeler(t, graphtest.Sample())
	out, err := m.RunPlan(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, out.Results, 3)
	assert.Equal(t, TypeTariff, out.Results[0].ScenarioType)
	assert.Equal(t, TypeDisruption, out.Results[1].ScenarioType)
	assert.Equal(t, TypeGeopolitical, out.Results[2].ScenarioType)

	require.NotNil(t, out.Compound)
	assert.Equal(t, 3, out.Compound.Compound.ScenariosCombined)
	assert.Equal(t, []string{"a16", "dram"}, componentIDs(out.Compound.AffectedComponents))

	_, err = LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
