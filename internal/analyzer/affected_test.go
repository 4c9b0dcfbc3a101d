package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/graph/graphtest"
	"github.com/Benny93/prophet-go/internal/impact"
)

func TestFindAffectedProducts(t *testing.T) {
	t.Parallel()

	g := graphtest.Sample()
	comps := []*impact.AffectedComponent{
		NewAffectedComponent(g.Node("battery")),
		NewAffectedComponent(g.Node("a16")),
	}

	got := FindAffectedProducts(g, comps)
	require.Len(t, got, 3)

	assert.Equal(t, "iphone", got[0].ProductID)
	assert.Equal(t, 3, got[0].ImpactScore)
	assert.Equal(t, 2, got[0].AffectedComponentsCount)
	assert.Equal(t, 1, got[0].CriticalComponentsCount)
	assert.Equal(t, "Apple", got[0].Manufacturer)
	assert.Equal(t, "apple", got[0].ManufacturerID)
	assert.Equal(t, []impact.ProductComponent{
		{ComponentID: "battery", ComponentName: "Lithium Battery"},
		{ComponentID: "a16", ComponentName: "A16 Processor", Critical: true},
	}, got[0].AffectedComponents)

	assert.Equal(t, "macbook", got[1].ProductID)
	assert.Equal(t, 3, got[1].ImpactScore)
	assert.Equal(t, "galaxy", got[2].ProductID)
	assert.Equal(t, 1, got[2].ImpactScore)
	assert.Equal(t, "Samsung", got[2].Manufacturer)
}

func TestFindAffectedProducts_UnusedAndEmpty(t *testing.T) {
	t.Parallel()

	g := graphtest.Sample()
	assert.Empty(t, FindAffectedProducts(g, nil))
	assert.Empty(t, FindAffectedProducts(g, []*impact.AffectedComponent{NewAffectedComponent(g.Node("modem"))}))
}

func TestFindAffectedProducts_NoManufacturer(t *testing.T) {
	t.Parallel()

	g := graphtest.New().
		Product("p", "Orphan", "", 2020, 10).
		Component("c", "Part", "misc", false, false).
		Contains("p", "c").
		Graph()

	got := FindAffectedProducts(g, []*impact.AffectedComponent{NewAffectedComponent(g.Node("c"))})
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Manufacturer)
	assert.Empty(t, got[0].ManufacturerID)
}

func TestInUse(t *testing.T) {
	t.Parallel()

	g := graphtest.Sample()
	assert.True(t, InUse(g, "a16"))
	assert.False(t, InUse(g, "modem"))
	assert.False(t, InUse(g, "missing"))

	// Supplier and origin edges alone do not put a component in use.
	c := g.Clone()
	for _, pid := range ProductIDs(c, "a16") {
		require.True(t, c.RemoveRelationship(pid, graph.RelContains, "a16"))
	}
	assert.NotEmpty(t, SupplierIDs(c, "a16"))
	assert.False(t, InUse(c, "a16"))
	assert.True(t, InUse(g, "a16"))
}
