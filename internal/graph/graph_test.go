package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func component(id string) *Node {
	return &Node{ID: id, Kind: KindComponent, Name: id, Component: &ComponentAttrs{}}
}

func TestNewSupplyGraph(t *testing.T) {
	t.Parallel()

	g := NewSupplyGraph()

	assert.NotNil(t, g)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.RelationshipCount())
	assert.Nil(t, g.NodesByKind(KindProduct))
}

func TestSupplyGraph_AddNode(t *testing.T) {
	t.Parallel()

	t.Run("AddMultiple", func(t *testing.T) {
		t.Parallel()
		g := NewSupplyGraph()

		g.AddNode(&Node{ID: "p1", Kind: KindProduct, Name: "Phone"})
		g.AddNode(component("c1"))
		g.AddNode(component("c2"))

		assert.Equal(t, 3, g.NodeCount())
		assert.Equal(t, 2, g.CountByKind(KindComponent))
		assert.Equal(t, 1, g.CountByKind(KindProduct))
		assert.True(t, g.HasNode("c1"))
		assert.False(t, g.HasNode("missing"))
	})

	t.Run("ReplaceKeepsPosition", func(t *testing.T) {
		t.Parallel()
		g := NewSupplyGraph()

		g.AddNode(component("c1"))
		g.AddNode(component("c2"))
		g.AddNode(&Node{ID: "c1", Kind: KindComponent, Name: "renamed", Component: &ComponentAttrs{}})

		var nodes []*Node
		for n := range g.IterNodes() {
			nodes = append(nodes, n)
		}
		require.Len(t, nodes, 2)
		assert.Equal(t, "c1", nodes[0].ID)
		assert.Equal(t, "renamed", nodes[0].Name)
	})

	t.Run("ReplaceWithDifferentKind", func(t *testing.T) {
		t.Parallel()
		g := NewSupplyGraph()

		g.AddNode(&Node{ID: "acme", Kind: KindSupplier, Name: "Acme"})
		g.AddNode(&Node{ID: "acme", Kind: KindCompany, Name: "Acme", Company: &CompanyAttrs{}})

		assert.Equal(t, 0, g.CountByKind(KindSupplier))
		assert.Equal(t, 1, g.CountByKind(KindCompany))
	})
}

func TestSupplyGraph_InsertionOrder(t *testing.T) {
	t.Parallel()

	g := NewSupplyGraph()
	for _, id := range []string{"c3", "c1", "c2"} {
		g.AddNode(component(id))
	}
	g.AddNode(&Node{ID: "p", Kind: KindProduct})
	g.AddRelationship(NewRelationship("p", RelContains, "c2"))
	g.AddRelationship(NewRelationship("p", RelContains, "c3"))
	g.AddRelationship(NewRelationship("p", RelContains, "c1"))

	var ids []string
	for _, n := range g.NodesByKind(KindComponent) {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"c3", "c1", "c2"}, ids)

	var targets []string
	for _, r := range g.Outgoing("p", RelContains) {
		targets = append(targets, r.Target)
	}
	assert.Equal(t, []string{"c2", "c3", "c1"}, targets)
}

func TestSupplyGraph_Relationships(t *testing.T) {
	t.Parallel()

	g := NewSupplyGraph()
	g.AddNode(&Node{ID: "s", Kind: KindCompany})
	g.AddNode(component("c"))
	g.AddNode(&Node{ID: "country_china", Kind: KindCountry, Name: "China"})

	g.AddRelationship(NewRelationship("s", RelSupplies, "c"))
	g.AddRelationship(NewRelationship("c", RelOriginatesFrom, "country_china"))
	// Re-adding the same edge does not duplicate it
	g.AddRelationship(NewRelationship("s", RelSupplies, "c"))

	assert.Equal(t, 2, g.RelationshipCount())
	assert.Len(t, g.Incoming("c"), 1)
	assert.Len(t, g.Incoming("c", RelSupplies), 1)
	assert.Empty(t, g.Incoming("c", RelContains))
	assert.Len(t, g.Outgoing("c", RelOriginatesFrom), 1)
	assert.True(t, g.HasIncoming("c", RelSupplies))
	assert.False(t, g.HasIncoming("c", RelContains))
	assert.True(t, g.HasRelationship("s", RelSupplies, "c"))

	t.Run("Remove", func(t *testing.T) {
		assert.True(t, g.RemoveRelationship("s", RelSupplies, "c"))
		assert.False(t, g.RemoveRelationship("s", RelSupplies, "c"))
		assert.False(t, g.HasRelationship("s", RelSupplies, "c"))
		assert.Empty(t, g.Outgoing("s"))
		assert.Empty(t, g.Incoming("c", RelSupplies))
		assert.Equal(t, 1, g.RelationshipCount())
	})
}

func TestSupplyGraph_Clone(t *testing.T) {
	t.Parallel()

	g := NewSupplyGraph()
	g.AddNode(&Node{ID: "s", Kind: KindCompany, Name: "Supplier", Company: &CompanyAttrs{KeyMarkets: []string{"Europe"}}})
	g.AddNode(&Node{ID: "c", Kind: KindComponent, Name: "Chip", Component: &ComponentAttrs{Critical: true}})
	g.AddRelationship(NewRelationship("s", RelSupplies, "c"))

	c := g.Clone()
	require.Equal(t, g.NodeCount(), c.NodeCount())
	require.Equal(t, g.RelationshipCount(), c.RelationshipCount())

	// Mutating the clone leaves the original untouched
	c.RemoveRelationship("s", RelSupplies, "c")
	c.Node("c").Component.Critical = false
	c.Node("s").Company.KeyMarkets[0] = "Asia"

	assert.True(t, g.HasRelationship("s", RelSupplies, "c"))
	assert.True(t, g.Node("c").Component.Critical)
	assert.Equal(t, "Europe", g.Node("s").Company.KeyMarkets[0])
	assert.Len(t, g.Incoming("c", RelSupplies), 1)
}

func TestSupplyGraph_Iterators(t *testing.T) {
	t.Parallel()

	g := NewSupplyGraph()
	g.AddNode(component("a"))
	g.AddNode(component("b"))
	g.AddRelationship(NewRelationship("a", RelSupplies, "b"))

	var nodes []string
	for n := range g.IterNodes() {
		nodes = append(nodes, n.ID)
	}
	assert.Equal(t, []string{"a", "b"}, nodes)

	count := 0
	for range g.IterRelationships() {
		count++
	}
	assert.Equal(t, 1, count)

	stats := g.Stats()
	assert.Equal(t, 2, stats["nodes"])
	assert.Equal(t, 1, stats["relationships"])
	assert.Equal(t, 2, stats["components"])
}

func TestSupplyGraph_ConcurrentReads(t *testing.T) {
	t.Parallel()

	g := NewSupplyGraph()
	g.AddNode(&Node{ID: "p", Kind: KindProduct})
	for _, id := range []string{"c1", "c2", "c3"} {
		g.AddNode(component(id))
		g.AddRelationship(NewRelationship("p", RelContains, id))
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := g.Clone()
			c.RemoveRelationship("p", RelContains, "c1")
			assert.Len(t, g.Outgoing("p", RelContains), 3)
		}()
	}
	wg.Wait()
}

func TestSupplyGraph_KindCounts(t *testing.T) {
	t.Parallel()

	g := NewSupplyGraph()
	g.AddNode(component("c1"))
	g.AddNode(component("c2"))
	g.AddNode(&Node{ID: "country_china", Kind: KindCountry, Name: "China"})

	counts := g.KindCounts()
	assert.Len(t, counts, len(Kinds))
	assert.Equal(t, 2, counts["component"])
	assert.Equal(t, 1, counts["country"])
	assert.Equal(t, 0, counts["company"])
}
