// Package graph provides the in-memory supply-chain graph for Prophet.
//
// It provides a lightweight, map-backed graph that stores Node and
// Relationship instances with O(1) lookups by ID. Secondary indexes on
// node kind and adjacency keep queries linear in the result set. Every
// index preserves insertion order, so repeated traversals over the same
// graph visit nodes and edges in the same order.
package graph

import (
	"slices"
	"sync"
)

// Reader is the read-only view of a supply-chain graph consumed by the
// analysis engine.
type Reader interface {
	Node(nodeID string) *Node
	HasNode(nodeID string) bool
	NodesByKind(kind NodeKind) []*Node
	Outgoing(nodeID string, relType ...RelType) []*Relationship
	Incoming(nodeID string, relType ...RelType) []*Relationship
	HasIncoming(nodeID string, relType RelType) bool
	NodeCount() int
}

// SupplyGraph is an in-memory directed graph of supply-chain entities
// and their relationships.
//
// Nodes are keyed by their ID string; relationships are keyed likewise.
// Scenarios mutate clones only, so relationships are removed one at a
// time and nodes are never removed.
type SupplyGraph struct {
	mu            sync.RWMutex
	nodes         map[string]*Node
	relationships map[string]*Relationship

	// Insertion-ordered indexes, kept in sync by add/remove helpers.
	nodeOrder []string
	relOrder  []string
	byKind    map[NodeKind][]string
	outgoing  map[string][]*Relationship
	incoming  map[string][]*Relationship
}

var _ Reader = (*SupplyGraph)(nil)

// NewSupplyGraph creates a new empty supply-chain graph.
func NewSupplyGraph() *SupplyGraph {
	return &SupplyGraph{
		nodes:         make(map[string]*Node),
		relationships: make(map[string]*Relationship),
		byKind:        make(map[NodeKind][]string),
		outgoing:      make(map[string][]*Relationship),
		incoming:      make(map[string][]*Relationship),
	}
}

// NodeCount returns the number of nodes without list materialization.
func (g *SupplyGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// RelationshipCount returns the number of relationships without list materialization.
func (g *SupplyGraph) RelationshipCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.relationships)
}

// CountByKind returns the count of nodes with the given kind.
func (g *SupplyGraph) CountByKind(kind NodeKind) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byKind[kind])
}

// IterNodes returns a channel that yields all nodes in insertion order.
func (g *SupplyGraph) IterNodes() <-chan *Node {
	g.mu.RLock()
	ch := make(chan *Node, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		ch <- g.nodes[id]
	}
	close(ch)
	g.mu.RUnlock()
	return ch
}

// IterRelationships returns a channel that yields all relationships in insertion order.
func (g *SupplyGraph) IterRelationships() <-chan *Relationship {
	g.mu.RLock()
	ch := make(chan *Relationship, len(g.relOrder))
	for _, id := range g.relOrder {
		ch <- g.relationships[id]
	}
	close(ch)
	g.mu.RUnlock()
	return ch
}

// AddNode adds a node to the graph, replacing any existing node with the same ID.
// A replaced node keeps its original position in the iteration order.
func (g *SupplyGraph) AddNode(node *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	old, exists := g.nodes[node.ID]
	g.nodes[node.ID] = node

	if !exists {
		g.nodeOrder = append(g.nodeOrder, node.ID)
		g.byKind[node.Kind] = append(g.byKind[node.Kind], node.ID)
		return
	}

	// Move between kind indexes if the kind changed
	if old.Kind != node.Kind {
		g.byKind[old.Kind] = removeID(g.byKind[old.Kind], node.ID)
		g.byKind[node.Kind] = append(g.byKind[node.Kind], node.ID)
	}
}

// Node returns the node with the given ID, or nil if it does not exist.
func (g *SupplyGraph) Node(nodeID string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[nodeID]
}

// HasNode reports whether a node with the given ID exists.
func (g *SupplyGraph) HasNode(nodeID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[nodeID]
	return ok
}

// AddRelationship adds a relationship to the graph, replacing any existing
// relationship with the same ID in place.
func (g *SupplyGraph) AddRelationship(rel *Relationship) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.relationships[rel.ID]; ok {
		g.relationships[rel.ID] = rel
		replaceRel(g.outgoing[rel.Source], rel)
		replaceRel(g.incoming[rel.Target], rel)
		return
	}

	g.relationships[rel.ID] = rel
	g.relOrder = append(g.relOrder, rel.ID)
	g.outgoing[rel.Source] = append(g.outgoing[rel.Source], rel)
	g.incoming[rel.Target] = append(g.incoming[rel.Target], rel)
}

// RemoveRelationship removes the edge of the given type between source and
// target. Returns true if the edge existed.
func (g *SupplyGraph) RemoveRelationship(source string, relType RelType, target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := RelationshipID(source, relType, target)
	if _, ok := g.relationships[id]; !ok {
		return false
	}

	delete(g.relationships, id)
	g.relOrder = removeID(g.relOrder, id)
	g.outgoing[source] = removeRel(g.outgoing[source], id)
	g.incoming[target] = removeRel(g.incoming[target], id)
	return true
}

// HasRelationship reports whether an edge of the given type exists between source and target.
func (g *SupplyGraph) HasRelationship(source string, relType RelType, target string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.relationships[RelationshipID(source, relType, target)]
	return ok
}

// NodesByKind returns all nodes with the given kind in insertion order.
func (g *SupplyGraph) NodesByKind(kind NodeKind) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.byKind[kind]
	if len(ids) == 0 {
		return nil
	}

	result := make([]*Node, 0, len(ids))
	for _, id := range ids {
		result = append(result, g.nodes[id])
	}
	return result
}

// Outgoing returns relationships originating from the given node ID.
// If relType is provided, only relationships of that type are returned.
func (g *SupplyGraph) Outgoing(nodeID string, relType ...RelType) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterRels(g.outgoing[nodeID], relType)
}

// Incoming returns relationships targeting the given node ID.
// If relType is provided, only relationships of that type are returned.
func (g *SupplyGraph) Incoming(nodeID string, relType ...RelType) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return filterRels(g.incoming[nodeID], relType)
}

// HasIncoming returns true if the node has any incoming relationship of the given type.
func (g *SupplyGraph) HasIncoming(nodeID string, relType RelType) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, rel := range g.incoming[nodeID] {
		if rel.Type == relType {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the graph. The copy preserves insertion
// order and shares no mutable state with the original.
func (g *SupplyGraph) Clone() *SupplyGraph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c := NewSupplyGraph()
	c.nodeOrder = make([]string, 0, len(g.nodeOrder))
	c.relOrder = make([]string, 0, len(g.relOrder))

	for _, id := range g.nodeOrder {
		n := g.nodes[id].clone()
		c.nodes[id] = n
		c.nodeOrder = append(c.nodeOrder, id)
		c.byKind[n.Kind] = append(c.byKind[n.Kind], id)
	}
	for _, id := range g.relOrder {
		r := *g.relationships[id]
		rel := &r
		c.relationships[id] = rel
		c.relOrder = append(c.relOrder, id)
		c.outgoing[rel.Source] = append(c.outgoing[rel.Source], rel)
		c.incoming[rel.Target] = append(c.incoming[rel.Target], rel)
	}
	return c
}

// Stats returns a summary of graph size.
func (g *SupplyGraph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := map[string]int{
		"nodes":         len(g.nodes),
		"relationships": len(g.relationships),
	}
	for kind, ids := range g.byKind {
		if len(ids) > 0 {
			stats[string(kind)+"s"] = len(ids)
		}
	}
	return stats
}

// KindCounts returns the number of nodes of every kind, zero counts
// included.
func (g *SupplyGraph) KindCounts() map[string]int {
	counts := make(map[string]int, len(Kinds))
	for _, kind := range Kinds {
		counts[string(kind)] = g.CountByKind(kind)
	}
	return counts
}

func filterRels(rels []*Relationship, relType []RelType) []*Relationship {
	if len(rels) == 0 {
		return nil
	}

	if len(relType) > 0 && relType[0] != "" {
		result := make([]*Relationship, 0)
		for _, rel := range rels {
			if rel.Type == relType[0] {
				result = append(result, rel)
			}
		}
		return result
	}

	return slices.Clone(rels)
}

func removeID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}

func removeRel(rels []*Relationship, id string) []*Relationship {
	return slices.DeleteFunc(rels, func(r *Relationship) bool { return r.ID == id })
}

func replaceRel(rels []*Relationship, rel *Relationship) {
	for i, r := range rels {
		if r.ID == rel.ID {
			rels[i] = rel
			return
		}
	}
}
