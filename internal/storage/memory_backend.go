package storage

import (
	"context"
	"sync"
	"time"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/scenario"
)

// MemoryBackend is an in-memory implementation of Backend for testing.
type MemoryBackend struct {
	mu      sync.RWMutex
	g       *graph.SupplyGraph
	meta    Meta
	results map[string]*scenario.Result
	order   []string
	closed  bool
	now     func() time.Time
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{results: make(map[string]*scenario.Result), now: time.Now}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SaveGraph implements Backend. The graph is cloned.
func (m *MemoryBackend) SaveGraph(ctx context.Context, g *graph.SupplyGraph, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.g = g.Clone()
	m.meta = newMeta(g, source, m.now())
	return nil
}

// LoadGraph implements Backend.
func (m *MemoryBackend) LoadGraph(ctx context.Context) (*graph.SupplyGraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.g == nil {
		return nil, ErrNotFound
	}
	return m.g.Clone(), nil
}

// Meta implements Backend.
func (m *MemoryBackend) Meta(ctx context.Context) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.g == nil {
		return Meta{}, ErrNotFound
	}
	return m.meta, nil
}

// SaveResult implements Backend.
func (m *MemoryBackend) SaveResult(ctx context.Context, res *scenario.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.results[res.ID]; !ok {
		m.order = append(m.order, res.ID)
	}
	m.results[res.ID] = res
	return nil
}

// GetResult implements Backend.
func (m *MemoryBackend) GetResult(ctx context.Context, id string) (*scenario.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}

// ListResults implements Backend.
func (m *MemoryBackend) ListResults(ctx context.Context) ([]ResultSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ResultSummary, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, summarize(m.results[id]))
	}
	sortNewestFirst(out)
	return out, nil
}
