package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang/snappy"

	"github.com/Benny93/prophet-go/internal/graph"
	"github.com/Benny93/prophet-go/internal/scenario"
)

// Key prefixes for different data types. Node and relationship keys carry
// a zero-padded sequence number so prefix iteration replays insertion
// order.
const (
	prefixNode   = "n:"
	prefixRel    = "r:"
	prefixResult = "s:"
	keyMeta      = "m:meta"
)

// BadgerBackend is a BadgerDB-backed storage implementation. Values are
// snappy-compressed JSON.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	readOnly    bool
	mu          sync.RWMutex
	now         func() time.Time
}

var _ Backend = (*BadgerBackend)(nil)

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{now: time.Now}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.db = db
	b.readOnly = readOnly
	b.initialized = true
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

func (b *BadgerBackend) checkWrite() error {
	if b.db == nil {
		return ErrClosed
	}
	if b.readOnly {
		return ErrReadOnly
	}
	return nil
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

func decode(val []byte, v any) error {
	data, err := snappy.Decode(nil, val)
	if err != nil {
		return fmt.Errorf("decompressing value: %w", err)
	}
	return json.Unmarshal(data, v)
}

func seqKey(prefix string, seq int) []byte {
	return fmt.Appendf(nil, "%s%010d", prefix, seq)
}

// SaveGraph replaces the stored graph with g.
func (b *BadgerBackend) SaveGraph(ctx context.Context, g *graph.SupplyGraph, source string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkWrite(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.DropPrefix([]byte(prefixNode), []byte(prefixRel)); err != nil {
		return fmt.Errorf("clearing graph: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	i := 0
	for node := range g.IterNodes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := encode(node)
		if err != nil {
			return fmt.Errorf("marshaling node %s: %w", node.ID, err)
		}
		if err := wb.Set(seqKey(prefixNode, i), data); err != nil {
			return fmt.Errorf("setting node: %w", err)
		}
		i++
	}

	i = 0
	for rel := range g.IterRelationships() {
		data, err := encode(rel)
		if err != nil {
			return fmt.Errorf("marshaling relationship %s: %w", rel.ID, err)
		}
		if err := wb.Set(seqKey(prefixRel, i), data); err != nil {
			return fmt.Errorf("setting relationship: %w", err)
		}
		i++
	}

	meta, err := encode(newMeta(g, source, b.now()))
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	if err := wb.Set([]byte(keyMeta), meta); err != nil {
		return fmt.Errorf("setting meta: %w", err)
	}

	return wb.Flush()
}

// LoadGraph rebuilds the stored graph.
func (b *BadgerBackend) LoadGraph(ctx context.Context) (*graph.SupplyGraph, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrClosed
	}

	g := graph.NewSupplyGraph()
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(keyMeta)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := iterate(txn, prefixNode, func(val []byte) error {
			var node graph.Node
			if err := decode(val, &node); err != nil {
				return fmt.Errorf("decoding node: %w", err)
			}
			g.AddNode(&node)
			return ctx.Err()
		}); err != nil {
			return err
		}

		return iterate(txn, prefixRel, func(val []byte) error {
			var rel graph.Relationship
			if err := decode(val, &rel); err != nil {
				return fmt.Errorf("decoding relationship: %w", err)
			}
			g.AddRelationship(&rel)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func iterate(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// Meta returns the stored graph metadata.
func (b *BadgerBackend) Meta(ctx context.Context) (Meta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var meta Meta
	if b.db == nil {
		return meta, ErrClosed
	}
	err := b.db.View(func(txn *badger.Txn) error {
		return getValue(txn, []byte(keyMeta), &meta)
	})
	return meta, err
}

func getValue(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error { return decode(val, v) })
}

// SaveResult stores res under its ID.
func (b *BadgerBackend) SaveResult(ctx context.Context, res *scenario.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkWrite(); err != nil {
		return err
	}
	data, err := encode(res)
	if err != nil {
		return fmt.Errorf("marshaling result %s: %w", res.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixResult+res.ID), data)
	})
}

// GetResult returns the result stored under id.
func (b *BadgerBackend) GetResult(ctx context.Context, id string) (*scenario.Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrClosed
	}
	var res scenario.Result
	err := b.db.View(func(txn *badger.Txn) error {
		return getValue(txn, []byte(prefixResult+id), &res)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListResults returns summaries of all stored results, newest first.
func (b *BadgerBackend) ListResults(ctx context.Context) ([]ResultSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrClosed
	}
	out := []ResultSummary{}
	err := b.db.View(func(txn *badger.Txn) error {
		return iterate(txn, prefixResult, func(val []byte) error {
			var res scenario.Result
			if err := decode(val, &res); err != nil {
				return fmt.Errorf("decoding result: %w", err)
			}
			out = append(out, summarize(&res))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(list []ResultSummary) {
	slices.SortStableFunc(list, func(x, y ResultSummary) int {
		return y.GeneratedAt.Compare(x.GeneratedAt)
	})
}
