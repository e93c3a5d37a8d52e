// Package store is an in-memory storage engine. Objects live in a directory
// ordered by path; raw data and variable-length strings live in one byte
// arena managed by an allocator.
//
// Store is safe for concurrent use. A sequence of calls that must appear
// atomic still has to be serialized by the caller.
package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/btree"

	"github.com/robert-malhotra/go-h5pp/h5err"
	"github.com/robert-malhotra/go-h5pp/internal/alloc"
	"github.com/robert-malhotra/go-h5pp/internal/engine"
	"github.com/robert-malhotra/go-h5pp/internal/heap"
	"github.com/robert-malhotra/go-h5pp/internal/layout"
	"github.com/robert-malhotra/go-h5pp/internal/logger"
	"github.com/robert-malhotra/go-h5pp/internal/space"
)

// node is one directory entry, a group or a dataset.
type node struct {
	path  string
	attrs map[string]*cell
	order []string // Attribute creation order
	data  *cell    // nil for groups
	spec  engine.DatasetSpec
}

func (n *node) Less(than btree.Item) bool {
	return n.path < than.(*node).path
}

func (n *node) isDataset() bool {
	return n.data != nil
}

// Store implements engine.Engine.
type Store struct {
	mu    sync.Mutex
	log   *logger.Logger
	arena *arena
	heap  *heap.Heap
	dir   *btree.BTree
	open  int
}

var _ engine.Engine = (*Store)(nil)

// New creates an empty store holding only the root group.
func New(log *logger.Logger) *Store {
	log = log.ForPackage("store")
	a := newArena(log)
	s := &Store{
		log:   log,
		arena: a,
		heap:  heap.New(a),
		dir:   btree.New(8),
	}
	s.dir.ReplaceOrInsert(newGroup("/"))
	return s
}

func newGroup(path string) *node {
	return &node{path: path, attrs: make(map[string]*cell)}
}

func (s *Store) lookup(path string) *node {
	item := s.dir.Get(&node{path: path})
	if item == nil {
		return nil
	}
	return item.(*node)
}

func (s *Store) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(CleanPath(path)) != nil
}

func (s *Store) IsDataset(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lookup(CleanPath(path))
	return n != nil && n.isDataset()
}

// CreateDataset creates a dataset and any missing groups above it.
func (s *Store) CreateDataset(path string, spec engine.DatasetSpec) (engine.Dataset, error) {
	path = CleanPath(path)
	if path == "/" {
		return nil, h5err.WithPath(h5err.New(h5err.AlreadyExists, "the root group cannot be a dataset"), path)
	}
	if spec.Type == nil {
		return nil, h5err.WithPath(h5err.New(h5err.InvalidConfig, "dataset needs an element type"), path)
	}
	sp, err := space.NewSimple(spec.Dims, spec.MaxDims)
	if err != nil {
		return nil, h5err.WithPath(err, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookup(path) != nil {
		return nil, h5err.WithPath(h5err.New(h5err.AlreadyExists, "an object already exists at %s", path), path)
	}
	var missing []string
	for _, p := range parents(path) {
		switch n := s.lookup(p); {
		case n == nil:
			missing = append(missing, p)
		case n.isDataset():
			return nil, h5err.WithPath(h5err.New(h5err.InvalidConfig,
				"cannot create %s below dataset %s", path, p), path)
		}
	}

	st, err := layout.New(s.arena, layout.Params{
		Class:     spec.Layout,
		Dims:      spec.Dims,
		ElemSize:  int(spec.Type.Size),
		ChunkDims: spec.ChunkDims,
		Filters:   spec.Filters,
	})
	if err != nil {
		return nil, h5err.WithPath(fmt.Errorf("creating %s storage: %w", spec.Layout, err), path)
	}

	for _, p := range missing {
		s.dir.ReplaceOrInsert(newGroup(p))
		s.log.Debugf("created group %s", p)
	}
	n := newGroup(path)
	n.data = &cell{typ: spec.Type.Clone(), sp: sp, st: st}
	n.spec = spec
	s.dir.ReplaceOrInsert(n)
	s.log.WithField("path", path).Debugf("created %s dataset %s of %s", spec.Layout, sp, spec.Type)
	return s.openDataset(n), nil
}

func (s *Store) OpenDataset(path string) (engine.Dataset, error) {
	path = CleanPath(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lookup(path)
	if n == nil {
		return nil, h5err.WithPath(h5err.New(h5err.NotFound, "no dataset at %s", path), path)
	}
	if !n.isDataset() {
		return nil, h5err.WithPath(h5err.New(h5err.NotFound, "%s is a group, not a dataset", path), path)
	}
	return s.openDataset(n), nil
}

func (s *Store) OpenObject(path string) (engine.Object, error) {
	path = CleanPath(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.lookup(path)
	if n == nil {
		return nil, h5err.WithPath(h5err.New(h5err.NotFound, "no object at %s", path), path)
	}
	if n.isDataset() {
		return s.openDataset(n), nil
	}
	s.open++
	return &object{s: s, n: n}, nil
}

func (s *Store) openDataset(n *node) *dataset {
	s.open++
	return &dataset{object: object{s: s, n: n}}
}

// Walk visits root and every object below it in path order. The directory
// is snapshotted first, so fn may call back into the store.
func (s *Store) Walk(root string, fn engine.WalkFunc) error {
	root = CleanPath(root)
	prefix := root + "/"
	if root == "/" {
		prefix = "/"
	}

	type entry struct {
		path    string
		dataset bool
	}
	var entries []entry
	s.mu.Lock()
	if s.lookup(root) == nil {
		s.mu.Unlock()
		return h5err.WithPath(h5err.New(h5err.NotFound, "no object at %s", root), root)
	}
	s.dir.AscendGreaterOrEqual(&node{path: root}, func(item btree.Item) bool {
		n := item.(*node)
		if !strings.HasPrefix(n.path, root) {
			return false
		}
		if n.path == root || strings.HasPrefix(n.path, prefix) {
			entries = append(entries, entry{n.path, n.isDataset()})
		}
		return true
	})
	s.mu.Unlock()

	for _, e := range entries {
		if err := fn(e.path, e.dataset); err != nil {
			return err
		}
	}
	return nil
}

// OpenHandles returns the number of handles and string buffers not yet
// closed or released.
func (s *Store) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// ArenaStats returns the allocator statistics of the arena.
func (s *Store) ArenaStats() alloc.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arena.a.Stats()
}

// HeapCollections returns the number of global heap collections in use.
func (s *Store) HeapCollections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heap.Collections()
}

// Validate checks that no two arena blocks overlap.
func (s *Store) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arena.a.Validate()
}
