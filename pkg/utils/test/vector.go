package testutils

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/papercomputeco/emunet/pkg/vector"
)

// MockVectorDriver is an in-memory vector.Driver and vector.Describer.
type MockVectorDriver struct {
	// ListErr, CreateErr and UpsertErr are returned by the matching calls when set.
	ListErr   error
	CreateErr error
	UpsertErr error

	mu          sync.Mutex
	collections map[string]vector.CollectionSpec
	points      map[string]map[uint64]vector.Point
	batches     [][]vector.Point
	createCalls int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		collections: make(map[string]vector.CollectionSpec),
		points:      make(map[string]map[uint64]vector.Point),
	}
}

func (m *MockVectorDriver) ListCollections(_ context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockVectorDriver) CreateCollection(_ context.Context, spec vector.CollectionSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.collections[spec.Name]; ok {
		return fmt.Errorf("collection %s already exists", spec.Name)
	}

	m.collections[spec.Name] = spec
	m.points[spec.Name] = make(map[uint64]vector.Point)
	return nil
}

func (m *MockVectorDriver) DescribeCollection(_ context.Context, name string) (vector.CollectionSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	spec, ok := m.collections[name]
	if !ok {
		return vector.CollectionSpec{}, fmt.Errorf("%w: collection %s", vector.ErrNotFound, name)
	}
	return spec, nil
}

func (m *MockVectorDriver) Upsert(_ context.Context, collection string, points []vector.Point) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.points[collection]
	if !ok {
		return fmt.Errorf("%w: collection %s", vector.ErrNotFound, collection)
	}

	for _, p := range points {
		stored[p.ID] = p
	}
	m.batches = append(m.batches, slices.Clone(points))
	return nil
}

func (m *MockVectorDriver) Get(_ context.Context, collection string, ids []uint64) ([]vector.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.points[collection]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", vector.ErrNotFound, collection)
	}

	out := make([]vector.Point, 0, len(ids))
	for _, id := range ids {
		if p, ok := stored[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Count(_ context.Context, collection string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.points[collection]
	if !ok {
		return 0, fmt.Errorf("%w: collection %s", vector.ErrNotFound, collection)
	}
	return uint64(len(stored)), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// CreateCalls returns how many times CreateCollection was called.
func (m *MockVectorDriver) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// Batches returns every successful upsert batch in write order.
func (m *MockVectorDriver) Batches() [][]vector.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.batches)
}

// IDs returns the ids of every stored point in collection, ascending.
func (m *MockVectorDriver) IDs(collection string) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]uint64, 0, len(m.points[collection]))
	for id := range m.points[collection] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
