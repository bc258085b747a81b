package vector

import "context"

// Driver is the vector store boundary.
type Driver interface {
	// ListCollections returns the names of all collections in the store.
	ListCollections(ctx context.Context) ([]string, error)

	// CreateCollection creates a collection with the given schema. Callers
	// check for existence first; see Manager.EnsureCollection.
	CreateCollection(ctx context.Context, spec CollectionSpec) error

	// Upsert writes points into collection. It is all-or-nothing: nil is
	// returned only when the store confirms the whole batch.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Get reads points back by id. Missing ids are skipped.
	Get(ctx context.Context, collection string, ids []uint64) ([]Point, error)

	// Count returns the number of points stored in collection.
	Count(ctx context.Context, collection string) (uint64, error)

	// Close releases any resources held by the driver.
	Close() error
}

// Describer is implemented by drivers that can report the schema of an
// existing collection.
type Describer interface {
	DescribeCollection(ctx context.Context, name string) (CollectionSpec, error)
}
