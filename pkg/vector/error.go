package vector

import "errors"

var (
	// ErrNotFound is returned when a collection or point is not found in the vector store.
	ErrNotFound = errors.New("not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrSchemaMismatch is returned when an existing collection's schema
	// differs from the requested one.
	ErrSchemaMismatch = errors.New("collection schema mismatch")

	// ErrPartialWrite is returned when the store did not confirm a whole upsert batch.
	ErrPartialWrite = errors.New("upsert not fully applied")
)
