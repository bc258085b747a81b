// Package chromem provides an embedded vector.Driver backed by chromem-go.
// It needs no external service and can optionally persist to a directory.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/papercomputeco/emunet/pkg/vector"
)

// Config holds configuration for the chromem driver.
type Config struct {
	// Path is the directory the database persists to. Empty keeps the
	// database in memory only.
	Path string

	// Compress gzips persisted documents.
	Compress bool
}

// Driver implements vector.Driver on chromem-go. chromem only supports
// cosine similarity and normalizes stored vectors, so Get returns unit
// length vectors.
type Driver struct {
	db     *chromem.DB
	logger *slog.Logger
}

// NewDriver opens a chromem database.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	var (
		db  *chromem.DB
		err error
	)

	if c.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(c.Path, c.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening chromem db at %s: %v", vector.ErrConnection, c.Path, err)
		}
	}

	logger.Debug("chromem vector driver initialized",
		"path", c.Path,
		"persistent", c.Path != "",
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

func (d *Driver) ListCollections(_ context.Context) ([]string, error) {
	cols := d.db.ListCollections()

	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (d *Driver) CreateCollection(_ context.Context, spec vector.CollectionSpec) error {
	if spec.Distance != vector.DistanceCosine {
		return fmt.Errorf("chromem only supports cosine distance, got %q", spec.Distance)
	}

	// chromem keeps collection metadata unexported, so the schema is not
	// recorded. Embeddings are always supplied by the caller, so no
	// embedding func.
	if _, err := d.db.CreateCollection(spec.Name, nil, nil); err != nil {
		return fmt.Errorf("creating collection %s: %w", spec.Name, err)
	}
	return nil
}

// Upsert adds points as chromem documents keyed by their decimal id. The
// batch is checked up front so a malformed point fails the whole batch
// before anything is stored.
func (d *Driver) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	col, err := d.collection(collection)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: upsert to %s not started: %v", vector.ErrPartialWrite, collection, err)
	}

	docs := make([]chromem.Document, len(points))
	ids := make([]string, len(points))
	for i, p := range points {
		if len(p.Vector) == 0 {
			return fmt.Errorf("%w: point %d has an empty vector", vector.ErrPartialWrite, p.ID)
		}
		if len(p.Vector) != len(points[0].Vector) {
			return fmt.Errorf("%w: point %d has %d dimensions, batch has %d",
				vector.ErrPartialWrite, p.ID, len(p.Vector), len(points[0].Vector))
		}

		ids[i] = strconv.FormatUint(p.ID, 10)
		docs[i] = chromem.Document{
			ID:        ids[i],
			Metadata:  p.Payload.Map(),
			Embedding: p.Vector,
			Content:   p.Payload.Text,
		}
	}

	// AddDocuments skips remaining documents without error once ctx is
	// done, and keeps a document in memory even when persisting it failed.
	err = col.AddDocuments(ctx, docs, 1)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		d.rollback(col, collection, ids)
		return fmt.Errorf("%w: adding documents to %s: %v", vector.ErrPartialWrite, collection, err)
	}

	d.logger.Debug("upserted points to chromem",
		"collection", collection,
		"count", len(points),
	)
	return nil
}

func (d *Driver) Get(ctx context.Context, collection string, ids []uint64) ([]vector.Point, error) {
	col, err := d.collection(collection)
	if err != nil {
		return nil, err
	}

	points := make([]vector.Point, 0, len(ids))
	for _, id := range ids {
		doc, err := col.GetByID(ctx, strconv.FormatUint(id, 10))
		if err != nil {
			// chromem reports a missing id as a plain error.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			continue
		}

		points = append(points, vector.Point{
			ID:      id,
			Vector:  doc.Embedding,
			Payload: vector.PayloadFromMap(doc.Metadata),
		})
	}
	return points, nil
}

func (d *Driver) Count(_ context.Context, collection string) (uint64, error) {
	col, err := d.collection(collection)
	if err != nil {
		return 0, err
	}
	return uint64(col.Count()), nil
}

func (d *Driver) Close() error {
	return nil
}

// rollback removes every id of a failed batch so none of it stays visible.
// Ids are deleted one at a time because chromem stops at the first file it
// cannot remove.
func (d *Driver) rollback(col *chromem.Collection, collection string, ids []string) {
	for _, id := range ids {
		if err := col.Delete(context.Background(), nil, nil, id); err != nil {
			d.logger.Warn("rolling back chromem upsert",
				"collection", collection,
				"id", id,
				"error", err,
			)
		}
	}
}

func (d *Driver) collection(name string) (*chromem.Collection, error) {
	col := d.db.GetCollection(name, nil)
	if col == nil {
		return nil, fmt.Errorf("%w: collection %s", vector.ErrNotFound, name)
	}
	return col, nil
}
