// Package memory records each chat turn into the vector store.
//
// A turn becomes two points: the user prompt at id n and the assistant reply
// at id n+1. Ids come from the caller's counter and only move forward when
// both points have been confirmed by the store.
package memory

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/emunet/pkg/embeddings"
	"github.com/papercomputeco/emunet/pkg/llm"
	"github.com/papercomputeco/emunet/pkg/vector"
)

// PointsPerTurn is how many ids a remembered turn consumes.
const PointsPerTurn = 2

// Recorder writes a completed turn to memory. It returns the next unused id
// on success and leaves the store untouched on failure.
type Recorder interface {
	RecordTurn(ctx context.Context, prompt, reply string, nextID uint64) (uint64, error)
}

// WriterConfig holds configuration for a Writer.
type WriterConfig struct {
	// Collection is the vector collection points are written to.
	Collection string

	// SessionID is stored in each point's payload when set.
	SessionID string
}

// Reader reads remembered points back from one collection.
type Reader struct {
	driver     vector.Driver
	collection string
}

// NewReader creates a Reader over collection.
func NewReader(driver vector.Driver, collection string) (*Reader, error) {
	if driver == nil {
		return nil, fmt.Errorf("vector driver is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	return &Reader{
		driver:     driver,
		collection: collection,
	}, nil
}

// Writer embeds turns and upserts them through a vector.Driver.
type Writer struct {
	*Reader

	embedder embeddings.Embedder
	config   WriterConfig
	logger   *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(driver vector.Driver, embedder embeddings.Embedder, c WriterConfig, logger *slog.Logger) (*Writer, error) {
	reader, err := NewReader(driver, c.Collection)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	return &Writer{
		Reader:   reader,
		embedder: embedder,
		config:   c,
		logger:   logger,
	}, nil
}

// RecordTurn embeds prompt and reply concurrently, then stores both in one
// upsert as points nextID and nextID+1. Nothing is written unless both
// embeddings succeed.
func (w *Writer) RecordTurn(ctx context.Context, prompt, reply string, nextID uint64) (uint64, error) {
	var promptVec, replyVec []float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := w.embedder.Embed(gctx, prompt)
		if err != nil {
			return fmt.Errorf("embedding prompt: %w", err)
		}
		promptVec = v
		return nil
	})
	g.Go(func() error {
		v, err := w.embedder.Embed(gctx, reply)
		if err != nil {
			return fmt.Errorf("embedding reply: %w", err)
		}
		replyVec = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nextID, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	points := []vector.Point{
		{
			ID:     nextID,
			Vector: promptVec,
			Payload: vector.Payload{
				Text:      prompt,
				Role:      string(llm.RoleUser),
				SessionID: w.config.SessionID,
			},
		},
		{
			ID:     nextID + 1,
			Vector: replyVec,
			Payload: vector.Payload{
				Text:      reply,
				Role:      string(llm.RoleAssistant),
				SessionID: w.config.SessionID,
			},
		},
	}

	if err := w.driver.Upsert(ctx, w.config.Collection, points); err != nil {
		return nextID, fmt.Errorf("%w: upserting points %d-%d: %w", ErrWriteFailed, nextID, nextID+1, err)
	}

	w.logger.Debug("remembered turn",
		"collection", w.config.Collection,
		"ids", []uint64{nextID, nextID + 1},
		"next_id", nextID+PointsPerTurn,
	)

	return nextID + PointsPerTurn, nil
}

// Recall reads stored points back by id. Unknown ids are skipped.
func (r *Reader) Recall(ctx context.Context, ids []uint64) ([]vector.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := r.driver.Get(ctx, r.collection, ids)
	if err != nil {
		return nil, fmt.Errorf("recalling points: %w", err)
	}
	return points, nil
}

// NextID returns the id the next turn should start at, assuming ids in the
// collection are contiguous from zero.
func (r *Reader) NextID(ctx context.Context) (uint64, error) {
	n, err := r.driver.Count(ctx, r.collection)
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return n, nil
}
