// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/emunet/pkg/vector"
)

// collectionName restricts names to ones that are safe to splice into table
// identifiers.
var collectionName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SQLiteVecDriver implements vector.Driver and vector.Describer using SQLite
// with sqlite-vec. Each collection is a vec0 virtual table holding the
// embeddings plus a regular table holding the payloads, both keyed by point id.
type SQLiteVecDriver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, logger *slog.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_collections (
			name TEXT PRIMARY KEY,
			dimensions INTEGER NOT NULL,
			distance TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	logger.Debug("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"vec_version", vecVersion,
	)

	return &SQLiteVecDriver{
		db:     db,
		logger: logger,
	}, nil
}

func (d *SQLiteVecDriver) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM vec_collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}
	return names, nil
}

func (d *SQLiteVecDriver) CreateCollection(ctx context.Context, spec vector.CollectionSpec) error {
	if !collectionName.MatchString(spec.Name) {
		return fmt.Errorf("invalid collection name %q: only letters, digits and underscores are allowed", spec.Name)
	}

	metric, err := toMetric(spec.Distance)
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_collections(name, dimensions, distance) VALUES (?, ?, ?)`,
		spec.Name, spec.Dimensions, string(spec.Distance),
	); err != nil {
		return fmt.Errorf("registering collection %s: %w", spec.Name, err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE %s USING vec0(embedding float[%d] distance_metric=%s)`,
		vecTable(spec.Name), spec.Dimensions, metric,
	)
	if _, err := tx.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	createPoints := fmt.Sprintf(`
		CREATE TABLE %s (
			id INTEGER PRIMARY KEY,
			text TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL DEFAULT ''
		)
	`, pointsTable(spec.Name))
	if _, err := tx.ExecContext(ctx, createPoints); err != nil {
		return fmt.Errorf("creating points table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (d *SQLiteVecDriver) DescribeCollection(ctx context.Context, name string) (vector.CollectionSpec, error) {
	spec := vector.CollectionSpec{Name: name}

	var distance string
	err := d.db.QueryRowContext(ctx,
		`SELECT dimensions, distance FROM vec_collections WHERE name = ?`, name,
	).Scan(&spec.Dimensions, &distance)
	if errors.Is(err, sql.ErrNoRows) {
		return vector.CollectionSpec{}, fmt.Errorf("%w: collection %s", vector.ErrNotFound, name)
	}
	if err != nil {
		return vector.CollectionSpec{}, fmt.Errorf("describing collection %s: %w", name, err)
	}

	spec.Distance = vector.Distance(distance)
	return spec, nil
}

// Upsert stores points in a single transaction. If any point fails, for
// example on a dimension mismatch, none of the batch is stored.
func (d *SQLiteVecDriver) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	if err := d.requireCollection(ctx, collection); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range points {
		embBlob := serializeFloat32(p.Vector)

		// vec0 does not support UPDATE, so replace via DELETE + INSERT.
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, vecTable(collection)), int64(p.ID),
		); err != nil {
			return fmt.Errorf("%w: deleting old embedding for point %d: %v", vector.ErrPartialWrite, p.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, vecTable(collection)),
			int64(p.ID), embBlob,
		); err != nil {
			return fmt.Errorf("%w: inserting embedding for point %d: %v", vector.ErrPartialWrite, p.ID, err)
		}

		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT OR REPLACE INTO %s(id, text, role, session_id) VALUES (?, ?, ?, ?)`, pointsTable(collection)),
			int64(p.ID), p.Payload.Text, p.Payload.Role, p.Payload.SessionID,
		); err != nil {
			return fmt.Errorf("%w: inserting payload for point %d: %v", vector.ErrPartialWrite, p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", vector.ErrPartialWrite, err)
	}

	d.logger.Debug("upserted points to sqlite-vec",
		"collection", collection,
		"count", len(points),
	)

	return nil
}

// Get retrieves points by their IDs.
func (d *SQLiteVecDriver) Get(ctx context.Context, collection string, ids []uint64) ([]vector.Point, error) {
	if err := d.requireCollection(ctx, collection); err != nil {
		return nil, err
	}

	points := make([]vector.Point, 0, len(ids))
	for _, id := range ids {
		p := vector.Point{ID: id}

		err := d.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT text, role, session_id FROM %s WHERE id = ?`, pointsTable(collection)), int64(id),
		).Scan(&p.Payload.Text, &p.Payload.Role, &p.Payload.SessionID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("querying point %d: %w", id, err)
		}

		var embBlob []byte
		err = d.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT embedding FROM %s WHERE rowid = ?`, vecTable(collection)), int64(id),
		).Scan(&embBlob)
		if err != nil {
			return nil, fmt.Errorf("querying embedding of point %d: %w", id, err)
		}

		p.Vector, err = deserializeFloat32(embBlob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding of point %d: %w", id, err)
		}

		points = append(points, p)
	}

	return points, nil
}

func (d *SQLiteVecDriver) Count(ctx context.Context, collection string) (uint64, error) {
	if err := d.requireCollection(ctx, collection); err != nil {
		return 0, err
	}

	var n uint64
	if err := d.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pointsTable(collection)),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting points in %s: %w", collection, err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}

// requireCollection checks the collection is registered, which also vouches
// for the name being safe to use as a table identifier.
func (d *SQLiteVecDriver) requireCollection(ctx context.Context, name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: collection %q", vector.ErrNotFound, name)
	}

	var exists int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM vec_collections WHERE name = ?`, name,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: collection %s", vector.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("looking up collection %s: %w", name, err)
	}
	return nil
}

func vecTable(collection string) string {
	return "vec_" + collection
}

func pointsTable(collection string) string {
	return "vec_" + collection + "_points"
}

func toMetric(d vector.Distance) (string, error) {
	switch d {
	case vector.DistanceCosine:
		return "cosine", nil
	case vector.DistanceEuclid:
		return "l2", nil
	default:
		return "", fmt.Errorf("unsupported distance metric for sqlite-vec: %q", d)
	}
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
