// Package qdrant provides a vector.Driver backed by a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/emunet/pkg/vector"
)

const (
	// DefaultHost is the Qdrant host used when the target omits one.
	DefaultHost = "localhost"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is "host:port" of the Qdrant gRPC endpoint. An "https://"
	// prefix enables TLS.
	Target string

	// APIKey is sent with every request when set.
	APIKey string
}

// Driver implements vector.Driver and vector.Describer against Qdrant.
type Driver struct {
	client *qdrant.Client
	logger *slog.Logger
}

// NewDriver connects to the Qdrant server named by c.Target.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	host, port, useTLS, err := parseTarget(c.Target)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %v", vector.ErrConnection, host, port, err)
	}

	logger.Debug("qdrant vector driver initialized",
		"host", host,
		"port", port,
		"tls", useTLS,
	)

	return &Driver{
		client: client,
		logger: logger,
	}, nil
}

func (d *Driver) ListCollections(ctx context.Context) ([]string, error) {
	names, err := d.client.ListCollections(ctx)
	if err != nil {
		return nil, wrapErr(err, "listing collections")
	}
	return names, nil
}

func (d *Driver) CreateCollection(ctx context.Context, spec vector.CollectionSpec) error {
	distance, err := toDistance(spec.Distance)
	if err != nil {
		return err
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     spec.Dimensions,
			Distance: distance,
		}),
	})
	if err != nil {
		return wrapErr(err, "creating collection "+spec.Name)
	}
	return nil
}

func (d *Driver) DescribeCollection(ctx context.Context, name string) (vector.CollectionSpec, error) {
	info, err := d.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return vector.CollectionSpec{}, wrapErr(err, "describing collection "+name)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		// Named vector collections are not written by emunet.
		return vector.CollectionSpec{}, fmt.Errorf("collection %s has no default vector parameters", name)
	}

	return vector.CollectionSpec{
		Name:       name,
		Dimensions: params.GetSize(),
		Distance:   fromDistance(params.GetDistance()),
	}, nil
}

// Upsert writes points and waits for Qdrant to apply them. Anything other
// than a completed update is reported as vector.ErrPartialWrite.
func (d *Driver) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	result, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         toPointStructs(points),
	})
	if err != nil {
		return wrapErr(err, "upserting into "+collection)
	}

	if result.GetStatus() != qdrant.UpdateStatus_Completed {
		return fmt.Errorf("%w: %s: status %s", vector.ErrPartialWrite, collection, result.GetStatus())
	}

	d.logger.Debug("upserted points to qdrant",
		"collection", collection,
		"count", len(points),
		"operation_id", result.GetOperationId(),
	)
	return nil
}

func (d *Driver) Get(ctx context.Context, collection string, ids []uint64) ([]vector.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(id)
	}

	retrieved, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, wrapErr(err, "getting points from "+collection)
	}

	points := make([]vector.Point, 0, len(retrieved))
	for _, rp := range retrieved {
		points = append(points, fromRetrieved(rp))
	}
	return points, nil
}

func (d *Driver) Count(ctx context.Context, collection string) (uint64, error) {
	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, wrapErr(err, "counting points in "+collection)
	}
	return n, nil
}

func (d *Driver) Close() error {
	return d.client.Close()
}

// parseTarget splits "host:port" (optionally prefixed with a scheme) into
// its parts. Missing pieces fall back to DefaultHost and DefaultPort.
func parseTarget(target string) (string, int, bool, error) {
	useTLS := false
	switch {
	case strings.HasPrefix(target, "https://"):
		useTLS = true
		target = strings.TrimPrefix(target, "https://")
	case strings.HasPrefix(target, "http://"):
		target = strings.TrimPrefix(target, "http://")
	}
	target = strings.TrimSuffix(target, "/")

	if target == "" {
		return DefaultHost, DefaultPort, useTLS, nil
	}

	if !strings.Contains(target, ":") {
		return target, DefaultPort, useTLS, nil
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant target %q: %w", target, err)
	}
	if host == "" {
		host = DefaultHost
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q", portStr)
	}

	return host, port, useTLS, nil
}

func toDistance(d vector.Distance) (qdrant.Distance, error) {
	switch d {
	case vector.DistanceCosine:
		return qdrant.Distance_Cosine, nil
	case vector.DistanceDot:
		return qdrant.Distance_Dot, nil
	case vector.DistanceEuclid:
		return qdrant.Distance_Euclid, nil
	default:
		return qdrant.Distance_UnknownDistance, fmt.Errorf("unsupported distance metric for qdrant: %q", d)
	}
}

func fromDistance(d qdrant.Distance) vector.Distance {
	switch d {
	case qdrant.Distance_Cosine:
		return vector.DistanceCosine
	case qdrant.Distance_Dot:
		return vector.DistanceDot
	case qdrant.Distance_Euclid:
		return vector.DistanceEuclid
	default:
		return vector.Distance(strings.ToLower(d.String()))
	}
}

func toPointStructs(points []vector.Point) []*qdrant.PointStruct {
	out := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := make(map[string]any, 3)
		for k, v := range p.Payload.Map() {
			payload[k] = v
		}

		out[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}
	return out
}

func fromRetrieved(rp *qdrant.RetrievedPoint) vector.Point {
	payload := make(map[string]string, len(rp.GetPayload()))
	for k, v := range rp.GetPayload() {
		payload[k] = v.GetStringValue()
	}

	return vector.Point{
		ID:      rp.GetId().GetNum(),
		Vector:  rp.GetVectors().GetVector().GetData(),
		Payload: vector.PayloadFromMap(payload),
	}
}

// wrapErr maps gRPC transport failures onto the vector sentinel errors.
func wrapErr(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s: %v", vector.ErrConnection, op, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %s: %v", vector.ErrNotFound, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
