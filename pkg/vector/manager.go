package vector

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Manager ensures collections exist before they are written to.
type Manager struct {
	driver         Driver
	validateSchema bool
	logger         *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSchemaValidation makes EnsureCollection compare an existing
// collection's schema against the requested one when the driver implements
// Describer. Without it an existing collection is accepted as-is.
func WithSchemaValidation(validate bool) ManagerOption {
	return func(m *Manager) {
		m.validateSchema = validate
	}
}

// NewManager creates a Manager over driver.
func NewManager(driver Driver, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		driver: driver,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureCollection creates the collection described by spec if the store
// does not have it yet. An existing collection is never altered. It is safe
// to call at the start of every session.
func (m *Manager) EnsureCollection(ctx context.Context, spec CollectionSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	names, err := m.driver.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	m.logger.Debug("existing collections", "collections", names)

	if !slices.Contains(names, spec.Name) {
		if err := m.driver.CreateCollection(ctx, spec); err != nil {
			return fmt.Errorf("creating collection %s: %w", spec.Name, err)
		}

		m.logger.Info("created collection",
			"collection", spec.Name,
			"dimensions", spec.Dimensions,
			"distance", spec.Distance,
		)
		return nil
	}

	if !m.validateSchema {
		m.logger.Debug("collection exists, schema not validated", "collection", spec.Name)
		return nil
	}

	describer, ok := m.driver.(Describer)
	if !ok {
		m.logger.Debug("collection exists, driver cannot describe schema", "collection", spec.Name)
		return nil
	}

	existing, err := describer.DescribeCollection(ctx, spec.Name)
	if err != nil {
		return fmt.Errorf("describing collection %s: %w", spec.Name, err)
	}

	if existing.Dimensions != spec.Dimensions || existing.Distance != spec.Distance {
		return fmt.Errorf("%w: collection %s has %d dimensions with %s distance, want %d with %s",
			ErrSchemaMismatch, spec.Name,
			existing.Dimensions, existing.Distance,
			spec.Dimensions, spec.Distance,
		)
	}

	m.logger.Debug("collection exists with matching schema", "collection", spec.Name)
	return nil
}
