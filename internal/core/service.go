package core

import (
	"context"
	"fmt"
	"time"

	"portflow/pkg/domain"
)

// Service exposes the port operations over a row store: generic CRUD for the
// catalog tables plus the aggregate views the dashboard reads.
type Service struct {
	store    PersistentStore
	clock    Clock
	logger   Logger
	metrics  MetricsRecorder
	location *time.Location
	identity domain.IdentityDirectory
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:    store,
		clock:    o.clock,
		logger:   o.logger,
		metrics:  o.metrics,
		location: o.location,
		identity: o.identity,
	}
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// run wraps an operation with metrics and logging.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	switch {
	case err == nil:
		s.logger.Debug("service operation", "operation", op, "duration", elapsed)
	case domain.IsValidation(err) || domain.IsNotFound(err):
		s.logger.Info("service operation rejected", "operation", op, "error", err)
	default:
		s.logger.Error("service operation failed", "operation", op, "error", err)
	}
	return err
}

func lookupSpec(table domain.Table) (domain.TableSpec, error) {
	spec, ok := domain.Tables[table]
	if !ok {
		return domain.TableSpec{}, fmt.Errorf("unknown table %q", table)
	}
	return spec, nil
}

// List returns the rows of table matching q.
func (s *Service) List(ctx context.Context, table domain.Table, q domain.Query) ([]domain.Row, error) {
	var rows []domain.Row
	err := s.run(ctx, "list_"+string(table), func(ctx context.Context) error {
		if _, err := lookupSpec(table); err != nil {
			return err
		}
		var err error
		rows, err = s.store.List(ctx, table, q)
		return err
	})
	return rows, err
}

// Get returns one row of table.
func (s *Service) Get(ctx context.Context, table domain.Table, id string) (domain.Row, error) {
	var row domain.Row
	err := s.run(ctx, "get_"+string(table), func(ctx context.Context) error {
		if _, err := lookupSpec(table); err != nil {
			return err
		}
		var err error
		row, err = s.store.Get(ctx, table, id)
		return err
	})
	return row, err
}

// Create validates row against the table catalog and inserts it.
func (s *Service) Create(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error) {
	var created domain.Row
	err := s.run(ctx, "create_"+string(table), func(ctx context.Context) error {
		spec, err := lookupSpec(table)
		if err != nil {
			return err
		}
		if err := spec.CheckColumns(row); err != nil {
			return err
		}
		if err := spec.CheckRequired(row); err != nil {
			return err
		}
		created, err = s.store.Insert(ctx, table, row)
		return err
	})
	return created, err
}

// Update merges patch into a row of table. A patch id is ignored.
func (s *Service) Update(ctx context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error) {
	var updated domain.Row
	err := s.run(ctx, "update_"+string(table), func(ctx context.Context) error {
		spec, err := lookupSpec(table)
		if err != nil {
			return err
		}
		if err := spec.CheckColumns(patch); err != nil {
			return err
		}
		clean := patch.Clone()
		delete(clean, domain.ColumnID)
		updated, err = s.store.Update(ctx, table, id, clean)
		return err
	})
	return updated, err
}

// Delete removes a row of table and returns it.
func (s *Service) Delete(ctx context.Context, table domain.Table, id string) (domain.Row, error) {
	var removed domain.Row
	err := s.run(ctx, "delete_"+string(table), func(ctx context.Context) error {
		if _, err := lookupSpec(table); err != nil {
			return err
		}
		var err error
		removed, err = s.store.Delete(ctx, table, id)
		return err
	})
	return removed, err
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
