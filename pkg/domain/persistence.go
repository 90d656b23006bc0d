package domain

import "context"

// PersistentStore is the row-level abstraction over durable backends. Every
// backend (memory, sqlite, postgres) exposes the same generic select / insert /
// update / delete surface keyed by table and id.
type PersistentStore interface {
	// List returns rows of table matching q. Without q.OrderBy rows come back in
	// insertion order.
	List(ctx context.Context, table Table, q Query) ([]Row, error)
	// Get returns a single row or ErrNotFound.
	Get(ctx context.Context, table Table, id string) (Row, error)
	// Insert stores row and returns it as persisted, including the assigned id.
	Insert(ctx context.Context, table Table, row Row) (Row, error)
	// Update merges patch into the row identified by id and returns the result.
	Update(ctx context.Context, table Table, id string, patch Row) (Row, error)
	// Delete removes the row identified by id and returns it.
	Delete(ctx context.Context, table Table, id string) (Row, error)
	// UpdateWhere merges patch into every row matching filters.
	UpdateWhere(ctx context.Context, table Table, filters []Filter, patch Row) (int64, error)
	// DeleteWhere removes every row matching filters.
	DeleteWhere(ctx context.Context, table Table, filters []Filter) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
