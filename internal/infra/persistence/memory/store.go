// Package memory provides an in-memory implementation of the row store used
// for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"portflow/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type tableState struct {
	rows  map[string]domain.Row
	order []string
	seq   int64
}

func newTableState() *tableState {
	return &tableState{rows: make(map[string]domain.Row)}
}


// Store keeps rows in process memory. Rows are cloned on the way in and out so
// callers never share maps with the store.
type Store struct {
	mu     sync.RWMutex
	tables map[domain.Table]*tableState
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{tables: make(map[domain.Table]*tableState)}
}

func (s *Store) table(name domain.Table) *tableState {
	t, ok := s.tables[name]
	if !ok {
		t = newTableState()
		s.tables[name] = t
	}
	return t
}

// List returns matching rows in insertion order unless q orders them.
func (s *Store) List(_ context.Context, table domain.Table, q domain.Query) ([]domain.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return []domain.Row{}, nil
	}
	rows := make([]domain.Row, 0, len(t.order))
	for _, id := range t.order {
		rows = append(rows, t.rows[id].Clone())
	}
	return q.Apply(rows), nil
}

// Get returns a clone of the row or ErrNotFound.
func (s *Store) Get(_ context.Context, table domain.Table, id string) (domain.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[table]; ok {
		if row, ok := t.rows[id]; ok {
			return row.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound{Table: table, ID: id}
}

// Insert stores a clone of row, assigning the next integer id when absent.
func (s *Store) Insert(_ context.Context, table domain.Table, row domain.Row) (domain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(table)
	stored := row.Clone()
	if stored == nil {
		stored = domain.Row{}
	}
	id := stored.ID()
	if id == "" {
		t.seq++
		stored[domain.ColumnID] = t.seq
		id = strconv.FormatInt(t.seq, 10)
	} else if n, ok := domain.NumericID(id); ok && n > t.seq {
		t.seq = n
	}
	if _, exists := t.rows[id]; exists {
		return nil, fmt.Errorf("%s %s already exists", table, id)
	}
	t.rows[id] = stored
	t.order = append(t.order, id)
	return stored.Clone(), nil
}

// Update merges patch into an existing row.
func (s *Store) Update(_ context.Context, table domain.Table, id string, patch domain.Row) (domain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, domain.ErrNotFound{Table: table, ID: id}
	}
	current, ok := t.rows[id]
	if !ok {
		return nil, domain.ErrNotFound{Table: table, ID: id}
	}
	updated := current.Merge(patch)
	t.rows[id] = updated
	return updated.Clone(), nil
}

// Delete removes a row and returns it.
func (s *Store) Delete(_ context.Context, table domain.Table, id string) (domain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, domain.ErrNotFound{Table: table, ID: id}
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, domain.ErrNotFound{Table: table, ID: id}
	}
	t.remove(id)
	return row, nil
}

// UpdateWhere merges patch into every matching row.
func (s *Store) UpdateWhere(_ context.Context, table domain.Table, filters []domain.Filter, patch domain.Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return 0, nil
	}
	var n int64
	for _, id := range t.order {
		if domain.MatchFilters(t.rows[id], filters) {
			t.rows[id] = t.rows[id].Merge(patch)
			n++
		}
	}
	return n, nil
}

// DeleteWhere removes every matching row.
func (s *Store) DeleteWhere(_ context.Context, table domain.Table, filters []domain.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return 0, nil
	}
	var doomed []string
	for _, id := range t.order {
		if domain.MatchFilters(t.rows[id], filters) {
			doomed = append(doomed, id)
		}
	}
	for _, id := range doomed {
		t.remove(id)
	}
	return int64(len(doomed)), nil
}

func (t *tableState) remove(id string) {
	delete(t.rows, id)
	for i, candidate := range t.order {
		if candidate == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
