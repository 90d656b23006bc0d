package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"portflow/internal/infra/persistence/memory"
	"portflow/pkg/domain"
)

type fakeDirectory struct {
	mu        sync.Mutex
	next      int
	users     map[string]domain.Identity
	createErr error
	updateErr error
	deleteErr error
	deleted   []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]domain.Identity)}
}

func (d *fakeDirectory) CreateUser(_ context.Context, identity domain.Identity) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return "", d.createErr
	}
	d.next++
	id := "user-" + string(rune('a'+d.next-1))
	d.users[id] = identity
	return id, nil
}

func (d *fakeDirectory) UpdateUser(_ context.Context, id string, identity domain.Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	if _, ok := d.users[id]; !ok {
		return errors.New("user not found")
	}
	d.users[id] = identity
	return nil
}

func (d *fakeDirectory) DeleteUser(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, id)
	if d.deleteErr != nil {
		return d.deleteErr
	}
	delete(d.users, id)
	return nil
}

// failingStore fails inserts into one table.
type failingStore struct {
	*memory.Store
	failInsert domain.Table
	failList   domain.Table
}

func (f *failingStore) Insert(ctx context.Context, table domain.Table, row domain.Row) (domain.Row, error) {
	if table == f.failInsert {
		return nil, errors.New("insert refused")
	}
	return f.Store.Insert(ctx, table, row)
}

func (f *failingStore) List(ctx context.Context, table domain.Table, q domain.Query) ([]domain.Row, error) {
	if table == f.failList {
		return nil, errors.New("list refused")
	}
	return f.Store.List(ctx, table, q)
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) record(prefix, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, prefix+msg)
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.record("d:", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.record("i:", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.record("w:", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.record("e:", msg) }

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	base := []ServiceOption{WithClock(ClockFunc(func() time.Time { return fixedNow }))}
	return NewService(store, append(base, opts...)...), store
}

func mustInsert(t *testing.T, store domain.PersistentStore, table domain.Table, row domain.Row) domain.Row {
	t.Helper()
	created, err := store.Insert(context.Background(), table, row)
	if err != nil {
		t.Fatalf("insert %s: %v", table, err)
	}
	return created
}

func newMemory() *memory.Store { return memory.NewStore() }
