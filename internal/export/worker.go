package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"portflow/internal/blob"
	"portflow/pkg/domain"
)

// Status is the lifecycle stage of an export.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record tracks one export request.
type Record struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Format      Format     `json:"format"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Key         string     `json:"key,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	SizeBytes   int64      `json:"size_bytes,omitempty"`
	URL         string     `json:"url,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Request asks for a report.
type Request struct {
	Kind        string `json:"kind"`
	Format      string `json:"format"`
	RequestedBy string `json:"-"`
}

var (
	// ErrQueueFull is returned when the worker cannot accept more jobs.
	ErrQueueFull = errors.New("export queue full")
	// ErrNotReady is returned when downloading an export that has not succeeded.
	ErrNotReady = errors.New("export not ready")
	// ErrStopped is returned when enqueueing on a stopped worker.
	ErrStopped = errors.New("export worker stopped")
)

// TableExports names the pseudo-table used in not-found errors.
const TableExports domain.Table = "exports"

const keyPrefix = "exports/"

// Worker renders exports asynchronously and keeps their records in memory.
type Worker struct {
	source Source
	store  blob.Store
	logger *zap.Logger
	now    func() time.Time

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker returns a stopped worker with a queue of the given size.
func NewWorker(source Source, store blob.Store, logger *zap.Logger, queueSize int) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		logger: logger.Named("export"),
		now:    time.Now,
		queue:  make(chan string, queueSize),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the processing goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop cancels in-flight work and waits for the loop to exit.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue validates req and queues the export.
func (w *Worker) Enqueue(_ context.Context, req Request) (Record, error) {
	if w.ctx.Err() != nil {
		return Record{}, ErrStopped
	}
	if !ValidKind(req.Kind) {
		return Record{}, domain.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown report %q", req.Kind)}
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		return Record{}, err
	}
	now := w.now().UTC()
	record := &Record{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		Format:      format,
		Status:      StatusQueued,
		RequestedBy: req.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	w.jobs[record.ID] = record
	snapshot := *record
	w.mu.Unlock()

	select {
	case w.queue <- record.ID:
	default:
		w.mu.Lock()
		delete(w.jobs, record.ID)
		w.mu.Unlock()
		return Record{}, ErrQueueFull
	}
	w.logger.Info("export queued", zap.String("id", record.ID), zap.String("kind", req.Kind), zap.String("format", string(format)))
	return snapshot, nil
}

// Get returns a snapshot of the record. Succeeded exports carry a presigned
// URL when the blob driver supports it.
func (w *Worker) Get(ctx context.Context, id string) (Record, error) {
	w.mu.RLock()
	record, ok := w.jobs[id]
	var snapshot Record
	if ok {
		snapshot = *record
	}
	w.mu.RUnlock()
	if !ok {
		return Record{}, domain.ErrNotFound{Table: TableExports, ID: id}
	}
	if snapshot.Status == StatusSucceeded {
		url, err := w.store.PresignURL(ctx, snapshot.Key, blob.SignedURLOptions{})
		if err == nil {
			snapshot.URL = url
		} else if !errors.Is(err, blob.ErrUnsupported) {
			w.logger.Warn("presign export failed", zap.String("id", id), zap.Error(err))
		}
	}
	return snapshot, nil
}

// Open returns the artifact of a succeeded export. The caller closes the
// reader.
func (w *Worker) Open(ctx context.Context, id string) (Record, io.ReadCloser, error) {
	record, err := w.Get(ctx, id)
	if err != nil {
		return Record{}, nil, err
	}
	if record.Status != StatusSucceeded {
		return record, nil, fmt.Errorf("%w: status %s", ErrNotReady, record.Status)
	}
	_, body, err := w.store.Get(ctx, record.Key)
	if err != nil {
		return record, nil, fmt.Errorf("open export %s: %w", id, err)
	}
	return record, body, nil
}

func (w *Worker) process(id string) {
	w.mu.Lock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	record.Status = StatusRunning
	record.UpdatedAt = w.now().UTC()
	kind, format := record.Kind, record.Format
	w.mu.Unlock()

	payload, err := Render(w.ctx, w.source, kind, format)
	if err != nil {
		w.fail(id, fmt.Sprintf("render %s: %v", kind, err))
		return
	}
	key := keyPrefix + id + "." + string(format)
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: format.ContentType(),
		Metadata:    map[string]string{"kind": kind},
	})
	if err != nil {
		w.fail(id, fmt.Sprintf("store artifact: %v", err))
		return
	}
	w.complete(id, info)
}

func (w *Worker) complete(id string, info blob.Info) {
	now := w.now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Key = info.Key
		record.ContentType = info.ContentType
		record.SizeBytes = info.Size
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Info("export succeeded", zap.String("id", id), zap.String("key", info.Key), zap.Int64("size_bytes", info.Size))
}

func (w *Worker) fail(id, reason string) {
	now := w.now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Warn("export failed", zap.String("id", id), zap.String("reason", reason))
}
