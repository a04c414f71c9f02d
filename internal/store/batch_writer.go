package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBatchWriterClosed is returned by Submit after Close
var ErrBatchWriterClosed = errors.New("batch writer closed")

// WriteFunc performs writes inside the batch transaction
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter buffers writes and commits them in batches, one transaction per batch.
// A single committer goroutine serializes transactions.
type BatchWriter struct {
	db   *sql.DB
	size int

	mu     sync.Mutex
	buf    []WriteFunc
	closed bool

	commitCh chan []WriteFunc
	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup

	errMu   sync.Mutex
	lastErr error
}

// NewBatchWriter starts a writer that flushes every size submissions and,
// when interval > 0, on every tick.
func NewBatchWriter(db *sql.DB, size int, interval time.Duration) *BatchWriter {
	if size <= 0 {
		size = 100
	}
	bw := &BatchWriter{
		db:       db,
		size:     size,
		buf:      make([]WriteFunc, 0, size),
		commitCh: make(chan []WriteFunc, 2),
		stop:     make(chan struct{}),
	}

	bw.wg.Add(1)
	go bw.committer()

	if interval > 0 {
		bw.ticker = time.NewTicker(interval)
		bw.wg.Add(1)
		go bw.tick()
	}
	return bw
}

// Submit enqueues w. Blocks when the committer is behind.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, w)
	if len(bw.buf) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]WriteFunc, 0, bw.size)
	bw.commitCh <- batch
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		if err := bw.execute(batch); err != nil {
			bw.errMu.Lock()
			if bw.lastErr == nil {
				bw.lastErr = err
			}
			bw.errMu.Unlock()
		}
	}
}

func (bw *BatchWriter) execute(batch []WriteFunc) error {
	// Flushing must not be cut short by a caller's cancelled context
	ctx := context.Background()

	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) tick() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.stop:
			return
		case <-bw.ticker.C:
			bw.mu.Lock()
			if !bw.closed {
				bw.flushLocked()
			}
			bw.mu.Unlock()
		}
	}
}

// Close flushes what is buffered, waits for the committer and returns the
// first commit error, if any.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	bw.flushLocked()
	bw.mu.Unlock()

	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	close(bw.stop)
	close(bw.commitCh)
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.lastErr
}
