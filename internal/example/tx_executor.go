package example

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/bandsense/internal/example/model"
	"github.com/go-sod/bandsense/internal/logging"
)

type appendExamplesFn func(context.Context, []model.Example) error

type txExecutorOptions struct {
	flushSize int
	flushTime time.Duration
}

// txExecutor accumulates examples and inserts them in bulk into persistent
// storage.
type txExecutor struct {
	mtx sync.Mutex
	// serializes writes to storage with purges
	flushMtx sync.Mutex

	opts txExecutorOptions
	buf  []model.Example
}

// Urgently inserts all data from the buffer into persistent storage
func (tx *txExecutor) shutdown(fn appendExamplesFn) error {
	tx.flushMtx.Lock()
	defer tx.flushMtx.Unlock()
	tx.mtx.Lock()
	defer tx.mtx.Unlock()
	if len(tx.buf) == 0 {
		return nil
	}
	if err := fn(context.Background(), tx.buf); err != nil {
		return fmt.Errorf("txExecutor: append many operation failed: %w", err)
	}
	tx.buf = tx.buf[:0]
	return nil
}

// append adds an example to the buffer and flushes it once full
func (tx *txExecutor) append(ctx context.Context, data model.Example, fn appendExamplesFn) {
	tx.mtx.Lock()
	tx.buf = append(tx.buf, data)
	bufLen := len(tx.buf)
	tx.mtx.Unlock()

	if tx.opts.flushSize > 0 && bufLen >= tx.opts.flushSize {
		go tx.bulkAppend(ctx, fn)
	}
}

// purge drops buffered examples and runs fn before any further write
func (tx *txExecutor) purge(fn func() error) error {
	tx.flushMtx.Lock()
	defer tx.flushMtx.Unlock()
	tx.mtx.Lock()
	tx.buf = tx.buf[:0]
	tx.mtx.Unlock()
	return fn()
}

func (tx *txExecutor) bulkAppend(ctx context.Context, fn appendExamplesFn) {
	logger := logging.FromContext(ctx)

	tx.flushMtx.Lock()
	defer tx.flushMtx.Unlock()
	tx.mtx.Lock()
	if len(tx.buf) == 0 {
		tx.mtx.Unlock()
		return
	}
	tmpBuf := make([]model.Example, len(tx.buf))
	copy(tmpBuf, tx.buf)
	tx.buf = tx.buf[:0]
	tx.mtx.Unlock()

	if err := fn(context.Background(), tmpBuf); err != nil {
		logger.Errorf("txExecutor: append many operation failed: %v", err)
	}
}

// Every flushTime the buffer is inserted into the database
func (tx *txExecutor) flusher(ctx context.Context, fn appendExamplesFn) error {
	ticker := time.NewTicker(tx.opts.flushTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tx.bulkAppend(ctx, fn)
		case <-ctx.Done():
			return tx.shutdown(fn)
		}
	}
}
