package example

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-sod/bandsense/internal/example/model"
	"github.com/go-sod/bandsense/pkg/math/vector"
)

func batchOf(n int) []model.Example {
	out := make([]model.Example, n)
	for i := range out {
		out[i] = model.NewExample("test-session", 1, vector.V{1, 1, 1, 1}, time.Now())
	}
	return out
}

func TestTxExecutorFlusher(t *testing.T) {
	tests := []struct {
		name           string
		batch          []model.Example
		waitingTime    time.Duration
		expectedLen    int
		expectedBufLen int
	}{
		{
			name:           "positive_flusher",
			batch:          batchOf(5),
			waitingTime:    100 * time.Millisecond,
			expectedLen:    5,
			expectedBufLen: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			txExecutor := &txExecutor{opts: txExecutorOptions{flushTime: test.waitingTime}}
			txExecutor.buf = test.batch

			mtx := sync.Mutex{}
			length := 0
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				done <- txExecutor.flusher(ctx, func(ctx context.Context, examples []model.Example) error {
					mtx.Lock()
					length += len(examples)
					mtx.Unlock()
					return nil
				})
			}()

			time.Sleep(test.waitingTime * 3)
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("calling the flusher method, unexpected error: %v", err)
			}

			mtx.Lock()
			defer mtx.Unlock()
			if length != test.expectedLen {
				t.Errorf(
					"calling the flusher method, the length of the inserted data got: %v, expected: %v",
					length,
					test.expectedLen,
				)
			}
			if len(txExecutor.buf) != test.expectedBufLen {
				t.Errorf(
					"calling the flusher method, the length of buffer got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedBufLen,
				)
			}
		})
	}
}

func TestTxExecutorAppend(t *testing.T) {
	tests := []struct {
		name        string
		items       []model.Example
		expectedLen int
	}{
		{name: "positive_append_one", items: batchOf(1), expectedLen: 1},
		{name: "positive_append_two", items: batchOf(2), expectedLen: 2},
		{name: "positive_append_three", items: batchOf(3), expectedLen: 3},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			txExecutor := &txExecutor{}
			for _, item := range test.items {
				txExecutor.append(context.Background(), item, func(ctx context.Context, examples []model.Example) error {
					return nil
				})
			}

			if len(txExecutor.buf) != test.expectedLen {
				t.Errorf(
					"calling the append method, the length of the inserted data got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedLen,
				)
			}
		})
	}
}

func TestTxExecutorBulkAppend(t *testing.T) {
	tests := []struct {
		name           string
		buf            []model.Example
		expectedLen    int
		expectedBufLen int
	}{
		{name: "positive_bulk_append", buf: batchOf(5), expectedLen: 5},
		{name: "negative_bulk_append", buf: []model.Example{}, expectedLen: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			txExecutor := &txExecutor{}
			length := 0
			txExecutor.buf = test.buf
			txExecutor.bulkAppend(context.Background(), func(ctx context.Context, examples []model.Example) error {
				length = len(examples)
				return nil
			})

			if length != test.expectedLen {
				t.Errorf(
					"calling the bulkAppend method, the length of the inserted data got: %v, expected: %v",
					length,
					test.expectedLen,
				)
			}
			if len(txExecutor.buf) != test.expectedBufLen {
				t.Errorf(
					"calling the bulkAppend method, the length of buffer got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedBufLen,
				)
			}
		})
	}
}

func TestTxExecutorShutdown(t *testing.T) {
	tests := []struct {
		name           string
		buf            []model.Example
		storeErr       error
		expectedLen    int
		expectedBufLen int
	}{
		{name: "positive_shutdown", buf: batchOf(5), expectedLen: 5, expectedBufLen: 0},
		{name: "negative_shutdown", buf: batchOf(2), storeErr: errors.New("test"), expectedLen: 2, expectedBufLen: 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			length := 0
			txExecutor := &txExecutor{}
			txExecutor.buf = test.buf
			err := txExecutor.shutdown(func(ctx context.Context, examples []model.Example) error {
				length = len(examples)
				return test.storeErr
			})

			if !errors.Is(err, test.storeErr) {
				t.Errorf("calling the shutdown method, err got: %v, expected: %v", err, test.storeErr)
			}
			if length != test.expectedLen {
				t.Errorf(
					"calling the shutdown method, the length of the inserted data got: %v, expected: %v",
					length,
					test.expectedLen,
				)
			}
			if len(txExecutor.buf) != test.expectedBufLen {
				t.Errorf(
					"calling the shutdown method, the length of buffer got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedBufLen,
				)
			}
		})
	}
}
