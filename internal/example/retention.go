package example

import (
	"context"
	"fmt"
	"time"

	exampleDb "github.com/go-sod/bandsense/internal/example/database"
	"github.com/go-sod/bandsense/internal/example/model"
	"github.com/go-sod/bandsense/internal/logging"
)

type retentionConfig struct {
	maxStorageTime time.Duration
	interval       time.Duration
}

// retention drops stored sessions that nobody resumed for longer than
// maxStorageTime. The active session is never dropped.
type retention struct {
	opts   retentionConfig
	active string
}

type fetchSessionsFn func() ([]string, error)

type fetchExamplesFn func(context.Context, string, exampleDb.FilterFn) ([]model.Example, error)

type deleteSessionFn func(context.Context, string) error

// expired reports whether the newest example of the session is older than
// maxStorageTime. An empty session is expired.
func (r *retention) expired(ctx context.Context, sessionID string, fetchFn fetchExamplesFn) (bool, error) {
	examples, err := fetchFn(ctx, sessionID, nil)
	if err != nil {
		return false, fmt.Errorf("unable find examples of session %s: %w", sessionID, err)
	}
	if len(examples) == 0 {
		return true, nil
	}
	newest := examples[len(examples)-1].CreatedAt
	return time.Since(newest) > r.opts.maxStorageTime, nil
}

// sweep deletes every expired session and returns how many were deleted.
func (r *retention) sweep(ctx context.Context, keysFn fetchSessionsFn, fetchFn fetchExamplesFn, deleteFn deleteSessionFn) (int, error) {
	keys, err := keysFn()
	if err != nil {
		return 0, fmt.Errorf("unable to fetch session keys: %w", err)
	}
	var deleted int
	for _, key := range keys {
		if key == r.active {
			continue
		}
		expired, err := r.expired(ctx, key, fetchFn)
		if err != nil {
			return deleted, err
		}
		if !expired {
			continue
		}
		if err := deleteFn(ctx, key); err != nil {
			return deleted, fmt.Errorf("unable delete session %s: %w", key, err)
		}
		deleted++
	}
	return deleted, nil
}

func (r *retention) schedule(ctx context.Context, keysFn fetchSessionsFn, fetchFn fetchExamplesFn, deleteFn deleteSessionFn) {
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(r.opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := r.sweep(ctx, keysFn, fetchFn, deleteFn)
			if err != nil {
				logger.Errorf("unable sweep stored sessions: %v", err)
			}
			if n > 0 {
				logger.Infof("dropped %d expired sessions", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
