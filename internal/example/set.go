// Package example keeps the labelled training set of a session.
package example

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-sod/bandsense/internal/database"
	exampleDb "github.com/go-sod/bandsense/internal/example/database"
	"github.com/go-sod/bandsense/internal/example/model"
	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/pkg/math/vector"
)

type ProvideFn = func() *Set

type Option func(*Set)

// WithDatabase persists appended examples through a buffered writer.
func WithDatabase(db *database.DB) Option {
	return func(s *Set) {
		if db != nil {
			s.db = exampleDb.New(db)
		}
	}
}

func WithFlushTime(t time.Duration) Option {
	return func(s *Set) {
		s.tx.opts.flushTime = t
	}
}

func WithFlushSize(n int) Option {
	return func(s *Set) {
		s.tx.opts.flushSize = n
	}
}

// WithResume reloads the stored examples of the session on Run.
func WithResume(resume bool) Option {
	return func(s *Set) {
		s.resume = resume
	}
}

// WithRetention drops other stored sessions once their newest example is
// older than maxAge. The check runs every interval, zero maxAge disables it.
func WithRetention(maxAge, interval time.Duration) Option {
	return func(s *Set) {
		s.retention.opts = retentionConfig{maxStorageTime: maxAge, interval: interval}
	}
}

func New(sessionID string, opts ...Option) *Set {
	s := &Set{
		sessionID: sessionID,
		tx:        &txExecutor{opts: txExecutorOptions{flushTime: 5 * time.Second, flushSize: 64}},
		retention: &retention{active: sessionID, opts: retentionConfig{interval: time.Hour}},
	}
	for _, f := range opts {
		f(s)
	}
	return s
}

// Set is safe for concurrent use by the pipeline loop and the command surface.
type Set struct {
	mtx sync.RWMutex

	sessionID string
	examples  []model.Example
	db        *exampleDb.DB
	tx        *txExecutor
	retention *retention
	resume    bool
}

// Run loads stored examples when resuming and starts the flusher. The result of
// the final flush is sent to shutdownCh once ctx is done.
func (s *Set) Run(ctx context.Context, shutdownCh chan<- error) error {
	if s.db == nil {
		go func() {
			<-ctx.Done()
			shutdownCh <- nil
		}()
		return nil
	}

	if s.resume {
		stored, err := s.db.FindBySession(ctx, s.sessionID, nil)
		if err != nil {
			return fmt.Errorf("can not load examples: %w", err)
		}
		s.mtx.Lock()
		s.examples = append(stored, s.examples...)
		s.mtx.Unlock()
		logging.FromContext(ctx).Infof("loaded %d examples of session %s", len(stored), s.sessionID)
	} else if err := s.db.DeleteSession(ctx, s.sessionID); err != nil {
		return fmt.Errorf("can not drop stale examples: %w", err)
	}

	if s.retention.opts.maxStorageTime > 0 && s.retention.opts.interval > 0 {
		go s.retention.schedule(ctx, s.db.Sessions, s.db.FindBySession, s.db.DeleteSession)
	}
	go func() {
		shutdownCh <- s.tx.flusher(ctx, s.db.AppendMany)
	}()
	return nil
}

func (s *Set) SessionID() string { return s.sessionID }

// Append records a labelled feature vector.
func (s *Set) Append(ctx context.Context, label int, features vector.V) model.Example {
	ex := model.NewExample(s.sessionID, label, features.Copy(), time.Now())
	s.mtx.Lock()
	s.examples = append(s.examples, ex)
	s.mtx.Unlock()

	if s.db != nil {
		s.tx.append(ctx, ex, s.db.AppendMany)
	}
	return ex
}

func (s *Set) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.examples)
}

// Count returns the number of examples with the given label.
func (s *Set) Count(label int) int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	var n int
	for i := range s.examples {
		if s.examples[i].Label == label {
			n++
		}
	}
	return n
}

// Counts returns the number of examples per label.
func (s *Set) Counts() map[int]int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	counts := map[int]int{}
	for i := range s.examples {
		counts[s.examples[i].Label]++
	}
	return counts
}

// Labels returns the distinct labels in ascending order.
func (s *Set) Labels() []int {
	counts := s.Counts()
	labels := make([]int, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

// Dataset returns a snapshot of features and labels in collection order.
func (s *Set) Dataset() ([]vector.V, []int) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	x := make([]vector.V, len(s.examples))
	y := make([]int, len(s.examples))
	for i := range s.examples {
		x[i] = s.examples[i].Features
		y[i] = s.examples[i].Label
	}
	return x, y
}

// Clear drops every example, stored ones included.
func (s *Set) Clear(ctx context.Context) error {
	s.mtx.Lock()
	s.examples = nil
	s.mtx.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.tx.purge(func() error {
		return s.db.DeleteSession(ctx, s.sessionID)
	}); err != nil {
		return fmt.Errorf("clear examples: %w", err)
	}
	return nil
}
