// Package publish keeps recent predictions and forwards them to webhooks and
// a Redis channel.
package publish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/go-sod/bandsense/internal/database"
	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/metrics"
	"github.com/go-sod/bandsense/internal/pipeline"
	publishDb "github.com/go-sod/bandsense/internal/publish/database"
	"github.com/go-sod/bandsense/internal/publish/model"
	"github.com/go-sod/bandsense/pkg/rworker"
)

type ProvideFn = func(shutdownCh chan<- error) (*Manager, error)

type Options struct {
	maxConcurrentRequest int
	requestTimeout       time.Duration
	interval             time.Duration
	maxPending           int
	recentSize           int
	targets              Targets
}

type Option func(*Manager)

func WithMaxConcurrentRequest(n int) Option {
	return func(m *Manager) {
		m.opts.maxConcurrentRequest = n
	}
}

func WithRequestTimeout(t time.Duration) Option {
	return func(m *Manager) {
		m.opts.requestTimeout = t
	}
}

func WithInterval(t time.Duration) Option {
	return func(m *Manager) {
		m.opts.interval = t
	}
}

func WithMaxPending(n int) Option {
	return func(m *Manager) {
		m.opts.maxPending = n
	}
}

func WithRecentSize(n int) Option {
	return func(m *Manager) {
		m.opts.recentSize = n
	}
}

func WithTargets(t Targets) Option {
	return func(m *Manager) {
		m.opts.targets = t
	}
}

// WithDatabase keeps undelivered predictions across restarts.
func WithDatabase(db *database.DB) Option {
	return func(m *Manager) {
		if db != nil {
			m.db = publishDb.New(db)
		}
	}
}

func WithRedis(client *redis.Client, channel string) Option {
	return func(m *Manager) {
		if client != nil {
			m.redis = &redisTarget{client: client, channel: channel}
		}
	}
}

func New(shutdownCh chan<- error, opts ...Option) (*Manager, error) {
	m := &Manager{
		shutdownCh: shutdownCh,
		opts: Options{
			maxConcurrentRequest: 8,
			requestTimeout:       5 * time.Second,
			interval:             time.Second,
			maxPending:           4096,
			recentSize:           256,
		},
		pending: map[string][]model.Prediction{},
	}
	for _, f := range opts {
		f(m)
	}
	if m.opts.maxConcurrentRequest <= 0 {
		m.opts.maxConcurrentRequest = 1
	}
	if m.opts.recentSize <= 0 {
		m.opts.recentSize = 1
	}
	m.recent = make([]model.Prediction, 0, m.opts.recentSize)

	for _, target := range m.opts.targets {
		wh, err := newWebhook(target)
		if err != nil {
			return nil, err
		}
		m.senders = append(m.senders, wh)
	}
	if m.redis != nil {
		m.senders = append(m.senders, m.redis)
	}
	return m, nil
}

type Manager struct {
	mtx        sync.RWMutex
	opts       Options
	db         *publishDb.DB
	redis      *redisTarget
	senders    []sender
	shutdownCh chan<- error

	seq     uint64
	recent  []model.Prediction
	head    int
	pending map[string][]model.Prediction
	cancel  func()
}

// Run consumes predictions from in until it is closed or ctx is done. Pending
// predictions are stored on shutdown and the result is sent to shutdownCh.
func (m *Manager) Run(ctx context.Context, in <-chan interface{}) error {
	if err := m.initialize(ctx); err != nil {
		return fmt.Errorf("can not start publisher: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go func() {
		defer cancel()
		for {
			select {
			case v, ok := <-in:
				if !ok {
					return
				}
				if p, ok := v.(pipeline.Prediction); ok {
					m.Notify(p)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	go m.notifier(ctx)
	return nil
}

func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Notify records a prediction and queues it for every target.
func (m *Manager) Notify(p pipeline.Prediction) model.Prediction {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.seq++
	out := model.Prediction{Seq: m.seq, Label: p.Label, Features: p.Features.Copy(), At: p.At}

	if len(m.recent) < m.opts.recentSize {
		m.recent = append(m.recent, out)
	} else {
		m.recent[m.head] = out
		m.head = (m.head + 1) % m.opts.recentSize
	}
	for _, s := range m.senders {
		m.enqueue(s.Name(), out)
	}
	return out
}

// enqueue drops the oldest predictions of a target once maxPending is reached.
func (m *Manager) enqueue(target string, predictions ...model.Prediction) {
	q := append(m.pending[target], predictions...)
	if over := len(q) - m.opts.maxPending; m.opts.maxPending > 0 && over > 0 {
		q = q[over:]
	}
	m.pending[target] = q
}

// Recent returns up to n of the latest predictions, oldest first. A
// non-positive n returns all kept.
func (m *Manager) Recent(n int) []model.Prediction {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	size := len(m.recent)
	if n <= 0 || n > size {
		n = size
	}
	out := make([]model.Prediction, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, m.recent[(m.head+i)%size])
	}
	return out
}

func (m *Manager) initialize(ctx context.Context) error {
	if m.db == nil {
		return nil
	}
	logger := logging.FromContext(ctx)
	batches, err := m.db.FindAll(ctx)
	if err != nil {
		logger.Errorf("Error with fetching pending predictions from db, %v", err)
		return nil
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for i := range batches {
		m.enqueue(batches[i].Target, batches[i].Predictions...)
		if err := m.db.Delete(ctx, batches[i]); err != nil {
			return fmt.Errorf("unable delete batch on initialize: %w", err)
		}
	}
	if len(batches) > 0 {
		logger.Infof("restored %d pending batches", len(batches))
	}
	return nil
}

func (m *Manager) shutdown(ctx context.Context) error {
	if m.db == nil {
		return nil
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for target, predictions := range m.pending {
		if len(predictions) == 0 {
			continue
		}
		if err := m.db.Store(ctx, model.NewBatch(target, predictions)); err != nil {
			return fmt.Errorf("publish shutdown: unable store batch: %w", err)
		}
	}
	return nil
}

func (m *Manager) take(target string) []model.Prediction {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	q := m.pending[target]
	delete(m.pending, target)
	return q
}

// requeue puts a failed batch back ahead of newer predictions.
func (m *Manager) requeue(target string, predictions []model.Prediction) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	q := m.pending[target]
	m.pending[target] = nil
	m.enqueue(target, predictions...)
	m.enqueue(target, q...)
}

func (m *Manager) notifier(ctx context.Context) {
	logger := logging.FromContext(ctx)
	errCh := make(chan error, 1)
	rateCh := make(chan struct{}, m.opts.maxConcurrentRequest)
	go func() {
		for err := range errCh {
			logger.Errorf("publish error: %v", err)
		}
	}()
	defer func() {
		close(errCh)
		m.shutdownCh <- m.shutdown(context.Background())
	}()

	wg := sync.WaitGroup{}
	ticker := time.NewTicker(m.opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, s := range m.senders {
				s := s
				predictions := m.take(s.Name())
				if len(predictions) == 0 {
					continue
				}
				rworker.Job(&wg, func() error {
					sendCtx, cancel := context.WithTimeout(context.Background(), m.opts.requestTimeout)
					defer cancel()
					if err := s.Send(sendCtx, predictions); err != nil {
						m.requeue(s.Name(), predictions)
						return fmt.Errorf("target %s: %w", s.Name(), err)
					}
					metrics.RecordPublished(ctx, s.Name(), len(predictions))
					return nil
				}, rateCh, errCh)
			}
			wg.Wait()
		case <-ctx.Done():
			wg.Wait()
			return
		}
	}
}
