// Package pipeline runs the windowed feature extraction loop and switches it
// between collection and prediction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sod/bandsense/internal/dsp/band"
	"github.com/go-sod/bandsense/internal/dsp/noise"
	"github.com/go-sod/bandsense/internal/dsp/spectral"
	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/metrics"
	"github.com/go-sod/bandsense/pkg/container/ringbuf"
	"github.com/go-sod/bandsense/pkg/iqueue"
	"github.com/go-sod/bandsense/pkg/math/vector"
)

var (
	ErrBusy = errors.New("pipeline: engine is not idle")
	// ErrHalted is wrapped into the last fault when the loop gives up
	ErrHalted = errors.New("pipeline: too many consecutive faults")
)

// Source is the sample buffer the loop consumes.
type Source interface {
	Pending() int
	Extract(n int) ([][]float64, error)
	Notify() <-chan struct{}
}

// Recorder receives collected examples.
type Recorder interface {
	Append(ctx context.Context, label int, features vector.V)
}

// Classifier labels feature vectors while predicting.
type Classifier interface {
	Predict(features vector.V) (int, error)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, label int, features vector.V)

func (f RecorderFunc) Append(ctx context.Context, label int, features vector.V) {
	f(ctx, label, features)
}

type Options struct {
	windowLength         int
	collectStep          int
	predictStep          int
	pollInterval         time.Duration
	maxConsecutiveFaults int
}

type Option func(*Engine)

func WithWindowLength(n int) Option {
	return func(e *Engine) {
		e.opts.windowLength = n
	}
}

func WithCollectStep(n int) Option {
	return func(e *Engine) {
		e.opts.collectStep = n
	}
}

func WithPredictStep(n int) Option {
	return func(e *Engine) {
		e.opts.predictStep = n
	}
}

func WithPollInterval(t time.Duration) Option {
	return func(e *Engine) {
		e.opts.pollInterval = t
	}
}

// WithMaxConsecutiveFaults halts the loop after n faults in a row. Zero never
// halts.
func WithMaxConsecutiveFaults(n int) Option {
	return func(e *Engine) {
		e.opts.maxConsecutiveFaults = n
	}
}

// Stages groups the per-window processing steps of a session.
type Stages struct {
	Gate      *noise.Gate
	Estimator *spectral.Estimator
	History   *spectral.History
	Extractor *band.Extractor
}

func New(source Source, stages Stages, recorder Recorder, classifier Classifier, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("pipeline: sample source is not created")
	}
	if stages.Gate == nil || stages.Estimator == nil || stages.History == nil || stages.Extractor == nil {
		return nil, fmt.Errorf("pipeline: processing stages are not created")
	}
	if recorder == nil || classifier == nil {
		return nil, fmt.Errorf("pipeline: recorder or classifier is not created")
	}

	e := &Engine{
		source:      source,
		stages:      stages,
		recorder:    recorder,
		classifier:  classifier,
		predictions: iqueue.New(),
		results:     make(chan Result, 64),
		opts: Options{
			windowLength:         stages.Estimator.Len(),
			collectStep:          stages.Estimator.Len(),
			predictStep:          10,
			pollInterval:         20 * time.Millisecond,
			maxConsecutiveFaults: 5,
		},
	}
	for _, f := range opts {
		f(e)
	}

	if e.opts.windowLength <= 0 || e.opts.collectStep <= 0 || e.opts.predictStep <= 0 {
		return nil, fmt.Errorf("pipeline: window %d, collect step %d and predict step %d must be positive",
			e.opts.windowLength, e.opts.collectStep, e.opts.predictStep)
	}
	if e.opts.pollInterval <= 0 {
		return nil, fmt.Errorf("pipeline: invalid poll interval %v", e.opts.pollInterval)
	}

	go e.predictions.Loop()

	return e, nil
}

type Engine struct {
	mtx sync.Mutex

	opts        Options
	source      Source
	stages      Stages
	recorder    Recorder
	classifier  Classifier
	predictions *iqueue.Queue
	results     chan Result

	state State
	// state of the current or last run until Stop
	run State
	// examples appended since StartCollecting
	collected int
	lastErr   error
	cancel    func()
	done      chan struct{}
	closed    bool
}

func (e *Engine) State() State {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.state
}

// Err returns the fault that halted the last run, if any.
func (e *Engine) Err() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.lastErr
}

// Results delivers the outcome of every pass. Results are dropped when the
// channel is not drained. The channel is closed by Close.
func (e *Engine) Results() <-chan Result {
	return e.results
}

// Predictions delivers Prediction values in order. The channel is closed by
// Close.
func (e *Engine) Predictions() <-chan interface{} {
	return e.predictions.Receive()
}

func (e *Engine) StartCollecting(ctx context.Context, label int) error {
	return e.start(ctx, State{Mode: ModeCollecting, Label: label}, e.opts.collectStep)
}

func (e *Engine) StartPredicting(ctx context.Context) error {
	return e.start(ctx, State{Mode: ModePredicting}, e.opts.predictStep)
}

func (e *Engine) start(ctx context.Context, state State, step int) error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.closed {
		return fmt.Errorf("pipeline: engine is closed")
	}
	if e.state.Mode != ModeIdle {
		return fmt.Errorf("start %s while %s: %w", state, e.state, ErrBusy)
	}

	if e.cancel != nil {
		// a halted loop already exited
		e.cancel()
	}
	// the loop must outlive the request that started it
	loopCtx, cancel := context.WithCancel(logging.WithLogger(context.Background(), logging.FromContext(ctx)))
	e.state = state
	e.run = state
	e.collected = 0
	e.lastErr = nil
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.loop(loopCtx, state, step, e.done)

	logging.FromContext(ctx).Infof("pipeline started %s, step %d", state, step)
	return nil
}

// Stop halts the loop and waits for it to exit. It returns the state the
// engine was in and the number of examples collected during that run.
func (e *Engine) Stop() (State, int) {
	e.mtx.Lock()
	run, cancel, done := e.run, e.cancel, e.done
	e.mtx.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.state = State{Mode: ModeIdle}
	e.run = State{Mode: ModeIdle}
	e.cancel, e.done = nil, nil
	return run, e.collected
}

// Close stops the loop and closes the prediction queue and the results
// channel.
func (e *Engine) Close() {
	e.Stop()
	e.mtx.Lock()
	if !e.closed {
		e.closed = true
		e.predictions.Close()
		close(e.results)
	}
	e.mtx.Unlock()
}

// ResetHistory drops the smoothing history. The engine must be idle.
func (e *Engine) ResetHistory() error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.state.Mode != ModeIdle {
		return ErrBusy
	}
	e.stages.History.Reset()
	return nil
}

func (e *Engine) loop(ctx context.Context, state State, step int, done chan struct{}) {
	logger := logging.FromContext(ctx)
	defer close(done)

	ticker := time.NewTicker(e.opts.pollInterval)
	defer ticker.Stop()

	faults := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.source.Notify():
		case <-ticker.C:
		}

		if e.source.Pending() < step {
			continue
		}

		started := time.Now()
		res, ok := e.pass(ctx, state)
		if !ok {
			continue
		}
		metrics.RecordPass(ctx, state.Mode.String(), res.Kind.String(), time.Since(started))
		e.publish(res)

		if res.Kind != ResultFault {
			faults = 0
			continue
		}

		faults++
		logger.Errorf("pipeline pass failed (%d in a row): %v", faults, res.Err)
		if e.opts.maxConsecutiveFaults > 0 && faults >= e.opts.maxConsecutiveFaults {
			e.mtx.Lock()
			e.lastErr = fmt.Errorf("%w: %v", ErrHalted, res.Err)
			e.state = State{Mode: ModeIdle}
			e.mtx.Unlock()
			logger.Errorf("pipeline halted in %s: %v", state, res.Err)
			return
		}
	}
}

// pass processes one window. It returns false when the buffer does not hold a
// full window yet.
func (e *Engine) pass(ctx context.Context, state State) (res Result, ok bool) {
	res = Result{State: state, At: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			res.Kind = ResultFault
			res.Err = fmt.Errorf("pipeline: pass panicked: %v", r)
			ok = true
		}
	}()

	window, err := e.source.Extract(e.opts.windowLength)
	if errors.Is(err, ringbuf.ErrUnderrun) {
		return res, false
	}
	if err != nil {
		res.Kind, res.Err = ResultFault, fmt.Errorf("extract window: %w", err)
		return res, true
	}

	if e.stages.Gate.Reject(window) {
		res.Kind = ResultArtifact
		return res, true
	}

	if err := e.stages.History.Update(e.stages.Estimator.Frame(window)); err != nil {
		res.Kind, res.Err = ResultFault, fmt.Errorf("update history: %w", err)
		return res, true
	}
	features, err := e.stages.Extractor.Extract(e.stages.History.Mean())
	if err != nil {
		res.Kind, res.Err = ResultFault, fmt.Errorf("extract features: %w", err)
		return res, true
	}
	res.Features = features

	switch state.Mode {
	case ModeCollecting:
		if ctx.Err() != nil {
			return res, false
		}
		e.recorder.Append(ctx, state.Label, features)
		e.mtx.Lock()
		e.collected++
		e.mtx.Unlock()
		metrics.RecordExample(ctx)
	case ModePredicting:
		label, err := e.classifier.Predict(features)
		if err != nil {
			res.Kind, res.Err = ResultFault, fmt.Errorf("predict: %w", err)
			return res, true
		}
		if ctx.Err() != nil {
			return res, false
		}
		res.Label = label
		e.predictions.Send(Prediction{Label: label, Features: features, At: res.At})
		metrics.RecordPrediction(ctx)
	}

	res.Kind = ResultOK
	return res, true
}

func (e *Engine) publish(res Result) {
	select {
	case e.results <- res:
	default:
	}
}
