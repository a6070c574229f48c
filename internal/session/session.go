// Package session exposes the command surface of one acquisition session:
// initialization, collection, training, prediction and reset.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/valyala/fastrand"

	"github.com/go-sod/bandsense/internal/dsp/band"
	"github.com/go-sod/bandsense/internal/dsp/filter"
	"github.com/go-sod/bandsense/internal/dsp/noise"
	"github.com/go-sod/bandsense/internal/dsp/spectral"
	"github.com/go-sod/bandsense/internal/example"
	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/metrics"
	"github.com/go-sod/bandsense/internal/pipeline"
	"github.com/go-sod/bandsense/internal/predictor"
	"github.com/go-sod/bandsense/pkg/container/ringbuf"
	"github.com/go-sod/bandsense/pkg/iqueue"
	"github.com/go-sod/bandsense/pkg/math/vector"
)

var (
	ErrNotInitialized = errors.New("session: not initialized")
	ErrClosed         = errors.New("session: closed")
)

// Context describes the acquisition a session runs on.
type Context struct {
	SampleRate float64 `json:"sampleRate"`
	Channels   int     `json:"channels"`
	// Nil enables the notch filter only at the default filter rate
	FilterEnabled *bool `json:"filterEnabled,omitempty"`
}

// Counts reports collected examples. Class1 and Class2 count labels 1 and 2.
type Counts struct {
	Class1  int         `json:"class1Samples"`
	Class2  int         `json:"class2Samples"`
	ByLabel map[int]int `json:"byLabel"`
}

// Diagnostics is the outcome of FitWithScore.
type Diagnostics struct {
	Score        float64                   `json:"score"`
	Folds        []predictor.Fold          `json:"folds"`
	Priors       []predictor.ClassPrior    `json:"priors"`
	FeaturePower []predictor.RankedFeature `json:"featurePower"`
	Examples     int                       `json:"examples"`
}

type Status struct {
	Initialized bool           `json:"initialized"`
	Context     Context        `json:"context"`
	State       pipeline.State `json:"state"`
	Filtering   bool           `json:"filtering"`
	Examples    int            `json:"examples"`
	Fitted      bool           `json:"fitted"`
	Windows     uint64         `json:"windows"`
	Artifacts   uint64         `json:"artifacts"`
	Faults      uint64         `json:"faults"`
	Dropped     uint64         `json:"dropped"`
	LastError   string         `json:"lastError,omitempty"`
}

type ProvideFn = func(examples *example.Set) (*Session, error)

type Option func(*Session)

func WithFilterConfig(cfg filter.Config) Option {
	return func(s *Session) {
		s.filterCfg = cfg
	}
}

func WithNoiseConfig(cfg noise.Config) Option {
	return func(s *Session) {
		s.noiseCfg = cfg
	}
}

func WithSpectralConfig(cfg spectral.Config) Option {
	return func(s *Session) {
		s.spectralCfg = cfg
	}
}

func WithPipelineConfig(cfg pipeline.Config) Option {
	return func(s *Session) {
		s.pipelineCfg = cfg
	}
}

func WithBands(bands []band.Band) Option {
	return func(s *Session) {
		s.bands = bands
	}
}

// WithShuffleSeed makes cross-validation deterministic. Zero seeds from the
// clock.
func WithShuffleSeed(seed uint32) Option {
	return func(s *Session) {
		s.seed = seed
	}
}

func WithTopFeatures(n int) Option {
	return func(s *Session) {
		s.topFeatures = n
	}
}

func New(examples *example.Set, provide predictor.ProvideFn, opts ...Option) (*Session, error) {
	if examples == nil {
		return nil, fmt.Errorf("session: example set is not created")
	}
	if provide == nil {
		return nil, fmt.Errorf("session: predictor instance is not created")
	}
	model, err := provide()
	if err != nil {
		return nil, fmt.Errorf("can not create predictor instance: %w", err)
	}

	s := &Session{
		examples:    examples,
		provide:     provide,
		model:       model,
		predictions: iqueue.New(),
		filterCfg:   filter.Config{NotchFreq: 60, Bandwidth: 10, Sections: 2, DefaultRate: 256},
		noiseCfg:    noise.Config{VarianceThreshold: 600, Sensitivity: 1},
		spectralCfg: spectral.Config{FFTLength: 256, HistoryDepth: 4},
		pipelineCfg: pipeline.Config{
			WindowLength:         256,
			PredictStep:          10,
			PollInterval:         20 * time.Millisecond,
			MaxConsecutiveFaults: 5,
		},
		bands: band.Default,
	}
	for _, f := range opts {
		f(s)
	}
	go s.predictions.Loop()

	return s, nil
}

type Session struct {
	mtx sync.RWMutex

	filterCfg   filter.Config
	noiseCfg    noise.Config
	spectralCfg spectral.Config
	pipelineCfg pipeline.Config
	bands       []band.Band
	seed        uint32
	topFeatures int

	examples    *example.Set
	provide     predictor.ProvideFn
	model       predictor.Predictor
	predictions *iqueue.Queue

	// set by Initialize
	sctx   Context
	notch  *filter.Notch
	buf    *ringbuf.Buffer
	engine *pipeline.Engine
	names  []string

	// the filter state is owned by the sample producer
	filterMtx   sync.Mutex
	filterState *filter.State

	windows   uint64
	artifacts uint64
	faults    uint64
	dropped   uint64
	closed    bool
}

// Initialize builds the buffer, the filter and the processing stages for the
// given acquisition. Re-initializing is allowed while idle. The training set
// and the model survive unless the feature layout changes.
func (s *Session) Initialize(ctx context.Context, c Context) error {
	logger := logging.FromContext(ctx)
	if c.SampleRate <= 0 {
		return fmt.Errorf("session: invalid sampling rate %v", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("session: invalid number of channels %d", c.Channels)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.engine != nil && s.engine.State().Mode != pipeline.ModeIdle {
		return fmt.Errorf("session: initialize: %w", pipeline.ErrBusy)
	}

	enabled := c.SampleRate == s.filterCfg.DefaultRate
	if c.FilterEnabled != nil {
		enabled = *c.FilterEnabled
	}
	filterOpts := []filter.Option{
		filter.WithBandwidth(s.filterCfg.Bandwidth),
		filter.WithSections(s.filterCfg.Sections),
	}
	if !enabled {
		filterOpts = append(filterOpts, filter.WithDisabled())
	}
	notch, err := filter.New(c.SampleRate, s.filterCfg.NotchFreq, filterOpts...)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	estimator, err := spectral.NewEstimator(c.SampleRate, s.spectralCfg.FFTLength)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	history, err := spectral.NewHistory(s.spectralCfg.HistoryDepth, c.Channels, len(estimator.FreqBins()))
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	extractor, err := band.New(estimator.FreqBins(), s.bands)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	window := s.pipelineCfg.WindowLength
	if window <= 0 {
		window = s.spectralCfg.FFTLength
	}
	collectStep := s.pipelineCfg.CollectStep
	if collectStep <= 0 {
		collectStep = window
	}
	capacity := 2 * window
	if capacity < collectStep {
		capacity = collectStep
	}
	buf, err := ringbuf.New(c.Channels, capacity)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	stages := pipeline.Stages{
		Gate: noise.New(s.noiseCfg.VarianceThreshold,
			noise.WithSaturation(s.noiseCfg.SaturationLevel),
			noise.WithSensitivity(s.noiseCfg.Sensitivity),
		),
		Estimator: estimator,
		History:   history,
		Extractor: extractor,
	}
	engine, err := pipeline.New(buf, stages,
		pipeline.RecorderFunc(func(ctx context.Context, label int, features vector.V) {
			s.examples.Append(ctx, label, features)
		}),
		s.model,
		pipeline.WithWindowLength(window),
		pipeline.WithCollectStep(collectStep),
		pipeline.WithPredictStep(s.pipelineCfg.PredictStep),
		pipeline.WithPollInterval(s.pipelineCfg.PollInterval),
		pipeline.WithMaxConsecutiveFaults(s.pipelineCfg.MaxConsecutiveFaults),
	)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if s.engine != nil {
		if s.layoutChanged(c, extractor.Dimensions(c.Channels)) {
			logger.Infof("feature layout changed, dropping %d examples", s.examples.Len())
			if err := s.examples.Clear(ctx); err != nil {
				engine.Close()
				return fmt.Errorf("session: %w", err)
			}
			s.model.Reset()
		}
		s.engine.Close()
	}

	s.filterMtx.Lock()
	s.notch = notch
	s.filterState = notch.NewState(c.Channels)
	s.filterMtx.Unlock()

	s.sctx = c
	s.buf = buf
	s.engine = engine
	s.names = extractor.Names(c.Channels)

	go s.forward(ctx, engine)

	logger.Infof("session initialized: %v Hz, %d channels, notch filter %v, collect step %d, predict step %d",
		c.SampleRate, c.Channels, notch.Enabled(), collectStep, s.pipelineCfg.PredictStep)
	return nil
}

// layoutChanged reports whether features built for c are not comparable with
// the ones already collected. Bin frequencies depend on the sample rate.
func (s *Session) layoutChanged(c Context, dims int) bool {
	return s.sctx.SampleRate != c.SampleRate ||
		s.sctx.Channels != c.Channels ||
		len(s.names) != dims
}

// forward moves engine output into the session until the engine is closed.
func (s *Session) forward(ctx context.Context, engine *pipeline.Engine) {
	logger := logging.FromContext(ctx)
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := range engine.Predictions() {
			s.predictions.Send(v)
		}
	}()
	for res := range engine.Results() {
		atomic.AddUint64(&s.windows, 1)
		switch res.Kind {
		case pipeline.ResultArtifact:
			atomic.AddUint64(&s.artifacts, 1)
			logger.Debugf("window rejected by the noise gate in %s", res.State)
		case pipeline.ResultFault:
			atomic.AddUint64(&s.faults, 1)
		}
	}
	wg.Wait()
}

// OnSample filters one raw sample and pushes it into the buffer. Samples that
// arrive before Initialize are ignored, samples of another width are counted
// as dropped.
func (s *Session) OnSample(sample []float64) {
	s.mtx.RLock()
	buf := s.buf
	s.mtx.RUnlock()
	if buf == nil {
		return
	}
	if len(sample) != buf.Channels() {
		atomic.AddUint64(&s.dropped, 1)
		return
	}

	s.filterMtx.Lock()
	filtered := s.notch.Transform(sample, s.filterState)
	s.filterMtx.Unlock()

	buf.Push(filtered)
}

func (s *Session) currentEngine() (*pipeline.Engine, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.engine == nil {
		return nil, ErrNotInitialized
	}
	return s.engine, nil
}

func (s *Session) StartCollecting(ctx context.Context, label int) error {
	engine, err := s.currentEngine()
	if err != nil {
		return err
	}
	return engine.StartCollecting(ctx, label)
}

// StartPredicting requires a fitted model.
func (s *Session) StartPredicting(ctx context.Context) error {
	engine, err := s.currentEngine()
	if err != nil {
		return err
	}
	if s.model.Len() == 0 {
		return fmt.Errorf("session: start predicting: %w", predictor.ErrNotFitted)
	}
	return engine.StartPredicting(ctx)
}

// Stop halts the pipeline. After collecting it returns the total number of
// examples carrying the collected label, zero otherwise.
func (s *Session) Stop(ctx context.Context) int {
	engine, err := s.currentEngine()
	if err != nil {
		return 0
	}
	state, collected := engine.Stop()
	logging.FromContext(ctx).Infof("pipeline stopped in %s, %d new examples", state, collected)
	if state.Mode != pipeline.ModeCollecting {
		return 0
	}
	return s.examples.Count(state.Label)
}

func (s *Session) Counts() Counts {
	byLabel := s.examples.Counts()
	return Counts{
		Class1:  byLabel[1],
		Class2:  byLabel[2],
		ByLabel: byLabel,
	}
}

// Fit trains the model on every collected example. An empty set leaves the
// model untouched.
func (s *Session) Fit(ctx context.Context) error {
	x, y := s.examples.Dataset()
	if err := s.model.Fit(x, y); err != nil {
		return fmt.Errorf("session: fit: %w", err)
	}
	logging.FromContext(ctx).Infof("model fitted on %d examples", len(x))
	return nil
}

// FitWithScore cross-validates on k folds, then fits on the full set.
func (s *Session) FitWithScore(ctx context.Context, k int) (*Diagnostics, error) {
	logger := logging.FromContext(ctx)
	x, y := s.examples.Dataset()

	rng := &fastrand.RNG{}
	if s.seed != 0 {
		rng.Seed(s.seed)
	}
	validation, err := predictor.CrossValidate(ctx, s.provide, x, y, k, rng)
	if err != nil {
		return nil, fmt.Errorf("session: cross validate: %w", err)
	}
	if err := s.model.Fit(x, y); err != nil {
		return nil, fmt.Errorf("session: fit: %w", err)
	}

	d := &Diagnostics{
		Score:    validation.Score,
		Folds:    validation.Folds,
		Examples: len(x),
	}
	if diag, ok := s.model.(predictor.Diagnoser); ok {
		s.mtx.RLock()
		names := s.names
		s.mtx.RUnlock()
		d.Priors = diag.ClassPriors()
		d.FeaturePower = predictor.RankFeatures(diag.DiscriminativePower(), names, s.topFeatures)
	}

	metrics.RecordScore(ctx, d.Score)
	logger.Infof("cross validation on %d examples with %d folds: score %.3f", len(x), k, d.Score)
	logger.Debugf("fit diagnostics: %s", spew.Sdump(d))
	return d, nil
}

// Reset stops the pipeline and drops the training set, the model, buffered
// samples, filter history and spectral history.
func (s *Session) Reset(ctx context.Context) error {
	s.mtx.RLock()
	engine, buf := s.engine, s.buf
	s.mtx.RUnlock()

	if engine != nil {
		engine.Stop()
		if err := engine.ResetHistory(); err != nil {
			return fmt.Errorf("session: reset: %w", err)
		}
	}
	if buf != nil {
		buf.Reset()
	}
	s.filterMtx.Lock()
	if s.filterState != nil {
		s.filterState.Reset()
	}
	s.filterMtx.Unlock()

	if err := s.examples.Clear(ctx); err != nil {
		return fmt.Errorf("session: reset: %w", err)
	}
	s.model.Reset()
	atomic.StoreUint64(&s.windows, 0)
	atomic.StoreUint64(&s.artifacts, 0)
	atomic.StoreUint64(&s.faults, 0)
	atomic.StoreUint64(&s.dropped, 0)

	logging.FromContext(ctx).Infof("session reset")
	return nil
}

// Predictions delivers pipeline.Prediction values across re-initializations.
// The channel is closed by Close.
func (s *Session) Predictions() <-chan interface{} {
	return s.predictions.Receive()
}

func (s *Session) Status() Status {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	st := Status{
		Initialized: s.engine != nil,
		Context:     s.sctx,
		Examples:    s.examples.Len(),
		Fitted:      s.model.Len() > 0,
		Windows:     atomic.LoadUint64(&s.windows),
		Artifacts:   atomic.LoadUint64(&s.artifacts),
		Faults:      atomic.LoadUint64(&s.faults),
		Dropped:     atomic.LoadUint64(&s.dropped),
	}
	if s.engine != nil {
		st.State = s.engine.State()
		if err := s.engine.Err(); err != nil {
			st.LastError = err.Error()
		}
	}
	if s.notch != nil {
		st.Filtering = s.notch.Enabled()
	}
	return st
}

// Close stops the pipeline and closes the prediction stream.
func (s *Session) Close() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.engine != nil {
		s.engine.Close()
	}
	s.predictions.Close()
}

// IsRejected reports whether err means the command is not allowed in the
// current session state rather than a failure.
func IsRejected(err error) bool {
	return errors.Is(err, pipeline.ErrBusy) ||
		errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrClosed) ||
		errors.Is(err, predictor.ErrNotFitted)
}
