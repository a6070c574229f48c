package session

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"

	"github.com/go-sod/bandsense/internal/database"
	"github.com/go-sod/bandsense/internal/example"
	"github.com/go-sod/bandsense/internal/pipeline"
	"github.com/go-sod/bandsense/internal/predictor"
	"github.com/go-sod/bandsense/internal/predictor/gnb"
)

const (
	testRate     = 256
	testChannels = 4
)

type signal struct {
	freq float64
	amp  float64
	n    int
	rng  fastrand.RNG
}

func newSignal(freq float64, seed uint32) *signal {
	s := &signal{freq: freq, amp: 5}
	s.rng.Seed(seed)
	return s
}

func (g *signal) feed(s *Session, count int) {
	for i := 0; i < count; i++ {
		sample := make([]float64, testChannels)
		for ch := range sample {
			noise := float64(g.rng.Uint32n(1000))/1000 - 0.5
			sample[ch] = g.amp*math.Sin(2*math.Pi*g.freq*float64(g.n)/testRate) + noise
		}
		s.OnSample(sample)
		g.n++
	}
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	provide := func() (predictor.Predictor, error) {
		return gnb.New()
	}
	opts = append([]Option{
		WithShuffleSeed(7),
		WithPipelineConfig(pipeline.Config{
			WindowLength:         256,
			PredictStep:          10,
			PollInterval:         2 * time.Millisecond,
			MaxConsecutiveFaults: 5,
		}),
	}, opts...)
	s, err := New(example.New("test"), provide, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func initialize(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Initialize(context.Background(), Context{SampleRate: testRate, Channels: testChannels}))
}

func collect(t *testing.T, s *Session, sig *signal, label, windows int) int {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.StartCollecting(ctx, label))
	for i := 0; i < windows; i++ {
		want := s.Counts().ByLabel[label] + 1
		sig.feed(s, testRate)
		require.Eventually(t, func() bool {
			return s.Counts().ByLabel[label] >= want
		}, 2*time.Second, 2*time.Millisecond)
	}
	return s.Stop(ctx)
}

func TestSessionNotInitialized(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	s.OnSample([]float64{1, 2, 3, 4})
	assert.True(t, errors.Is(s.StartCollecting(ctx, 1), ErrNotInitialized))
	assert.True(t, errors.Is(s.StartPredicting(ctx), ErrNotInitialized))
	assert.Equal(t, 0, s.Stop(ctx))
	assert.False(t, s.Status().Initialized)
}

func TestSessionOnSampleWidth(t *testing.T) {
	s := newTestSession(t)
	initialize(t, s)
	ctx := context.Background()

	require.NoError(t, s.StartCollecting(ctx, 1))
	for i := 0; i < 2*testRate; i++ {
		s.OnSample([]float64{1, 2, 3})
		s.OnSample([]float64{1, 2, 3, 4, 5})
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, s.Stop(ctx))
	assert.Equal(t, uint64(4*testRate), s.Status().Dropped)

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, uint64(0), s.Status().Dropped)
}

func TestSessionInitialize(t *testing.T) {
	disabled := false
	tests := []struct {
		name      string
		ctx       Context
		filtering bool
		wantErr   bool
	}{
		{name: "default_rate_filters", ctx: Context{SampleRate: 256, Channels: 4}, filtering: true},
		{name: "other_rate_passes", ctx: Context{SampleRate: 220, Channels: 4}, filtering: false},
		{name: "explicit_off", ctx: Context{SampleRate: 256, Channels: 4, FilterEnabled: &disabled}, filtering: false},
		{name: "zero_rate", ctx: Context{SampleRate: 0, Channels: 4}, wantErr: true},
		{name: "zero_channels", ctx: Context{SampleRate: 256, Channels: 0}, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSession(t)
			err := s.Initialize(context.Background(), tc.ctx)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			st := s.Status()
			assert.True(t, st.Initialized)
			assert.Equal(t, tc.filtering, st.Filtering)
			assert.Equal(t, pipeline.ModeIdle, st.State.Mode)
		})
	}
}

func TestSessionCollectFitPredict(t *testing.T) {
	s := newTestSession(t)
	initialize(t, s)
	ctx := context.Background()

	alpha := newSignal(10, 1)
	beta := newSignal(20, 2)

	n1 := collect(t, s, alpha, 1, 6)
	assert.GreaterOrEqual(t, n1, 6)
	n2 := collect(t, s, beta, 2, 6)
	assert.GreaterOrEqual(t, n2, 6)

	counts := s.Counts()
	assert.Equal(t, n1, counts.Class1)
	assert.Equal(t, n2, counts.Class2)

	assert.True(t, errors.Is(s.StartPredicting(ctx), predictor.ErrNotFitted))
	require.NoError(t, s.Fit(ctx))
	assert.True(t, s.Status().Fitted)

	require.NoError(t, s.StartPredicting(ctx))
	assert.True(t, errors.Is(s.StartCollecting(ctx, 1), pipeline.ErrBusy))

	deadline := time.After(3 * time.Second)
	for {
		alpha.feed(s, 32)
		select {
		case v := <-s.Predictions():
			p, ok := v.(pipeline.Prediction)
			require.True(t, ok)
			if p.Label == 1 {
				assert.Equal(t, 0, s.Stop(ctx))
				return
			}
		case <-deadline:
			t.Fatal("no prediction for the collected label")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestSessionFitWithScore(t *testing.T) {
	s := newTestSession(t)
	initialize(t, s)
	ctx := context.Background()

	collect(t, s, newSignal(10, 3), 1, 6)
	collect(t, s, newSignal(20, 4), 2, 6)

	d, err := s.FitWithScore(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, s.Status().Examples, d.Examples)
	assert.Len(t, d.Folds, 3)
	assert.GreaterOrEqual(t, d.Score, 0.0)
	assert.LessOrEqual(t, d.Score, 1.0)
	require.Len(t, d.Priors, 2)
	assert.InDelta(t, 1.0, d.Priors[0].Prior+d.Priors[1].Prior, 1e-9)
	require.Len(t, d.FeaturePower, testChannels*5)
	for i := 1; i < len(d.FeaturePower); i++ {
		assert.GreaterOrEqual(t, d.FeaturePower[i-1].Power, d.FeaturePower[i].Power)
	}
	assert.True(t, s.Status().Fitted)

	_, err = s.FitWithScore(ctx, 1)
	assert.True(t, errors.Is(err, predictor.ErrInvalidFolds))
}

func TestSessionFitWithScoreEmpty(t *testing.T) {
	s := newTestSession(t)
	initialize(t, s)

	d, err := s.FitWithScore(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Score)
	assert.Equal(t, 0, d.Examples)
	assert.False(t, s.Status().Fitted)
}

func TestSessionReset(t *testing.T) {
	s := newTestSession(t)
	initialize(t, s)
	ctx := context.Background()

	collect(t, s, newSignal(10, 5), 1, 2)
	collect(t, s, newSignal(20, 6), 2, 2)
	require.NoError(t, s.Fit(ctx))

	require.NoError(t, s.Reset(ctx))
	counts := s.Counts()
	assert.Equal(t, 0, counts.Class1)
	assert.Equal(t, 0, counts.Class2)
	st := s.Status()
	assert.False(t, st.Fitted)
	assert.Equal(t, uint64(0), st.Windows)
	assert.True(t, errors.Is(s.StartPredicting(ctx), predictor.ErrNotFitted))

	// the session stays initialized
	require.NoError(t, s.StartCollecting(ctx, 1))
	s.Stop(ctx)
}

func TestSessionReinitialize(t *testing.T) {
	s := newTestSession(t)
	initialize(t, s)
	ctx := context.Background()

	collect(t, s, newSignal(10, 8), 1, 1)
	require.Equal(t, 1, s.Counts().Class1)

	require.NoError(t, s.StartCollecting(ctx, 1))
	err := s.Initialize(ctx, Context{SampleRate: testRate, Channels: testChannels})
	assert.True(t, errors.Is(err, pipeline.ErrBusy))
	s.Stop(ctx)

	// same layout keeps the training set
	require.NoError(t, s.Initialize(ctx, Context{SampleRate: testRate, Channels: testChannels}))
	assert.Equal(t, 1, s.Counts().Class1)

	require.NoError(t, s.Initialize(ctx, Context{SampleRate: testRate, Channels: 2}))
	assert.Equal(t, 0, s.Counts().Class1)
	assert.Equal(t, 2, s.Status().Context.Channels)
}

func TestSessionReinitializeLayout(t *testing.T) {
	tests := []struct {
		name     string
		ctx      Context
		expected int
	}{
		{name: "same_layout", ctx: Context{SampleRate: testRate, Channels: testChannels}, expected: 2},
		{name: "sample_rate", ctx: Context{SampleRate: 128, Channels: testChannels}, expected: 0},
		{name: "channels", ctx: Context{SampleRate: testRate, Channels: 2}, expected: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSession(t)
			initialize(t, s)
			ctx := context.Background()

			collect(t, s, newSignal(10, 4), 1, 2)
			require.NoError(t, s.Fit(ctx))
			require.Equal(t, 2, s.Counts().Class1)

			require.NoError(t, s.Initialize(ctx, tc.ctx))
			assert.Equal(t, tc.expected, s.Counts().Class1)
			assert.Equal(t, tc.expected > 0, s.Status().Fitted)
		})
	}
}

func TestSessionReinitializeStorageError(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewFromEnv(ctx, &database.Config{FileName: filepath.Join(t.TempDir(), "session.db")})
	require.NoError(t, err)

	provide := func() (predictor.Predictor, error) {
		return gnb.New()
	}
	s, err := New(example.New("test", example.WithDatabase(db)), provide, WithPipelineConfig(pipeline.Config{
		WindowLength: 256,
		PredictStep:  10,
		PollInterval: 2 * time.Millisecond,
	}))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	initialize(t, s)

	// a closed store fails the purge of the old layout
	require.NoError(t, db.Close(ctx))
	err = s.Initialize(ctx, Context{SampleRate: 128, Channels: testChannels})
	require.Error(t, err)

	// the previous engine keeps serving
	assert.Equal(t, float64(testRate), s.Status().Context.SampleRate)
	require.NoError(t, s.StartCollecting(ctx, 1))
	s.Stop(ctx)
}

func TestSessionCollectStep(t *testing.T) {
	tests := []struct {
		name string
		rate float64
	}{
		{name: "128Hz", rate: 128},
		{name: "220Hz", rate: 220},
		{name: "256Hz", rate: 256},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSession(t)
			ctx := context.Background()
			require.NoError(t, s.Initialize(ctx, Context{SampleRate: tc.rate, Channels: testChannels}))

			sig := newSignal(10, 5)
			require.NoError(t, s.StartCollecting(ctx, 1))
			sig.feed(s, 256)
			require.Eventually(t, func() bool {
				return s.Counts().Class1 == 1
			}, 2*time.Second, 2*time.Millisecond)

			// half a window never yields a training example
			sig.feed(s, 128)
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, 1, s.Stop(ctx))
		})
	}
}

func TestSessionClosed(t *testing.T) {
	s := newTestSession(t)
	initialize(t, s)
	s.Close()

	_, ok := <-s.Predictions()
	assert.False(t, ok)
	assert.True(t, errors.Is(s.StartCollecting(context.Background(), 1), ErrClosed))
	assert.True(t, errors.Is(s.Initialize(context.Background(), Context{SampleRate: 256, Channels: 4}), ErrClosed))
}
