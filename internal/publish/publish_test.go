package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/bandsense/internal/database"
	"github.com/go-sod/bandsense/internal/pipeline"
	"github.com/go-sod/bandsense/pkg/math/vector"
)

type receiver struct {
	mtx      sync.Mutex
	status   int
	received []request
}

func (r *receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var body request
	_ = json.NewDecoder(req.Body).Decode(&body)
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.status != 0 {
		w.WriteHeader(r.status)
		return
	}
	r.received = append(r.received, body)
}

func (r *receiver) labels() []int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	var labels []int
	for _, req := range r.received {
		for _, p := range req.Predictions {
			labels = append(labels, p.Label)
		}
	}
	return labels
}

type fakeRedis struct {
	mtx      sync.Mutex
	channels []string
	messages []string
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) len() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return len(f.messages)
}

func prediction(label int) pipeline.Prediction {
	return pipeline.Prediction{Label: label, Features: vector.V{float64(label)}, At: time.Now()}
}

func TestManagerRecent(t *testing.T) {
	m, err := New(make(chan error, 1), WithRecentSize(3))
	require.NoError(t, err)

	assert.Empty(t, m.Recent(0))
	for i := 1; i <= 5; i++ {
		m.Notify(prediction(i))
	}

	got := m.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{got[0].Label, got[1].Label, got[2].Label})
	assert.Equal(t, uint64(5), got[2].Seq)

	got = m.Recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Label)
	assert.Equal(t, 5, got[1].Label)
}

func TestManagerDeliver(t *testing.T) {
	recv := &receiver{}
	srv := httptest.NewServer(recv)
	defer srv.Close()

	shutdownCh := make(chan error, 1)
	m, err := New(shutdownCh,
		WithInterval(5*time.Millisecond),
		WithTargets(Targets{{Name: "hook", URL: srv.URL}}),
	)
	require.NoError(t, err)
	rds := &fakeRedis{}
	m.senders = append(m.senders, &redisTarget{client: rds, channel: "predictions"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := make(chan interface{})
	require.NoError(t, m.Run(ctx, in))

	for i := 1; i <= 3; i++ {
		in <- prediction(i)
	}
	in <- "ignored"

	require.Eventually(t, func() bool {
		return len(recv.labels()) == 3 && rds.len() == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1, 2, 3}, recv.labels())
	assert.Equal(t, "predictions", rds.channels[0])
	assert.JSONEq(t, `{"seq":1,"label":1,"features":[1],"at":`+mustJSON(t, m.Recent(0)[0].At)+`}`, rds.messages[0])

	close(in)
	select {
	case err := <-shutdownCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not shut down")
	}
}

func TestManagerPersistsPending(t *testing.T) {
	recv := &receiver{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(recv)
	defer srv.Close()

	ctx := context.Background()
	db, err := database.NewFromEnv(ctx, &database.Config{FileName: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	defer db.Close(ctx)

	targets := Targets{{Name: "hook", URL: srv.URL}}
	shutdownCh := make(chan error, 1)
	m, err := New(shutdownCh, WithDatabase(db), WithTargets(targets), WithInterval(5*time.Millisecond))
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	require.NoError(t, m.Run(runCtx, make(chan interface{})))
	m.Notify(prediction(1))
	m.Notify(prediction(2))
	time.Sleep(30 * time.Millisecond)
	cancel()
	require.NoError(t, <-shutdownCh)

	recv.mtx.Lock()
	recv.status = 0
	recv.mtx.Unlock()

	shutdownCh = make(chan error, 1)
	m, err = New(shutdownCh, WithDatabase(db), WithTargets(targets), WithInterval(5*time.Millisecond))
	require.NoError(t, err)
	runCtx, cancel = context.WithCancel(ctx)
	defer cancel()
	require.NoError(t, m.Run(runCtx, make(chan interface{})))

	require.Eventually(t, func() bool {
		return len(recv.labels()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1, 2}, recv.labels())
}

func TestTargetsDecode(t *testing.T) {
	var ts Targets
	require.NoError(t, ts.Decode(`[{"name":"a","url":"http://localhost:1/hook"}]`))
	require.Len(t, ts, 1)
	assert.Equal(t, "a", ts[0].Name)
	assert.Error(t, ts.Decode(`{`))
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
