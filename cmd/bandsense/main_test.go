package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	xdr "github.com/davecgh/go-xdr/xdr2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/bandsense/internal/ingest"
)

type recorded struct {
	method string
	path   string
	body   string
}

func fakeServer(t *testing.T) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mtx   sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := ioutil.ReadAll(r.Body)
		mtx.Lock()
		calls = append(calls, recorded{method: r.Method, path: r.URL.RequestURI(), body: string(body)})
		mtx.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/collect/stop":
			_, _ = w.Write([]byte(`{"collected": 12}`))
		case "/collect/counts":
			_, _ = w.Write([]byte(`{"class1Samples": 12, "class2Samples": 3, "byLabel": {"1": 12, "2": 3}}`))
		case "/predict/results":
			_, _ = w.Write([]byte(`{"predictions": [{"seq": 1, "label": 2, "at": "2020-01-01T00:00:00Z"}]}`))
		case "/fit/score":
			_, _ = w.Write([]byte(`{"score": 0.9, "examples": 15}`))
		case "/reset":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error": "busy"}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCall recorded
		wantOut  string
		wantErr  bool
	}{
		{
			name:     "init",
			args:     []string{"init", "--rate", "220", "--channels", "2"},
			wantCall: recorded{method: http.MethodPost, path: "/session/init", body: `{"sampleRate":220,"channels":2}`},
		},
		{
			name:     "init_filter_off",
			args:     []string{"init", "--filter=false"},
			wantCall: recorded{method: http.MethodPost, path: "/session/init", body: `{"sampleRate":256,"channels":4,"filterEnabled":false}`},
		},
		{
			name:     "collect_start",
			args:     []string{"collect", "start", "--label", "2"},
			wantCall: recorded{method: http.MethodPost, path: "/collect/start", body: `{"label":2}`},
			wantOut:  "collecting label 2",
		},
		{
			name:     "collect_stop",
			args:     []string{"collect", "stop"},
			wantCall: recorded{method: http.MethodPost, path: "/collect/stop"},
			wantOut:  "12 examples",
		},
		{
			name:     "counts",
			args:     []string{"counts"},
			wantCall: recorded{method: http.MethodGet, path: "/collect/counts"},
			wantOut:  `"class2Samples": 3`,
		},
		{
			name:     "fit",
			args:     []string{"fit"},
			wantCall: recorded{method: http.MethodPost, path: "/fit"},
		},
		{
			name:     "fit_score",
			args:     []string{"fit", "--score", "--folds", "4"},
			wantCall: recorded{method: http.MethodPost, path: "/fit/score", body: `{"k":4}`},
			wantOut:  `"score": 0.9`,
		},
		{
			name:     "predict_results",
			args:     []string{"predict", "results", "--n", "5"},
			wantCall: recorded{method: http.MethodGet, path: "/predict/results?n=5"},
			wantOut:  "1\t2020-01-01T00:00:00Z\t2",
		},
		{
			name:     "reset_rejected",
			args:     []string{"reset"},
			wantCall: recorded{method: http.MethodPost, path: "/reset"},
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srv, calls := fakeServer(t)
			out, err := execute(t, append(tc.args, "--server", srv.URL)...)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Len(t, *calls, 1)
			got := (*calls)[0]
			assert.Equal(t, tc.wantCall.method, got.method)
			assert.Equal(t, tc.wantCall.path, got.path)
			if tc.wantCall.body != "" {
				assert.JSONEq(t, tc.wantCall.body, got.body)
			}
			assert.Contains(t, out, tc.wantOut)
		})
	}
}

func TestStream(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	frames := make(chan []ingest.Frame, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			frames <- nil
			return
		}
		defer conn.Close()
		dec := xdr.NewDecoder(conn)
		var got []ingest.Frame
		for {
			f, err := ingest.ReadFrame(dec, ingest.DefaultMaxChannels)
			if err != nil {
				break
			}
			got = append(got, f)
		}
		frames <- got
	}()

	file := filepath.Join(t.TempDir(), "rec.csv")
	require.NoError(t, os.WriteFile(file, []byte("# a,b\n1,2\nbad\n3,4\n"), 0600))

	out, err := execute(t, "stream", file, "--ingest", listener.Addr().String(), "--rate", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "2 samples sent")

	got := <-frames
	require.Len(t, got, 2)
	assert.Equal(t, uint32(1), got[1].Seq)
	assert.Equal(t, []float64{3, 4}, got[1].Values)
}

func TestPrintJSON(t *testing.T) {
	out := &bytes.Buffer{}
	c := &cli{out: out}
	require.NoError(t, c.print(map[string]int{"a": 1}))
	var v map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, 1, v["a"])
}
