package collect

import (
	"context"
	"net/http"

	"github.com/go-sod/bandsense/internal/httputil"
	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/session"
)

type Collector interface {
	StartCollecting(ctx context.Context, label int) error
	Stop(ctx context.Context) int
	Counts() session.Counts
}

type startRequest struct {
	Label *int `json:"label"`
}

type stopResponse struct {
	Collected int `json:"collected"`
}

// NewHandler serves /collect/start, /collect/stop and /collect/counts.
func NewHandler(cfg *Config, collector Collector) (http.Handler, error) {
	h := &handler{
		cfg:       cfg,
		collector: collector,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/collect/start", h.start)
	mux.HandleFunc("/collect/stop", h.stop)
	mux.HandleFunc("/collect/counts", h.counts)
	return mux, nil
}

type handler struct {
	collector Collector
	cfg       *Config
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if !httputil.CheckMethod(ctx, w, r, http.MethodPost) {
		return
	}
	defer r.Body.Close()
	if !httputil.DecodeJSON(ctx, w, r, &req, false) {
		return
	}
	if req.Label == nil {
		httputil.RespBadRequest(ctx, w, `{"error": "label is required"}`)
		return
	}

	if err := h.collector.StartCollecting(ctx, *req.Label); err != nil {
		if session.IsRejected(err) {
			httputil.RespConflict(ctx, w, err)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "start collecting: %v"}`, err)
		return
	}
	logger.Infof("collecting examples for label %d", *req.Label)
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) stop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodPost) {
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, stopResponse{Collected: h.collector.Stop(ctx)})
}

func (h *handler) counts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodGet) {
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, h.collector.Counts())
}
