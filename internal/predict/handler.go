package predict

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-sod/bandsense/internal/httputil"
	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/publish/model"
	"github.com/go-sod/bandsense/internal/session"
)

type Predictor interface {
	StartPredicting(ctx context.Context) error
	Stop(ctx context.Context) int
}

type Results interface {
	Recent(n int) []model.Prediction
}

type resultsResponse struct {
	Predictions []model.Prediction `json:"predictions"`
}

// NewHandler serves /predict/start, /predict/stop and /predict/results.
func NewHandler(cfg *Config, predictor Predictor, results Results) (http.Handler, error) {
	h := &handler{
		cfg:       cfg,
		predictor: predictor,
		results:   results,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/predict/start", h.start)
	mux.HandleFunc("/predict/stop", h.stop)
	mux.HandleFunc("/predict/results", h.recent)
	return mux, nil
}

type handler struct {
	predictor Predictor
	results   Results
	cfg       *Config
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodPost) {
		return
	}
	if err := h.predictor.StartPredicting(ctx); err != nil {
		if session.IsRejected(err) {
			httputil.RespConflict(ctx, w, err)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "start predicting: %v"}`, err)
		return
	}
	logging.FromContext(ctx).Infof("predicting")
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) stop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodPost) {
		return
	}
	h.predictor.Stop(ctx)
	w.WriteHeader(http.StatusOK)
}

func (h *handler) recent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodGet) {
		return
	}

	n := h.cfg.MaxResults
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			httputil.RespBadRequest(ctx, w, `{"error": "n must be a positive integer"}`)
			return
		}
		if parsed < n {
			n = parsed
		}
	}

	predictions := h.results.Recent(n)
	if predictions == nil {
		predictions = []model.Prediction{}
	}
	httputil.RespJSON(ctx, w, http.StatusOK, resultsResponse{Predictions: predictions})
}
