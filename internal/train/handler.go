package train

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-sod/bandsense/internal/httputil"
	"github.com/go-sod/bandsense/internal/predictor"
	"github.com/go-sod/bandsense/internal/session"
)

type Trainer interface {
	Fit(ctx context.Context) error
	FitWithScore(ctx context.Context, k int) (*session.Diagnostics, error)
	Reset(ctx context.Context) error
}

type scoreRequest struct {
	K int `json:"k"`
}

// NewHandler serves /fit, /fit/score and /reset.
func NewHandler(cfg *Config, trainer Trainer) (http.Handler, error) {
	h := &handler{
		cfg:     cfg,
		trainer: trainer,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/fit", h.fit)
	mux.HandleFunc("/fit/score", h.score)
	mux.HandleFunc("/reset", h.reset)
	return mux, nil
}

type handler struct {
	trainer Trainer
	cfg     *Config
}

func (h *handler) fit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodPost) {
		return
	}
	if err := h.trainer.Fit(ctx); err != nil {
		h.respErr(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) score(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodPost) {
		return
	}
	defer r.Body.Close()
	req := scoreRequest{K: h.cfg.DefaultFolds}
	if !httputil.DecodeJSON(ctx, w, r, &req, true) {
		return
	}

	d, err := h.trainer.FitWithScore(ctx, req.K)
	if err != nil {
		h.respErr(ctx, w, err)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, d)
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodPost) {
		return
	}
	if err := h.trainer.Reset(ctx); err != nil {
		h.respErr(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handler) respErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, predictor.ErrInvalidFolds), errors.Is(err, predictor.ErrDimension):
		httputil.RespBadRequest(ctx, w, `{"error": %q}`, err.Error())
	case session.IsRejected(err):
		httputil.RespConflict(ctx, w, err)
	default:
		httputil.RespInternalError(ctx, w, `{"error": "%v"}`, err)
	}
}
