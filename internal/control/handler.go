// Package control serves session initialization and status.
package control

import (
	"context"
	"net/http"

	"github.com/go-sod/bandsense/internal/httputil"
	"github.com/go-sod/bandsense/internal/session"
)

type Session interface {
	Initialize(ctx context.Context, c session.Context) error
	Status() session.Status
}

// NewHandler serves /session/init and /session/status.
func NewHandler(cfg *Config, sess Session) (http.Handler, error) {
	h := &handler{
		cfg:  cfg,
		sess: sess,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/session/init", h.init)
	mux.HandleFunc("/session/status", h.status)
	return mux, nil
}

type handler struct {
	sess Session
	cfg  *Config
}

func (h *handler) init(w http.ResponseWriter, r *http.Request) {
	var req session.Context
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodPost) {
		return
	}
	defer r.Body.Close()
	if !httputil.DecodeJSON(ctx, w, r, &req, false) {
		return
	}
	if req.SampleRate <= 0 || req.Channels <= 0 {
		httputil.RespBadRequest(ctx, w, `{"error": "sampleRate and channels must be positive"}`)
		return
	}

	if err := h.sess.Initialize(ctx, req); err != nil {
		if session.IsRejected(err) {
			httputil.RespConflict(ctx, w, err)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "initialize: %v"}`, err)
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, h.sess.Status())
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.CheckMethod(ctx, w, r, http.MethodGet) {
		return
	}
	httputil.RespJSON(ctx, w, http.StatusOK, h.sess.Status())
}
