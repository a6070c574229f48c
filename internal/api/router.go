// Package api assembles the HTTP command surface of a session.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-sod/bandsense/internal/collect"
	"github.com/go-sod/bandsense/internal/control"
	"github.com/go-sod/bandsense/internal/predict"
	"github.com/go-sod/bandsense/internal/server"
	"github.com/go-sod/bandsense/internal/session"
	"github.com/go-sod/bandsense/internal/train"
)

type Config struct {
	Control *control.Config
	Collect *collect.Config
	Predict *predict.Config
	Train   *train.Config
}

// NewRouter routes every session command. A nil metrics handler leaves
// /metrics unrouted.
func NewRouter(ctx context.Context, cfg Config, sess *session.Session, results predict.Results, metrics http.Handler) (http.Handler, error) {
	mux := http.NewServeMux()

	controlHandler, err := control.NewHandler(cfg.Control, sess)
	if err != nil {
		return nil, fmt.Errorf("control.NewHandler: %w", err)
	}
	mux.Handle("/session/", controlHandler)

	collectHandler, err := collect.NewHandler(cfg.Collect, sess)
	if err != nil {
		return nil, fmt.Errorf("collect.NewHandler: %w", err)
	}
	mux.Handle("/collect/", collectHandler)

	predictHandler, err := predict.NewHandler(cfg.Predict, sess, results)
	if err != nil {
		return nil, fmt.Errorf("predict.NewHandler: %w", err)
	}
	mux.Handle("/predict/", predictHandler)

	trainHandler, err := train.NewHandler(cfg.Train, sess)
	if err != nil {
		return nil, fmt.Errorf("train.NewHandler: %w", err)
	}
	mux.Handle("/fit", trainHandler)
	mux.Handle("/fit/score", trainHandler)
	mux.Handle("/reset", trainHandler)

	mux.Handle("/health", server.HandleHealth(ctx, func() bool {
		return sess.Status().Initialized
	}))
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux, nil
}
