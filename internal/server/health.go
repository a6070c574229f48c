package server

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/go-sod/bandsense/internal/buildinfo"
)

// ReadyFunc reports whether the service can accept commands.
type ReadyFunc func() bool

// HandleHealth answers 200 while ready reports true, 503 otherwise. A nil ready
// always reports healthy.
func HandleHealth(ctx context.Context, ready ReadyFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status": "unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok", "version": "` + buildinfo.Info.Tag() + `"}`))
	})
}

// NewHealthServer returns a grpc server exposing the standard health service.
// The service status polls ready every interval until ctx is done.
func NewHealthServer(ctx context.Context, ready ReadyFunc, interval time.Duration, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if ready != nil && !ready() {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}
	update()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				update()
			case <-ctx.Done():
				hs.Shutdown()
				return
			}
		}
	}()
	return srv
}
