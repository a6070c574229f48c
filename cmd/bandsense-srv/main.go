package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-sod/bandsense/internal/api"
	"github.com/go-sod/bandsense/internal/buildinfo"
	bandsense "github.com/go-sod/bandsense/internal/config"
	"github.com/go-sod/bandsense/internal/ingest"
	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/metrics"
	"github.com/go-sod/bandsense/internal/server"
	"github.com/go-sod/bandsense/internal/session"
	"github.com/go-sod/bandsense/internal/setup"
	"github.com/go-sod/bandsense/internal/shutdown"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		"%s: %s, %s\n",
		buildinfo.Info.Name(),
		buildinfo.Info.Time(),
		buildinfo.Info.Tag(),
	)

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	if err := run(ctx, done); err != nil {
		logger.Fatal(err)
	}

	defer done()
}

func run(ctx context.Context, cancel func()) error {
	logger := logging.FromContext(ctx)
	var (
		shutdownCh chan error
		// example flusher and publisher
		shutdownCount = 2
	)
	config := bandsense.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer func() {
		if err := env.Close(context.Background()); err != nil {
			logger.Errorf("env.Close: %v", err)
		}
	}()

	if err := metrics.Register(); err != nil {
		return fmt.Errorf("metrics.Register: %w", err)
	}
	metricsHandler, err := metrics.NewHandler()
	if err != nil {
		return fmt.Errorf("metrics.NewHandler: %w", err)
	}

	shutdownCh = make(chan error, shutdownCount)
	examples := env.ProvideExamples()()
	if err := examples.Run(ctx, shutdownCh); err != nil {
		return fmt.Errorf("examples.Run: %w", err)
	}

	sess, err := env.ProvideSession()(examples)
	if err != nil {
		return fmt.Errorf("session provider function error: %w", err)
	}
	defer sess.Close()

	if config.Session.AutoInitialize {
		if err := sess.Initialize(ctx, session.Context{
			SampleRate: config.Session.SampleRate,
			Channels:   config.Session.Channels,
		}); err != nil {
			return fmt.Errorf("session.Initialize: %w", err)
		}
	}

	publisher, err := env.ProvidePublisher()(shutdownCh)
	if err != nil {
		return fmt.Errorf("publisher provider function error: %w", err)
	}
	if err := publisher.Run(ctx, sess.Predictions()); err != nil {
		return fmt.Errorf("publisher.Run: %w", err)
	}

	if err := serveIngest(ctx, cancel, env.Ingest(), sess); err != nil {
		return err
	}

	router, err := api.NewRouter(ctx, api.Config{
		Control: &config.Control,
		Collect: &config.Collect,
		Predict: &config.Predict,
		Train:   &config.Train,
	}, sess, publisher, metricsHandler)
	if err != nil {
		return fmt.Errorf("api.NewRouter: %w", err)
	}

	srv, err := server.New(config.SrvAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	go func() {
		if err := srv.ServeHTTPHandler(ctx, router); err != nil {
			logger.Errorf("srv.ServeHTTPHandler: %v", err)
			cancel()
		}
	}()

	if config.GRPCAddr != "" {
		grpcSrv, err := server.New(config.GRPCAddr)
		if err != nil {
			return fmt.Errorf("server.New: %w", err)
		}
		health := server.NewHealthServer(ctx, func() bool {
			return sess.Status().Initialized
		}, 5*time.Second)
		go func() {
			if err := grpcSrv.ServeGRPC(ctx, health); err != nil {
				logger.Errorf("grpcSrv.ServeGRPC: %v", err)
				cancel()
			}
		}()
	}

	if config.DebugAddr != "" {
		go func() {
			if err := http.ListenAndServe(config.DebugAddr, nil); err != nil {
				logger.Errorf("debug server: %v", err)
			}
		}()
	}

	logger.Infof("serving on %s", config.SrvAddr)
	<-ctx.Done()
	sess.Close()

	var shutdownErr error
	for i := 0; i < shutdownCount; i++ {
		if err := <-shutdownCh; err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	return shutdownErr
}

func serveIngest(ctx context.Context, cancel func(), cfg *ingest.Config, sink ingest.Sink) error {
	if cfg == nil {
		return nil
	}
	logger := logging.FromContext(ctx)

	if cfg.TCPAddr != "" {
		tcp, err := ingest.NewTCP(cfg.TCPAddr, sink,
			ingest.WithMaxConns(cfg.MaxConns),
			ingest.WithMaxChannels(cfg.MaxChannels),
		)
		if err != nil {
			return fmt.Errorf("ingest.NewTCP: %w", err)
		}
		logger.Infof("accepting samples on %s", tcp.Addr())
		go func() {
			if err := tcp.Serve(ctx); err != nil {
				logger.Errorf("tcp.Serve: %v", err)
				cancel()
			}
		}()
	}

	if cfg.SerialPort != "" {
		port, err := ingest.OpenSerial(cfg.SerialPort, ingest.PortOptions{
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			StopBits: cfg.StopBits,
			Parity:   cfg.Parity,
		})
		if err != nil {
			return fmt.Errorf("ingest.OpenSerial: %w", err)
		}
		logger.Infof("reading samples from %s", cfg.SerialPort)
		go func() {
			if err := ingest.ServeSerial(ctx, port, sink); err != nil {
				logger.Errorf("ingest.ServeSerial: %v", err)
			}
		}()
	}
	return nil
}
