package setup

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"

	"github.com/go-sod/bandsense/internal/database"
	"github.com/go-sod/bandsense/internal/dsp/band"
	"github.com/go-sod/bandsense/internal/dsp/filter"
	"github.com/go-sod/bandsense/internal/dsp/noise"
	"github.com/go-sod/bandsense/internal/dsp/spectral"
	"github.com/go-sod/bandsense/internal/example"
	"github.com/go-sod/bandsense/internal/ingest"
	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/pipeline"
	"github.com/go-sod/bandsense/internal/predictor"
	"github.com/go-sod/bandsense/internal/predictor/gnb"
	"github.com/go-sod/bandsense/internal/publish"
	"github.com/go-sod/bandsense/internal/session"
	"github.com/go-sod/bandsense/internal/srvenv"
)

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

type PredictorConfigProvider interface {
	PredictConfig() *predictor.Config
	PredictType() predictor.AlgType
}

type ExampleConfigProvider interface {
	ExampleConfig() *example.Config
}

// SessionConfig groups the settings of the processing stages of a session.
type SessionConfig struct {
	Session   *session.Config
	Filter    *filter.Config
	Noise     *noise.Config
	Spectral  *spectral.Config
	Bands     *band.Config
	Pipeline  *pipeline.Config
	Predictor *predictor.Config
}

type SessionConfigProvider interface {
	SessionConfig() *SessionConfig
}

type PublishConfigProvider interface {
	PublishConfig() *publish.Config
}

type IngestConfigProvider interface {
	IngestConfig() *ingest.Config
}

func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var (
		db                 *database.DB
		predictorProvideFn predictor.ProvideFn
		exampleProvideFn   example.ProvideFn
	)
	if provider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring db")
		dbFromEnv, err := database.NewFromEnv(ctx, provider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		db = dbFromEnv
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if provider, ok := config.(PredictorConfigProvider); ok {
		logger.Info("Configuring predictor")
		provideFn, err := ProvidePredictorFor(provider.PredictConfig())
		if err != nil {
			return nil, fmt.Errorf("unable create predictor provide function: %w", err)
		}
		predictorProvideFn = provideFn
		serverEnvOpts = append(serverEnvOpts, srvenv.WithPredictor(predictorProvideFn))
	}

	if provider, ok := config.(ExampleConfigProvider); ok {
		logger.Info("Configuring example store")
		exampleProvideFn = ProvideExamplesFor(provider.ExampleConfig(), db)
		serverEnvOpts = append(serverEnvOpts, srvenv.WithExamples(exampleProvideFn))
	}

	if provider, ok := config.(SessionConfigProvider); ok {
		logger.Info("Configuring session")
		if predictorProvideFn == nil {
			return nil, fmt.Errorf("session requires a predictor configuration")
		}
		provideFn, err := ProvideSessionFor(provider.SessionConfig(), predictorProvideFn)
		if err != nil {
			return nil, fmt.Errorf("unable create session provide function: %w", err)
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithSession(provideFn))
	}

	if provider, ok := config.(PublishConfigProvider); ok {
		logger.Info("Configuring publisher")
		serverEnvOpts = append(serverEnvOpts, srvenv.WithPublisher(ProvidePublisherFor(provider.PublishConfig(), db)))
	}

	if provider, ok := config.(IngestConfigProvider); ok {
		serverEnvOpts = append(serverEnvOpts, srvenv.WithIngest(provider.IngestConfig()))
	}

	return srvenv.New(serverEnvOpts...), nil
}

func ProvidePredictorFor(cfg *predictor.Config) (predictor.ProvideFn, error) {
	switch cfg.PredictorType() {
	case predictor.AlgTypeGaussianNB:
		return func() (predictor.Predictor, error) {
			g, err := gnb.New(gnb.WithVarSmoothing(cfg.VarSmoothing))
			if err != nil {
				return nil, fmt.Errorf("unable create gnb instance: %w", err)
			}
			return g, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown predictor type: %s", cfg.PredictorType())
	}
}

func ProvideExamplesFor(cfg *example.Config, db *database.DB) example.ProvideFn {
	return func() *example.Set {
		return example.New(
			cfg.SessionID,
			example.WithDatabase(db),
			example.WithFlushTime(cfg.FlushTime),
			example.WithFlushSize(cfg.FlushSize),
			example.WithResume(cfg.Resume),
			example.WithRetention(cfg.Retention, cfg.RetentionInterval),
		)
	}
}

func ProvideSessionFor(cfg *SessionConfig, provide predictor.ProvideFn) (session.ProvideFn, error) {
	bands := band.Default
	if cfg.Bands.File != "" {
		loaded, err := band.LoadFile(cfg.Bands.File)
		if err != nil {
			return nil, err
		}
		bands = loaded
	}

	return func(examples *example.Set) (*session.Session, error) {
		return session.New(
			examples,
			provide,
			session.WithFilterConfig(*cfg.Filter),
			session.WithNoiseConfig(*cfg.Noise),
			session.WithSpectralConfig(*cfg.Spectral),
			session.WithPipelineConfig(*cfg.Pipeline),
			session.WithBands(bands),
			session.WithShuffleSeed(cfg.Predictor.ShuffleSeed),
			session.WithTopFeatures(cfg.Session.TopFeatures),
		)
	}, nil
}

func ProvidePublisherFor(cfg *publish.Config, db *database.DB) publish.ProvideFn {
	return func(shutdownCh chan<- error) (*publish.Manager, error) {
		opts := []publish.Option{
			publish.WithDatabase(db),
			publish.WithTargets(cfg.Targets),
			publish.WithInterval(cfg.Interval),
			publish.WithMaxConcurrentRequest(cfg.MaxConcurrentRequest),
			publish.WithRequestTimeout(cfg.RequestTimeout),
			publish.WithMaxPending(cfg.MaxPending),
			publish.WithRecentSize(cfg.RecentSize),
		}
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			opts = append(opts, publish.WithRedis(client, cfg.RedisChannel))
		}
		return publish.New(shutdownCh, opts...)
	}
}
