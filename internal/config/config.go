package bandsense

import (
	"github.com/go-sod/bandsense/internal/collect"
	"github.com/go-sod/bandsense/internal/control"
	"github.com/go-sod/bandsense/internal/database"
	"github.com/go-sod/bandsense/internal/dsp/band"
	"github.com/go-sod/bandsense/internal/dsp/filter"
	"github.com/go-sod/bandsense/internal/dsp/noise"
	"github.com/go-sod/bandsense/internal/dsp/spectral"
	"github.com/go-sod/bandsense/internal/example"
	"github.com/go-sod/bandsense/internal/ingest"
	"github.com/go-sod/bandsense/internal/pipeline"
	"github.com/go-sod/bandsense/internal/predict"
	"github.com/go-sod/bandsense/internal/predictor"
	"github.com/go-sod/bandsense/internal/publish"
	"github.com/go-sod/bandsense/internal/session"
	"github.com/go-sod/bandsense/internal/setup"
	"github.com/go-sod/bandsense/internal/train"
)

var (
	_ setup.DatabaseConfigProvider  = (*Config)(nil)
	_ setup.PredictorConfigProvider = (*Config)(nil)
	_ setup.ExampleConfigProvider   = (*Config)(nil)
	_ setup.SessionConfigProvider   = (*Config)(nil)
	_ setup.PublishConfigProvider   = (*Config)(nil)
	_ setup.IngestConfigProvider    = (*Config)(nil)
)

type Config struct {
	SrvAddr  string `envconfig:"BANDSENSE_ADDR" default:":8787"`
	GRPCAddr string `envconfig:"BANDSENSE_GRPC_ADDR" default:":8788"`
	// pprof and expvar, disabled when empty
	DebugAddr string `envconfig:"BANDSENSE_DEBUG_ADDR"`

	Session   session.Config
	Filter    filter.Config
	Noise     noise.Config
	Spectral  spectral.Config
	Bands     band.Config
	Pipeline  pipeline.Config
	Example   example.Config
	Database  database.Config
	Predictor predictor.Config
	Publish   publish.Config
	Ingest    ingest.Config

	Control control.Config
	Collect collect.Config
	Predict predict.Config
	Train   train.Config
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) PredictType() predictor.AlgType {
	return c.Predictor.Type
}

func (c *Config) PredictConfig() *predictor.Config {
	return &c.Predictor
}

func (c *Config) ExampleConfig() *example.Config {
	return &c.Example
}

func (c *Config) SessionConfig() *setup.SessionConfig {
	return &setup.SessionConfig{
		Session:   &c.Session,
		Filter:    &c.Filter,
		Noise:     &c.Noise,
		Spectral:  &c.Spectral,
		Bands:     &c.Bands,
		Pipeline:  &c.Pipeline,
		Predictor: &c.Predictor,
	}
}

func (c *Config) PublishConfig() *publish.Config {
	return &c.Publish
}

func (c *Config) IngestConfig() *ingest.Config {
	return &c.Ingest
}
