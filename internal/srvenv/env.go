package srvenv

import (
	"context"

	"github.com/go-sod/bandsense/internal/database"
	"github.com/go-sod/bandsense/internal/example"
	"github.com/go-sod/bandsense/internal/ingest"
	"github.com/go-sod/bandsense/internal/predictor"
	"github.com/go-sod/bandsense/internal/publish"
	"github.com/go-sod/bandsense/internal/session"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database  *database.DB
	predictor predictor.ProvideFn
	examples  example.ProvideFn
	session   session.ProvideFn
	publisher publish.ProvideFn
	ingest    *ingest.Config
}

func (s *SrvEnv) ProvidePredictor() predictor.ProvideFn {
	return s.predictor
}

func (s *SrvEnv) ProvideExamples() example.ProvideFn {
	return s.examples
}

func (s *SrvEnv) ProvideSession() session.ProvideFn {
	return s.session
}

func (s *SrvEnv) ProvidePublisher() publish.ProvideFn {
	return s.publisher
}

func (s *SrvEnv) Ingest() *ingest.Config {
	return s.ingest
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func WithPredictor(fn predictor.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.predictor = fn
		return s
	}
}

func WithExamples(fn example.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.examples = fn
		return s
	}
}

func WithSession(fn session.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.session = fn
		return s
	}
}

func WithPublisher(fn publish.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.publisher = fn
		return s
	}
}

func WithIngest(cfg *ingest.Config) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.ingest = cfg
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
