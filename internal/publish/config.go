package publish

import (
	"encoding/json"
	"time"

	"github.com/go-sod/bandsense/internal/httputil"
)

type Config struct {
	Targets              Targets       `envconfig:"BANDSENSE_PUBLISH_TARGETS"`
	Interval             time.Duration `envconfig:"BANDSENSE_PUBLISH_INTERVAL" default:"1s"`
	MaxConcurrentRequest int           `envconfig:"BANDSENSE_PUBLISH_MAX_CONCURRENT_REQUEST" default:"8"`
	RequestTimeout       time.Duration `envconfig:"BANDSENSE_PUBLISH_REQUEST_TIMEOUT" default:"5s"`
	MaxPending           int           `envconfig:"BANDSENSE_PUBLISH_MAX_PENDING" default:"4096"`
	// Predictions kept for GET /predict/results
	RecentSize int `envconfig:"BANDSENSE_PUBLISH_RECENT_SIZE" default:"256"`

	RedisAddr     string `envconfig:"BANDSENSE_REDIS_ADDR"`
	RedisPassword string `envconfig:"BANDSENSE_REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"BANDSENSE_REDIS_DB" default:"0"`
	RedisChannel  string `envconfig:"BANDSENSE_REDIS_CHANNEL" default:"bandsense:predictions"`
}

type Targets []Target

func (ts *Targets) Decode(value string) error {
	targets := []Target{}
	if err := json.Unmarshal([]byte(value), &targets); err != nil {
		return err
	}
	*ts = targets
	return nil
}

// Target is a webhook receiving batches of predictions as JSON.
type Target struct {
	Name       string                    `json:"name"`
	URL        string                    `json:"url"`
	HTTPConfig httputil.HTTPClientConfig `json:"httpConfig"`
}
