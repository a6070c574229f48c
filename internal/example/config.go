package example

import "time"

type Config struct {
	SessionID string        `envconfig:"BANDSENSE_SESSION_ID" default:"default"`
	Resume    bool          `envconfig:"BANDSENSE_STORE_RESUME" default:"false"`
	FlushTime time.Duration `envconfig:"BANDSENSE_STORE_FLUSH_TIME" default:"5s"`
	FlushSize int           `envconfig:"BANDSENSE_STORE_FLUSH_SIZE" default:"64"`

	// Other sessions idle for longer are dropped from storage, zero keeps them
	Retention         time.Duration `envconfig:"BANDSENSE_STORE_RETENTION" default:"0"`
	RetentionInterval time.Duration `envconfig:"BANDSENSE_STORE_RETENTION_INTERVAL" default:"1h"`
}
