package collect

import (
	"time"
)

type Config struct {
	RequestTimeout time.Duration `envconfig:"BANDSENSE_COLLECT_REQUEST_TIMEOUT" default:"10s"`
}
