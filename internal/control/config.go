package control

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"BANDSENSE_CONTROL_REQUEST_TIMEOUT" default:"10s"`
}
