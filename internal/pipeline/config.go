package pipeline

import "time"

type Config struct {
	// Samples per analysis window, defaults to the transform length
	WindowLength int `envconfig:"BANDSENSE_WINDOW_LENGTH" default:"256"`
	// Zero collects on non-overlapping windows of WindowLength samples
	CollectStep          int           `envconfig:"BANDSENSE_COLLECT_STEP" default:"0"`
	PredictStep          int           `envconfig:"BANDSENSE_PREDICT_STEP" default:"10"`
	PollInterval         time.Duration `envconfig:"BANDSENSE_POLL_INTERVAL" default:"20ms"`
	MaxConsecutiveFaults int           `envconfig:"BANDSENSE_MAX_CONSECUTIVE_FAULTS" default:"5"`
}
