package session

type Config struct {
	SampleRate float64 `envconfig:"BANDSENSE_SAMPLE_RATE" default:"256"`
	Channels   int     `envconfig:"BANDSENSE_CHANNELS" default:"4"`
	// Initialize the session with the values above on start
	AutoInitialize bool `envconfig:"BANDSENSE_AUTO_INITIALIZE" default:"true"`
	// Number of ranked features reported by FitWithScore, zero reports all
	TopFeatures int `envconfig:"BANDSENSE_TOP_FEATURES" default:"0"`
}
