package band

type Config struct {
	// Optional TOML file with [[band]] tables, the default set is used when empty
	File string `envconfig:"BANDSENSE_BANDS_FILE"`
}
