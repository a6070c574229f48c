package database

type Config struct {
	FileName string `envconfig:"BANDSENSE_DB_FILE" default:"bandsense.db"`
}
