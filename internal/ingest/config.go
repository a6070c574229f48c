package ingest

type Config struct {
	// TCP address for XDR framed samples, ingestion over TCP is off when empty
	TCPAddr  string `envconfig:"BANDSENSE_INGEST_TCP_ADDR"`
	MaxConns int    `envconfig:"BANDSENSE_INGEST_MAX_CONNS" default:"4"`

	// Frames declaring more values close the connection
	MaxChannels int `envconfig:"BANDSENSE_INGEST_MAX_CHANNELS" default:"64"`

	// Serial device streaming comma separated samples, one per line
	SerialPort string `envconfig:"BANDSENSE_INGEST_SERIAL_PORT"`
	BaudRate   int    `envconfig:"BANDSENSE_INGEST_SERIAL_BAUD" default:"115200"`
	DataBits   int    `envconfig:"BANDSENSE_INGEST_SERIAL_DATA_BITS" default:"8"`
	StopBits   int    `envconfig:"BANDSENSE_INGEST_SERIAL_STOP_BITS" default:"1"`
	Parity     string `envconfig:"BANDSENSE_INGEST_SERIAL_PARITY" default:"N"`
}
