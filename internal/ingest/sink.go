// Package ingest feeds raw multichannel samples from external transports into
// a session.
package ingest

// Sink receives one raw sample, one value per channel, in arrival order.
type Sink interface {
	OnSample(sample []float64)
}

type SinkFunc func(sample []float64)

func (f SinkFunc) OnSample(sample []float64) { f(sample) }
