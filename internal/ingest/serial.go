package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/metrics"
)

type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// SerialMode validates the options and applies defaults for unset values.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: o.BaudRate, DataBits: o.DataBits}
	if mode.BaudRate <= 0 {
		mode.BaudRate = 115200
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return nil, fmt.Errorf("invalid data bits %d: must be between 5 and 8", mode.DataBits)
	}

	switch o.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}

	switch strings.ToUpper(strings.TrimSpace(o.Parity)) {
	case "", "N", "NONE":
		mode.Parity = serial.NoParity
	case "E", "EVEN":
		mode.Parity = serial.EvenParity
	case "O", "ODD":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return mode, nil
}

// OpenSerial opens the device at path.
func OpenSerial(path string, opts PortOptions) (serial.Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return port, nil
}

// ReadLines parses comma separated samples from r until EOF or until ctx is
// done. Lines that do not parse or change the channel count are skipped.
// Closing r is the way to interrupt a blocked read.
func ReadLines(ctx context.Context, r io.Reader, sink Sink) (int, error) {
	logger := logging.FromContext(ctx)
	scanner := bufio.NewScanner(r)

	var (
		n        int
		skipped  int
		channels = -1
	)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sample, err := ParseLine(line)
		if err != nil || (channels >= 0 && len(sample) != channels) {
			skipped++
			continue
		}
		channels = len(sample)

		sink.OnSample(sample)
		n++
		if n%256 == 0 {
			metrics.RecordSamples(ctx, 256)
		}
	}
	if skipped > 0 {
		logger.Debugf("ingest: skipped %d malformed lines", skipped)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return n, fmt.Errorf("read samples: %w", err)
	}
	return n, nil
}

// ParseLine parses one comma separated sample.
func ParseLine(line string) ([]float64, error) {
	fields := strings.Split(line, ",")
	sample := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		sample[i] = v
	}
	return sample, nil
}

// ServeSerial reads the port until ctx is done, then closes it.
func ServeSerial(ctx context.Context, port io.ReadCloser, sink Sink) error {
	logger := logging.FromContext(ctx)
	go func() {
		<-ctx.Done()
		_ = port.Close()
	}()

	n, err := ReadLines(ctx, port, sink)
	logger.Debugf("ingest: serial stream closed after %d samples", n)
	return err
}
