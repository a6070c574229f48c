package ingest

import (
	"errors"
	"fmt"
	"io"

	xdr "github.com/davecgh/go-xdr/xdr2"
)

// DefaultMaxChannels bounds the array length a peer may declare in one frame.
const DefaultMaxChannels = 64

var ErrFrameTooLarge = errors.New("frame too large")

// Frame is the XDR unit of the TCP transport: a sequence number followed by a
// variable length array of doubles, one per channel.
type Frame struct {
	Seq    uint32
	Values []float64
}

func WriteFrame(w io.Writer, f Frame) error {
	if _, err := xdr.Marshal(w, f); err != nil {
		return fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}
	return nil
}

// ReadFrame decodes one frame field by field so the declared array length is
// checked against maxValues before anything is allocated.
func ReadFrame(dec *xdr.Decoder, maxValues int) (Frame, error) {
	seq, _, err := dec.DecodeUint()
	if err != nil {
		return Frame{}, err
	}
	n, _, err := dec.DecodeUint()
	if err != nil {
		return Frame{}, err
	}
	if maxValues > 0 && uint64(n) > uint64(maxValues) {
		return Frame{}, fmt.Errorf("frame %d declares %d values, limit %d: %w", seq, n, maxValues, ErrFrameTooLarge)
	}

	f := Frame{Seq: seq, Values: make([]float64, n)}
	for i := range f.Values {
		if f.Values[i], _, err = dec.DecodeDouble(); err != nil {
			return Frame{}, err
		}
	}
	return f, nil
}
