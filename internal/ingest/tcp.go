package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	xdr "github.com/davecgh/go-xdr/xdr2"
	"golang.org/x/net/netutil"

	"github.com/go-sod/bandsense/internal/logging"
	"github.com/go-sod/bandsense/internal/metrics"
)

type TCPOption func(*TCP)

// WithMaxChannels caps the values accepted in one frame.
func WithMaxChannels(n int) TCPOption {
	return func(t *TCP) {
		if n > 0 {
			t.maxChannels = n
		}
	}
}

func WithMaxConns(n int) TCPOption {
	return func(t *TCP) {
		if n > 0 {
			t.maxConns = n
		}
	}
}

func NewTCP(addr string, sink Sink, opts ...TCPOption) (*TCP, error) {
	if sink == nil {
		return nil, fmt.Errorf("ingest: sink is not set")
	}
	t := &TCP{sink: sink, maxConns: 4, maxChannels: DefaultMaxChannels}
	for _, f := range opts {
		f(t)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener on %s: %w", addr, err)
	}
	t.listener = netutil.LimitListener(listener, t.maxConns)
	return t, nil
}

// TCP accepts connections carrying XDR frames. Frames with a channel count
// different from the first frame of the connection are dropped, a frame
// declaring more than maxChannels values closes the connection.
type TCP struct {
	listener    net.Listener
	sink        Sink
	maxConns    int
	maxChannels int
}

func (t *TCP) Addr() net.Addr {
	return t.listener.Addr()
}

// Serve blocks until ctx is done. Open connections are closed on return.
func (t *TCP) Serve(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	var (
		wg    sync.WaitGroup
		mtx   sync.Mutex
		conns = map[net.Conn]struct{}{}
	)

	go func() {
		<-ctx.Done()
		logger.Debugf("ingest.Serve: context closed")
		_ = t.listener.Close()
		mtx.Lock()
		for c := range conns {
			_ = c.Close()
		}
		mtx.Unlock()
	}()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			wg.Wait()
			return fmt.Errorf("ingest: accept: %w", err)
		}

		mtx.Lock()
		conns[conn] = struct{}{}
		mtx.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				mtx.Lock()
				delete(conns, conn)
				mtx.Unlock()
				_ = conn.Close()
			}()
			n, err := t.handle(ctx, conn)
			if err != nil && ctx.Err() == nil {
				logger.Warnf("ingest: connection %s: %v", conn.RemoteAddr(), err)
			}
			logger.Debugf("ingest: connection %s closed after %d frames", conn.RemoteAddr(), n)
		}()
	}

	wg.Wait()
	logger.Debugf("ingest.Serve: serving stopped")
	return nil
}

func (t *TCP) handle(ctx context.Context, conn net.Conn) (int, error) {
	logger := logging.FromContext(ctx)
	dec := xdr.NewDecoder(bufio.NewReader(conn))

	var (
		n        int
		channels = -1
		next     uint32
	)
	for {
		f, err := ReadFrame(dec, t.maxChannels)
		if err != nil {
			if isEOF(err) {
				return n, nil
			}
			return n, fmt.Errorf("decode frame: %w", err)
		}

		if channels < 0 {
			channels = len(f.Values)
		} else if len(f.Values) != channels {
			logger.Debugf("ingest: frame %d has %d channels, want %d", f.Seq, len(f.Values), channels)
			continue
		}
		if n > 0 && f.Seq != next {
			logger.Debugf("ingest: frame sequence gap, got %d want %d", f.Seq, next)
		}
		next = f.Seq + 1

		t.sink.OnSample(f.Values)
		n++
		if n%256 == 0 {
			metrics.RecordSamples(ctx, 256)
		}
	}
}

func isEOF(err error) bool {
	var uerr *xdr.UnmarshalError
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
