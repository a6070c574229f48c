package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-sod/bandsense/internal/ingest"
)

// streamCmd replays a CSV recording to the ingest listener at the sampling rate.
func (c *cli) streamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream <file.csv>",
		Short: "Replay a CSV recording over the XDR ingest port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			conn, err := net.Dial("tcp", c.v.GetString("ingest"))
			if err != nil {
				return fmt.Errorf("dial ingest: %w", err)
			}
			defer conn.Close()
			w := bufio.NewWriter(conn)

			rate := c.v.GetFloat64("rate")
			var tick <-chan time.Time
			if rate > 0 {
				ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
				defer ticker.Stop()
				tick = ticker.C
			}

			scanner := bufio.NewScanner(f)
			var seq uint32
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				values, err := ingest.ParseLine(line)
				if err != nil {
					continue
				}
				if err := ingest.WriteFrame(w, ingest.Frame{Seq: seq, Values: values}); err != nil {
					return err
				}
				seq++
				if tick != nil {
					if err := w.Flush(); err != nil {
						return err
					}
					select {
					case <-tick:
					case <-cmd.Context().Done():
						return nil
					}
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.out, "%d samples sent\n", seq)
			return nil
		},
	}
	cmd.Flags().String("ingest", "localhost:9000", "ingest TCP address")
	cmd.Flags().Float64("rate", 256, "replay rate in samples per second, unpaced when zero")
	return cmd
}
