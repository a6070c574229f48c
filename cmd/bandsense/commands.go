package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-sod/bandsense/internal/session"
)

func (c *cli) initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the session for a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()

			sc := session.Context{
				SampleRate: c.v.GetFloat64("rate"),
				Channels:   c.v.GetInt("channels"),
			}
			if cmd.Flags().Changed("filter") {
				enabled := c.v.GetBool("filter")
				sc.FilterEnabled = &enabled
			}
			st, err := c.client().Initialize(ctx, sc)
			if err != nil {
				return err
			}
			return c.print(st)
		},
	}
	cmd.Flags().Float64("rate", 256, "sampling rate in Hz")
	cmd.Flags().Int("channels", 4, "number of channels")
	cmd.Flags().Bool("filter", true, "force the mains notch filter on or off")
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			st, err := c.client().Status(ctx)
			if err != nil {
				return err
			}
			return c.print(st)
		},
	}
}

func (c *cli) collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect labelled training examples",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start collecting examples for a label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			label := c.v.GetInt("label")
			if err := c.client().StartCollecting(ctx, label); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.out, "collecting label %d\n", label)
			return nil
		},
	}
	start.Flags().Int("label", 1, "class label of the collected examples")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop collecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			n, err := c.client().StopCollecting(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.out, "%d examples\n", n)
			return nil
		},
	}

	cmd.AddCommand(start, stop)
	return cmd
}

func (c *cli) countsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show collected examples per label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			counts, err := c.client().Counts(ctx)
			if err != nil {
				return err
			}
			return c.print(counts)
		},
	}
}

func (c *cli) fitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Train the classifier on the collected examples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			if !c.v.GetBool("score") {
				return c.client().Fit(ctx)
			}
			d, err := c.client().FitWithScore(ctx, c.v.GetInt("folds"))
			if err != nil {
				return err
			}
			return c.print(d)
		},
	}
	cmd.Flags().Bool("score", false, "cross-validate before fitting")
	cmd.Flags().Int("folds", 0, "number of folds, the server default when zero")
	return cmd
}

func (c *cli) predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify the live stream",
	}

	start := &cobra.Command{
		Use:  "start",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			return c.client().StartPredicting(ctx)
		},
	}
	stop := &cobra.Command{
		Use:  "stop",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			return c.client().StopPredicting(ctx)
		},
	}
	results := &cobra.Command{
		Use:   "results",
		Short: "Show recent predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			follow := c.v.GetDuration("follow")
			var last uint64
			for {
				ctx, cancel := c.context()
				predictions, err := c.client().Results(ctx, c.v.GetInt("n"))
				cancel()
				if err != nil {
					return err
				}
				for _, p := range predictions {
					if p.Seq <= last {
						continue
					}
					last = p.Seq
					_, _ = fmt.Fprintf(c.out, "%d\t%s\t%d\n", p.Seq, p.At.Format(time.RFC3339Nano), p.Label)
				}
				if follow <= 0 {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(follow):
				}
			}
		},
	}
	results.Flags().Int("n", 20, "number of predictions")
	results.Flags().Duration("follow", 0, "poll interval, print once when zero")

	cmd.AddCommand(start, stop, results)
	return cmd
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop the training set and the classifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context()
			defer cancel()
			return c.client().Reset(ctx)
		},
	}
}
