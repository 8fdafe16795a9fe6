package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type watchSettings struct {
	interval          time.Duration
	approaching       time.Duration
	exitWhenCompliant bool
	format            string
}

func newWatchCommand() *cobra.Command {
	var (
		opts      sessionOptions
		format    string
		interval  time.Duration
		untilDone bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-evaluate the update policy on a timer",
		Long: `Re-evaluate the update policy on a timer until interrupted.

The policy is loaded once. System facts are read fresh before every
evaluation. Once the dual-close threshold is reached the loop switches from
watch.interval to the shorter watch.approaching_interval. By default the loop
ends as soon as the machine is compliant.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}

			settings := watchSettings{exitWhenCompliant: *s.cfg.Watch.ExitWhenCompliant}
			if cmd.Flags().Changed("until-compliant") {
				settings.exitWhenCompliant = untilDone
			}
			if settings.interval, err = s.cfg.WatchInterval(); err != nil {
				return err
			}
			if settings.approaching, err = s.cfg.ApproachingInterval(); err != nil {
				return err
			}
			if interval > 0 {
				settings.interval = interval
				settings.approaching = min(settings.approaching, interval)
			}

			settings.format = format
			if settings.format == "" {
				settings.format = s.cfg.Output.Format
			}
			if settings.format, err = resolveFormat(settings.format, cmd.OutOrStdout()); err != nil {
				return err
			}

			return runWatch(cmd.Context(), s, cmd.OutOrStdout(), settings)
		},
	}

	addSessionFlags(cmd, &opts)
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: auto | text | json (default: from .nudge.yaml, else auto)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default: watch.interval from .nudge.yaml)")
	cmd.Flags().BoolVar(&untilDone, "until-compliant", true, "Stop once the machine is compliant")
	return cmd
}

// runWatch evaluates until ctx is cancelled, an evaluation fails, or the
// machine becomes compliant and settings.exitWhenCompliant is set.
func runWatch(ctx context.Context, s *session, w io.Writer, settings watchSettings) error {
	reports := make(chan *evaluationReport)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(reports)
		for {
			r, err := s.evaluate(ctx)
			if err != nil {
				return err
			}
			select {
			case reports <- r:
			case <-ctx.Done():
				return nil
			}
			if r.Compliant && settings.exitWhenCompliant {
				slog.Debug("Machine is compliant, stopping watch")
				return nil
			}

			wait := settings.interval
			if r.Verdict.RequiresDualCloseButtons {
				wait = settings.approaching
			}
			slog.Debug("Next evaluation scheduled", "in", wait)

			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}
	})

	g.Go(func() error {
		for r := range reports {
			if err := writeReport(w, settings.format, r); err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}
