package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var buildVersion = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nudge",
		Short: "Nudge - OS update compliance evaluator",
		Long: `Nudge evaluates whether this machine meets an OS update policy.

A policy names the minimum OS version, the cutoff date by which it must be
installed, and how many days before the cutoff the update prompt escalates to
a dual-close (two confirmations) mode.`,
		Version:      buildVersion,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newPolicyCommand())
	cmd.AddCommand(newWatchCommand())

	return cmd
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}
