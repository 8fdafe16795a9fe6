package main

import (
	"fmt"

	"github.com/nudgekit/nudge/internal/version"
	"github.com/spf13/cobra"
)

func newCompareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <version-a> <version-b>",
		Short: "Compare two dot-separated version strings",
		Long: `Compare two dot-separated numeric version strings.

Components are compared as numbers, so 10.10 is newer than 10.9, and missing
trailing components count as zero, so 10.9 equals 10.9.0.`,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := version.Compare(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", args[0], o, args[1])
			return nil
		},
	}
}
