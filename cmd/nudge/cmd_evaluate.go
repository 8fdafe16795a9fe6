package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func addSessionFlags(cmd *cobra.Command, opts *sessionOptions) {
	cmd.Flags().StringVarP(&opts.policyPath, "policy", "p", "", "Policy file (default: from .nudge.yaml or nudge-policy.{yaml,yml,json} found walking up)")
	cmd.Flags().StringVar(&opts.osVersion, "os-version", "", "Use this OS version instead of the running one")
	cmd.Flags().StringVar(&opts.now, "now", "", "Evaluate as of this RFC3339 time instead of the wall clock")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Version comparison: full | major (default: from .nudge.yaml, else full)")
}

func newEvaluateCommand() *cobra.Command {
	var (
		opts   sessionOptions
		format string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate this machine against the update policy",
		Long: `Evaluate this machine against the update policy and report the verdict.

Reports whether the OS version meets the policy minimum, how many calendar
days remain until the cutoff (negative once it has passed), whether the cutoff
instant has passed, and whether the prompt must use dual-close buttons.

Exit codes:
  0  compliant
  1  not compliant
  2  configuration, policy or input error`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			outFormat := format
			if outFormat == "" {
				outFormat = s.cfg.Output.Format
			}
			outFormat, err = resolveFormat(outFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			report, err := s.evaluate(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), outFormat, report); err != nil {
				return err
			}
			if !report.Compliant {
				return &NonCompliantError{Message: fmt.Sprintf("OS %s does not meet minimum %s (%s comparison)", report.CurrentOSVersion, report.MinimumOSVersion, report.Mode)}
			}
			return nil
		},
	}

	addSessionFlags(cmd, &opts)
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: auto | text | json (default: from .nudge.yaml, else auto)")
	return cmd
}
