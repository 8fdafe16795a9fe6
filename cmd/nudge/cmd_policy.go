package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nudgekit/nudge/internal/policy"
	"github.com/spf13/cobra"
)

func newPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect update policy files",
	}
	cmd.AddCommand(newPolicyValidateCommand())
	return cmd
}

func newPolicyValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [policy-file]",
		Short: "Validate a policy file",
		Long: `Validate a policy file against the policy schema and check that its
minimum version and cutoff date parse.

With no argument, looks for nudge-policy.yaml, nudge-policy.yml or
nudge-policy.json walking up from the current directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := policyArg(args)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading policy %q: %w", path, err)
			}

			out := cmd.OutOrStdout()
			problems := policy.Validate(data)
			if len(problems) == 0 {
				fmt.Fprintf(out, "✅ %s is valid\n", path)
				return nil
			}
			fmt.Fprintf(out, "❌ %s has %d problem(s):\n", path, len(problems))
			for _, p := range problems {
				fmt.Fprintf(out, "   - %s\n", p)
			}
			return fmt.Errorf("%w: %s", policy.ErrInvalidPolicy, path)
		},
	}
}

func policyArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	p, err := policy.Find(wd)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("no policy file found in %s or its parents", wd)
	}
	return p, err
}
