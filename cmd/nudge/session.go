package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nudgekit/nudge/internal/compliance"
	"github.com/nudgekit/nudge/internal/config"
	"github.com/nudgekit/nudge/internal/policy"
	"github.com/nudgekit/nudge/internal/sysfacts"
)

// newSystemProvider is replaced in tests.
var newSystemProvider = func() sysfacts.Provider { return sysfacts.NewSystem() }

// sessionOptions are the flags shared by evaluate and watch.
type sessionOptions struct {
	policyPath string
	osVersion  string
	now        string
	mode       string
}

// session holds everything loaded once per run: the host config, the policy
// and the facts provider. Facts are read fresh on every evaluation.
type session struct {
	cfg      *config.Config
	loaded   *policy.Loaded
	provider sysfacts.Provider
	mode     compliance.ComparisonMode
}

func newSession(opts sessionOptions) (*session, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return nil, err
	}

	modeName := cfg.Evaluation.Mode
	if opts.mode != "" {
		modeName = opts.mode
	}
	mode, err := compliance.ParseComparisonMode(modeName)
	if err != nil {
		return nil, err
	}

	path, err := resolvePolicyPath(opts.policyPath, cfg, wd)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	loaded, err := policy.LoadFile(path, loc)
	if err != nil {
		return nil, err
	}
	slog.Debug("Policy loaded", "path", path, "minimumOSVersion", loaded.Policy.MinimumOSVersion, "cutoffDate", loaded.Policy.CutoffDate)

	override := sysfacts.Override{Base: newSystemProvider(), Version: opts.osVersion}
	if opts.now != "" {
		at, err := time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return nil, fmt.Errorf("invalid --now %q: expected RFC3339: %w", opts.now, err)
		}
		override.Time = at
	}

	return &session{cfg: cfg, loaded: loaded, provider: override, mode: mode}, nil
}

func resolvePolicyPath(flag string, cfg *config.Config, wd string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := cfg.PolicyPath(); p != "" {
		return p, nil
	}
	p, err := policy.Find(wd)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no policy file found: pass --policy, set policy in %s, or add one of %v", config.FileName, policy.FileNames)
		}
		return "", err
	}
	return p, nil
}

// evaluate collects fresh facts and evaluates them against the policy.
func (s *session) evaluate(ctx context.Context) (*evaluationReport, error) {
	fact, err := sysfacts.Fact(ctx, s.provider)
	if err != nil {
		return nil, fmt.Errorf("collecting system facts: %w", err)
	}
	verdict, err := compliance.Evaluate(fact, s.loaded.Policy)
	if err != nil {
		return nil, err
	}
	slog.Debug("Evaluated policy",
		"currentOSVersion", fact.CurrentOSVersion,
		"daysUntilCutoff", verdict.DaysUntilCutoff,
		"pastCutoff", verdict.IsPastCutoff,
		"dualClose", verdict.RequiresDualCloseButtons,
		"compliant", verdict.Compliant(s.mode))
	return newEvaluationReport(s.loaded, fact, verdict, s.mode), nil
}
