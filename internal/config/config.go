// Package config provides the Config struct and loader for .nudge.yaml
// host configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the host configuration file looked up by Load.
const FileName = ".nudge.yaml"

// Default values for host configuration. New() references them and no other
// code should duplicate them.
const (
	DefaultFormat              = "auto"
	DefaultMode                = "full"
	DefaultLocation            = "Local"
	DefaultWatchInterval       = "30m"
	DefaultApproachingInterval = "5m"
)

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	Format string `yaml:"format,omitempty"`
}

// EvaluationConfig holds how policies are interpreted.
type EvaluationConfig struct {
	// Mode is "full" or "major".
	Mode string `yaml:"mode,omitempty"`
	// Location is the IANA zone cut_off_date is written in.
	Location string `yaml:"location,omitempty"`
}

// WatchConfig holds poll intervals for nudge watch.
type WatchConfig struct {
	Interval            string `yaml:"interval,omitempty"`
	ApproachingInterval string `yaml:"approaching_interval,omitempty"`
	ExitWhenCompliant   *bool  `yaml:"exit_when_compliant,omitempty"`
}

// Config is the top-level configuration loaded from .nudge.yaml.
type Config struct {
	Policy     string           `yaml:"policy,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
	Evaluation EvaluationConfig `yaml:"evaluation,omitempty"`
	Watch      WatchConfig      `yaml:"watch,omitempty"`

	// dir is where the file was found; relative policy paths resolve from it.
	dir string
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Output: OutputConfig{Format: DefaultFormat},
		Evaluation: EvaluationConfig{
			Mode:     DefaultMode,
			Location: DefaultLocation,
		},
		Watch: WatchConfig{
			Interval:            DefaultWatchInterval,
			ApproachingInterval: DefaultApproachingInterval,
			ExitWhenCompliant:   boolPtr(true),
		},
	}
}

// Load finds .nudge.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
func Load(startDir string) (*Config, error) {
	cfg := New()

	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	mergeConfig(cfg, &fileCfg)
	cfg.dir = filepath.Dir(path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be enforced by the YAML types.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("output.format %q: expected auto, text or json", c.Output.Format)
	}
	switch c.Evaluation.Mode {
	case "full", "major":
	default:
		return fmt.Errorf("evaluation.mode %q: expected full or major", c.Evaluation.Mode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.WatchInterval(); err != nil {
		return err
	}
	if _, err := c.ApproachingInterval(); err != nil {
		return err
	}
	return nil
}

// PolicyPath returns the configured policy path, resolved against the
// directory the config file was found in. Empty when not configured.
func (c *Config) PolicyPath() string {
	if c.Policy == "" || filepath.IsAbs(c.Policy) || c.dir == "" {
		return c.Policy
	}
	return filepath.Join(c.dir, c.Policy)
}

// Location returns the zone cutoff dates are parsed in.
func (c *Config) Location() (*time.Location, error) {
	if c.Evaluation.Location == "" || c.Evaluation.Location == DefaultLocation {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Evaluation.Location)
	if err != nil {
		return nil, fmt.Errorf("evaluation.location: %w", err)
	}
	return loc, nil
}

// WatchInterval is the poll interval while the cutoff is still far away.
func (c *Config) WatchInterval() (time.Duration, error) {
	return parsePositiveDuration("watch.interval", c.Watch.Interval)
}

// ApproachingInterval is the poll interval once dual-close escalation applies.
func (c *Config) ApproachingInterval() (time.Duration, error) {
	return parsePositiveDuration("watch.approaching_interval", c.Watch.ApproachingInterval)
}

func parsePositiveDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, s)
	}
	return d, nil
}

// findConfigFile walks up from dir looking for .nudge.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Real I/O errors are
// propagated.
func findConfigFile(dir string) (string, []byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	if src.Policy != "" {
		dst.Policy = src.Policy
	}

	if src.Output.Format != "" {
		dst.Output.Format = src.Output.Format
	}

	if src.Evaluation.Mode != "" {
		dst.Evaluation.Mode = src.Evaluation.Mode
	}
	if src.Evaluation.Location != "" {
		dst.Evaluation.Location = src.Evaluation.Location
	}

	if src.Watch.Interval != "" {
		dst.Watch.Interval = src.Watch.Interval
	}
	if src.Watch.ApproachingInterval != "" {
		dst.Watch.ApproachingInterval = src.Watch.ApproachingInterval
	}
	if src.Watch.ExitWhenCompliant != nil {
		dst.Watch.ExitWhenCompliant = src.Watch.ExitWhenCompliant
	}
}

func boolPtr(b bool) *bool {
	return &b
}
