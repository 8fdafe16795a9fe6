// Package policy loads the administrator's update policy from a prefs file
// and turns it into a compliance.Policy.
//
// A prefs file is YAML or JSON:
//
//	minimum_os_version: "14.1"
//	cut_off_date: "2024-03-01-17:00:00"
//	dual_close_trigger_threshold: 3
//
// Loading is all-or-nothing: a schema problem, an unparseable cutoff date or
// a malformed minimum version fails the whole load.
package policy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/nudgekit/nudge/internal/compliance"
)

// CutoffDateLayout is the layout of cut_off_date, yyyy-MM-dd-HH:mm:ss.
const CutoffDateLayout = "2006-01-02-15:04:05"

// FileNames are searched, in order, by Find.
var FileNames = []string{"nudge-policy.yaml", "nudge-policy.yml", "nudge-policy.json"}

var (
	// ErrInvalidPolicy is matched by schema and decoding failures.
	ErrInvalidPolicy = errors.New("invalid policy")
	// ErrInvalidCutoffDate is matched when cut_off_date does not parse.
	ErrInvalidCutoffDate = errors.New("invalid cut_off_date")
)

// SchemaError lists every schema violation found in a policy document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPolicy, strings.Join(e.Problems, "; "))
}

func (e *SchemaError) Unwrap() error { return ErrInvalidPolicy }

// Prefs mirrors the keys of a policy file.
type Prefs struct {
	MinimumOSVersion          string `mapstructure:"minimum_os_version"`
	CutOffDate                string `mapstructure:"cut_off_date"`
	DualCloseTriggerThreshold *int   `mapstructure:"dual_close_trigger_threshold"`
	MoreInfoURL               string `mapstructure:"more_info_url"`
	MainHeader                string `mapstructure:"main_header"`
}

// Loaded is a policy ready for evaluation along with where it came from.
type Loaded struct {
	Path   string
	Prefs  Prefs
	Policy compliance.Policy
}

// LoadFile reads and parses the policy at path. Cutoff dates are interpreted
// in loc; a nil loc means time.Local.
func LoadFile(path string, loc *time.Location) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy %q: %w", path, err)
	}
	l, err := Parse(data, loc)
	if err != nil {
		return nil, fmt.Errorf("loading policy %q: %w", path, err)
	}
	l.Path = path
	return l, nil
}

// Parse decodes a policy document, checks it against the policy schema and
// converts it into a validated compliance.Policy.
func Parse(data []byte, loc *time.Location) (*Loaded, error) {
	prefs, err := decode(data)
	if err != nil {
		return nil, err
	}
	p, err := prefs.Policy(loc)
	if err != nil {
		return nil, err
	}
	return &Loaded{Prefs: *prefs, Policy: p}, nil
}

// Policy converts the raw prefs into a validated compliance.Policy.
func (p Prefs) Policy(loc *time.Location) (compliance.Policy, error) {
	if loc == nil {
		loc = time.Local
	}
	out := compliance.Policy{
		MinimumOSVersion:       p.MinimumOSVersion,
		DualCloseThresholdDays: p.DualCloseTriggerThreshold,
	}
	if p.CutOffDate != "" {
		cutoff, err := time.ParseInLocation(CutoffDateLayout, p.CutOffDate, loc)
		if err != nil {
			return compliance.Policy{}, fmt.Errorf("%w %q: expected yyyy-MM-dd-HH:mm:ss: %v", ErrInvalidCutoffDate, p.CutOffDate, err)
		}
		out.CutoffDate = cutoff
	}
	if err := out.Validate(); err != nil {
		return compliance.Policy{}, err
	}
	return out, nil
}

// Validate returns every problem found in a policy document, one per line,
// or nil when it is usable.
func Validate(data []byte) []string {
	prefs, err := decode(data)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			return se.Problems
		}
		return []string{err.Error()}
	}

	if _, err := prefs.Policy(time.UTC); err != nil {
		return []string{err.Error()}
	}
	return nil
}

func decode(data []byte) (*Prefs, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaError{Problems: []string{fmt.Sprintf("YAML parse error: %v", err)}}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if problems := validateAgainstSchema(doc); len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}

	var prefs Prefs
	if err := mapstructure.Decode(doc, &prefs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return &prefs, nil
}

// Find walks up from startDir (max 10 levels) looking for a policy file and
// returns its path. It returns os.ErrNotExist if none is found.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", startDir, err)
	}

	for i := 0; i < 10; i++ {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			info, err := os.Stat(p)
			if err == nil && !info.IsDir() {
				return p, nil
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("checking %q: %w", p, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}
