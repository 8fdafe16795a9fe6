// Package sysfacts supplies the machine facts a compliance evaluation needs:
// the wall clock and the running OS version.
package sysfacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nudgekit/nudge/internal/compliance"
	"github.com/nudgekit/nudge/internal/version"
)

//go:generate go tool mockgen -source=provider.go -destination=mock_provider.go -package=sysfacts

// ErrOSVersionUnavailable is returned when the OS does not report a version.
var ErrOSVersionUnavailable = errors.New("OS version unavailable")

// Provider reports facts about the machine.
type Provider interface {
	// Now returns the current wall-clock time.
	Now() time.Time
	// OSVersion returns the running OS version as "<major>.<minor>.<patch>".
	OSVersion(ctx context.Context) (string, error)
}

// Fact collects a fresh compliance.Fact from p.
func Fact(ctx context.Context, p Provider) (compliance.Fact, error) {
	v, err := p.OSVersion(ctx)
	if err != nil {
		return compliance.Fact{}, err
	}
	return compliance.Fact{CurrentDate: p.Now(), CurrentOSVersion: v}, nil
}

// System reads facts from the running machine.
type System struct {
	// GOOS defaults to runtime.GOOS.
	GOOS string
	// OSReleasePath defaults to /etc/os-release.
	OSReleasePath string

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

var _ Provider = (*System)(nil)

// NewSystem returns a Provider for the current machine.
func NewSystem() *System {
	return &System{
		GOOS:          runtime.GOOS,
		OSReleasePath: "/etc/os-release",
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

func (s *System) Now() time.Time { return time.Now() }

func (s *System) OSVersion(ctx context.Context) (string, error) {
	var (
		raw string
		err error
	)
	switch s.GOOS {
	case "darwin":
		raw, err = s.productVersion(ctx)
	default:
		raw, err = s.osReleaseVersion()
	}
	if err != nil {
		return "", err
	}
	return Normalize(raw)
}

func (s *System) productVersion(ctx context.Context) (string, error) {
	out, err := s.run(ctx, "sw_vers", "-productVersion")
	if err != nil {
		return "", fmt.Errorf("running sw_vers: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (s *System) osReleaseVersion() (string, error) {
	data, err := os.ReadFile(s.OSReleasePath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", s.OSReleasePath, err)
	}
	env, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", s.OSReleasePath, err)
	}
	if v := strings.TrimSpace(env["VERSION_ID"]); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: no VERSION_ID in %s", ErrOSVersionUnavailable, s.OSReleasePath)
}

// Normalize rewrites an OS-reported version as "<major>.<minor>.<patch>",
// filling absent components with 0 and dropping any beyond the third.
func Normalize(raw string) (string, error) {
	v, err := version.Parse(raw)
	if err != nil {
		return "", err
	}
	out := make(version.Version, 3)
	copy(out, v)
	return out.String(), nil
}

// Static reports fixed facts. A zero Time means the wall clock is used.
type Static struct {
	Time    time.Time
	Version string
}

var _ Provider = Static{}

func (s Static) Now() time.Time {
	if s.Time.IsZero() {
		return time.Now()
	}
	return s.Time
}

func (s Static) OSVersion(context.Context) (string, error) {
	if s.Version == "" {
		return "", ErrOSVersionUnavailable
	}
	return Normalize(s.Version)
}

// Override wraps base, replacing whichever facts are set in the override.
type Override struct {
	Base    Provider
	Time    time.Time
	Version string
}

var _ Provider = Override{}

func (o Override) Now() time.Time {
	if o.Time.IsZero() {
		return o.Base.Now()
	}
	return o.Time
}

func (o Override) OSVersion(ctx context.Context) (string, error) {
	if o.Version == "" {
		return o.Base.OSVersion(ctx)
	}
	return Normalize(o.Version)
}
