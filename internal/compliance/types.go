// Package compliance decides whether a machine meets an OS update policy and
// how urgently the remediation prompt should escalate.
//
// Everything here is a pure function of a Fact and a Policy. Nothing is
// cached between calls, so the functions are safe for concurrent use.
package compliance

import (
	"errors"
	"fmt"
	"time"

	"github.com/nudgekit/nudge/internal/version"
)

var (
	// ErrMissingPolicyField is matched by errors for a policy that lacks a
	// required field.
	ErrMissingPolicyField = errors.New("missing policy field")
	// ErrMissingFactField is matched by errors for a fact that lacks a
	// required field.
	ErrMissingFactField = errors.New("missing fact field")
)

// MissingFieldError names the absent field.
type MissingFieldError struct {
	Field string
	kind  error
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return e.kind }

// Policy is the administrator's update requirement. It is treated as an
// immutable value once loaded.
type Policy struct {
	MinimumOSVersion string
	CutoffDate       time.Time
	// DualCloseThresholdDays is nil when the policy did not set it.
	DualCloseThresholdDays *int
}

// Validate reports the first missing or malformed field.
func (p Policy) Validate() error {
	if p.MinimumOSVersion == "" {
		return &MissingFieldError{Field: "minimum_os_version", kind: ErrMissingPolicyField}
	}
	if p.CutoffDate.IsZero() {
		return &MissingFieldError{Field: "cut_off_date", kind: ErrMissingPolicyField}
	}
	if p.DualCloseThresholdDays == nil {
		return &MissingFieldError{Field: "dual_close_trigger_threshold", kind: ErrMissingPolicyField}
	}
	if _, err := version.Parse(p.MinimumOSVersion); err != nil {
		return fmt.Errorf("policy minimum_os_version: %w", err)
	}
	return nil
}

// Threshold returns the dual-close threshold, or an error when it is unset.
func (p Policy) Threshold() (int, error) {
	if p.DualCloseThresholdDays == nil {
		return 0, &MissingFieldError{Field: "dual_close_trigger_threshold", kind: ErrMissingPolicyField}
	}
	return *p.DualCloseThresholdDays, nil
}

// Fact is what the host observed about the machine for one evaluation.
type Fact struct {
	CurrentDate      time.Time
	CurrentOSVersion string
}

// Validate reports the first missing or malformed field.
func (f Fact) Validate() error {
	if f.CurrentDate.IsZero() {
		return &MissingFieldError{Field: "current_date", kind: ErrMissingFactField}
	}
	if f.CurrentOSVersion == "" {
		return &MissingFieldError{Field: "current_os_version", kind: ErrMissingFactField}
	}
	if _, err := version.Parse(f.CurrentOSVersion); err != nil {
		return fmt.Errorf("current OS version: %w", err)
	}
	return nil
}

// Verdict is the outcome of one evaluation.
type Verdict struct {
	IsPastCutoff             bool `json:"isPastCutoff"`
	DaysUntilCutoff          int  `json:"daysUntilCutoff"`
	RequiresDualCloseButtons bool `json:"requiresDualCloseButtons"`
	// IsOSVersionCompliant compares the full dotted version.
	IsOSVersionCompliant bool `json:"isOSVersionCompliant"`
	// MeetsRequiredMajorVersion compares only the major component.
	MeetsRequiredMajorVersion bool `json:"meetsRequiredMajorVersion"`
}

// Compliant returns the compliance answer for the given comparison mode.
func (v *Verdict) Compliant(mode ComparisonMode) bool {
	if mode == ModeMajorOnly {
		return v.MeetsRequiredMajorVersion
	}
	return v.IsOSVersionCompliant
}
