package compliance

import (
	"fmt"
	"time"

	"github.com/nudgekit/nudge/internal/version"
)

// ComparisonMode selects how the current OS version is held against the
// policy minimum.
type ComparisonMode int

const (
	// ModeFullVersion compares every dotted component.
	ModeFullVersion ComparisonMode = iota
	// ModeMajorOnly compares only the leading component of each version, so
	// a minimum of "13.5" is met by "13.2".
	ModeMajorOnly
)

func (m ComparisonMode) String() string {
	if m == ModeMajorOnly {
		return "major"
	}
	return "full"
}

// ParseComparisonMode accepts "full" or "major".
func ParseComparisonMode(s string) (ComparisonMode, error) {
	switch s {
	case "full", "":
		return ModeFullVersion, nil
	case "major":
		return ModeMajorOnly, nil
	default:
		return ModeFullVersion, fmt.Errorf("invalid comparison mode %q: expected full or major", s)
	}
}

// IsOSVersionCompliant reports whether the current OS version is at least the
// policy minimum, comparing full versions.
func IsOSVersionCompliant(fact Fact, policy Policy) (bool, error) {
	if policy.MinimumOSVersion == "" {
		return false, &MissingFieldError{Field: "minimum_os_version", kind: ErrMissingPolicyField}
	}
	return version.GreaterThanOrEqual(fact.CurrentOSVersion, policy.MinimumOSVersion)
}

// IsMajorVersionCompliant reports whether the current OS major version is at
// least the major version of the policy minimum.
func IsMajorVersionCompliant(fact Fact, policy Policy) (bool, error) {
	if policy.MinimumOSVersion == "" {
		return false, &MissingFieldError{Field: "minimum_os_version", kind: ErrMissingPolicyField}
	}
	required, err := version.Major(policy.MinimumOSVersion)
	if err != nil {
		return false, err
	}
	current, err := version.Major(fact.CurrentOSVersion)
	if err != nil {
		return false, err
	}
	return current >= required, nil
}

// IsCompliant dispatches to the comparison selected by mode.
func IsCompliant(fact Fact, policy Policy, mode ComparisonMode) (bool, error) {
	if mode == ModeMajorOnly {
		return IsMajorVersionCompliant(fact, policy)
	}
	return IsOSVersionCompliant(fact, policy)
}

// DaysUntilCutoff is the number of calendar days from the current date to the
// cutoff date, negative once the cutoff day has passed. Both dates are
// truncated to the start of their day in the current date's location.
func DaysUntilCutoff(fact Fact, policy Policy) (int, error) {
	if fact.CurrentDate.IsZero() {
		return 0, &MissingFieldError{Field: "current_date", kind: ErrMissingFactField}
	}
	if policy.CutoffDate.IsZero() {
		return 0, &MissingFieldError{Field: "cut_off_date", kind: ErrMissingPolicyField}
	}
	loc := fact.CurrentDate.Location()
	return int(civilDay(policy.CutoffDate.In(loc)) - civilDay(fact.CurrentDate)), nil
}

// civilDay numbers the calendar date of t, ignoring time of day and any DST
// offset change.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// IsPastCutoff reports whether the current instant is after the cutoff
// instant. Unlike DaysUntilCutoff this compares full timestamps, so it is
// already true during the cutoff day itself.
func IsPastCutoff(fact Fact, policy Policy) (bool, error) {
	if fact.CurrentDate.IsZero() {
		return false, &MissingFieldError{Field: "current_date", kind: ErrMissingFactField}
	}
	if policy.CutoffDate.IsZero() {
		return false, &MissingFieldError{Field: "cut_off_date", kind: ErrMissingPolicyField}
	}
	return fact.CurrentDate.After(policy.CutoffDate), nil
}

// RequiresDualCloseButtons reports whether the remaining days have dropped to
// or below the policy threshold.
func RequiresDualCloseButtons(fact Fact, policy Policy) (bool, error) {
	threshold, err := policy.Threshold()
	if err != nil {
		return false, err
	}
	days, err := DaysUntilCutoff(fact, policy)
	if err != nil {
		return false, err
	}
	return threshold >= days, nil
}

// Evaluate validates the inputs and computes the full verdict.
func Evaluate(fact Fact, policy Policy) (*Verdict, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := fact.Validate(); err != nil {
		return nil, err
	}

	var (
		v   Verdict
		err error
	)
	if v.IsOSVersionCompliant, err = IsOSVersionCompliant(fact, policy); err != nil {
		return nil, err
	}
	if v.MeetsRequiredMajorVersion, err = IsMajorVersionCompliant(fact, policy); err != nil {
		return nil, err
	}
	if v.DaysUntilCutoff, err = DaysUntilCutoff(fact, policy); err != nil {
		return nil, err
	}
	if v.IsPastCutoff, err = IsPastCutoff(fact, policy); err != nil {
		return nil, err
	}
	threshold, err := policy.Threshold()
	if err != nil {
		return nil, err
	}
	v.RequiresDualCloseButtons = threshold >= v.DaysUntilCutoff
	return &v, nil
}
