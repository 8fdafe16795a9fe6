// Package version compares dot-separated numeric version strings such as
// "13.2.1". Components are compared as integers, so "10.10" sorts after
// "10.9", and a shorter string behaves as if padded with zero components.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVersionFormat is matched by every error returned for a version
// string that has a component which is not a non-negative integer.
var ErrInvalidVersionFormat = errors.New("invalid version format")

// FormatError describes which component of a version string failed to parse.
type FormatError struct {
	Input     string
	Index     int
	Component string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q has non-numeric component %d (%q)", ErrInvalidVersionFormat, e.Input, e.Index, e.Component)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidVersionFormat
}

// Ordering is the result of comparing two versions.
type Ordering int

const (
	OrderLess    Ordering = -1
	OrderEqual   Ordering = 0
	OrderGreater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case OrderLess:
		return "<"
	case OrderGreater:
		return ">"
	default:
		return "=="
	}
}

// Version is a parsed version string.
type Version []uint64

// Parse splits s on "." and parses every component as a base-10 unsigned
// integer. Empty components, signs, whitespace and pre-release suffixes are
// rejected rather than read as zero.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	v := make(Version, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, &FormatError{Input: s, Index: i, Component: p}
		}
		v[i] = n
	}
	return v, nil
}

// Major returns the leading component.
func (v Version) Major() uint64 {
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

// Compare orders v against other, treating missing trailing components as 0.
func (v Version) Compare(other Version) Ordering {
	n := max(len(v), len(other))
	for i := 0; i < n; i++ {
		a, b := v.at(i), other.at(i)
		if a < b {
			return OrderLess
		}
		if a > b {
			return OrderGreater
		}
	}
	return OrderEqual
}

func (v Version) at(i int) uint64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, ".")
}

// Compare parses both strings and orders a against b.
func Compare(a, b string) (Ordering, error) {
	va, err := Parse(a)
	if err != nil {
		return OrderEqual, err
	}
	vb, err := Parse(b)
	if err != nil {
		return OrderEqual, err
	}
	return va.Compare(vb), nil
}

// Equal reports whether a and b are the same version.
func Equal(a, b string) (bool, error) {
	return is(a, b, func(o Ordering) bool { return o == OrderEqual })
}

// GreaterThan reports whether a sorts after b.
func GreaterThan(a, b string) (bool, error) {
	return is(a, b, func(o Ordering) bool { return o == OrderGreater })
}

// GreaterThanOrEqual reports whether a is not older than b.
func GreaterThanOrEqual(a, b string) (bool, error) {
	return is(a, b, func(o Ordering) bool { return o != OrderLess })
}

// LessThan reports whether a sorts before b.
func LessThan(a, b string) (bool, error) {
	return is(a, b, func(o Ordering) bool { return o == OrderLess })
}

// LessThanOrEqual reports whether a is not newer than b.
func LessThanOrEqual(a, b string) (bool, error) {
	return is(a, b, func(o Ordering) bool { return o != OrderGreater })
}

func is(a, b string, pred func(Ordering) bool) (bool, error) {
	o, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return pred(o), nil
}

// Major returns the leading component of s. The whole string must be valid,
// not just its first component.
func Major(s string) (uint64, error) {
	v, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return v.Major(), nil
}

// FromComponents joins OS version components as "<major>.<minor>.<patch>".
func FromComponents(major, minor, patch int) string {
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}
