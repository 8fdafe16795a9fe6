package main

import (
	"errors"
	"fmt"
	"os"
	_ "time/tzdata"
)

// Exit codes for different outcomes
const (
	ExitCompliant    = 0 // OS version meets the policy
	ExitNonCompliant = 1 // OS version is below the policy minimum
	ExitError        = 2 // Configuration, policy or input error
)

// NonCompliantError indicates that evaluation succeeded but the machine does
// not meet the policy.
type NonCompliantError struct {
	Message string
}

func (e *NonCompliantError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return ExitCompliant
	}
	var nonCompliant *NonCompliantError
	if errors.As(err, &nonCompliant) {
		return ExitNonCompliant
	}
	return ExitError
}
