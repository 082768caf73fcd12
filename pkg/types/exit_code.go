// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared between quixbuild packages.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Exit codes returned by the quixbuild CLI.
const (
	// ExitSuccess is returned when the selected mode completed, including the
	// image pre-warm path where no mode flag was given.
	ExitSuccess ExitCode = 0
	// ExitFailure is returned when an image build, container run or packaging
	// build reported a failure status.
	ExitFailure ExitCode = 1
	// ExitUsage is returned for invalid flags or an invalid configuration.
	ExitUsage ExitCode = 2
	// ExitPrecondition is returned when the environment is unsuitable: wrong
	// directory, unsupported platform or a missing executable.
	ExitPrecondition ExitCode = 3
	// ExitNotImplemented is returned when a requested feature has no
	// implementation (sysexits EX_SOFTWARE).
	ExitNotImplemented ExitCode = 70
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// IsTransient returns true if the exit code indicates a transient container
// engine error that may succeed on retry (codes 125 and 126).
func (c ExitCode) IsTransient() bool { return c == 125 || c == 126 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
