// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"errors"
	"fmt"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/issue"
	"github.com/quixcc/quixbuild/pkg/types"
)

const (
	CheckRepositoryRoot = "repository root"
	CheckPlatform       = "platform"
	CheckContainer      = "container engine"
	CheckPackagingTool  = "packaging tool"
)

var (
	// ErrNotRepositoryRoot means the working directory lacks the root marker.
	ErrNotRepositoryRoot = errors.New("not in the repository root")
	// ErrUnsupportedPlatform means the host OS is not POSIX.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrMissingDependency means a required host tool is absent or broken.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrNotImplemented is wrapped by NotImplementedError.
	ErrNotImplemented = errors.New("not implemented")
)

type (
	// PreconditionError is an environment check that failed before any build step ran.
	PreconditionError struct {
		Check string
		// Issue selects the help page shown for this failure.
		Issue issue.Id
		// Err wraps ErrNotRepositoryRoot, ErrUnsupportedPlatform or ErrMissingDependency.
		Err error
	}

	// StageError is an external step that failed.
	StageError struct {
		Stage Stage
		Err   error
	}

	// NotImplementedError is a requested feature that has no implementation.
	NotImplementedError struct {
		Feature string
	}
)

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s check failed: %v", e.Check, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Feature, ErrNotImplemented)
}

// Unwrap returns ErrNotImplemented for errors.Is() compatibility.
func (e *NotImplementedError) Unwrap() error { return ErrNotImplemented }

// ExitCodeFor maps a Run error to the process exit status.
func ExitCodeFor(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}

	var pre *PreconditionError
	var notImpl *NotImplementedError
	switch {
	case errors.As(err, &pre):
		return types.ExitPrecondition
	case errors.As(err, &notImpl):
		return types.ExitNotImplemented
	case errors.Is(err, config.ErrInvalidConfig):
		return types.ExitUsage
	default:
		return types.ExitFailure
	}
}

func newPreconditionError(check string, id issue.Id, sentinel, cause error) *PreconditionError {
	if cause == nil {
		return &PreconditionError{Check: check, Issue: id, Err: sentinel}
	}
	return &PreconditionError{Check: check, Issue: id, Err: fmt.Errorf("%w: %w", sentinel, cause)}
}
