// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestCLIExitCodesAreValidAndDistinct(t *testing.T) {
	t.Parallel()

	codes := []ExitCode{ExitSuccess, ExitFailure, ExitUsage, ExitPrecondition, ExitNotImplemented}
	seen := make(map[ExitCode]bool, len(codes))
	for _, c := range codes {
		if err := c.Validate(); err != nil {
			t.Errorf("ExitCode(%d).Validate() = %v", c, err)
		}
		if seen[c] {
			t.Errorf("exit code %d declared twice", c)
		}
		seen[c] = true
	}

	if !ExitSuccess.IsSuccess() {
		t.Error("ExitSuccess.IsSuccess() = false")
	}
	for _, c := range codes[1:] {
		if c.IsSuccess() {
			t.Errorf("ExitCode(%d).IsSuccess() = true", c)
		}
	}
}

func TestExitCodeValidateRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value     ExitCode
		wantValid bool
	}{
		{0, true},
		{255, true},
		{-1, false},
		{256, false},
	}

	for _, tt := range tests {
		err := tt.value.Validate()
		if (err == nil) != tt.wantValid {
			t.Errorf("ExitCode(%d).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
		}
		if err != nil && !errors.Is(err, ErrInvalidExitCode) {
			t.Errorf("ExitCode(%d).Validate() error does not wrap ErrInvalidExitCode: %v", tt.value, err)
		}
	}
}

func TestExitCodeIsTransient(t *testing.T) {
	t.Parallel()

	for code, want := range map[ExitCode]bool{0: false, 1: false, 125: true, 126: true, 127: false} {
		if got := code.IsTransient(); got != want {
			t.Errorf("ExitCode(%d).IsTransient() = %v, want %v", code, got, want)
		}
	}

	if got := ExitNotImplemented.String(); got != "70" {
		t.Errorf("ExitNotImplemented.String() = %q, want %q", got, "70")
	}
}
