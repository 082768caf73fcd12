// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// transientMarkers are substrings of engine errors that usually clear up on
// a second attempt: network hiccups while pulling base images and storage
// driver races.
var transientMarkers = []string{
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"TLS handshake timeout",
	"error creating overlay mount",
	"error mounting layer",
	"OCI runtime error",
}

// IsTransientError reports whether err is a container engine error that may
// succeed on retry. Context cancellation is never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 125 is the engine's own "could not do it" status, as opposed to a
	// failing RUN step inside the Dockerfile.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 125 {
		return true
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
