// SPDX-License-Identifier: MPL-2.0

package platform

import "slices"

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
	Plan9   = "plan9"
	JS      = "js"
	WASIP1  = "wasip1"
)

// posixFamily lists the GOOS values treated as Unix-like.
var posixFamily = []string{
	Linux, Darwin,
	"freebsd", "netbsd", "openbsd", "dragonfly",
	"solaris", "illumos", "aix", "android", "ios",
}

// IsPOSIX reports whether goos names a Unix-like operating system.
func IsPOSIX(goos string) bool {
	return slices.Contains(posixFamily, goos)
}
