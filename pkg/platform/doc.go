// SPDX-License-Identifier: MPL-2.0

// Package platform provides operating system classification helpers.
//
// quixbuild only drives builds from POSIX-compatible hosts, because the
// container runs bind-mount the working directory and the post-processing
// step shells out to binutils. IsPOSIX is the single place that decides
// which GOOS values qualify.
package platform
