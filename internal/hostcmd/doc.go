// SPDX-License-Identifier: MPL-2.0

// Package hostcmd runs executables on the host: the packaging tool for snap
// builds and the strip utility used by post-processing.
//
// Every failure is reported as an *InvocationError carrying the command line
// and exit status, so callers decide whether a failure is fatal without
// inspecting exec internals. Command strings from configuration are split
// with POSIX shell quoting rules by ParseCommandLine.
package hostcmd
