// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the operation that failed, the resource involved and
// remediation hints. Issue values hold longer Markdown guidance for the
// environment problems quixbuild detects before it starts any build, rendered
// to the terminal with glamour.
package issue
