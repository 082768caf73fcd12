// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that need a throwaway QUIX
// repository on disk. Helpers fail the test instead of returning errors.
package testutil
