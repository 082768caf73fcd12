// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsPOSIX(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos string
		want bool
	}{
		{Linux, true},
		{Darwin, true},
		{"freebsd", true},
		{"openbsd", true},
		{"illumos", true},
		{Windows, false},
		{Plan9, false},
		{JS, false},
		{WASIP1, false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()
			if got := IsPOSIX(tt.goos); got != tt.want {
				t.Errorf("IsPOSIX(%q) = %v, want %v", tt.goos, got, tt.want)
			}
		})
	}
}
