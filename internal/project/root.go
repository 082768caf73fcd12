// SPDX-License-Identifier: MPL-2.0

// Package project knows the layout of the QUIX repository: how to recognise
// its root and which directories hold build output.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRootMarker is the directory whose presence identifies the repository root.
const DefaultRootMarker = "libnitrate-parser"

// DefaultCleanDirs are the build output directories removed by a full clean.
var DefaultCleanDirs = []string{".build", "build"}

var (
	// ErrNoRootMarker is returned when the working directory lacks the root marker.
	ErrNoRootMarker = errors.New("repository root marker not found")
	// ErrOutsideRoot is returned for clean targets that resolve outside the root.
	ErrOutsideRoot = errors.New("path escapes the repository root")
)

// CheckRoot reports whether dir contains marker. Only dir itself is checked;
// parents are not searched, since container runs mount dir as the source tree.
func CheckRoot(dir, marker string) error {
	if marker == "" {
		marker = DefaultRootMarker
	}
	if _, err := os.Stat(filepath.Join(dir, marker)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s in %s", ErrNoRootMarker, marker, dir)
		}
		return fmt.Errorf("check repository root %s: %w", dir, err)
	}
	return nil
}

// Clean removes each output directory under root. Missing directories are
// skipped, so running it twice is harmless. It returns the directories that
// existed and were removed.
func Clean(root string, dirs []string) ([]string, error) {
	var removed []string
	for _, d := range dirs {
		target, err := resolveInside(root, d)
		if err != nil {
			return removed, err
		}

		if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return removed, fmt.Errorf("remove %s: %w", d, err)
		}
		removed = append(removed, d)
	}
	return removed, nil
}

// resolveInside joins rel onto root and rejects results outside root,
// including root itself.
func resolveInside(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s is absolute", ErrOutsideRoot, rel)
	}
	target := filepath.Join(root, rel)
	back, err := filepath.Rel(root, target)
	if err != nil || back == "." || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return target, nil
}
