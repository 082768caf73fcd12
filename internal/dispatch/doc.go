// SPDX-License-Identifier: MPL-2.0

// Package dispatch turns a set of build flags into one build mode and drives
// the external steps that mode needs: image builds, container runs, snap
// packaging and artifact stripping.
//
// Every run checks its preconditions first, in a fixed order: the working
// directory must be the repository root, then a clean is served, then the host
// must be POSIX and a container engine must answer. Steps run strictly in
// sequence and the first failing step ends the run; nothing is rolled back.
package dispatch
