// SPDX-License-Identifier: MPL-2.0

// Package container provides an abstraction layer for the container engines
// (Docker/Podman) that host the QUIX build environments.
//
// The Engine interface covers what the build modes need: Build an environment
// image from a Dockerfile, Run an image with the repository bind-mounted,
// probe availability and version, and check whether an image already exists.
// DockerEngine and PodmanEngine both embed BaseCLIEngine, which owns argument
// construction and command execution.
//
// NewEngine selects an engine by preference and falls back to the other one
// when the preferred engine is not installed.
package container
