// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/quixcc/quixbuild/pkg/types"
)

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"

	// SELinuxLabelNone means no SELinux label is applied to volume mounts.
	SELinuxLabelNone SELinuxLabel = ""
	// SELinuxLabelShared allows sharing the volume between containers.
	SELinuxLabelShared SELinuxLabel = "z"
	// SELinuxLabelPrivate restricts the volume to a single container.
	SELinuxLabelPrivate SELinuxLabel = "Z"
)

var (
	// ErrInvalidBuildOptions is wrapped by BuildOptions.Validate failures.
	ErrInvalidBuildOptions = errors.New("invalid build options")
	// ErrInvalidRunOptions is wrapped by RunOptions.Validate failures.
	ErrInvalidRunOptions = errors.New("invalid run options")
)

type (
	// Engine defines the container operations used by the build modes.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// Available reports whether the engine binary is installed and invocable.
		Available() bool
		// Version returns the engine version.
		Version(ctx context.Context) (string, error)
		// Build builds an image from a Dockerfile.
		Build(ctx context.Context, opts BuildOptions) error
		// Run runs an image to completion. A non-zero container exit status is
		// reported in RunResult.ExitCode, not as an error.
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
		// ImageExists reports whether an image with the given tag is present locally.
		ImageExists(ctx context.Context, image string) (bool, error)
	}

	// EngineType identifies the container engine type.
	EngineType string

	// SELinuxLabel represents an SELinux volume labeling option.
	SELinuxLabel string

	// VolumeMount is a bind mount of a host path into the container.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		ReadOnly      bool
		SELinux       SELinuxLabel
	}

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		// ContextDir is the build context directory.
		ContextDir string
		// Dockerfile is the path to the Dockerfile, relative to ContextDir unless absolute.
		Dockerfile string
		// Tag is the image tag.
		Tag string
		// BuildArgs are build-time variables.
		BuildArgs map[string]string
		// NoCache disables the build cache.
		NoCache bool
		// Stdout is where to write build output.
		Stdout io.Writer
		// Stderr is where to write build errors.
		Stderr io.Writer
	}

	// RunOptions contains options for running a container.
	RunOptions struct {
		// Image is the image to run.
		Image string
		// Command overrides the image entrypoint arguments when non-empty.
		Command []string
		// WorkDir is the working directory inside the container.
		WorkDir string
		// Env contains environment variables.
		Env map[string]string
		// Volumes are bind mounts.
		Volumes []VolumeMount
		// Remove automatically removes the container after exit.
		Remove bool
		// Name is the container name.
		Name string
		// Interactive keeps stdin open.
		Interactive bool
		// TTY allocates a pseudo-TTY.
		TTY bool

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// RunResult contains the result of running a container.
	RunResult struct {
		// ExitCode is the container's exit status.
		ExitCode types.ExitCode
		// Error is set when the engine itself could not be started.
		Error error
	}

	// ErrEngineNotAvailable is returned when no usable container engine is found.
	ErrEngineNotAvailable struct {
		Engine string
		Reason string
	}
)

// String returns the volume mount in "host:container[:options]" format.
func (v VolumeMount) String() string {
	var options []string
	if v.ReadOnly {
		options = append(options, "ro")
	}
	if v.SELinux != SELinuxLabelNone {
		options = append(options, string(v.SELinux))
	}

	s := v.HostPath + ":" + v.ContainerPath
	if len(options) > 0 {
		s += ":" + strings.Join(options, ",")
	}
	return s
}

// Validate checks that both mount paths are set and the label is known.
func (v VolumeMount) Validate() error {
	if strings.TrimSpace(v.HostPath) == "" {
		return fmt.Errorf("volume mount: host path must be non-empty")
	}
	if strings.TrimSpace(v.ContainerPath) == "" {
		return fmt.Errorf("volume mount: container path must be non-empty")
	}
	switch v.SELinux {
	case SELinuxLabelNone, SELinuxLabelShared, SELinuxLabelPrivate:
		return nil
	default:
		return fmt.Errorf("volume mount: invalid SELinux label %q (valid: empty, z, Z)", v.SELinux)
	}
}

// Validate checks the fields a build cannot do without.
func (o BuildOptions) Validate() error {
	var errs []error
	if strings.TrimSpace(o.ContextDir) == "" {
		errs = append(errs, errors.New("context directory must be non-empty"))
	}
	if strings.TrimSpace(o.Tag) == "" {
		errs = append(errs, errors.New("image tag must be non-empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidBuildOptions, errors.Join(errs...))
	}
	return nil
}

// Validate checks the image name and every volume mount.
func (o RunOptions) Validate() error {
	var errs []error
	if strings.TrimSpace(o.Image) == "" {
		errs = append(errs, errors.New("image must be non-empty"))
	}
	for _, v := range o.Volumes {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRunOptions, errors.Join(errs...))
	}
	return nil
}

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// ParseEngineType converts a configuration value to an EngineType.
func ParseEngineType(s string) (EngineType, error) {
	switch t := EngineType(strings.ToLower(strings.TrimSpace(s))); t {
	case EngineTypeDocker, EngineTypePodman:
		return t, nil
	case "":
		return EngineTypeDocker, nil
	default:
		return "", fmt.Errorf("unknown container engine type: %s", s)
	}
}

// NewEngine returns the preferred engine if it is available, falling back to
// the other supported engine.
func NewEngine(preferredType EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	docker := func() Engine { return NewDockerEngine(opts...) }
	podman := func() Engine { return NewPodmanEngine(opts...) }

	var order []func() Engine
	switch preferredType {
	case EngineTypeDocker:
		order = []func() Engine{docker, podman}
	case EngineTypePodman:
		order = []func() Engine{podman, docker}
	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}

	for _, candidate := range order {
		if engine := candidate(); engine.Available() {
			return engine, nil
		}
	}

	other := EngineTypePodman
	if preferredType == EngineTypePodman {
		other = EngineTypeDocker
	}
	return nil, &ErrEngineNotAvailable{
		Engine: string(preferredType),
		Reason: fmt.Sprintf("%s is not installed or not invocable, and %s fallback is also not available", preferredType, other),
	}
}
