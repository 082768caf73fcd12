// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container runtime to use.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// LogLevel is the minimum level of log lines written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidConfigError collects field-level validation errors of a Config.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// ImageConfig names a container image and the Dockerfile that builds it.
	ImageConfig struct {
		Tag        string `toml:"tag" mapstructure:"tag"`
		Dockerfile string `toml:"dockerfile" mapstructure:"dockerfile"`
	}

	// ImagesConfig holds the three images a build uses.
	ImagesConfig struct {
		Debug   ImageConfig `toml:"debug" mapstructure:"debug"`
		Release ImageConfig `toml:"release" mapstructure:"release"`
		// Runner is rebuilt after a successful debug or release run.
		Runner ImageConfig `toml:"runner" mapstructure:"runner"`
	}

	// ContainerConfig configures the container engine and container runs.
	ContainerConfig struct {
		Engine ContainerEngine `toml:"engine" mapstructure:"engine"`
		// MountPath is where the working directory appears inside the container.
		MountPath string `toml:"mount_path" mapstructure:"mount_path"`
		// BuildAttempts is the number of tries for an image build that fails
		// with a transient engine error.
		BuildAttempts int `toml:"build_attempts" mapstructure:"build_attempts"`
	}

	// OutputConfig locates build artifacts for post-processing.
	OutputConfig struct {
		BinDir     string `toml:"bin_dir" mapstructure:"bin_dir"`
		LibDir     string `toml:"lib_dir" mapstructure:"lib_dir"`
		LibPattern string `toml:"lib_pattern" mapstructure:"lib_pattern"`
	}

	// CommandConfig is a host command line, split with POSIX shell rules.
	CommandConfig struct {
		Command string `toml:"command" mapstructure:"command"`
	}

	LogConfig struct {
		Level LogLevel `toml:"level" mapstructure:"level"`
	}

	// Config is the complete quixbuild configuration.
	Config struct {
		// RootMarker is the directory that must exist in the working directory.
		RootMarker string          `toml:"root_marker" mapstructure:"root_marker"`
		CleanDirs  []string        `toml:"clean_dirs" mapstructure:"clean_dirs"`
		Container  ContainerConfig `toml:"container" mapstructure:"container"`
		Images     ImagesConfig    `toml:"images" mapstructure:"images"`
		Output     OutputConfig    `toml:"output" mapstructure:"output"`
		Snap       CommandConfig   `toml:"snap" mapstructure:"snap"`
		Strip      CommandConfig   `toml:"strip" mapstructure:"strip"`
		Log        LogConfig       `toml:"log" mapstructure:"log"`
	}
)

// IsValid returns whether the ContainerEngine is one of the defined engine types.
func (ce ContainerEngine) IsValid() (bool, []error) {
	switch ce {
	case ContainerEngineDocker, ContainerEnginePodman:
		return true, nil
	default:
		return false, []error{&InvalidContainerEngineError{Value: ce}}
	}
}

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// Error implements the error interface for InvalidContainerEngineError.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: docker, podman)", e.Value)
}

// Unwrap returns ErrInvalidContainerEngine for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// IsValid returns whether the LogLevel is recognized.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

func (l LogLevel) String() string { return string(l) }

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid checks values that may arrive through environment variables and so
// bypass the file schema.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Container.Engine.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Container.BuildAttempts < 1 {
		errs = append(errs, fmt.Errorf("container.build_attempts must be at least 1, got %d", c.Container.BuildAttempts))
	}
	if !path.IsAbs(c.Container.MountPath) {
		errs = append(errs, fmt.Errorf("container.mount_path must be absolute, got %q", c.Container.MountPath))
	}
	if strings.TrimSpace(c.RootMarker) == "" {
		errs = append(errs, errors.New("root_marker must not be empty"))
	}
	for _, img := range []struct {
		name string
		ImageConfig
	}{{"debug", c.Images.Debug}, {"release", c.Images.Release}, {"runner", c.Images.Runner}} {
		if img.Tag == "" || img.Dockerfile == "" {
			errs = append(errs, fmt.Errorf("images.%s needs both tag and dockerfile", img.name))
		}
	}
	if _, err := path.Match(strings.ToLower(c.Output.LibPattern), ""); err != nil {
		errs = append(errs, fmt.Errorf("output.lib_pattern %q: %w", c.Output.LibPattern, err))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}
