// SPDX-License-Identifier: MPL-2.0

package hostcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/quixcc/quixbuild/pkg/types"
)

// ErrNotFound is wrapped by InvocationError when the executable is not on PATH.
var ErrNotFound = errors.New("executable not found")

type (
	// Command is a single host process invocation.
	Command struct {
		Name   string
		Args   []string
		Dir    string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Runner runs host commands.
	Runner interface {
		// Run executes cmd and waits for it. A non-zero exit is an *InvocationError.
		Run(ctx context.Context, cmd Command) error
		// Probe checks that name is on PATH and that running it with args succeeds.
		// Output is discarded.
		Probe(ctx context.Context, name string, args ...string) error
	}

	// InvocationError describes a host command that could not be started or
	// exited with a non-zero status.
	InvocationError struct {
		Command  string
		ExitCode types.ExitCode
		Err      error
	}

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// LookPathFunc resolves an executable name.
	LookPathFunc func(file string) (string, error)

	// Option configures an ExecRunner.
	Option func(*ExecRunner)

	// ExecRunner is the os/exec backed Runner.
	ExecRunner struct {
		execCommand ExecCommandFunc
		lookPath    LookPathFunc
	}
)

// Error implements the error interface.
func (e *InvocationError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying exec error.
func (e *InvocationError) Unwrap() error { return e.Err }

// String renders the command line.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// WithExecCommand replaces exec.CommandContext, for tests.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(r *ExecRunner) { r.execCommand = fn }
}

// WithLookPath replaces exec.LookPath, for tests.
func WithLookPath(fn LookPathFunc) Option {
	return func(r *ExecRunner) { r.lookPath = fn }
}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := r.execCommand(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	if err := c.Run(); err != nil {
		return newInvocationError(cmd.String(), err)
	}
	return nil
}

// Probe checks that name resolves on PATH and runs successfully with args.
func (r *ExecRunner) Probe(ctx context.Context, name string, args ...string) error {
	path, err := r.lookPath(name)
	if err != nil {
		return &InvocationError{Command: name, Err: fmt.Errorf("%w: %w", ErrNotFound, err)}
	}
	return r.Run(ctx, Command{Name: path, Args: args, Stdout: io.Discard, Stderr: io.Discard})
}

func newInvocationError(command string, err error) *InvocationError {
	ie := &InvocationError{Command: command, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ie.ExitCode = types.ExitCode(exitErr.ExitCode())
	}
	if errors.Is(err, exec.ErrNotFound) {
		ie.Err = fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return ie
}

// ParseCommandLine splits a configured command string into argv using POSIX
// shell quoting. $VAR and ${VAR} are expanded from the process environment.
func ParseCommandLine(line string) ([]string, error) {
	fields, err := shell.Fields(line, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("parse command %q: empty command", line)
	}
	return fields, nil
}

// FromLine builds a Command from a configured command string plus extra arguments.
func FromLine(line string, extra ...string) (Command, error) {
	fields, err := ParseCommandLine(line)
	if err != nil {
		return Command{}, err
	}
	return Command{Name: fields[0], Args: append(fields[1:], extra...)}, nil
}
