// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/dispatch"
	"github.com/quixcc/quixbuild/internal/hostcmd"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. Every cobra handler
	// receives an App and reads the environment only through it.
	App struct {
		Config       ConfigProvider
		Runner       hostcmd.Runner
		EngineLookup func(*config.Config) dispatch.EngineLookup

		isTerminal func() bool
		getwd      func() (string, error)
		goos       string
		stdin      io.Reader
		stdout     io.Writer
		stderr     io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config       ConfigProvider
		Runner       hostcmd.Runner
		EngineLookup func(*config.Config) dispatch.EngineLookup
		// IsTerminal reports whether container runs get an interactive TTY.
		IsTerminal func() bool
		Getwd      func() (string, error)
		// GOOS overrides runtime.GOOS.
		GOOS   string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Runner == nil {
		deps.Runner = hostcmd.NewExecRunner()
	}
	if deps.EngineLookup == nil {
		deps.EngineLookup = dispatch.DefaultEngineLookup
	}
	if deps.IsTerminal == nil {
		deps.IsTerminal = stdioIsTerminal
	}
	if deps.Getwd == nil {
		deps.Getwd = os.Getwd
	}
	if deps.GOOS == "" {
		deps.GOOS = runtime.GOOS
	}
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}

	return &App{
		Config:       deps.Config,
		Runner:       deps.Runner,
		EngineLookup: deps.EngineLookup,
		isTerminal:   deps.IsTerminal,
		getwd:        deps.Getwd,
		goos:         deps.GOOS,
		stdin:        deps.Stdin,
		stdout:       deps.Stdout,
		stderr:       deps.Stderr,
	}
}

// stdioIsTerminal reports whether both stdin and stdout are terminals, which
// is what "docker run -it" needs.
func stdioIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// loadConfig loads configuration for the current working directory.
func (a *App) loadConfig(ctx context.Context, configPath string) (*config.Config, string, error) {
	wd, err := a.getwd()
	if err != nil {
		return nil, "", err
	}
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: configPath, WorkDir: wd})
	if err != nil {
		return nil, wd, err
	}
	return cfg, wd, nil
}
