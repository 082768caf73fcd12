// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the quixbuild command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/dispatch"
	"github.com/quixcc/quixbuild/internal/issue"
	"github.com/quixcc/quixbuild/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags holds the values of the root command's flags.
type rootFlags struct {
	dispatch.Flags
	verbose    bool
	dryRun     bool
	configPath string
}

// NewRootCommand creates the quixbuild command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "quixbuild",
		Short: "Build the QUIX compiler inside containers",
		Long: TitleStyle.Render("quixbuild") + SubtitleStyle.Render(" - Build the QUIX compiler inside containers") + `

quixbuild builds the debug and release toolchain images, runs a containerized
build with the repository mounted, and optionally strips the produced binaries.
It must be started from the repository root.

` + SubtitleStyle.Render("Modes (the first one given wins):") + `
  --clean-all   remove build output directories
  --snap        build the snap package with snapcraft
  --release     build images, then run a release build
  --debug       build images, then run a debug build
  (none)        build images only

` + SubtitleStyle.Render("Examples:") + `
  quixbuild --debug
  quixbuild --release --strip
  quixbuild --release --dry-run
  quixbuild doctor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), app, flags)
		},
	}

	f := rootCmd.Flags()
	f.BoolVar(&flags.CleanAll, "clean-all", false, "remove all build output directories")
	f.BoolVar(&flags.Snap, "snap", false, "build the snap package")
	f.BoolVar(&flags.Release, "release", false, "run a release build")
	f.BoolVar(&flags.Debug, "debug", false, "run a debug build")
	f.BoolVar(&flags.Strip, "strip", false, "strip binaries and shared libraries after a build")
	f.BoolVar(&flags.UPXBest, "upx-best", false, "pack release binaries with upx --best (not implemented)")
	f.BoolVar(&flags.dryRun, "dry-run", false, "print the stages that would run and exit")

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&flags.configPath, "config", "", "config file (default is ./"+config.ConfigFileName+")")

	rootCmd.AddCommand(newConfigCommand(app, flags))
	rootCmd.AddCommand(newDoctorCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with the status it reports.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		// Anything else comes from cobra's flag and argument parsing.
		os.Exit(int(types.ExitUsage))
	}
}

// errorHandler skips errors that runBuild already reported.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

func runBuild(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, wd, err := app.loadConfig(ctx, flags.configPath)
	if err != nil {
		renderFailure(app, err, flags.verbose, issue.ConfigLoadFailedId)
		return &ExitError{Code: types.ExitUsage}
	}

	logger := newLogger(app.stderr, cfg, flags.verbose)
	d := dispatch.New(cfg,
		dispatch.WithRunner(app.Runner),
		dispatch.WithEngineLookup(app.EngineLookup(cfg)),
		dispatch.WithLogger(logger),
		dispatch.WithInteractive(app.isTerminal()),
		dispatch.WithIO(app.stdin, app.stdout, app.stderr),
	)

	inv := dispatch.Invocation{WorkDir: wd, GOOS: app.goos, Flags: flags.Flags}
	mode := dispatch.ResolveMode(inv.Flags)

	if flags.dryRun {
		printPlan(app.stdout, mode, d.Plan(inv))
		return nil
	}

	if err := d.Run(ctx, inv); err != nil {
		renderFailure(app, err, flags.verbose, 0)
		return &ExitError{Code: dispatch.ExitCodeFor(err)}
	}

	fmt.Fprintln(app.stdout, SuccessStyle.Render("✓ "+doneMessage(mode)))
	return nil
}

func doneMessage(mode dispatch.Mode) string {
	switch mode {
	case dispatch.ModeCleanAll:
		return "Build outputs removed"
	case dispatch.ModeSnap:
		return "Snap package built"
	case dispatch.ModeRelease:
		return "Release build finished"
	case dispatch.ModeDebug:
		return "Debug build finished"
	default:
		return "Toolchain images are up to date"
	}
}

func printPlan(w io.Writer, mode dispatch.Mode, stages []dispatch.Stage) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Mode:"), mode)
	for i, s := range stages {
		fmt.Fprintf(w, "  %d. %s\n", i+1, CmdStyle.Render(s.String()))
	}
	fmt.Fprintln(w, SubtitleStyle.Render("(dry run, nothing was executed)"))
}

// newLogger creates the stderr logger. --verbose forces debug level.
func newLogger(w io.Writer, cfg *config.Config, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: config.AppName})
	level, err := log.ParseLevel(cfg.Log.Level.String())
	if err != nil {
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}
