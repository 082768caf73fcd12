// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/container"
	"github.com/quixcc/quixbuild/internal/hostcmd"
	"github.com/quixcc/quixbuild/internal/issue"
	"github.com/quixcc/quixbuild/internal/postprocess"
	"github.com/quixcc/quixbuild/internal/project"
	"github.com/quixcc/quixbuild/pkg/platform"
)

type (
	// EngineLookup finds a usable container engine. It is only called after
	// the repository root and platform checks pass.
	EngineLookup func(ctx context.Context) (container.Engine, error)

	// Stripper strips build artifacts. Failures are reported in the Report.
	Stripper interface {
		Strip(ctx context.Context, opts postprocess.Options) postprocess.Report
	}

	// Option configures a Dispatcher.
	Option func(*Dispatcher)

	// Dispatcher runs build modes.
	Dispatcher struct {
		cfg          *config.Config
		lookupEngine EngineLookup
		runner       hostcmd.Runner
		stripper     Stripper
		logger       *log.Logger
		interactive  bool
		backoff      time.Duration

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}
)

// WithEngineLookup replaces the engine discovery.
func WithEngineLookup(fn EngineLookup) Option {
	return func(d *Dispatcher) { d.lookupEngine = fn }
}

// WithRunner sets the host command runner used for snap packaging and probes.
func WithRunner(r hostcmd.Runner) Option {
	return func(d *Dispatcher) { d.runner = r }
}

// WithStripper replaces the artifact stripper.
func WithStripper(s Stripper) Option {
	return func(d *Dispatcher) { d.stripper = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithInteractive attaches stdin and a TTY to container runs.
func WithInteractive(interactive bool) Option {
	return func(d *Dispatcher) { d.interactive = interactive }
}

// WithBuildBackoff sets the delay before the first build retry.
func WithBuildBackoff(b time.Duration) Option {
	return func(d *Dispatcher) { d.backoff = b }
}

// WithIO sets the streams handed to child processes.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(d *Dispatcher) {
		d.stdin = stdin
		d.stdout = stdout
		d.stderr = stderr
	}
}

// New creates a Dispatcher for cfg. Without options it discovers docker or
// podman, runs host commands with os/exec and logs to stderr.
func New(cfg *config.Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		backoff: container.DefaultBuildBackoff,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: config.AppName})
	}
	if d.runner == nil {
		d.runner = hostcmd.NewExecRunner()
	}
	if d.lookupEngine == nil {
		d.lookupEngine = DefaultEngineLookup(cfg)
	}
	if d.stripper == nil {
		d.stripper = postprocess.NewStripper(d.runner, d.logger, d.stderr)
	}
	return d
}

// DefaultEngineLookup prefers the configured engine and falls back to the
// other one.
func DefaultEngineLookup(cfg *config.Config) EngineLookup {
	return func(context.Context) (container.Engine, error) {
		engineType, err := container.ParseEngineType(cfg.Container.Engine.String())
		if err != nil {
			return nil, err
		}
		return container.NewEngine(engineType)
	}
}

// Run checks preconditions and executes the mode selected by inv.Flags.
// Use ExitCodeFor to turn the result into a process status.
func (d *Dispatcher) Run(ctx context.Context, inv Invocation) error {
	if err := project.CheckRoot(inv.WorkDir, d.cfg.RootMarker); err != nil {
		return newPreconditionError(CheckRepositoryRoot, issue.NotRepositoryRootId, ErrNotRepositoryRoot, err)
	}

	mode := ResolveMode(inv.Flags)
	d.logger.Debug("mode selected", "mode", mode)

	if mode == ModeCleanAll {
		return d.clean(inv)
	}

	if !platform.IsPOSIX(inv.GOOS) {
		return newPreconditionError(CheckPlatform, issue.UnsupportedPlatformId, ErrUnsupportedPlatform,
			fmt.Errorf("%s is not a POSIX system", inv.GOOS))
	}

	engine, err := d.lookupEngine(ctx)
	if err != nil {
		return newPreconditionError(CheckContainer, issue.ContainerEngineNotFoundId, ErrMissingDependency, err)
	}
	d.logger.Debug("container engine found", "engine", engine.Name())

	if mode == ModeSnap {
		return d.snap(ctx, inv)
	}

	if err := d.buildImage(ctx, engine, inv, StageBuildDebugImage, d.cfg.Images.Debug); err != nil {
		return err
	}
	if err := d.buildImage(ctx, engine, inv, StageBuildReleaseImage, d.cfg.Images.Release); err != nil {
		return err
	}

	switch mode {
	case ModeRelease:
		return d.runBuild(ctx, engine, inv, StageRunReleaseContainer, d.cfg.Images.Release, true)
	case ModeDebug:
		return d.runBuild(ctx, engine, inv, StageRunDebugContainer, d.cfg.Images.Debug, false)
	default:
		d.logger.Info("images are up to date, no build mode selected")
		return nil
	}
}

// Plan returns the stages Run would execute for inv if every precondition
// and step succeeded. Nothing is executed.
func (d *Dispatcher) Plan(inv Invocation) []Stage {
	mode := ResolveMode(inv.Flags)
	switch mode {
	case ModeCleanAll:
		return []Stage{StageClean}
	case ModeSnap:
		return []Stage{StageSnapBuild}
	}

	stages := []Stage{StageBuildDebugImage, StageBuildReleaseImage}
	if !mode.runsContainer() {
		return stages
	}

	if mode == ModeRelease {
		stages = append(stages, StageRunReleaseContainer)
	} else {
		stages = append(stages, StageRunDebugContainer)
	}
	if inv.Flags.Strip {
		stages = append(stages, StageStrip)
	}
	if mode == ModeRelease && inv.Flags.UPXBest {
		return append(stages, StageUPXPack)
	}
	return append(stages, StageBuildRunnerImage)
}

func (d *Dispatcher) clean(inv Invocation) error {
	d.logger.Info("stage started", "stage", StageClean)
	removed, err := project.Clean(inv.WorkDir, d.cfg.CleanDirs)
	if err != nil {
		return &StageError{Stage: StageClean, Err: err}
	}
	d.logger.Info("build outputs removed", "removed", removed)
	return nil
}

func (d *Dispatcher) snap(ctx context.Context, inv Invocation) error {
	cmd, err := hostcmd.FromLine(d.cfg.Snap.Command)
	if err != nil {
		return fmt.Errorf("%w: snap.command: %w", config.ErrInvalidConfig, err)
	}

	if err := d.runner.Probe(ctx, cmd.Name, "--version"); err != nil {
		return newPreconditionError(CheckPackagingTool, issue.PackagingToolNotFoundId, ErrMissingDependency, err)
	}

	cmd.Dir = inv.WorkDir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = d.stdin, d.stdout, d.stderr

	return d.step(StageSnapBuild, func() error {
		if err := d.runner.Run(ctx, cmd); err != nil {
			return issue.NewErrorContext().
				WithOperation("build snap package").
				WithResource(inv.WorkDir).
				WithSuggestion("Run '" + cmd.String() + "' by hand to see the full packaging log").
				WithSuggestion("Check snap/snapcraft.yaml for errors").
				Wrap(err).
				BuildError()
		}
		return nil
	})
}

func (d *Dispatcher) buildImage(ctx context.Context, engine container.Engine, inv Invocation, stage Stage, img config.ImageConfig) error {
	opts := container.BuildOptions{
		ContextDir: inv.WorkDir,
		Dockerfile: img.Dockerfile,
		Tag:        img.Tag,
		Stdout:     d.stdout,
		Stderr:     d.stderr,
	}
	return d.step(stage, func() error {
		return container.BuildWithRetry(ctx, engine, opts, d.cfg.Container.BuildAttempts, d.backoff)
	})
}

// runBuild runs the build container and the steps that follow a successful run.
func (d *Dispatcher) runBuild(ctx context.Context, engine container.Engine, inv Invocation, stage Stage, img config.ImageConfig, release bool) error {
	if err := d.step(stage, func() error { return d.runContainer(ctx, engine, inv, img) }); err != nil {
		return err
	}

	if inv.Flags.Strip {
		d.strip(ctx, inv)
	}

	if inv.Flags.UPXBest {
		if release {
			d.logger.Error("executable packing is not implemented", "stage", StageUPXPack)
			return &NotImplementedError{Feature: "upx-best packing"}
		}
		d.logger.Warn("--upx-best only applies to release builds, ignoring")
	}

	return d.buildImage(ctx, engine, inv, StageBuildRunnerImage, d.cfg.Images.Runner)
}

func (d *Dispatcher) runContainer(ctx context.Context, engine container.Engine, inv Invocation, img config.ImageConfig) error {
	opts := container.RunOptions{
		Image: img.Tag,
		Volumes: []container.VolumeMount{{
			HostPath:      inv.WorkDir,
			ContainerPath: d.cfg.Container.MountPath,
		}},
		Remove:      true,
		Interactive: d.interactive,
		TTY:         d.interactive,
		Stdout:      d.stdout,
		Stderr:      d.stderr,
	}
	if d.interactive {
		opts.Stdin = d.stdin
	}

	result, err := engine.Run(ctx, opts)
	if err != nil {
		return err
	}
	if result.Error != nil {
		return result.Error
	}
	if !result.ExitCode.IsSuccess() {
		return issue.NewErrorContext().
			WithOperation("run build container").
			WithResource(img.Tag).
			WithSuggestion("Scroll up for the compiler output of the failed build").
			WithSuggestion("Run with --clean-all first if the build directory is stale").
			Wrap(fmt.Errorf("container exited with status %d", result.ExitCode)).
			BuildError()
	}
	return nil
}

func (d *Dispatcher) strip(ctx context.Context, inv Invocation) {
	d.logger.Info("stage started", "stage", StageStrip)
	rep := d.stripper.Strip(ctx, postprocess.Options{
		Root:       inv.WorkDir,
		BinDir:     d.cfg.Output.BinDir,
		LibDir:     d.cfg.Output.LibDir,
		LibPattern: d.cfg.Output.LibPattern,
		Command:    d.cfg.Strip.Command,
	})
	if rep.Failed > 0 {
		d.logger.Warn("some artifacts could not be stripped", "failed", rep.Failed)
	}
}

// step logs a stage and wraps its failure in a StageError.
func (d *Dispatcher) step(stage Stage, fn func() error) error {
	d.logger.Info("stage started", "stage", stage)
	start := time.Now()
	if err := fn(); err != nil {
		d.logger.Debug("stage failed", "stage", stage, "err", err)
		return &StageError{Stage: stage, Err: err}
	}
	d.logger.Info("stage finished", "stage", stage, "took", time.Since(start).Round(time.Millisecond))
	return nil
}
