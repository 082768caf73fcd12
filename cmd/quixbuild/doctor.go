// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/hostcmd"
	"github.com/quixcc/quixbuild/internal/issue"
	"github.com/quixcc/quixbuild/internal/project"
	"github.com/quixcc/quixbuild/pkg/platform"
	"github.com/quixcc/quixbuild/pkg/types"
)

// doctorReport counts check outcomes. Only required checks affect the exit status.
type doctorReport struct {
	w      io.Writer
	failed int
}

func (r *doctorReport) pass(name, detail string) {
	fmt.Fprintf(r.w, "%s %s %s\n", passMark, name, SubtitleStyle.Render(detail))
}

func (r *doctorReport) fail(name, detail string) {
	r.failed++
	fmt.Fprintf(r.w, "%s %s %s\n", failMark, name, ErrorStyle.Render(detail))
}

// warn reports an optional check that did not pass.
func (r *doctorReport) warn(name, detail string) {
	fmt.Fprintf(r.w, "%s %s %s\n", warnMark, name, WarningStyle.Render(detail))
}

// newDoctorCommand creates `quixbuild doctor`.
func newDoctorCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that this machine can run quixbuild",
		Long: `Check the repository root, the host platform, the container engine and
the optional host tools, and list which toolchain images are already built.

Exits non-zero when a check every build needs has failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, wd, err := app.loadConfig(cmd.Context(), flags.configPath)
			if err != nil {
				renderFailure(app, err, flags.verbose, issue.ConfigLoadFailedId)
				return &ExitError{Code: types.ExitUsage}
			}
			if failed := runDoctor(cmd.Context(), app, cfg, wd); failed > 0 {
				fmt.Fprintln(app.stderr, ErrorStyle.Render(fmt.Sprintf("%d required check(s) failed", failed)))
				return &ExitError{Code: types.ExitPrecondition}
			}
			return nil
		},
	}
}

func runDoctor(ctx context.Context, app *App, cfg *config.Config, wd string) int {
	r := &doctorReport{w: app.stdout}
	fmt.Fprintln(app.stdout, TitleStyle.Render("quixbuild doctor"))

	if err := project.CheckRoot(wd, cfg.RootMarker); err != nil {
		r.fail("repository root", err.Error())
	} else {
		r.pass("repository root", wd)
	}

	if platform.IsPOSIX(app.goos) {
		r.pass("platform", app.goos)
	} else {
		r.fail("platform", app.goos+" is not supported")
	}

	engine, err := app.EngineLookup(cfg)(ctx)
	if err != nil {
		r.fail("container engine", err.Error())
	} else {
		version, verr := engine.Version(ctx)
		if verr != nil {
			version = "version unknown"
		}
		r.pass("container engine", engine.Name()+" "+version)

		for _, img := range []struct {
			name string
			tag  string
		}{
			{"debug image", cfg.Images.Debug.Tag},
			{"release image", cfg.Images.Release.Tag},
			{"runner image", cfg.Images.Runner.Tag},
		} {
			switch ok, ierr := engine.ImageExists(ctx, img.tag); {
			case ierr != nil:
				r.warn(img.name, ierr.Error())
			case ok:
				r.pass(img.name, img.tag)
			default:
				r.warn(img.name, img.tag+" not built yet")
			}
		}
	}

	probeTool(ctx, app.Runner, r, "packaging tool", cfg.Snap.Command, "--version")
	probeTool(ctx, app.Runner, r, "strip tool", cfg.Strip.Command, "--version")
	probeTool(ctx, app.Runner, r, "upx", "upx", "--version")

	return r.failed
}

// probeTool reports an optional host tool.
func probeTool(ctx context.Context, runner hostcmd.Runner, r *doctorReport, name, line string, args ...string) {
	cmd, err := hostcmd.FromLine(line)
	if err != nil {
		r.warn(name, err.Error())
		return
	}
	if err := runner.Probe(ctx, cmd.Name, args...); err != nil {
		r.warn(name, cmd.Name+" not usable")
		return
	}
	r.pass(name, cmd.Name)
}
