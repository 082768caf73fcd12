// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/container"
	"github.com/quixcc/quixbuild/internal/hostcmd"
	"github.com/quixcc/quixbuild/internal/postprocess"
	"github.com/quixcc/quixbuild/pkg/types"
)

// trace is the ordered list of external actions shared by all fakes.
type trace struct {
	events []string
}

func (tr *trace) add(ev string) { tr.events = append(tr.events, ev) }

type fakeEngine struct {
	tr *trace

	// buildErrs is consumed per tag, one error per attempt.
	buildErrs map[string][]error
	runExit   types.ExitCode
	runErr    error
	runResErr error

	builds []container.BuildOptions
	runs   []container.RunOptions
}

func (e *fakeEngine) Name() string                                      { return "docker" }
func (e *fakeEngine) Available() bool                                   { return true }
func (e *fakeEngine) Version(context.Context) (string, error)           { return "27.0.0", nil }
func (e *fakeEngine) ImageExists(context.Context, string) (bool, error) { return true, nil }

func (e *fakeEngine) Build(_ context.Context, opts container.BuildOptions) error {
	e.tr.add("build " + opts.Tag)
	e.builds = append(e.builds, opts)
	if errs := e.buildErrs[opts.Tag]; len(errs) > 0 {
		e.buildErrs[opts.Tag] = errs[1:]
		return errs[0]
	}
	return nil
}

func (e *fakeEngine) Run(_ context.Context, opts container.RunOptions) (*container.RunResult, error) {
	e.tr.add("run " + opts.Image)
	e.runs = append(e.runs, opts)
	if e.runErr != nil {
		return nil, e.runErr
	}
	return &container.RunResult{ExitCode: e.runExit, Error: e.runResErr}, nil
}

type fakeRunner struct {
	tr       *trace
	probeErr error
	runErr   error
	commands []hostcmd.Command
}

func (r *fakeRunner) Run(_ context.Context, cmd hostcmd.Command) error {
	r.tr.add("exec " + cmd.String())
	r.commands = append(r.commands, cmd)
	return r.runErr
}

func (r *fakeRunner) Probe(_ context.Context, name string, args ...string) error {
	r.tr.add("probe " + hostcmd.Command{Name: name, Args: args}.String())
	return r.probeErr
}

type fakeStripper struct {
	tr   *trace
	opts []postprocess.Options
}

func (s *fakeStripper) Strip(_ context.Context, opts postprocess.Options) postprocess.Report {
	s.tr.add("strip")
	s.opts = append(s.opts, opts)
	return postprocess.Report{Stripped: 3}
}

// harness wires a Dispatcher to fakes.
type harness struct {
	tr       *trace
	cfg      *config.Config
	engine   *fakeEngine
	runner   *fakeRunner
	stripper *fakeStripper
	lookups  int
	lookErr  error
}

func newHarness() *harness {
	tr := &trace{}
	return &harness{
		tr:       tr,
		cfg:      config.DefaultConfig(),
		engine:   &fakeEngine{tr: tr, buildErrs: map[string][]error{}},
		runner:   &fakeRunner{tr: tr},
		stripper: &fakeStripper{tr: tr},
	}
}

func (h *harness) dispatcher(opts ...Option) *Dispatcher {
	base := []Option{
		WithEngineLookup(func(context.Context) (container.Engine, error) {
			h.lookups++
			if h.lookErr != nil {
				return nil, h.lookErr
			}
			return h.engine, nil
		}),
		WithRunner(h.runner),
		WithStripper(h.stripper),
		WithLogger(log.New(io.Discard)),
		WithIO(nil, io.Discard, io.Discard),
		WithBuildBackoff(0),
	}
	return New(h.cfg, append(base, opts...)...)
}

// stages translates the engine part of the trace into stage names using the
// default image tags.
func (h *harness) stages() []Stage {
	byEvent := map[string]Stage{
		"build " + h.cfg.Images.Debug.Tag:   StageBuildDebugImage,
		"build " + h.cfg.Images.Release.Tag: StageBuildReleaseImage,
		"build " + h.cfg.Images.Runner.Tag:  StageBuildRunnerImage,
		"run " + h.cfg.Images.Debug.Tag:     StageRunDebugContainer,
		"run " + h.cfg.Images.Release.Tag:   StageRunReleaseContainer,
		"strip":                             StageStrip,
	}
	var out []Stage
	for _, ev := range h.tr.events {
		if s, ok := byEvent[ev]; ok {
			out = append(out, s)
		}
	}
	return out
}

var errBuildBroken = errors.New("RUN make: exit status 2")
