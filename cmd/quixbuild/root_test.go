// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/container"
	"github.com/quixcc/quixbuild/internal/dispatch"
	"github.com/quixcc/quixbuild/internal/hostcmd"
	"github.com/quixcc/quixbuild/internal/testutil"
	"github.com/quixcc/quixbuild/pkg/types"
)

type stubEngine struct {
	builds   []string
	runs     []string
	runExit  types.ExitCode
	existing map[string]bool
}

func (e *stubEngine) Name() string                            { return "docker" }
func (e *stubEngine) Available() bool                         { return true }
func (e *stubEngine) Version(context.Context) (string, error) { return "27.3.1", nil }

func (e *stubEngine) Build(_ context.Context, opts container.BuildOptions) error {
	e.builds = append(e.builds, opts.Tag)
	return nil
}

func (e *stubEngine) Run(_ context.Context, opts container.RunOptions) (*container.RunResult, error) {
	e.runs = append(e.runs, opts.Image)
	return &container.RunResult{ExitCode: e.runExit}, nil
}

func (e *stubEngine) ImageExists(_ context.Context, image string) (bool, error) {
	return e.existing[image], nil
}

type stubRunner struct {
	probes   []string
	probeErr error
}

func (r *stubRunner) Run(context.Context, hostcmd.Command) error { return nil }

func (r *stubRunner) Probe(_ context.Context, name string, _ ...string) error {
	r.probes = append(r.probes, name)
	return r.probeErr
}

type testEnv struct {
	dir     string
	engine  *stubEngine
	runner  *stubRunner
	lookups int
	noEng   bool
	goos    string
	stdout  bytes.Buffer
	stderr  bytes.Buffer
}

func newTestEnv(t *testing.T, repo bool) *testEnv {
	t.Helper()
	env := &testEnv{
		engine: &stubEngine{existing: map[string]bool{}},
		runner: &stubRunner{},
		goos:   "linux",
	}
	if repo {
		env.dir = testutil.NewRepo(t)
	} else {
		env.dir = t.TempDir()
	}
	return env
}

func (e *testEnv) app() *App {
	return NewApp(Dependencies{
		Runner: e.runner,
		EngineLookup: func(*config.Config) dispatch.EngineLookup {
			return func(context.Context) (container.Engine, error) {
				e.lookups++
				if e.noEng {
					return nil, &container.ErrEngineNotAvailable{Engine: "docker", Reason: "not installed"}
				}
				return e.engine, nil
			}
		},
		IsTerminal: func() bool { return false },
		Getwd:      func() (string, error) { return e.dir, nil },
		GOOS:       e.goos,
		Stdin:      strings.NewReader(""),
		Stdout:     &e.stdout,
		Stderr:     &e.stderr,
	})
}

func (e *testEnv) execute(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(e.app())
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(t.Context())
}

func exitCode(t *testing.T, err error) types.ExitCode {
	t.Helper()
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v (%T), want *ExitError", err, err)
	}
	return exitErr.Code
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v0.3.0"
		Commit = "1f0c2ab"
		BuildDate = "2026-03-02T10:00:00Z"

		want := "v0.3.0 (commit: 1f0c2ab, built: 2026-03-02T10:00:00Z)"
		if got := getVersionString(); got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("dev build", func(t *testing.T) {
		origVersion := Version
		t.Cleanup(func() { Version = origVersion })
		Version = "dev"

		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestRoot_DebugBuild(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	if err := env.execute(t, "--debug"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	wantBuilds := []string{"quixcc-debug:latest", "quixcc-release:latest", "qpkg-run:latest"}
	if strings.Join(env.engine.builds, ",") != strings.Join(wantBuilds, ",") {
		t.Errorf("builds = %v, want %v", env.engine.builds, wantBuilds)
	}
	if len(env.engine.runs) != 1 || env.engine.runs[0] != "quixcc-debug:latest" {
		t.Errorf("runs = %v", env.engine.runs)
	}
	if !strings.Contains(env.stdout.String(), "Debug build finished") {
		t.Errorf("stdout = %q", env.stdout.String())
	}
}

func TestRoot_OutsideRepositoryRoot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	err := env.execute(t, "--release")

	if got := exitCode(t, err); got != types.ExitPrecondition {
		t.Errorf("exit code = %d, want %d", got, types.ExitPrecondition)
	}
	if env.lookups != 0 {
		t.Error("engine looked up outside the repository")
	}
	stderr := env.stderr.String()
	if !strings.Contains(stderr, "repository root check failed") {
		t.Errorf("stderr should explain the failure: %q", stderr)
	}
	if !strings.Contains(stderr, "Not at the repository root") {
		t.Errorf("stderr should include the help page: %q", stderr)
	}
}

func TestRoot_ContainerFailureExitCode(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	env.engine.runExit = 2

	err := env.execute(t, "--release", "--strip")
	if got := exitCode(t, err); got != types.ExitFailure {
		t.Errorf("exit code = %d, want %d", got, types.ExitFailure)
	}
	if !strings.Contains(env.stderr.String(), "stage run-release-container failed") {
		t.Errorf("stderr = %q", env.stderr.String())
	}
}

func TestRoot_UPXBestNotImplemented(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	err := env.execute(t, "--release", "--upx-best")

	if got := exitCode(t, err); got != types.ExitNotImplemented {
		t.Errorf("exit code = %d, want %d", got, types.ExitNotImplemented)
	}
	if !strings.Contains(env.stderr.String(), "not implemented") {
		t.Errorf("stderr = %q", env.stderr.String())
	}
}

func TestRoot_CleanAll(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	testutil.MustWriteFile(t, filepath.Join(env.dir, "build", "bin", "qcc"), "")
	env.goos = "windows"
	env.noEng = true

	if err := env.execute(t, "--clean-all"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if testutil.Exists(t, filepath.Join(env.dir, "build")) {
		t.Error("build directory still exists")
	}
	if env.lookups != 0 {
		t.Error("clean-all looked up the container engine")
	}
}

func TestRoot_DryRun(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	if err := env.execute(t, "--release", "--strip", "--dry-run"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	out := env.stdout.String()
	for _, want := range []string{"release", "build-debug-image", "run-release-container", "strip", "build-runner-image"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan output missing %q:\n%s", want, out)
		}
	}
	if env.lookups != 0 || len(env.engine.builds) != 0 {
		t.Error("dry run executed something")
	}
}

func TestRoot_UsageErrors(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"--fast"}, {"build"}} {
		env := newTestEnv(t, true)
		err := env.execute(t, args...)
		if err == nil {
			t.Errorf("%v: expected an error", args)
			continue
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			t.Errorf("%v: cobra usage error should not be an ExitError: %v", args, err)
		}
	}
}

func TestRoot_InvalidConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	testutil.MustWriteFile(t, filepath.Join(env.dir, config.ConfigFileName), "[container]\nengine = \"lxc\"\n")

	err := env.execute(t, "--debug")
	if got := exitCode(t, err); got != types.ExitUsage {
		t.Errorf("exit code = %d, want %d", got, types.ExitUsage)
	}
	if len(env.engine.builds) != 0 {
		t.Error("build started with an invalid config")
	}
	if !strings.Contains(env.stderr.String(), "container.engine") {
		t.Errorf("stderr should name the bad key: %q", env.stderr.String())
	}
}

func TestErrorHandler_SkipsReportedErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	errorHandler(&buf, fang.Styles{}, &ExitError{Code: types.ExitFailure})
	if buf.Len() != 0 {
		t.Errorf("reported error printed again: %q", buf.String())
	}

	errorHandler(&buf, fang.Styles{}, errors.New(`unknown flag: --fast`))
	if !strings.Contains(buf.String(), "unknown flag") {
		t.Errorf("usage error not printed: %q", buf.String())
	}
}
