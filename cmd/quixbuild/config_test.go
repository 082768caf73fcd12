// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quixcc/quixbuild/internal/config"
	"github.com/quixcc/quixbuild/internal/testutil"
	"github.com/quixcc/quixbuild/pkg/types"
)

func TestConfigShow_Defaults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	if err := env.execute(t, "config", "show"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	out := env.stdout.String()
	for _, want := range []string{"(using defaults)", "[container]", "quixcc-release:latest", "libnitrate-parser"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShow_FromFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	path := filepath.Join(env.dir, config.ConfigFileName)
	testutil.MustWriteFile(t, path, "[container]\nengine = \"podman\"\n")

	if err := env.execute(t, "config", "show"); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	out := env.stdout.String()
	if !strings.Contains(out, path) || !strings.Contains(out, "podman") {
		t.Errorf("output should show the file and its values:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	path := filepath.Join(env.dir, config.ConfigFileName)

	if err := env.execute(t, "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "[images.debug]") {
		t.Errorf("unexpected config content:\n%s", data)
	}

	err = env.execute(t, "config", "init")
	if got := exitCode(t, err); got != types.ExitUsage {
		t.Errorf("second init exit code = %d, want %d", got, types.ExitUsage)
	}

	if err := env.execute(t, "config", "init", "--force"); err != nil {
		t.Errorf("forced init error = %v", err)
	}
}

func TestConfigInit_ExplicitPath(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	path := filepath.Join(t.TempDir(), "ci.toml")

	if err := env.execute(t, "--config", path, "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !testutil.Exists(t, path) {
		t.Errorf("%s not written", path)
	}
	if testutil.Exists(t, filepath.Join(env.dir, config.ConfigFileName)) {
		t.Error("default location written despite --config")
	}
}
