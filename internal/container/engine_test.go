// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestParseEngineType(t *testing.T) {
	tests := []struct {
		in      string
		want    EngineType
		wantErr bool
	}{
		{"docker", EngineTypeDocker, false},
		{" Podman ", EngineTypePodman, false},
		{"", EngineTypeDocker, false},
		{"containerd", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEngineType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEngineType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseEngineType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewEngine_UnknownType(t *testing.T) {
	if _, err := NewEngine("lxc"); err == nil {
		t.Fatal("expected error for unknown engine type")
	}
}

func TestNewEngine_PrefersRequestedEngine(t *testing.T) {
	_, cleanup := withMockExecCommand(t)
	defer cleanup()

	engine, err := NewEngine(EngineTypePodman, WithBinaryPath("/usr/bin/podman"))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if engine.Name() != "podman" {
		t.Errorf("Name() = %q, want podman", engine.Name())
	}
}

func TestNewEngine_NoEngineAvailable(t *testing.T) {
	_, cleanup := withMockExecCommandOutput(t, "", "", 1)
	defer cleanup()

	_, err := NewEngine(EngineTypeDocker, WithBinaryPath("/usr/bin/docker"))
	var notAvailable *ErrEngineNotAvailable
	if !errors.As(err, &notAvailable) || notAvailable.Engine != "docker" {
		t.Errorf("expected *ErrEngineNotAvailable for docker, got %v", err)
	}
}

func TestDockerEngine_Version(t *testing.T) {
	recorder, cleanup := withMockExecCommandOutput(t, "27.3.1\n", "", 0)
	defer cleanup()

	engine := NewDockerEngine(WithBinaryPath("/usr/bin/docker"))
	v, err := engine.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != "27.3.1" {
		t.Errorf("Version() = %q, want 27.3.1", v)
	}
	recorder.AssertArgs(t, "version", "--format", "{{.Server.Version}}")
}

func TestDockerEngine_ImageExists(t *testing.T) {
	for _, tt := range []struct {
		exitCode int
		want     bool
	}{{0, true}, {1, false}} {
		recorder, cleanup := withMockExecCommandOutput(t, "", "", tt.exitCode)
		engine := NewDockerEngine(WithBinaryPath("/usr/bin/docker"))
		got, err := engine.ImageExists(context.Background(), "qpkg-run:latest")
		cleanup()
		if err != nil {
			t.Fatalf("ImageExists() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("ImageExists() with exit %d = %v, want %v", tt.exitCode, got, tt.want)
		}
		recorder.AssertArgs(t, "image", "inspect", "qpkg-run:latest")
	}
}

func TestPodmanEngine_ImageExistsAndVersion(t *testing.T) {
	recorder, cleanup := withMockExecCommandOutput(t, "5.2.0", "", 0)
	defer cleanup()

	engine := NewPodmanEngine(WithBinaryPath("/usr/bin/podman"))
	if ok, err := engine.ImageExists(context.Background(), "quixcc-debug:latest"); err != nil || !ok {
		t.Fatalf("ImageExists() = %v, %v", ok, err)
	}
	recorder.AssertArgs(t, "image", "exists", "quixcc-debug:latest")

	if v, err := engine.Version(context.Background()); err != nil || v != "5.2.0" {
		t.Fatalf("Version() = %q, %v", v, err)
	}
	recorder.AssertArgs(t, "version", "--format", "{{.Version}}")
}

func TestPodmanEngine_RunArgs(t *testing.T) {
	original := selinuxEnabled
	defer func() { selinuxEnabled = original }()

	opts := RunOptions{
		Image:   "quixcc-debug:latest",
		Remove:  true,
		Volumes: []VolumeMount{{HostPath: "/src/quix", ContainerPath: "/app"}},
	}

	selinuxEnabled = func() bool { return true }
	engine := NewPodmanEngine(WithBinaryPath("/usr/bin/podman"))
	got := engine.RunArgs(opts)
	want := []string{"run", "--userns=keep-id", "--rm", "-v", "/src/quix:/app:z", "quixcc-debug:latest"}
	if !slices.Equal(got, want) {
		t.Errorf("RunArgs() with SELinux = %v, want %v", got, want)
	}

	selinuxEnabled = func() bool { return false }
	got = engine.RunArgs(opts)
	want = []string{"run", "--userns=keep-id", "--rm", "-v", "/src/quix:/app", "quixcc-debug:latest"}
	if !slices.Equal(got, want) {
		t.Errorf("RunArgs() without SELinux = %v, want %v", got, want)
	}
}

func TestKeepUserNamespace(t *testing.T) {
	if got := keepUserNamespace([]string{"build", "."}); !slices.Equal(got, []string{"build", "."}) {
		t.Errorf("non-run args changed: %v", got)
	}
	twice := keepUserNamespace(keepUserNamespace([]string{"run", "img"}))
	if !slices.Equal(twice, []string{"run", "--userns=keep-id", "img"}) {
		t.Errorf("keepUserNamespace not idempotent: %v", twice)
	}
}
