// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

const integrationImage = "quixbuild-integration:latest"

// checkTestcontainersAvailable reports whether testcontainers can reach a
// Docker-compatible daemon. Provider detection can panic on broken setups.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestEngine_Integration builds a throwaway environment image and runs it with
// a bind mount, the same shape as a debug or release build.
func TestEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	engine, err := NewEngine(EngineTypeDocker)
	if err != nil {
		t.Skipf("skipping container integration tests: %v", err)
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration tests: testcontainers provider not available")
	}

	ctx := context.Background()
	contextDir := t.TempDir()
	dockerfile := "FROM debian:stable-slim\nWORKDIR /app\nCMD [\"sh\", \"-c\", \"mkdir -p build/bin && echo ok > build/bin/marker\"]\n"
	if err := os.WriteFile(filepath.Join(contextDir, "Test.Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := engine.Build(ctx, BuildOptions{
		ContextDir: contextDir,
		Dockerfile: "Test.Dockerfile",
		Tag:        integrationImage,
	}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	exists, err := engine.ImageExists(ctx, integrationImage)
	if err != nil || !exists {
		t.Fatalf("ImageExists() = %v, %v; want true", exists, err)
	}

	result, err := engine.Run(ctx, RunOptions{
		Image:   integrationImage,
		Remove:  true,
		Volumes: []VolumeMount{{HostPath: contextDir, ContainerPath: "/app"}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ExitCode != 0 || result.Error != nil {
		t.Fatalf("Run() result = %+v", result)
	}

	if _, err := os.Stat(filepath.Join(contextDir, "build", "bin", "marker")); err != nil {
		t.Errorf("container output not visible through the bind mount: %v", err)
	}
}
