// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
)

// PodmanEngine implements the Engine interface using Podman CLI.
// It embeds BaseCLIEngine for common CLI operations.
type PodmanEngine struct {
	*BaseCLIEngine
}

// selinuxEnabled is swapped by tests.
var selinuxEnabled = isSELinuxEnabled

// NewPodmanEngine creates a new Podman engine.
// Volume mounts are labeled with :z when SELinux is enforcing, and rootless
// runs keep the caller's uid so build output in the mounted tree stays owned
// by the user.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	path, _ := exec.LookPath("podman")

	allOpts := append([]BaseCLIEngineOption{
		WithName(string(EngineTypePodman)),
		WithVolumeFormatter(addSELinuxLabel),
		WithRunArgsTransformer(keepUserNamespace),
	}, opts...)

	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(path, allOpts...),
	}
}

// Version returns the Podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get podman version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ImageExists checks if an image exists.
func (e *PodmanEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	return imageProbe(e.RunCommandStatus(ctx, "image", "exists", image))
}

// isSELinuxEnabled checks if SELinux is enforcing.
func isSELinuxEnabled() bool {
	data, err := os.ReadFile("/sys/fs/selinux/enforce")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// addSELinuxLabel formats the mount, adding the shared :z label when SELinux
// is enforcing and the mount has no label yet.
func addSELinuxLabel(volume VolumeMount) string {
	if volume.SELinux == SELinuxLabelNone && selinuxEnabled() {
		volume.SELinux = SELinuxLabelShared
	}
	return volume.String()
}

// keepUserNamespace inserts --userns=keep-id right after "run".
func keepUserNamespace(args []string) []string {
	if len(args) == 0 || args[0] != "run" || slices.Contains(args, "--userns=keep-id") {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], "--userns=keep-id")
	return append(out, args[1:]...)
}
