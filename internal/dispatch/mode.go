// SPDX-License-Identifier: MPL-2.0

package dispatch

const (
	ModeNone Mode = iota
	ModeCleanAll
	ModeSnap
	ModeRelease
	ModeDebug
)

const (
	StageBuildDebugImage     Stage = "build-debug-image"
	StageBuildReleaseImage   Stage = "build-release-image"
	StageRunDebugContainer   Stage = "run-debug-container"
	StageRunReleaseContainer Stage = "run-release-container"
	StageBuildRunnerImage    Stage = "build-runner-image"
	StageSnapBuild           Stage = "snap-build"
	StageStrip               Stage = "strip"
	StageUPXPack             Stage = "upx-pack"
	StageClean               Stage = "clean"
)

type (
	// Mode is the single top-level action of one invocation.
	Mode int

	// Stage names one external step. Stages appear in log lines and in
	// StageError messages.
	Stage string

	// Flags is the parsed command-line flag set.
	Flags struct {
		CleanAll bool
		Snap     bool
		Release  bool
		Debug    bool
		// Strip strips artifacts after a successful debug or release run.
		Strip bool
		// UPXBest requests executable packing after a release run.
		UPXBest bool
	}

	// Invocation is everything a run depends on from its environment.
	Invocation struct {
		// WorkDir is the repository root candidate and the directory mounted
		// into containers.
		WorkDir string
		// GOOS is the host operating system name, as in runtime.GOOS.
		GOOS  string
		Flags Flags
	}
)

// ResolveMode picks the mode for flags. When several mode flags are set the
// first of clean-all, snap, release and debug wins.
func ResolveMode(f Flags) Mode {
	switch {
	case f.CleanAll:
		return ModeCleanAll
	case f.Snap:
		return ModeSnap
	case f.Release:
		return ModeRelease
	case f.Debug:
		return ModeDebug
	default:
		return ModeNone
	}
}

// String returns the flag name of the mode, or "none".
func (m Mode) String() string {
	switch m {
	case ModeCleanAll:
		return "clean-all"
	case ModeSnap:
		return "snap"
	case ModeRelease:
		return "release"
	case ModeDebug:
		return "debug"
	default:
		return "none"
	}
}

func (s Stage) String() string { return string(s) }

// runsContainer reports whether the mode builds images and runs one of them.
func (m Mode) runsContainer() bool {
	return m == ModeRelease || m == ModeDebug
}
