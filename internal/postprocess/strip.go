// SPDX-License-Identifier: MPL-2.0

// Package postprocess strips symbols from build artifacts after a successful
// container build. Every step is best effort: failures are logged and counted
// but never abort the build.
package postprocess

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/quixcc/quixbuild/internal/hostcmd"
)

const (
	DefaultBinDir       = "build/bin"
	DefaultLibDir       = "build/lib"
	DefaultLibPattern   = "*.so"
	DefaultStripCommand = "strip"
)

type (
	// Options selects what gets stripped and how.
	Options struct {
		// Root is the directory BinDir and LibDir are relative to.
		Root string
		// BinDir is walked recursively; every regular file is stripped.
		BinDir string
		// LibDir is walked recursively; regular files whose base name matches
		// LibPattern case-insensitively are stripped.
		LibDir     string
		LibPattern string
		// Command is the strip command line; the file path is appended.
		Command string
	}

	// Report counts what happened during a strip pass.
	Report struct {
		Stripped int
		Failed   int
		// Skipped counts directories that could not be walked.
		Skipped int
	}

	// Stripper runs the strip utility over build artifacts.
	Stripper struct {
		runner hostcmd.Runner
		logger *log.Logger
		stderr io.Writer
	}
)

// Total is the number of files a strip was attempted on.
func (r Report) Total() int { return r.Stripped + r.Failed }

func (o Options) withDefaults() Options {
	if o.BinDir == "" {
		o.BinDir = DefaultBinDir
	}
	if o.LibDir == "" {
		o.LibDir = DefaultLibDir
	}
	if o.LibPattern == "" {
		o.LibPattern = DefaultLibPattern
	}
	if o.Command == "" {
		o.Command = DefaultStripCommand
	}
	return o
}

// NewStripper creates a Stripper. stderr receives the strip utility's own
// diagnostics; nil discards them.
func NewStripper(runner hostcmd.Runner, logger *log.Logger, stderr io.Writer) *Stripper {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Stripper{runner: runner, logger: logger, stderr: stderr}
}

// Strip strips executables under BinDir and shared libraries under LibDir.
// It returns a Report and never an error; context cancellation stops the
// pass early.
func (s *Stripper) Strip(ctx context.Context, opts Options) Report {
	opts = opts.withDefaults()

	var rep Report
	s.walk(ctx, opts, filepath.Join(opts.Root, opts.BinDir), func(string) bool { return true }, &rep)

	pattern := strings.ToLower(opts.LibPattern)
	s.walk(ctx, opts, filepath.Join(opts.Root, opts.LibDir), func(name string) bool {
		ok, err := filepath.Match(pattern, strings.ToLower(name))
		return err == nil && ok
	}, &rep)

	s.logger.Info("strip finished", "stripped", rep.Stripped, "failed", rep.Failed)
	return rep
}

func (s *Stripper) walk(ctx context.Context, opts Options, dir string, match func(string) bool, rep *Report) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("strip directory not found, skipping", "dir", dir)
		rep.Skipped++
		return
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("cannot read", "path", path, "err", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() || !match(d.Name()) {
			return nil
		}
		s.stripFile(ctx, opts.Command, path, rep)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("walk failed", "dir", dir, "err", err)
	}
}

func (s *Stripper) stripFile(ctx context.Context, line, path string, rep *Report) {
	cmd, err := hostcmd.FromLine(line, path)
	if err != nil {
		s.logger.Warn("invalid strip command", "command", line, "err", err)
		rep.Failed++
		return
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = s.stderr

	if err := s.runner.Run(ctx, cmd); err != nil {
		s.logger.Warn("strip failed", "file", path, "err", err)
		rep.Failed++
		return
	}
	s.logger.Debug("stripped", "file", path)
	rep.Stripped++
}
