// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/quixcc/quixbuild/internal/dispatch"
	"github.com/quixcc/quixbuild/internal/issue"
)

// renderFailure prints err and, when one applies, the matching help page.
// fallback is used when err itself does not name an issue.
func renderFailure(app *App, err error, verbose bool, fallback issue.Id) {
	fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	id := issueFor(err, verbose)
	if id == 0 {
		id = fallback
	}
	iss := issue.Get(id)
	if iss == nil {
		return
	}

	style := "notty"
	if app.isTerminal() {
		style = "dark"
	}
	if page, rerr := iss.Render(style); rerr == nil {
		fmt.Fprint(app.stderr, page)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error carries an ActionableError, its suggestions are included.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return err.Error()
	}

	var se *dispatch.StageError
	if errors.As(err, &se) {
		return fmt.Sprintf("stage %s failed: %s", se.Stage, ae.Format(verbose))
	}
	return ae.Format(verbose)
}

// issueFor picks the help page for a dispatch error. Stage failures only get
// one in verbose mode since the tool output above usually says enough.
func issueFor(err error, verbose bool) issue.Id {
	var pre *dispatch.PreconditionError
	if errors.As(err, &pre) {
		return pre.Issue
	}
	if errors.Is(err, dispatch.ErrNotImplemented) {
		return issue.NotImplementedId
	}

	var se *dispatch.StageError
	if !verbose || !errors.As(err, &se) {
		return 0
	}
	switch se.Stage {
	case dispatch.StageBuildDebugImage, dispatch.StageBuildReleaseImage, dispatch.StageBuildRunnerImage:
		return issue.ImageBuildFailedId
	case dispatch.StageRunDebugContainer, dispatch.StageRunReleaseContainer:
		return issue.ContainerRunFailedId
	case dispatch.StageSnapBuild:
		return issue.PackagingBuildFailedId
	default:
		return 0
	}
}
