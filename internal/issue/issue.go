// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies an entry in the issue catalog.
type Id int

const (
	NotRepositoryRootId Id = iota + 1
	UnsupportedPlatformId
	ContainerEngineNotFoundId
	PackagingToolNotFoundId
	ImageBuildFailedId
	ContainerRunFailedId
	PackagingBuildFailedId
	ConfigLoadFailedId
	NotImplementedId
)

type (
	// MarkdownMsg is Markdown guidance shown to the user.
	MarkdownMsg string

	// HttpLink is an external documentation link.
	HttpLink string

	// Issue is a catalog entry with Markdown guidance for a known failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue for the terminal using the given glamour style
// ("dark", "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	notRepositoryRootIssue = &Issue{
		id: NotRepositoryRootId,
		mdMsg: `
# Not at the repository root

quixbuild must be started from the root of the QUIX repository. It looks for the
root marker directory (` + "`libnitrate-parser`" + ` by default) in the current directory.

## Things you can try:
- Change to the repository root and run the command again:
~~~
$ cd path/to/quix
$ quixbuild --debug
~~~

- If the layout changed, point quixbuild at a different marker in ` + "`.quixbuild.toml`" + `:
~~~toml
root_marker = "libnitrate-parser"
~~~`,
	}

	unsupportedPlatformIssue = &Issue{
		id: UnsupportedPlatformId,
		mdMsg: `
# Unsupported platform

Builds are only driven from Unix-like hosts (Linux, macOS, the BSDs).

## Things you can try:
- Run quixbuild inside WSL2 on Windows
- Use a Linux virtual machine or CI runner`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found

The debug, release and runner environments are container images, so a container
engine is required for every mode except ` + "`--clean-all`" + `.

## Supported container engines:
- **Docker** (default)
- **Podman** (used automatically when Docker is missing)

## Things you can try:
- Install Docker: https://docs.docker.com/get-docker/
- Install Podman: ` + "`sudo apt install podman`" + ` or ` + "`brew install podman`" + `
- Select the engine explicitly:
~~~toml
[container]
engine = "podman"
~~~`,
		docLinks: []HttpLink{"https://docs.docker.com/get-docker/", "https://podman.io/docs/installation"},
	}

	packagingToolNotFoundIssue = &Issue{
		id: PackagingToolNotFoundId,
		mdMsg: `
# Packaging tool not found

` + "`--snap`" + ` builds the snap package with snapcraft, which is not installed or
not on PATH.

## Things you can try:
~~~
$ sudo snap install snapcraft --classic
~~~`,
		docLinks: []HttpLink{"https://snapcraft.io/docs/snapcraft-overview"},
	}

	imageBuildFailedIssue = &Issue{
		id: ImageBuildFailedId,
		mdMsg: `
# Image build failed

One of the environment images could not be built. Partially built layers are
left in the engine cache; quixbuild never removes images.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` and read the engine output above
- Check the Dockerfiles under ` + "`tools/`" + `
- Make sure base images can be pulled`,
	}

	containerRunFailedIssue = &Issue{
		id: ContainerRunFailedId,
		mdMsg: `
# Build container failed

The compiler build inside the container exited with a non-zero status.
The build output directories may be incomplete.

## Things you can try:
- Read the compiler output above
- Start over from a clean tree:
~~~
$ quixbuild --clean-all
~~~`,
	}

	packagingBuildFailedIssue = &Issue{
		id: PackagingBuildFailedId,
		mdMsg: `
# Snap build failed

snapcraft reported a failure. Its log usually names the failing part.

## Things you can try:
- Run ` + "`snapcraft --debug`" + ` by hand
- Clean the snapcraft state with ` + "`snapcraft clean`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

The configuration file is not valid TOML or does not match the schema.

## Things you can try:
- Print the effective configuration: ` + "`quixbuild config show`" + `
- Write a fresh default file: ` + "`quixbuild config init`",
	}

	notImplementedIssue = &Issue{
		id: NotImplementedId,
		mdMsg: `
# Not implemented

The requested step exists as a flag but has no implementation yet. No packed
binaries were produced and the runner image was not regenerated.

## Things you can try:
- Drop the flag and run the build again
- Pack the binaries by hand:
~~~
$ upx --best build/bin/qpkg build/bin/qld build/bin/qcc
~~~`,
	}

	issues = map[Id]*Issue{
		notRepositoryRootIssue.Id():       notRepositoryRootIssue,
		unsupportedPlatformIssue.Id():     unsupportedPlatformIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		packagingToolNotFoundIssue.Id():   packagingToolNotFoundIssue,
		imageBuildFailedIssue.Id():        imageBuildFailedIssue,
		containerRunFailedIssue.Id():      containerRunFailedIssue,
		packagingBuildFailedIssue.Id():    packagingBuildFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		notImplementedIssue.Id():          notImplementedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
