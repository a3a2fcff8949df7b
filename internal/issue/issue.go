// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	GameFileNotFoundId Id = iota + 1
	ArchiveOpenFailedId
	ManifestNotFoundId
	ManifestParseErrorId
	NoScriptFoundId
	RuntimeDisabledId
	ScriptExecutionFailedId
	ConfigLoadFailedId
	FlushFailedId
	DownloadFailedId
	SourceListParseErrorId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	gameFileNotFoundIssue = &Issue{
		id: GameFileNotFoundId,
		mdMsg: `
# Game file not found!

A mod asked for a file that exists neither in the cache, the output
tree, the game archive, nor the raw game directory.

## Things you can try:
- Check that --game points at the game installation root
- Verify the path inside the mod script (paths are case-insensitive
  and use forward slashes)
- Run with verbose mode to see every location that was tried:
~~~
$ modsmith --verbose install
~~~`,
	}

	archiveOpenFailedIssue = &Issue{
		id: ArchiveOpenFailedId,
		mdMsg: `
# Could not open the game data!

The game directory you pointed at has no readable data tree.

## Expected layout:
- ` + "`<game>/Data/`" + ` (preferred) or
- ` + "`<game>/data/`" + ` or loose files directly under the directory

## Things you can try:
- Point --game at the installation root, not a subdirectory:
~~~
$ modsmith install --game "/games/my-game"
~~~
- Check directory permissions`,
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No mod manifest found!

A mod directory has no mod.json, so it cannot be loaded.

## Every mod needs a manifest:
~~~json
{
  "name": "My Mod",
  "version": "1.0"
}
~~~

## Things you can try:
- Check that --mods points at a directory of mod folders
- Create a mod.json next to the mod's entry script
- List what was discovered:
~~~
$ modsmith list --mods /path/to/mods
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse a mod manifest!

A mod.json contains invalid JSON or an invalid config declaration.

## Common issues:
- Trailing commas or missing quotes
- A config option without an id or name
- A defaultValue that does not match the option type
- A select option whose default is not one of its choices

## Things you can try:
- Check the error message above for the offending option
- Validate the single mod in isolation:
~~~
$ modsmith validate /path/to/mod
~~~`,
	}

	noScriptFoundIssue = &Issue{
		id: NoScriptFoundId,
		mdMsg: `
# No entry script found!

The mod has a manifest but neither mod.lua nor mod.js next to it.

## Entry scripts (checked in this order):
1. mod.lua (Lua)
2. mod.js (JavaScript)

## Things you can try:
- Add an entry script to the mod directory
- Check the file name spelling (lowercase, exact names)`,
	}

	runtimeDisabledIssue = &Issue{
		id: RuntimeDisabledId,
		mdMsg: `
# Script engine disabled!

The mod's entry script matches an engine that is switched off in this
run.

## Things you can try:
- Re-enable the engine (drop --no-lua / --no-js)
- Provide the mod in the other language`,
	}

	scriptExecutionFailedIssue = &Issue{
		id: ScriptExecutionFailedId,
		mdMsg: `
# Mod script failed!

A mod's entry script raised an error or crashed while running. The mod
was skipped; the remaining mods still ran.

## Common causes:
- The mod raised an explicit error (bad config, unmet expectation)
- A referenced game file does not exist
- A syntax error in the script

## Things you can try:
- Read the reported file and line
- Run with verbose mode to see the mod's console output:
~~~
$ modsmith --verbose install
~~~
- Check the mod's config values against its README`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the modsmith configuration file.

## Configuration file locations:
- Linux: ~/.config/modsmith/config.toml
- macOS: ~/Library/Application Support/modsmith/config.toml
- Windows: %APPDATA%\modsmith\config.toml

## Things you can try:
- Create a default configuration:
~~~
$ modsmith config init
~~~
- Check the TOML syntax
- Remove the config file to fall back to defaults

## Example configuration:
~~~toml
game_path = "/games/my-game"
mods_path = "mods"
output_path = "output"

[ui]
color_scheme = "auto"
verbose = false
~~~`,
	}

	flushFailedIssue = &Issue{
		id: FlushFailedId,
		mdMsg: `
# Failed to write the output tree!

Flushing the cached edits to the output directory failed. Nothing was
lost: the failed file and everything after it stay cached, and the run
stopped at the first failing path.

## Common causes:
- The output directory is not writable
- A file in the output tree is locked by another program
- The disk is full

## Things you can try:
- Check permissions on the output directory
- Close programs holding files under the output tree, then rerun`,
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Mod download failed!

A github: source from the mod list could not be fetched.

## Things you can try:
- Check the reference spelling: github:owner/repo[:subdir][@branch]
- Verify the repository and branch exist and are public
- Check your network connection
- Clear a stale cache and retry:
~~~
$ modsmith install --clear-cache
~~~`,
	}

	sourceListParseErrorIssue = &Issue{
		id: SourceListParseErrorId,
		mdMsg: `
# Failed to parse the mod list!

A line of the mod source list is neither a local path nor a valid
github: reference.

## Mod list format:
~~~
# comments start with #
mods/my-local-mod
github:owner/repo
github:owner/repo:subdir@branch
~~~

## Things you can try:
- Fix the line reported above
- Quote nothing: entries are taken verbatim, one per line`,
	}

	issues = map[Id]*Issue{
		gameFileNotFoundIssue.Id():      gameFileNotFoundIssue,
		archiveOpenFailedIssue.Id():     archiveOpenFailedIssue,
		manifestNotFoundIssue.Id():      manifestNotFoundIssue,
		manifestParseErrorIssue.Id():    manifestParseErrorIssue,
		noScriptFoundIssue.Id():         noScriptFoundIssue,
		runtimeDisabledIssue.Id():       runtimeDisabledIssue,
		scriptExecutionFailedIssue.Id(): scriptExecutionFailedIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		flushFailedIssue.Id():           flushFailedIssue,
		downloadFailedIssue.Id():        downloadFailedIssue,
		sourceListParseErrorIssue.Id():  sourceListParseErrorIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
