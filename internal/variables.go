package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Program name, used for logging, paths and the download User-Agent.
const Name = "cruxpkgs"

// Set by release builds via -ldflags "-X". Empty in local builds.
var (
	version   = "" // Version number (e.g., "1.2.3")
	stage     = "" // Development stage or git branch (e.g., "staging", "main")
	gitCommit = "" // Git commit hash (e.g., "a1b2c3d4")

	rawQuiet   = "false" // Whether to enable quiet mode
	rawDebug   = "false" // Whether to enable debug mode
	rawVerbose = "false" // Whether to enable verbose logging
)

// Identity of the running binary.
type buildInfo struct {
	version string // Without a "v" prefix.
	stage   string
	commit  string
	arch    string
}

// Reads the linker-set variables.
func currentBuild() buildInfo {
	return buildInfo{
		version: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(version)), "v"),
		stage:   strings.ToLower(strings.TrimSpace(stage)),
		commit:  strings.TrimSpace(gitCommit),
		arch:    runtime.GOARCH,
	}
}

// A pipeline build sets version, stage and commit.
func (b buildInfo) local() bool {
	return b.version == "" || b.stage == "" || b.commit == ""
}

// Formats the build as "<version>+<stage> <commit> [<arch>]". The stage is
// omitted for main and local builds render as "(local)".
func (b buildInfo) String() string {
	if b.local() {
		return "(local)"
	}
	suffix := ""
	if b.stage != "main" {
		suffix = "+" + b.stage
	}
	return fmt.Sprintf("%s%s %s [%s]", b.version, suffix, b.commit, b.arch)
}

// Returns a detailed version string of the running binary.
func VersionString() string {
	return currentBuild().String()
}

// Returns the User-Agent header sent with downloads.
func UserAgent() string {
	b := currentBuild()
	v := b.version
	if b.local() {
		v = "local"
	}
	return fmt.Sprintf("%s/%s (%s-%s)", Name, v, runtime.GOOS, b.arch)
}
