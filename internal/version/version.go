package version

import (
	"strings"

	"github.com/fatih/color"
)

// Library is the version of the buffer/parser API itself. It changes only
// when the observable contract of those packages changes.
const Library = "1.0.0"

// Build information for the mocklib CLI.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = Library

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Get returns the library version string.
func Get() string {
	return Library
}

// Colorize renders a dotted version with one color per component. Any
// pre-release suffix is left plain. With useColor false it returns v as is.
func Colorize(v string, useColor bool) string {
	if !useColor {
		return v
	}
	core, suffix, _ := strings.Cut(v, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return v
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}
