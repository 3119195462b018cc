// Package hints turns common failures into one-line suggestions appended to
// CLI error messages as "\n  hint: <text>".
package hints

import (
	"os"
	"strings"

	"github.com/jmaupetit/md2pdf/internal/fileutil"
)

// IsInContainer reports whether the process runs inside Docker. Replaced in
// tests.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// userConfigMarker identifies the per-user config directory in search paths.
const userConfigMarker = "md2pdf" + string(os.PathSeparator)

// ForBrowserConnect suggests ROD_* variables when Chrome cannot start.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	hints = append(hints, "or use --engine flow, which needs no browser")

	return formatHints(hints)
}

// ForTimeout suggests a longer timeout.
func ForTimeout() string {
	return format("for large documents, use --timeout flag")
}

// ForConfigNotFound suggests --config, or creating the per-user config found
// among searchedPaths.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(p, userConfigMarker) {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

// ForOutputDirectory covers write failures.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForStyleNotFound lists the built-in styles.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForTemplateNotFound explains where templates are looked up.
func ForTemplateNotFound() string {
	return format("pass an .html file path, or put NAME.html under <assets>/templates")
}

// ForElementNotFound explains a header or footer that produced no box.
func ForElementNotFound(legacyLookup bool) string {
	if legacyLookup {
		return format("--legacy-lookup only follows first children; retry without it")
	}
	return format("a stylesheet hides the header or footer element (display: none)")
}

// ForUnknownEngine lists the rendering engines.
func ForUnknownEngine(engines []string) string {
	return format("available engines: " + strings.Join(engines, ", "))
}

// ForUnknownExtension lists the Markdown extensions.
func ForUnknownExtension(extensions []string) string {
	if len(extensions) == 0 {
		return ""
	}
	return format("known extensions: " + strings.Join(extensions, ", "))
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
