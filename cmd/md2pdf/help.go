package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	md2pdf "github.com/jmaupetit/md2pdf"
	"github.com/jmaupetit/md2pdf/internal/dateutil"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert markdown files to PDF")
	fmt.Fprintln(w, "  doctor     Check the rendering environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'md2pdf help <command>' for details on a specific command.")
}

func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf convert [flags] <input.md|dir>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert markdown files to PDF, with an optional header and footer")
	fmt.Fprintln(w, "repeated on every page.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Markdown files or directories (optional if config has input.defaultDir)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>          Output PDF file (single input) or directory")
	fmt.Fprintln(w, "  -c, --config <name>          Config file name or path")
	fmt.Fprintln(w, "  -w, --workers <n>            Parallel workers (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>            Chrome page load timeout (e.g. 30s)")
	fmt.Fprintln(w, "      --base-url <dir>         Base for relative paths (default: input's directory)")
	fmt.Fprintln(w, "      --html                   Write HTML alongside the PDF")
	fmt.Fprintln(w, "      --html-only              Write HTML only")
	fmt.Fprintln(w, "      --watch                  Rebuild when inputs, CSS or overlays change")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Header/Footer:")
	fmt.Fprintln(w, "      --header <file.html>     Fragment repeated at the top of every page")
	fmt.Fprintln(w, "      --footer <file.html>     Fragment repeated at the bottom of every page")
	fmt.Fprintln(w, "                               <span class=\"pageNumber\"> and <span class=\"totalPages\">")
	fmt.Fprintln(w, "                               show the page counters")
	fmt.Fprintln(w, "      --side-margin <cm>       Left and right margin (default 2)")
	fmt.Fprintln(w, "      --vertical-buffer <px>   Gap between overlays and body (default 30)")
	fmt.Fprintln(w, "      --legacy-lookup          Find overlay boxes by leftmost descent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Markdown:")
	fmt.Fprintln(w, "  -e, --extras <name>          Extra extension (repeatable): "+strings.Join(extensionNames(), ", "))
	fmt.Fprintln(w, "      --var <key=value>        Template variable (repeatable)")
	fmt.Fprintln(w, "                               \"auto\" or \"auto:FORMAT\" values become today's date")
	fmt.Fprintln(w, "                               Presets: "+strings.Join(datePresetNames(), ", "))
	fmt.Fprintln(w, "      --template <name|path>   HTML document template")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Styling:")
	fmt.Fprintln(w, "      --css <file|css>         Stylesheet applied after the base style (repeatable)")
	fmt.Fprintln(w, "      --style <name|path>      Base style (default \"default\")")
	fmt.Fprintln(w, "      --no-style               Disable the base style")
	fmt.Fprintln(w, "      --asset-path <dir>       Custom styles/ and templates/ directory")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --engine <name>          "+strings.Join(md2pdf.Engines(), " or ")+" (default flow)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet                  Only show errors")
	fmt.Fprintln(w, "  -v, --verbose                Show detailed timing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  "+strings.Join(knownEnvVarNames(), ", "))
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check both rendering engines and the system.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: md2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: md2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}

func datePresetNames() []string {
	names := make([]string, 0, len(dateutil.DatePresets))
	for name := range dateutil.DatePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
