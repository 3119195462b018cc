package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// overlayFlags holds the header and footer fragments and page geometry.
type overlayFlags struct {
	header         string // HTML file
	footer         string // HTML file
	sideMargin     float64
	verticalBuffer float64
	legacyLookup   bool

	// set by parseConvertFlags from FlagSet.Changed; zero is a valid value
	sideMarginSet     bool
	verticalBufferSet bool
}

// assetFlags holds styling and template flags.
type assetFlags struct {
	css       []string // files or literal CSS, repeatable
	style     string   // base style name or path
	noStyle   bool
	template  string
	assetPath string
}

// outputFlags holds output mode flags.
type outputFlags struct {
	html     bool // HTML alongside PDF
	htmlOnly bool // HTML only, skip PDF
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common     commonFlags
	output     string
	workers    int
	timeout    string
	baseURL    string
	extras     []string
	vars       []string // key=value
	engine     string
	watch      bool
	overlay    overlayFlags
	assets     assetFlags
	outputMode outputFlags
}

func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed timing and debug events")
}

func addOverlayFlags(fs *flag.FlagSet, f *overlayFlags) {
	fs.StringVar(&f.header, "header", "", "HTML file repeated at the top of every page")
	fs.StringVar(&f.footer, "footer", "", "HTML file repeated at the bottom of every page")
	fs.Float64Var(&f.sideMargin, "side-margin", 0, "left and right page margin in cm (default 2)")
	fs.Float64Var(&f.verticalBuffer, "vertical-buffer", 0, "space between overlays and body in px (default 30)")
	fs.BoolVar(&f.legacyLookup, "legacy-lookup", false, "find header/footer boxes by leftmost descent")
}

func addAssetFlags(fs *flag.FlagSet, f *assetFlags) {
	fs.StringArrayVar(&f.css, "css", nil, "CSS file or literal CSS (repeatable)")
	fs.StringVar(&f.style, "style", "", "base style name or CSS file path")
	fs.BoolVar(&f.noStyle, "no-style", false, "disable the base style")
	fs.StringVar(&f.template, "template", "", "HTML document template name or path")
	fs.StringVar(&f.assetPath, "asset-path", "", "custom asset directory")
}

func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.BoolVar(&f.html, "html", false, "output HTML alongside PDF")
	fs.BoolVar(&f.htmlOnly, "html-only", false, "output HTML only, skip PDF")
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, usage io.Writer) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(usage)
	f := &convertFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output PDF file or directory")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "Chrome page load timeout (e.g. 30s, 2m)")
	fs.StringVar(&f.baseURL, "base-url", "", "base directory for relative paths (default: the input's directory)")
	fs.StringArrayVarP(&f.extras, "extras", "e", nil, "extra Markdown extension (repeatable)")
	fs.StringArrayVar(&f.vars, "var", nil, "template variable key=value (repeatable)")
	fs.StringVar(&f.engine, "engine", "", "rendering engine: flow or chrome")
	fs.BoolVar(&f.watch, "watch", false, "rebuild when inputs change")

	addCommonFlags(fs, &f.common)
	addOverlayFlags(fs, &f.overlay)
	addAssetFlags(fs, &f.assets)
	addOutputFlags(fs, &f.outputMode)

	fs.Usage = func() { printConvertUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	f.overlay.sideMarginSet = fs.Changed("side-margin")
	f.overlay.verticalBufferSet = fs.Changed("vertical-buffer")

	return f, fs.Args(), nil
}
