package md2pdf

import "github.com/jmaupetit/md2pdf/internal/overlay"

// Input is one document to convert.
type Input struct {
	// Markdown is the document source, optionally starting with a YAML
	// front matter block. Required.
	Markdown string

	// Header and Footer are HTML fragments repeated on every page. Elements
	// with class "pageNumber" or "totalPages" show the page counters.
	Header string
	Footer string

	// Stylesheets apply after the converter style, in order. Each entry is
	// a file path, literal CSS, or a built-in style name.
	Stylesheets []string

	// BaseURL resolves relative image and link paths. Defaults to the
	// working directory.
	BaseURL string

	// Context holds template variables. Front matter values override it.
	Context map[string]any

	// HTMLOnly skips PDF generation.
	HTMLOnly bool
}

// ConvertResult holds the output of a conversion.
type ConvertResult struct {
	HTML    []byte // full HTML document of the body
	PDF     []byte // nil when Input.HTMLOnly is set
	Pages   int
	Margins Margins
}

// Margins are the body page margins: Top and Bottom in CSS px, Side in cm.
type Margins = overlay.Margins

// Rendering engines.
const (
	EngineFlow   = "flow"
	EngineChrome = "chrome"
)

// Engines lists the supported rendering engines.
func Engines() []string {
	return []string{EngineFlow, EngineChrome}
}
