package md2pdf

import (
	"context"

	"github.com/jmaupetit/md2pdf/internal/layout"
)

// document is the output of the Markdown stage, handed to a backend.
type document struct {
	HTML        string // full body document
	Header      string // substituted fragment, empty when absent
	Footer      string
	Stylesheets []layout.Stylesheet // base style first, then caller sheets
	BaseDir     string              // absolute directory for relative paths
}

// pdfOutput is what a backend produced for one document.
type pdfOutput struct {
	PDF     []byte
	Pages   int
	Margins Margins
}

// pdfConverter renders a prepared document to PDF.
type pdfConverter interface {
	ToPDF(ctx context.Context, doc *document) (*pdfOutput, error)
	Close() error
}

// Compile-time interface checks.
var (
	_ pdfConverter = (*flowConverter)(nil)
	_ pdfConverter = (*chromeConverter)(nil)
)

// newPDFConverter builds the backend selected by cfg.engine.
func newPDFConverter(cfg converterConfig) (pdfConverter, error) {
	switch cfg.engine {
	case EngineFlow:
		return newFlowConverter(cfg)
	case EngineChrome:
		return newChromeConverter(cfg)
	}
	return nil, ErrUnknownEngine
}
