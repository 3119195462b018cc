package overlay

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jmaupetit/md2pdf/internal/layout"
)

// ErrInvalidOptions indicates unusable generator options.
var ErrInvalidOptions = errors.New("invalid overlay options")

// Defaults.
const (
	DefaultSideMargin     = 2.0  // cm
	DefaultVerticalBuffer = 30.0 // px
)

// Options configures a Generator.
type Options struct {
	SideMargin     float64 // cm, left and right
	VerticalBuffer float64 // px, between overlays and body content
	Search         layout.SearchStrategy
}

// DefaultOptions returns 2cm sides, a 30px buffer and depth-first search.
func DefaultOptions() Options {
	return Options{
		SideMargin:     DefaultSideMargin,
		VerticalBuffer: DefaultVerticalBuffer,
		Search:         layout.SearchDepthFirst,
	}
}

// Validate rejects negative or non-finite values.
func (o Options) Validate() error {
	if o.SideMargin < 0 || math.IsNaN(o.SideMargin) || math.IsInf(o.SideMargin, 0) {
		return fmt.Errorf("%w: side margin %v", ErrInvalidOptions, o.SideMargin)
	}
	if o.VerticalBuffer < 0 || math.IsNaN(o.VerticalBuffer) || math.IsInf(o.VerticalBuffer, 0) {
		return fmt.Errorf("%w: vertical buffer %v", ErrInvalidOptions, o.VerticalBuffer)
	}
	switch o.Search {
	case layout.SearchDepthFirst, layout.SearchLeftmost:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidOptions, o.Search)
	}
	return nil
}

// Request is one document to generate.
type Request struct {
	MainHTML    string
	HeaderHTML  string // raw, empty when absent
	FooterHTML  string // raw, empty when absent
	BaseURL     string
	Stylesheets []layout.Stylesheet
}

// Result is a composited document ready for emission.
type Result struct {
	Document     *layout.Document
	Margins      Margins
	HeaderHeight float64
	FooterHeight float64
}

// Emitter serializes a composited document.
type Emitter interface {
	Render(doc *layout.Document) ([]byte, error)
}

// Generator runs measurement, body layout and compositing in sequence.
type Generator struct {
	engine Engine
	opts   Options
}

// NewGenerator creates a Generator.
func NewGenerator(engine Engine, opts Options) (*Generator, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Generator{engine: engine, opts: opts}, nil
}

// Render produces the composited document of req.
func (g *Generator) Render(ctx context.Context, req Request) (*Result, error) {
	header := NewFragment(Header, req.HeaderHTML)
	footer := NewFragment(Footer, req.FooterHTML)
	fragments := &FragmentRenderer{
		Engine:      g.engine,
		BaseURL:     req.BaseURL,
		Stylesheets: req.Stylesheets,
		Search:      g.opts.Search,
	}

	headerHeight, err := fragments.Measure(header)
	if err != nil {
		return nil, err
	}
	footerHeight, err := fragments.Measure(footer)
	if err != nil {
		return nil, err
	}
	margins := ComputeMargins(headerHeight, footerHeight, g.opts.SideMargin, g.opts.VerticalBuffer)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := g.renderBody(req, margins)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	compositor := &Compositor{
		Source: fragments,
		Search: g.opts.Search,
		Header: header,
		Footer: footer,
	}
	if err := compositor.Apply(ctx, doc); err != nil {
		return nil, err
	}

	return &Result{
		Document:     doc,
		Margins:      margins,
		HeaderHeight: headerHeight,
		FooterHeight: footerHeight,
	}, nil
}

// renderBody lays out the main document with the page rule first and the
// caller stylesheets after it.
func (g *Generator) renderBody(req Request, margins Margins) (*layout.Document, error) {
	sheets := make([]layout.Stylesheet, 0, len(req.Stylesheets)+1)
	sheets = append(sheets, margins.Stylesheet())
	sheets = append(sheets, req.Stylesheets...)

	return g.engine.Render(layout.Source{
		HTML:        req.MainHTML,
		BaseURL:     req.BaseURL,
		Stylesheets: sheets,
	})
}

// Generate renders req and serializes it with emitter. No bytes are
// produced unless every stage succeeded.
func (g *Generator) Generate(ctx context.Context, req Request, emitter Emitter) ([]byte, *Result, error) {
	res, err := g.Render(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	out, err := emitter.Render(res.Document)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}
