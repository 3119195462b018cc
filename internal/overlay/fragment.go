package overlay

import (
	"errors"
	"fmt"

	"github.com/jmaupetit/md2pdf/internal/layout"
)

// ErrNoPage indicates a render that produced no page at all.
var ErrNoPage = errors.New("render produced no page")

// Engine renders HTML into a paginated box tree.
type Engine interface {
	Render(src layout.Source) (*layout.Document, error)
}

// Compile-time interface check.
var _ Engine = (*layout.Engine)(nil)

// Kind is the role of a fragment.
type Kind int

const (
	Header Kind = iota
	Footer
)

// Tag returns the wrapper element of the fragment kind.
func (k Kind) Tag() string {
	if k == Footer {
		return "footer"
	}
	return "header"
}

// String implements fmt.Stringer.
func (k Kind) String() string { return k.Tag() }

// Fragment is a caller-supplied header or footer snippet.
type Fragment struct {
	Kind Kind
	HTML string // raw, without the wrapper element
}

// NewFragment returns a fragment for raw, or nil when raw is empty.
func NewFragment(kind Kind, raw string) *Fragment {
	if raw == "" {
		return nil
	}
	return &Fragment{Kind: kind, HTML: raw}
}

// Document returns the fragment wrapped in its semantic element.
func (f *Fragment) Document() string {
	tag := f.Kind.Tag()
	return "<" + tag + ">" + f.HTML + "</" + tag + ">"
}

// Rendered is a fragment laid out on a single page.
type Rendered struct {
	Body   *layout.Box  // body box of the fragment page, whose children get grafted
	Height float64      // measured height in px
	Page   *layout.Page // the page the fragment was laid out on
}

// FragmentSource renders a fragment with the counters of one page.
type FragmentSource interface {
	Render(f *Fragment, page, total int) (*Rendered, error)
}

// Compile-time interface check.
var _ FragmentSource = (*FragmentRenderer)(nil)

// Names of the system stylesheets.
const (
	LayoutSheetName     = "overlay-layout"
	CounterSheetName    = "overlay-counters"
	PageLayoutSheetName = "page-layout"
)

// overlayLayoutCSS pins fragments to a single A4 page without margins:
// headers to the top edge, footers to the bottom edge.
const overlayLayoutCSS = `@page {size: A4 portrait; margin: 0;}
header {position: fixed; top: 0; left: 0; right: 0;}
footer {position: fixed; bottom: 0; left: 0; right: 0;}`

// LayoutSheet returns the single-page layout applied to every fragment.
func LayoutSheet() layout.Stylesheet {
	return layout.Stylesheet{Name: LayoutSheetName, CSS: overlayLayoutCSS}
}

// CounterSheet returns the stylesheet setting the page and pages counters
// on fragment wrappers.
func CounterSheet(page, total int) layout.Stylesheet {
	return layout.Stylesheet{
		Name: CounterSheetName,
		CSS:  fmt.Sprintf("footer, header {counter-increment: page %d pages %d;}", page, total),
	}
}

// FragmentRenderer renders fragments through an Engine.
type FragmentRenderer struct {
	Engine      Engine
	BaseURL     string
	Stylesheets []layout.Stylesheet // caller stylesheets, applied after the system ones
	Search      layout.SearchStrategy
}

// Render lays out f alone on one page with the given counters. Engine
// errors are returned as is.
func (r *FragmentRenderer) Render(f *Fragment, page, total int) (*Rendered, error) {
	sheets := make([]layout.Stylesheet, 0, len(r.Stylesheets)+2)
	sheets = append(sheets, LayoutSheet(), CounterSheet(page, total))
	sheets = append(sheets, r.Stylesheets...)

	doc, err := r.Engine.Render(layout.Source{
		HTML:        f.Document(),
		BaseURL:     r.BaseURL,
		Stylesheets: sheets,
	})
	if err != nil {
		return nil, err
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%s fragment: %w", f.Kind, ErrNoPage)
	}

	p := doc.Pages[0]
	body, err := p.Body(r.Search)
	if err != nil {
		return nil, fmt.Errorf("%s fragment (page %d/%d): %w", f.Kind, page, total, err)
	}
	el, err := body.Lookup(f.Kind.Tag(), r.Search)
	if err != nil {
		return nil, fmt.Errorf("%s fragment (page %d/%d): %w", f.Kind, page, total, err)
	}

	height := el.Height
	if f.Kind == Footer {
		// footers are pinned to the bottom edge
		height = p.Height - el.Y
	}
	return &Rendered{Body: body, Height: roundPx(height), Page: p}, nil
}

// Measure returns the height of f rendered as page 1 of 1. A nil fragment
// measures 0.
func (r *FragmentRenderer) Measure(f *Fragment) (float64, error) {
	if f == nil {
		return 0, nil
	}
	rendered, err := r.Render(f, 1, 1)
	if err != nil {
		return 0, err
	}
	return rendered.Height, nil
}
