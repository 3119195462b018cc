package layout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sentinel errors for engine failures.
var (
	ErrInvalidHTML     = errors.New("invalid HTML")
	ErrInvalidPageSize = errors.New("invalid page size")
)

// Page sizes in px.
var (
	A4Width  = 210 * pxPerMm
	A4Height = 297 * pxPerMm
)

// defaultPageMargin is the page margin used when no @page rule sets one.
const defaultPageMargin = 75.0

// namedSizes maps @page size keywords to portrait width and height in px.
var namedSizes = map[string][2]float64{
	"a3":     {297 * pxPerMm, 420 * pxPerMm},
	"a4":     {210 * pxPerMm, 297 * pxPerMm},
	"a5":     {148 * pxPerMm, 210 * pxPerMm},
	"b4":     {250 * pxPerMm, 353 * pxPerMm},
	"b5":     {176 * pxPerMm, 250 * pxPerMm},
	"letter": {8.5 * pxPerInch, 11 * pxPerInch},
	"legal":  {8.5 * pxPerInch, 14 * pxPerInch},
	"ledger": {11 * pxPerInch, 17 * pxPerInch},
}

// Source is the input of one render.
type Source struct {
	HTML        string
	BaseURL     string // directory or file:// URL used to resolve relative image paths
	Stylesheets []Stylesheet
}

// Engine lays out HTML into a paginated box tree. It is safe for
// concurrent use; decoded images are cached for its lifetime.
type Engine struct {
	images *imageCache
}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{images: newImageCache()}
}

// Render parses src and lays it out. Stylesheets apply in order after the
// built-in defaults and before the document's own <style> elements.
func (e *Engine) Render(src Source) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHTML, err)
	}

	order := 0
	ua, err := parseStylesheet("user-agent", userAgentCSS, &order)
	if err != nil {
		return nil, err
	}
	sheets := []*sheet{ua}
	for _, ss := range src.Stylesheets {
		s, err := parseStylesheet(ss.Name, ss.CSS, &order)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}
	for i, css := range collectStyles(root) {
		s, err := parseStylesheet("style#"+strconv.Itoa(i+1), css, &order)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}

	ps := defaultPageSetup()
	for _, s := range sheets {
		for _, d := range s.page {
			if err := ps.apply(d); err != nil {
				return nil, err
			}
		}
	}

	f := newFlow(e, src.BaseURL, ps)
	f.doc.Title = documentTitle(root)
	if htmlEl := findElement(root, atom.Html); htmlEl != nil {
		if tree := buildTree(htmlEl, rootStyle(), newCascade(sheets)); tree != nil {
			f.layoutBlock(tree)
		}
	}
	return f.doc, nil
}

// pageSetup is the result of the @page cascade.
type pageSetup struct {
	width, height float64
	margin        [4]Length
}

func defaultPageSetup() pageSetup {
	m := px(defaultPageMargin)
	return pageSetup{width: A4Width, height: A4Height, margin: [4]Length{m, m, m, m}}
}

func (p *pageSetup) apply(d declaration) error {
	switch d.property {
	case "size":
		w, h, err := parsePageSize(d.value)
		if err != nil {
			return err
		}
		p.width, p.height = w, h
	case "margin":
		if e, ok := parseEdges(d.value); ok {
			p.margin = e
		}
	case "margin-top":
		setLength(&p.margin[0], d.value)
	case "margin-right":
		setLength(&p.margin[1], d.value)
	case "margin-bottom":
		setLength(&p.margin[2], d.value)
	case "margin-left":
		setLength(&p.margin[3], d.value)
	}
	return nil
}

// resolveMargin resolves the page margins. Percentages refer to the page width.
func (p pageSetup) resolveMargin() Edges {
	r := func(l Length) float64 { return l.Resolve(rootFontSize, p.width) }
	return Edges{Top: r(p.margin[0]), Right: r(p.margin[1]), Bottom: r(p.margin[2]), Left: r(p.margin[3])}
}

// parsePageSize parses an @page size value.
func parsePageSize(v string) (float64, float64, error) {
	fields := strings.Fields(strings.ToLower(v))
	var (
		w, h        float64
		orientation string
		lengths     []float64
	)
	for _, field := range fields {
		switch field {
		case "auto":
			w, h = A4Width, A4Height
		case "portrait", "landscape":
			orientation = field
		default:
			if size, ok := namedSizes[field]; ok {
				w, h = size[0], size[1]
				continue
			}
			l, ok := parseLength(field)
			if !ok || l.Auto || l.Unit == "%" {
				return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPageSize, v)
			}
			lengths = append(lengths, l.Resolve(rootFontSize, 0))
		}
	}

	switch len(lengths) {
	case 0:
	case 1:
		w, h = lengths[0], lengths[0]
	case 2:
		w, h = lengths[0], lengths[1]
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPageSize, v)
	}
	if w == 0 && h == 0 {
		w, h = A4Width, A4Height
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPageSize, v)
	}
	if (orientation == "landscape" && w < h) || (orientation == "portrait" && w > h) {
		w, h = h, w
	}
	return w, h, nil
}
