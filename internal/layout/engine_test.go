package layout

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func render(t *testing.T, doc string, css ...string) *Document {
	t.Helper()
	return renderFrom(t, "", doc, css...)
}

func renderFrom(t *testing.T, base, doc string, css ...string) *Document {
	t.Helper()
	sheets := make([]Stylesheet, len(css))
	for i, c := range css {
		sheets[i] = Stylesheet{Name: fmt.Sprintf("sheet-%d", i), CSS: c}
	}
	out, err := NewEngine().Render(Source{HTML: doc, BaseURL: base, Stylesheets: sheets})
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	return out
}

// textOf concatenates the text boxes under b in tree order.
func textOf(b *Box) string {
	var sb strings.Builder
	b.Walk(func(x *Box) bool {
		if x.Kind == TextBox {
			sb.WriteString(x.Text)
		}
		return true
	})
	return sb.String()
}

// describe renders a tree as one line per box for structural comparisons.
func describe(doc *Document) string {
	var sb strings.Builder
	for i, p := range doc.Pages {
		fmt.Fprintf(&sb, "page %d\n", i+1)
		p.Box.Walk(func(b *Box) bool {
			fmt.Fprintf(&sb, "%s %s %.2f %.2f %.2f %.2f %q\n", b.Kind, b.Tag, b.X, b.Y, b.Width, b.Height, b.Text)
			return true
		})
	}
	return sb.String()
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// ---------------------------------------------------------------------------
// TestRender - Basic Documents
// ---------------------------------------------------------------------------

func TestRender_SinglePage(t *testing.T) {
	t.Parallel()

	doc := render(t, `<html><head><title> My Doc </title></head><body><h1>Title</h1><p>Hello world</p></body></html>`)

	if doc.Title != "My Doc" {
		t.Errorf("Title = %q, want %q", doc.Title, "My Doc")
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(doc.Pages))
	}
	page := doc.Pages[0]
	if !approx(page.Width, 793.70) || !approx(page.Height, 1122.52) {
		t.Errorf("page size = %.2f x %.2f, want A4", page.Width, page.Height)
	}
	body, err := page.Body(SearchLeftmost)
	if err != nil {
		t.Fatalf("Body() unexpected error: %v", err)
	}
	if got := textOf(body); got != "TitleHello world" {
		t.Errorf("body text = %q", got)
	}
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	src := `<body><h2>A</h2><p>Some <b>bold</b> and <i>italic</i> text.</p><ul><li>one</li><li>two</li></ul></body>`
	if a, b := describe(render(t, src)), describe(render(t, src)); a != b {
		t.Errorf("two renders differ:\n%s\n---\n%s", a, b)
	}
}

func TestRender_PageRule(t *testing.T) {
	t.Parallel()

	doc := render(t, `<p>x</p>`, `@page { size: A5 landscape; margin: 1cm 2cm }`)
	page := doc.Pages[0]

	if !approx(page.Width, 210*pxPerMm) || !approx(page.Height, 148*pxPerMm) {
		t.Errorf("page size = %.2f x %.2f, want A5 landscape", page.Width, page.Height)
	}
	if !approx(page.Margin.Top, pxPerCm) || !approx(page.Margin.Left, 2*pxPerCm) {
		t.Errorf("margins = %+v", page.Margin)
	}
}

func TestRender_LaterPageRuleWins(t *testing.T) {
	t.Parallel()

	doc := render(t, `<p>x</p>`, `@page { margin: 10px }`, `@page { margin: 0 }`)
	if m := doc.Pages[0].Margin; m != (Edges{}) {
		t.Errorf("margins = %+v, want zero", m)
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		css  string
		want error
	}{
		{"invalid page size", `@page { size: banana }`, ErrInvalidPageSize},
		{"negative page size", `@page { size: -10px 20px }`, ErrInvalidPageSize},
		{"unbalanced stylesheet", `p { color: red`, ErrInvalidStylesheet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewEngine().Render(Source{
				HTML:        `<p>x</p>`,
				Stylesheets: []Stylesheet{{Name: "bad", CSS: tt.css}},
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("Render() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRender_DocumentStyleAppliesLast(t *testing.T) {
	t.Parallel()

	doc := render(t, `<html><head><style>@page { margin: 5px }</style></head><body><p>x</p></body></html>`,
		`@page { margin: 50px }`)
	if got := doc.Pages[0].Margin.Top; !approx(got, 5) {
		t.Errorf("top margin = %v, want 5 from <style>", got)
	}
}

// ---------------------------------------------------------------------------
// TestRender - Pagination
// ---------------------------------------------------------------------------

func TestRender_Paginates(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "<p>Paragraph number %d</p>", i)
	}
	sb.WriteString("</body></html>")

	doc := render(t, sb.String())
	if len(doc.Pages) < 2 {
		t.Fatalf("pages = %d, want several", len(doc.Pages))
	}

	for i, page := range doc.Pages {
		for _, strategy := range []SearchStrategy{SearchDepthFirst, SearchLeftmost} {
			if _, err := page.Body(strategy); err != nil {
				t.Errorf("page %d: no body with %s search: %v", i+1, strategy, err)
			}
		}
		limit := page.Height - page.Margin.Bottom + 0.01
		page.Box.Walk(func(b *Box) bool {
			if b.Kind == LineBox && b.Bottom() > limit {
				t.Errorf("page %d: line at %.2f overflows content bottom %.2f", i+1, b.Bottom(), limit)
			}
			return true
		})
	}

	var all strings.Builder
	for _, page := range doc.Pages {
		all.WriteString(textOf(page.Box))
	}
	if !strings.Contains(all.String(), "Paragraph number 199") {
		t.Error("last paragraph missing from the document")
	}
}

// assertInsideContentArea fails when a box below the page box starts above
// the top margin or ends below the bottom margin, or when a block box is
// left empty by a page break.
func assertInsideContentArea(t *testing.T, doc *Document) {
	t.Helper()
	const eps = 0.01
	for i, page := range doc.Pages {
		top, bottom := page.Margin.Top-eps, page.Height-page.Margin.Bottom+eps
		for _, child := range page.Box.Children {
			child.Walk(func(b *Box) bool {
				if b.Y < top || b.Bottom() > bottom {
					t.Errorf("page %d: %s %q spans [%.2f, %.2f], outside [%.2f, %.2f]",
						i+1, b.Kind, b.Tag, b.Y, b.Bottom(), top, bottom)
				}
				if b.Kind == BlockBox && len(b.Children) == 0 && b.Height > 0 && b.Tag != "img" {
					t.Errorf("page %d: empty %s box at %.2f", i+1, b.Tag, b.Y)
				}
				return true
			})
		}
	}
}

func TestRender_BlocksStayInsideContentArea(t *testing.T) {
	t.Parallel()

	const page = `@page { size: A4; margin: 60px 40px 90px 40px }`
	tests := []struct {
		name string
		css  string
		item string
	}{
		{
			name: "bordered padded boxes",
			css:  `.box { padding: 40px; border: 2px solid black; background-color: #eee }`,
			item: `<div class="box">Box %d</div>`,
		},
		{
			name: "nested boxes",
			css:  `.outer { border: 3px solid; padding: 12px } .inner { margin: 10px 0; padding: 8px }`,
			item: `<div class="outer"><div class="inner">Nested %d</div></div>`,
		},
		{
			name: "plain paragraphs",
			css:  `p { margin: 14px 0 }`,
			item: `<p>Paragraph %d</p>`,
		},
		{
			name: "fixed heights",
			css:  `.tall { height: 170px; border: 1px solid }`,
			item: `<div class="tall">Tall %d</div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var sb strings.Builder
			sb.WriteString("<html><body>")
			for i := 0; i < 60; i++ {
				fmt.Fprintf(&sb, tt.item, i)
			}
			sb.WriteString("</body></html>")

			doc := render(t, sb.String(), page, tt.css)
			if len(doc.Pages) < 2 {
				t.Fatalf("pages = %d, want a page break", len(doc.Pages))
			}
			assertInsideContentArea(t, doc)

			var all strings.Builder
			for _, p := range doc.Pages {
				all.WriteString(textOf(p.Box))
			}
			if !strings.Contains(all.String(), "59") {
				t.Error("last item missing from the document")
			}
		})
	}
}

func TestRender_ForcedBreaks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		doc       string
		wantPages int
	}{
		{"break before", `<p>a</p><p style="page-break-before: always">b</p>`, 2},
		{"break after", `<p style="break-after: page">a</p><p>b</p>`, 2},
		{"break before first block ignored", `<p style="page-break-before: always">a</p>`, 1},
		{"break after last block ignored", `<p>a</p><p style="page-break-after: always">b</p>`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := len(render(t, tt.doc).Pages); got != tt.wantPages {
				t.Errorf("pages = %d, want %d", got, tt.wantPages)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRender - Fixed Elements and Counters
// ---------------------------------------------------------------------------

const fixedCSS = `@page { margin: 0 }
header { position: fixed; top: 0; left: 0; right: 0 }
footer { position: fixed; bottom: 0; left: 0; right: 0 }`

func TestRender_FixedHeader(t *testing.T) {
	t.Parallel()

	doc := render(t, `<body><header style="height: 50px">Head</header></body>`, fixedCSS)
	page := doc.Pages[0]
	header := page.Box.Find("header", SearchDepthFirst)
	if header == nil {
		t.Fatal("header box not found")
	}
	if header.Y != 0 || header.X != 0 {
		t.Errorf("header at (%v, %v), want (0, 0)", header.X, header.Y)
	}
	if !approx(header.Height, 50) {
		t.Errorf("header height = %v, want 50", header.Height)
	}
	if !approx(header.Width, page.Width) {
		t.Errorf("header width = %v, want page width %v", header.Width, page.Width)
	}
}

func TestRender_FixedFooter(t *testing.T) {
	t.Parallel()

	doc := render(t, `<body><footer style="padding: 10px">Foot</footer></body>`, fixedCSS)
	page := doc.Pages[0]
	footer := page.Box.Find("footer", SearchDepthFirst)
	if footer == nil {
		t.Fatal("footer box not found")
	}
	if !approx(footer.Bottom(), page.Height) {
		t.Errorf("footer bottom = %v, want page height %v", footer.Bottom(), page.Height)
	}
	if footer.Height < 20 {
		t.Errorf("footer height = %v, want at least its padding", footer.Height)
	}
}

func TestRender_PageCounters(t *testing.T) {
	t.Parallel()

	doc := render(t,
		`<body><header><span class="pageNumber"></span>/<span class="totalPages"></span></header></body>`,
		fixedCSS, `header { counter-increment: page 3 pages 7 }`)

	header := doc.Pages[0].Box.Find("header", SearchDepthFirst)
	if got := textOf(header); got != "3/7" {
		t.Errorf("header text = %q, want %q", got, "3/7")
	}
}

func TestRender_DisplayNone(t *testing.T) {
	t.Parallel()

	doc := render(t, `<body><p>shown</p><p class="hide">hidden</p></body>`, `.hide { display: none }`)
	if got := textOf(doc.Pages[0].Box); got != "shown" {
		t.Errorf("text = %q, want only the visible paragraph", got)
	}
}

// ---------------------------------------------------------------------------
// TestRender - Inline Formatting
// ---------------------------------------------------------------------------

func TestRender_LineBreaking(t *testing.T) {
	t.Parallel()

	words := strings.Repeat("word ", 300)
	doc := render(t, `<body><p>`+words+`</p></body>`)
	p := doc.Pages[0].Box.Find("p", SearchDepthFirst)

	lines := 0
	for _, c := range p.Children {
		if c.Kind != LineBox {
			continue
		}
		lines++
		for _, tb := range c.Children {
			if tb.X+tb.Width > c.X+c.Width+0.01 {
				t.Errorf("text box overflows its line: %.2f > %.2f", tb.X+tb.Width, c.X+c.Width)
			}
		}
	}
	if lines < 2 {
		t.Errorf("lines = %d, want the paragraph to wrap", lines)
	}
}

func TestRender_WhiteSpace(t *testing.T) {
	t.Parallel()

	doc := render(t, "<body><p>a   b\n\tc</p><pre>x  y\nz\n</pre></body>")
	p := doc.Pages[0].Box.Find("p", SearchDepthFirst)
	if got := textOf(p); got != "a b c" {
		t.Errorf("collapsed text = %q, want %q", got, "a b c")
	}

	pre := doc.Pages[0].Box.Find("pre", SearchDepthFirst)
	if len(pre.Children) != 2 {
		t.Fatalf("pre lines = %d, want 2", len(pre.Children))
	}
	if got := textOf(pre.Children[0]); got != "x  y" {
		t.Errorf("first pre line = %q, want spaces preserved", got)
	}
}

func TestRender_LineBreakElement(t *testing.T) {
	t.Parallel()

	doc := render(t, `<body><p>one<br>two</p></body>`)
	p := doc.Pages[0].Box.Find("p", SearchDepthFirst)
	if len(p.Children) != 2 {
		t.Errorf("lines = %d, want 2", len(p.Children))
	}
}

func TestRender_TextAlignCenter(t *testing.T) {
	t.Parallel()

	doc := render(t, `<body><p style="text-align: center">mid</p></body>`)
	line := doc.Pages[0].Box.Find("p", SearchDepthFirst).Children[0]
	text := line.Children[0]

	left := text.X - line.X
	right := line.X + line.Width - (text.X + text.Width)
	if !approx(left, right) {
		t.Errorf("centered text gaps differ: left %.2f right %.2f", left, right)
	}
}

func TestRender_ListMarkers(t *testing.T) {
	t.Parallel()

	doc := render(t, `<body><ol start="3"><li>a</li><li>b</li></ol><ul><li>c</li></ul></body>`)
	got := textOf(doc.Pages[0].Box)
	for _, want := range []string{"3. a", "4. b", "• c"} {
		if !strings.Contains(got, want) {
			t.Errorf("text %q missing %q", got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestRender - Images
// ---------------------------------------------------------------------------

func TestRender_Images(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "pic.png"), 40, 20)

	bmpFile, err := os.Create(filepath.Join(dir, "pic.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(bmpFile, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	bmpFile.Close()

	doc := renderFrom(t, dir, `<body><p><img src="pic.png"><img src="pic.bmp" width="16"><img src="missing.png" alt="gone"></p></body>`)

	var images []*Box
	doc.Pages[0].Box.Walk(func(b *Box) bool {
		if b.Kind == ImageBox {
			images = append(images, b)
		}
		return true
	})
	if len(images) != 2 {
		t.Fatalf("image boxes = %d, want 2", len(images))
	}
	if images[0].Width != 40 || images[0].Height != 20 || images[0].Image.Format != "PNG" {
		t.Errorf("png box = %vx%v %s", images[0].Width, images[0].Height, images[0].Image.Format)
	}
	if images[1].Width != 16 || images[1].Height != 16 || images[1].Image.Format != "PNG" {
		t.Errorf("bmp box = %vx%v %s, want re-encoded 16x16", images[1].Width, images[1].Height, images[1].Image.Format)
	}
	if got := textOf(doc.Pages[0].Box); !strings.Contains(got, "gone") {
		t.Errorf("alt text missing, got %q", got)
	}
}

func TestRender_ImageScaledToContentWidth(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "wide.png"), 4000, 100)

	doc := renderFrom(t, "file://"+filepath.ToSlash(dir), `<body><img src="wide.png"></body>`)
	var img *Box
	doc.Pages[0].Box.Walk(func(b *Box) bool {
		if b.Kind == ImageBox {
			img = b
		}
		return true
	})
	if img == nil {
		t.Fatal("image box not found")
	}
	body := doc.Pages[0].Box.Find("body", SearchDepthFirst)
	if img.Width > body.Width+0.01 {
		t.Errorf("image width %.2f exceeds body width %.2f", img.Width, body.Width)
	}
	if !approx(img.Height, img.Width*100/4000) {
		t.Errorf("aspect ratio not preserved: %vx%v", img.Width, img.Height)
	}
}

// ---------------------------------------------------------------------------
// TestEncodeText / TestTextWidth
// ---------------------------------------------------------------------------

func TestEncodeText(t *testing.T) {
	t.Parallel()

	if got := EncodeText("café €"); got != "caf\xe9 \x80" {
		t.Errorf("EncodeText() = %q", got)
	}
	if got := EncodeText("日本"); got != "??" {
		t.Errorf("EncodeText() = %q, want replacement marks", got)
	}
}

func TestTextWidth(t *testing.T) {
	t.Parallel()

	st := rootStyle()
	st.FontFamily = "Courier"
	st.FontSize = 10
	if got := textWidth("abcd", st); !approx(got, 24) {
		t.Errorf("Courier width = %v, want 24 (600 units per glyph)", got)
	}

	st.FontFamily = "Helvetica"
	narrow, wide := textWidth("iiii", st), textWidth("WWWW", st)
	if narrow >= wide {
		t.Errorf("proportional widths: iiii=%v WWWW=%v", narrow, wide)
	}
}
