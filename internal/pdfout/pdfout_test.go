package pdfout

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/jmaupetit/md2pdf/internal/layout"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func renderHTML(t *testing.T, html string) *layout.Document {
	t.Helper()
	doc, err := layout.NewEngine().Render(layout.Source{HTML: html})
	if err != nil {
		t.Fatalf("layout Render() unexpected error: %v", err)
	}
	return doc
}

func countPages(t *testing.T, pdf []byte) int {
	t.Helper()
	n, err := PageCount(pdf)
	if err != nil {
		t.Fatalf("PageCount() unexpected error: %v", err)
	}
	return n
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

// ---------------------------------------------------------------------------
// TestRender
// ---------------------------------------------------------------------------

func TestRender(t *testing.T) {
	t.Parallel()

	doc := renderHTML(t, `<html><head><title>Report</title></head><body>
<h1 style="background: #eee; border-bottom: 2px solid navy">Title</h1>
<p>Some <b>bold</b>, <i>italic</i> and <code>code</code> text with accents: éàü €.</p>
</body></html>`)

	out, err := Render(doc)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", out[:min(len(out), 10)])
	}
	if got := countPages(t, out); got != 1 {
		t.Errorf("pages = %d, want 1", got)
	}
	if !bytes.Contains(out, []byte("/Creator")) {
		t.Error("creator missing from document information")
	}
}

func TestRender_PageCount(t *testing.T) {
	t.Parallel()

	doc := renderHTML(t, "<p>one</p><p style='break-before: page'>two</p><p style='break-before: page'>three</p>")
	out, err := Render(doc)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if got := countPages(t, out); got != len(doc.Pages) || got != 3 {
		t.Errorf("PDF pages = %d, layout pages = %d, want 3", got, len(doc.Pages))
	}
}

func TestRender_Images(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	img := &layout.Image{Src: "mem.png", Data: buf.Bytes(), Format: "PNG", Width: 4, Height: 4}

	page := &layout.Page{Width: 200, Height: 200, Box: &layout.Box{Kind: layout.PageBox, Children: []*layout.Box{
		{Kind: layout.ImageBox, X: 10, Y: 10, Width: 40, Height: 40, Style: &layout.Style{}, Image: img},
		{Kind: layout.ImageBox, X: 60, Y: 10, Width: 40, Height: 40, Style: &layout.Style{}, Image: img},
	}}}

	out, err := Render(&layout.Document{Pages: []*layout.Page{page}})
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if got := bytes.Count(out, []byte("/Subtype /Image")); got != 1 {
		t.Errorf("image objects = %d, want one shared object", got)
	}
}

func TestRender_Reproducible(t *testing.T) {
	t.Parallel()

	e := Emitter{Creator: "tests", CreationDate: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	html := `<h1>Same</h1><p>input</p>`

	a, err := e.Render(renderHTML(t, html))
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	b, err := e.Render(renderHTML(t, html))
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two renders with a fixed date differ")
	}
}

// ---------------------------------------------------------------------------
// TestWrite - Errors
// ---------------------------------------------------------------------------

func TestWrite_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  *layout.Document
		want error
	}{
		{"nil document", nil, ErrNoPages},
		{"no pages", &layout.Document{}, ErrNoPages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := Write(&buf, tt.doc); !errors.Is(err, tt.want) {
				t.Errorf("Write() error = %v, want %v", err, tt.want)
			}
			if buf.Len() != 0 {
				t.Errorf("Write() wrote %d bytes on failure", buf.Len())
			}
		})
	}
}

func TestWrite_WriterError(t *testing.T) {
	t.Parallel()

	err := Write(failingWriter{}, renderHTML(t, "<p>x</p>"))
	if !errors.Is(err, ErrEmit) {
		t.Errorf("Write() error = %v, want ErrEmit", err)
	}
}

func TestWrite_BrokenImage(t *testing.T) {
	t.Parallel()

	img := &layout.Image{Src: "broken.png", Data: []byte("not a png"), Format: "PNG", Width: 1, Height: 1}
	page := &layout.Page{Width: 100, Height: 100, Box: &layout.Box{Kind: layout.PageBox, Children: []*layout.Box{
		{Kind: layout.ImageBox, Width: 10, Height: 10, Style: &layout.Style{}, Image: img},
	}}}

	var buf bytes.Buffer
	if err := Write(&buf, &layout.Document{Pages: []*layout.Page{page}}); !errors.Is(err, ErrEmit) {
		t.Errorf("Write() error = %v, want ErrEmit", err)
	}
	if buf.Len() != 0 {
		t.Error("partial output written")
	}
}

// ---------------------------------------------------------------------------
// TestPageCount
// ---------------------------------------------------------------------------

func TestPageCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		html  string
		pages int
	}{
		{"single page", "<p>one</p>", 1},
		{"forced breaks", "<p>a</p><p style='break-before: page'>b</p><p style='break-before: page'>c</p><p style='break-before: page'>d</p>", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := Render(renderHTML(t, tt.html))
			if err != nil {
				t.Fatalf("Render() unexpected error: %v", err)
			}
			got, err := PageCount(out)
			if err != nil {
				t.Fatalf("PageCount() unexpected error: %v", err)
			}
			if got != tt.pages {
				t.Errorf("PageCount() = %d, want %d", got, tt.pages)
			}
		})
	}
}

func TestPageCount_Unreadable(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("not a pdf"), []byte("%PDF-1.4\n2 0 obj <</Type /Page>>\n")} {
		if _, err := PageCount(data); !errors.Is(err, ErrUnreadable) {
			t.Errorf("PageCount(%q) error = %v, want ErrUnreadable", data, err)
		}
	}
}
