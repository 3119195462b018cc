package md2pdf

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/jmaupetit/md2pdf/internal/layout"
	"github.com/jmaupetit/md2pdf/internal/overlay"
	"github.com/jmaupetit/md2pdf/internal/pdfout"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// twoPagePDF is a real PDF, as Chrome would print it.
func twoPagePDF(t *testing.T) []byte {
	t.Helper()
	doc, err := layout.NewEngine().Render(layout.Source{HTML: "<p>one</p><p style='break-before: page'>two</p>"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := pdfout.Render(doc)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

type fakeRenderer struct {
	html   string
	opts   *pdfOptions
	output []byte
	err    error
	closed bool
}

var _ pdfRenderer = (*fakeRenderer)(nil)

func (r *fakeRenderer) RenderFromFile(_ context.Context, path string, opts *pdfOptions) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r.html = string(content)
	r.opts = opts
	if r.err != nil {
		return nil, r.err
	}
	return r.output, nil
}

func (r *fakeRenderer) Close() error {
	r.closed = true
	return nil
}

func newFakeChrome(r pdfRenderer) *chromeConverter {
	return &chromeConverter{
		renderer: r,
		engine:   layout.NewEngine(),
		opts:     overlay.DefaultOptions(),
		logger:   defaultConfig().logger,
	}
}

// ---------------------------------------------------------------------------
// TestChromeConverter
// ---------------------------------------------------------------------------

func TestChromeConverter_ToPDF(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{output: twoPagePDF(t)}
	conv := newFakeChrome(renderer)
	dir := t.TempDir()

	out, err := conv.ToPDF(context.Background(), &document{
		HTML:        `<html><head></head><body><img src="logo.png"></body></html>`,
		Header:      "<p>Head</p>",
		Stylesheets: []layout.Stylesheet{{Name: "a", CSS: "p { color: red }"}},
		BaseDir:     dir,
	})
	if err != nil {
		t.Fatalf("ToPDF() error = %v", err)
	}

	if out.Pages != 2 {
		t.Errorf("Pages = %d, want 2", out.Pages)
	}
	if out.Margins.Top <= overlay.DefaultVerticalBuffer {
		t.Errorf("top margin = %v, want header height plus buffer", out.Margins.Top)
	}
	if out.Margins.Bottom != overlay.DefaultVerticalBuffer {
		t.Errorf("bottom margin = %v, want buffer only", out.Margins.Bottom)
	}
	if !strings.Contains(renderer.html, "<style>p { color: red }</style>") {
		t.Errorf("stylesheet not injected:\n%s", renderer.html)
	}
	if !strings.Contains(renderer.html, "file://") {
		t.Errorf("relative image not rewritten:\n%s", renderer.html)
	}
	if !strings.Contains(renderer.opts.HeaderTemplate, "<header><p>Head</p></header>") {
		t.Errorf("HeaderTemplate = %q", renderer.opts.HeaderTemplate)
	}
	if renderer.opts.FooterTemplate != "" {
		t.Errorf("FooterTemplate = %q, want empty without footer", renderer.opts.FooterTemplate)
	}
}

func TestChromeConverter_UnreadableOutput(t *testing.T) {
	t.Parallel()

	conv := newFakeChrome(&fakeRenderer{output: []byte("%PDF-1.4\n2 0 obj <</Type /Page>>\n")})
	_, err := conv.ToPDF(context.Background(), &document{HTML: "<p>x</p>", BaseDir: t.TempDir()})
	if !errors.Is(err, pdfout.ErrUnreadable) {
		t.Errorf("ToPDF() error = %v, want ErrUnreadable", err)
	}
}

func TestChromeConverter_RendererError(t *testing.T) {
	t.Parallel()

	conv := newFakeChrome(&fakeRenderer{err: ErrPageLoad})
	_, err := conv.ToPDF(context.Background(), &document{HTML: "<p>x</p>", BaseDir: t.TempDir()})
	if !errors.Is(err, ErrPageLoad) {
		t.Errorf("ToPDF() error = %v, want ErrPageLoad", err)
	}
}

func TestChromeConverter_Close(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{}
	if err := newFakeChrome(renderer).Close(); err != nil {
		t.Fatal(err)
	}
	if !renderer.closed {
		t.Error("Close() did not close the renderer")
	}
}

// ---------------------------------------------------------------------------
// TestBuildPDFOptions
// ---------------------------------------------------------------------------

func TestBuildPDFOptions(t *testing.T) {
	t.Parallel()

	t.Run("margins converted to inches", func(t *testing.T) {
		t.Parallel()

		p := buildPDFOptions(&pdfOptions{Margins: Margins{Top: 96, Bottom: 48, Side: 2.54}})
		checks := map[string][2]float64{
			"top":    {*p.MarginTop, 1},
			"bottom": {*p.MarginBottom, 0.5},
			"left":   {*p.MarginLeft, 1},
			"right":  {*p.MarginRight, 1},
			"width":  {*p.PaperWidth, 210 / 25.4},
		}
		for name, c := range checks {
			if math.Abs(c[0]-c[1]) > 1e-9 {
				t.Errorf("%s = %v, want %v", name, c[0], c[1])
			}
		}
		if p.DisplayHeaderFooter {
			t.Error("DisplayHeaderFooter should be off without fragments")
		}
	})

	t.Run("footer only fills an empty header", func(t *testing.T) {
		t.Parallel()

		p := buildPDFOptions(&pdfOptions{FooterTemplate: "<footer>f</footer>"})
		if !p.DisplayHeaderFooter {
			t.Fatal("DisplayHeaderFooter should be on")
		}
		if p.HeaderTemplate != "<span></span>" {
			t.Errorf("HeaderTemplate = %q, want empty span", p.HeaderTemplate)
		}
	})
}

func TestFragmentTemplate(t *testing.T) {
	t.Parallel()

	got := fragmentTemplate(overlay.Footer, `<span class="pageNumber"></span>`, Margins{Side: 1.5}, []string{"span { color: gray }"})
	for _, want := range []string{
		"<style>span { color: gray }</style>",
		"margin: 0 1.5cm",
		`<footer><span class="pageNumber"></span></footer>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("fragmentTemplate() missing %q in %q", want, got)
		}
	}
	if fragmentTemplate(overlay.Header, "", Margins{}, nil) != "" {
		t.Error("absent fragment should give an empty template")
	}
}

// ---------------------------------------------------------------------------
// TestChromeEngine - real browser
// ---------------------------------------------------------------------------

func TestChromeEngine_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, ok := launcher.LookPath(); !ok && os.Getenv("ROD_BROWSER_BIN") == "" {
		t.Skip("no Chrome/Chromium found")
	}

	conv, err := NewConverter(WithEngine(EngineChrome))
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	defer conv.Close()

	res, err := conv.Convert(context.Background(), Input{
		Markdown: "# Chrome\n\nPrinted by the browser.",
		Footer:   `<p><span class="pageNumber"></span>/<span class="totalPages"></span></p>`,
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.HasPrefix(string(res.PDF), "%PDF-") {
		t.Error("output is not a PDF")
	}
	if res.Pages < 1 {
		t.Errorf("Pages = %d, want at least 1", res.Pages)
	}
}
