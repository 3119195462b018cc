package md2pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/jmaupetit/md2pdf/internal/fileutil"
	"github.com/jmaupetit/md2pdf/internal/layout"
	"github.com/jmaupetit/md2pdf/internal/overlay"
	"github.com/jmaupetit/md2pdf/internal/pdfout"
	"github.com/jmaupetit/md2pdf/internal/pipeline"
	"github.com/jmaupetit/md2pdf/internal/process"
)

// pdfRenderer prints a local HTML file to PDF. Abstracted so the Chrome
// backend can be tested without a browser.
type pdfRenderer interface {
	RenderFromFile(ctx context.Context, filePath string, opts *pdfOptions) ([]byte, error)
	Close() error
}

var _ pdfRenderer = (*rodRenderer)(nil)

// pdfOptions holds the print settings of one document.
type pdfOptions struct {
	Margins        Margins
	HeaderTemplate string // empty when the document has no header
	FooterTemplate string
}

// A4 portrait in inches, and the unit conversions Chrome needs.
const (
	paperWidthInches  = 210 / 25.4
	paperHeightInches = 297 / 25.4
	pxPerInch         = 96
	cmPerInch         = 2.54
)

// fragmentFontSize replaces Chrome's default template font size of 0.
const fragmentFontSize = "10px"

// rodRenderer implements pdfRenderer using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodRenderer struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

func newRodRenderer(timeout time.Duration) *rodRenderer {
	return &rodRenderer{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()
	// Pre-installed browser (Docker/containerized environments).
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	// NoSandbox required for CI and containers.
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher = l

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		r.kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources, then makes sure no Chrome helper
// process outlives the renderer.
func (r *rodRenderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.kill()
	return err
}

func (r *rodRenderer) kill() {
	if r.launcher == nil {
		return
	}
	pid := r.launcher.PID()
	r.launcher.Kill()
	process.KillProcessGroup(pid)
	r.launcher = nil
}

// RenderFromFile opens a local HTML file in headless Chrome and prints it.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string, opts *pdfOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: pipeline.PathToFileURL(filePath)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(buildPDFOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

// buildPDFOptions places the body inside the measured margins and enables
// Chrome's header and footer only when a fragment exists.
func buildPDFOptions(opts *pdfOptions) *proto.PagePrintToPDF {
	m := opts.Margins
	side := m.Side / cmPerInch
	p := &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(m.Top / pxPerInch),
		MarginBottom:    floatPtr(m.Bottom / pxPerInch),
		MarginLeft:      floatPtr(side),
		MarginRight:     floatPtr(side),
		PrintBackground: true,
	}
	if opts.HeaderTemplate != "" || opts.FooterTemplate != "" {
		p.DisplayHeaderFooter = true
		p.HeaderTemplate = orEmptySpan(opts.HeaderTemplate)
		p.FooterTemplate = orEmptySpan(opts.FooterTemplate)
	}
	return p
}

func orEmptySpan(s string) string {
	if s == "" {
		return "<span></span>"
	}
	return s
}

func floatPtr(v float64) *float64 {
	return &v
}

// chromeConverter measures the fragments with the flow engine, then lets
// Chrome print the body with the fragments as native page templates. Both
// engines use the pageNumber and totalPages classes for the counters.
type chromeConverter struct {
	renderer pdfRenderer
	engine   overlay.Engine
	opts     overlay.Options
	logger   *zap.Logger
}

func newChromeConverter(cfg converterConfig) (*chromeConverter, error) {
	opts := overlayOptions(cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &chromeConverter{
		renderer: newRodRenderer(cfg.timeout),
		engine:   layout.NewEngine(),
		opts:     opts,
		logger:   cfg.logger,
	}, nil
}

// ToPDF prints doc through Chrome.
func (c *chromeConverter) ToPDF(ctx context.Context, doc *document) (*pdfOutput, error) {
	fragments := &overlay.FragmentRenderer{
		Engine:      c.engine,
		BaseURL:     doc.BaseDir,
		Stylesheets: doc.Stylesheets,
		Search:      c.opts.Search,
	}
	headerHeight, err := fragments.Measure(overlay.NewFragment(overlay.Header, doc.Header))
	if err != nil {
		return nil, fmt.Errorf("measuring header: %w", err)
	}
	footerHeight, err := fragments.Measure(overlay.NewFragment(overlay.Footer, doc.Footer))
	if err != nil {
		return nil, fmt.Errorf("measuring footer: %w", err)
	}
	margins := overlay.ComputeMargins(headerHeight, footerHeight, c.opts.SideMargin, c.opts.VerticalBuffer)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := pipeline.RewriteRelativePaths(doc.HTML, doc.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("rewriting relative paths: %w", err)
	}
	css := stylesheetContents(doc.Stylesheets)
	page = pipeline.InjectStyles(page, css...)

	tmpPath, cleanup, err := fileutil.WriteTempFile(page, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	data, err := c.renderer.RenderFromFile(ctx, tmpPath, &pdfOptions{
		Margins:        margins,
		HeaderTemplate: fragmentTemplate(overlay.Header, doc.Header, margins, css),
		FooterTemplate: fragmentTemplate(overlay.Footer, doc.Footer, margins, css),
	})
	if err != nil {
		return nil, fmt.Errorf("converting to PDF: %w", err)
	}

	pages, err := pdfout.PageCount(data)
	if err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}
	c.logger.Debug("document printed",
		zap.Int("pages", pages),
		zap.String("margins", margins.CSS()))

	return &pdfOutput{PDF: data, Pages: pages, Margins: margins}, nil
}

// Close releases the browser.
func (c *chromeConverter) Close() error {
	return c.renderer.Close()
}

// fragmentTemplate wraps a fragment for Chrome's header or footer slot.
// Templates do not inherit the page styles, so the stylesheets are inlined.
func fragmentTemplate(kind overlay.Kind, raw string, m Margins, css []string) string {
	f := overlay.NewFragment(kind, raw)
	if f == nil {
		return ""
	}
	wrapper := fmt.Sprintf(`<div style="width: 100%%; font-size: %s; margin: 0 %scm;">%s</div>`,
		fragmentFontSize, strconv.FormatFloat(m.Side, 'f', -1, 64), f.Document())
	return pipeline.InjectStyles(wrapper, css...)
}

func stylesheetContents(sheets []layout.Stylesheet) []string {
	out := make([]string, 0, len(sheets))
	for _, s := range sheets {
		out = append(out, s.CSS)
	}
	return out
}
