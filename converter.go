package md2pdf

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jmaupetit/md2pdf/internal/assets"
	"github.com/jmaupetit/md2pdf/internal/fileutil"
	"github.com/jmaupetit/md2pdf/internal/layout"
	"github.com/jmaupetit/md2pdf/internal/pipeline"
)

// Converter orchestrates the Markdown-to-PDF pipeline.
// Create with NewConverter, use Convert for conversion, and Close when done.
// A Converter is not safe for concurrent use; see ConverterPool.
type Converter struct {
	cfg           converterConfig
	assetLoader   assets.AssetLoader
	preprocessor  pipeline.Preprocessor
	htmlConverter pipeline.HTMLConverter
	template      *pipeline.DocumentTemplate
	baseStyle     *layout.Stylesheet // nil when disabled
	pdfConverter  pdfConverter
}

// NewConverter creates a Converter. Options are validated, the base style
// and template are loaded, and the rendering backend is prepared; Chrome
// itself starts on the first conversion.
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:          defaultConfig(),
		assetLoader:  assets.NewEmbeddedLoader(),
		preprocessor: &pipeline.MarkdownPreprocessor{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.cfg.validate(); err != nil {
		return nil, err
	}

	if c.cfg.assetPath != "" {
		resolver, err := assets.NewAssetResolver(c.cfg.assetPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
		}
		c.assetLoader = resolver
	}

	if c.htmlConverter == nil {
		conv, err := pipeline.NewConfiguredGoldmarkConverter(c.cfg.extensionCfg, c.cfg.extensions...)
		if err != nil {
			return nil, err
		}
		c.htmlConverter = conv
	}

	if c.cfg.style != "" {
		sheet, err := loadStylesheet(c.assetLoader, c.cfg.style, 0)
		if err != nil {
			return nil, err
		}
		c.baseStyle = &sheet
	}

	if err := c.loadTemplate(); err != nil {
		return nil, err
	}

	if c.pdfConverter == nil {
		backend, err := newPDFConverter(c.cfg)
		if err != nil {
			return nil, err
		}
		c.pdfConverter = backend
	}

	return c, nil
}

// validate rejects settings no conversion could use.
func (cfg converterConfig) validate() error {
	if !isNonNegative(cfg.sideMargin) {
		return fmt.Errorf("%w: %v (must be a non-negative number of cm)", ErrInvalidSideMargin, cfg.sideMargin)
	}
	if !isNonNegative(cfg.verticalBuffer) {
		return fmt.Errorf("%w: %v (must be a non-negative number of px)", ErrInvalidVerticalBuffer, cfg.verticalBuffer)
	}
	switch cfg.engine {
	case EngineFlow, EngineChrome:
	default:
		return fmt.Errorf("%w: %q (want one of %s)", ErrUnknownEngine, cfg.engine, strings.Join(Engines(), ", "))
	}
	return nil
}

func isNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// loadTemplate resolves the base template from a file path or an asset name.
func (c *Converter) loadTemplate() error {
	var src string
	if fileutil.IsFilePath(c.cfg.template) || fileutil.HasExtension(c.cfg.template, ".html") {
		content, err := os.ReadFile(c.cfg.template) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("loading template file %q: %w", c.cfg.template, err)
		}
		src = string(content)
	} else {
		content, err := c.assetLoader.LoadTemplate(c.cfg.template)
		if err != nil {
			return fmt.Errorf("loading template %q: %w", c.cfg.template, err)
		}
		src = content
	}

	tmpl, err := pipeline.NewDocumentTemplate(src)
	if err != nil {
		return fmt.Errorf("parsing template %q: %w", c.cfg.template, err)
	}
	c.template = tmpl
	return nil
}

// Convert runs the full pipeline and returns the HTML and PDF.
// The context is checked between stages; a canceled context returns its
// error and no PDF. Internal panics are recovered into errors.
func (c *Converter) Convert(ctx context.Context, input Input) (result *ConvertResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := c.validateInput(input); err != nil {
		return nil, err
	}

	doc, err := c.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	res := &ConvertResult{HTML: []byte(doc.HTML)}
	if input.HTMLOnly {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := c.pdfConverter.ToPDF(ctx, doc)
	if err != nil {
		return nil, err
	}

	res.PDF = out.PDF
	res.Pages = out.Pages
	res.Margins = out.Margins
	return res, nil
}

// Close releases backend resources (headless Chrome).
func (c *Converter) Close() error {
	if c.pdfConverter != nil {
		return c.pdfConverter.Close()
	}
	return nil
}

// validateInput is the trust boundary for library users building Input
// by hand. CLI input was validated at config load already.
func (c *Converter) validateInput(input Input) error {
	if input.Markdown == "" {
		return ErrEmptyMarkdown
	}
	return nil
}

// prepare runs the Markdown stage: front matter, template substitution,
// goldmark and the base template.
func (c *Converter) prepare(ctx context.Context, input Input) (*document, error) {
	front, body, err := pipeline.ExtractFrontMatter(input.Markdown)
	if err != nil {
		return nil, err
	}
	vars := pipeline.MergeContext(input.Context, front)
	if front != nil {
		c.cfg.logger.Debug("front matter found", zap.Int("keys", len(front)))
	}

	body, err = pipeline.Substitute("markdown", body, vars)
	if err != nil {
		return nil, fmt.Errorf("substituting markdown: %w", err)
	}
	header, err := pipeline.SubstituteHTML("header", input.Header, vars)
	if err != nil {
		return nil, fmt.Errorf("substituting header: %w", err)
	}
	footer, err := pipeline.SubstituteHTML("footer", input.Footer, vars)
	if err != nil {
		return nil, fmt.Errorf("substituting footer: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body = c.preprocessor.Preprocess(ctx, body)
	fragment, err := c.htmlConverter.ToHTML(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("converting to HTML: %w", err)
	}
	// Completes ==highlight==, after goldmark so raw HTML can stay disabled.
	fragment = pipeline.ConvertMarkPlaceholders(fragment)

	page, err := c.template.Render(ctx, fragment, vars)
	if err != nil {
		return nil, fmt.Errorf("applying base template: %w", err)
	}

	sheets, err := c.stylesheets(input.Stylesheets)
	if err != nil {
		return nil, err
	}
	baseDir, err := resolveBaseDir(input.BaseURL)
	if err != nil {
		return nil, err
	}

	return &document{
		HTML:        page,
		Header:      header,
		Footer:      footer,
		Stylesheets: sheets,
		BaseDir:     baseDir,
	}, nil
}

// stylesheets returns the base style followed by the caller entries.
func (c *Converter) stylesheets(entries []string) ([]layout.Stylesheet, error) {
	sheets := make([]layout.Stylesheet, 0, len(entries)+1)
	if c.baseStyle != nil {
		sheets = append(sheets, *c.baseStyle)
	}
	for i, entry := range entries {
		sheet, err := loadStylesheet(c.assetLoader, entry, i+1)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// loadStylesheet resolves one entry: CSS content when it contains "{", a
// file when it looks like a path or ends in .css, else a style name.
func loadStylesheet(loader assets.AssetLoader, entry string, index int) (layout.Stylesheet, error) {
	switch {
	case fileutil.IsCSS(entry):
		return layout.Stylesheet{Name: fmt.Sprintf("inline-%d", index), CSS: entry}, nil
	case fileutil.IsFilePath(entry) || fileutil.HasExtension(entry, ".css"):
		content, err := os.ReadFile(entry) // #nosec G304 -- user-provided path
		if err != nil {
			return layout.Stylesheet{}, fmt.Errorf("%w: %q: %v", ErrStylesheet, entry, err)
		}
		return layout.Stylesheet{Name: filepath.Base(entry), CSS: string(content)}, nil
	}
	css, err := loader.LoadStyle(entry)
	if err != nil {
		return layout.Stylesheet{}, fmt.Errorf("loading style %q: %w", entry, err)
	}
	return layout.Stylesheet{Name: entry, CSS: css}, nil
}

// resolveBaseDir turns a directory or file:// URL into an absolute
// directory, defaulting to the working directory.
func resolveBaseDir(base string) (string, error) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving base directory: %w", err)
		}
		return wd, nil
	}
	base = strings.TrimPrefix(base, "file://")
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving base directory %q: %w", base, err)
	}
	return abs, nil
}
