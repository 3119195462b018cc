package md2pdf

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmaupetit/md2pdf/internal/layout"
	"github.com/jmaupetit/md2pdf/internal/overlay"
	"github.com/jmaupetit/md2pdf/internal/pdfout"
)

// flowConverter lays documents out with the built-in engine and composites
// the header and footer onto every page.
type flowConverter struct {
	generator *overlay.Generator
	emitter   overlay.Emitter
	logger    *zap.Logger
}

func newFlowConverter(cfg converterConfig) (*flowConverter, error) {
	gen, err := overlay.NewGenerator(layout.NewEngine(), overlayOptions(cfg))
	if err != nil {
		return nil, err
	}
	return &flowConverter{
		generator: gen,
		emitter:   pdfout.Emitter{Creator: pdfout.DefaultCreator, CreationDate: cfg.creationDate},
		logger:    cfg.logger,
	}, nil
}

// overlayOptions maps the converter settings onto the compositor.
func overlayOptions(cfg converterConfig) overlay.Options {
	return overlay.Options{
		SideMargin:     cfg.sideMargin,
		VerticalBuffer: cfg.verticalBuffer,
		Search:         cfg.search,
	}
}

// ToPDF renders doc, composites its fragments and serializes the result.
func (f *flowConverter) ToPDF(ctx context.Context, doc *document) (*pdfOutput, error) {
	data, res, err := f.generator.Generate(ctx, overlay.Request{
		MainHTML:    doc.HTML,
		HeaderHTML:  doc.Header,
		FooterHTML:  doc.Footer,
		BaseURL:     doc.BaseDir,
		Stylesheets: doc.Stylesheets,
	}, f.emitter)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}

	pages := len(res.Document.Pages)
	f.logger.Debug("document composited",
		zap.Int("pages", pages),
		zap.Float64("header_height", res.HeaderHeight),
		zap.Float64("footer_height", res.FooterHeight),
		zap.String("margins", res.Margins.CSS()))

	return &pdfOutput{PDF: data, Pages: pages, Margins: res.Margins}, nil
}

// Close is a no-op; the flow engine holds no external resources.
func (f *flowConverter) Close() error {
	return nil
}
