package md2pdf

import (
	"errors"

	"github.com/jmaupetit/md2pdf/internal/assets"
	"github.com/jmaupetit/md2pdf/internal/layout"
	"github.com/jmaupetit/md2pdf/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	ErrEmptyMarkdown = errors.New("markdown content cannot be empty")

	// Option validation errors.
	ErrInvalidSideMargin     = errors.New("invalid side margin")
	ErrInvalidVerticalBuffer = errors.New("invalid vertical buffer")
	ErrUnknownEngine         = errors.New("unknown rendering engine")
	ErrInvalidAssetPath      = errors.New("invalid asset path")

	// Chrome backend errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")

	// ErrStylesheet indicates a stylesheet entry that could not be read.
	ErrStylesheet = errors.New("failed to load stylesheet")
)

// Errors surfaced from the conversion stages.
var (
	ErrUnknownExtension = pipeline.ErrUnknownExtension
	ErrExtensionConfig  = pipeline.ErrExtensionConfig
	ErrFrontMatter      = pipeline.ErrFrontMatter
	ErrTemplateParse    = pipeline.ErrTemplateParse
	ErrTemplateRender   = pipeline.ErrTemplateRender
	ErrElementNotFound  = layout.ErrElementNotFound
	ErrStyleNotFound    = assets.ErrStyleNotFound
	ErrTemplateNotFound = assets.ErrTemplateNotFound
)
