package main

import (
	"errors"
	"os"

	md2pdf "github.com/jmaupetit/md2pdf"
	"github.com/jmaupetit/md2pdf/internal/config"
	"github.com/jmaupetit/md2pdf/internal/dateutil"
)

// Exit codes for md2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful conversion
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitRender  = 4 // Rendering or browser errors
)

var renderErrors = []error{
	md2pdf.ErrBrowserConnect,
	md2pdf.ErrPageCreate,
	md2pdf.ErrPageLoad,
	md2pdf.ErrPDFGeneration,
	md2pdf.ErrElementNotFound,
}

var ioErrors = []error{
	os.ErrNotExist,
	os.ErrPermission,
	ErrReadMarkdown,
	ErrReadFragment,
	ErrWritePDF,
	ErrWriteHTML,
	ErrNoInput,
	ErrNoMarkdownFiles,
	md2pdf.ErrStylesheet,
}

var usageErrors = []error{
	config.ErrConfigNotFound,
	config.ErrConfigParse,
	config.ErrFieldTooLong,
	config.ErrInvalidValue,
	config.ErrEmptyConfigName,
	dateutil.ErrInvalidDateFormat,
	md2pdf.ErrEmptyMarkdown,
	md2pdf.ErrInvalidSideMargin,
	md2pdf.ErrInvalidVerticalBuffer,
	md2pdf.ErrUnknownEngine,
	md2pdf.ErrUnknownExtension,
	md2pdf.ErrExtensionConfig,
	md2pdf.ErrStyleNotFound,
	md2pdf.ErrTemplateNotFound,
	md2pdf.ErrInvalidAssetPath,
	md2pdf.ErrFrontMatter,
	md2pdf.ErrTemplateParse,
	md2pdf.ErrTemplateRender,
	ErrInvalidWorkerCount,
	ErrInvalidExtension,
	ErrInvalidTimeout,
	ErrInvalidVar,
	ErrInvalidEnv,
	ErrOutputWithMultipleInputs,
}

// exitCodeFor returns the exit code for an error. It relies on errors.Is,
// so callers must wrap with %w. Rendering is checked first: a browser
// failure often wraps an I/O error.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case isAny(err, renderErrors):
		return ExitRender
	case isAny(err, ioErrors):
		return ExitIO
	case isAny(err, usageErrors):
		return ExitUsage
	default:
		return ExitGeneral
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
