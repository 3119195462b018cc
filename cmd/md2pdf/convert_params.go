package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	md2pdf "github.com/jmaupetit/md2pdf"
	"github.com/jmaupetit/md2pdf/internal/config"
	"github.com/jmaupetit/md2pdf/internal/fileutil"
)

// conversionParams groups parameters shared across batch/file conversion.
type conversionParams struct {
	header      string
	footer      string
	headerPath  string
	footerPath  string
	stylesheets []string
	baseURL     string // empty = directory of each input
	context     map[string]any
	htmlOnly    bool
	htmlOutput  bool
}

// buildConversionParams reads the overlay fragments and builds the
// template context. Config context comes first, --var values override it.
func buildConversionParams(flags *convertFlags, cfg *config.Config, now time.Time) (*conversionParams, error) {
	p := &conversionParams{
		headerPath:  cfg.Overlay.Header,
		footerPath:  cfg.Overlay.Footer,
		stylesheets: cfg.Style.Stylesheets,
		baseURL:     flags.baseURL,
		htmlOnly:    flags.outputMode.htmlOnly,
		htmlOutput:  flags.outputMode.html,
	}
	if err := p.loadFragments(); err != nil {
		return nil, err
	}

	p.context = make(map[string]any, len(cfg.Context)+len(flags.vars))
	maps.Copy(p.context, cfg.Context)
	if err := resolveContextDates(p.context, now); err != nil {
		return nil, err
	}
	vars, err := parseVars(flags.vars, now)
	if err != nil {
		return nil, err
	}
	maps.Copy(p.context, vars)

	return p, nil
}

// loadFragments (re)reads the header and footer files.
func (p *conversionParams) loadFragments() error {
	var err error
	if p.header, err = readFragment(p.headerPath); err != nil {
		return err
	}
	if p.footer, err = readFragment(p.footerPath); err != nil {
		return err
	}
	return nil
}

func readFragment(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided path
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadFragment, err)
	}
	return string(data), nil
}

// input builds the library input for one Markdown file.
func (p *conversionParams) input(markdown, inputPath string) md2pdf.Input {
	baseURL := p.baseURL
	if baseURL == "" {
		baseURL = filepath.Dir(inputPath)
	}
	return md2pdf.Input{
		Markdown:    markdown,
		Header:      p.header,
		Footer:      p.footer,
		Stylesheets: p.stylesheets,
		BaseURL:     baseURL,
		Context:     p.context,
		HTMLOnly:    p.htmlOnly,
	}
}

// watchedFiles lists the non-Markdown files whose change rebuilds every
// document: overlay fragments and stylesheet files.
func (p *conversionParams) watchedFiles() []string {
	var files []string
	for _, path := range []string{p.headerPath, p.footerPath} {
		if path != "" {
			files = append(files, path)
		}
	}
	for _, sheet := range p.stylesheets {
		if !fileutil.IsCSS(sheet) && fileutil.FileExists(sheet) {
			files = append(files, sheet)
		}
	}
	return files
}
