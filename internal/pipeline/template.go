package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Sentinel errors for template rendering.
var (
	ErrTemplateParse  = errors.New("template parsing failed")
	ErrTemplateRender = errors.New("template rendering failed")
)

// DefaultTitle is the document title when the context has no "title" key.
const DefaultTitle = "Generated with md2pdf"

// titleContextKey selects the document title from the context.
const titleContextKey = "title"

// missingKeyOption makes a reference to an undefined variable an error
// instead of printing "<no value>" in the document.
const missingKeyOption = "missingkey=error"

// Substitute executes content as a text/template with vars as data. Used
// for the Markdown body, whose output is parsed again by goldmark.
func Substitute(name, content string, vars map[string]any) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}
	tmpl, err := texttemplate.New(name).Option(missingKeyOption).Parse(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ensureVars(vars)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// SubstituteHTML executes an HTML fragment (header or footer) as an
// html/template so that context values are escaped.
func SubstituteHTML(name, content string, vars map[string]any) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}
	tmpl, err := htmltemplate.New(name).Option(missingKeyOption).Parse(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ensureVars(vars)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}

func ensureVars(vars map[string]any) map[string]any {
	if vars == nil {
		return map[string]any{}
	}
	return vars
}

// DocumentData is passed to the base document template.
type DocumentData struct {
	Title   string
	Content htmltemplate.HTML
	Vars    map[string]any
}

// DocumentTemplate wraps rendered Markdown in a complete HTML document.
type DocumentTemplate struct {
	tmpl *htmltemplate.Template
}

// NewDocumentTemplate parses a base template. The template sees
// DocumentData: {{ .Title }}, {{ .Content }} and {{ .Vars.name }}.
func NewDocumentTemplate(src string) (*DocumentTemplate, error) {
	tmpl, err := htmltemplate.New("document").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	return &DocumentTemplate{tmpl: tmpl}, nil
}

// Render produces the full HTML document for an HTML body fragment.
func (d *DocumentTemplate) Render(ctx context.Context, body string, vars map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data := DocumentData{
		Title:   DocumentTitle(vars),
		Content: htmltemplate.HTML(body), // #nosec G203 -- goldmark output, raw HTML disabled
		Vars:    ensureVars(vars),
	}
	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// DocumentTitle returns the "title" context value, or DefaultTitle.
func DocumentTitle(vars map[string]any) string {
	if v, ok := vars[titleContextKey]; ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return DefaultTitle
}
