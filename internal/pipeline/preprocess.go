package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// Highlight placeholders use Private Use Area characters. They pass through
// goldmark unchanged and become <mark> tags after HTML generation.
const (
	MarkStartPlaceholder = "\uE000"
	MarkEndPlaceholder   = "\uE001"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	highlightPattern   = regexp.MustCompile(`==(.*?)==`)
)

// Preprocessor rewrites Markdown before HTML conversion.
type Preprocessor interface {
	Preprocess(ctx context.Context, content string) string
}

// MarkdownPreprocessor normalizes line endings, converts ==highlight==
// markers and compresses runs of blank lines.
type MarkdownPreprocessor struct{}

// Compile-time interface check.
var _ Preprocessor = (*MarkdownPreprocessor)(nil)

// Preprocess applies every transformation. A canceled context returns
// content unchanged; the caller checks ctx afterwards.
func (p *MarkdownPreprocessor) Preprocess(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}
	content = normalizeLineEndings(content)
	content = highlightPattern.ReplaceAllString(content, MarkStartPlaceholder+"$1"+MarkEndPlaceholder)
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// ConvertMarkPlaceholders turns the highlight placeholders into <mark> tags.
func ConvertMarkPlaceholders(content string) string {
	return strings.NewReplacer(
		MarkStartPlaceholder, "<mark>",
		MarkEndPlaceholder, "</mark>",
	).Replace(content)
}
