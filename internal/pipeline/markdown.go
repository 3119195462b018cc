package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Sentinel errors for Markdown conversion.
var (
	ErrHTMLConversion   = errors.New("HTML conversion failed")
	ErrUnknownExtension = errors.New("unknown markdown extension")
	ErrExtensionConfig  = errors.New("invalid markdown extension config")
)

// ExtensionConfig holds per-extension settings, keyed by extension name
// and then by option name. Syntax highlighting is configured under
// "highlight" with "style" (a chroma style) and "line_numbers". The
// typographer accepts replacement text for "left_double_quote",
// "right_double_quote", "left_single_quote", "right_single_quote",
// "apostrophe", "left_angle_quote", "right_angle_quote", "en_dash",
// "em_dash" and "ellipsis".
type ExtensionConfig map[string]map[string]string

// highlightConfigKey names the always-on highlighting settings.
const highlightConfigKey = "highlight"

var typographicPunctuation = map[string]extension.TypographicPunctuation{
	"left_single_quote":  extension.LeftSingleQuote,
	"right_single_quote": extension.RightSingleQuote,
	"left_double_quote":  extension.LeftDoubleQuote,
	"right_double_quote": extension.RightDoubleQuote,
	"apostrophe":         extension.Apostrophe,
	"left_angle_quote":   extension.LeftAngleQuote,
	"right_angle_quote":  extension.RightAngleQuote,
	"en_dash":            extension.EnDash,
	"em_dash":            extension.EmDash,
	"ellipsis":           extension.Ellipsis,
}

// baseExtensions are always enabled. Naming one of them as an extra is
// accepted and changes nothing.
var baseExtensions = map[string]bool{
	"table":         true,
	"strikethrough": true,
	"linkify":       true,
	"tasklist":      true,
	"footnote":      true,
}

// optionalExtensions are enabled by name.
var optionalExtensions = map[string]goldmark.Extender{
	"typographer":     extension.Typographer,
	"definition-list": extension.DefinitionList,
	"cjk":             extension.CJK,
}

// Extensions returns every accepted extra name, sorted.
func Extensions() []string {
	names := make([]string, 0, len(baseExtensions)+len(optionalExtensions))
	for name := range baseExtensions {
		names = append(names, name)
	}
	for name := range optionalExtensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HTMLConverter abstracts Markdown to HTML conversion.
type HTMLConverter interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// GoldmarkConverter converts Markdown to an HTML fragment using goldmark.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// Compile-time interface check.
var _ HTMLConverter = (*GoldmarkConverter)(nil)

// NewGoldmarkConverter creates a GoldmarkConverter with GFM, footnotes,
// chroma syntax highlighting and the named extras.
// Returns ErrUnknownExtension for a name it does not know.
func NewGoldmarkConverter(extras ...string) (*GoldmarkConverter, error) {
	return NewConfiguredGoldmarkConverter(nil, extras...)
}

// NewConfiguredGoldmarkConverter is NewGoldmarkConverter with
// per-extension settings. Settings for an extension that is not enabled
// are validated, then ignored.
func NewConfiguredGoldmarkConverter(config ExtensionConfig, extras ...string) (*GoldmarkConverter, error) {
	config, err := normalizeConfig(config)
	if err != nil {
		return nil, err
	}
	hl, err := highlightOptions(config[highlightConfigKey])
	if err != nil {
		return nil, err
	}
	exts := []goldmark.Extender{
		extension.GFM,
		extension.Footnote,
		highlighting.NewHighlighting(hl...),
	}

	seen := map[string]bool{}
	for _, name := range extras {
		name = normalizeName(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if baseExtensions[name] {
			continue
		}
		ext, ok := optionalExtensions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownExtension, name, strings.Join(Extensions(), ", "))
		}
		if name == "typographer" {
			ext = typographer(config[name])
		}
		exts = append(exts, ext)
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			// Raw HTML stays disabled; ==highlight== uses placeholders instead.
		),
	)
	return &GoldmarkConverter{md: md}, nil
}

// ToHTML converts Markdown content to an HTML fragment.
// goldmark has no context support, so the conversion runs in a goroutine
// and the caller stops waiting when ctx is done.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalizeConfig lowercases names and rejects options no extension
// understands.
func normalizeConfig(config ExtensionConfig) (ExtensionConfig, error) {
	out := make(ExtensionConfig, len(config))
	for name, opts := range config {
		name = normalizeName(name)
		lowered := make(map[string]string, len(opts))
		for key, value := range opts {
			lowered[normalizeName(key)] = value
		}
		switch {
		case name == highlightConfigKey:
		case name == "typographer":
			for key := range lowered {
				if _, ok := typographicPunctuation[key]; !ok {
					return nil, fmt.Errorf("%w: typographer: unknown option %q", ErrExtensionConfig, key)
				}
			}
		case baseExtensions[name] || optionalExtensions[name] != nil:
			if len(lowered) > 0 {
				return nil, fmt.Errorf("%w: %s takes no options", ErrExtensionConfig, name)
			}
		default:
			return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownExtension, name, strings.Join(Extensions(), ", "))
		}
		out[name] = lowered
	}
	return out, nil
}

// highlightOptions builds the chroma settings. Colors are inlined so no
// stylesheet is needed.
func highlightOptions(opts map[string]string) ([]highlighting.Option, error) {
	format := []chromahtml.Option{chromahtml.WithClasses(false)}
	var out []highlighting.Option
	for key, value := range opts {
		switch key {
		case "style":
			if _, ok := styles.Registry[value]; !ok {
				return nil, fmt.Errorf("%w: highlight: unknown style %q", ErrExtensionConfig, value)
			}
			out = append(out, highlighting.WithStyle(value))
		case "line_numbers":
			on, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: highlight: line_numbers: %v", ErrExtensionConfig, err)
			}
			format = append(format, chromahtml.WithLineNumbers(on))
		default:
			return nil, fmt.Errorf("%w: highlight: unknown option %q", ErrExtensionConfig, key)
		}
	}
	return append(out, highlighting.WithFormatOptions(format...)), nil
}

func typographer(opts map[string]string) goldmark.Extender {
	if len(opts) == 0 {
		return extension.Typographer
	}
	subs := make(map[extension.TypographicPunctuation][]byte, len(opts))
	for key, value := range opts {
		subs[typographicPunctuation[key]] = []byte(value)
	}
	return extension.NewTypographer(extension.WithTypographicSubstitutions(subs))
}
