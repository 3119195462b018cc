package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNewGoldmarkConverter - Extras
// ---------------------------------------------------------------------------

func TestNewGoldmarkConverter_Extras(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		extras  []string
		wantErr error
	}{
		{"none", nil, nil},
		{"optional extension", []string{"typographer"}, nil},
		{"base extension is accepted", []string{"table", "footnote"}, nil},
		{"case and spaces", []string{" Definition-List "}, nil},
		{"duplicates", []string{"cjk", "cjk"}, nil},
		{"empty name ignored", []string{""}, nil},
		{"unknown", []string{"mermaid"}, ErrUnknownExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, err := NewGoldmarkConverter(tt.extras...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && conv == nil {
				t.Fatal("converter is nil")
			}
		})
	}
}

func TestExtensions_Sorted(t *testing.T) {
	t.Parallel()

	names := Extensions()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Extensions() not sorted: %v", names)
		}
	}
}

func TestNewConfiguredGoldmarkConverter_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  ExtensionConfig
		wantErr error
	}{
		{"unknown extension", ExtensionConfig{"mermaid": {"theme": "dark"}}, ErrUnknownExtension},
		{"unknown highlight option", ExtensionConfig{"highlight": {"theme": "dark"}}, ErrExtensionConfig},
		{"unknown chroma style", ExtensionConfig{"highlight": {"style": "no-such-style"}}, ErrExtensionConfig},
		{"line numbers not a bool", ExtensionConfig{"highlight": {"line_numbers": "maybe"}}, ErrExtensionConfig},
		{"unknown typographer option", ExtensionConfig{"typographer": {"bullet": "*"}}, ErrExtensionConfig},
		{"extension without options", ExtensionConfig{"table": {"border": "1"}}, ErrExtensionConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewConfiguredGoldmarkConverter(tt.config, "typographer"); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestToHTML
// ---------------------------------------------------------------------------

func TestToHTML(t *testing.T) {
	t.Parallel()

	conv, err := NewGoldmarkConverter("typographer", "definition-list")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{"heading with id", "# Hello World", []string{`<h1 id="hello-world">Hello World</h1>`}, nil},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}, nil},
		{"strikethrough", "~~gone~~", []string{"<del>gone</del>"}, nil},
		{"footnote", "Text[^1]\n\n[^1]: Note", []string{`class="footnotes"`}, nil},
		{"task list", "- [x] done", []string{`type="checkbox"`}, nil},
		{"typographer", `"quoted"`, []string{"&ldquo;quoted&rdquo;"}, nil},
		{"definition list", "Term\n: Definition", []string{"<dl>", "<dt>Term</dt>"}, nil},
		{"raw HTML is dropped", "<script>alert(1)</script>", nil, []string{"<script>"}},
		{"highlighted code inline styles", "```go\nfunc main() {}\n```", []string{"<pre", "style="}, nil},
		{"fragment only", "text", nil, []string{"<html", "<body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := conv.ToHTML(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("ToHTML() unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("output contains %q:\n%s", bad, got)
				}
			}
		})
	}
}

func TestToHTML_ExtensionConfig(t *testing.T) {
	t.Parallel()

	conv, err := NewConfiguredGoldmarkConverter(ExtensionConfig{
		"Highlight":   {"style": "monokai", "LINE_NUMBERS": "true"},
		"typographer": {"left_double_quote": "&laquo;", "right_double_quote": "&raquo;"},
		"table":       {},
	}, "typographer")
	if err != nil {
		t.Fatalf("NewConfiguredGoldmarkConverter() error = %v", err)
	}

	got, err := conv.ToHTML(context.Background(), "\"quoted\"\n\n```go\nfunc main() {}\n```")
	if err != nil {
		t.Fatalf("ToHTML() unexpected error: %v", err)
	}
	for _, want := range []string{"&laquo;quoted&raquo;", "#272822", ">1</span>"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestToHTML_Canceled(t *testing.T) {
	t.Parallel()

	conv, err := NewGoldmarkConverter()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := conv.ToHTML(ctx, "# x"); !errors.Is(err, context.Canceled) {
		t.Errorf("ToHTML() error = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// TestPreprocess
// ---------------------------------------------------------------------------

func TestPreprocess(t *testing.T) {
	t.Parallel()

	p := &MarkdownPreprocessor{}
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"CRLF", "a\r\nb\rc", "a\nb\nc"},
		{"blank lines compressed", "a\n\n\n\n\nb", "a\n\nb"},
		{"highlight", "==hi==", MarkStartPlaceholder + "hi" + MarkEndPlaceholder},
		{"unchanged", "plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := p.Preprocess(context.Background(), tt.input); got != tt.want {
				t.Errorf("Preprocess() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHighlightRoundTrip(t *testing.T) {
	t.Parallel()

	conv, err := NewGoldmarkConverter()
	if err != nil {
		t.Fatal(err)
	}
	md := (&MarkdownPreprocessor{}).Preprocess(context.Background(), "some ==marked== text")
	out, err := conv.ToHTML(context.Background(), md)
	if err != nil {
		t.Fatal(err)
	}
	if got := ConvertMarkPlaceholders(out); !strings.Contains(got, "<mark>marked</mark>") {
		t.Errorf("output missing <mark>: %s", got)
	}
}
