package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmaupetit/md2pdf/internal/config"
)

func TestResolveInputPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		cfg     *config.Config
		want    int
		wantErr error
	}{
		{"args take precedence", []string{"a.md", "b.md"}, &config.Config{Input: config.InputConfig{DefaultDir: "d"}}, 2, nil},
		{"config fallback", nil, &config.Config{Input: config.InputConfig{DefaultDir: "d"}}, 1, nil},
		{"nothing", nil, &config.Config{}, 0, ErrNoInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveInputPaths(tt.args, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("resolveInputPaths() = %v, want %d paths", got, tt.want)
			}
		})
	}
}

func TestResolveOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		outputDir string
		baseDir   string
		want      string
	}{
		{"next to source", filepath.Join("docs", "a.md"), "", "", filepath.Join("docs", "a.pdf")},
		{"markdown extension", "notes.markdown", "", "", "notes.pdf"},
		{"explicit file", "a.md", "report.pdf", "", "report.pdf"},
		{"explicit file any case", "a.md", "REPORT.PDF", "", "REPORT.PDF"},
		{"flat output dir", "a.md", "out", "", filepath.Join("out", "a.pdf")},
		{"keeps layout", filepath.Join("docs", "sub", "b.md"), "out", "docs", filepath.Join("out", "sub", "b.pdf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolveOutputPath(tt.input, tt.outputDir, tt.baseDir); got != tt.want {
				t.Errorf("resolveOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiscoverFiles_Directory(t *testing.T) {
	t.Parallel()

	dir := setupTestDir(t, map[string]string{
		"a.md":             "a",
		"b.MARKDOWN":       "b",
		"sub/c.md":         "c",
		"sub/image.png":    "x",
		"sub/deeper/d.txt": "x",
	})

	files, err := discoverFiles(dir, "")
	if err != nil {
		t.Fatalf("discoverFiles() error = %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("discoverFiles() = %v, want 3 markdown files", files)
	}
}

func TestDiscoverAll(t *testing.T) {
	t.Parallel()

	dir := setupTestDir(t, map[string]string{"a.md": "a", "sub/b.md": "b"})

	t.Run("deduplicates overlapping inputs", func(t *testing.T) {
		t.Parallel()

		files, err := discoverAll([]string{dir, filepath.Join(dir, "a.md")}, "")
		if err != nil {
			t.Fatalf("discoverAll() error = %v", err)
		}
		if len(files) != 2 {
			t.Errorf("discoverAll() = %v, want 2 files", files)
		}
	})

	t.Run("single file to explicit output", func(t *testing.T) {
		t.Parallel()

		files, err := discoverAll([]string{filepath.Join(dir, "a.md")}, "report.pdf")
		if err != nil {
			t.Fatalf("discoverAll() error = %v", err)
		}
		if files[0].PDFPath != "report.pdf" {
			t.Errorf("PDFPath = %q", files[0].PDFPath)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		t.Parallel()

		empty := t.TempDir()
		if _, err := discoverAll([]string{empty}, ""); !errors.Is(err, ErrNoMarkdownFiles) {
			t.Errorf("error = %v, want ErrNoMarkdownFiles", err)
		}
	})

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()

		_, err := discoverAll([]string{filepath.Join(dir, "nope")}, "")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error = %v, want ErrNotExist", err)
		}
	})
}

func TestValidateWorkers(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 8} {
		if err := validateWorkers(n); err != nil {
			t.Errorf("validateWorkers(%d) = %v", n, err)
		}
	}
	for _, n := range []int{-1, 9} {
		if err := validateWorkers(n); !errors.Is(err, ErrInvalidWorkerCount) {
			t.Errorf("validateWorkers(%d) = %v, want ErrInvalidWorkerCount", n, err)
		}
	}
}

func TestHTMLOutputPath(t *testing.T) {
	t.Parallel()

	if got := htmlOutputPath(filepath.Join("out", "a.pdf")); got != filepath.Join("out", "a.html") {
		t.Errorf("htmlOutputPath() = %q", got)
	}
}
