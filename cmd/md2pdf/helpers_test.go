package main

// Notes:
// - Shared fakes and fixtures for the CLI tests. The fake pool hands out a
//   single fake converter; real conversions are covered by main_test.go
//   with the flow engine, which needs no browser

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	md2pdf "github.com/jmaupetit/md2pdf"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeConverter records inputs and returns a fixed result.
type fakeConverter struct {
	mu     sync.Mutex
	inputs []md2pdf.Input
	err    error
	failOn string // fail when the Markdown contains this text
}

var _ CLIConverter = (*fakeConverter)(nil)

func (f *fakeConverter) Convert(_ context.Context, in md2pdf.Input) (*md2pdf.ConvertResult, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.failOn != "" && strings.Contains(in.Markdown, f.failOn) {
		return nil, md2pdf.ErrElementNotFound
	}
	res := &md2pdf.ConvertResult{HTML: []byte("<html>" + in.Markdown + "</html>"), Pages: 1}
	if !in.HTMLOnly {
		res.PDF = []byte("%PDF-1.4 fake")
	}
	return res, nil
}

func (f *fakeConverter) calls() []md2pdf.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]md2pdf.Input(nil), f.inputs...)
}

// fakePool serves one fakeConverter and records the options it was built
// with.
type fakePool struct {
	conv       *fakeConverter
	size       int
	acquireErr error
	closed     bool
}

var _ Pool = (*fakePool)(nil)

func (p *fakePool) Acquire(context.Context) (CLIConverter, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return p.conv, nil
}

func (p *fakePool) Release(CLIConverter) {}
func (p *fakePool) Size() int            { return p.size }
func (p *fakePool) Close() error         { p.closed = true; return nil }

// testEnv is an Environment with captured output, a fixed clock, a fake
// process environment, and a fake pool.
type testEnv struct {
	*Environment
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	vars     map[string]string
	conv     *fakeConverter
	pool     *fakePool
	optCount int
}

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		vars:   map[string]string{},
		conv:   &fakeConverter{},
	}
	te.Environment = &Environment{
		Now:    func() time.Time { return fixedNow },
		Stdout: te.stdout,
		Stderr: te.stderr,
		Getenv: func(key string) string { return te.vars[key] },
		Environ: func() []string {
			var out []string
			for k, v := range te.vars {
				out = append(out, k+"="+v)
			}
			return out
		},
		NewPool: func(size int, opts ...md2pdf.Option) (Pool, error) {
			te.optCount = len(opts)
			te.pool = &fakePool{conv: te.conv, size: size}
			return te.pool, nil
		},
	}
	return te
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// setupTestDir creates a temp directory with the given file structure.
func setupTestDir(t *testing.T, files map[string]string) string {
	t.Helper()
	tempDir := t.TempDir()

	for path, content := range files {
		fullPath := filepath.Join(tempDir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
			t.Fatalf("failed to create dir for %s: %v", path, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	return tempDir
}

func mustParseFlags(t *testing.T, args ...string) (*convertFlags, []string) {
	t.Helper()
	flags, positional, err := parseConvertFlags(args, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseConvertFlags(%v) error = %v", args, err)
	}
	return flags, positional
}
