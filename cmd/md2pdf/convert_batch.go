package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	md2pdf "github.com/jmaupetit/md2pdf"
	"github.com/jmaupetit/md2pdf/internal/fileutil"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o644
)

var (
	ErrReadMarkdown = errors.New("failed to read markdown file")
	ErrWritePDF     = errors.New("failed to write PDF file")
	ErrWriteHTML    = errors.New("failed to write HTML file")
	ErrServiceInit  = errors.New("failed to initialize converter")
)

// CLIConverter is the part of md2pdf.Converter the batch runner needs.
type CLIConverter interface {
	Convert(ctx context.Context, input md2pdf.Input) (*md2pdf.ConvertResult, error)
}

var _ CLIConverter = (*md2pdf.Converter)(nil)

// docResult is the outcome of converting one document.
type docResult struct {
	Source   string
	PDFPath  string // HTML path with --html-only
	Pages    int
	Err      error
	Duration time.Duration
}

// convertBatch converts files with at most pool.Size() converters in
// flight. Results keep the order of files.
func convertBatch(ctx context.Context, pool Pool, files []docTarget, params *conversionParams) []docResult {
	results := make([]docResult, len(files))
	if len(files) == 0 {
		return results
	}

	next := make(chan int)
	go func() {
		defer close(next)
		for i := range files {
			select {
			case next <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range min(pool.Size(), len(files)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(ctx, pool, next, files, results, params)
		}()
	}
	wg.Wait()

	// Files never handed out were skipped by cancellation.
	for i := range results {
		if results[i].Source == "" {
			results[i] = docResult{Source: files[i].Source, Err: ctx.Err()}
		}
	}
	return results
}

func runWorker(ctx context.Context, pool Pool, next <-chan int, files []docTarget, results []docResult, params *conversionParams) {
	conv, err := pool.Acquire(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrServiceInit, err)
		for i := range next {
			results[i] = docResult{Source: files[i].Source, Err: err}
		}
		return
	}
	defer pool.Release(conv)

	for i := range next {
		if err := ctx.Err(); err != nil {
			results[i] = docResult{Source: files[i].Source, Err: err}
			continue
		}
		results[i] = convertFile(ctx, conv, files[i], params)
	}
}

// convertFile converts one document. Nothing is written unless the
// conversion succeeded, and every write is atomic.
func convertFile(ctx context.Context, conv CLIConverter, target docTarget, params *conversionParams) (res docResult) {
	start := time.Now()
	res = docResult{Source: target.Source, PDFPath: target.PDFPath}
	defer func() { res.Duration = time.Since(start) }()

	markdown, err := os.ReadFile(target.Source) // #nosec G304 -- discovered path
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrReadMarkdown, err)
		return res
	}

	out, err := conv.Convert(ctx, params.input(string(markdown), target.Source))
	if err != nil {
		res.Err = err
		return res
	}
	res.Pages = out.Pages

	if err := os.MkdirAll(filepath.Dir(target.PDFPath), dirPermissions); err != nil {
		res.Err = fmt.Errorf("%w: creating output directory: %w", ErrWritePDF, err)
		return res
	}

	if params.htmlOnly || params.htmlOutput {
		htmlPath := htmlOutputPath(target.PDFPath)
		if err := fileutil.WriteFileAtomic(htmlPath, out.HTML, filePermissions); err != nil {
			res.Err = fmt.Errorf("%w: %w", ErrWriteHTML, err)
			return res
		}
		if params.htmlOnly {
			res.PDFPath = htmlPath
			return res
		}
	}

	if err := fileutil.WriteFileAtomic(target.PDFPath, out.PDF, filePermissions); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrWritePDF, err)
	}
	return res
}

type batchSummary struct {
	Succeeded int
	Failed    int
	Pages     int
}

func summarize(results []docResult) batchSummary {
	var s batchSummary
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.Pages += r.Pages
	}
	return s
}

// printResults reports each document and returns the failure count.
// Failures always go to stderr, even with --quiet.
func printResults(results []docResult, quiet, verbose bool, env *Environment) int {
	s := summarize(results)

	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", r.Source, r.Err)
		case quiet:
		case verbose:
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n", r.Source, r.PDFPath, r.Pages, r.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(env.Stdout, "Created %s\n", r.PDFPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed, %d pages\n", s.Succeeded, s.Failed, s.Pages)
	}
	return s.Failed
}
