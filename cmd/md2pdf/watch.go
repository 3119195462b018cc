package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmaupetit/md2pdf/internal/fileutil"
	"github.com/jmaupetit/md2pdf/internal/watch"
)

// runWatch rebuilds on change until ctx is canceled. A changed Markdown
// file rebuilds itself; a changed stylesheet or overlay fragment rebuilds
// every document. Conversion errors are reported and watching goes on.
func runWatch(ctx context.Context, pool Pool, job *convertJob, env *Environment) error {
	roots := append(append([]string{}, job.inputs...), job.params.watchedFiles()...)
	w, err := watch.New(watch.DefaultInterval, isWatchedSource, roots...)
	if err != nil {
		return err
	}

	quiet := job.flags.common.quiet
	if !quiet {
		fmt.Fprintf(env.Stdout, "Watching %s (Ctrl+C to quit)\n", strings.Join(roots, ", "))
	}

	err = w.Run(ctx, func(events []watch.Event) {
		if !quiet {
			fmt.Fprintf(env.Stdout, "\n[%s] changed: %s\n", env.Now().Format("15:04:05"), eventPaths(events))
		}
		files, err := job.rebuildTargets(events)
		if err != nil {
			fmt.Fprintf(env.Stderr, "error: %v\n", err)
			return
		}
		results := convertBatch(ctx, pool, files, job.params)
		printResults(results, quiet, job.flags.common.verbose, env)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// isWatchedSource filters files found under watched directories. PDF and
// HTML outputs are excluded so writing them does not trigger a rebuild.
func isWatchedSource(path string) bool {
	return fileutil.IsMarkdown(path) || fileutil.HasExtension(path, ".css")
}

// rebuildTargets returns the files to convert for a batch of events,
// reloading the overlay fragments when one of them changed.
func (j *convertJob) rebuildTargets(events []watch.Event) ([]docTarget, error) {
	files, err := discoverAll(j.inputs, j.outputDir)
	if err != nil {
		return nil, err
	}
	j.files = files

	changed := make(map[string]bool)
	rebuildAll := false
	for _, ev := range events {
		if ev.Op == watch.Remove {
			continue
		}
		if fileutil.IsMarkdown(ev.Path) {
			changed[ev.Path] = true
			continue
		}
		rebuildAll = true
	}

	if rebuildAll {
		if err := j.params.loadFragments(); err != nil {
			return nil, err
		}
		return files, nil
	}

	var targets []docTarget
	for _, f := range files {
		abs, err := filepath.Abs(f.Source)
		if err == nil && changed[abs] {
			targets = append(targets, f)
		}
	}
	return targets, nil
}

func eventPaths(events []watch.Event) string {
	paths := make([]string, len(events))
	for i, ev := range events {
		paths[i] = filepath.Base(ev.Path)
	}
	return strings.Join(paths, ", ")
}
