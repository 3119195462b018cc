// Package watch reports changes to a set of files by polling their
// modification time and size.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultInterval is the polling period used when none is given.
const DefaultInterval = 500 * time.Millisecond

// ErrNoPaths is returned by New when there is nothing to watch.
var ErrNoPaths = errors.New("watch: no paths to watch")

// Op describes what happened to a file between two polls.
type Op int

// File operations.
const (
	Create Op = iota + 1
	Write
	Remove
)

func (o Op) String() string {
	switch o {
	case Create:
		return "create"
	case Write:
		return "write"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Event is a change to one file.
type Event struct {
	Path string
	Op   Op
}

type fileState struct {
	modTime time.Time
	size    int64
}

// Watcher polls files, and the files under directories, for changes.
// A Watcher is not safe for concurrent use.
type Watcher struct {
	interval time.Duration
	roots    []string
	filter   func(path string) bool
	state    map[string]fileState
}

// New creates a Watcher over roots. Files under a directory root are
// included when filter accepts them; explicit file roots always are. A nil
// filter accepts everything. The initial scan happens here, so changes
// made before New returns are not reported.
func New(interval time.Duration, filter func(path string) bool, roots ...string) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, ErrNoPaths
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	w := &Watcher{interval: interval, filter: filter}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("watch: resolving %s: %w", root, err)
		}
		w.roots = append(w.roots, abs)
	}

	state, err := w.scan()
	if err != nil {
		return nil, err
	}
	w.state = state
	return w, nil
}

// Poll rescans the roots and returns the changes since the previous scan,
// sorted by path.
func (w *Watcher) Poll() ([]Event, error) {
	next, err := w.scan()
	if err != nil {
		return nil, err
	}

	var events []Event
	for path, st := range next {
		prev, ok := w.state[path]
		switch {
		case !ok:
			events = append(events, Event{Path: path, Op: Create})
		case !prev.modTime.Equal(st.modTime) || prev.size != st.size:
			events = append(events, Event{Path: path, Op: Write})
		}
	}
	for path := range w.state {
		if _, ok := next[path]; !ok {
			events = append(events, Event{Path: path, Op: Remove})
		}
	}
	w.state = next

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events, nil
}

// Run polls every interval and calls fn with each non-empty batch of
// events until ctx is done. A scan error stops the loop.
func (w *Watcher) Run(ctx context.Context, fn func([]Event)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			events, err := w.Poll()
			if err != nil {
				return err
			}
			if len(events) > 0 {
				fn(events)
			}
		}
	}
}

// Paths returns the files currently watched, sorted.
func (w *Watcher) Paths() []string {
	paths := make([]string, 0, len(w.state))
	for path := range w.state {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// scan stats every watched file. A missing root is not an error: it may be
// an editor replacing the file, and shows up as Remove then Create.
func (w *Watcher) scan() (map[string]fileState, error) {
	state := make(map[string]fileState)
	for _, root := range w.roots {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("watch: %w", err)
		}
		if !info.IsDir() {
			state[root] = fileState{modTime: info.ModTime(), size: info.Size()}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() || !w.filter(path) {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			state[path] = fileState{modTime: fi.ModTime(), size: fi.Size()}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("watch: scanning %s: %w", root, err)
		}
	}
	return state, nil
}
