package acquire

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
)

// tracker records every file and directory the downloader creates so that a
// caller can remove them later.
type tracker struct {
	mu    sync.Mutex
	files []string
	dirs  []string
}

func (t *tracker) addFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = append(t.files, path)
}

func (t *tracker) addDir(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirs = append(t.dirs, path)
}

// tracked returns files followed by directories, in creation order.
func (t *tracker) tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.files)+len(t.dirs))
	out = append(out, t.files...)
	return append(out, t.dirs...)
}

// cleanup removes all tracked files, then all tracked directories in reverse
// creation order. Paths that no longer exist are ignored. Every failure is
// reported; entries that could not be removed stay tracked.
func (t *tracker) cleanup() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	var keptFiles, keptDirs []string

	for _, f := range t.files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove file: %w", err))
			keptFiles = append(keptFiles, f)
		}
	}

	// Extraction directories may hold non-CSV entries and nested folders.
	dirs := slices.Clone(t.dirs)
	slices.Reverse(dirs)
	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			errs = append(errs, fmt.Errorf("remove directory: %w", err))
			keptDirs = append(keptDirs, d)
		}
	}
	slices.Reverse(keptDirs)

	t.files = keptFiles
	t.dirs = keptDirs
	return errors.Join(errs...)
}

// Cleanup removes every file and directory the downloader created: files
// first, then directories in reverse creation order. All removal errors are
// joined; entries that could not be removed remain tracked.
func (d *Downloader) Cleanup() error {
	return d.tracker.cleanup()
}

// Tracked lists the paths created so far, files before directories.
func (d *Downloader) Tracked() []string {
	return d.tracker.tracked()
}
