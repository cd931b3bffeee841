package indexer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/lci/internal/debug"
)

// watchDebounce is the debounce window for disk events, shared by all
// paths, matching the teacher's DebouncedRebuilder default.
const watchDebounce = 200 * time.Millisecond

// Start begins the steady-state fsnotify watch over root. Mirrors the
// teacher's FileWatcher.Start/addWatches: one watch per directory,
// symlink cycles skipped via EvalSymlinks, excluded directories never
// descended into.
func (ix *Indexer) Start(ctx context.Context) error {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ix.watcher = w

	wctx, cancel := context.WithCancel(ctx)
	ix.cancel = cancel

	if err := ix.addWatches(ix.root); err != nil {
		w.Close()
		return err
	}

	ix.wg.Add(1)
	go ix.processEvents(wctx)

	return nil
}

// Stop tears down the watcher. Safe to call even if Start was never
// called or already stopped.
func (ix *Indexer) Stop() {
	ix.watchMu.Lock()
	defer ix.watchMu.Unlock()
	if ix.cancel != nil {
		ix.cancel()
	}
	if ix.watcher != nil {
		ix.watcher.Close()
	}
	ix.wg.Wait()
	ix.watcher = nil
	ix.cancel = nil
}

func (ix *Indexer) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if ix.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if err := ix.watcher.Add(path); err != nil {
			debug.LogIndexing("failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (ix *Indexer) shouldIgnoreDir(path string) bool {
	rel, err := filepath.Rel(ix.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range ix.cfg.ExcludePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
			return true
		}
	}
	return false
}

func (ix *Indexer) processEvents(ctx context.Context) {
	defer ix.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ix.watcher.Events:
			if !ok {
				return
			}
			ix.scheduleRebuild(ev.Name)
		case err, ok := <-ix.watcher.Errors:
			if !ok {
				return
			}
			debug.LogIndexing("watcher error: %v", err)
		}
	}
}

// scheduleRebuild debounces disk events with one shared timer (teacher's
// time.AfterFunc-based DebouncedRebuilder pattern): every event adds its
// path to the pending set and restarts the window, and the whole set is
// flushed once the window passes with no new event, so a burst of
// writes to the same file collapses into a single resolve.
func (ix *Indexer) scheduleRebuild(path string) {
	ix.debounceMu.Lock()
	ix.pending[path] = struct{}{}
	if ix.timer != nil {
		ix.timer.Stop()
	}
	ix.timer = time.AfterFunc(watchDebounce, ix.flushPending)
	ix.debounceMu.Unlock()
}

func (ix *Indexer) flushPending() {
	ix.debounceMu.Lock()
	paths := ix.pending
	ix.pending = make(map[string]struct{})
	ix.debounceMu.Unlock()

	for path := range paths {
		if _, err := os.Stat(path); err != nil {
			ix.handleRemoved(path)
			continue
		}
		ix.resolveFile(path)
	}
}

// handleRemoved drops a deleted file's graph entries. The FileID itself
// stays registered (spec.md's monotone registration invariant): a later
// re-creation of the same path reuses that FileID rather than minting a
// new one, since Registry.GetOrCreate keys on path, not existence.
func (ix *Indexer) handleRemoved(path string) {
	id, ok := ix.reg.Lookup(path)
	if !ok {
		return
	}
	ix.gr.Forget(id)
	ix.par.Forget(id)
}
