package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Benny93/prophet-go/internal/ctxlog"
	"github.com/Benny93/prophet-go/internal/storage"
)

// DefaultDebounce is the quiet period after the last change before the
// graph is rebuilt.
const DefaultDebounce = 2 * time.Second

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// OnRebuild is called after every rebuild attempt.
	OnRebuild func(*PipelineResult, error)
}

// Watch monitors a data directory and re-runs the pipeline after changes
// to data files or the ignore file settle. A batch that leaves every
// ingested file's content hash unchanged does not rebuild. Blocks until the
// context is cancelled.
func Watch(ctx context.Context, dataDir string, store storage.Backend, opts WatchOptions) error {
	logger := ctxlog.FromContext(ctx)
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	patterns, err := LoadIgnore(dataDir)
	if err != nil {
		logger.Warn("ignoring unreadable ignore file", "error", err)
	}
	matcher := newMatcher(patterns)

	err = filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dataDir && shouldSkipDir(path, dataDir, matcher) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	digests, err := snapshot(dataDir)
	if err != nil {
		logger.Warn("hashing data files", "error", err)
	}

	batchTimer := time.NewTimer(opts.Debounce)
	batchTimer.Stop()
	pending := 0

	logger.Info("watching data directory", "dir", dataDir, "debounce", opts.Debounce)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !shouldWatchFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New subdirectories need their own watch.
				_ = watcher.Add(event.Name)
			}
			pending++
			batchTimer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-batchTimer.C:
			if pending == 0 {
				continue
			}
			changes := pending
			pending = 0
			current, err := snapshot(dataDir)
			if err == nil && digests != nil && maps.Equal(current, digests) {
				logger.Debug("data unchanged, skipping rebuild", "changes", changes)
				continue
			}
			digests = current
			logger.Info("rebuilding graph", "changes", changes)
			_, result, err := RunPipeline(ctx, dataDir, store, nil)
			if err != nil {
				logger.Error("rebuild failed", "error", err)
			}
			if opts.OnRebuild != nil {
				opts.OnRebuild(result, err)
			}
		}
	}
}

// shouldWatchFile reports whether a change to path can affect the graph.
func shouldWatchFile(path string) bool {
	name := filepath.Base(path)
	return isDataFile(name) || name == IgnoreFile || filepath.Ext(name) == ""
}

// snapshot maps every ingestible file's relative path to its content hash.
func snapshot(dataDir string) (map[string]string, error) {
	patterns, err := LoadIgnore(dataDir)
	if err != nil {
		return nil, err
	}
	files, err := WalkData(dataDir, patterns)
	if err != nil {
		return nil, err
	}
	digests := make(map[string]string, len(files))
	for _, f := range files {
		digests[f.RelPath] = f.SHA256
	}
	return digests, nil
}
