package collection

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"melodex/logger"
	"melodex/model"
	"melodex/repository"

	"github.com/fsnotify/fsnotify"
)

// Watcher rescans a directory when files change under it. Bursts of
// filesystem events are debounced into a single indexing pass per
// directory. It complements the interval scheduler; both funnel into the
// same indexer locks.
type Watcher struct {
	indexer     *Indexer
	directories repository.DirectoryRepository
	debounce    time.Duration
}

// NewWatcher creates a filesystem watcher over the enabled directories.
func NewWatcher(indexer *Indexer, directories repository.DirectoryRepository, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 30 * time.Second
	}
	return &Watcher{indexer: indexer, directories: directories, debounce: debounce}
}

// Run watches the enabled directories until ctx is cancelled. The set of
// watched roots is the set of enabled directories at call time; newly
// added directories are picked up after a restart or by the scheduler.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	roots, err := w.directories.FindAllEnabled(ctx)
	if err != nil {
		return err
	}
	for _, root := range roots {
		addRecursive(fsWatcher, root.Location)
	}
	logger.Info("Directory watcher started",
		logger.Int("roots", len(roots)), logger.Duration("debounce", w.debounce))

	// The timer stays stopped until an event arrives.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]*model.Directory)
	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					addRecursive(fsWatcher, event.Name)
				}
			}
			if root := rootFor(roots, event.Name); root != nil {
				pending[root.ID] = root
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			for _, root := range pending {
				if _, err := w.indexer.AddDirectoryToIndex(ctx, root); err != nil {
					logger.Error("Watcher-triggered rescan failed",
						logger.String("location", root.Location), logger.ErrorField(err))
				}
			}
			pending = make(map[string]*model.Directory)

		case watchErr, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Directory watcher error", logger.ErrorField(watchErr))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// addRecursive watches root and every subdirectory below it. fsnotify
// watches are not recursive on their own.
func addRecursive(fsWatcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if watchErr := fsWatcher.Add(path); watchErr != nil {
			logger.Warn("Could not watch directory", logger.String("path", path), logger.ErrorField(watchErr))
		}
		return nil
	})
}

// rootFor finds the enabled directory whose tree contains path.
func rootFor(roots []*model.Directory, path string) *model.Directory {
	for _, root := range roots {
		if path == root.Location || strings.HasPrefix(path, root.Location+string(os.PathSeparator)) {
			return root
		}
	}
	return nil
}
