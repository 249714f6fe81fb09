// Package collection indexes on-disk music directories into the catalog.
package collection

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"melodex/logger"
)

// File extensions recognized as audio.
var audioExtensions = map[string]struct{}{
	".aac":  {},
	".aif":  {},
	".aiff": {},
	".alac": {},
	".flac": {},
	".m4a":  {},
	".mp3":  {},
	".ogg":  {},
	".opus": {},
	".wav":  {},
	".wma":  {},
}

// WalkAudioFiles enumerates the regular audio files under root depth-first
// and calls fn with each absolute path. Unreadable entries are logged and
// skipped, symbolic links are not followed, and cancellation is honored
// between files. fn's error aborts the walk.
func WalkAudioFiles(ctx context.Context, root string, fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping unreadable path", logger.String("path", path), logger.ErrorField(err))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			logger.Warn("Skipping unresolvable path", logger.String("path", path), logger.ErrorField(err))
			return nil
		}
		return fn(abs)
	})
}
