// Package albumart locates, imports and composes album art.
package albumart

import (
	"os"
	"path/filepath"
	"strings"
)

// Conventional cover file base names, best first.
var coverBaseNames = []string{"cover", "folder", "front", "albumart", "album"}

// Image extensions the importer can decode.
var coverExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// Locate scans the immediate contents of dir for a conventional cover art
// file and returns the best match, or "" when there is none. An unreadable
// directory is treated as no match.
func Locate(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	best := ""
	bestRank := len(coverBaseNames)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !coverExtensions[ext] {
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		for rank, candidate := range coverBaseNames {
			if base == candidate && rank < bestRank {
				best = filepath.Join(dir, name)
				bestRank = rank
				break
			}
		}
	}
	return best
}
