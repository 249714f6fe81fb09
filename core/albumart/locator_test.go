package albumart

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLocatePrefersConventionalNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "folder.jpg"))
	touch(t, filepath.Join(dir, "Cover.PNG"))
	touch(t, filepath.Join(dir, "albumart.jpeg"))

	if got := Locate(dir); got != filepath.Join(dir, "Cover.PNG") {
		t.Errorf("Locate = %q, want the cover file", got)
	}
}

func TestLocateIgnoresNonImagesAndDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "cover.txt"))
	if err := os.Mkdir(filepath.Join(dir, "folder.jpg"), 0755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir, "front.bmp"))

	if got := Locate(dir); got != filepath.Join(dir, "front.bmp") {
		t.Errorf("Locate = %q, want front.bmp", got)
	}
}

func TestLocateNoMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "tracklist.txt"))
	if got := Locate(dir); got != "" {
		t.Errorf("Locate = %q, want empty", got)
	}

	if got := Locate(filepath.Join(dir, "missing")); got != "" {
		t.Errorf("Locate on missing dir = %q, want empty", got)
	}
}
