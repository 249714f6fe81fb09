package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestWalkAudioFilesFiltersByExtension(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	sub := filepath.Join(root, "album")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"01.mp3", "02.FLAC", "notes.txt", "cover.jpg"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(sub, "03.ogg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	var got []string
	err := WalkAudioFiles(context.Background(), root, func(path string) error {
		got = append(got, path)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkAudioFiles failed: %v", err)
	}
	sort.Strings(got)

	want := []string{
		filepath.Join(root, "01.mp3"),
		filepath.Join(root, "02.FLAC"),
		filepath.Join(sub, "03.ogg"),
	}
	for i := range want {
		abs, _ := filepath.Abs(want[i])
		want[i] = abs
	}
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("walked %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("walked %v, want %v", got, want)
			break
		}
	}
	for _, path := range got {
		if !filepath.IsAbs(path) {
			t.Errorf("path %q is not absolute", path)
		}
	}
}

func TestWalkAudioFilesHonorsCancellation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "01.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WalkAudioFiles(ctx, root, func(string) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if called {
		t.Error("callback ran after cancellation")
	}
}

func TestWalkAudioFilesPropagatesCallbackError(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "01.mp3"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WalkAudioFiles(context.Background(), root, func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the callback error", err)
	}
}
