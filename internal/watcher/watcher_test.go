package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestMatchExtension(t *testing.T) {
	exts := []string{"mp4", ".MOV"}
	if !matchExtension("/drop/clip.mp4", exts) {
		t.Error("mp4 should match")
	}
	if !matchExtension("/drop/clip.mov", exts) {
		t.Error("extension match should be case-insensitive")
	}
	if matchExtension("/drop/notes.txt", exts) {
		t.Error("txt should not match")
	}
	if !matchExtension("/drop/anything.xyz", nil) {
		t.Error("empty filter should match everything")
	}
}

func TestWatcher_IngestOnCreate(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	var ingested []string
	onIngest := func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}

	w := NewWatcher([]string{dir}, []string{"mp4"}, true, onIngest, nil,
		WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	clip := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(clip, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	// Non-matching file must be ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		n := len(ingested)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("file was not ingested")
		case <-time.After(20 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, p := range ingested {
		if filepath.Base(p) != "clip.mp4" {
			t.Errorf("unexpected ingest: %s", p)
		}
	}
}

func TestWatcher_RemoveCallback(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(clip, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var removed []string
	w := NewWatcher([]string{dir}, []string{"mp4"}, false, nil, func(path string) {
		mu.Lock()
		removed = append(removed, path)
		mu.Unlock()
	}, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(clip); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		n := len(removed)
		mu.Unlock()
		if n > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("remove callback not invoked")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "old.mp4"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var ingested []string
	w := NewWatcher([]string{dir}, []string{"mp4"}, true, func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExistingFiles()

	mu.Lock()
	defer mu.Unlock()
	if len(ingested) != 1 || filepath.Base(ingested[0]) != "old.mp4" {
		t.Errorf("ingested: %v", ingested)
	}
}

func TestWatcher_CreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "drop")
	w := NewWatcher([]string{root}, nil, true, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should be created: %v", err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 {
		t.Errorf("directories: %v", dirs)
	}
}
