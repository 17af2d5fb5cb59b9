package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestBleveIndex_SearchScopedByVideo(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, "v1_0", "v1", "a red car drives past a fence"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "v1_1", "v1", "a person walks a dog"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "v2_0", "v2", "a red car parked in a garage"); err != nil {
		t.Fatal(err)
	}

	results, err := idx.Search(ctx, "v1", "red car", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(results))
	}
	if results[0].ID != "v1_0" {
		t.Errorf("hit: %s", results[0].ID)
	}
	if results[0].Score <= 0 {
		t.Errorf("score: %v", results[0].Score)
	}
}

func TestBleveIndex_NoMatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	idx.Index(ctx, "v1_0", "v1", "a quiet empty street")
	results, err := idx.Search(ctx, "v1", "elephant", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no hits, got %d", len(results))
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	idx.Index(ctx, "v1_0", "v1", "a boat on a lake")
	if err := idx.Delete(ctx, "v1_0"); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "v1", "boat", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("deleted caption still found: %d", len(results))
	}
	if n, _ := idx.DocCount(); n != 0 {
		t.Errorf("doc count: %d", n)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	idx.Index(ctx, "v1_0", "v1", "fireworks over a city at night")
	idx.Close()

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	results, err := reopened.Search(ctx, "v1", "fireworks", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("reopened index should keep documents: %d hits", len(results))
	}
}
