package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/miteru/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage_UpsertGet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	v := &models.Video{
		ID:              "video:abc",
		Title:           "trip",
		SourcePath:      "/videos/trip.mp4",
		DurationSeconds: 93.5,
		NativeFPS:       29.97,
		SampleFPS:       1.0,
		FramesSampled:   94,
		FramesIndexed:   94,
		State:           models.StateComplete,
	}
	if err := s.UpsertVideo(ctx, v); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetVideo(ctx, "video:abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "trip" || got.DurationSeconds != 93.5 || got.FramesIndexed != 94 {
		t.Errorf("got %+v", got)
	}
	if got.State != models.StateComplete {
		t.Errorf("state: %s", got.State)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestSQLiteStorage_UpsertReplaces(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	v := &models.Video{ID: "video:abc", Title: "first", SourcePath: "/a.mp4", State: models.StateSampling}
	if err := s.UpsertVideo(ctx, v); err != nil {
		t.Fatal(err)
	}
	v.Title = "second"
	v.State = models.StateComplete
	v.FramesIndexed = 12
	if err := s.UpsertVideo(ctx, v); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetVideo(ctx, "video:abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "second" || got.FramesIndexed != 12 {
		t.Errorf("row not replaced: %+v", got)
	}
	if n, _ := s.CountVideos(ctx); n != 1 {
		t.Errorf("count: %d", n)
	}
}

func TestSQLiteStorage_GetMissing(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetVideo(context.Background(), "video:nope"); err == nil {
		t.Error("expected error for missing video")
	}
}

func TestSQLiteStorage_ListDelete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, id := range []string{"video:a", "video:b", "video:c"} {
		if err := s.UpsertVideo(ctx, &models.Video{ID: id, SourcePath: "/" + id, State: models.StateIdle}); err != nil {
			t.Fatal(err)
		}
	}

	videos, err := s.ListVideos(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 3 {
		t.Fatalf("list: %d", len(videos))
	}

	if err := s.DeleteVideo(ctx, "video:b"); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CountVideos(ctx); n != 2 {
		t.Errorf("count after delete: %d", n)
	}
	if _, err := s.GetVideo(ctx, "video:b"); err == nil {
		t.Error("deleted video still present")
	}
}
