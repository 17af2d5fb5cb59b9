// Package vector provides vector index and similarity search over frame entries.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch indicates a vector's dimension does not match the index.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is an indexed frame: its identity, metadata, and caption embedding.
type Entry struct {
	ID         string
	VideoID    string
	FrameIndex int
	Timestamp  float64
	Caption    string
	Vector     []float32
}

// Result is a single search hit.
type Result struct {
	Entry Entry
	// Score is cosine similarity in [-1, 1].
	Score float64
}

// Index defines frame entry storage and similarity search scoped by video.
type Index interface {
	// Upsert inserts entries, replacing any existing entry with the same ID.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to k entries for videoID most similar to query,
	// best first. Fewer than k entries exist returns all of them.
	Search(ctx context.Context, videoID string, query []float32, k int) ([]Result, error)
	// Get returns the entry with the given ID, or nil when absent.
	Get(ctx context.Context, id string) (*Entry, error)
	// DeleteVideo removes all entries for videoID and returns how many.
	DeleteVideo(ctx context.Context, videoID string) (int, error)
	// Count returns the number of entries for videoID.
	Count(ctx context.Context, videoID string) (int, error)
	Size() int
	Dimensions() int
	Save(path string) error
	Load(path string) error
	Close() error
}
