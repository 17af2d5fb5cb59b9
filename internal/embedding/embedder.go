// Package embedding provides text embedding via an OpenAI-compatible API and caching.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the embedding endpoint could not be reached or
// returned no usable result.
var ErrUnavailable = errors.New("embedding service unavailable")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
