package vector

import (
	"context"
	"fmt"
)

// IndexType represents the vector index backend.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search with disk snapshots.
	IndexTypeMemory IndexType = "memory"
	// IndexTypePgvector stores entries in PostgreSQL with the pgvector extension.
	IndexTypePgvector IndexType = "pgvector"
)

// NewIndex creates a vector index of the specified type.
// Supported types: "memory" (default), "pgvector" (needs postgresURL).
func NewIndex(ctx context.Context, indexType, postgresURL string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypePgvector:
		if postgresURL == "" {
			return nil, fmt.Errorf("pgvector index requires a postgres URL")
		}
		return NewPgIndex(ctx, postgresURL, dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, pgvector)", indexType)
	}
}
