package generate

import (
	"context"
	"fmt"

	"github.com/hyperjump/miteru/internal/models"
)

// MockGenerator is a deterministic generator for tests.
type MockGenerator struct {
	// Err, when set, is returned from every Answer call.
	Err error
}

// NewMockGenerator returns a generator that echoes the question and evidence count.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Answer returns a fixed answer derived from the inputs.
func (g *MockGenerator) Answer(ctx context.Context, question string, evidence []models.Evidence) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	return fmt.Sprintf("answer to %q from %d frames", question, len(evidence)), nil
}

// Close is a no-op for MockGenerator.
func (g *MockGenerator) Close() error {
	return nil
}
