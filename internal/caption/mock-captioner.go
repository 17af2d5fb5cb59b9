package caption

import (
	"context"
	"fmt"
	"path/filepath"
)

// MockCaptioner is a deterministic captioner for tests. The caption is derived
// from the image file name so that the same frame always gets the same text.
type MockCaptioner struct{}

// NewMockCaptioner returns a captioner that produces deterministic captions.
func NewMockCaptioner() *MockCaptioner {
	return &MockCaptioner{}
}

// Caption returns a fixed description mentioning the frame file name.
func (c *MockCaptioner) Caption(ctx context.Context, imagePath string) (string, error) {
	return fmt.Sprintf("a test scene from %s", filepath.Base(imagePath)), nil
}

// Close is a no-op for MockCaptioner.
func (c *MockCaptioner) Close() error {
	return nil
}
