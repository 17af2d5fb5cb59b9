// Package caption describes frame images using a vision-capable chat model.
package caption

import (
	"context"
	"errors"
)

// ErrModelUnavailable indicates the vision model endpoint could not be reached
// or returned no usable result.
var ErrModelUnavailable = errors.New("caption model unavailable")

// Captioner produces a natural-language description of an image file.
type Captioner interface {
	Caption(ctx context.Context, imagePath string) (string, error)
	Close() error
}
