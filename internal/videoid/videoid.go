// Package videoid provides a deterministic video ID from a file path.
package videoid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "video:"

// VideoID returns a stable video ID for the given absolute path.
// Same path always yields the same ID, so re-ingesting a file replaces
// its catalog row and index entries instead of duplicating them.
func VideoID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
