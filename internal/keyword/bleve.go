// Package keyword provides Bleve keyword search over frame captions.
package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// Index provides keyword search over captions scoped by video.
type Index interface {
	Index(ctx context.Context, id, videoID, caption string) error
	Search(ctx context.Context, videoID, query string, limit int) ([]Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// captionDoc is the indexed document shape.
type captionDoc struct {
	VideoID string `json:"video_id"`
	Caption string `json:"caption"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is opened and reused; remove the directory to force a
// rebuild after a mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	captionFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so a query term
	// matches the exact word the caption used.
	captionFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("caption", captionFieldMapping)
	videoIDFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("video_id", videoIDFieldMapping)
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a caption under id, tagged with its video.
func (b *BleveIndex) Index(ctx context.Context, id, videoID, caption string) error {
	return b.index.Index(id, captionDoc{VideoID: videoID, Caption: caption})
}

// Search runs a match query over captions of the given video and returns up to limit results.
func (b *BleveIndex) Search(ctx context.Context, videoID, query string, limit int) ([]Result, error) {
	captionQuery := bleve.NewMatchQuery(query)
	captionQuery.SetField("caption")
	videoQuery := bleve.NewTermQuery(videoID)
	videoQuery.SetField("video_id")

	search := bleve.NewSearchRequest(bleve.NewConjunctionQuery(videoQuery, captionQuery))
	search.Size = limit
	results, err := b.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]Result, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a caption from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of indexed captions.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
