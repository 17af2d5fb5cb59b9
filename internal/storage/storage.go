// Package storage defines the persistence interface for the video catalog.
package storage

import (
	"context"

	"github.com/hyperjump/miteru/internal/models"
)

// Storage defines video catalog persistence operations.
type Storage interface {
	UpsertVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	ListVideos(ctx context.Context, offset, limit int) ([]*models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	CountVideos(ctx context.Context) (int64, error)
	Close() error
}
