// Package models defines core data structures for videos, questions, and answers.
package models

import "time"

// Video ingestion states.
const (
	StateIdle       = "idle"
	StateSampling   = "sampling"
	StateCaptioning = "captioning"
	StateEmbedding  = "embedding"
	StateIndexing   = "indexing"
	StateComplete   = "complete"
	StateFailed     = "failed"
)

// Video represents a cataloged video and its ingestion metadata.
type Video struct {
	ID              string    `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	SourcePath      string    `json:"source_path" db:"source_path"`
	DurationSeconds float64   `json:"duration_seconds" db:"duration_seconds"`
	NativeFPS       float64   `json:"native_fps" db:"native_fps"`
	SampleFPS       float64   `json:"sample_fps" db:"sample_fps"`
	FramesSampled   int       `json:"frames_sampled" db:"frames_sampled"`
	FramesIndexed   int       `json:"frames_indexed" db:"frames_indexed"`
	State           string    `json:"state" db:"state"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
