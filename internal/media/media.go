// Package media probes video files and samples them into frame images
// using the ffmpeg/ffprobe binaries.
package media

import (
	"context"
	"errors"
)

// ErrUnreadable indicates the input file is missing, not a video, or has no
// decodable video stream.
var ErrUnreadable = errors.New("video unreadable")

// Frame is a single sampled frame image on disk.
type Frame struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp_seconds"`
	Path      string  `json:"path"`
}

// Info holds the probed properties of a video file.
type Info struct {
	Duration float64 `json:"duration_seconds"`
	FPS      float64 `json:"fps"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	HasAudio bool    `json:"has_audio"`
}

// Sampler probes videos and extracts frames at a target rate.
type Sampler interface {
	// Probe returns duration, native frame rate, and dimensions for path.
	// Returns ErrUnreadable when the file cannot serve as a video source.
	Probe(ctx context.Context, path string) (*Info, error)

	// Sample extracts frames from path at targetFPS into framesDir and
	// returns them in timestamp order. targetFPS is clamped to the native
	// rate: sampling cannot produce more frames than the source has.
	Sample(ctx context.Context, path string, targetFPS float64, framesDir string) ([]Frame, error)
}
