// Package ingest runs the video ingestion pipeline: sample frames, caption
// them with a vision model, embed the captions, and index the results.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/miteru/internal/caption"
	"github.com/hyperjump/miteru/internal/config"
	"github.com/hyperjump/miteru/internal/embedding"
	"github.com/hyperjump/miteru/internal/keyword"
	"github.com/hyperjump/miteru/internal/media"
	"github.com/hyperjump/miteru/internal/models"
	"github.com/hyperjump/miteru/internal/storage"
	"github.com/hyperjump/miteru/internal/vector"
	"github.com/hyperjump/miteru/pkg/utils"
)

// ErrNoFrames indicates sampling produced no frames at all.
var ErrNoFrames = errors.New("no frames sampled")

// FrameFailure records a frame that was skipped during ingestion.
type FrameFailure struct {
	FrameIndex int     `json:"frame_index"`
	Timestamp  float64 `json:"timestamp_seconds"`
	Stage      string  `json:"stage"`
	Err        string  `json:"error"`
}

// Report summarizes one ingestion run.
type Report struct {
	VideoID         string         `json:"video_id"`
	State           string         `json:"state"`
	FramesSampled   int            `json:"frames_sampled"`
	FramesCaptioned int            `json:"frames_captioned"`
	FramesIndexed   int            `json:"frames_indexed"`
	FramesSkipped   int            `json:"frames_skipped"`
	Failures        []FrameFailure `json:"failures,omitempty"`
}

// Pipeline wires the sampler, models, and indices into the ingestion flow.
type Pipeline struct {
	sampler   media.Sampler
	captioner caption.Captioner
	embedder  embedding.Embedder
	index     vector.Index
	keywords  keyword.Index
	catalog   storage.Storage
	cfg       *config.Config
	logger    *zap.Logger
}

// NewPipeline creates an ingestion pipeline. keywords may be nil when hybrid
// retrieval is disabled.
func NewPipeline(sampler media.Sampler, captioner caption.Captioner, embedder embedding.Embedder,
	index vector.Index, keywords keyword.Index, catalog storage.Storage,
	cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		sampler:   sampler,
		captioner: captioner,
		embedder:  embedder,
		index:     index,
		keywords:  keywords,
		catalog:   catalog,
		cfg:       cfg,
		logger:    logger,
	}
}

// DocumentText renders the text that gets embedded and keyword-indexed for a
// frame. The video ID and timestamp are part of the text so temporal questions
// can match on them.
func DocumentText(videoID, timestampStr, captionText string) string {
	return fmt.Sprintf("Video %s, time %s: %s", videoID, timestampStr, captionText)
}

// EntryID is the vector/keyword index ID for a frame of a video.
func EntryID(videoID string, frameIndex int) string {
	return fmt.Sprintf("%s_%d", videoID, frameIndex)
}

// Ingest runs the full pipeline for one video. Re-ingesting the same path
// replaces the previous entries. Connectivity failures of the caption or
// embedding backend abort the run; other per-frame errors skip the frame.
func (p *Pipeline) Ingest(ctx context.Context, videoID, title, path string, targetFPS float64) (*Report, error) {
	report := &Report{VideoID: videoID, State: models.StateIdle}
	p.recordVideo(ctx, videoID, title, path, nil, 0, report)

	report.State = models.StateSampling
	info, err := p.sampler.Probe(ctx, path)
	if err != nil {
		report.State = models.StateFailed
		p.recordVideo(ctx, videoID, title, path, nil, 0, report)
		return report, err
	}

	fps := p.cfg.Sampling.ClampFPS(targetFPS)
	framesDir := p.framesDir(videoID)
	p.recordVideo(ctx, videoID, title, path, info, fps, report)

	frames, err := p.sampler.Sample(ctx, path, fps, framesDir)
	if err != nil {
		report.State = models.StateFailed
		p.recordVideo(ctx, videoID, title, path, info, fps, report)
		return report, err
	}
	report.FramesSampled = len(frames)
	if len(frames) == 0 {
		report.State = models.StateFailed
		p.recordVideo(ctx, videoID, title, path, info, fps, report)
		return report, fmt.Errorf("%w: %s", ErrNoFrames, path)
	}

	// Sampling succeeded, so it is now safe to drop the previous entries.
	prevCount, err := p.index.Count(ctx, videoID)
	if err != nil {
		prevCount = 0
	}
	if _, err := p.index.DeleteVideo(ctx, videoID); err != nil {
		report.State = models.StateFailed
		return report, fmt.Errorf("clear previous entries: %w", err)
	}
	p.deleteKeywordEntries(ctx, videoID, prevCount)

	report.State = models.StateCaptioning
	p.recordVideo(ctx, videoID, title, path, info, fps, report)
	captioned, err := p.captionFrames(ctx, frames, report)
	if err != nil {
		report.State = models.StateFailed
		p.recordVideo(ctx, videoID, title, path, info, fps, report)
		return report, err
	}

	report.State = models.StateEmbedding
	p.recordVideo(ctx, videoID, title, path, info, fps, report)
	entries, err := p.embedFrames(ctx, videoID, captioned, report)
	if err != nil {
		report.State = models.StateFailed
		p.recordVideo(ctx, videoID, title, path, info, fps, report)
		return report, err
	}

	report.State = models.StateIndexing
	p.recordVideo(ctx, videoID, title, path, info, fps, report)
	if err := p.indexEntries(ctx, videoID, entries, report); err != nil {
		report.State = models.StateFailed
		p.recordVideo(ctx, videoID, title, path, info, fps, report)
		return report, err
	}

	if err := p.checkFailures(report); err != nil {
		report.State = models.StateFailed
		p.recordVideo(ctx, videoID, title, path, info, fps, report)
		return report, err
	}

	if err := p.index.Save(p.cfg.Storage.IndexPath); err != nil {
		p.logger.Warn("failed to persist vector index", zap.Error(err))
	}
	if !p.cfg.Storage.KeepFrames {
		if err := os.RemoveAll(framesDir); err != nil {
			p.logger.Warn("failed to remove frames dir", zap.String("dir", framesDir), zap.Error(err))
		}
	}

	report.State = models.StateComplete
	p.recordVideo(ctx, videoID, title, path, info, fps, report)
	p.logger.Info("video ingested",
		zap.String("video_id", videoID),
		zap.Int("frames_sampled", report.FramesSampled),
		zap.Int("frames_indexed", report.FramesIndexed),
		zap.Int("frames_skipped", report.FramesSkipped))
	return report, nil
}

// captionedFrame pairs a sampled frame with its vision-model caption.
type captionedFrame struct {
	frame media.Frame
	text  string
}

// captionFrames captions each frame in timestamp order. Frames the model
// cannot describe are skipped; an unreachable model aborts.
func (p *Pipeline) captionFrames(ctx context.Context, frames []media.Frame, report *Report) ([]captionedFrame, error) {
	captioned := make([]captionedFrame, 0, len(frames))
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := p.captioner.Caption(ctx, frame.Path)
		if err != nil {
			if errors.Is(err, caption.ErrModelUnavailable) {
				return nil, err
			}
			p.skipFrame(report, frame, "caption", err)
			continue
		}
		report.FramesCaptioned++
		captioned = append(captioned, captionedFrame{frame: frame, text: text})
	}
	return captioned, nil
}

// embedFrames embeds each captioned frame's document text and builds the
// index entries. Frames whose embedding fails are skipped; an unreachable
// embedding service or a dimension mismatch aborts.
func (p *Pipeline) embedFrames(ctx context.Context, videoID string, captioned []captionedFrame, report *Report) ([]vector.Entry, error) {
	entries := make([]vector.Entry, 0, len(captioned))
	for _, c := range captioned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := DocumentText(videoID, utils.FormatTimestamp(c.frame.Timestamp), c.text)
		emb, err := p.embedder.Embed(ctx, text)
		if err != nil {
			if errors.Is(err, embedding.ErrUnavailable) {
				return nil, err
			}
			p.skipFrame(report, c.frame, "embed", err)
			continue
		}
		if len(emb) != p.index.Dimensions() {
			return nil, fmt.Errorf("%w: embedder produced %d, index expects %d",
				vector.ErrDimensionMismatch, len(emb), p.index.Dimensions())
		}

		entries = append(entries, vector.Entry{
			ID:         EntryID(videoID, c.frame.Index),
			VideoID:    videoID,
			FrameIndex: c.frame.Index,
			Timestamp:  c.frame.Timestamp,
			Caption:    c.text,
			Vector:     emb,
		})
	}
	return entries, nil
}

func (p *Pipeline) indexEntries(ctx context.Context, videoID string, entries []vector.Entry, report *Report) error {
	if len(entries) == 0 {
		return nil
	}
	if err := p.index.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("index entries: %w", err)
	}
	if p.keywords != nil {
		for _, e := range entries {
			text := DocumentText(videoID, utils.FormatTimestamp(e.Timestamp), e.Caption)
			if err := p.keywords.Index(ctx, e.ID, videoID, text); err != nil {
				p.logger.Warn("keyword index failed",
					zap.String("entry_id", e.ID), zap.Error(err))
			}
		}
	}
	report.FramesIndexed = len(entries)
	return nil
}

// checkFailures fails the run when every frame was skipped or the skipped
// fraction reaches the configured threshold.
func (p *Pipeline) checkFailures(report *Report) error {
	if report.FramesIndexed == 0 {
		return fmt.Errorf("all %d sampled frames failed processing", report.FramesSampled)
	}
	threshold := p.cfg.Ingest.FailureThreshold
	if threshold > 0 && threshold < 1 {
		failed := float64(report.FramesSkipped) / float64(report.FramesSampled)
		if failed >= threshold {
			return fmt.Errorf("%d of %d frames failed processing (threshold %.2f)",
				report.FramesSkipped, report.FramesSampled, threshold)
		}
	}
	return nil
}

func (p *Pipeline) skipFrame(report *Report, frame media.Frame, stage string, err error) {
	report.FramesSkipped++
	report.Failures = append(report.Failures, FrameFailure{
		FrameIndex: frame.Index,
		Timestamp:  frame.Timestamp,
		Stage:      stage,
		Err:        err.Error(),
	})
	p.logger.Warn("frame skipped",
		zap.Int("frame_index", frame.Index),
		zap.Float64("timestamp", frame.Timestamp),
		zap.String("stage", stage),
		zap.Error(err))
}

// deleteKeywordEntries removes the keyword docs of a previous ingest of this
// video. Entry IDs are positional (videoID_frameIndex), so the prior frame
// count bounds what can exist.
func (p *Pipeline) deleteKeywordEntries(ctx context.Context, videoID string, prevCount int) {
	if p.keywords == nil {
		return
	}
	for i := 0; i < prevCount; i++ {
		if err := p.keywords.Delete(ctx, EntryID(videoID, i)); err != nil {
			p.logger.Warn("failed to delete keyword entry",
				zap.String("entry_id", EntryID(videoID, i)), zap.Error(err))
		}
	}
}

func (p *Pipeline) framesDir(videoID string) string {
	// Video IDs contain a colon; keep directory names plain.
	return filepath.Join(p.cfg.Storage.FramesDir, strings.ReplaceAll(videoID, ":", "_"))
}

// recordVideo persists the current ingestion state to the catalog.
func (p *Pipeline) recordVideo(ctx context.Context, videoID, title, path string, info *media.Info, fps float64, report *Report) {
	v := &models.Video{
		ID:            videoID,
		Title:         title,
		SourcePath:    path,
		SampleFPS:     fps,
		FramesSampled: report.FramesSampled,
		FramesIndexed: report.FramesIndexed,
		State:         report.State,
	}
	if info != nil {
		v.DurationSeconds = info.Duration
		v.NativeFPS = info.FPS
	}
	if existing, err := p.catalog.GetVideo(ctx, videoID); err == nil {
		v.CreatedAt = existing.CreatedAt
		if title == "" {
			v.Title = existing.Title
		}
	}
	if err := p.catalog.UpsertVideo(ctx, v); err != nil {
		p.logger.Warn("failed to record video", zap.String("video_id", videoID), zap.Error(err))
	}
}
