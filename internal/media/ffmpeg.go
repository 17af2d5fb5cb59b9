package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// FFmpegSampler samples frames by shelling out to ffmpeg and ffprobe.
type FFmpegSampler struct {
	logger *zap.Logger
}

// NewFFmpegSampler creates a sampler backed by the ffmpeg and ffprobe binaries.
func NewFFmpegSampler(logger *zap.Logger) *FFmpegSampler {
	return &FFmpegSampler{logger: logger}
}

// Probe runs ffprobe on path and parses duration and the video stream properties.
func (s *FFmpegSampler) Probe(ctx context.Context, path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe failed for %s: %v", ErrUnreadable, path, err)
	}

	info, err := parseProbeOutput(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	return info, nil
}

// parseProbeOutput decodes ffprobe JSON into an Info. A video needs a positive
// duration and a video stream with a positive frame rate.
func parseProbeOutput(output []byte) (*Info, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType  string `json:"codec_type"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %v", err)
	}

	info := &Info{}
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
			info.FPS = parseFrameRate(stream.RFrameRate)
		case "audio":
			info.HasAudio = true
		}
	}

	if info.Duration <= 0 {
		return nil, fmt.Errorf("no duration")
	}
	if info.FPS <= 0 {
		return nil, fmt.Errorf("no video stream")
	}
	return info, nil
}

// parseFrameRate parses ffprobe's "num/den" rational frame rate.
func parseFrameRate(r string) float64 {
	parts := strings.Split(r, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den <= 0 {
		return 0
	}
	return num / den
}

// Sample probes path, clamps targetFPS to the native rate, runs ffmpeg into
// framesDir, and enumerates the produced images in timestamp order.
func (s *FFmpegSampler) Sample(ctx context.Context, path string, targetFPS float64, framesDir string) ([]Frame, error) {
	info, err := s.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	fps := EffectiveFPS(targetFPS, info.FPS)

	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	pattern := filepath.Join(framesDir, "%06d.jpg")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", path,
		"-vf", fmt.Sprintf("fps=%g", fps),
		pattern)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg failed for %s: %v: %s", ErrUnreadable, path, err, truncateOutput(out))
	}

	frames, err := enumerateFrames(framesDir, fps, info.FPS)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("sampled frames",
		zap.String("path", path),
		zap.Float64("fps", fps),
		zap.Int("frames", len(frames)))
	return frames, nil
}

// EffectiveFPS clamps the requested sampling rate to the native frame rate.
func EffectiveFPS(targetFPS, nativeFPS float64) float64 {
	if nativeFPS > 0 && targetFPS > nativeFPS {
		return nativeFPS
	}
	return targetFPS
}

// enumerateFrames lists the extracted jpg files and assigns each a timestamp.
// ffmpeg numbers output files from 1; frame i (0-based) nominally sits at
// i/sampleFPS, snapped to the nearest source frame boundary.
func enumerateFrames(framesDir string, sampleFPS, nativeFPS float64) ([]Frame, error) {
	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jpg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([]Frame, 0, len(names))
	for i, name := range names {
		frames = append(frames, Frame{
			Index:     i,
			Timestamp: FrameTimestamp(i, sampleFPS, nativeFPS),
			Path:      filepath.Join(framesDir, name),
		})
	}
	return frames, nil
}

// FrameTimestamp maps sampled frame i to its position in the source.
// The nominal time i/sampleFPS is snapped to the nearest native frame.
func FrameTimestamp(i int, sampleFPS, nativeFPS float64) float64 {
	if sampleFPS <= 0 {
		return 0
	}
	nominal := float64(i) / sampleFPS
	if nativeFPS <= 0 {
		return nominal
	}
	return math.Round(nominal*nativeFPS) / nativeFPS
}

func truncateOutput(out []byte) string {
	const max = 300
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
