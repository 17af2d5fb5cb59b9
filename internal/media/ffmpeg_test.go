package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestParseProbeOutput(t *testing.T) {
	output := []byte(`{
		"format": {"duration": "12.480000"},
		"streams": [
			{"codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"},
			{"codec_type": "audio"}
		]
	}`)
	info, err := parseProbeOutput(output)
	if err != nil {
		t.Fatal(err)
	}
	if info.Duration != 12.48 {
		t.Errorf("duration: %v", info.Duration)
	}
	if math.Abs(info.FPS-29.97) > 0.01 {
		t.Errorf("fps: %v", info.FPS)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Errorf("dimensions: %dx%d", info.Width, info.Height)
	}
	if !info.HasAudio {
		t.Error("audio stream not detected")
	}
}

func TestParseProbeOutput_noVideoStream(t *testing.T) {
	output := []byte(`{
		"format": {"duration": "5.0"},
		"streams": [{"codec_type": "audio"}]
	}`)
	if _, err := parseProbeOutput(output); err == nil {
		t.Error("audio-only file should be rejected")
	}
}

func TestParseProbeOutput_zeroDuration(t *testing.T) {
	output := []byte(`{
		"format": {},
		"streams": [{"codec_type": "video", "r_frame_rate": "25/1"}]
	}`)
	if _, err := parseProbeOutput(output); err == nil {
		t.Error("missing duration should be rejected")
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := parseFrameRate("25/1"); got != 25 {
		t.Errorf("25/1: %v", got)
	}
	if got := parseFrameRate("0/0"); got != 0 {
		t.Errorf("0/0 should be 0: %v", got)
	}
	if got := parseFrameRate("garbage"); got != 0 {
		t.Errorf("garbage should be 0: %v", got)
	}
}

func TestEffectiveFPS(t *testing.T) {
	if got := EffectiveFPS(5.0, 24.0); got != 5.0 {
		t.Errorf("target below native: %v", got)
	}
	if got := EffectiveFPS(5.0, 2.0); got != 2.0 {
		t.Errorf("target above native should clamp: %v", got)
	}
}

func TestFrameTimestamp(t *testing.T) {
	// 1 fps sampling of a 25 fps source: frame i sits exactly at i seconds.
	if got := FrameTimestamp(3, 1.0, 25.0); got != 3.0 {
		t.Errorf("got %v", got)
	}
	// 0.3 fps sampling of a 30 fps source: nominal 1/0.3=3.333s snaps to a
	// 30 fps boundary.
	got := FrameTimestamp(1, 0.3, 30.0)
	want := math.Round(1.0/0.3*30.0) / 30.0
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := FrameTimestamp(0, 1.0, 25.0); got != 0 {
		t.Errorf("first frame should be at 0: %v", got)
	}
}

func TestProbe_missingFile(t *testing.T) {
	s := NewFFmpegSampler(zap.NewNop())
	_, err := s.Probe(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("missing file should be ErrUnreadable: %v", err)
	}
}

func TestEnumerateFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000001.jpg", "000002.jpg", "000003.jpg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	frames, err := enumerateFrames(dir, 1.0, 25.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d: index %d", i, f.Index)
		}
		if f.Timestamp != float64(i) {
			t.Errorf("frame %d: timestamp %v", i, f.Timestamp)
		}
	}
	if filepath.Base(frames[0].Path) != "000001.jpg" {
		t.Errorf("first frame path: %s", frames[0].Path)
	}
}

// synthesizeClip renders a short test-pattern clip, or skips when ffmpeg is
// not installed.
func synthesizeClip(t *testing.T, duration, rate int) string {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed", bin)
		}
	}
	clip := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command("ffmpeg", "-y", "-f", "lavfi",
		"-i", fmt.Sprintf("testsrc=duration=%d:rate=%d", duration, rate),
		"-pix_fmt", "yuv420p", clip)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg could not synthesize a clip: %v\n%s", err, out)
	}
	return clip
}

func TestSample_frameCountMatchesDuration(t *testing.T) {
	clip := synthesizeClip(t, 10, 10)
	s := NewFFmpegSampler(zap.NewNop())
	ctx := context.Background()

	info, err := s.Probe(ctx, clip)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(info.Duration-10.0) > 0.5 {
		t.Fatalf("duration: %v", info.Duration)
	}

	frames, err := s.Sample(ctx, clip, 1.0, filepath.Join(t.TempDir(), "frames"))
	if err != nil {
		t.Fatal(err)
	}
	// 10 seconds at 1 fps: floor(duration * fps) give or take one frame.
	if len(frames) < 9 || len(frames) > 11 {
		t.Errorf("frame count: %d", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d: index %d", i, f.Index)
		}
		if i > 0 && f.Timestamp <= frames[i-1].Timestamp {
			t.Errorf("timestamps not increasing at frame %d: %v <= %v",
				i, f.Timestamp, frames[i-1].Timestamp)
		}
		if _, err := os.Stat(f.Path); err != nil {
			t.Errorf("frame image missing: %v", err)
		}
	}
}

func TestSample_targetAboveNativeClamps(t *testing.T) {
	clip := synthesizeClip(t, 4, 2)
	s := NewFFmpegSampler(zap.NewNop())

	// 5 fps requested from a 2 fps source must clamp to native rate.
	frames, err := s.Sample(context.Background(), clip, 5.0, filepath.Join(t.TempDir(), "frames"))
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) < 7 || len(frames) > 9 {
		t.Errorf("frame count: %d", len(frames))
	}
}
