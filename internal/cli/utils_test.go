package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/miteru/internal/models"
)

func TestWriteAnswer_text(t *testing.T) {
	answer := &models.Answer{
		VideoID:  "video:a",
		Question: "what happens?",
		Text:     "A car drives away.",
		Evidence: []models.Evidence{
			{TimestampStr: "00:00:05", Caption: "a car on a road", Score: 0.91},
		},
		QueryTime: 42,
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answer, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "A car drives away.") {
		t.Errorf("answer text missing: %s", out)
	}
	if !strings.Contains(out, "[00:00:05]") {
		t.Errorf("evidence timestamp missing: %s", out)
	}
}

func TestWriteAnswer_json(t *testing.T) {
	answer := &models.Answer{VideoID: "video:a", Text: "ok"}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answer, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.VideoID != "video:a" || decoded.Text != "ok" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteAnswer_noEvidence(t *testing.T) {
	answer := &models.Answer{Text: "No relevant frames were found for this question.", NoEvidence: true}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answer, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Evidence") {
		t.Errorf("no evidence block expected: %s", buf.String())
	}
}

func TestWriteVideos_text(t *testing.T) {
	videos := []*models.Video{
		{ID: "video:a", Title: "trip", State: "complete", DurationSeconds: 75, FramesIndexed: 75},
	}
	var buf bytes.Buffer
	if err := WriteVideos(&buf, videos, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "video:a") || !strings.Contains(out, "00:01:15") {
		t.Errorf("output: %s", out)
	}

	buf.Reset()
	if err := WriteVideos(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No videos") {
		t.Errorf("empty list output: %s", buf.String())
	}
}
