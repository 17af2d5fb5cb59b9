// Package cli provides CLI output utilities for Miteru.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/miteru/internal/models"
	"github.com/hyperjump/miteru/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	default:
		writeAnswerText(w, answer)
		return nil
	}
}

func writeAnswerText(w io.Writer, answer *models.Answer) {
	fmt.Fprintf(w, "\n%s\n", answer.Text)
	if answer.NoEvidence {
		return
	}
	fmt.Fprintf(w, "\nEvidence (%d frames, %dms):\n", len(answer.Evidence), answer.QueryTime)
	for _, ev := range answer.Evidence {
		fmt.Fprintf(w, "  [%s] score %.4f  %s\n",
			ev.TimestampStr, ev.Score, utils.Truncate(ev.Caption, 120))
	}
}

// WriteVideos writes a video list to w in the given format.
func WriteVideos(w io.Writer, videos []*models.Video, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(videos)
	default:
		if len(videos) == 0 {
			fmt.Fprintln(w, "No videos ingested.")
			return nil
		}
		for _, v := range videos {
			fmt.Fprintf(w, "%s\n  title: %s\n  state: %s  duration: %s  frames: %d\n",
				v.ID, v.Title, v.State, utils.FormatTimestamp(v.DurationSeconds), v.FramesIndexed)
		}
		return nil
	}
}
