// Package generate synthesizes grounded answers from retrieved frame descriptions.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/miteru/internal/models"
)

// ErrUnavailable indicates the chat model endpoint could not be reached or
// returned no usable result.
var ErrUnavailable = errors.New("generation service unavailable")

// Generator produces an answer to a question given retrieved frame evidence.
type Generator interface {
	Answer(ctx context.Context, question string, evidence []models.Evidence) (string, error)
	Close() error
}

// BuildPrompt renders the grounded prompt: the model may only use the supplied
// frame descriptions, must say what it cannot determine, and must not invent
// details the frames do not show.
func BuildPrompt(question string, evidence []models.Evidence) string {
	var context strings.Builder
	for _, ev := range evidence {
		fmt.Fprintf(&context, "- [%s] %s\n", ev.TimestampStr, ev.Caption)
	}

	var b strings.Builder
	b.WriteString("You are a video analysis assistant. Answer the question about a video ")
	b.WriteString("using only the frame descriptions below.\n\n")
	b.WriteString("FRAME DESCRIPTIONS (timestamp, then caption):\n")
	b.WriteString(context.String())
	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("1. Read the frame descriptions carefully and combine them to follow the sequence of events.\n")
	b.WriteString("2. If the descriptions answer the question, give a clear, concise answer.\n")
	b.WriteString("3. If the answer follows from the sequence of frames, explain the inference.\n")
	b.WriteString("4. If the descriptions do not contain the answer, say so plainly instead of guessing.\n")
	b.WriteString("5. Never add details that are not present in the descriptions.\n")
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
