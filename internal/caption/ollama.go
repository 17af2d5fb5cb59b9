package caption

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// captionPrompt asks for a dense factual description. Retrieval quality depends
// on captions mentioning concrete objects, actions, and text visible on screen.
const captionPrompt = "Describe this video frame in detail. Mention the visible objects, " +
	"people, actions, setting, and any on-screen text. Answer with the description only."

// OllamaCaptioner captions frames through the OpenAI-compatible chat endpoint
// of a local Ollama server running a vision model.
type OllamaCaptioner struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOllamaCaptioner creates a captioner for the given endpoint and vision model.
func NewOllamaCaptioner(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *OllamaCaptioner {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL
	return &OllamaCaptioner{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Caption reads the image at imagePath and asks the vision model to describe it.
func (c *OllamaCaptioner) Caption(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read frame image: %w", err)
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: captionPrompt,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		// Temperature 0 is omitted by the client encoder, so use a value
		// close enough to zero for effectively greedy decoding.
		Temperature: 1e-8,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrModelUnavailable)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("model %s returned an empty caption", c.model)
	}
	return text, nil
}

// Close is a no-op; the HTTP client holds no resources to release.
func (c *OllamaCaptioner) Close() error {
	return nil
}
