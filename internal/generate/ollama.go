package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/miteru/internal/models"
)

// OllamaGenerator answers questions through the OpenAI-compatible chat endpoint
// of a local Ollama server.
type OllamaGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOllamaGenerator creates a generator for the given endpoint and chat model.
func NewOllamaGenerator(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *OllamaGenerator {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL
	return &OllamaGenerator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Answer builds the grounded prompt from evidence and queries the chat model.
// A failed call is retried once before giving up.
func (g *OllamaGenerator) Answer(ctx context.Context, question string, evidence []models.Evidence) (string, error) {
	prompt := BuildPrompt(question, evidence)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		text, err := g.complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		g.logger.Warn("answer generation failed, retrying",
			zap.String("model", g.model),
			zap.Error(err))
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (g *OllamaGenerator) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   1000,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty answer")
	}
	return text, nil
}

// Close is a no-op; the HTTP client holds no resources to release.
func (g *OllamaGenerator) Close() error {
	return nil
}
