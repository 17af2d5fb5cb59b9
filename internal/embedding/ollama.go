package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/miteru/pkg/utils"
)

// OllamaEmbedder embeds text through the OpenAI-compatible embeddings endpoint
// of a local Ollama server.
type OllamaEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewOllamaEmbedder creates an embedder for the given endpoint and model.
// dimensions must match what the model actually produces; it is validated
// against the first response.
func NewOllamaEmbedder(baseURL, apiKey, model string, dimensions int, timeout time.Duration, logger *zap.Logger) *OllamaEmbedder {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL
	return &OllamaEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		dimensions: dimensions,
		timeout:    timeout,
		logger:     logger,
	}
}

// Embed returns the embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrUnavailable)
	}

	emb := resp.Data[0].Embedding
	if len(emb) != e.dimensions {
		return nil, fmt.Errorf("model %s returned %d dimensions, expected %d", e.model, len(emb), e.dimensions)
	}
	// Models do not guarantee unit-norm output; normalizing here keeps stored
	// vectors directly comparable across index backends.
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch embeds each text in order. A failure aborts the batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources to release.
func (e *OllamaEmbedder) Close() error {
	return nil
}
