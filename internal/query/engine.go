package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/miteru/internal/config"
	"github.com/hyperjump/miteru/internal/embedding"
	"github.com/hyperjump/miteru/internal/generate"
	"github.com/hyperjump/miteru/internal/keyword"
	"github.com/hyperjump/miteru/internal/models"
	"github.com/hyperjump/miteru/internal/vector"
	"github.com/hyperjump/miteru/pkg/utils"
)

// NoEvidenceAnswer is returned when retrieval finds no frames for a video.
// The language model is not consulted in that case.
const NoEvidenceAnswer = "No relevant frames were found for this question."

// Engine answers questions about a video by retrieving frame captions and
// handing them to a grounded generator.
type Engine struct {
	embedder  embedding.Embedder
	index     vector.Index
	keywords  keyword.Index
	generator generate.Generator
	cfg       *config.Config
	logger    *zap.Logger
}

// NewEngine creates a query engine. keywords may be nil; retrieval is then
// purely semantic regardless of the configured keyword weight.
func NewEngine(embedder embedding.Embedder, index vector.Index, keywords keyword.Index,
	generator generate.Generator, cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{
		embedder:  embedder,
		index:     index,
		keywords:  keywords,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ask retrieves the most relevant frame descriptions for the question and
// generates an answer from them. When the generator is unreachable, the
// retrieved evidence is still returned along with the error.
func (e *Engine) Ask(ctx context.Context, videoID string, req *models.AskRequest) (*models.Answer, error) {
	start := time.Now()
	r := e.cfg.Retrieval
	if err := req.Validate(r.DefaultK, r.MinK, r.MaxK); err != nil {
		return nil, err
	}

	queryEmb, err := e.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	evidence, err := e.retrieve(ctx, videoID, req.Question, queryEmb, req.K)
	if err != nil {
		return nil, err
	}

	answer := &models.Answer{
		VideoID:  videoID,
		Question: req.Question,
		Evidence: evidence,
	}
	if len(evidence) == 0 {
		answer.NoEvidence = true
		answer.Text = NoEvidenceAnswer
		answer.QueryTime = time.Since(start).Milliseconds()
		return answer, nil
	}

	text, err := e.generator.Answer(ctx, req.Question, evidence)
	answer.QueryTime = time.Since(start).Milliseconds()
	if err != nil {
		if errors.Is(err, generate.ErrUnavailable) {
			// Evidence is still useful without the synthesized answer.
			return answer, err
		}
		return nil, err
	}
	answer.Text = text

	e.logger.Debug("question answered",
		zap.String("video_id", videoID),
		zap.Int("evidence", len(evidence)),
		zap.Int64("query_time_ms", answer.QueryTime))
	return answer, nil
}

// retrieve returns the top-k evidence for the question, fusing keyword hits
// when hybrid retrieval is enabled.
func (e *Engine) retrieve(ctx context.Context, videoID, question string, queryEmb []float32, k int) ([]models.Evidence, error) {
	hybrid := e.keywords != nil && e.cfg.Retrieval.KeywordWeight > 0

	candidates := k
	if hybrid {
		candidates = e.cfg.Retrieval.TopKCandidates
	}
	semantic, err := e.index.Search(ctx, videoID, queryEmb, candidates)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if !hybrid {
		evidence := make([]models.Evidence, 0, len(semantic))
		for _, r := range semantic {
			evidence = append(evidence, evidenceFrom(r.Entry, r.Score, 0, r.Score))
		}
		if len(evidence) > k {
			evidence = evidence[:k]
		}
		return evidence, nil
	}

	kwResults, err := e.keywords.Search(ctx, videoID, question, e.cfg.Retrieval.TopKCandidates)
	if err != nil {
		e.logger.Warn("keyword search failed, using semantic only", zap.Error(err))
		kwResults = nil
	}

	byID := make(map[string]vector.Entry, len(semantic))
	rawScores := make(map[string]float64, len(semantic))
	for _, r := range semantic {
		byID[r.Entry.ID] = r.Entry
		rawScores[r.Entry.ID] = r.Score
	}

	fused := Fuse(NormalizeKeywordScores(kwResults), NormalizeSemanticScores(semantic),
		e.cfg.Retrieval.KeywordWeight, e.cfg.Retrieval.SemanticWeight)

	evidence := make([]models.Evidence, 0, k)
	for _, f := range fused {
		if len(evidence) == k {
			break
		}
		entry, ok := byID[f.EntryID]
		if !ok {
			// Keyword-only hit: fetch the entry for its caption and timestamp.
			got, err := e.index.Get(ctx, f.EntryID)
			if err != nil || got == nil {
				continue
			}
			entry = *got
		}
		evidence = append(evidence, evidenceFrom(entry, f.Score, f.KeywordScore, rawScores[f.EntryID]))
	}
	return evidence, nil
}

func evidenceFrom(entry vector.Entry, score, keywordScore, semanticScore float64) models.Evidence {
	return models.Evidence{
		FrameIndex:    entry.FrameIndex,
		Timestamp:     entry.Timestamp,
		TimestampStr:  utils.FormatTimestamp(entry.Timestamp),
		Caption:       entry.Caption,
		Score:         score,
		KeywordScore:  keywordScore,
		SemanticScore: semanticScore,
	}
}
