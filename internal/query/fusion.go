// Package query answers questions about ingested videos via retrieval and a
// grounded language model.
package query

import (
	"sort"

	"github.com/hyperjump/miteru/internal/keyword"
	"github.com/hyperjump/miteru/internal/vector"
)

// FusedResult holds an entry ID and fused keyword/semantic scores.
type FusedResult struct {
	EntryID       string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []keyword.Result) map[string]float64 {
	normalized := make(map[string]float64)
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// NormalizeSemanticScores maps cosine scores from [-1,1] into [0,1] so they
// fuse on the same scale as normalized keyword scores.
func NormalizeSemanticScores(results []vector.Result) map[string]float64 {
	normalized := make(map[string]float64)
	for _, r := range results {
		normalized[r.Entry.ID] = (r.Score + 1) / 2
	}
	return normalized
}

// Fuse merges keyword and semantic score maps with weights and returns sorted FusedResults.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult)
	for id, score := range keywordScores {
		scoreMap[id] = &FusedResult{
			EntryID:      id,
			KeywordScore: score,
		}
	}
	for id, score := range semanticScores {
		if result, exists := scoreMap[id]; exists {
			result.SemanticScore = score
		} else {
			scoreMap[id] = &FusedResult{
				EntryID:       id,
				SemanticScore: score,
			}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = (keywordWeight * result.KeywordScore) + (semanticWeight * result.SemanticScore)
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}
