package models

// Evidence is a single retrieved frame description supporting an answer.
type Evidence struct {
	FrameIndex   int     `json:"frame_index"`
	Timestamp    float64 `json:"timestamp_seconds"`
	TimestampStr string  `json:"timestamp"`
	Caption      string  `json:"caption"`
	// Score is the fused relevance score used for ranking.
	Score         float64 `json:"score"`
	KeywordScore  float64 `json:"keyword_score,omitempty"`
	SemanticScore float64 `json:"semantic_score"`
}

// Answer is the response for an ask request.
type Answer struct {
	VideoID  string     `json:"video_id"`
	Question string     `json:"question"`
	Text     string     `json:"answer"`
	Evidence []Evidence `json:"evidence"`
	// NoEvidence indicates retrieval found no frames for this video, so no
	// model call was made and Text is a fixed fallback message.
	NoEvidence bool  `json:"no_evidence,omitempty"`
	QueryTime  int64 `json:"query_time_ms"`
}
