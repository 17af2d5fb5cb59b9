package models

import "fmt"

// AskRequest represents a question about a single video.
type AskRequest struct {
	Question string `json:"question"`
	// K is the number of frame descriptions to retrieve as evidence.
	// Zero selects the configured default.
	K int `json:"k,omitempty"`
}

// Validate ensures the request has a question and clamps K into [minK, maxK].
// A zero K takes defaultK.
func (r *AskRequest) Validate(defaultK, minK, maxK int) error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.K == 0 {
		r.K = defaultK
	}
	if r.K < minK {
		r.K = minK
	}
	if r.K > maxK {
		r.K = maxK
	}
	return nil
}
