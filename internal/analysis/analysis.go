// Package analysis scores user content: category severities for the
// auto-moderation policy and a heuristic quality score.
package analysis

import (
	"context"
	"strings"

	"familyeats/backend/internal/apperr"
)

// Categories produced by the analyzers.
const (
	CategoryToxicity   = "toxicity"
	CategoryProfanity  = "profanity"
	CategoryHarassment = "harassment"
	CategoryHateSpeech = "hate_speech"
	CategoryViolence   = "violence"
	CategorySexual     = "sexual"
	CategorySpam       = "spam"
)

// Result is the output of one analyzer run.
type Result struct {
	// CategoryScores maps category -> severity in [0,1].
	CategoryScores map[string]float64
	Details        map[string]any
	Analyzer       string
}

// Analyzer scores content. Implementations must not retry; a failure is
// reported to the caller as is.
type Analyzer interface {
	Analyze(ctx context.Context, content, contentType, contentID string) (*Result, error)
	Name() string
}

// Input is the request every analyzer validates the same way.
type Input struct {
	Content     string
	ContentType string
	ContentID   string
}

// Validate checks the analyzer preconditions.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return apperr.Required("content")
	}
	if in.ContentType == "" {
		return apperr.Required("content_type")
	}
	if in.ContentID == "" {
		return apperr.Required("content_id")
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
