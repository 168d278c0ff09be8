package analysis

import (
	"strings"
	"unicode"
)

// Meta is the stored metadata of a content item the scorer may use.
type Meta struct {
	HasRating bool
}

// QualityScorer rates how useful a piece of content is, independent of
// policy violations. The score is a pure function of its inputs.
type QualityScorer struct{}

func NewQualityScorer() *QualityScorer { return &QualityScorer{} }

// Score returns a quality rating in [0,1].
func (QualityScorer) Score(contentType, content string, meta Meta) float64 {
	words := strings.Fields(content)
	n := len(words)

	var score float64
	switch {
	case n < 3:
		score = 0.1
	case n < 10:
		score = 0.4
	case n <= 300:
		score = 1.0
	case n <= 800:
		score = 0.8
	default:
		score = 0.6
	}

	if n >= 10 && sentenceCount(content) == 0 {
		score -= 0.1
	}
	if upperRatio(content) > 0.6 {
		score -= 0.2
	}
	runs := repeatedRuns(content, 4)
	if runs > 3 {
		runs = 3
	}
	score -= 0.1 * float64(runs)
	if n > 0 && float64(strings.Count(content, "!"))/float64(n) > 0.2 {
		score -= 0.1
	}

	if contentType == "review" {
		if meta.HasRating {
			score += 0.1
		} else {
			score -= 0.05
		}
	}
	return clamp01(score)
}

func sentenceCount(s string) int {
	count := 0
	prevTerminator := false
	for _, r := range s {
		isTerm := r == '.' || r == '!' || r == '?'
		if isTerm && !prevTerminator {
			count++
		}
		prevTerminator = isTerm
	}
	return count
}

// repeatedRuns counts runs of at least minLen identical letters ("sooooo").
func repeatedRuns(s string, minLen int) int {
	runs := 0
	var prev rune
	length := 0
	for _, r := range strings.ToLower(s) {
		if r == prev && unicode.IsLetter(r) {
			length++
			if length == minLen {
				runs++
			}
			continue
		}
		prev = r
		length = 1
	}
	return runs
}
