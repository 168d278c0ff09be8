// Package moderation turns analyzer scores into actions and runs the human
// review queue: enqueueing, listing, assignment and resolution.
package moderation

import (
	"math"
	"sort"

	"familyeats/backend/internal/config"
	"familyeats/backend/internal/models"
)

// Auto-moderation actions.
const (
	ActionApprove    = "approve"
	ActionFlag       = "flag_for_review"
	ActionAutoRemove = "auto_remove"
)

// Thresholds are the category score cut-offs of the policy.
type Thresholds struct {
	Flag   float64
	Remove float64
}

// DefaultThresholds returns the built-in cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{Flag: config.DefaultFlagThreshold, Remove: config.DefaultRemoveThreshold}
}

// Decision is the policy outcome for one analysis.
type Decision struct {
	Action   string
	Category string
	Score    float64
	// Priority is set for flagged content only.
	Priority int
	// FlagThreshold is the trust-adjusted threshold that was applied.
	FlagThreshold float64
}

// Policy maps analysis scores to a moderation action.
type Policy struct {
	t Thresholds
}

func NewPolicy(t Thresholds) *Policy {
	return &Policy{t: t}
}

// Decide picks the action for the most severe category of the analysis.
// author may be nil when no trust score is known.
func (p *Policy) Decide(result *models.AnalysisResult, author *models.TrustScore) Decision {
	category, score := result.MaxCategory()
	flag := p.FlagThreshold(author)
	d := Decision{Action: ActionApprove, Category: category, Score: score, FlagThreshold: flag}

	switch {
	case score >= p.t.Remove:
		d.Action = ActionAutoRemove
	case score >= flag:
		d.Action = ActionFlag
		d.Priority = p.priority(score, flag)
	}
	return d
}

// FlagThreshold shifts the flag cut-off by the author's standing. The remove
// cut-off never moves.
func (p *Policy) FlagThreshold(author *models.TrustScore) float64 {
	flag := p.t.Flag
	if author != nil {
		switch {
		case author.AccountStatus == models.StatusSuspended:
			flag -= config.SuspendedStrictness
		case author.AccountStatus == models.StatusRestricted:
			flag -= config.RestrictedStrictness
		case author.TrustScore >= config.HighTrustScore:
			flag += config.HighTrustLeniency
		}
	}
	return math.Max(config.MinFlagThreshold, math.Min(flag, p.t.Remove-config.FlagRemoveMinimumGap))
}

// FlaggedCategories lists the categories at or above the threshold, sorted.
func FlaggedCategories(scores map[string]float64, threshold float64) []string {
	var out []string
	for c, s := range scores {
		if s >= threshold {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// priority is 5 just above the flag threshold and 1 just below removal.
func (p *Policy) priority(score, flag float64) int {
	span := p.t.Remove - flag
	if span <= 0 {
		return config.MinPriority
	}
	prio := config.MaxPriority - int(math.Floor(float64(config.MaxPriority)*(score-flag)/span))
	return clampPriority(prio)
}

func clampPriority(p int) int {
	return max(config.MinPriority, min(config.MaxPriority, p))
}
