package moderation_test

import (
	"testing"

	"familyeats/backend/internal/models"
	"familyeats/backend/internal/moderation"

	"github.com/stretchr/testify/assert"
)

func analysisOf(scores map[string]float64) *models.AnalysisResult {
	return &models.AnalysisResult{CategoryScores: scores}
}

func TestPolicy_Decide(t *testing.T) {
	p := moderation.NewPolicy(moderation.DefaultThresholds())

	tests := []struct {
		name         string
		scores       map[string]float64
		wantAction   string
		wantCategory string
		wantPriority int
	}{
		{"clean", map[string]float64{"toxicity": 0.1, "spam": 0.2}, moderation.ActionApprove, "spam", 0},
		{"no scores", map[string]float64{}, moderation.ActionApprove, "", 0},
		{"at flag threshold", map[string]float64{"toxicity": 0.5}, moderation.ActionFlag, "toxicity", 5},
		{"flagged", map[string]float64{"toxicity": 0.6}, moderation.ActionFlag, "toxicity", 4},
		{"urgent", map[string]float64{"toxicity": 0.89}, moderation.ActionFlag, "toxicity", 1},
		{"at remove threshold", map[string]float64{"toxicity": 0.9}, moderation.ActionAutoRemove, "toxicity", 0},
		{"removed", map[string]float64{"toxicity": 0.95, "spam": 0.6}, moderation.ActionAutoRemove, "toxicity", 0},
		{"tie goes to first name", map[string]float64{"violence": 0.7, "harassment": 0.7}, moderation.ActionFlag, "harassment", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(analysisOf(tt.scores), nil)
			assert.Equal(t, tt.wantAction, d.Action)
			assert.Equal(t, tt.wantCategory, d.Category)
			assert.Equal(t, tt.wantPriority, d.Priority)
		})
	}
}

func TestPolicy_PriorityIsMonotonic(t *testing.T) {
	p := moderation.NewPolicy(moderation.DefaultThresholds())
	prev := 6
	for s := 0.5; s < 0.9; s += 0.01 {
		d := p.Decide(analysisOf(map[string]float64{"toxicity": s}), nil)
		assert.LessOrEqual(t, d.Priority, prev, "score %.2f", s)
		assert.GreaterOrEqual(t, d.Priority, 1)
		prev = d.Priority
	}
}

func TestPolicy_TrustWeighting(t *testing.T) {
	p := moderation.NewPolicy(moderation.DefaultThresholds())
	scores := map[string]float64{"toxicity": 0.55}

	trusted := &models.TrustScore{TrustScore: 85, AccountStatus: models.StatusGoodStanding}
	restricted := &models.TrustScore{TrustScore: 30, AccountStatus: models.StatusRestricted}
	suspended := &models.TrustScore{TrustScore: 5, AccountStatus: models.StatusSuspended}

	assert.Equal(t, moderation.ActionFlag, p.Decide(analysisOf(scores), nil).Action)
	assert.Equal(t, moderation.ActionApprove, p.Decide(analysisOf(scores), trusted).Action)
	assert.Equal(t, moderation.ActionFlag, p.Decide(analysisOf(map[string]float64{"toxicity": 0.42}), restricted).Action)
	assert.Equal(t, moderation.ActionApprove, p.Decide(analysisOf(map[string]float64{"toxicity": 0.42}), nil).Action)
	assert.Equal(t, moderation.ActionFlag, p.Decide(analysisOf(map[string]float64{"toxicity": 0.31}), suspended).Action)

	// removal never depends on trust
	assert.Equal(t, moderation.ActionAutoRemove, p.Decide(analysisOf(map[string]float64{"toxicity": 0.9}), trusted).Action)
	assert.Equal(t, moderation.ActionFlag, p.Decide(analysisOf(map[string]float64{"toxicity": 0.89}), suspended).Action)
}

func TestPolicy_FlagThresholdBounds(t *testing.T) {
	trusted := &models.TrustScore{TrustScore: 95, AccountStatus: models.StatusGoodStanding}
	suspended := &models.TrustScore{AccountStatus: models.StatusSuspended}

	p := moderation.NewPolicy(moderation.Thresholds{Flag: 0.85, Remove: 0.9})
	assert.InDelta(t, 0.89, p.FlagThreshold(trusted), 1e-9)

	p = moderation.NewPolicy(moderation.Thresholds{Flag: 0.1, Remove: 0.9})
	assert.InDelta(t, 0.05, p.FlagThreshold(suspended), 1e-9)
}

func TestFlaggedCategories(t *testing.T) {
	got := moderation.FlaggedCategories(map[string]float64{"toxicity": 0.7, "spam": 0.5, "violence": 0.49}, 0.5)
	assert.Equal(t, []string{"spam", "toxicity"}, got)
	assert.Empty(t, moderation.FlaggedCategories(map[string]float64{"spam": 0.1}, 0.5))
}
