package models_test

import (
	"reflect"
	"testing"
	"time"

	"familyeats/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID and default role.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	user := &models.User{}

	assert.Empty(t, user.ID, "User ID should be empty before BeforeCreate")

	err := user.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
	assert.Equal(t, models.RoleMember, user.Role)
}

// TestUserBeforeCreate_PreservesExisting verifies that the hook doesn't overwrite an existing ID or role.
func TestUserBeforeCreate_PreservesExisting(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Role: models.RoleAdmin}

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, user.ID)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestUserAccountAgeDays(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"nil user", nil, 0},
		{"zero created at", &models.User{}, 0},
		{"created in the future", &models.User{CreatedAt: now.Add(time.Hour)}, 0},
		{"less than a day", &models.User{CreatedAt: now.Add(-23 * time.Hour)}, 0},
		{"ninety days", &models.User{CreatedAt: now.Add(-90 * 24 * time.Hour)}, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.AccountAgeDays(now))
		})
	}
}

// TestBeforeCreate_Hooks checks every append-only record gets an id on insert.
func TestBeforeCreate_Hooks(t *testing.T) {
	a := &models.AnalysisResult{}
	q := &models.ModerationQueueEntry{}
	d := &models.ModerationDecision{}
	r := &models.ContentReport{}

	assert.NoError(t, a.BeforeCreate(nil))
	assert.NoError(t, q.BeforeCreate(nil))
	assert.NoError(t, d.BeforeCreate(nil))
	assert.NoError(t, r.BeforeCreate(nil))

	for _, id := range []string{a.ID, q.ID, d.ID, r.ID} {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
	assert.Equal(t, models.QueuePending, q.Status)
	assert.Equal(t, models.ReportOpen, r.Status)
	assert.True(t, q.Open())
}

// TestStructTags guards the tags the storage layer depends on.
func TestStructTags(t *testing.T) {
	queueType := reflect.TypeOf(models.ModerationQueueEntry{})
	for _, name := range []string{"ContentType", "ContentID"} {
		f, ok := queueType.FieldByName(name)
		assert.True(t, ok)
		assert.Contains(t, f.Tag.Get("gorm"), "uniqueIndex:idx_queue_open_content", "%s must be part of the open-entry index", name)
		assert.Contains(t, f.Tag.Get("gorm"), "where:status <> 'resolved'")
	}

	contentType := reflect.TypeOf(models.ContentItem{})
	for _, name := range []string{"ContentType", "ContentID"} {
		f, _ := contentType.FieldByName(name)
		assert.Contains(t, f.Tag.Get("gorm"), "primaryKey")
	}

	analysisType := reflect.TypeOf(models.AnalysisResult{})
	flagged, _ := analysisType.FieldByName("FlaggedCategories")
	assert.Contains(t, flagged.Tag.Get("gorm"), "type:text[]")
	scores, _ := analysisType.FieldByName("CategoryScores")
	assert.Contains(t, scores.Tag.Get("gorm"), "serializer:json")
}

func TestAnalysisResult_MaxCategory(t *testing.T) {
	a := &models.AnalysisResult{CategoryScores: map[string]float64{
		"toxicity":  0.6,
		"spam":      0.6,
		"profanity": 0.2,
	}}

	cat, score := a.MaxCategory()

	assert.Equal(t, "spam", cat, "ties resolve alphabetically")
	assert.Equal(t, 0.6, score)

	empty := &models.AnalysisResult{}
	cat, score = empty.MaxCategory()
	assert.Empty(t, cat)
	assert.Zero(t, score)
}

func TestTrustScore_Summary(t *testing.T) {
	ts := &models.TrustScore{
		UserID:               "u1",
		TrustScore:           72,
		ReputationPoints:     40,
		AccountStatus:        models.StatusGoodStanding,
		UpheldReportsAgainst: 3,
	}

	s := ts.Summary()

	assert.Equal(t, models.TrustScoreSummary{
		UserID:           "u1",
		TrustScore:       72,
		ReputationPoints: 40,
		AccountStatus:    models.StatusGoodStanding,
	}, s)
	assert.Equal(t, 4, reflect.TypeOf(s).NumField())
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, models.IsContentStatus(models.ContentRemoved))
	assert.False(t, models.IsContentStatus("deleted"))
	assert.True(t, models.IsVerdict(models.VerdictRequestMoreInfo))
	assert.False(t, models.IsVerdict("escalate"))
}
