package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Content statuses.
const (
	ContentOpen     = "open"
	ContentFlagged  = "flagged"
	ContentRemoved  = "removed"
	ContentApproved = "approved"
)

// IsContentStatus reports whether s is a known content status.
func IsContentStatus(s string) bool {
	switch s {
	case ContentOpen, ContentFlagged, ContentRemoved, ContentApproved:
		return true
	}
	return false
}

// ContentItem annotates an externally owned entity (review, listing, ...)
// with its author and moderation status. The pair (ContentType, ContentID)
// is the key; the entity itself lives elsewhere.
type ContentItem struct {
	ContentType string `gorm:"primaryKey;type:text" json:"content_type"`
	ContentID   string `gorm:"primaryKey;type:text" json:"content_id"`
	AuthorID    string `gorm:"type:text;index" json:"author_id"`
	Status      string `gorm:"type:text;not null;default:open" json:"status"`
	// HasRating marks reviews that carry a structured star rating.
	HasRating bool      `json:"has_rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalysisResult is one immutable output of the content analyzer.
// Results accumulate per content item.
type AnalysisResult struct {
	ID                string             `gorm:"primaryKey" json:"id"`
	ContentType       string             `gorm:"type:text;not null;index:idx_analysis_content" json:"content_type"`
	ContentID         string             `gorm:"type:text;not null;index:idx_analysis_content" json:"content_id"`
	CategoryScores    map[string]float64 `gorm:"type:text;serializer:json" json:"category_scores"`
	Flagged           bool               `json:"flagged"`
	FlaggedCategories pq.StringArray     `gorm:"type:text[]" json:"flagged_categories"`
	Details           map[string]any     `gorm:"type:text;serializer:json" json:"details,omitempty"`
	QualityScore      float64            `json:"quality_score"`
	Analyzer          string             `gorm:"type:text" json:"analyzer"`
	CreatedAt         time.Time          `json:"created_at"`
}

func (a *AnalysisResult) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}

// MaxCategory returns the highest scoring category. Ties go to the
// alphabetically first category so the choice is stable.
func (a *AnalysisResult) MaxCategory() (string, float64) {
	var best string
	var bestScore float64
	for cat, score := range a.CategoryScores {
		if best == "" || score > bestScore || (score == bestScore && cat < best) {
			best, bestScore = cat, score
		}
	}
	return best, bestScore
}
