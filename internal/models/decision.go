package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reviewer verdicts.
const (
	VerdictApprove         = "approve"
	VerdictReject          = "reject"
	VerdictRemove          = "remove"
	VerdictRequestMoreInfo = "request_more_info"
)

// SystemReviewer is the reviewer recorded when the auto-moderation policy
// settles a queue entry itself.
const SystemReviewer = "auto-moderation"

// IsVerdict reports whether v is a known verdict.
func IsVerdict(v string) bool {
	switch v {
	case VerdictApprove, VerdictReject, VerdictRemove, VerdictRequestMoreInfo:
		return true
	}
	return false
}

// ModerationDecision is the audit record of a reviewer acting on a queue
// entry. Rows are only ever inserted.
type ModerationDecision struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	QueueID     string    `gorm:"type:text;not null;index" json:"queue_id"`
	ContentType string    `gorm:"type:text;not null;index:idx_decision_content" json:"content_type"`
	ContentID   string    `gorm:"type:text;not null;index:idx_decision_content" json:"content_id"`
	ReviewerID  string    `gorm:"type:text;not null;index" json:"reviewer_id"`
	Verdict     string    `gorm:"type:text;not null" json:"verdict"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
	ActionTaken string    `gorm:"type:text" json:"action_taken,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (d *ModerationDecision) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return
}
