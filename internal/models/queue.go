package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Queue entry states. RequiresInfo is a variant of pending: the entry stays
// open while the submitter is asked for more data.
const (
	QueuePending      = "pending"
	QueueRequiresInfo = "requires_additional_info"
	QueueResolved     = "resolved"
)

// Where a queue entry came from.
const (
	SourceAutoModeration = "auto_moderation"
	SourceReport         = "report"
	SourceManual         = "manual"
)

// ModerationQueueEntry is a pending human review task.
// At most one unresolved entry exists per content item; the partial unique
// index backs the upsert done by the storage layer.
type ModerationQueueEntry struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	ContentType string     `gorm:"type:text;not null;uniqueIndex:idx_queue_open_content,where:status <> 'resolved'" json:"content_type"`
	ContentID   string     `gorm:"type:text;not null;uniqueIndex:idx_queue_open_content,where:status <> 'resolved'" json:"content_id"`
	Reason      string     `gorm:"type:text;not null" json:"reason"`
	Priority    int        `gorm:"not null;index" json:"priority"`
	AssignedTo  *string    `gorm:"type:text;index" json:"assigned_to,omitempty"`
	Status      string     `gorm:"type:text;not null;default:pending;index" json:"status"`
	Source      string     `gorm:"type:text" json:"source"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy  *string    `gorm:"type:text" json:"resolved_by,omitempty"`
}

// TableName keeps the queue under its domain name.
func (*ModerationQueueEntry) TableName() string {
	return "moderation_queue"
}

func (q *ModerationQueueEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Status == "" {
		q.Status = QueuePending
	}
	return
}

// Open reports whether the entry still awaits a final decision.
func (q *ModerationQueueEntry) Open() bool {
	return q.Status != QueueResolved
}
