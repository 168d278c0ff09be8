package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report statuses. Reviewed means the report was upheld.
const (
	ReportOpen      = "open"
	ReportReviewed  = "reviewed"
	ReportDismissed = "dismissed"
)

// ContentReport is a user complaint about a content item. Reports are kept
// for audit and never deleted. A reporter has at most one open report per
// content item; the partial unique index enforces it.
type ContentReport struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	ReporterID  string     `gorm:"type:text;not null;index;uniqueIndex:idx_report_open_reporter,where:status = 'open'" json:"reporter_id"`
	ContentType string     `gorm:"type:text;not null;index:idx_report_content;uniqueIndex:idx_report_open_reporter,where:status = 'open'" json:"content_type"`
	ContentID   string     `gorm:"type:text;not null;index:idx_report_content;uniqueIndex:idx_report_open_reporter,where:status = 'open'" json:"content_id"`
	Category    string     `gorm:"type:text;not null" json:"category"`
	Reason      string     `gorm:"type:text" json:"reason,omitempty"`
	Status      string     `gorm:"type:text;not null;default:open;index" json:"status"`
	AdminNotes  string     `gorm:"type:text" json:"admin_notes,omitempty"`
	ReviewedBy  *string    `gorm:"type:text" json:"reviewed_by,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

func (r *ContentReport) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = ReportOpen
	}
	return
}
