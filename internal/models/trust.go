package models

import "time"

// Account standings derived from the trust score.
const (
	StatusGoodStanding = "good_standing"
	StatusRestricted   = "restricted"
	StatusSuspended    = "suspended"
)

// TrustScore is the per-user reputation record. Only the trust engine
// writes it.
type TrustScore struct {
	UserID           string `gorm:"primaryKey;type:text" json:"user_id"`
	TrustScore       int    `gorm:"not null" json:"trust_score"`
	ReputationPoints int    `gorm:"not null" json:"reputation_points"`
	AccountStatus    string `gorm:"type:text;not null" json:"account_status"`

	// Breakdown, visible to the owner only.
	UpheldReportsAgainst  int       `json:"upheld_reports_against"`
	UpheldSeverity        int       `json:"upheld_severity"`
	ValidReportsFiled     int       `json:"valid_reports_filed"`
	DismissedReportsFiled int       `json:"dismissed_reports_filed"`
	RemovedContentCount   int       `json:"removed_content_count"`
	ApprovedContentCount  int       `json:"approved_content_count"`
	AccountAgeDays        int       `json:"account_age_days"`
	RecentActivity        int       `json:"recent_activity"`
	ComputedAt            time.Time `json:"computed_at"`
}

// TrustScoreSummary is what callers other than the owner may see.
type TrustScoreSummary struct {
	UserID           string `json:"user_id"`
	TrustScore       int    `json:"trust_score"`
	ReputationPoints int    `json:"reputation_points"`
	AccountStatus    string `json:"account_status"`
}

// Summary drops the breakdown.
func (t *TrustScore) Summary() TrustScoreSummary {
	return TrustScoreSummary{
		UserID:           t.UserID,
		TrustScore:       t.TrustScore,
		ReputationPoints: t.ReputationPoints,
		AccountStatus:    t.AccountStatus,
	}
}

// TrustHistory is the raw material a trust score is computed from.
type TrustHistory struct {
	User *User
	// UpheldAgainst maps report category -> upheld reports on the user's content.
	UpheldAgainst         map[string]int
	ValidReportsFiled     int
	DismissedReportsFiled int
	RemovedContentCount   int
	ApprovedContentCount  int
	RecentActivity        int
}

// ModerationEvent is broadcast to reviewers and alerting after state changes.
type ModerationEvent struct {
	Type        string    `json:"type"`
	ContentType string    `json:"content_type,omitempty"`
	ContentID   string    `json:"content_id,omitempty"`
	QueueID     string    `json:"queue_id,omitempty"`
	ReportID    string    `json:"report_id,omitempty"`
	Priority    int       `json:"priority,omitempty"`
	Action      string    `json:"action,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	At          time.Time `json:"at"`
}

// Event types.
const (
	EventQueueEnqueued    = "queue.enqueued"
	EventQueueResolved    = "queue.resolved"
	EventQueueInfoRequest = "queue.info_requested"
	EventQueueAssigned    = "queue.assigned"
	EventContentRemoved   = "content.auto_removed"
	EventReportCreated    = "report.created"
	EventReportUpdated    = "report.updated"
	EventTrustRecomputed  = "trust.recomputed"
)
