package trust

import (
	"time"

	"familyeats/backend/internal/config"
	"familyeats/backend/internal/models"
)

// Compute derives a trust score from history. It is a pure function.
func Compute(userID string, h *models.TrustHistory, now time.Time) *models.TrustScore {
	upheldCount, severity := 0, 0
	for category, n := range h.UpheldAgainst {
		upheldCount += n
		severity += n * config.ReportCategorySeverity[category]
	}
	ageDays := h.User.AccountAgeDays(now)

	score := config.InitialTrustScore +
		min(config.ValidReportReward*h.ValidReportsFiled, config.MaxValidReportBonus) -
		min(config.DismissedReportPenalty*h.DismissedReportsFiled, config.MaxDismissedPenalty) -
		severity -
		config.RemovedContentPenalty*h.RemovedContentCount +
		min(ageDays/config.AccountAgeBonusPeriod, config.MaxAccountAgeBonus) +
		min(h.RecentActivity/config.ActivityBonusPer, config.MaxActivityBonus)
	score = max(config.MinTrustScore, min(config.MaxTrustScore, score))

	reputation := config.ValidReportReputation*h.ValidReportsFiled +
		config.ApprovedContentRep*h.ApprovedContentCount -
		config.UpheldReportRepPenalty*upheldCount
	reputation = max(0, reputation)

	return &models.TrustScore{
		UserID:                userID,
		TrustScore:            score,
		ReputationPoints:      reputation,
		AccountStatus:         StatusFor(score),
		UpheldReportsAgainst:  upheldCount,
		UpheldSeverity:        severity,
		ValidReportsFiled:     h.ValidReportsFiled,
		DismissedReportsFiled: h.DismissedReportsFiled,
		RemovedContentCount:   h.RemovedContentCount,
		ApprovedContentCount:  h.ApprovedContentCount,
		AccountAgeDays:        ageDays,
		RecentActivity:        h.RecentActivity,
		ComputedAt:            now,
	}
}

// StatusFor maps a score onto an account standing.
func StatusFor(score int) string {
	switch {
	case score < config.SuspendedBelow:
		return models.StatusSuspended
	case score < config.RestrictedBelow:
		return models.StatusRestricted
	default:
		return models.StatusGoodStanding
	}
}
