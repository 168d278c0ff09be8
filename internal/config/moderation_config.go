package config

import "time"

const (
	// Auto-moderation thresholds (category severity 0..1)
	DefaultFlagThreshold   = 0.5
	DefaultRemoveThreshold = 0.9

	// Trust weighting of the flag threshold
	HighTrustScore       = 80
	HighTrustLeniency    = 0.1
	RestrictedStrictness = 0.1
	SuspendedStrictness  = 0.2
	MinFlagThreshold     = 0.05
	FlagRemoveMinimumGap = 0.01

	// Queue
	MinPriority        = 1
	MaxPriority        = 5
	DefaultPriority    = 3
	DefaultQueueLimit  = 50
	MaxQueueLimit      = 200
	DefaultReportLimit = 50

	// Trust score
	InitialTrustScore      = 50
	MaxTrustScore          = 100
	MinTrustScore          = 0
	ValidReportReward      = 2
	MaxValidReportBonus    = 20
	DismissedReportPenalty = 1
	MaxDismissedPenalty    = 10
	RemovedContentPenalty  = 8
	AccountAgeBonusPeriod  = 30 // days per point
	MaxAccountAgeBonus     = 10
	ActivityBonusPer       = 5 // items per point
	MaxActivityBonus       = 5
	RecentActivityWindow   = 30 * 24 * time.Hour
	SuspendedBelow         = 20
	RestrictedBelow        = 40
	ValidReportReputation  = 10
	ApprovedContentRep     = 2
	UpheldReportRepPenalty = 5

	// Report intake
	DefaultReportRateLimit  = 20
	DefaultReportRateWindow = time.Hour
)

// Report categories accepted by the intake.
const (
	CategorySpam           = "spam"
	CategoryInappropriate  = "inappropriate"
	CategoryHarassment     = "harassment"
	CategoryHateSpeech     = "hate_speech"
	CategoryMisinformation = "misinformation"
	CategoryOffTopic       = "off_topic"
	CategoryOther          = "other"
)

// ReportCategorySeverity is the trust penalty applied per upheld report.
var ReportCategorySeverity = map[string]int{
	CategorySpam:           5,
	CategoryOffTopic:       2,
	CategoryInappropriate:  10,
	CategoryMisinformation: 10,
	CategoryHarassment:     20,
	CategoryHateSpeech:     25,
	CategoryOther:          5,
}

// ReportCategoryPriority is the queue priority a fresh report enqueues with.
var ReportCategoryPriority = map[string]int{
	CategoryHateSpeech:     2,
	CategoryHarassment:     2,
	CategoryInappropriate:  3,
	CategoryMisinformation: 3,
	CategorySpam:           4,
	CategoryOther:          4,
	CategoryOffTopic:       5,
}

// ContentTypes that can be registered for moderation.
var ContentTypes = []string{"review", "restaurant", "menu_item", "photo", "comment"}
