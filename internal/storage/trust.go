package storage

import (
	"context"
	"time"

	"familyeats/backend/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

func (s *Service) GetTrustScore(ctx context.Context, userID string) (*models.TrustScore, error) {
	var ts models.TrustScore
	if err := s.db(ctx).Where("user_id = ?", userID).First(&ts).Error; err != nil {
		return nil, notFound(err, "get trust score %s", userID)
	}
	return &ts, nil
}

// SaveTrustScore inserts or replaces the user's trust record.
func (s *Service) SaveTrustScore(ctx context.Context, score *models.TrustScore) error {
	err := s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(score).Error
	if err != nil {
		s.log.Error("failed to save trust score", zap.String("user_id", score.UserID), zap.Error(err))
		return errors.Wrapf(err, "save trust score %s", score.UserID)
	}
	return nil
}

type categoryCount struct {
	Category string
	N        int
}

// TrustHistory gathers the moderation history of a user. Any read failure
// aborts the whole collection so that callers never score partial data.
func (s *Service) TrustHistory(ctx context.Context, userID string, activitySince time.Time) (*models.TrustHistory, error) {
	db := s.db(ctx)
	h := &models.TrustHistory{UpheldAgainst: map[string]int{}}

	user, err := s.GetUser(ctx, userID)
	switch {
	case err == nil:
		h.User = user
	case errors.Is(err, ErrNotFound):
	default:
		return nil, err
	}

	// One upheld content item counts once per category, however many
	// reporters flagged it.
	var upheld []categoryCount
	err = db.Raw(`
		SELECT r.category AS category, COUNT(DISTINCT r.content_type || ':' || r.content_id) AS n
		FROM content_reports r
		JOIN content_items c ON c.content_type = r.content_type AND c.content_id = r.content_id
		WHERE c.author_id = ? AND r.status = ?
		GROUP BY r.category`, userID, models.ReportReviewed).
		Scan(&upheld).Error
	if err != nil {
		return nil, errors.Wrap(err, "count upheld reports")
	}
	for _, row := range upheld {
		h.UpheldAgainst[row.Category] = row.N
	}

	counts := []struct {
		dst   *int
		model any
		where string
		args  []any
	}{
		{&h.ValidReportsFiled, &models.ContentReport{}, "reporter_id = ? AND status = ?", []any{userID, models.ReportReviewed}},
		{&h.DismissedReportsFiled, &models.ContentReport{}, "reporter_id = ? AND status = ?", []any{userID, models.ReportDismissed}},
		{&h.RemovedContentCount, &models.ContentItem{}, "author_id = ? AND status = ?", []any{userID, models.ContentRemoved}},
		{&h.ApprovedContentCount, &models.ContentItem{}, "author_id = ? AND status = ?", []any{userID, models.ContentApproved}},
		{&h.RecentActivity, &models.ContentItem{}, "author_id = ? AND created_at >= ?", []any{userID, activitySince}},
	}
	for _, c := range counts {
		var n int64
		if err := db.Model(c.model).Where(c.where, c.args...).Count(&n).Error; err != nil {
			return nil, errors.Wrap(err, "count trust history")
		}
		*c.dst = int(n)
	}
	return h, nil
}
