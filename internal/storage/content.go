package storage

import (
	"context"

	"familyeats/backend/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// UpsertContentItem registers a content item. On conflict only the author
// and the rating flag are refreshed; the moderation status is kept.
func (s *Service) UpsertContentItem(ctx context.Context, item *models.ContentItem) error {
	if item.Status == "" {
		item.Status = models.ContentOpen
	}
	assign := []string{"updated_at"}
	if item.AuthorID != "" {
		assign = append(assign, "author_id")
	}
	if item.HasRating {
		assign = append(assign, "has_rating")
	}
	err := s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_type"}, {Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Create(item).Error
	if err != nil {
		s.log.Error("failed to upsert content item",
			zap.String("content_type", item.ContentType), zap.String("content_id", item.ContentID), zap.Error(err))
		return errors.Wrap(err, "upsert content item")
	}
	return nil
}

func (s *Service) GetContentItem(ctx context.Context, contentType, contentID string) (*models.ContentItem, error) {
	var item models.ContentItem
	err := s.db(ctx).Where("content_type = ? AND content_id = ?", contentType, contentID).First(&item).Error
	if err != nil {
		return nil, notFound(err, "get content %s/%s", contentType, contentID)
	}
	return &item, nil
}

func (s *Service) SetContentStatus(ctx context.Context, contentType, contentID, status string) error {
	res := s.db(ctx).Model(&models.ContentItem{}).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Update("status", status)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "set content %s/%s status", contentType, contentID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) SaveAnalysisResult(ctx context.Context, result *models.AnalysisResult) error {
	if err := s.db(ctx).Create(result).Error; err != nil {
		s.log.Error("failed to save analysis result", zap.String("content_id", result.ContentID), zap.Error(err))
		return errors.Wrap(err, "save analysis result")
	}
	return nil
}

// ListAnalysisResults returns the analysis history of a content item, oldest first.
func (s *Service) ListAnalysisResults(ctx context.Context, contentType, contentID string) ([]models.AnalysisResult, error) {
	var results []models.AnalysisResult
	err := s.db(ctx).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Order("created_at asc, id asc").
		Find(&results).Error
	if err != nil {
		return nil, errors.Wrap(err, "list analysis results")
	}
	return results, nil
}
