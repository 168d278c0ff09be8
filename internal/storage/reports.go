package storage

import (
	"context"
	"time"

	"familyeats/backend/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SaveReport inserts r. A second open report by the same reporter on the
// same content fails with ErrDuplicate.
func (s *Service) SaveReport(ctx context.Context, r *models.ContentReport) error {
	if r.Status == "" {
		r.Status = models.ReportOpen
	}
	if err := s.db(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		s.log.Error("failed to save report",
			zap.String("content_type", r.ContentType), zap.String("content_id", r.ContentID), zap.Error(err))
		return errors.Wrap(err, "save report")
	}
	return nil
}

func (s *Service) GetReport(ctx context.Context, id string) (*models.ContentReport, error) {
	var r models.ContentReport
	if err := s.db(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, notFound(err, "get report %s", id)
	}
	return &r, nil
}

// FindOpenReport returns the reporter's open report on the content, or
// ErrNotFound.
func (s *Service) FindOpenReport(ctx context.Context, reporterID, contentType, contentID string) (*models.ContentReport, error) {
	var r models.ContentReport
	err := s.db(ctx).
		Where("reporter_id = ? AND content_type = ? AND content_id = ? AND status = ?",
			reporterID, contentType, contentID, models.ReportOpen).
		First(&r).Error
	if err != nil {
		return nil, notFound(err, "find open report")
	}
	return &r, nil
}

// ListReports returns reports newest first.
func (s *Service) ListReports(ctx context.Context, f ReportFilter) ([]models.ContentReport, error) {
	q := s.db(ctx).Model(&models.ContentReport{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ContentType != "" {
		q = q.Where("content_type = ?", f.ContentType)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var reports []models.ContentReport
	if err := q.Order("created_at desc, id asc").Find(&reports).Error; err != nil {
		s.log.Error("failed to list reports", zap.Error(err))
		return nil, errors.Wrap(err, "list reports")
	}
	return reports, nil
}

func (s *Service) UpdateReport(ctx context.Context, r *models.ContentReport) error {
	res := s.db(ctx).Model(r).Select("status", "admin_notes", "reviewed_by", "reviewed_at", "updated_at").Updates(r)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update report %s", r.ID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseOpenReports moves every open report on the content to status and
// returns the reporters involved.
func (s *Service) CloseOpenReports(ctx context.Context, contentType, contentID, status, reviewerID string) ([]string, error) {
	db := s.db(ctx)
	var reporters []string
	err := db.Model(&models.ContentReport{}).
		Where("content_type = ? AND content_id = ? AND status = ?", contentType, contentID, models.ReportOpen).
		Distinct().
		Pluck("reporter_id", &reporters).Error
	if err != nil {
		return nil, errors.Wrap(err, "list open reporters")
	}
	if len(reporters) == 0 {
		return nil, nil
	}

	now := time.Now()
	err = db.Model(&models.ContentReport{}).
		Where("content_type = ? AND content_id = ? AND status = ?", contentType, contentID, models.ReportOpen).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": &reviewerID,
			"reviewed_at": &now,
		}).Error
	if err != nil {
		return nil, errors.Wrap(err, "close open reports")
	}
	return reporters, nil
}
