package storage

import (
	"context"
	"strings"
	"time"

	"familyeats/backend/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnqueueOrMerge inserts entry unless the content already has an unresolved
// queue entry. In that case the existing entry keeps the more urgent
// priority and gains the new reason. The bool reports whether a new row was
// created.
func (s *Service) EnqueueOrMerge(ctx context.Context, entry *models.ModerationQueueEntry) (*models.ModerationQueueEntry, bool, error) {
	var (
		result  *models.ModerationQueueEntry
		created bool
		err     error
	)
	// A concurrent insert can win the partial unique index; the second
	// attempt then finds and merges into that row.
	for attempt := 0; attempt < 2; attempt++ {
		err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.ModerationQueueEntry
			findErr := tx.Where("content_type = ? AND content_id = ? AND status <> ?",
				entry.ContentType, entry.ContentID, models.QueueResolved).
				First(&existing).Error

			switch {
			case findErr == nil:
				updates := map[string]any{}
				if entry.Priority < existing.Priority {
					updates["priority"] = entry.Priority
					existing.Priority = entry.Priority
				}
				if entry.Reason != "" && !strings.Contains(existing.Reason, entry.Reason) {
					existing.Reason = existing.Reason + "; " + entry.Reason
					updates["reason"] = existing.Reason
				}
				if len(updates) > 0 {
					if err := tx.Model(&existing).Updates(updates).Error; err != nil {
						return err
					}
				}
				result, created = &existing, false
				return nil
			case errors.Is(findErr, gorm.ErrRecordNotFound):
				if err := tx.Create(entry).Error; err != nil {
					return err
				}
				result, created = entry, true
				return nil
			default:
				return findErr
			}
		})
		if err == nil {
			return result, created, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		entry.ID = ""
	}
	s.log.Error("failed to enqueue content",
		zap.String("content_type", entry.ContentType), zap.String("content_id", entry.ContentID), zap.Error(err))
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, ErrDuplicate
	}
	return nil, false, errors.Wrap(err, "enqueue content")
}

func (s *Service) GetQueueEntry(ctx context.Context, id string) (*models.ModerationQueueEntry, error) {
	var entry models.ModerationQueueEntry
	if err := s.db(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, notFound(err, "get queue entry %s", id)
	}
	return &entry, nil
}

// OpenQueueEntry returns the unresolved entry of the content, or ErrNotFound.
func (s *Service) OpenQueueEntry(ctx context.Context, contentType, contentID string) (*models.ModerationQueueEntry, error) {
	var entry models.ModerationQueueEntry
	err := s.db(ctx).
		Where("content_type = ? AND content_id = ? AND status <> ?", contentType, contentID, models.QueueResolved).
		First(&entry).Error
	if err != nil {
		return nil, notFound(err, "get open queue entry %s/%s", contentType, contentID)
	}
	return &entry, nil
}

// ListQueue returns unresolved entries, most urgent first. Within a
// priority, older entries come first; id breaks exact ties.
func (s *Service) ListQueue(ctx context.Context, f QueueFilter) ([]models.ModerationQueueEntry, error) {
	q := s.db(ctx).Where("status <> ?", models.QueueResolved)
	if f.Priority > 0 {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var entries []models.ModerationQueueEntry
	if err := q.Order("priority asc, created_at asc, id asc").Find(&entries).Error; err != nil {
		s.log.Error("failed to list queue", zap.Error(err))
		return nil, errors.Wrap(err, "list queue")
	}
	return entries, nil
}

// TransitionQueueEntry moves an unresolved entry to status. The update is
// conditional on the entry not being resolved yet, so of two concurrent
// resolutions exactly one succeeds and the other gets ErrAlreadyResolved.
func (s *Service) TransitionQueueEntry(ctx context.Context, id, status, actor string) error {
	updates := map[string]any{"status": status}
	if status == models.QueueResolved {
		now := time.Now()
		updates["resolved_at"] = &now
		updates["resolved_by"] = &actor
	}
	return s.updateOpenEntry(ctx, id, updates)
}

func (s *Service) AssignQueueEntry(ctx context.Context, id, reviewerID string) error {
	var assignee *string
	if reviewerID != "" {
		assignee = &reviewerID
	}
	return s.updateOpenEntry(ctx, id, map[string]any{"assigned_to": assignee})
}

func (s *Service) updateOpenEntry(ctx context.Context, id string, updates map[string]any) error {
	db := s.db(ctx)
	res := db.Model(&models.ModerationQueueEntry{}).
		Where("id = ? AND status <> ?", id, models.QueueResolved).
		Updates(updates)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update queue entry %s", id)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := db.Model(&models.ModerationQueueEntry{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return errors.Wrapf(err, "check queue entry %s", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrAlreadyResolved
}

func (s *Service) SaveDecision(ctx context.Context, d *models.ModerationDecision) error {
	if err := s.db(ctx).Create(d).Error; err != nil {
		s.log.Error("failed to save decision", zap.String("queue_id", d.QueueID), zap.Error(err))
		return errors.Wrap(err, "save decision")
	}
	return nil
}

func (s *Service) ListDecisions(ctx context.Context, contentType, contentID string) ([]models.ModerationDecision, error) {
	var decisions []models.ModerationDecision
	err := s.db(ctx).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Order("created_at asc, id asc").
		Find(&decisions).Error
	if err != nil {
		return nil, errors.Wrap(err, "list decisions")
	}
	return decisions, nil
}
