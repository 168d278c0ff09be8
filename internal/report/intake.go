// Package report accepts user reports about content and lets moderators
// settle them.
package report

import (
	"context"
	"errors"
	"time"

	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/events"
	"familyeats/backend/internal/metrics"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/moderation"
	"familyeats/backend/internal/storage"
	"familyeats/backend/internal/trust"

	"go.uber.org/zap"
)

// SubmitInput is a report filed by a user.
type SubmitInput struct {
	ReporterID  string `json:"reporter_id" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	ContentID   string `json:"content_id" validate:"required"`
	Category    string `json:"category" validate:"required,oneof=spam inappropriate harassment hate_speech misinformation off_topic other"`
	Reason      string `json:"reason" validate:"max=2000"`
}

// ListInput filters reports.
type ListInput struct {
	Status      string `json:"status" validate:"omitempty,oneof=open reviewed dismissed"`
	ContentType string `json:"content_type"`
	Limit       int    `json:"limit" validate:"omitempty,min=1,max=200"`
}

// UpdateInput settles or reopens a report.
type UpdateInput struct {
	ReportID   string `json:"report_id" validate:"required"`
	Status     string `json:"status" validate:"required,oneof=open reviewed dismissed"`
	AdminNotes string `json:"admin_notes"`
	ReviewerID string `json:"reviewer_id" validate:"required"`
}

// RateLimit bounds how many reports one user may file per window.
// A zero Limit disables the check.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// Intake validates and records reports and queues the reported content.
type Intake struct {
	store  storage.Storage
	queue  *moderation.QueueManager
	trust  *trust.Engine
	events *events.Fanout
	limit  RateLimit
	log    *zap.Logger
}

func NewIntake(store storage.Storage, queue *moderation.QueueManager, engine *trust.Engine, ev *events.Fanout, limit RateLimit, log *zap.Logger) *Intake {
	if log == nil {
		log = zap.NewNop()
	}
	return &Intake{store: store, queue: queue, trust: engine, events: ev, limit: limit, log: log}
}

// Submit files a report and queues the content for review with the
// category's priority.
func (i *Intake) Submit(ctx context.Context, in SubmitInput) (*models.ContentReport, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	item, err := i.store.GetContentItem(ctx, in.ContentType, in.ContentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("content", in.ContentType+"/"+in.ContentID)
	}
	if err != nil {
		return nil, apperr.Persistence("load content", err)
	}
	if item.AuthorID == in.ReporterID {
		return nil, apperr.Forbidden("you cannot report your own content")
	}

	reporter, err := i.trust.Lookup(ctx, i.store, in.ReporterID)
	if err != nil {
		return nil, err
	}
	if reporter != nil && reporter.AccountStatus == models.StatusSuspended {
		return nil, apperr.Forbidden("suspended accounts cannot file reports")
	}

	_, err = i.store.FindOpenReport(ctx, in.ReporterID, in.ContentType, in.ContentID)
	switch {
	case err == nil:
		return nil, apperr.Conflict("you already have an open report on this content")
	case !errors.Is(err, storage.ErrNotFound):
		return nil, apperr.Persistence("find open report", err)
	}

	allowed, err := i.store.AllowReport(ctx, in.ReporterID, i.limit.Limit, i.limit.Window)
	if err != nil {
		// the limiter is advisory; a Redis outage must not block reporting
		i.log.Warn("report rate limit check failed", zap.String("reporter_id", in.ReporterID), zap.Error(err))
		allowed = true
	}
	if !allowed {
		return nil, apperr.RateLimited("too many reports, try again later")
	}

	rep := &models.ContentReport{
		ReporterID:  in.ReporterID,
		ContentType: in.ContentType,
		ContentID:   in.ContentID,
		Category:    in.Category,
		Reason:      in.Reason,
		Status:      models.ReportOpen,
	}
	var entry *models.ModerationQueueEntry
	err = i.store.WithTx(ctx, func(tx storage.Storage) error {
		if err := tx.SaveReport(ctx, rep); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apperr.Conflict("you already have an open report on this content")
			}
			return apperr.Persistence("save report", err)
		}
		var err error
		entry, _, err = i.queue.EnqueueTx(ctx, tx, moderation.EnqueueInput{
			ContentType: in.ContentType,
			ContentID:   in.ContentID,
			Reason:      "report: " + in.Category,
			Priority:    CategoryPriority(in.Category, reporter),
			Source:      models.SourceReport,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Reports.WithLabelValues(in.Category).Inc()
	i.log.Info("report filed",
		zap.String("report_id", rep.ID),
		zap.String("category", in.Category),
		zap.String("queue_id", entry.ID),
	)
	i.events.Emit(ctx, models.ModerationEvent{
		Type:        models.EventReportCreated,
		ContentType: in.ContentType,
		ContentID:   in.ContentID,
		ReportID:    rep.ID,
		Priority:    entry.Priority,
		Action:      in.Category,
	})
	i.queue.Announce(ctx, entry)
	return rep, nil
}

// CategoryPriority is the queue priority of a fresh report. Reports from
// highly trusted users are one step more urgent.
func CategoryPriority(category string, reporter *models.TrustScore) int {
	prio, ok := config.ReportCategoryPriority[category]
	if !ok {
		prio = config.DefaultPriority
	}
	if reporter != nil && reporter.TrustScore >= config.HighTrustScore {
		prio--
	}
	return max(config.MinPriority, prio)
}

// List returns reports newest first.
func (i *Intake) List(ctx context.Context, in ListInput) ([]models.ContentReport, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = config.DefaultReportLimit
	}
	reports, err := i.store.ListReports(ctx, storage.ReportFilter{
		Status:      in.Status,
		ContentType: in.ContentType,
		Limit:       in.Limit,
	})
	if err != nil {
		return nil, apperr.Persistence("list reports", err)
	}
	return reports, nil
}

// UpdateStatus records a moderator's outcome for one report and recomputes
// the trust of its reporter and of the content author in the same
// transaction.
func (i *Intake) UpdateStatus(ctx context.Context, in UpdateInput) (*models.ContentReport, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	var rep *models.ContentReport
	err := i.store.WithTx(ctx, func(tx storage.Storage) error {
		var err error
		rep, err = tx.GetReport(ctx, in.ReportID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("report", in.ReportID)
		}
		if err != nil {
			return apperr.Persistence("load report", err)
		}

		rep.Status = in.Status
		rep.AdminNotes = in.AdminNotes
		if in.Status == models.ReportOpen {
			rep.ReviewedBy, rep.ReviewedAt = nil, nil
		} else {
			now := time.Now()
			reviewer := in.ReviewerID
			rep.ReviewedBy, rep.ReviewedAt = &reviewer, &now
		}
		if err := tx.UpdateReport(ctx, rep); err != nil {
			return apperr.Persistence("update report", err)
		}

		affected := []string{rep.ReporterID}
		item, err := tx.GetContentItem(ctx, rep.ContentType, rep.ContentID)
		switch {
		case err == nil:
			if item.AuthorID != "" && item.AuthorID != rep.ReporterID {
				affected = append(affected, item.AuthorID)
			}
		case errors.Is(err, storage.ErrNotFound):
		default:
			return apperr.Persistence("load content", err)
		}
		for _, userID := range affected {
			if _, err := i.trust.RecomputeIn(ctx, tx, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !apperr.Exposed(apperr.KindOf(err)) {
			i.log.Error("failed to update report", zap.String("report_id", in.ReportID), zap.Error(err))
		}
		return nil, err
	}

	i.events.Emit(ctx, models.ModerationEvent{
		Type:        models.EventReportUpdated,
		ContentType: rep.ContentType,
		ContentID:   rep.ContentID,
		ReportID:    rep.ID,
		Action:      rep.Status,
		Actor:       in.ReviewerID,
	})
	return rep, nil
}
