package moderation

import (
	"context"
	"errors"

	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/events"
	"familyeats/backend/internal/metrics"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/storage"
	"familyeats/backend/internal/trust"

	"go.uber.org/zap"
)

// ResolveInput is a reviewer's verdict on a queue entry.
type ResolveInput struct {
	QueueID     string `json:"queue_id" validate:"required"`
	Verdict     string `json:"decision" validate:"required,oneof=approve reject remove request_more_info"`
	ReviewerID  string `json:"reviewer_id" validate:"required"`
	Notes       string `json:"notes"`
	ActionTaken string `json:"action_taken" validate:"omitempty,oneof=open flagged removed approved"`
}

// DecisionProcessor applies reviewer verdicts. Everything a verdict changes
// is written in one transaction; events go out after commit.
type DecisionProcessor struct {
	store  storage.Storage
	trust  *trust.Engine
	events *events.Fanout
	log    *zap.Logger
}

func NewDecisionProcessor(store storage.Storage, engine *trust.Engine, ev *events.Fanout, log *zap.Logger) *DecisionProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &DecisionProcessor{store: store, trust: engine, events: ev, log: log}
}

// Resolve records the verdict. request_more_info keeps the entry open in
// requires_additional_info; every other verdict resolves it, applies the
// content action, closes the content's open reports and recomputes trust
// for the author and the affected reporters.
func (p *DecisionProcessor) Resolve(ctx context.Context, in ResolveInput) (*models.ModerationDecision, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}

	var decision *models.ModerationDecision
	var entry *models.ModerationQueueEntry
	err := p.store.WithTx(ctx, func(tx storage.Storage) error {
		var err error
		entry, err = tx.GetQueueEntry(ctx, in.QueueID)
		if err != nil {
			return queueError(err, in.QueueID, "load queue entry")
		}
		if !entry.Open() {
			return apperr.AlreadyResolved(in.QueueID)
		}

		final := in.Verdict != models.VerdictRequestMoreInfo
		status := models.QueueRequiresInfo
		if final {
			status = models.QueueResolved
		}
		if err := tx.TransitionQueueEntry(ctx, entry.ID, status, in.ReviewerID); err != nil {
			return queueError(err, entry.ID, "transition queue entry")
		}

		decision = &models.ModerationDecision{
			QueueID:     entry.ID,
			ContentType: entry.ContentType,
			ContentID:   entry.ContentID,
			ReviewerID:  in.ReviewerID,
			Verdict:     in.Verdict,
			Notes:       in.Notes,
			ActionTaken: in.ActionTaken,
		}
		if err := tx.SaveDecision(ctx, decision); err != nil {
			return apperr.Persistence("save decision", err)
		}
		if !final {
			return nil
		}
		return p.applyOutcome(ctx, tx, entry, in)
	})
	if err != nil {
		if !apperr.Exposed(apperr.KindOf(err)) {
			p.log.Error("failed to resolve queue entry", zap.String("queue_id", in.QueueID), zap.Error(err))
		}
		return nil, err
	}

	metrics.Decisions.WithLabelValues(in.Verdict).Inc()
	p.log.Info("queue entry decided",
		zap.String("queue_id", entry.ID),
		zap.String("verdict", in.Verdict),
		zap.String("reviewer_id", in.ReviewerID),
	)
	evType := models.EventQueueResolved
	if in.Verdict == models.VerdictRequestMoreInfo {
		evType = models.EventQueueInfoRequest
	}
	p.events.Emit(ctx, models.ModerationEvent{
		Type:        evType,
		ContentType: entry.ContentType,
		ContentID:   entry.ContentID,
		QueueID:     entry.ID,
		Priority:    entry.Priority,
		Action:      in.Verdict,
		Actor:       in.ReviewerID,
	})
	return decision, nil
}

func (p *DecisionProcessor) applyOutcome(ctx context.Context, tx storage.Storage, entry *models.ModerationQueueEntry, in ResolveInput) error {
	if in.ActionTaken != "" {
		err := tx.SetContentStatus(ctx, entry.ContentType, entry.ContentID, in.ActionTaken)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("content", entry.ContentType+"/"+entry.ContentID)
		}
		if err != nil {
			return apperr.Persistence("set content status", err)
		}
	}

	reportStatus := models.ReportReviewed
	if in.Verdict == models.VerdictApprove {
		reportStatus = models.ReportDismissed
	}
	reporters, err := tx.CloseOpenReports(ctx, entry.ContentType, entry.ContentID, reportStatus, in.ReviewerID)
	if err != nil {
		return apperr.Persistence("close reports", err)
	}

	affected := make([]string, 0, len(reporters)+1)
	item, err := tx.GetContentItem(ctx, entry.ContentType, entry.ContentID)
	switch {
	case err == nil:
		if item.AuthorID != "" {
			affected = append(affected, item.AuthorID)
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return apperr.Persistence("load content", err)
	}
	affected = append(affected, reporters...)
	return recomputeTrust(ctx, tx, p.trust, affected)
}

// recomputeTrust recomputes each distinct user inside tx.
func recomputeTrust(ctx context.Context, tx storage.Storage, engine *trust.Engine, userIDs []string) error {
	seen := make(map[string]bool, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		if _, err := engine.RecomputeIn(ctx, tx, userID); err != nil {
			return err
		}
	}
	return nil
}

// History returns the decisions recorded on a content item, oldest first.
func (p *DecisionProcessor) History(ctx context.Context, contentType, contentID string) ([]models.ModerationDecision, error) {
	if contentType == "" {
		return nil, apperr.Required("content_type")
	}
	if contentID == "" {
		return nil, apperr.Required("content_id")
	}
	decisions, err := p.store.ListDecisions(ctx, contentType, contentID)
	if err != nil {
		return nil, apperr.Persistence("list decisions", err)
	}
	return decisions, nil
}
