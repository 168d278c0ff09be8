package moderation

import (
	"context"
	"errors"
	"time"

	"familyeats/backend/internal/analysis"
	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/events"
	"familyeats/backend/internal/metrics"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/storage"
	"familyeats/backend/internal/trust"

	"go.uber.org/zap"
)

// AnalyzeInput is a piece of user content submitted for moderation.
type AnalyzeInput struct {
	Content     string `json:"content" validate:"required"`
	ContentType string `json:"content_type" validate:"required,oneof=review restaurant menu_item photo comment"`
	ContentID   string `json:"content_id" validate:"required"`
	AuthorID    string `json:"author_id"`
	HasRating   bool   `json:"has_rating"`
}

// Outcome is what an analysis led to.
type Outcome struct {
	Result       *models.AnalysisResult
	Action       string
	QualityScore float64
	// QueueEntry is set when the content was flagged for review.
	QueueEntry *models.ModerationQueueEntry
}

// Service runs content through analysis and the auto-moderation policy.
type Service struct {
	store    storage.Storage
	analyzer analysis.Analyzer
	scorer   *analysis.QualityScorer
	policy   *Policy
	queue    *QueueManager
	trust    *trust.Engine
	events   *events.Fanout
	log      *zap.Logger
}

func NewService(
	store storage.Storage,
	analyzer analysis.Analyzer,
	policy *Policy,
	queue *QueueManager,
	engine *trust.Engine,
	ev *events.Fanout,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		analyzer: analyzer,
		scorer:   analysis.NewQualityScorer(),
		policy:   policy,
		queue:    queue,
		trust:    engine,
		events:   ev,
		log:      log,
	}
}

// Analyze registers the content item, scores it and applies the policy:
// auto_remove marks the content removed and recomputes its author's trust,
// flag_for_review queues it, approve changes nothing. The analysis result is
// stored in every case.
func (s *Service) Analyze(ctx context.Context, in AnalyzeInput) (*Outcome, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.AnalyzeDuration.WithLabelValues(s.analyzer.Name()).Observe(time.Since(start).Seconds())
	}()

	if err := s.store.UpsertContentItem(ctx, &models.ContentItem{
		ContentType: in.ContentType,
		ContentID:   in.ContentID,
		AuthorID:    in.AuthorID,
		HasRating:   in.HasRating,
	}); err != nil {
		return nil, apperr.Persistence("register content", err)
	}
	item, err := s.store.GetContentItem(ctx, in.ContentType, in.ContentID)
	if err != nil {
		return nil, apperr.Persistence("load content", err)
	}

	res, err := s.analyzer.Analyze(ctx, in.Content, in.ContentType, in.ContentID)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return nil, err
		}
		metrics.AnalyzerErrors.WithLabelValues(s.analyzer.Name()).Inc()
		s.log.Error("content analysis failed",
			zap.String("content_type", in.ContentType),
			zap.String("content_id", in.ContentID),
			zap.Error(err),
		)
		return nil, apperr.Analysis(err)
	}

	author, err := s.trust.Lookup(ctx, s.store, item.AuthorID)
	if err != nil {
		return nil, err
	}

	result := &models.AnalysisResult{
		ContentType:    in.ContentType,
		ContentID:      in.ContentID,
		CategoryScores: res.CategoryScores,
		Details:        res.Details,
		QualityScore:   s.scorer.Score(in.ContentType, in.Content, analysis.Meta{HasRating: item.HasRating}),
		Analyzer:       res.Analyzer,
	}
	decision := s.policy.Decide(result, author)
	result.Flagged = decision.Action != ActionApprove
	result.FlaggedCategories = FlaggedCategories(result.CategoryScores, decision.FlagThreshold)

	out := &Outcome{Result: result, Action: decision.Action, QualityScore: result.QualityScore}
	var settled *models.ModerationQueueEntry
	err = s.store.WithTx(ctx, func(tx storage.Storage) error {
		if err := tx.SaveAnalysisResult(ctx, result); err != nil {
			return apperr.Persistence("save analysis result", err)
		}
		switch decision.Action {
		case ActionAutoRemove:
			if err := tx.SetContentStatus(ctx, in.ContentType, in.ContentID, models.ContentRemoved); err != nil {
				return apperr.Persistence("remove content", err)
			}
			entry, reporters, err := s.settleRemoved(ctx, tx, in.ContentType, in.ContentID, decision.Category)
			if err != nil {
				return err
			}
			settled = entry
			return recomputeTrust(ctx, tx, s.trust, append([]string{item.AuthorID}, reporters...))
		case ActionFlag:
			entry, _, err := s.queue.EnqueueTx(ctx, tx, EnqueueInput{
				ContentType: in.ContentType,
				ContentID:   in.ContentID,
				Reason:      "auto-moderation: " + decision.Category,
				Priority:    decision.Priority,
				Source:      models.SourceAutoModeration,
			})
			if err != nil {
				return err
			}
			out.QueueEntry = entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AutoModerationActions.WithLabelValues(decision.Action).Inc()
	s.log.Info("content analyzed",
		zap.String("content_type", in.ContentType),
		zap.String("content_id", in.ContentID),
		zap.String("action", decision.Action),
		zap.String("category", decision.Category),
		zap.Float64("score", decision.Score),
	)
	switch decision.Action {
	case ActionAutoRemove:
		s.events.Emit(ctx, models.ModerationEvent{
			Type:        models.EventContentRemoved,
			ContentType: in.ContentType,
			ContentID:   in.ContentID,
			Action:      decision.Action,
		})
		if settled != nil {
			s.events.Emit(ctx, models.ModerationEvent{
				Type:        models.EventQueueResolved,
				ContentType: settled.ContentType,
				ContentID:   settled.ContentID,
				QueueID:     settled.ID,
				Priority:    settled.Priority,
				Action:      models.VerdictRemove,
				Actor:       models.SystemReviewer,
			})
		}
	case ActionFlag:
		s.queue.Announce(ctx, out.QueueEntry)
	}
	return out, nil
}

// settleRemoved closes what reviewers would otherwise still see for content
// the policy just removed: its open queue entry is resolved with a system
// decision and its open reports are upheld. It returns the resolved entry,
// if there was one, and the reporters of the upheld reports.
func (s *Service) settleRemoved(ctx context.Context, tx storage.Storage, contentType, contentID, category string) (*models.ModerationQueueEntry, []string, error) {
	entry, err := tx.OpenQueueEntry(ctx, contentType, contentID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		entry = nil
	case err != nil:
		return nil, nil, apperr.Persistence("load open queue entry", err)
	default:
		if err := tx.TransitionQueueEntry(ctx, entry.ID, models.QueueResolved, models.SystemReviewer); err != nil {
			return nil, nil, queueError(err, entry.ID, "resolve queue entry")
		}
		if err := tx.SaveDecision(ctx, &models.ModerationDecision{
			QueueID:     entry.ID,
			ContentType: contentType,
			ContentID:   contentID,
			ReviewerID:  models.SystemReviewer,
			Verdict:     models.VerdictRemove,
			Notes:       "auto-moderation: " + category,
			ActionTaken: models.ContentRemoved,
		}); err != nil {
			return nil, nil, apperr.Persistence("save decision", err)
		}
	}

	reporters, err := tx.CloseOpenReports(ctx, contentType, contentID, models.ReportReviewed, models.SystemReviewer)
	if err != nil {
		return nil, nil, apperr.Persistence("close reports", err)
	}
	return entry, reporters, nil
}

// Results returns every stored analysis of a content item, oldest first.
func (s *Service) Results(ctx context.Context, contentType, contentID string) ([]models.AnalysisResult, error) {
	if contentType == "" {
		return nil, apperr.Required("content_type")
	}
	if contentID == "" {
		return nil, apperr.Required("content_id")
	}
	results, err := s.store.ListAnalysisResults(ctx, contentType, contentID)
	if err != nil {
		return nil, apperr.Persistence("list analysis results", err)
	}
	return results, nil
}
