// Package trust computes per-user trust scores from moderation history and
// decides who may see which part of them.
package trust

import (
	"context"
	"errors"
	"time"

	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/events"
	"familyeats/backend/internal/metrics"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/storage"

	"go.uber.org/zap"
)

// Engine recomputes and serves trust scores. It is the only writer of the
// trust_scores table.
type Engine struct {
	store  storage.Storage
	events *events.Fanout
	log    *zap.Logger
	now    func() time.Time
}

func NewEngine(store storage.Storage, ev *events.Fanout, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, events: ev, log: log, now: time.Now}
}

// Recompute rebuilds the user's score from history and stores it.
func (e *Engine) Recompute(ctx context.Context, userID string) (*models.TrustScore, error) {
	score, err := e.RecomputeIn(ctx, e.store, userID)
	if err != nil {
		return nil, err
	}
	e.events.Emit(ctx, models.ModerationEvent{Type: models.EventTrustRecomputed, Actor: userID})
	return score, nil
}

// RecomputeIn is Recompute against st, typically a transaction the caller
// also writes the triggering change through. It fails closed: when history
// cannot be read nothing is written.
func (e *Engine) RecomputeIn(ctx context.Context, st storage.Storage, userID string) (*models.TrustScore, error) {
	if userID == "" {
		return nil, apperr.Required("user_id")
	}
	now := e.now()
	h, err := st.TrustHistory(ctx, userID, now.Add(-config.RecentActivityWindow))
	if err != nil {
		e.log.Error("failed to read trust history", zap.String("user_id", userID), zap.Error(err))
		return nil, apperr.Persistence("read trust history", err)
	}

	score := Compute(userID, h, now)
	if err := st.SaveTrustScore(ctx, score); err != nil {
		return nil, apperr.Persistence("save trust score", err)
	}
	metrics.TrustRecomputes.WithLabelValues(score.AccountStatus).Inc()
	e.log.Debug("trust score recomputed",
		zap.String("user_id", userID),
		zap.Int("score", score.TrustScore),
		zap.String("status", score.AccountStatus),
	)
	return score, nil
}

// Get returns the stored score or a NotFound error.
func (e *Engine) Get(ctx context.Context, userID string) (*models.TrustScore, error) {
	if userID == "" {
		return nil, apperr.Required("user_id")
	}
	score, err := e.store.GetTrustScore(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("trust score", userID)
	}
	if err != nil {
		return nil, apperr.Persistence("get trust score", err)
	}
	return score, nil
}

// Lookup is Get for callers that treat a missing score as "no signal".
func (e *Engine) Lookup(ctx context.Context, st storage.Storage, userID string) (*models.TrustScore, error) {
	if userID == "" {
		return nil, nil
	}
	score, err := st.GetTrustScore(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get trust score", err)
	}
	return score, nil
}

// Reconcile recomputes every user whose inputs changed since the given time.
// It keeps going past individual failures and returns the first one.
func (e *Engine) Reconcile(ctx context.Context, since time.Time) (int, error) {
	ids, err := e.store.UsersAffectedSince(ctx, since)
	if err != nil {
		return 0, apperr.Persistence("list affected users", err)
	}
	done := 0
	var firstErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := e.RecomputeIn(ctx, e.store, id); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
	}
	e.log.Info("trust scores reconciled", zap.Int("users", len(ids)), zap.Int("recomputed", done))
	return done, firstErr
}

// View returns the full record to its owner and the summary to anyone else.
func View(score *models.TrustScore, callerID string) any {
	if score.UserID == callerID {
		return score
	}
	return score.Summary()
}
