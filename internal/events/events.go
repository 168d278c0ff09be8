// Package events fans moderation events out to their consumers (Redis
// Pub/Sub for the reviewer feed, Telegram for admin alerts).
package events

import (
	"context"
	"time"

	"familyeats/backend/internal/models"

	"go.uber.org/zap"
)

// Sink receives moderation events.
type Sink interface {
	PublishEvent(ctx context.Context, ev models.ModerationEvent) error
}

// Fanout delivers every event to all sinks. Delivery is best effort: a
// failing sink is logged and does not stop the others or the caller.
type Fanout struct {
	sinks []Sink
	log   *zap.Logger
}

func NewFanout(log *zap.Logger, sinks ...Sink) *Fanout {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fanout{sinks: sinks, log: log}
}

// Emit stamps ev and publishes it to every sink.
func (f *Fanout) Emit(ctx context.Context, ev models.ModerationEvent) {
	if f == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	for _, s := range f.sinks {
		if err := s.PublishEvent(ctx, ev); err != nil {
			f.log.Warn("event delivery failed", zap.String("type", ev.Type), zap.Error(err))
		}
	}
}
