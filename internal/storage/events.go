package storage

import (
	"context"
	"encoding/json"
	"time"

	"familyeats/backend/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventsChannel is the Redis Pub/Sub channel moderation events go to.
const EventsChannel = "moderation:events"

const reportRateKeyPrefix = "report_rate:"

// PublishEvent publishes ev on EventsChannel. Without Redis it is a no-op.
func (s *Service) PublishEvent(ctx context.Context, ev models.ModerationEvent) error {
	if s.Redis == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if err := s.Redis.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		s.log.Warn("failed to publish moderation event", zap.String("type", ev.Type), zap.Error(err))
		return errors.Wrap(err, "publish event")
	}
	return nil
}

// SubscribeEvents subscribes to EventsChannel. Returns nil without Redis.
func (s *Service) SubscribeEvents(ctx context.Context) *redis.PubSub {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Subscribe(ctx, EventsChannel)
}

// AllowReport counts a report against the reporter's fixed window and
// reports whether it is within limit. The key is created with its expiry and
// incremented in one MULTI/EXEC, so a counter can never outlive its window.
// Without Redis or with limit <= 0 every report is allowed.
func (s *Service) AllowReport(ctx context.Context, reporterID string, limit int, window time.Duration) (bool, error) {
	if s.Redis == nil || limit <= 0 {
		return true, nil
	}
	key := reportRateKeyPrefix + reporterID
	var count *redis.IntCmd
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		count = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "count report rate")
	}
	return count.Val() <= int64(limit), nil
}
