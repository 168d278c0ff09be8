// Package feed streams moderation events to connected reviewers.
package feed

import (
	"context"
	"encoding/json"

	"familyeats/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Source subscribes to the shared event channel. storage.Service
// implements it; a nil PubSub means events only arrive through PublishEvent.
type Source interface {
	SubscribeEvents(ctx context.Context) *redis.PubSub
}

// Hub fans events out to the connected clients. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	broadcastCh  chan models.ModerationEvent
	done         chan struct{}

	source Source
	log    *zap.Logger
}

func NewHub(source Source, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		broadcastCh:  make(chan models.ModerationEvent, 64),
		done:         make(chan struct{}),
		source:       source,
		log:          log,
	}
}

// PublishEvent delivers ev to the local clients. Used as an event sink when
// there is no Redis to relay through.
func (h *Hub) PublishEvent(ctx context.Context, ev models.ModerationEvent) error {
	select {
	case h.broadcastCh <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register hands c to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.source != nil {
		if ps := h.source.SubscribeEvents(ctx); ps != nil {
			go h.listen(ctx, ps)
		}
	}

	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				c.Close()
				delete(h.clients, id)
			}
			return

		case c := <-h.RegisterCh:
			h.clients[c.ID()] = c
			h.log.Debug("feed client registered", zap.String("client_id", c.ID()), zap.Int("clients", len(h.clients)))

		case c := <-h.UnregisterCh:
			h.drop(c.ID())

		case ev := <-h.broadcastCh:
			for id, c := range h.clients {
				select {
				case c.Events() <- ev:
				default:
					h.log.Warn("feed client too slow, dropping", zap.String("client_id", id))
					h.drop(id)
				}
			}
		}
	}
}

func (h *Hub) drop(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	c.Close()
}

// listen relays events published by any instance through Redis.
func (h *Hub) listen(ctx context.Context, ps *redis.PubSub) {
	defer ps.Close()
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.ModerationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.Warn("undecodable moderation event", zap.Error(err))
				continue
			}
			select {
			case h.broadcastCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
