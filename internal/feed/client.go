package feed

import "familyeats/backend/internal/models"

// Client is one subscriber of the moderation feed. The hub only needs to
// identify it and hand it events.
type Client interface {
	// ID identifies the connection, not the reviewer: one reviewer may
	// keep several tabs open.
	ID() string
	// Events returns the channel the hub delivers to. The hub never blocks
	// on it; a full channel gets the client dropped.
	Events() chan<- models.ModerationEvent
	// Run starts the client's pumps.
	Run()
	// Close stops delivery. Called by the hub exactly once.
	Close()
}
