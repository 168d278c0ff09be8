package moderation

import (
	"context"
	"errors"
	"strconv"

	"familyeats/backend/internal/apperr"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/events"
	"familyeats/backend/internal/metrics"
	"familyeats/backend/internal/models"
	"familyeats/backend/internal/storage"

	"go.uber.org/zap"
)

// EnqueueInput asks for human review of a content item.
type EnqueueInput struct {
	ContentType string `json:"content_type" validate:"required"`
	ContentID   string `json:"content_id" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
	// Priority 1 is the most urgent; zero means the default.
	Priority int    `json:"priority" validate:"omitempty,min=1,max=5"`
	Source   string `json:"source" validate:"omitempty,oneof=auto_moderation report manual"`
}

// ListInput filters the open queue.
type ListInput struct {
	Limit      int    `json:"limit" validate:"omitempty,min=1,max=200"`
	Priority   int    `json:"priority" validate:"omitempty,min=1,max=5"`
	AssignedTo string `json:"assigned_to"`
}

// QueueManager owns the moderation queue.
type QueueManager struct {
	store  storage.Storage
	events *events.Fanout
	log    *zap.Logger
}

func NewQueueManager(store storage.Storage, ev *events.Fanout, log *zap.Logger) *QueueManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &QueueManager{store: store, events: ev, log: log}
}

// Enqueue adds the content to the queue or merges into its open entry.
// The bool reports whether a new entry was created.
func (m *QueueManager) Enqueue(ctx context.Context, in EnqueueInput) (*models.ModerationQueueEntry, bool, error) {
	entry, created, err := m.EnqueueTx(ctx, m.store, in)
	if err != nil {
		return nil, false, err
	}
	m.Announce(ctx, entry)
	return entry, created, nil
}

// EnqueueTx is Enqueue through st without announcing the entry; callers
// running a transaction announce after commit.
func (m *QueueManager) EnqueueTx(ctx context.Context, st storage.Storage, in EnqueueInput) (*models.ModerationQueueEntry, bool, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, false, err
	}
	if in.Priority == 0 {
		in.Priority = config.DefaultPriority
	}
	if in.Source == "" {
		in.Source = models.SourceManual
	}

	entry, created, err := st.EnqueueOrMerge(ctx, &models.ModerationQueueEntry{
		ContentType: in.ContentType,
		ContentID:   in.ContentID,
		Reason:      in.Reason,
		Priority:    in.Priority,
		Source:      in.Source,
	})
	if err != nil {
		return nil, false, apperr.Persistence("enqueue content", err)
	}
	metrics.QueueEnqueued.WithLabelValues(in.Source, strconv.FormatBool(created)).Inc()
	m.log.Info("content queued for review",
		zap.String("queue_id", entry.ID),
		zap.String("content_type", entry.ContentType),
		zap.String("content_id", entry.ContentID),
		zap.Int("priority", entry.Priority),
		zap.Bool("created", created),
	)
	return entry, created, nil
}

// Announce publishes the queue state of entry.
func (m *QueueManager) Announce(ctx context.Context, entry *models.ModerationQueueEntry) {
	m.events.Emit(ctx, models.ModerationEvent{
		Type:        models.EventQueueEnqueued,
		ContentType: entry.ContentType,
		ContentID:   entry.ContentID,
		QueueID:     entry.ID,
		Priority:    entry.Priority,
	})
}

// List returns open entries, most urgent and oldest first.
func (m *QueueManager) List(ctx context.Context, in ListInput) ([]models.ModerationQueueEntry, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = config.DefaultQueueLimit
	}
	entries, err := m.store.ListQueue(ctx, storage.QueueFilter{
		Limit:      in.Limit,
		Priority:   in.Priority,
		AssignedTo: in.AssignedTo,
	})
	if err != nil {
		return nil, apperr.Persistence("list queue", err)
	}
	return entries, nil
}

// Assign hands an open entry to a reviewer.
func (m *QueueManager) Assign(ctx context.Context, entryID, reviewerID string) error {
	if entryID == "" {
		return apperr.Required("queue_id")
	}
	if reviewerID == "" {
		return apperr.Required("assigned_to")
	}
	if err := m.store.AssignQueueEntry(ctx, entryID, reviewerID); err != nil {
		return queueError(err, entryID, "assign queue entry")
	}
	m.events.Emit(ctx, models.ModerationEvent{Type: models.EventQueueAssigned, QueueID: entryID, Actor: reviewerID})
	return nil
}

func queueError(err error, entryID, op string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("queue entry", entryID)
	case errors.Is(err, storage.ErrAlreadyResolved):
		return apperr.AlreadyResolved(entryID)
	default:
		return apperr.Persistence(op, err)
	}
}
