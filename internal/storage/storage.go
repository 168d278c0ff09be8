// Package storage is the data-access layer of the moderation service:
// Postgres through gorm for the records, Redis for events and rate limits.
package storage

import (
	"context"
	"time"

	"familyeats/backend/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyResolved = errors.New("queue entry already resolved")
	ErrDuplicate       = errors.New("duplicate record")
)

// QueueFilter narrows ListQueue. Zero values mean "any".
type QueueFilter struct {
	Limit      int
	Priority   int
	AssignedTo string
}

// ReportFilter narrows ListReports. Zero values mean "any".
type ReportFilter struct {
	Status      string
	ContentType string
	Limit       int
}

// Storage is everything the moderation services need from persistence.
// WithTx runs fn against a transactional Storage; every write made through
// tx commits or rolls back together.
type Storage interface {
	WithTx(ctx context.Context, fn func(tx Storage) error) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	AdminChatIDs(ctx context.Context) ([]int64, error)
	UsersAffectedSince(ctx context.Context, since time.Time) ([]string, error)

	UpsertContentItem(ctx context.Context, item *models.ContentItem) error
	GetContentItem(ctx context.Context, contentType, contentID string) (*models.ContentItem, error)
	SetContentStatus(ctx context.Context, contentType, contentID, status string) error

	SaveAnalysisResult(ctx context.Context, result *models.AnalysisResult) error
	ListAnalysisResults(ctx context.Context, contentType, contentID string) ([]models.AnalysisResult, error)

	EnqueueOrMerge(ctx context.Context, entry *models.ModerationQueueEntry) (*models.ModerationQueueEntry, bool, error)
	GetQueueEntry(ctx context.Context, id string) (*models.ModerationQueueEntry, error)
	OpenQueueEntry(ctx context.Context, contentType, contentID string) (*models.ModerationQueueEntry, error)
	ListQueue(ctx context.Context, f QueueFilter) ([]models.ModerationQueueEntry, error)
	TransitionQueueEntry(ctx context.Context, id, status, actor string) error
	AssignQueueEntry(ctx context.Context, id, reviewerID string) error

	SaveDecision(ctx context.Context, d *models.ModerationDecision) error
	ListDecisions(ctx context.Context, contentType, contentID string) ([]models.ModerationDecision, error)

	SaveReport(ctx context.Context, r *models.ContentReport) error
	GetReport(ctx context.Context, id string) (*models.ContentReport, error)
	FindOpenReport(ctx context.Context, reporterID, contentType, contentID string) (*models.ContentReport, error)
	ListReports(ctx context.Context, f ReportFilter) ([]models.ContentReport, error)
	UpdateReport(ctx context.Context, r *models.ContentReport) error
	CloseOpenReports(ctx context.Context, contentType, contentID, status, reviewerID string) ([]string, error)

	GetTrustScore(ctx context.Context, userID string) (*models.TrustScore, error)
	SaveTrustScore(ctx context.Context, score *models.TrustScore) error
	TrustHistory(ctx context.Context, userID string, activitySince time.Time) (*models.TrustHistory, error)

	PublishEvent(ctx context.Context, ev models.ModerationEvent) error
	AllowReport(ctx context.Context, reporterID string, limit int, window time.Duration) (bool, error)
}

// Service implements Storage on gorm and an optional Redis client.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	log   *zap.Logger
}

// NewStorageService builds the store. rdb may be nil: events are then
// dropped and report rate limiting is disabled.
func NewStorageService(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{DB: db, Redis: rdb, log: log}
}

// Migrate creates or updates every table the service owns.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.ContentItem{},
		&models.AnalysisResult{},
		&models.ModerationQueueEntry{},
		&models.ModerationDecision{},
		&models.ContentReport{},
		&models.TrustScore{},
	)
}

// Ping checks that the database and, if configured, Redis answer.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return errors.Wrap(err, "database handle")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping database")
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "ping redis")
		}
	}
	return nil
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// WithTx runs fn inside a database transaction.
func (s *Service) WithTx(ctx context.Context, fn func(tx Storage) error) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx, Redis: s.Redis, log: s.log})
	})
}

// notFound converts gorm's miss into ErrNotFound and wraps everything else.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrapf(err, format, args...)
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "get user %s", id)
	}
	return &user, nil
}

func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return errors.Wrapf(s.db(ctx).Save(user).Error, "save user %s", user.ID)
}

// AdminChatIDs returns the Telegram chats of admins who linked one.
func (s *Service) AdminChatIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db(ctx).Model(&models.User{}).
		Where("role = ? AND telegram_chat_id IS NOT NULL", models.RoleAdmin).
		Order("telegram_chat_id").
		Pluck("telegram_chat_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list admin chats")
	}
	return ids, nil
}

// UsersAffectedSince lists users whose trust inputs changed since the given
// time: authors of decided or status-changed content, reporters and authors
// of reviewed reports.
func (s *Service) UsersAffectedSince(ctx context.Context, since time.Time) ([]string, error) {
	const q = `
		SELECT c.author_id FROM moderation_decisions d
			JOIN content_items c ON c.content_type = d.content_type AND c.content_id = d.content_id
			WHERE d.created_at >= ? AND c.author_id <> ''
		UNION
		SELECT r.reporter_id FROM content_reports r
			WHERE r.reviewed_at >= ?
		UNION
		SELECT c.author_id FROM content_reports r
			JOIN content_items c ON c.content_type = r.content_type AND c.content_id = r.content_id
			WHERE r.reviewed_at >= ? AND c.author_id <> ''
		UNION
		SELECT c.author_id FROM content_items c
			WHERE c.updated_at >= ? AND c.status IN (?, ?) AND c.author_id <> ''
	`
	var ids []string
	err := s.db(ctx).Raw(q, since, since, since, since, models.ContentRemoved, models.ContentApproved).Scan(&ids).Error
	if err != nil {
		s.log.Error("failed to list affected users", zap.Error(err))
		return nil, errors.Wrap(err, "list affected users")
	}
	return ids, nil
}
