// Package app wires configuration into the moderation services. Both the
// HTTP server and the admin CLI build their dependencies through it.
package app

import (
	"context"
	"fmt"

	"familyeats/backend/internal/analysis"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/events"
	"familyeats/backend/internal/moderation"
	"familyeats/backend/internal/report"
	"familyeats/backend/internal/storage"
	"familyeats/backend/internal/trust"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewLogger returns a development logger when debug logging is on.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// OpenStore connects Postgres and, when configured, Redis.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.Service, error) {
	level := logger.Warn
	if cfg.Log.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	} else {
		log.Warn("redis not configured: events stay in-process and report rate limiting is off")
	}
	return storage.NewStorageService(db, rdb, log), nil
}

// Close releases the database and Redis connections.
func Close(s *storage.Service) {
	if s.Redis != nil {
		s.Redis.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// Services is the moderation core.
type Services struct {
	Store      *storage.Service
	Events     *events.Fanout
	Analyzer   analysis.Analyzer
	Trust      *trust.Engine
	Queue      *moderation.QueueManager
	Decisions  *moderation.DecisionProcessor
	Moderation *moderation.Service
	Reports    *report.Intake
}

// NewServices builds the services over store. Events go to sinks.
func NewServices(cfg *config.Config, store *storage.Service, log *zap.Logger, sinks ...events.Sink) *Services {
	ev := events.NewFanout(log, sinks...)

	var analyzer analysis.Analyzer = analysis.NewKeywordAnalyzer()
	if cfg.Analyzer.URL != "" {
		analyzer = analysis.NewRemoteAnalyzer(cfg.Analyzer.URL, cfg.Analyzer.Timeout, log)
	}
	log.Info("content analyzer selected", zap.String("analyzer", analyzer.Name()))

	policy := moderation.NewPolicy(moderation.Thresholds{
		Flag:   cfg.Moderation.FlagThreshold,
		Remove: cfg.Moderation.RemoveThreshold,
	})
	engine := trust.NewEngine(store, ev, log)
	queue := moderation.NewQueueManager(store, ev, log)
	limit := report.RateLimit{
		Limit:  cfg.Moderation.ReportRateLimit,
		Window: cfg.Moderation.ReportRateWindow,
	}
	return &Services{
		Store:      store,
		Events:     ev,
		Analyzer:   analyzer,
		Trust:      engine,
		Queue:      queue,
		Decisions:  moderation.NewDecisionProcessor(store, engine, ev, log),
		Moderation: moderation.NewService(store, analyzer, policy, queue, engine, ev, log),
		Reports:    report.NewIntake(store, queue, engine, ev, limit, log),
	}
}
