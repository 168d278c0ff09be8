package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"familyeats/backend/internal/api/handler"
	"familyeats/backend/internal/app"
	"familyeats/backend/internal/authz"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/events"
	"familyeats/backend/internal/feed"
	"familyeats/backend/internal/localization"
	"familyeats/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("MODERATION_CONFIG"), "path to a config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("invalid configuration", zap.Error(e))
		}
		os.Exit(1)
	}
	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("moderation service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close(store)
	if err := store.Migrate(); err != nil {
		return err
	}

	loc, err := localization.Default()
	if err != nil {
		return err
	}

	// With Redis every instance feeds its hub from the shared channel;
	// without it the hub is fed directly.
	var hub *feed.Hub
	var sinks []events.Sink
	if store.Redis != nil {
		hub = feed.NewHub(store, logger)
		sinks = append(sinks, store)
	} else {
		hub = feed.NewHub(nil, logger)
		sinks = append(sinks, hub)
	}

	if cfg.Telegram.Token != "" {
		notifier, err := telegram.NewNotifier(cfg.Telegram, loc, store, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, notifier)
		go notifier.Run(ctx)
	}
	go hub.Run(ctx)

	svc := app.NewServices(cfg, store, logger, sinks...)
	h := handler.NewHandler(handler.Deps{
		Moderation: svc.Moderation,
		Queue:      svc.Queue,
		Decisions:  svc.Decisions,
		Reports:    svc.Reports,
		Trust:      svc.Trust,
		Hub:        hub,
		Authz:      authz.New(),
		Localizer:  loc,
		Auth:       cfg.Auth,
		Health:     store.Ping,
		Log:        logger,
	})

	server := &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        h.Router(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("moderation service listening", zap.String("addr", cfg.HTTP.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
