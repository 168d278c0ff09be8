package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"familyeats/backend/internal/app"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/events"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is what every command needs once config is loaded.
type env struct {
	svc *app.Services
}

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Moderation back-office tasks",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("MODERATION_CONFIG"), "path to a config file")

	root.AddCommand(
		newMigrateCommand(),
		newQueueCommand(),
		newTrustCommand(),
		newUserCommand(),
		newTokenCommand(),
	)
	return root
}

// withEnv loads config and connects the store around fn. Events raised by
// admin actions reach the live feed through Redis when it is configured.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	store, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close(store)

	var sinks []events.Sink
	if store.Redis != nil {
		sinks = append(sinks, store)
	}
	return fn(ctx, &env{svc: app.NewServices(cfg, store, log, sinks...)})
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the moderation tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(_ context.Context, e *env) error {
				if err := e.svc.Store.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}
