package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/stopwatch/internal/adapters/repository"
	service "github.com/okian/stopwatch/internal/app"
	"github.com/okian/stopwatch/internal/config"
	"github.com/okian/stopwatch/pkg/logger"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "stopwatchd",
		Short:         "Event-sourced stopwatch service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.configPath != "" {
				return os.Setenv(config.EnvConfig, opts.configPath)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (overrides "+config.EnvConfig+")")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newShowCommand())

	return cmd
}

// setup loads the configuration and initializes logging to logOut.
func setup(ctx context.Context, logOut io.Writer) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(logOut)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

// openService opens the configured store and loads every stopwatch from it.
func openService(ctx context.Context, cfg *config.Config) (*service.Service, error) {
	store, err := repository.Open(cfg.StoreDriver, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return startService(ctx, store)
}

// startService owns store: it is closed on every failure path.
func startService(ctx context.Context, store repository.Store) (*service.Service, error) {
	svc, err := service.New(
		service.WithStore(store),
		service.WithLogger(logger.Named("service")),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := svc.Open(ctx); err != nil {
		// Close is a no-op on a service that never opened.
		_ = store.Close()
		return nil, fmt.Errorf("open service: %w", err)
	}
	return svc, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
