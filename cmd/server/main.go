package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/nethang/internal/api"
	"github.com/mcoot/nethang/internal/config"
	"github.com/mcoot/nethang/internal/factory"
	"github.com/mcoot/nethang/internal/services/auth"
	redisstorage "github.com/mcoot/nethang/internal/storage/redis"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nethang",
		Short: "Multi-player hangman over telnet",
		Long: `nethang runs a hangman party server. Players connect with telnet or
netcat, pick a nickname, chat in the lobby and take turns guessing words.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.AddCommand(newAdminTokenCmd())
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func newAdminTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin-token",
		Short: "Generate a status API admin token and its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, hash, err := auth.GenerateToken()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "token: %s\n", token)
			_, _ = fmt.Fprintf(out, "hash:  %s\n", hash)
			_, _ = fmt.Fprintln(out, "Set NETHANG_STATUS_ADMIN_TOKEN_HASH to the hash and keep the token for nethangctl.")
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Set up logging
	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	// Build factory config
	factoryCfg := factory.Config{
		Logger:       logger,
		StorageType:  cfg.Storage.Type,
		HistoryLimit: cfg.Storage.HistoryLimit,
		AuthConfig:   auth.Config{TokenHash: cfg.Status.AdminTokenHash},
	}
	srvCfg := cfg.Server()
	factoryCfg.Server = &srvCfg
	if cfg.Storage.Type == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		redisCfg.HistoryLimit = cfg.Storage.HistoryLimit
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = app.Close() }()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Server.Start(ctx); err != nil {
		logger.Error("failed to start game server", slog.String("error", err.Error()))
		return err
	}

	// Start the status API if configured
	errCh := make(chan error, 1)
	var statusAPI *api.Server
	if cfg.Status.Addr != "" {
		apiCfg := api.DefaultServerConfig()
		apiCfg.Host, apiCfg.Port, _ = cfg.Status.HostPort()
		statusAPI = api.NewServer(app.Router(), apiCfg, logger)
		if err := statusAPI.Listen(); err != nil {
			return errors.Join(err, app.Server.Stop(context.Background()))
		}
		go func() {
			errCh <- statusAPI.Serve()
		}()
	}

	// Wait for shutdown or error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("status API failed", slog.String("error", runErr.Error()))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.GracePeriod+5*time.Second)
	defer cancel()
	if err := app.Server.Stop(stopCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		runErr = errors.Join(runErr, err)
	}
	if statusAPI != nil {
		if err := statusAPI.Shutdown(stopCtx); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	logger.Info("nethang stopped")
	return runErr
}
