package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub/internal/api"
	"github.com/taskhub/taskhub/internal/credential"
	"github.com/taskhub/taskhub/internal/model"
	"github.com/taskhub/taskhub/internal/notify"
	"github.com/taskhub/taskhub/internal/service"
	"github.com/taskhub/taskhub/internal/store"
	"github.com/taskhub/taskhub/internal/sweep"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		if cfg.Server.TokenSecret == "" {
			return fmt.Errorf("no token secret configured: set server.token_secret or TASKHUB_TOKEN_SECRET")
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg *model.AppConfig) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	mailer := buildMailer(cfg.SMTP, logger)
	dispatcher := notify.NewMailDispatcher(mailer, logger)
	defer dispatcher.Close()

	tasks := service.NewTaskService(st, dispatcher, logger)

	server := api.NewServer(api.Options{
		Store:    st,
		Tasks:    tasks,
		Mailer:   mailer,
		Secret:   []byte(cfg.Server.TokenSecret),
		TokenTTL: time.Duration(cfg.Server.TokenTTLHours) * time.Hour,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sweep.Enabled {
		interval := time.Duration(cfg.Sweep.IntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = time.Hour
		}
		sweeper := sweep.New(st, mailer, logger)
		go sweeper.RunEvery(ctx, interval)
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildMailer returns an SMTP mailer when a host is configured and falls
// back to logging deliveries otherwise. The account password comes from
// the keyring, or TASKHUB_SMTP_PASSWORD when the keyring is unavailable.
func buildMailer(cfg model.SMTPConfig, logger *slog.Logger) notify.Mailer {
	if cfg.Host == "" {
		logger.Info("no SMTP host configured, emails will be logged")
		return &notify.LogMailer{Logger: logger}
	}
	password := os.Getenv("TASKHUB_SMTP_PASSWORD")
	if password == "" {
		stored, err := credential.Get(credential.SMTPPasswordKey)
		if err != nil {
			logger.Warn("SMTP password not found in keyring", "error", err)
		} else {
			password = stored
		}
	}
	return notify.NewSMTPMailer(cfg, password)
}
