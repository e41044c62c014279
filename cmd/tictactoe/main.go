package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jaminalder/tic-tac-toe-ai/internal/app"
	"github.com/jaminalder/tic-tac-toe-ai/internal/config"
	"github.com/jaminalder/tic-tac-toe-ai/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	defaults, err := app.ParseSettings(app.DefaultSettings(),
		cfg.DefaultMode, cfg.DefaultDifficulty, cfg.FirstPlayer, cfg.ComputerPlayer)
	if err != nil {
		return fmt.Errorf("default settings: %w", err)
	}
	svc := app.NewService(
		app.WithLogger(logger),
		app.WithComputerDelay(cfg.ComputerDelay),
		app.WithDefaults(defaults),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go svc.RunSweeper(ctx, cfg.SweepInterval, cfg.SessionTTL)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: web.NewServer(svc,
			web.WithLogger(logger),
			web.WithHeartbeat(cfg.Heartbeat),
			web.WithAllowedOrigins(cfg.AllowedOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr),
			zap.Stringer("mode", defaults.Mode), zap.Stringer("difficulty", defaults.Difficulty))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
