package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cheongeum/cheongeum-server/internal/api"
	"github.com/cheongeum/cheongeum-server/internal/auth"
	"github.com/cheongeum/cheongeum-server/internal/config"
	"github.com/cheongeum/cheongeum-server/internal/conversation"
	"github.com/cheongeum/cheongeum-server/internal/database"
	"github.com/cheongeum/cheongeum-server/internal/elevenlabs"
	"github.com/cheongeum/cheongeum-server/internal/feedback"
	"github.com/cheongeum/cheongeum-server/internal/metrics"
	"github.com/cheongeum/cheongeum-server/internal/simulator"
	"github.com/cheongeum/cheongeum-server/internal/storage"
	"github.com/cheongeum/cheongeum-server/internal/store"
	"github.com/cheongeum/cheongeum-server/internal/voiceclone"
)

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("listen", cfg.Server.Listen).
		Bool("simulator_enabled", cfg.Simulator.Enabled).
		Str("log_level", cfg.Logging.Level).
		Msg("Starting cheongeum server")

	ctx := context.Background()

	deps, pool, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	router := api.NewRouter(cfg, deps, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Listen).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// buildDeps wires every collaborator of the HTTP layer. The returned pool is
// nil when no database is configured.
func buildDeps(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (api.Deps, *pgxpool.Pool, error) {
	m := metrics.New()

	if cfg.ElevenLabs.APIKey == "" {
		logger.Warn().Msg("ELEVENLABS_API_KEY is not set - voice clone requests will fail")
	}
	cloner := voiceclone.NewManager(
		&cfg.ElevenLabs,
		elevenlabs.NewClient(&cfg.ElevenLabs),
		m,
		logger,
	)

	var completer feedback.Completer
	if c := feedback.NewOpenAICompleter(&cfg.Feedback); c != nil {
		completer = c
	} else {
		logger.Warn().Msg("OPENAI_API_KEY is not set - session scores use the static report")
	}
	analyzer := feedback.NewAnalyzer(completer, logger.With().Str("component", "feedback").Logger())

	turns := conversation.NewOrchestrator(
		&cfg.Simulator,
		simulator.NewClient(&cfg.Simulator),
		analyzer,
		m,
		logger.With().Str("component", "conversation").Logger(),
	)

	uploader, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return api.Deps{}, nil, fmt.Errorf("failed to configure storage: %w", err)
	}
	if cfg.Storage.Bucket == "" {
		logger.Warn().Msg("No S3 bucket configured - voice uploads are disabled")
	}

	secret := cfg.Auth.TokenSecret
	if secret == "" {
		secret, err = auth.RandomSecret()
		if err != nil {
			return api.Deps{}, nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
		logger.Warn().Msg("No token secret configured - sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenManager(secret, cfg.Auth.TokenTTL)
	if err != nil {
		return api.Deps{}, nil, fmt.Errorf("failed to configure tokens: %w", err)
	}

	deps := api.Deps{
		Cloner:   cloner,
		Turns:    turns,
		Uploader: uploader,
		Tokens:   tokens,
		Metrics:  m.Handler(),
	}

	if cfg.Database.URL == "" {
		logger.Warn().Msg("DATABASE_URL is not set - account and record routes are disabled")
		return deps, nil, nil
	}

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(ctx, &cfg.Database); err != nil {
			return api.Deps{}, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info().Msg("Database migrations applied")
	}

	pool, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		return api.Deps{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info().Int32("max_conns", cfg.Database.MaxConns).Msg("Database connection verified")

	deps.Store = store.New(pool)
	return deps, pool, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	cfg.Database.RunMigrations = true
	if err := database.RunMigrations(context.Background(), &cfg.Database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info().Msg("Database migrations applied")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
