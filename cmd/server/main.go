// Package main is the entry point for the SnapArena auth backend.
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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"snaparena/internal/auth"
	"snaparena/internal/bot"
	"snaparena/internal/config"
	"snaparena/internal/handler"
	"snaparena/internal/pkg/db"
	"snaparena/internal/pkg/lock"
	"snaparena/internal/repository"
	"snaparena/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	betRepo := repository.NewBetRepository(dbPool.Pool)

	// Initialize auth components. The bot token stays inside the verifier;
	// nothing else ever sees it.
	verifier := auth.NewVerifier(cfg.Telegram.BotToken, cfg.Telegram.AuthMaxAge, cfg.Telegram.ClockSkew)
	tokens := auth.NewTokenService(cfg.Session.SigningKey, cfg.Session.TTL, cfg.Session.Issuer, cfg.Session.Audience)

	// Initialize services
	authService := service.NewAuthService(verifier, tokens, userRepo, txRepo, cfg.Account.StartingBalance)
	accountService := service.NewAccountService(userRepo, txRepo)

	userLock := lock.NewUserLock()
	bettingService := service.NewBettingService(betRepo, userLock)

	// Build the HTTP router
	router := handler.NewRouter(handler.RouterConfig{
		Auth:           handler.NewAuthHandler(authService),
		Profile:        handler.NewProfileHandler(accountService),
		Betting:        handler.NewBettingHandler(bettingService),
		TokenValidator: tokens,
		Health:         dbPool,
		LoginRPS:       cfg.RateLimit.LoginRPS,
		LoginBurst:     cfg.RateLimit.LoginBurst,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Optionally start the fallback bot
	var fallbackBot *bot.Bot
	if cfg.Bot.Enabled {
		fallbackBot, err = bot.New(cfg.Telegram.BotToken, &cfg.Bot)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create fallback bot")
		}
		go fallbackBot.Start()
	}

	// Start HTTP server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if fallbackBot != nil {
		fallbackBot.Stop()
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			username VARCHAR(255) NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	// Migration 3: Create games table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			id UUID PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			minimum_bet BIGINT NOT NULL DEFAULT 0,
			max_players INT NOT NULL DEFAULT 0,
			current_players INT NOT NULL DEFAULT 0,
			pot_amount BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			winner_id BIGINT,
			start_time TIMESTAMPTZ,
			end_time TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_games_status_time ON games(status, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: games table created")

	// Migration 4: Create bets table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bets (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bets_user_time ON bets(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_bets_game ON bets(game_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: bets table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
