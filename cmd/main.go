package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"roomchat/auth"
	"roomchat/domain"
	"roomchat/errors"
	"roomchat/moderation"
	"roomchat/observability"
	"roomchat/repositories"
	"roomchat/runtime"
	"roomchat/runtime/workers"
	"roomchat/server"
	"roomchat/services"
	"roomchat/session"
	goruntime "runtime"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives. Returning
// instead of exiting lets the deferred cleanups run.
func run() error {
	// 1. Configuration & Logger
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	users, err := repositories.NewUserRepository(db, log)
	if err != nil {
		return err
	}
	defer users.Close()
	rooms, err := repositories.NewRoomRepository(db, log)
	if err != nil {
		return err
	}
	defer rooms.Close()
	messages := repositories.NewMessageRepository(db, log)

	// 3. Chat core
	metrics := observability.NewMetrics()
	registry := runtime.NewRegistry(log, metrics)
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	authenticator := auth.NewAuthenticator(tokens, users)

	sessions := session.NewHandler(log, authenticator, rooms, messages, registry, metrics, config.Session())
	moderator, err := buildModerator(db, config, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	if moderator != nil {
		sessions.WithCensor(moderator)
	}

	srv := server.New(log, authenticator,
		services.NewAuthService(users, tokens, log),
		services.NewRoomService(rooms, log),
		services.NewAdminService(users, log),
		sessions, metrics,
		server.Config{AllowedOrigins: config.Origins(), Conn: config.Conn()},
	)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised workers
	httpWorker := workers.NewHTTPServerWorker(log, config.Address(), srv.Routes(), config.ShutdownTimeout).
		OnShutdown(func() { registry.CloseAll(domain.CloseGoingAway, "server shutting down") })
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(httpWorker, workers.NewProcessStatsWorker(log, metrics, config.StatsInterval))

	log.Info("Starting roomchat", "address", config.Address(), "gomaxprocs", goruntime.GOMAXPROCS(0))
	sup.Run(ctx)

	// 6. Final Cleanup
	registry.CloseAll(domain.CloseGoingAway, "server shutting down")
	log.Info("Program stopped cleanly")
	return nil
}

// buildModerator merges configured and stored forbidden words. It returns
// nil when there is nothing to censor.
func buildModerator(db *badger.DB, config Config, log *slog.Logger) (*moderation.Moderator, error) {
	words := moderation.SplitWords(config.CensoredWords)
	stored, err := moderation.LoadWords(db)
	if err != nil {
		return nil, err
	}
	words = append(words, stored...)
	if len(words) == 0 {
		return nil, nil
	}
	log.Info("Moderation enabled", "words", len(words))
	return moderation.NewModerator(words, config.Replacement(), log)
}
