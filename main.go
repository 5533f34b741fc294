// Command ydl-bot is the entrypoint for the Telegram download bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres, runs idempotent migrations and starts the
//     storage actor that serializes all database access.
//   - Starts the notification worker pool and the Telegram poll loop.
//   - Exposes a minimal HTTP server with /healthz and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/EChistov/ydl-bot/auth"
	"github.com/EChistov/ydl-bot/bot"
	"github.com/EChistov/ydl-bot/config"
	"github.com/EChistov/ydl-bot/db"
	"github.com/EChistov/ydl-bot/notify"
	"github.com/EChistov/ydl-bot/retry"
	"github.com/EChistov/ydl-bot/server"
	"github.com/EChistov/ydl-bot/store"
	"github.com/EChistov/ydl-bot/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	initLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("ydl-bot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.MP3Dir, 0o755); err != nil {
		slog.Error("failed to create mp3 dir", slog.String("dir", cfg.MP3Dir), slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The storage actor owns the sole database handle from here on.
	actor := store.NewActor(database)
	actorDone := make(chan struct{})
	go func() {
		defer close(actorDone)
		actor.Run(ctx)
	}()

	policy := retry.Policy{MaxAttempts: cfg.MaxAttempts, Delay: cfg.RetryDelay}
	checker := auth.NewChecker(actor, cfg.SuperAdmins)

	// The pool needs the Telegram client, which the bot owns; wire them in
	// two steps.
	b, err := bot.New(cfg, actor, checker)
	if err != nil {
		slog.Error("failed to start telegram bot", slog.Any("err", err))
		actor.Quit()
		<-actorDone
		os.Exit(1)
	}
	pool := notify.NewPool(b.Messenger(), cfg.MsgWorkerCount, policy)
	b.SetPool(pool)
	pool.Start(ctx)

	go func() {
		addr := os.Getenv("METRICS_ADDR")
		if addr == "" {
			addr = ":8080"
		}
		if err := server.Start(ctx, addr); err != nil {
			slog.Error("http server failed", slog.Any("err", err))
		}
	}()

	b.Run(ctx)

	// Telegram polling has stopped; drain the actors. In-flight handlers may
	// race these quits and lose their replies, which they treat as timeouts.
	pool.Close()
	pool.Wait()
	actor.Quit()
	<-actorDone
	slog.Info("shutdown complete")
}

func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
