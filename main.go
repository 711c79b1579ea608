// Command quizbot is the main entrypoint for the trivia bot and its API.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Joins the configured Twitch channels over IRC and serves quiz rounds.
//   - Starts background jobs: channel-points redemption polling and user
//     token validation.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status,
//     /channels, /scores, and /metrics.
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
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/quizbot/cache"
	"github.com/onnwee/quizbot/chat"
	"github.com/onnwee/quizbot/config"
	"github.com/onnwee/quizbot/crypto"
	"github.com/onnwee/quizbot/db"
	"github.com/onnwee/quizbot/oauth"
	"github.com/onnwee/quizbot/quiz"
	"github.com/onnwee/quizbot/rewards"
	"github.com/onnwee/quizbot/server"
	"github.com/onnwee/quizbot/telemetry"
	"github.com/onnwee/quizbot/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("quizbot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	migrationCtx, cancelMigration := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrationCtx, database); err != nil {
		cancelMigration()
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}
	cancelMigration()

	// Token encryption (optional)
	var encryptor *crypto.Encryptor
	if cfg.EncryptionKey != "" {
		encryptor, err = crypto.New(cfg.EncryptionKey)
		if err != nil {
			slog.Error("invalid ENCRYPTION_KEY", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("token encryption enabled")
	}

	// Redis leaderboard cache (optional)
	var leaderboard *cache.Leaderboard
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		leaderboard = cache.NewLeaderboard(client)
		slog.Info("leaderboard cache enabled", slog.String("addr", cfg.RedisAddr))
	}

	channelStore := &db.ChannelStore{DB: database, Encryptor: encryptor}
	questionStore := &db.QuestionStore{DB: database}
	scoreStore := &db.ScoreStore{DB: database, Leaderboard: leaderboard}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// IRC client and quiz engine
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat not configured", slog.Any("err", err))
		os.Exit(1)
	}
	ircClient := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	registry := quiz.NewRegistry(channelStore, questionStore, scoreStore, chat.NewAnnouncer(ircClient))

	// Helix-backed features (rewards, display names, token validation) need
	// app credentials; without them the bot still answers chat commands.
	var helix *twitchapi.Client
	if err := cfg.ValidateAPIReady(); err != nil {
		slog.Warn("helix api disabled", slog.Any("err", err))
	} else {
		helix = twitchapi.NewClient(cfg.TwitchClientID, cfg.TwitchClientSecret)
		rewards.EnsureRewards(ctx, channelStore, helix)
		rewards.StartPoller(ctx, channelStore, registry, helix, cfg.RewardPollInterval)
		oauth.StartValidator(ctx, channelStore, helix, cfg.TokenValidateInterval)
	}

	bot := &chat.Bot{
		Client:       ircClient,
		Registry:     registry,
		Scores:       scoreStore,
		Helix:        helix,
		Channels:     channelStore,
		BotNick:      cfg.TwitchBotUsername,
		QuizCooldown: cfg.QuizCooldown,
	}
	go func() {
		if err := bot.Start(ctx); err != nil {
			slog.Error("chat bot exited with error", slog.Any("err", err))
		}
	}()

	// HTTP server (health/status/metrics)
	go func() {
		if err := server.Start(ctx, database, registry, questionStore, scoreStore, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
