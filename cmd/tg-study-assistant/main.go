package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tg-study-assistant/pkg/bot/dispatch"
	"github.com/smith3v/tg-study-assistant/pkg/bot/handlers"
	"github.com/smith3v/tg-study-assistant/pkg/bot/session"
	"github.com/smith3v/tg-study-assistant/pkg/config"
	"github.com/smith3v/tg-study-assistant/pkg/db"
	"github.com/smith3v/tg-study-assistant/pkg/llm"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
	"github.com/smith3v/tg-study-assistant/pkg/store"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.Error("failed to load .env", "error", err)
	}
	if err := config.LoadConfig("config.json"); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Configure(logger.Options{
		Level:  config.AppConfig.Logging.Level,
		File:   config.AppConfig.Logging.File,
		Format: config.AppConfig.Logging.Format,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the bot and blocks until ctx is canceled. Storage is closed on
// every return path.
func run(ctx context.Context) error {
	backend, err := openBackend(config.AppConfig.Storage)
	if err != nil {
		logger.Error("failed to open storage", "driver", config.AppConfig.Storage.Driver, "error", err)
		return err
	}
	st := store.New(backend)
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()
	if err := st.Load(ctx); err != nil {
		logger.Error("failed to load bot data", "error", err)
		return err
	}

	completer, err := newCompleter(config.AppConfig.LLM)
	if err != nil {
		logger.Error("failed to create completion client", "error", err)
		return err
	}

	sessions := session.NewManager(session.Options{IdleTimeout: config.AppConfig.Drill.IdleTimeout()})
	dispatcher := dispatch.New(st, sessions, completer, dispatch.Options{
		DefaultDrillCount: config.AppConfig.Drill.DefaultCount,
	})
	h := handlers.New(dispatcher)

	b, err := bot.New(config.AppConfig.Telegram.Token, bot.WithDefaultHandler(h.DefaultHandler))
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		return err
	}
	h.Register(b)
	if err := h.PublishCommands(ctx, b); err != nil {
		logger.Warn("failed to publish command menu", "error", err)
	}

	go sessions.StartSweeper(ctx, handlers.NewSender(b))

	logger.Info("Starting bot...", "storage", config.AppConfig.Storage.Driver, "model", config.AppConfig.LLM.Model)
	b.Start(ctx)
	logger.Info("Bot stopped")
	return nil
}

// openBackend picks the JSON file or the database row for the bot document.
func openBackend(cfg config.StorageConfig) (store.Backend, error) {
	if cfg.Driver == "file" {
		return store.NewFileBackend(cfg.Path), nil
	}
	if err := db.InitDB(cfg); err != nil {
		return nil, err
	}
	return db.NewSnapshotBackend(db.DB), nil
}

func newCompleter(cfg config.LLMConfig) (llm.Completer, error) {
	client, err := llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts
	return llm.WithRetry(client, retry), nil
}
