package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rewired-gh/cricketoracle/internal/config"
	"github.com/rewired-gh/cricketoracle/internal/dataset"
	"github.com/rewired-gh/cricketoracle/internal/logger"
	"github.com/rewired-gh/cricketoracle/internal/models"
	"github.com/rewired-gh/cricketoracle/internal/storage"
	"github.com/rewired-gh/cricketoracle/internal/telegram"
	"github.com/rewired-gh/cricketoracle/internal/web"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	// The service resolves the dataset next to its own executable
	src, err := dataset.ResolvePath(cfg.Dataset.Path, cfg.Dataset.RelativeToExecutable)
	if err != nil {
		logger.Fatal("Failed to resolve dataset path: %v", err)
	}
	state := storage.NewState(src, func(ctx context.Context) ([]models.MatchRecord, error) {
		return dataset.Load(ctx, src,
			dataset.WithComma(cfg.Comma()),
			dataset.WithTimeout(cfg.Dataset.Timeout),
			dataset.WithRetry(cfg.Dataset.MaxRetries, cfg.Dataset.RetryDelayBase),
		)
	})

	opts := web.Options{HistoryLimit: cfg.Storage.HistoryLimit}

	// Initialize prediction history
	if cfg.Storage.HistoryPath != "" {
		history, err := storage.OpenHistory(cfg.Storage.HistoryPath, cfg.Storage.MaxHistory)
		if err != nil {
			logger.Fatal("Failed to initialize prediction history: %v", err)
		}
		defer func() {
			if err := history.Close(); err != nil {
				logger.Error("Failed to close prediction history: %v", err)
			}
		}()
		opts.History = history
		logger.Info("Recording predictions to %s", cfg.Storage.HistoryPath)
	}

	// Initialize Telegram client
	if cfg.Telegram.Enabled {
		telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		opts.Notifier = telegramClient
		opts.NotifyPredictions = cfg.Telegram.NotifyPredict
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial load. A failure is reported and the service keeps running so the
	// data can be fixed and reloaded from the page.
	if _, err := state.Reload(ctx); err != nil {
		logger.Error("Initial load failed: %v", err)
	}

	srv, err := web.NewServer(state, opts)
	if err != nil {
		logger.Fatal("Failed to initialize web server: %v", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received, cleaning up...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown failed: %v", err)
		}
	}()

	logger.Info("Serving predictions on %s (dataset: %s)", cfg.Server.Addr, src)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("HTTP server failed: %v", err)
	}
	logger.Info("Service stopped")
}
