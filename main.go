package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mealdrop-hq/mealie-importer/pkg/ai"
	"github.com/mealdrop-hq/mealie-importer/pkg/config"
	"github.com/mealdrop-hq/mealie-importer/pkg/health"
	"github.com/mealdrop-hq/mealie-importer/pkg/importer"
	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
	"github.com/mealdrop-hq/mealie-importer/pkg/mealie"
	"github.com/mealdrop-hq/mealie-importer/pkg/retryqueue"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	// Set up context with cancellation on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := mealie.New(cfg.MealieBaseURL, cfg.MealieAPIToken, cfg.MealieTimeout, appLogger)

	var extractor importer.Extractor
	if cfg.AIEnabled() {
		extractor = ai.NewExtractor(cfg.OpenAIAPIKey, cfg.AIModel, cfg.PageFetchTimeout, appLogger)
		appLogger.InfoWith(logger.AI, "AI fallback enabled with model %s", cfg.AIModel)
	} else {
		appLogger.Notice("OPENAI_API_KEY not set, AI fallback disabled")
	}

	// Pick the retry task store backend
	var store retryqueue.Store
	switch cfg.RetryStore {
	case "redis":
		redisStore := retryqueue.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, appLogger)
		defer func() {
			if err := redisStore.Close(); err != nil {
				appLogger.ErrorWith(logger.Retry, "Error closing Redis store: %v", err)
			}
		}()
		store = redisStore
	default:
		store = retryqueue.NewMemoryStore()
	}

	queue := retryqueue.New(store, appLogger, cfg.MaxRetryAttempts, cfg.RetryScanInterval)
	tags := importer.NewReconciler(client, appLogger)
	notifier := importer.NewLogNotifier(appLogger)

	service := importer.NewService(client, extractor, tags, queue, notifier, appLogger, importer.Options{
		DefaultTags: cfg.DefaultTags,
		AckTimeout:  cfg.AckTimeout,
		WorkerCount: cfg.WorkerCount,
	})

	healthServer := health.NewServer(cfg.MetricsPort, client, queue, appLogger)
	go healthServer.Start()

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		appLogger.Notice("Received termination signal, shutting down gracefully...")
		cancel()
	}()

	queue.Start(ctx)
	service.Start(ctx)

	<-ctx.Done()
	queue.Stop()
	service.Wait()
	appLogger.Info("Shutdown complete")
}
