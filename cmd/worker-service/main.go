package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/summarylab/summary-be/internal/config"
	"github.com/summarylab/summary-be/internal/llm"
	"github.com/summarylab/summary-be/internal/pipeline"
	"github.com/summarylab/summary-be/internal/worker"
	"github.com/summarylab/summary-be/internal/worker/storage"
	"github.com/summarylab/summary-be/shared/logger"
	"github.com/summarylab/summary-be/shared/postgresql"
	"github.com/summarylab/summary-be/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Shut down on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the summarization client
	summarizer, err := llm.NewGeminiSummarizer(ctx, appLogger.Logger, &cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize summarizer: %w", err)
	}

	appLogger.Info("Summarization client initialized",
		slog.String("model", cfg.LLM.Model),
	)

	// Assemble the task pipeline
	taskPipeline := pipeline.New(
		pipeline.NewHTTPFetcher(cfg.Pipeline.FetchTimeout, cfg.Pipeline.MaxDownloadBytes),
		pipeline.NewPdftotextExtractor(),
		summarizer,
		appLogger.Logger,
		pipeline.Config{
			MinTextChars: cfg.Pipeline.MinTextChars,
			MaxTextChars: cfg.Pipeline.MaxTextChars,
		},
	)

	// Create worker instance
	workerID := buildWorkerID()
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:            appLogger.Logger,
		Store:             storage.NewStorage(dbClient.GetDB(), appLogger.Logger, cfg.Pipeline.CompletedRetention),
		Queue:             rabbitClient,
		RabbitClient:      rabbitClient,
		Pipeline:          taskPipeline,
		WorkerID:          workerID,
		Concurrency:       cfg.Worker.Concurrency,
		JobTimeout:        cfg.Worker.JobTimeout,
		RateLimitMax:      cfg.Worker.RateLimitMax,
		RateLimitWindow:   cfg.Worker.RateLimitWindow,
		HeartbeatInterval: cfg.Worker.HeartbeatInterval,
		StalledAfter:      cfg.Worker.StalledAfter,
		BackoffBase:       cfg.Pipeline.BackoffBase,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return workerInstance.Start(gctx)
	})

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerID),
	)

	// Block until a signal arrives or the worker fails
	<-gctx.Done()

	appLogger.Info("Shutting down worker service...")

	// Give worker time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	runErr := g.Wait()
	if runErr != nil {
		appLogger.Error("Worker error",
			slog.Any("error", runErr),
		)
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")

	// A worker that lost its consumer must exit non-zero so the
	// orchestrator restarts it.
	return runErr
}

// buildWorkerID produces a broker consumer tag unique to this instance.
func buildWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		ExchangeName:      cfg.Exchange.Name,
		ExchangeType:      cfg.Exchange.Type,
		QueueName:         cfg.Queue,
		RoutingKey:        cfg.RoutingKey,
		DeadLetterQueue:   cfg.DeadLetterQueue,
		DeadLetterKey:     cfg.DeadLetterKey,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
