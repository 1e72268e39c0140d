package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/alexcherry/audiocast/internal/api/handler"
	"github.com/alexcherry/audiocast/internal/api/router"
	"github.com/alexcherry/audiocast/internal/config"
	"github.com/alexcherry/audiocast/internal/domain"
	"github.com/alexcherry/audiocast/internal/fetcher"
	"github.com/alexcherry/audiocast/internal/jobs"
	"github.com/alexcherry/audiocast/internal/lm"
	"github.com/alexcherry/audiocast/internal/storage"
	"github.com/alexcherry/audiocast/internal/tts"
	"github.com/alexcherry/audiocast/shared/logger"
	"github.com/alexcherry/audiocast/shared/postgresql"
	"github.com/alexcherry/audiocast/shared/rabbitmq"
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

	defaultConfigPath := os.Getenv("TTS_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/tts-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
	})

	appLogger.Info("Starting TTS service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// PostgreSQL
	db, err := postgresql.Connect(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Std(),
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime.Std(),
	}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	store := storage.NewStore(db, appLogger)
	if err := store.InitSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Optional lifecycle event publisher
	var publisher jobs.EventPublisher
	var amqpPublisher *rabbitmq.Publisher
	if cfg.RabbitMQ.Enabled {
		amqpPublisher, err = rabbitmq.NewPublisher(&rabbitmq.Config{
			Host:       cfg.RabbitMQ.Host,
			Port:       cfg.RabbitMQ.Port,
			User:       cfg.RabbitMQ.User,
			Password:   cfg.RabbitMQ.Password,
			VHost:      cfg.RabbitMQ.VHost,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			Heartbeat:  cfg.RabbitMQ.Heartbeat.Std(),
		}, appLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ publisher: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	// Capability ports. The article fetcher is optional: without an API key
	// the service starts degraded and items fail with a typed error.
	var articleFetcher domain.ArticleFetcher
	if cfg.Backends.FirecrawlAPIKey != "" {
		articleFetcher, err = fetcher.NewClient(cfg.Backends.FirecrawlBaseURL, cfg.Backends.FirecrawlAPIKey)
		if err != nil {
			return fmt.Errorf("failed to initialize fetcher: %w", err)
		}
	} else {
		appLogger.Warn("FIRECRAWL_API_KEY not set, article fetching disabled")
	}

	lmClient := lm.NewClient(cfg.Backends.LmBaseURL, cfg.Backends.LmHTTPTimeout.Std())

	speechClient, err := tts.NewClient(cfg.Backends.TtsBaseURL, cfg.Processing.ArtifactsDir, cfg.Processing.VoiceMaxBytes)
	if err != nil {
		return fmt.Errorf("failed to initialize speech engine: %w", err)
	}

	jobService := jobs.NewService(&jobs.Config{
		Logger:           appLogger,
		Store:            store,
		Fetcher:          articleFetcher,
		Speech:           speechClient,
		Lm:               lmClient,
		Publisher:        publisher,
		URLConcurrency:   cfg.Processing.URLConcurrency,
		FetchTimeout:     cfg.Processing.FetchTimeout.Std(),
		SynthesisTimeout: cfg.Processing.SynthesisTimeout.Std(),
		LmTimeout:        cfg.Processing.LmTimeout.Std(),
	})

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger:            appLogger,
		Store:             store,
		Service:           jobService,
		Lm:                lmClient,
		FetcherConfigured: articleFetcher != nil,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("TTS service is running",
		slog.String("address", addr),
		slog.Int("url_concurrency", cfg.Processing.URLConcurrency),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.String("error", err.Error()),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}
