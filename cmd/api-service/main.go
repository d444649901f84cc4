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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/x402dev/paygate/internal/api/handler"
	"github.com/x402dev/paygate/internal/api/router"
	"github.com/x402dev/paygate/internal/archive"
	"github.com/x402dev/paygate/internal/catalog"
	"github.com/x402dev/paygate/internal/config"
	"github.com/x402dev/paygate/internal/events"
	"github.com/x402dev/paygate/internal/lifecycle"
	"github.com/x402dev/paygate/internal/metrics"
	"github.com/x402dev/paygate/internal/payment"
	"github.com/x402dev/paygate/internal/pending"
	"github.com/x402dev/paygate/shared/aptos"
	"github.com/x402dev/paygate/shared/logger"
	"github.com/x402dev/paygate/shared/postgresql"
	"github.com/x402dev/paygate/shared/rabbitmq"
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
	defaultConfigPath := os.Getenv("PAYGATE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting payment gateway",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("network", cfg.Payment.Network),
	)

	// Background task lifecycle
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Fullnode client and connectivity probe
	chainClient := aptos.NewClient(&aptos.Config{
		BaseURL:        cfg.Aptos.RPCURL,
		RequestTimeout: cfg.Aptos.RequestTimeout,
	}, appLogger.Logger)

	if chainClient.Connected(bgCtx) {
		appLogger.Info("Connected to fullnode",
			slog.String("rpc_url", cfg.Aptos.RPCURL),
		)
	} else {
		appLogger.Warn("Fullnode not reachable, payment verification will retry",
			slog.String("rpc_url", cfg.Aptos.RPCURL),
		)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	gatewayMetrics := metrics.New(registry)

	// Optional settlement receipt archive
	recorder, dbClient, err := initArchive(bgCtx, &cfg.Archive, appLogger.Logger)
	if err != nil {
		return err
	}

	// Optional lifecycle event publisher
	publisher, rabbitClient, err := initEvents(&cfg.Events, appLogger.Logger)
	if err != nil {
		return err
	}

	// Core wiring
	jobRegistry := catalog.NewRegistry(catalog.Config{
		MaxPingCount:   cfg.Jobs.MaxPingCount,
		PingTimeout:    cfg.Jobs.PingTimeout,
		PingPriceOctas: cfg.Jobs.PingPriceOctas,
	})

	store := pending.NewStore()

	verifier := payment.NewVerifier(&payment.Config{
		Ledger:           chainClient,
		RecipientAddress: cfg.Payment.RecipientAddress,
		PollInterval:     cfg.Payment.PollInterval,
		Logger:           appLogger.Logger,
	})

	coordinator := lifecycle.NewCoordinator(&lifecycle.Config{
		Registry:            jobRegistry,
		Store:               store,
		Verifier:            verifier,
		Events:              publisher,
		Archive:             recorder,
		Metrics:             gatewayMetrics,
		Logger:              appLogger.Logger,
		RecipientAddress:    cfg.Payment.RecipientAddress,
		ChainID:             cfg.Payment.ChainID,
		TokenDecimals:       cfg.Payment.TokenDecimals,
		PaymentWindow:       cfg.Payment.Window,
		InlineVerifyBudget:  cfg.Payment.InlineVerifyTimeout,
		ConfirmVerifyBudget: cfg.Payment.ConfirmVerifyTimeout,
		CleanupDelay:        cfg.Payment.CleanupDelay,
	})

	sweeper := lifecycle.NewSweeper(store, cfg.Payment.SweepInterval, publisher, gatewayMetrics, appLogger.Logger)
	go sweeper.Run(bgCtx)

	// Router
	r := initRouter(cfg, appLogger.Logger, coordinator, jobRegistry, chainClient, registry)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Stop background tasks; in-flight streams are not drained
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initArchive initializes the optional PostgreSQL receipt archive
func initArchive(ctx context.Context, cfg *config.ArchiveConfig, log *slog.Logger) (archive.Recorder, *postgresql.Client, error) {
	if !cfg.Enabled {
		return archive.Nop{}, nil, nil
	}

	client, err := postgresql.NewClient(&postgresql.Config{
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
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize archive database: %w", err)
	}

	if err := archive.EnsureSchema(ctx, client); err != nil {
		client.Close()
		return nil, nil, err
	}

	return archive.NewPostgres(client, log), client, nil
}

// initEvents initializes the optional RabbitMQ lifecycle event publisher
func initEvents(cfg *config.EventsConfig, log *slog.Logger) (events.Publisher, *rabbitmq.Client, error) {
	if !cfg.Enabled {
		return events.Nop{}, nil, nil
	}

	client, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange,
		ExchangeType:       cfg.ExchangeType,
		ExchangeDurable:    cfg.ExchangeDurable,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.RetryAttempts,
		RetryInterval:      cfg.RetryInterval,
		Heartbeat:          cfg.Heartbeat,
		PublishRetries:     cfg.PublishRetries,
		PublishRetryDelay:  cfg.PublishRetryDelay,
		PublishBackoffMult: cfg.PublishBackoffMult,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	return events.NewAMQPPublisher(client, log), client, nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, log *slog.Logger, coordinator *lifecycle.Coordinator, registry *catalog.Registry, chain *aptos.Client, gatherer *prometheus.Registry) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	deps := &handler.Dependencies{
		Logger:        log,
		Coordinator:   coordinator,
		Registry:      registry,
		Chain:         chain,
		Gatherer:      gatherer,
		ServiceName:   cfg.App.Name,
		Network:       cfg.Payment.Network,
		ChainID:       cfg.Payment.ChainID,
		Recipient:     cfg.Payment.RecipientAddress,
		TokenDecimals: cfg.Payment.TokenDecimals,
	}

	return router.SetupRouter(deps, cfg.RateLimit)
}
