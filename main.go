package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fhayvy/CodeEntry/internal/di"
	"github.com/fhayvy/CodeEntry/internal/escrow"
	"github.com/fhayvy/CodeEntry/internal/metrics"
	"github.com/fhayvy/CodeEntry/internal/repository"
	"github.com/fhayvy/CodeEntry/internal/service"
	"github.com/fhayvy/CodeEntry/pkg/config"
	"github.com/fhayvy/CodeEntry/pkg/database"
	"github.com/fhayvy/CodeEntry/pkg/logger"
	pkgredis "github.com/fhayvy/CodeEntry/pkg/redis"
	"github.com/fhayvy/CodeEntry/pkg/retry"
	"github.com/fhayvy/CodeEntry/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Ticket Ledger Service...",
		zap.String("store", cfg.Ledger.Store),
		zap.String("escrow", cfg.Escrow.Provider),
	)

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	}
	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to initialize metrics", zap.Error(err))
	}

	// Open the ledger store
	ledgerRepo, closeStore, err := openLedger(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Ledger store unavailable", zap.Error(err))
	}
	defer closeStore()

	// Redis backs request idempotency only; the ledger works without it
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, pkgredis.Config{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			Retry:        retry.DefaultPolicy(),
			Instrument:   cfg.OTel.Enabled,
		})
		if err != nil {
			appLog.Warn("Redis connection failed, idempotency disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info("Redis connected", zap.String("addr", redisClient.Addr()))
		}
	}

	// Initialize Kafka event publisher
	var eventPublisher service.LedgerEventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.LedgerTopic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, using no-op publisher", zap.Error(err))
		} else {
			eventPublisher = kafkaPublisher
			appLog.Info("Kafka event publisher connected", zap.String("topic", cfg.Kafka.LedgerTopic))
		}
	}

	// Initialize escrow
	esc, err := newEscrow(cfg)
	if err != nil {
		appLog.Fatal("Escrow unavailable", zap.Error(err))
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		Redis:          redisClient,
		LedgerRepo:     ledgerRepo,
		Escrow:         esc,
		EventPublisher: eventPublisher,
		Logger:         appLog,
		ServiceConfig: &service.TicketServiceConfig{
			MaxMintCapacity: cfg.Ledger.MaxMintCapacity,
			IncludeDigest:   cfg.Kafka.Enabled,
		},
	})
	defer container.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, container, appLog)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Ticket Ledger Service listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

// openLedger builds the configured store. The returned cleanup releases
// resources the store does not own; the store itself is closed by the container.
func openLedger(ctx context.Context, cfg *config.Config, appLog *logger.Logger) (repository.LedgerRepository, func(), error) {
	switch cfg.Ledger.Store {
	case config.StoreSQLite:
		repo, err := repository.OpenSQLiteLedgerRepository(ctx, cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		appLog.Info("SQLite ledger opened", zap.String("path", cfg.Ledger.SQLitePath))
		return repo, func() {}, nil

	case config.StorePostgres:
		dbCfg := database.DefaultPostgresConfig()
		dbCfg.Host = cfg.Database.Host
		dbCfg.Port = cfg.Database.Port
		dbCfg.User = cfg.Database.User
		dbCfg.Password = cfg.Database.Password
		dbCfg.Database = cfg.Database.DBName
		dbCfg.SSLMode = cfg.Database.SSLMode
		if cfg.Database.MaxConns > 0 {
			dbCfg.MaxConns = int32(cfg.Database.MaxConns)
		}
		if cfg.Database.MinConns > 0 {
			dbCfg.MinConns = int32(cfg.Database.MinConns)
		}
		if cfg.Database.ConnMaxLifetime > 0 {
			dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		}
		if cfg.Database.ConnMaxIdleTime > 0 {
			dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		}
		dbCfg.EnableTracing = cfg.OTel.Enabled

		db, err := database.NewPostgres(ctx, dbCfg)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresLedgerRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		appLog.Info("PostgreSQL ledger connected",
			zap.Int32("max_conns", dbCfg.MaxConns),
			zap.Int32("min_conns", dbCfg.MinConns),
		)
		return repo, db.Close, nil

	default:
		appLog.Warn("Using in-memory ledger; state is lost on restart")
		return repository.NewMemoryLedgerRepository(), func() {}, nil
	}
}

// newEscrow selects the configured escrow adapter
func newEscrow(cfg *config.Config) (escrow.Escrow, error) {
	switch cfg.Escrow.Provider {
	case config.EscrowStripe:
		return escrow.NewStripeEscrow(&escrow.StripeEscrowConfig{
			SecretKey:     cfg.Escrow.StripeSecretKey,
			Currency:      cfg.Escrow.StripeCurrency,
			PaymentMethod: cfg.Escrow.StripePaymentMethod,
		})
	default:
		mockCfg := escrow.DefaultMockEscrowConfig()
		mockCfg.SuccessRate = cfg.Escrow.MockSuccessRate
		mockCfg.DelayMs = cfg.Escrow.MockDelayMs
		return escrow.NewMockEscrow(mockCfg), nil
	}
}
