package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hellyrj/smart-parking-system/internal/di"
	"github.com/hellyrj/smart-parking-system/internal/gateway"
	"github.com/hellyrj/smart-parking-system/internal/metrics"
	"github.com/hellyrj/smart-parking-system/internal/service"
	"github.com/hellyrj/smart-parking-system/internal/worker"
	"github.com/hellyrj/smart-parking-system/migrations"
	"github.com/hellyrj/smart-parking-system/pkg/config"
	"github.com/hellyrj/smart-parking-system/pkg/database"
	"github.com/hellyrj/smart-parking-system/pkg/logger"
	"github.com/hellyrj/smart-parking-system/pkg/middleware"
	"github.com/hellyrj/smart-parking-system/pkg/rabbitmq"
	pkgredis "github.com/hellyrj/smart-parking-system/pkg/redis"
	"github.com/hellyrj/smart-parking-system/pkg/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Smart Parking Service...", zap.String("version", cfg.App.Version))

	ctx := context.Background()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Telemetry disabled", zap.Error(err))
	}
	if err := metrics.Init(); err != nil {
		appLog.Warn("Failed to register metrics", zap.Error(err))
	}

	feeRate, err := cfg.Billing.FeeRate()
	if err != nil {
		appLog.Fatal("Invalid billing configuration", zap.Error(err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		ApplicationName: cfg.App.Name,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, db); err != nil {
			appLog.Fatal("Database migration failed", zap.Error(err))
		}
	}

	// Initialize Redis (optional)
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:          cfg.Redis.Host,
			Port:          cfg.Redis.Port,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			PoolSize:      cfg.Redis.PoolSize,
			MinIdleConns:  cfg.Redis.MinIdleConns,
			DialTimeout:   cfg.Redis.DialTimeout,
			ReadTimeout:   cfg.Redis.ReadTimeout,
			WriteTimeout:  cfg.Redis.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: 100 * time.Millisecond,
		})
		if err != nil {
			appLog.Warn("Redis connection failed, running without cache and sweep lock", zap.Error(err))
			redisClient = nil
		} else {
			appLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.EventTopic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, using no-op publisher", zap.Error(err))
		} else {
			eventPublisher = kafkaPublisher
			appLog.Info("Kafka event publisher connected")
		}
	}

	// Initialize RabbitMQ notification dispatch (optional)
	var queuePublisher service.QueuePublisher
	var rabbit *rabbitmq.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbit, err = rabbitmq.NewPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			appLog.Warn("RabbitMQ connection failed, notifications are stored only", zap.Error(err))
		} else {
			queuePublisher = rabbit
			appLog.Info("RabbitMQ notification publisher connected")
		}
	}

	// Initialize card gateway
	cardGateway, err := gateway.NewPaymentGateway(cfg.Payment.Gateway, &gateway.GatewayConfig{
		SecretKey:   cfg.Payment.StripeSecretKey,
		Environment: cfg.Payment.Environment,
	})
	if err != nil {
		appLog.Fatal("Failed to create payment gateway", zap.Error(err))
	}
	appLog.Info("Payment gateway ready", zap.String("card_gateway", cardGateway.Name()))

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:              db,
		Redis:           redisClient,
		EventPublisher:  eventPublisher,
		QueuePublisher:  queuePublisher,
		PaymentRouter:   gateway.NewRouter(gateway.NewWalletGateway(), cardGateway),
		ReservationTTL:  cfg.Booking.ReservationTTL,
		PlatformFeeRate: feeRate,
		PaymentConfig: &service.PaymentServiceConfig{
			Currency: cfg.Billing.Currency,
		},
		SearchConfig: &service.SearchServiceConfig{
			MaxRadiusKm:  cfg.Search.MaxRadiusKm,
			DefaultLimit: cfg.Search.DefaultLimit,
			CacheTTL:     cfg.Search.CacheTTL,
		},
		NotificationConfig: &service.NotificationServiceConfig{
			Queue: cfg.RabbitMQ.NotificationQueue,
		},
		ExpiryConfig: &worker.ExpiryWorkerConfig{
			ScanInterval: cfg.Booking.ExpirySweepInterval,
			BatchSize:    cfg.Booking.ExpirySweepBatch,
			LockTTL:      cfg.Booking.SweepLockTTL,
		},
	})

	// Start background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	if err := container.ExpiryWorker.Start(workerCtx); err != nil {
		appLog.Fatal("Failed to start expiry worker", zap.Error(err))
	}

	router := setupRouter(cfg, container, appLog)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Smart Parking Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	container.ExpiryWorker.Stop()
	stopWorkers()

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	// In-flight notifications still need the database and broker
	container.NotificationService.Wait()

	if err := eventPublisher.Close(); err != nil {
		appLog.Warn("Failed to close event publisher", zap.Error(err))
	}
	if rabbit != nil {
		if err := rabbit.Close(); err != nil {
			appLog.Warn("Failed to close RabbitMQ publisher", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			appLog.Warn("Failed to close Redis", zap.Error(err))
		}
	}
	db.Close()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn("Failed to flush telemetry", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

func runMigrations(ctx context.Context, db *database.PostgresDB) error {
	migrator, err := database.NewMigrator(db.Pool(), migrations.FS, ".")
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Up(ctx); err != nil {
		return err
	}
	version, err := migrator.Version(ctx)
	if err != nil {
		return err
	}
	logger.Get().Info("Database migrated", zap.Int64("version", version))
	return nil
}

func setupRouter(cfg *config.Config, container *di.Container, appLog *logger.Logger) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))
	router.Use(middleware.Logger(appLog))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	router.GET("/metrics", func(c *gin.Context) {
		stats := container.DB.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db_pool": gin.H{
				"total_conns":    stats.TotalConns(),
				"acquired_conns": stats.AcquiredConns(),
				"idle_conns":     stats.IdleConns(),
				"max_conns":      stats.MaxConns(),
			},
			"expiry_worker": container.ExpiryWorker.GetStats(),
		})
	})

	auth := middleware.Auth(&middleware.AuthConfig{
		JWTSecret:   cfg.Auth.JWTSecret,
		Issuer:      cfg.Auth.JWTIssuer,
		TrustHeader: cfg.Auth.TrustHeader,
	})

	// Without Redis, retries are not deduplicated
	var idempotency gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if container.Redis != nil {
		idempotency = middleware.Idempotency(middleware.DefaultIdempotencyConfig(middleware.NewRedisIdempotencyStore(container.Redis.Client())))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/parking/search", container.SearchHandler.Search)

		bookings := v1.Group("/bookings", auth)
		{
			bookings.POST("", idempotency, container.BookingHandler.Reserve)
			bookings.GET("", container.BookingHandler.ListSessions)
			bookings.GET("/active", container.BookingHandler.GetActiveBooking)
			bookings.POST("/:id/confirm", container.BookingHandler.Confirm)
			bookings.POST("/:id/cancel", container.BookingHandler.Cancel)
			bookings.POST("/:id/end", idempotency, container.BookingHandler.EndSession)
			bookings.POST("/:id/pay", idempotency, container.BookingHandler.PaySession)
			bookings.GET("/:id/status", container.BookingHandler.CheckStatus)
		}

		owner := v1.Group("/owner", auth)
		{
			owner.GET("/sessions/active", container.OwnerHandler.ActiveSessions)
			owner.GET("/sessions/reservations", container.OwnerHandler.Reservations)
			owner.POST("/sessions/:id/confirm-arrival", container.OwnerHandler.ConfirmArrival)
			owner.POST("/sessions/:id/cancel", container.OwnerHandler.Cancel)
			owner.GET("/earnings", container.OwnerHandler.Earnings)
		}

		notifications := v1.Group("/notifications", auth)
		{
			notifications.GET("", container.NotificationHandler.List)
			notifications.POST("/read-all", container.NotificationHandler.MarkAllRead)
			notifications.POST("/:id/read", container.NotificationHandler.MarkRead)
		}
	}

	return router
}
