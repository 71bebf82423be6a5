package di

import (
	"time"

	"github.com/hellyrj/smart-parking-system/internal/gateway"
	"github.com/hellyrj/smart-parking-system/internal/handler"
	"github.com/hellyrj/smart-parking-system/internal/repository"
	"github.com/hellyrj/smart-parking-system/internal/service"
	"github.com/hellyrj/smart-parking-system/internal/worker"
	"github.com/hellyrj/smart-parking-system/pkg/database"
	"github.com/hellyrj/smart-parking-system/pkg/redis"
	"github.com/shopspring/decimal"
)

// Container holds all dependencies for the parking service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	TxManager        repository.TxManager
	SpaceRepo        repository.SpaceRepository
	BookingRepo      *repository.PostgresBookingRepository
	ChargeRepo       repository.ChargeRepository
	NotificationRepo repository.NotificationRepository

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	PaymentService      service.PaymentService
	NotificationService service.NotificationService
	BookingService      service.BookingService
	SearchService       service.SearchService
	OwnerService        service.OwnerService

	// Workers
	ExpiryWorker *worker.ExpiryWorker

	// Handlers
	HealthHandler       *handler.HealthHandler
	BookingHandler      *handler.BookingHandler
	SearchHandler       *handler.SearchHandler
	OwnerHandler        *handler.OwnerHandler
	NotificationHandler *handler.NotificationHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB *database.PostgresDB
	// Redis is optional; without it search is uncached and every replica sweeps
	Redis          *redis.Client
	EventPublisher service.EventPublisher
	// QueuePublisher is optional; without it notifications are only stored
	QueuePublisher service.QueuePublisher
	PaymentRouter  *gateway.Router

	ReservationTTL  time.Duration
	PlatformFeeRate decimal.Decimal
	Location        *time.Location

	PaymentConfig      *service.PaymentServiceConfig
	SearchConfig       *service.SearchServiceConfig
	NotificationConfig *service.NotificationServiceConfig
	ExpiryConfig       *worker.ExpiryWorkerConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	pool := cfg.DB.Pool()

	c := &Container{
		DB:               cfg.DB,
		Redis:            cfg.Redis,
		TxManager:        repository.NewPostgresTxManager(pool),
		SpaceRepo:        repository.NewPostgresSpaceRepository(pool),
		BookingRepo:      repository.NewPostgresBookingRepository(pool),
		ChargeRepo:       repository.NewPostgresChargeRepository(pool),
		NotificationRepo: repository.NewPostgresNotificationRepository(pool),
		EventPublisher:   cfg.EventPublisher,
	}
	if c.EventPublisher == nil {
		c.EventPublisher = service.NewNoOpEventPublisher()
	}

	// Interface values stay nil unless the backing client exists
	var searchCache repository.SearchCache
	var locker worker.Locker
	redisDep := handler.Dependency{Name: "redis", Optional: true}
	if cfg.Redis != nil {
		searchCache = repository.NewRedisSearchCache(cfg.Redis)
		locker = worker.NewRedisLocker(cfg.Redis)
		redisDep.Checker = cfg.Redis
	}

	// Initialize services
	c.PaymentService = service.NewPaymentService(c.ChargeRepo, cfg.PaymentRouter, cfg.PaymentConfig)
	c.NotificationService = service.NewNotificationService(c.NotificationRepo, cfg.QueuePublisher, cfg.NotificationConfig)
	c.BookingService = service.NewBookingService(
		c.TxManager,
		c.BookingRepo,
		c.PaymentService,
		c.NotificationService,
		c.EventPublisher,
		&service.BookingServiceConfig{
			ReservationTTL:  cfg.ReservationTTL,
			PlatformFeeRate: cfg.PlatformFeeRate,
		},
	)
	c.SearchService = service.NewSearchService(c.SpaceRepo, searchCache, cfg.SearchConfig)
	c.OwnerService = service.NewOwnerService(c.BookingRepo, c.ChargeRepo, &service.OwnerServiceConfig{
		PlatformFeeRate: cfg.PlatformFeeRate,
		Location:        cfg.Location,
	})

	// Initialize workers
	c.ExpiryWorker = worker.NewExpiryWorker(c.BookingRepo, c.BookingService, locker, cfg.ExpiryConfig)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(
		handler.Dependency{Name: "database", Checker: cfg.DB},
		redisDep,
	)
	c.BookingHandler = handler.NewBookingHandler(c.BookingService)
	c.SearchHandler = handler.NewSearchHandler(c.SearchService)
	c.OwnerHandler = handler.NewOwnerHandler(c.OwnerService, c.BookingService)
	c.NotificationHandler = handler.NewNotificationHandler(c.NotificationService)

	return c
}
