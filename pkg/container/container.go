package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"library-backend/internal/config"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/infrastructure/queue"
	"library-backend/pkg/cache"
	"library-backend/pkg/jwt"
	"library-backend/pkg/logger"

	borrowingEvent "library-backend/internal/domains/borrowing/event"
	borrowingHandler "library-backend/internal/domains/borrowing/handler"
	borrowingRepo "library-backend/internal/domains/borrowing/repository"
	borrowingService "library-backend/internal/domains/borrowing/service"

	notificationHandler "library-backend/internal/domains/notification/handler"
	notificationJob "library-backend/internal/domains/notification/job"
	notificationRepo "library-backend/internal/domains/notification/repository"
	notificationService "library-backend/internal/domains/notification/service"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds every dependency of the application.
// Build order: config -> infrastructure -> repositories -> services -> handlers.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	Redis       *infraCache.RedisClient
	Cache       cache.Cache
	QueueClient *asynq.Client
	JWTManager  *jwt.Manager
	Clock       borrowingService.Clock

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	BorrowingRepo    borrowingRepo.Repository
	Catalog          borrowingRepo.Catalog
	NotificationRepo notificationRepo.NotificationRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	EventEmitter        borrowingEvent.Emitter
	BorrowingService    borrowingService.ServiceInterface
	NotificationService notificationService.NotificationService

	// ========================================
	// HANDLER LAYER (HTTP + jobs)
	// ========================================
	BorrowingHandler    *borrowingHandler.BorrowingHandler
	NotificationHandler notificationHandler.NotificationHandler

	BorrowingEventJob *notificationJob.BorrowingEventHandler
	DueReminderJob    *notificationJob.DueReminderHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

func NewContainer() (*Container, error) {
	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)
	log.Info().Str("env", cfg.App.Environment).Msg("Config loaded")

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	// ========================================
	// STEP 3: INITIALIZE CACHE + QUEUE CLIENT
	// ========================================
	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		// Redis only backs the availability cache and the event queue;
		// the lending engine keeps working without it
		log.Warn().Err(err).Msg("Redis connection failed (non-critical)")
	} else {
		c.Cache = infraCache.NewRedisCache(c.Redis.Client)
	}

	c.QueueClient = queue.NewClient(cfg.Redis)
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	c.Clock = borrowingService.SystemClock(cfg.Borrowing.Location())

	// ========================================
	// STEP 4..6: REPOSITORIES, SERVICES, HANDLERS
	// ========================================
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	log.Info().Msg("DI Container initialized")
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.BorrowingRepo = borrowingRepo.NewPostgresRepository(pool)
	c.Catalog = borrowingRepo.NewPostgresCatalog(pool)
	c.NotificationRepo = notificationRepo.NewNotificationRepository(pool)
}

func (c *Container) initServices() {
	if c.Config.Queue.EventsEnabled {
		c.EventEmitter = borrowingEvent.NewAsynqEmitter(c.QueueClient)
	} else {
		c.EventEmitter = borrowingEvent.LogEmitter{}
	}

	opts := []borrowingService.Option{borrowingService.WithClock(c.Clock)}
	if c.Cache != nil {
		opts = append(opts, borrowingService.WithAvailabilityCache(c.Cache, c.Config.Borrowing.AvailabilityCacheTTL))
	}

	c.BorrowingService = borrowingService.NewBorrowingService(
		c.BorrowingRepo,
		c.Catalog,
		c.EventEmitter,
		opts...,
	)

	c.NotificationService = notificationService.NewNotificationService(c.NotificationRepo)
}

func (c *Container) initHandlers() {
	c.BorrowingHandler = borrowingHandler.NewBorrowingHandler(c.BorrowingService)
	c.NotificationHandler = notificationHandler.NewNotificationHandler(c.NotificationService)

	c.BorrowingEventJob = notificationJob.NewBorrowingEventHandler(c.NotificationService)
	c.DueReminderJob = notificationJob.NewDueReminderHandler(c.BorrowingService, c.EventEmitter, c.Clock)
}

// ========================================
// CLEANUP
// ========================================

func (c *Container) Cleanup() {
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close queue client")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis")
		}
	}

	if c.DB != nil {
		_ = c.DB.Close()
	}

	log.Info().Msg("Container cleanup completed")
}
