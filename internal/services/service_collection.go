package services

import (
	"context"

	"konfihub/internal/cache"
	"konfihub/internal/config"
	"konfihub/internal/database"
	"konfihub/internal/events"
	"konfihub/internal/repositories"

	"go.uber.org/zap"
)

// ServiceCollection wires the repositories and services together.
type ServiceCollection struct {
	BadgeService   BadgeService
	RequestService RequestService
	LedgerService  LedgerService
	PhotoService   PhotoService
	ActivityRepo   repositories.ActivityRepository

	Cache     cache.Cache
	EventBus  events.EventBus
	Logger    *zap.Logger
	DBManager *database.Manager
}

// NewServiceCollection builds the full dependency graph.
func NewServiceCollection(dbManager *database.Manager, cfg *config.Config, logger *zap.Logger) (*ServiceCollection, error) {
	// Cache: Redis when configured, in-memory otherwise.
	var cacheImpl cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			return nil, err
		}
		cacheImpl = redisCache
	} else {
		logger.Info("Redis not configured, using in-memory cache")
		cacheImpl = cache.NewMemoryCache()
	}

	eventBus := events.NewEventBus(logger)

	ledgerRepo := repositories.NewLedgerRepository(dbManager, logger)
	badgeRepo := repositories.NewBadgeRepository(dbManager, logger)
	requestRepo := repositories.NewRequestRepository(dbManager, logger)
	activityRepo := repositories.NewActivityRepository(dbManager, logger)

	evaluator := NewEvaluator(logger)
	badgeService := NewBadgeService(badgeRepo, ledgerRepo, evaluator, cacheImpl, cfg.Redis.TTL, eventBus, logger)
	ledgerService := NewLedgerService(ledgerRepo, activityRepo, badgeService, eventBus, logger)

	photoService, err := NewPhotoService(&cfg.Cloudinary, logger)
	if err != nil {
		logger.Warn("Photo storage not configured, request photos disabled", zap.Error(err))
		photoService = NewDisabledPhotoService()
	}

	requestService := NewRequestService(requestRepo, activityRepo, badgeService, photoService, eventBus, logger)

	return &ServiceCollection{
		BadgeService:   badgeService,
		RequestService: requestService,
		LedgerService:  ledgerService,
		PhotoService:   photoService,
		ActivityRepo:   activityRepo,
		Cache:          cacheImpl,
		EventBus:       eventBus,
		Logger:         logger,
		DBManager:      dbManager,
	}, nil
}

// Health checks the collection's infrastructure dependencies.
func (sc *ServiceCollection) Health(ctx context.Context) error {
	if err := sc.DBManager.Health(ctx); err != nil {
		return err
	}
	return sc.Cache.Health(ctx)
}

// Shutdown releases infrastructure resources.
func (sc *ServiceCollection) Shutdown() {
	if err := sc.Cache.Close(); err != nil {
		sc.Logger.Warn("Failed to close cache", zap.Error(err))
	}
}
