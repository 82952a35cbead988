package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/examhub-api/internal/handler"
	"github.com/noah-isme/examhub-api/internal/models"
	"github.com/noah-isme/examhub-api/internal/repository"
	"github.com/noah-isme/examhub-api/internal/service"
	"github.com/noah-isme/examhub-api/pkg/cache"
	"github.com/noah-isme/examhub-api/pkg/config"
	"github.com/noah-isme/examhub-api/pkg/database"
	"github.com/noah-isme/examhub-api/pkg/jobs"
	"github.com/noah-isme/examhub-api/pkg/ratelimit"
	"github.com/noah-isme/examhub-api/pkg/storage"
)

const limiterSweepInterval = 5 * time.Minute

type documentBackend interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, statuses ...models.DocumentStatus) ([]models.Document, error)
	SetStatus(ctx context.Context, id string, change models.StatusChange) error
	IncrementDownloads(ctx context.Context, id string) (int64, error)
	AdjustFavorites(ctx context.Context, id string, delta int64) (int64, error)
	SetFavoriteCount(ctx context.Context, id string, count int64) error
	Delete(ctx context.Context, id string) error
}

type favoriteBackend interface {
	Exists(ctx context.Context, userID, documentID string) (bool, error)
	Add(ctx context.Context, userID, documentID string) (bool, error)
	Remove(ctx context.Context, userID, documentID string) (bool, error)
	Count(ctx context.Context, documentID string) (int64, error)
	ListForUser(ctx context.Context, userID string) ([]models.FavoriteEntry, error)
	PurgeDocument(ctx context.Context, documentID string) (int64, error)
}

type auditBackend interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// app holds every long-lived collaborator of the server.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db    *sqlx.DB
	redis *redis.Client
	queue *jobs.Queue

	metrics *service.MetricsService
	tokens  *service.TokenService
	limiter *ratelimit.Limiter
	effects *service.SideEffects

	catalog    *handler.CatalogHandler
	documents  *handler.DocumentHandler
	favorites  *handler.FavoriteHandler
	moderation *handler.ModerationHandler
	taxonomy   *handler.TaxonomyHandler
	system     *handler.MetricsHandler
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logr,
		metrics: service.NewMetricsService(),
		tokens: service.NewTokenService(service.TokenConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
			Expiry: cfg.JWT.Expiration,
		}),
	}
	checks := map[string]handler.ReadinessCheck{}

	var (
		docs      documentBackend
		favorites favoriteBackend
		audit     auditBackend
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				a.close(ctx)
				return nil, err
			}
		}
		docs = repository.NewDocumentRepository(db)
		favorites = repository.NewFavoriteRepository(db)
		audit = repository.NewAuditRepository(db)
		checks["database"] = db.PingContext
	case config.BackendMemory, "":
		docs = repository.NewMemoryDocumentRepository()
		favorites = repository.NewMemoryFavoriteRepository()
		audit = repository.NewMemoryAuditRepository()
		logr.Warn("using in-memory document store, data is lost on restart")
	default:
		return nil, fmt.Errorf("unknown document store %q", cfg.Storage.Backend)
	}

	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	var kv service.CacheRepository = repository.NewMemoryCacheRepository()
	if client != nil {
		a.redis = client
		kv = repository.NewCacheRepository(client, logr)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	cacheSvc := service.NewCacheService(kv, a.metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)

	local, err := storage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	presigner, err := storage.NewS3Presigner(ctx, cfg.S3)
	if err != nil && !errors.Is(err, storage.ErrS3Disabled) {
		a.close(ctx)
		return nil, err
	}
	locator := storage.NewLocator(local, signer, presigner, cfg.Storage.PublicBaseURL+cfg.APIPrefix+"/files")

	a.effects = service.NewSideEffects(audit, locator, logr)
	a.queue = jobs.NewQueue("side-effects", a.effects.Handler(), jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	a.effects.Attach(a.queue)

	taxonomySvc := service.NewTaxonomyService(kv, cfg.Catalog.TaxonomyKey, cacheSvc, logr)
	taxonomySvc.Load(ctx)

	docOpts := []service.DocumentServiceOption{
		service.WithUploads(local, cfg.Storage.AllowedMIMEs),
		service.WithFileLinks(locator, signer),
	}
	if presigner != nil {
		docOpts = append(docOpts, service.WithPresignedUploads(presigner))
	}
	documentSvc := service.NewDocumentService(docs, taxonomySvc, a.effects, cacheSvc, a.metrics, validator.New(), logr, docOpts...)
	favoriteSvc := service.NewFavoriteService(favorites, docs, a.effects, cacheSvc, a.metrics, logr)
	moderationSvc := service.NewModerationService(docs, favoriteSvc, a.effects, audit, cacheSvc, a.metrics, logr)
	catalogSvc := service.NewCatalogService(docs, taxonomySvc, cacheSvc, a.metrics, logr, service.CatalogServiceConfig{
		DefaultPageSize: cfg.Catalog.DefaultPageSize,
		MaxPageSize:     cfg.Catalog.MaxPageSize,
		WindowSize:      cfg.Catalog.WindowSize,
		CacheTTL:        cfg.Catalog.CacheTTL,
	})

	if cfg.RateLimit.Enabled {
		a.limiter = ratelimit.New(cfg.RateLimit.QPS, cfg.RateLimit.Burst)
	}

	a.catalog = handler.NewCatalogHandler(catalogSvc)
	a.documents = handler.NewDocumentHandler(documentSvc, cfg.Storage.MaxUploadBytes)
	a.favorites = handler.NewFavoriteHandler(favoriteSvc)
	a.moderation = handler.NewModerationHandler(moderationSvc, favoriteSvc)
	a.taxonomy = handler.NewTaxonomyHandler(taxonomySvc)
	a.system = handler.NewMetricsHandler(a.metrics, checks)
	return a, nil
}

// start launches the background workers. They stop when ctx is cancelled or close is called.
func (a *app) start(ctx context.Context) {
	a.queue.Start(context.WithoutCancel(ctx))
	if a.limiter == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.limiter.Sweep(); n > 0 {
					a.logger.Debug("rate limiter swept", zap.Int("evicted", n))
				}
			}
		}
	}()
}

func (a *app) close(ctx context.Context) {
	if a.queue != nil {
		a.queue.Stop(ctx)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
}
