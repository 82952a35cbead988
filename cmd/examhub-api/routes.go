package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/noah-isme/examhub-api/internal/middleware"
	"github.com/noah-isme/examhub-api/internal/models"
	"github.com/noah-isme/examhub-api/pkg/config"
	"github.com/noah-isme/examhub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/examhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/examhub-api/pkg/middleware/requestid"
)

const taxonomyResource = "taxonomy"

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS.AllowedOrigins))
	if a.cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(a.cfg.Tracing.ServiceName))
	}
	r.Use(middleware.Metrics(a.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", a.system.Health)
	r.GET("/ready", a.system.Ready)
	r.GET("/metrics", a.system.Prometheus)

	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(a.cfg.APIPrefix)
	optional := middleware.OptionalJWT(a.tokens)
	required := middleware.JWT(a.tokens)

	api.GET("/taxonomy", a.taxonomy.Levels)
	api.GET("/taxonomy/levels/:id", a.taxonomy.Level)
	api.GET("/files/:token", a.documents.ServeFile)

	docs := api.Group("/documents")
	docs.GET("", optional, a.catalog.List)
	docs.GET("/search", optional, a.catalog.Search)
	docs.GET("/:id", optional, a.documents.Get)
	docs.POST("/:id/download", optional, a.documents.Download)
	docs.POST("", required, a.documents.Create)
	docs.POST("/upload", required, a.documents.Upload)
	docs.POST("/upload-url", required, a.documents.UploadURL)

	favorites := api.Group("/favorites", required)
	favorites.GET("", a.favorites.List)
	favorites.GET("/:id", a.favorites.Status)
	toggle := []gin.HandlerFunc{a.favorites.Toggle}
	if a.limiter != nil {
		toggle = append([]gin.HandlerFunc{middleware.RateLimit(a.limiter, a.metrics)}, toggle...)
	}
	favorites.POST("/:id/toggle", toggle...)

	admin := api.Group("/admin", required, middleware.RequireModerator())
	admin.GET("/moderation/queue", a.moderation.Queue)
	admin.GET("/documents", a.catalog.AdminList)
	admin.POST("/documents/:id/approve", a.moderation.Approve)
	admin.POST("/documents/:id/reject", a.moderation.Reject)
	admin.DELETE("/documents/:id", a.moderation.Delete)
	admin.POST("/documents/:id/favorites/reconcile", a.moderation.Reconcile)
	admin.GET("/documents/:id/audit", a.moderation.History)
	admin.GET("/system/metrics", a.system.Summary)

	audit := middleware.Audit(a.effects, models.AuditActionTaxonomyUpdate, taxonomyResource)
	levels := admin.Group("/taxonomy/levels/:id", audit)
	levels.POST("/classes", a.taxonomy.AddClass)
	levels.PUT("/classes/:value", a.taxonomy.RenameClass)
	levels.DELETE("/classes/:value", a.taxonomy.RemoveClass)
	levels.POST("/subjects", a.taxonomy.AddSubject)
	levels.PUT("/subjects/:value", a.taxonomy.RenameSubject)
	levels.DELETE("/subjects/:value", a.taxonomy.RemoveSubject)

	return r
}
