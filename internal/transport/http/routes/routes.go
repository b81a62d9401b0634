package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/config"
	"github.com/aleksandersousa/personal-finance-management-api/internal/transport/http/handlers"
	"github.com/aleksandersousa/personal-finance-management-api/internal/transport/http/middleware"
	"github.com/aleksandersousa/personal-finance-management-api/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth      *usecase.AuthService
	Entries   *usecase.EntryService
	Forecasts *usecase.ForecastService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	HTTPMetrics *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 1)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/health/live", healthHandler.Status)
	r.GET("/health/ready", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		if deps.Services.Auth != nil {
			authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Logger)
			api.POST("/auth/login", authHandler.Login)
		}

		if deps.Services.Auth != nil && deps.Services.Entries != nil {
			authMiddleware := middleware.RequireAuth(deps.Services.Auth)

			entryHandler := handlers.NewEntryHandler(deps.Services.Entries, deps.Logger)
			entryGroup := api.Group("/entries")
			entryGroup.Use(authMiddleware)
			entryGroup.POST("", entryHandler.Create)
			entryGroup.GET("", entryHandler.List)
			entryGroup.GET("/:id", entryHandler.Get)
			entryGroup.PUT("/:id", entryHandler.Update)
			entryGroup.DELETE("/:id", entryHandler.Delete)

			categoryGroup := api.Group("/categories")
			categoryGroup.Use(authMiddleware)
			categoryGroup.POST("", entryHandler.CreateCategory)
			categoryGroup.GET("", entryHandler.ListCategories)

			if deps.Services.Forecasts != nil {
				forecastHandler := handlers.NewForecastHandler(deps.Services.Forecasts, deps.Logger)
				api.GET("/forecast", authMiddleware, forecastHandler.Get)

				cacheHandler := handlers.NewCacheHandler(deps.Services.Forecasts)
				api.GET("/admin/cache/stats", authMiddleware, cacheHandler.Stats)
			}
		}
	}

	return r
}
