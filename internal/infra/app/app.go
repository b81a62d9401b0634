package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/cache"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/config"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/database"
	kafkainfra "github.com/aleksandersousa/personal-finance-management-api/internal/infra/kafka"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/logger"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/telemetry"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/throttle"
	postgresrepo "github.com/aleksandersousa/personal-finance-management-api/internal/repository/postgres"
	"github.com/aleksandersousa/personal-finance-management-api/internal/transport/http/middleware"
	"github.com/aleksandersousa/personal-finance-management-api/internal/transport/http/routes"
	"github.com/aleksandersousa/personal-finance-management-api/internal/usecase"
)

// Application bundles the wired service and its shared resources.
type Application struct {
	cfg           *config.AppConfig
	engine        *gin.Engine
	logger        *zap.Logger
	pool          *pgxpool.Pool
	tracer        *telemetry.TracerProvider
	forecastCache *cache.ForecastCache
	tracker       *throttle.Tracker
	producer      *kafkainfra.Producer
}

// New wires every layer of the service from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			producer = nil
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	tracker := throttle.NewTracker(throttle.Config{
		Threshold: cfg.Throttle.Threshold,
		BaseDelay: cfg.Throttle.BaseDelay,
		MaxDelay:  cfg.Throttle.MaxDelay,
		Window:    cfg.Throttle.Window,
	}, log)
	if cfg.Throttle.SweepInterval > 0 {
		tracker.WithSweepInterval(cfg.Throttle.SweepInterval)
	}

	forecastCache := cache.NewForecastCache(cfg.Cache.ForecastTTL)
	if cfg.Cache.SweepInterval > 0 {
		forecastCache.WithSweepInterval(cfg.Cache.SweepInterval)
	}

	authService := usecase.NewAuthService(cfg, repos.Users, tracker, eventPublisher, metrics, log)
	entryService := usecase.NewEntryService(repos.Entries, repos.Categories, forecastCache, eventPublisher, log)
	forecastService := usecase.NewForecastService(repos.Entries, repos.Categories, forecastCache, cfg.Cache.ForecastLookback, metrics, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		HTTPMetrics: httpMetrics,
		Database:    pool,
		Services: routes.ServiceSet{
			Auth:      authService,
			Entries:   entryService,
			Forecasts: forecastService,
		},
	})

	return &Application{
		cfg:           cfg,
		engine:        engine,
		logger:        log,
		pool:          pool,
		tracer:        tracer,
		forecastCache: forecastCache,
		tracker:       tracker,
		producer:      producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer a.forecastCache.Close()
	defer a.tracker.Close()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.tracer.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("shutdown tracer", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting finance API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
