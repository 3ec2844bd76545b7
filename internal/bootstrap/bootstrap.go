package bootstrap

import (
	"context"
	"net/http"

	"github.com/Danticipation/chakrai/internal/cache"
	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/keyring"
	"github.com/Danticipation/chakrai/internal/metrics"
	"github.com/Danticipation/chakrai/internal/models"
	"github.com/Danticipation/chakrai/internal/services"
	"github.com/Danticipation/chakrai/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Identity
	Ring   *keyring.Ring
	Sealer *identity.Sealer

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      metrics.Recorder
	MetricsCache         cache.Cache[int64]
	MetricsCacheCloser   func() error
	BindingCache         cache.Cache[models.UserDevice]
	BindingCacheCloser   func() error
	RateLimitRedisClient *redis.Client

	// Services
	BindingService *services.BindingService

	// HTTP
	HandlerSet handlerSet
	Router     *gin.Engine
	Server     *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}
	ctx := context.Background()

	// Phase 1: Validate configuration (signing keys included; fatal on error)
	app.Ring = validateAllConfiguration(cfg)
	app.Sealer = identity.NewSealer(app.Ring)

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, caches, and Redis
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	// Database
	app.DB, err = initializeDatabase(ctx, app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)
	app.MetricsCache, app.MetricsCacheCloser, err = initializeMetricsCache(ctx, app.Config)
	if err != nil {
		return err
	}

	// Binding cache (user-device lookups)
	app.BindingCache, app.BindingCacheCloser, err = initializeBindingCache(ctx, app.Config)
	if err != nil {
		return err
	}

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(ctx, app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() {
	app.BindingService = services.NewBindingService(
		app.DB,
		app.Config.DeviceKey,
		app.Config.UserDeviceKey,
		app.BindingCache,
		app.Config.BindingCacheTTL,
		app.MetricsRecorder,
	)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	app.HandlerSet = initializeHandlers(
		app.Config,
		app.BindingService,
		app.Sealer,
		app.DB,
	)

	app.Router = setupRouter(
		app.Config,
		app.DB,
		app.Sealer,
		app.HandlerSet,
		app.MetricsRecorder,
		app.RateLimitRedisClient,
	)

	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.MetricsCache)
	addCacheCleanupJob(m, app.MetricsCacheCloser)
	addCacheCleanupJob(m, app.BindingCacheCloser)
	addDatabaseShutdownJob(m, app.DB)

	// Wait for graceful shutdown
	<-m.Done()
}
