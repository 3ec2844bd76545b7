package bootstrap

import (
	"log"
	"net/http"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/metrics"
	"github.com/Danticipation/chakrai/internal/middleware"
	"github.com/Danticipation/chakrai/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// setupRouter assembles the gin engine: global middleware, health and
// metrics endpoints, then the identity routes.
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	sealer *identity.Sealer,
	h handlerSet,
	recorder metrics.Recorder,
	rateLimitRedisClient *redis.Client,
) *gin.Engine {
	setupGinMode(cfg)

	r := gin.New()
	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", healthHandler(db))
	setupMetricsEndpoint(r, cfg)

	limiters := setupRateLimiting(cfg, rateLimitRedisClient)
	setupIdentityRoutes(r, cfg, db, sealer, h, recorder, limiters)
	setupDebugRoutes(r, cfg, sealer, recorder, h)

	log.Printf("Identity server starting on %s", cfg.ServerAddr)
	log.Printf("Base URL: %s", cfg.BaseURL)
	return r
}

func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.BearerAuth("metrics", cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupIdentityRoutes wires the install and session endpoints. Every route
// goes through the same two middlewares, in order: identity resolution
// (cookie unseal or mint) and the row-level security binder that scopes
// every query in the request to the resolved uid.
func setupIdentityRoutes(
	r *gin.Engine,
	cfg *config.Config,
	db *store.Store,
	sealer *identity.Sealer,
	h handlerSet,
	recorder metrics.Recorder,
	limiters rateLimitMiddlewares,
) {
	api := r.Group("")
	api.Use(
		middleware.ResolveIdentity(sealer, cfg, recorder),
		middleware.BindRLS(db),
	)
	{
		api.POST("/install/register", limiters.install, h.install.Register)
		api.POST("/session/start", limiters.session, h.session.Start)
		api.POST("/session/end", limiters.session, h.session.End)
	}
}

// setupDebugRoutes exposes /debug/whoami. Open in development; in production
// it requires a bearer token and is absent entirely when none is configured.
func setupDebugRoutes(
	r *gin.Engine,
	cfg *config.Config,
	sealer *identity.Sealer,
	recorder metrics.Recorder,
	h handlerSet,
) {
	resolve := middleware.ResolveIdentity(sealer, cfg, recorder)

	switch {
	case !cfg.IsProduction:
		r.GET("/debug/whoami", resolve, h.whoami.Whoami)
		log.Println("Debug endpoint enabled at /debug/whoami (development)")
	case cfg.DebugWhoamiToken != "":
		r.GET(
			"/debug/whoami",
			middleware.BearerAuth("debug", cfg.DebugWhoamiToken),
			resolve,
			h.whoami.Whoami,
		)
		log.Println("Debug endpoint enabled at /debug/whoami (bearer token required)")
	default:
		log.Println("Debug endpoint disabled (production, no DEBUG_WHOAMI_TOKEN)")
	}
}

func healthHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
		})
	}
}

func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
		log.Printf("Gin mode: release (production)")
		return
	}
	gin.SetMode(gin.DebugMode)
	log.Printf("Gin mode: debug (development)")
}
