package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Danticipation/chakrai/internal/cache"
	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/metrics"
	"github.com/Danticipation/chakrai/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
)

const serverShutdownTimeout = 5 * time.Second

func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}
		log.Println("Server exited")
		return nil
	})
}

// addCloserShutdownJob registers a named resource closer. Nil closers are
// skipped so callers can pass whatever the active configuration produced.
func addCloserShutdownJob(m *graceful.Manager, name string, closer func() error) {
	if closer == nil {
		return
	}
	m.AddShutdownJob(func() error {
		if err := closer(); err != nil {
			log.Printf("Error closing %s: %v", name, err)
			return err
		}
		log.Printf("%s closed", name)
		return nil
	})
}

func addRedisClientShutdownJob(m *graceful.Manager, client *redis.Client) {
	if client == nil {
		return
	}
	addCloserShutdownJob(m, "rate limit redis client", client.Close)
}

func addDatabaseShutdownJob(m *graceful.Manager, db *store.Store) {
	addCloserShutdownJob(m, "database connection", db.Close)
}

func addCacheCleanupJob(m *graceful.Manager, cacheCloser func() error) {
	addCloserShutdownJob(m, "cache", cacheCloser)
}

// addMetricsGaugeUpdateJob runs the periodic gauge refresh. Counts go through
// the cache wrapper so multiple instances sharing a redis cache do not each
// hit the database every tick.
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder metrics.Recorder,
	metricsCache cache.Cache[int64],
) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		wrapper := metrics.NewCacheWrapper(db, metricsCache)

		// First refresh happens immediately so gauges are populated before
		// the first tick.
		refreshGauges(ctx, wrapper, recorder, cfg.MetricsGaugeUpdateInterval)

		for {
			select {
			case <-ticker.C:
				refreshGauges(ctx, wrapper, recorder, cfg.MetricsGaugeUpdateInterval)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// refreshGauges pulls each count and pushes it into the recorder. The cache
// TTL matches the refresh interval so every tick sees at most one database
// round trip per count across all instances.
func refreshGauges(
	ctx context.Context,
	wrapper *metrics.CacheWrapper,
	recorder metrics.Recorder,
	cacheTTL time.Duration,
) {
	gauges := []struct {
		operation string
		fetch     func(context.Context, time.Duration) (int64, error)
		set       func(int)
	}{
		{"count_active_sessions", wrapper.GetActiveSessionsCount, recorder.SetActiveSessionsCount},
		{"count_installs", wrapper.GetInstallsCount, recorder.SetInstallsCount},
		{"count_user_devices", wrapper.GetUserDevicesCount, recorder.SetUserDevicesCount},
	}

	for _, g := range gauges {
		n, err := g.fetch(ctx, cacheTTL)
		if err != nil {
			recorder.RecordDatabaseQueryError(g.operation)
			gaugeErrorLogger.logIfNeeded(g.operation, err)
			continue
		}
		g.set(int(n))
	}
}

var gaugeErrorLogger = newErrorLogger()

// errorLogger suppresses repeats of the same failing operation so a down
// database does not flood the log once per tick.
type errorLogger struct {
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
}

func newErrorLogger() *errorLogger {
	return &errorLogger{
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: 5 * time.Minute,
	}
}

func (e *errorLogger) logIfNeeded(operation string, err error) {
	now := time.Now()
	last, seen := e.lastErrorTimes[operation]
	if seen && now.Sub(last) < e.rateLimitWindow {
		return
	}
	log.Printf("Database query failed for %s: %v (further errors suppressed for %v)",
		operation, err, e.rateLimitWindow)
	e.lastErrorTimes[operation] = now
}
