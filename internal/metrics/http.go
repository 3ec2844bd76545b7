package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetricsMiddleware records request counts, latency and in-flight gauge
// for every route. With a noop recorder it degrades to a pass-through.
func HTTPMetricsMiddleware(r Recorder) gin.HandlerFunc {
	prom, ok := r.(*Metrics)
	if !ok {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		// The scrape endpoint must not count itself.
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		prom.HTTPRequestsInFlight.Inc()
		defer prom.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		method := c.Request.Method
		path := normalizePath(c.FullPath())
		status := strconv.Itoa(c.Writer.Status())

		prom.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		prom.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// normalizePath labels by route pattern, keeping cardinality bounded.
// Unmatched requests collapse into "unknown".
func normalizePath(routePattern string) string {
	if routePattern == "" {
		return "unknown"
	}
	return routePattern
}
