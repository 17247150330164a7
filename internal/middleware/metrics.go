package middleware

import (
	"strconv"
	"sync"
	"time"

	"bookswap/internal/observability"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts redis failures by operation. Shared by the redis hook and the rate limiter.
	RedisErrors = observability.RedisErrorRate

	requestDuration *prometheus.HistogramVec
	metricsOnce     sync.Once

	fiberProm     *fiberprometheus.FiberPrometheus
	fiberPromOnce sync.Once
)

// FiberPrometheus returns the process-wide request collector. The first
// caller's service name wins; collectors can only be registered once.
func FiberPrometheus(service string) *fiberprometheus.FiberPrometheus {
	fiberPromOnce.Do(func() {
		fiberProm = fiberprometheus.New(service)
	})
	return fiberProm
}

// InitMetrics registers the per-route request histogram. Safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookswap_http_route_duration_seconds",
			Help:    "Request latency by route template and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"})
	})
}

// MetricsMiddleware observes latency per route template so ids do not explode label cardinality.
func MetricsMiddleware() fiber.Handler {
	InitMetrics()
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(
			c.Method(), route, strconv.Itoa(c.Response().StatusCode()),
		).Observe(time.Since(start).Seconds())
		return err
	}
}
