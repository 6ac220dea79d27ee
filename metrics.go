package havewecrashedyet

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the app's Prometheus collectors.
type Metrics struct {
	registry     *prometheus.Registry
	runsTotal    *prometheus.CounterVec
	fetchSeconds prometheus.Histogram
	httpRequests *prometheus.CounterVec
}

// NewMetrics builds and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crashedyet_pipeline_runs_total",
			Help: "Pipeline runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crashedyet_fetch_duration_seconds",
			Help:    "Duration of the market data fetch step.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crashedyet_http_requests_total",
			Help: "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
	}
	reg.MustRegister(m.runsTotal, m.fetchSeconds, m.httpRequests)
	reg.MustRegister(collectors.NewGoCollector())
	return m
}

// ObserveRun records a finished (or skipped) dispatch.
func (m *Metrics) ObserveRun(trigger, outcome string, fetchSeconds float64) {
	m.runsTotal.WithLabelValues(trigger, outcome).Inc()
	if fetchSeconds > 0 {
		m.fetchSeconds.Observe(fetchSeconds)
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware counts every request except the metrics scrape itself.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = 500
				}
			}
			// Use the route pattern, not the raw path, to bound cardinality.
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.httpRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
